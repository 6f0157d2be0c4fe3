package domain

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// ScrapedView is a read-only accessor over the raw scraped payload. The
// scraper's schema is not fixed, so every known field is optional and a
// mistyped or missing value just reads as absent.
type ScrapedView struct {
	raw map[string]interface{}
}

// View parses the payload into a ScrapedView. A nil or malformed payload
// yields an empty view, never an error.
func View(data datatypes.JSON) ScrapedView {
	var raw map[string]interface{}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &raw)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return ScrapedView{raw: raw}
}

// Title returns the listing title, if present.
func (v ScrapedView) Title() (string, bool) {
	return v.str("title")
}

// Price returns the asking price, if present. Scrapers send it as either a
// number or a string; only numeric values are surfaced.
func (v ScrapedView) Price() (float64, bool) {
	f, ok := v.raw["price"].(float64)
	return f, ok
}

// Address returns the listing address, if present.
func (v ScrapedView) Address() (string, bool) {
	return v.str("address")
}

// Rooms returns the room count, if present.
func (v ScrapedView) Rooms() (int, bool) {
	f, ok := v.raw["rooms"].(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Photos returns the photo URL list. Scrapers use either "images" or
// "photos"; non-string entries are skipped.
func (v ScrapedView) Photos() []string {
	for _, key := range []string{"images", "photos"} {
		arr, ok := v.raw[key].([]interface{})
		if !ok {
			continue
		}
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (v ScrapedView) str(key string) (string, bool) {
	s, ok := v.raw[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
