// Package scrape calls the hosted actor that fetches raw listing data for a
// property URL. The payload shape is whatever the actor returns; this client
// does not validate or normalize it.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// DefaultActorID is the Idealista scraper actor.
const DefaultActorID = "lukass/idealista-scraper"

// Scraper abstracts the scrape collaborator (production Apify client or test
// doubles).
type Scraper interface {
	Scrape(ctx context.Context, propertyURL string) (datatypes.JSON, error)
}

// ApifyClient is a Scraper backed by the Apify run-sync API.
type ApifyClient struct {
	Token   string
	ActorID string
	BaseURL string // override for tests; defaults to https://api.apify.com
	Client  *http.Client
}

type actorInput struct {
	StartURL []startURL `json:"startUrl"`
	MaxItems int        `json:"maxItems"`
	Proxy    proxyConf  `json:"proxy"`
}

type startURL struct {
	URL string `json:"url"`
}

type proxyConf struct {
	UseApifyProxy    bool     `json:"useApifyProxy"`
	ApifyProxyGroups []string `json:"apifyProxyGroups"`
}

// Scrape runs the actor synchronously and returns the first dataset item.
// Errors carry the upstream message so callers can pass them through verbatim.
func (c *ApifyClient) Scrape(ctx context.Context, propertyURL string) (datatypes.JSON, error) {
	// Local default: the client struct is shared across request goroutines.
	httpClient := c.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if c.Token == "" {
		return nil, fmt.Errorf("Failed to scrape property: APIFY_API_TOKEN is not set")
	}
	actor := c.ActorID
	if actor == "" {
		actor = DefaultActorID
	}
	base := c.BaseURL
	if base == "" {
		base = "https://api.apify.com"
	}

	input := actorInput{
		StartURL: []startURL{{URL: propertyURL}},
		MaxItems: 1,
		Proxy: proxyConf{
			UseApifyProxy:    true,
			ApifyProxyGroups: []string{"RESIDENTIAL"},
		},
	}
	bodyBytes, _ := json.Marshal(input)

	// Actor ids use "~" instead of "/" in the API path.
	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s",
		strings.TrimRight(base, "/"),
		strings.ReplaceAll(actor, "/", "~"),
		url.QueryEscape(c.Token))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("Failed to scrape property: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Failed to scrape property: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Failed to scrape property: actor returned status %d body: %s", resp.StatusCode, string(respBody))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, fmt.Errorf("Failed to scrape property: decode dataset: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("No property data found for the provided URL")
	}
	return datatypes.JSON(items[0]), nil
}
