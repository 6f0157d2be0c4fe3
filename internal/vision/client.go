// Package vision sends listing photos to a hosted vision-language model and
// returns its structured window energy assessment.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// DefaultModel supports multimodal (text + vision) input.
const DefaultModel = "gemini-2.5-flash"

// DefaultLocation is used when the caller gives no location context.
const DefaultLocation = "Barcelona, Spain"

// WindowAnalysis is the fixed result shape the model is prompted to return.
// It is stored verbatim in an AnalysisRecord.
type WindowAnalysis struct {
	Windows struct {
		FrameMaterial     string  `json:"frame_material"`
		GlazingType       string  `json:"glazing_type"`
		WindowToWallRatio float64 `json:"window_to_wall_ratio"`
		Size              string  `json:"size"`
		Condition         string  `json:"condition"`
		Confidence        float64 `json:"confidence"`
	} `json:"windows"`
	EnergyFeatures struct {
		Shutters        bool     `json:"shutters"`
		ExternalShading bool     `json:"external_shading"`
		ModernFeatures  []string `json:"modern_features"`
	} `json:"energy_features"`
	Orientation struct {
		Estimated  string  `json:"estimated"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	} `json:"orientation"`
	BioclimaticScore struct {
		Score      float64  `json:"score"`
		Strengths  []string `json:"strengths"`
		Weaknesses []string `json:"weaknesses"`
	} `json:"bioclimatic_score"`
	Recommendations []Recommendation `json:"recommendations"`
}

type Recommendation struct {
	Action        string `json:"action"`
	Priority      string `json:"priority"`
	EstimatedCost string `json:"estimated_cost"`
	AnnualSavings string `json:"annual_savings"`
}

// Analyzer abstracts the vision collaborator.
type Analyzer interface {
	AnalyzeWindows(ctx context.Context, imageURLs []string, location string) (*WindowAnalysis, error)
}

// GeminiClient is an Analyzer backed by the Generative Language REST API.
type GeminiClient struct {
	APIKey  string
	Model   string
	BaseURL string // override for tests; defaults to https://generativelanguage.googleapis.com
	Client  *http.Client
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// AnalyzeWindows downloads the images, sends them with the prompt, and parses
// the model's JSON answer. Errors carry the upstream message verbatim.
func (c *GeminiClient) AnalyzeWindows(ctx context.Context, imageURLs []string, location string) (*WindowAnalysis, error) {
	// Local default: the client struct is shared across request goroutines.
	httpClient := c.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("Failed to analyze windows: GEMINI_API_KEY is not set")
	}
	if location == "" {
		location = DefaultLocation
	}
	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	base := c.BaseURL
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}

	parts := []part{{Text: strings.ReplaceAll(windowAnalysisPrompt, "{location}", location)}}
	for _, imgURL := range imageURLs {
		data, mime, err := fetchImage(ctx, httpClient, imgURL)
		if err != nil {
			return nil, fmt.Errorf("Failed to analyze windows: %w", err)
		}
		parts = append(parts, part{InlineData: &inlineData{MimeType: mime, Data: data}})
	}

	bodyBytes, _ := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(base, "/"), model, url.QueryEscape(c.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("Failed to analyze windows: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Failed to analyze windows: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Failed to analyze windows: model returned status %d body: %s", resp.StatusCode, string(respBody))
	}

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return nil, fmt.Errorf("Failed to analyze windows: decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("Failed to analyze windows: model returned no candidates")
	}

	return ParseAnalysis(gr.Candidates[0].Content.Parts[0].Text)
}

func fetchImage(ctx context.Context, client *http.Client, imgURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imgURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("image fetch returned status %d for %s", resp.StatusCode, imgURL)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(b), MimeForURL(imgURL), nil
}

// MimeForURL guesses the image MIME type from the URL extension, defaulting
// to jpeg.
func MimeForURL(imgURL string) string {
	lower := strings.ToLower(imgURL)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

var fencedJSON = regexp.MustCompile("```json\\n([\\s\\S]*?)\\n```")
var bareJSON = regexp.MustCompile(`\{[\s\S]*\}`)

// ParseAnalysis extracts the JSON object from the model's answer, which may
// arrive inside a markdown code fence or as bare text.
func ParseAnalysis(text string) (*WindowAnalysis, error) {
	var jsonStr string
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		jsonStr = m[1]
	} else if m := bareJSON.FindString(text); m != "" {
		jsonStr = m
	} else {
		return nil, fmt.Errorf("Failed to analyze windows: could not extract JSON from model response")
	}

	var analysis WindowAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
		return nil, fmt.Errorf("Failed to analyze windows: %w", err)
	}
	return &analysis, nil
}
