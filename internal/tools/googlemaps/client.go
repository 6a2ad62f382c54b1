// Package googlemaps implements the server-immediate Google Maps
// capabilities: place lookup, geocoding, routing, and the typeahead
// suggestions behind the search endpoint. All coordinates are returned
// in both WGS84 and ITM so the map frontend can use them directly.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

const defaultBaseURL = "https://maps.googleapis.com"

var hebrewPattern = regexp.MustCompile(`[\x{0590}-\x{05FF}]`)

// Config holds Google Maps credentials and overrides.
type Config struct {
	// APIKey authenticates against the Google Maps Platform (required).
	APIKey string

	// BaseURL overrides the API endpoint (tests).
	BaseURL string
}

// Client is a thin wrapper over the Google Maps web service endpoints.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a Google Maps client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// getJSON issues a GET against path with params (the API key is added
// here) and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("googlemaps: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("googlemaps: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("googlemaps: %s returned status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("googlemaps: decode %s response: %w", path, err)
	}
	return nil
}

// hasHebrew reports whether s contains Hebrew characters.
func hasHebrew(s string) bool {
	return hebrewPattern.MatchString(s)
}

// pickLanguage resolves the response language: an explicit choice wins,
// otherwise Hebrew queries get Hebrew and everything else English.
func pickLanguage(query, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if hasHebrew(query) {
		return "he"
	}
	return "en"
}

// fallbackLanguage is the language for the global retry when the
// Israel-biased attempt finds nothing.
func fallbackLanguage(language string) string {
	if language == "he" {
		return "en"
	}
	return language
}

func clampResults(n int) int {
	if n <= 0 {
		return 3
	}
	if n > 5 {
		return 5
	}
	return n
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type itmPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
