package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/haasonsaas/mapgate/internal/geo"
	"github.com/haasonsaas/mapgate/internal/registry"
)

// GeocodeTool resolves free-text addresses via the Geocoding API.
type GeocodeTool struct {
	client *Client
}

// NewGeocodeTool creates the geocoding tool.
func NewGeocodeTool(client *Client) *GeocodeTool {
	return &GeocodeTool{client: client}
}

func (t *GeocodeTool) Name() string { return "google_geocode" }

func (t *GeocodeTool) Description() string {
	return "Geocode a free-text address or place name via Google Geocoding. Returns formatted address and coordinates including Israel Transverse Mercator (ITM) x/y."
}

func (t *GeocodeTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Address or place text to geocode."},
			"language": {"type": "string", "description": "Response language code (e.g., he, en). Defaults to the query's language."}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

type geocodeParams struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string   `json:"formatted_address"`
		Types            []string `json:"types"`
		PlaceID          string   `json:"place_id"`
		Geometry         struct {
			Location *latLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type geocodeHit struct {
	FormattedAddress string    `json:"formatted_address"`
	Types            []string  `json:"types,omitempty"`
	Location         *latLng   `json:"location,omitempty"`
	ITM              *itmPoint `json:"itm,omitempty"`
	PlaceID          string    `json:"place_id,omitempty"`
}

// Execute geocodes with Israel region bias first, then retries globally
// in the alternate language.
func (t *GeocodeTool) Execute(ctx context.Context, params json.RawMessage) (*registry.Result, error) {
	var p geocodeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.Query == "" {
		return errResult("query parameter is required"), nil
	}
	language := pickLanguage(p.Query, p.Language)

	resp, err := t.geocode(ctx, p.Query, language, "il")
	if err != nil {
		return errResult(err.Error()), nil
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		if fallback, ferr := t.geocode(ctx, p.Query, fallbackLanguage(language), ""); ferr == nil && fallback.Status == "OK" {
			resp = fallback
		}
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = "geocode failed or returned no results"
		}
		return errResult(msg), nil
	}

	hits := make([]geocodeHit, 0, len(resp.Results))
	for _, r := range resp.Results {
		hit := geocodeHit{
			FormattedAddress: r.FormattedAddress,
			Types:            r.Types,
			PlaceID:          r.PlaceID,
		}
		if loc := r.Geometry.Location; loc != nil {
			hit.Location = loc
			if x, y, ok := geo.WGS84ToITM(loc.Lng, loc.Lat); ok {
				hit.ITM = &itmPoint{X: x, Y: y}
			}
		}
		hits = append(hits, hit)
	}

	return okResult(map[string]any{"ok": true, "query": p.Query, "results": hits})
}

func (t *GeocodeTool) geocode(ctx context.Context, query, language, region string) (*geocodeResponse, error) {
	params := url.Values{}
	params.Set("address", query)
	params.Set("language", language)
	if region != "" {
		params.Set("region", region)
	}

	var resp geocodeResponse
	if err := t.client.getJSON(ctx, "/maps/api/geocode/json", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
