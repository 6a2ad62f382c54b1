package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/haasonsaas/mapgate/internal/geo"
	"github.com/haasonsaas/mapgate/internal/registry"
)

// PlacesTool looks up businesses and places via Places text search.
type PlacesTool struct {
	client *Client
}

// NewPlacesTool creates the place lookup tool.
func NewPlacesTool(client *Client) *PlacesTool {
	return &PlacesTool{client: client}
}

func (t *PlacesTool) Name() string { return "google_places_lookup" }

func (t *PlacesTool) Description() string {
	return "Lookup businesses or places via Google Places text search. Returns name, address, and coordinates including Israel Transverse Mercator (ITM) x/y."
}

func (t *PlacesTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Business or place text to search."},
			"maxResults": {"type": "integer", "description": "Limit results (1-5). Default 3.", "minimum": 1, "maximum": 5},
			"language": {"type": "string", "description": "Response language code (e.g., he, en). Defaults to the query's language."}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

type placesParams struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults"`
	Language   string `json:"language"`
}

type textSearchResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Name             string   `json:"name"`
		FormattedAddress string   `json:"formatted_address"`
		Types            []string `json:"types"`
		Rating           float64  `json:"rating"`
		UserRatingsTotal int      `json:"user_ratings_total"`
		PlaceID          string   `json:"place_id"`
		Geometry         struct {
			Location *latLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type placeHit struct {
	Name             string    `json:"name"`
	Address          string    `json:"address"`
	Types            []string  `json:"types,omitempty"`
	Rating           float64   `json:"rating,omitempty"`
	UserRatingsTotal int       `json:"user_ratings_total,omitempty"`
	Location         *latLng   `json:"location,omitempty"`
	ITM              *itmPoint `json:"itm,omitempty"`
	PlaceID          string    `json:"place_id,omitempty"`
}

// Execute runs an Israel-biased text search, retrying globally in the
// alternate language when the biased attempt finds nothing.
func (t *PlacesTool) Execute(ctx context.Context, params json.RawMessage) (*registry.Result, error) {
	var p placesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.Query == "" {
		return errResult("query parameter is required"), nil
	}
	language := pickLanguage(p.Query, p.Language)
	maxResults := clampResults(p.MaxResults)

	resp, err := t.textSearch(ctx, p.Query, language, "il")
	if err != nil {
		return errResult(err.Error()), nil
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		if fallback, ferr := t.textSearch(ctx, p.Query, fallbackLanguage(language), ""); ferr == nil && fallback.Status == "OK" {
			resp = fallback
		}
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = "places lookup failed or returned no results"
		}
		return errResult(msg), nil
	}

	hits := make([]placeHit, 0, maxResults)
	for _, place := range resp.Results {
		if len(hits) >= maxResults {
			break
		}
		hit := placeHit{
			Name:             place.Name,
			Address:          place.FormattedAddress,
			Types:            place.Types,
			Rating:           place.Rating,
			UserRatingsTotal: place.UserRatingsTotal,
			PlaceID:          place.PlaceID,
		}
		if loc := place.Geometry.Location; loc != nil {
			hit.Location = loc
			if x, y, ok := geo.WGS84ToITM(loc.Lng, loc.Lat); ok {
				hit.ITM = &itmPoint{X: x, Y: y}
			}
		}
		hits = append(hits, hit)
	}

	return okResult(map[string]any{"ok": true, "query": p.Query, "results": hits})
}

func (t *PlacesTool) textSearch(ctx context.Context, query, language, region string) (*textSearchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("language", language)
	if region != "" {
		params.Set("region", region)
	}

	var resp textSearchResponse
	if err := t.client.getJSON(ctx, "/maps/api/place/textsearch/json", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func errResult(msg string) *registry.Result {
	payload, _ := json.Marshal(map[string]any{"ok": false, "error": msg})
	return &registry.Result{Content: string(payload), IsError: true}
}

func okResult(payload map[string]any) (*registry.Result, error) {
	out, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("googlemaps: encode result: %w", err)
	}
	return &registry.Result{Content: string(out)}, nil
}
