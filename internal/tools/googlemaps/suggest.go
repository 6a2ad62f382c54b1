package googlemaps

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/haasonsaas/mapgate/internal/geo"
)

const maxSuggestions = 6

// SuggestAction tells the frontend what to do when a suggestion is
// picked; currently always a zoom.
type SuggestAction struct {
	Type  string  `json:"type"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Level int     `json:"level,omitempty"`
	Term  string  `json:"term,omitempty"`
}

// Suggestion is one typeahead search result.
type Suggestion struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle,omitempty"`
	Kind     string        `json:"kind"`
	Badge    string        `json:"badge,omitempty"`
	Action   SuggestAction `json:"action"`
}

type autocompleteResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Predictions  []struct {
		PlaceID              string   `json:"place_id"`
		Description          string   `json:"description"`
		Types                []string `json:"types"`
		StructuredFormatting struct {
			MainText      string `json:"main_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"structured_formatting"`
	} `json:"predictions"`
}

type placeDetailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		PlaceID          string   `json:"place_id"`
		Name             string   `json:"name"`
		FormattedAddress string   `json:"formatted_address"`
		Types            []string `json:"types"`
		Geometry         struct {
			Location *latLng `json:"location"`
		} `json:"geometry"`
	} `json:"result"`
}

// Suggest returns up to six zoomable search suggestions for the typed
// text: Israel-scoped Hebrew autocomplete, each prediction resolved to
// coordinates through place details. Predictions without usable
// coordinates are skipped.
func (c *Client) Suggest(ctx context.Context, searchText string) ([]Suggestion, error) {
	searchText = strings.TrimSpace(searchText)
	if searchText == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("input", searchText)
	params.Set("language", "he")
	params.Set("components", "country:il")

	var auto autocompleteResponse
	if err := c.getJSON(ctx, "/maps/api/place/autocomplete/json", params, &auto); err != nil {
		return nil, err
	}
	switch auto.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		if auto.ErrorMessage != "" {
			return nil, fmt.Errorf("googlemaps: autocomplete: %s", auto.ErrorMessage)
		}
		return nil, fmt.Errorf("googlemaps: autocomplete status %s", auto.Status)
	}

	var suggestions []Suggestion
	for _, pred := range auto.Predictions {
		if len(suggestions) >= maxSuggestions {
			break
		}
		if pred.PlaceID == "" {
			continue
		}

		detailParams := url.Values{}
		detailParams.Set("place_id", pred.PlaceID)
		detailParams.Set("fields", "geometry,name,formatted_address,types")

		var details placeDetailsResponse
		if err := c.getJSON(ctx, "/maps/api/place/details/json", detailParams, &details); err != nil {
			continue
		}
		if details.Status != "OK" {
			continue
		}
		loc := details.Result.Geometry.Location
		if loc == nil {
			continue
		}
		x, y, ok := geo.WGS84ToITM(loc.Lng, loc.Lat)
		if !ok {
			continue
		}

		title := firstNonEmpty(
			details.Result.Name,
			details.Result.FormattedAddress,
			pred.StructuredFormatting.MainText,
			pred.Description,
			searchText,
		)
		subtitle := firstNonEmpty(
			pred.StructuredFormatting.SecondaryText,
			details.Result.FormattedAddress,
			pred.Description,
		)
		types := details.Result.Types
		if len(types) == 0 {
			types = pred.Types
		}

		suggestions = append(suggestions, Suggestion{
			ID:       fmt.Sprintf("gg-%s", pred.PlaceID),
			Title:    title,
			Subtitle: subtitle,
			Kind:     suggestionKind(types),
			Badge:    badgeFromTypes(types),
			Action:   SuggestAction{Type: "zoom", X: x, Y: y, Level: 12, Term: title},
		})
	}
	return suggestions, nil
}

func suggestionKind(types []string) string {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[strings.ToLower(t)] = true
	}
	if set["street_address"] || set["premise"] || set["route"] || set["locality"] || set["political"] {
		return "address"
	}
	return "feature"
}

// badgeFromTypes picks a short Hebrew label for the result category.
func badgeFromTypes(types []string) string {
	if len(types) == 0 {
		return "תוצאה"
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	switch {
	case set["street_address"] || set["premise"]:
		return "כתובת"
	case set["route"]:
		return "רחוב"
	case set["locality"] || set["political"]:
		return "יישוב"
	case set["point_of_interest"] || set["establishment"]:
		return "מקום"
	default:
		return "תוצאה"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
