package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/haasonsaas/mapgate/internal/geo"
	"github.com/haasonsaas/mapgate/internal/registry"
)

// RouteTool estimates routes via the Directions API.
type RouteTool struct {
	client *Client
}

// NewRouteTool creates the routing tool.
func NewRouteTool(client *Client) *RouteTool {
	return &RouteTool{client: client}
}

func (t *RouteTool) Name() string { return "google_route" }

func (t *RouteTool) Description() string {
	return "Get an estimated route, distance, and duration between two places via Google Directions. Returns start/end coordinates including Israel Transverse Mercator (ITM) x/y."
}

func (t *RouteTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"origin": {"type": "string", "description": "Starting address or place text."},
			"destination": {"type": "string", "description": "Destination address or place text."},
			"mode": {"type": "string", "enum": ["driving", "walking", "bicycling", "transit"], "description": "Travel mode. Defaults to driving."},
			"language": {"type": "string", "description": "Response language code (e.g., he, en). Defaults to he."}
		},
		"required": ["origin", "destination"],
		"additionalProperties": false
	}`)
}

type routeParams struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Mode        string `json:"mode"`
	Language    string `json:"language"`
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Summary  string   `json:"summary"`
		Warnings []string `json:"warnings"`
		Legs     []struct {
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
			StartAddress  string  `json:"start_address"`
			EndAddress    string  `json:"end_address"`
			StartLocation *latLng `json:"start_location"`
			EndLocation   *latLng `json:"end_location"`
		} `json:"legs"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

type routeSummary struct {
	Summary          string    `json:"summary"`
	DistanceMeters   int       `json:"distance_meters,omitempty"`
	DurationSeconds  int       `json:"duration_seconds,omitempty"`
	StartAddress     string    `json:"start_address,omitempty"`
	EndAddress       string    `json:"end_address,omitempty"`
	StartLocation    *latLng   `json:"start_location,omitempty"`
	EndLocation      *latLng   `json:"end_location,omitempty"`
	StartITM         *itmPoint `json:"start_itm,omitempty"`
	EndITM           *itmPoint `json:"end_itm,omitempty"`
	Warnings         []string  `json:"warnings,omitempty"`
	OverviewPolyline string    `json:"overview_polyline,omitempty"`
}

// Execute fetches directions and returns the first route's summary.
func (t *RouteTool) Execute(ctx context.Context, params json.RawMessage) (*registry.Result, error) {
	var p routeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.Origin == "" || p.Destination == "" {
		return errResult("origin and destination parameters are required"), nil
	}
	if p.Mode == "" {
		p.Mode = "driving"
	}
	if p.Language == "" {
		p.Language = "he"
	}

	query := url.Values{}
	query.Set("origin", p.Origin)
	query.Set("destination", p.Destination)
	query.Set("mode", p.Mode)
	query.Set("language", p.Language)
	query.Set("units", "metric")

	var resp directionsResponse
	if err := t.client.getJSON(ctx, "/maps/api/directions/json", query, &resp); err != nil {
		return errResult(err.Error()), nil
	}
	if resp.Status != "OK" {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = "directions lookup failed"
		}
		return errResult(msg), nil
	}

	var routes []routeSummary
	if len(resp.Routes) > 0 {
		route := resp.Routes[0]
		summary := routeSummary{
			Summary:          route.Summary,
			Warnings:         route.Warnings,
			OverviewPolyline: route.OverviewPolyline.Points,
		}
		if len(route.Legs) > 0 {
			leg := route.Legs[0]
			summary.DistanceMeters = leg.Distance.Value
			summary.DurationSeconds = leg.Duration.Value
			summary.StartAddress = leg.StartAddress
			summary.EndAddress = leg.EndAddress
			summary.StartLocation = leg.StartLocation
			summary.EndLocation = leg.EndLocation
			if leg.StartLocation != nil {
				if x, y, ok := geo.WGS84ToITM(leg.StartLocation.Lng, leg.StartLocation.Lat); ok {
					summary.StartITM = &itmPoint{X: x, Y: y}
				}
			}
			if leg.EndLocation != nil {
				if x, y, ok := geo.WGS84ToITM(leg.EndLocation.Lng, leg.EndLocation.Lat); ok {
					summary.EndITM = &itmPoint{X: x, Y: y}
				}
			}
		}
		routes = append(routes, summary)
	}

	return okResult(map[string]any{
		"ok":          true,
		"origin":      p.Origin,
		"destination": p.Destination,
		"mode":        p.Mode,
		"routes":      routes,
	})
}
