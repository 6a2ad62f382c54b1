// Package mapcmd defines the client-deferred map capability: the
// reasoning engine plans map API calls, and this package validates and
// normalizes them into commands the browser executes.
package mapcmd

import (
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/mapgate/internal/registry"
	"github.com/haasonsaas/mapgate/pkg/models"
)

// CapabilityName is the tool name presented to the reasoning engine.
const CapabilityName = "map_call"

// unpackKey marks an args object whose payload is a positional
// argument array. The browser spreads it: mapAPI[fn](...args).
const unpackKey = "_UNPACK_ARGS_"

const schema = `{
	"type": "object",
	"properties": {
		"commands": {
			"type": "array",
			"description": "Map commands (fn + args) the frontend will execute in order via mapAPI[fn](args).",
			"items": {
				"type": "object",
				"properties": {
					"fn": {
						"type": "string",
						"description": "Map API function name, e.g. 'zoomToXY', 'setVisibleLayers', 'intersectFeatures'. Use only functions from the API reference."
					},
					"args": {
						"type": "object",
						"description": "Arguments object for that function, using the named keys shown in the reference (e.g. 'x', 'y', 'level', 'layers', 'whereClause', 'returnFields').",
						"additionalProperties": true
					}
				},
				"required": ["fn", "args"]
			},
			"minItems": 1
		},
		"explanation": {
			"type": "string",
			"description": "Short natural-language explanation, in the user's language, of what changed on the map."
		}
	},
	"required": ["commands"]
}`

const description = `Plan one or more map JavaScript API calls to manipulate the map in the user's browser. You do NOT execute the map API yourself; you only return commands which the frontend will run as mapAPI[fn](args).

Usage rules:
- Use this tool whenever the user wants to change the map view, layers, filters, selections, geocode, or perform spatial operations.
- Use ONLY real function names listed in the API reference.
- If you are unsure which function or arguments to use, ask the user a short clarifying question instead of guessing.
- Use as few commands as possible to achieve the user's goal.
- When you need data back from the map (geocode, feature queries, spatial operations), specify precisely which fields you want returned; the client runs the commands and reports tool results in a later message. If relevant tool results for the same operation already exist, use them instead of calling again.

Language for explanation:
- The "explanation" field must be a SHORT sentence in the user's language (Hebrew or English) describing the visible effect on the map, never internal reasoning.

Map API quick reference:
` + APIGuide

// Descriptor returns the capability definition for registration.
func Descriptor() registry.Descriptor {
	return registry.Descriptor{
		Name:        CapabilityName,
		Description: description,
		Schema:      json.RawMessage(schema),
		Venue:       registry.VenueClient,
	}
}

// positionalSignatures lists map API functions invoked positionally
// rather than with a single options object, with their argument order.
// Their args are rewritten into an unpack array the browser spreads.
var positionalSignatures = map[string][]string{
	"identifyByXY":         {"x", "y"},
	"identifyByXYAndLayer": {"x", "y", "layers"},
	"setCenter":            {"x", "y"},
	"getZoomLevel":         {},
	"getCenter":            {},
	"setBackground":        {"backgroundId"},
	"getBackground":        {},
	"zoomIn":               {},
	"zoomOut":              {},
	"getMapTolerance":      {},
	"gpsOn":                {},
	"gpsOff":               {},
	"showPrint":            {},
	"closePrint":           {},
	"getXY":                {},
	"closeOpenApps":        {},
	"getGPSLocation":       {},
	"zoomToDrawing":        {},
	"draw":                 {"drawType"},
	"editDrawing":          {},
	"clearDrawing":         {},
	"clearDrawings":        {},
	"showMeasure":          {},
	"closeMeasure":         {},
	"showExportMap":        {},
	"closeExportMap":       {},
	"closeBubble":          {},
	"setVisibleLayers":     {"layersOn", "layersOff"},
	"removeHeatLayer":      {},
	"refreshLayer":         {"layerName"},
	"clearSelection":       {"layerName"},
	"identifyOnClick":      {"enabled"},
}

type callArgs struct {
	Commands    []rawCommand `json:"commands"`
	Explanation string       `json:"explanation"`
}

type rawCommand struct {
	Fn   string         `json:"fn"`
	Args map[string]any `json:"args"`
}

// ExpandCommands converts validated map_call arguments into client
// commands tagged with the originating tool call id. Entries without a
// function name are skipped.
func ExpandCommands(toolCallID string, args json.RawMessage) ([]models.ClientCommand, string, error) {
	var parsed callArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return nil, "", fmt.Errorf("mapcmd: decode arguments: %w", err)
	}

	var out []models.ClientCommand
	for _, cmd := range parsed.Commands {
		if cmd.Fn == "" {
			continue
		}
		normalized, err := json.Marshal(normalizeArgs(cmd.Fn, cmd.Args))
		if err != nil {
			return nil, "", fmt.Errorf("mapcmd: encode args for %s: %w", cmd.Fn, err)
		}
		out = append(out, models.ClientCommand{
			Fn:         cmd.Fn,
			Args:       normalized,
			ToolCallID: toolCallID,
		})
	}
	if len(out) == 0 {
		return nil, "", fmt.Errorf("mapcmd: no executable commands")
	}
	return out, parsed.Explanation, nil
}

func normalizeArgs(fn string, args map[string]any) any {
	if args == nil {
		args = map[string]any{}
	}

	// Engine already produced an unpack array: keep only it, trimmed.
	if arr, ok := args[unpackKey].([]any); ok {
		return map[string]any{unpackKey: trimTrailingNulls(arr)}
	}

	signature, ok := positionalSignatures[fn]
	if !ok {
		return args
	}

	ordered := make([]any, len(signature))
	for i, key := range signature {
		ordered[i] = args[key] // nil when absent
	}
	return map[string]any{unpackKey: trimTrailingNulls(ordered)}
}

func trimTrailingNulls(arr []any) []any {
	end := len(arr)
	for end > 0 && arr[end-1] == nil {
		end--
	}
	out := make([]any, end)
	copy(out, arr[:end])
	return out
}
