// Package layers normalizes the client-supplied map layer catalog and
// renders it as prompt context for the reasoning engine.
package layers

import (
	"fmt"
	"strings"

	"github.com/haasonsaas/mapgate/pkg/models"
)

// Catalog caps keep a hostile or buggy client from inflating the prompt.
const (
	MaxLayers         = 50
	MaxFieldsPerLayer = 50
)

// Normalize converts an untyped catalog payload into a bounded, typed
// layer list. The payload is whatever the client posted: a list of
// layer names, a list of objects with loosely named keys, or a mix.
// Unusable entries are skipped rather than rejected.
func Normalize(input any) []models.Layer {
	items, ok := input.([]any)
	if !ok {
		return nil
	}

	var out []models.Layer
	for _, item := range items {
		if len(out) >= MaxLayers {
			break
		}
		layer, ok := normalizeLayer(item)
		if !ok {
			continue
		}
		out = append(out, layer)
	}
	return out
}

func normalizeLayer(item any) (models.Layer, bool) {
	switch v := item.(type) {
	case string:
		name := strings.TrimSpace(v)
		if name == "" {
			return models.Layer{}, false
		}
		return models.Layer{ID: name, Label: name}, true
	case map[string]any:
		layer := models.Layer{
			ID:          firstString(v, "id", "name", "layerName"),
			Label:       firstString(v, "label", "title", "displayName"),
			Description: firstString(v, "description", "desc"),
			GroupID:     firstString(v, "group_id", "groupId", "group"),
		}
		if layer.ID == "" && layer.Label == "" {
			return models.Layer{}, false
		}
		if layer.Label == "" {
			layer.Label = layer.ID
		}
		if layer.ID == "" {
			layer.ID = layer.Label
		}
		layer.Fields = normalizeFields(v)
		layer.ZoomCenter = normalizeZoomCenter(v)
		return layer, true
	default:
		return models.Layer{}, false
	}
}

func normalizeFields(layer map[string]any) []models.LayerField {
	raw, ok := layer["fields"].([]any)
	if !ok {
		raw, ok = layer["variables"].([]any)
	}
	if !ok {
		return nil
	}

	var fields []models.LayerField
	for _, item := range raw {
		if len(fields) >= MaxFieldsPerLayer {
			break
		}
		switch f := item.(type) {
		case string:
			name := strings.TrimSpace(f)
			if name == "" {
				continue
			}
			fields = append(fields, models.LayerField{Name: name})
		case map[string]any:
			field := models.LayerField{
				Name:        firstString(f, "name", "id", "fieldName"),
				Label:       firstString(f, "label", "title"),
				Description: firstString(f, "description", "desc"),
				Type:        models.LayerFieldType(firstString(f, "type")),
			}
			if field.Name == "" {
				continue
			}
			if opts, ok := f["options"].([]any); ok {
				for _, o := range opts {
					if s, ok := o.(string); ok && s != "" {
						field.Options = append(field.Options, s)
					}
				}
			}
			fields = append(fields, field)
		}
	}
	return fields
}

func normalizeZoomCenter(layer map[string]any) *models.ZoomCenter {
	raw, ok := layer["zoom_center"].(map[string]any)
	if !ok {
		raw, ok = layer["zoomCenter"].(map[string]any)
	}
	if !ok {
		return nil
	}
	x, xok := asFloat(raw["x"])
	y, yok := asFloat(raw["y"])
	if !xok || !yok {
		return nil
	}
	zc := &models.ZoomCenter{X: x, Y: y, Level: 10}
	if lvl, ok := asFloat(raw["level"]); ok {
		zc.Level = int(lvl)
	}
	return zc
}

// RenderPrompt renders the catalog as a compact text block suitable for
// inclusion in the system prompt. Returns "" when the catalog is empty.
func RenderPrompt(catalog []models.Layer) string {
	if len(catalog) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Available map layers:\n")
	for _, layer := range catalog {
		b.WriteString("- ")
		b.WriteString(layer.Label)
		if layer.ID != "" && layer.ID != layer.Label {
			fmt.Fprintf(&b, " (id: %s)", layer.ID)
		}
		if layer.Description != "" {
			b.WriteString(": ")
			b.WriteString(layer.Description)
		}
		b.WriteString("\n")
		for _, f := range layer.Fields {
			b.WriteString("  - field ")
			b.WriteString(f.Name)
			if f.Label != "" && f.Label != f.Name {
				fmt.Fprintf(&b, " (%s)", f.Label)
			}
			if f.Type != "" {
				fmt.Fprintf(&b, " [%s]", f.Type)
			}
			if len(f.Options) > 0 {
				fmt.Fprintf(&b, " options: %s", strings.Join(f.Options, ", "))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
