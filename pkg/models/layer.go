package models

// LayerFieldType enumerates the value kinds a layer field can hold.
type LayerFieldType string

const (
	LayerFieldText   LayerFieldType = "text"
	LayerFieldNumber LayerFieldType = "number"
	LayerFieldEnum   LayerFieldType = "enum"
	LayerFieldDate   LayerFieldType = "date"
)

// LayerField describes one queryable attribute of a map layer.
type LayerField struct {
	Name        string         `json:"name"`
	Label       string         `json:"label,omitempty"`
	Description string         `json:"description,omitempty"`
	Type        LayerFieldType `json:"type,omitempty"`
	Options     []string       `json:"options,omitempty"`
}

// ZoomCenter is a layer's preferred viewport in projected coordinates.
type ZoomCenter struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Level int     `json:"level"`
}

// Layer is descriptive metadata about one map layer, supplied by the
// client at bootstrap. It is advisory context for the reasoning engine,
// not an authoritative capability definition.
type Layer struct {
	ID          string       `json:"id,omitempty"`
	Label       string       `json:"label,omitempty"`
	Description string       `json:"description,omitempty"`
	GroupID     string       `json:"group_id,omitempty"`
	Fields      []LayerField `json:"fields,omitempty"`
	ZoomCenter  *ZoomCenter  `json:"zoom_center,omitempty"`
}
