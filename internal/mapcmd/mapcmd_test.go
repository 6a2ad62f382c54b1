package mapcmd

import (
	"encoding/json"
	"testing"

	"github.com/haasonsaas/mapgate/internal/registry"
)

func TestDescriptorRegisters(t *testing.T) {
	r := registry.New()
	if err := r.RegisterClient(Descriptor()); err != nil {
		t.Fatalf("RegisterClient() error = %v", err)
	}
	desc, ok := r.Lookup(CapabilityName)
	if !ok {
		t.Fatal("capability not found after registration")
	}
	if desc.Venue != registry.VenueClient {
		t.Errorf("venue = %q, want client", desc.Venue)
	}
}

func TestDescriptorSchemaValidation(t *testing.T) {
	r := registry.New()
	if err := r.RegisterClient(Descriptor()); err != nil {
		t.Fatalf("RegisterClient() error = %v", err)
	}

	valid := `{"commands":[{"fn":"zoomIn","args":{}}],"explanation":"zoomed in"}`
	if err := r.Validate(CapabilityName, json.RawMessage(valid)); err != nil {
		t.Errorf("Validate(valid) error = %v", err)
	}

	for name, payload := range map[string]string{
		"no commands":    `{"explanation":"nothing"}`,
		"empty commands": `{"commands":[]}`,
		"missing args":   `{"commands":[{"fn":"zoomIn"}]}`,
	} {
		if err := r.Validate(CapabilityName, json.RawMessage(payload)); err == nil {
			t.Errorf("Validate(%s) did not error", name)
		}
	}
}

func TestExpandCommandsKeepsObjectArgs(t *testing.T) {
	args := json.RawMessage(`{
		"commands": [
			{"fn": "zoomToXY", "args": {"x": 179000, "y": 663000, "level": 8}}
		],
		"explanation": "centered the map"
	}`)

	cmds, note, err := ExpandCommands("call-1", args)
	if err != nil {
		t.Fatalf("ExpandCommands() error = %v", err)
	}
	if note != "centered the map" {
		t.Errorf("explanation = %q", note)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	if cmds[0].Fn != "zoomToXY" || cmds[0].ToolCallID != "call-1" {
		t.Errorf("command = %+v", cmds[0])
	}

	var decoded map[string]any
	if err := json.Unmarshal(cmds[0].Args, &decoded); err != nil {
		t.Fatalf("decode args: %v", err)
	}
	if _, hasUnpack := decoded["_UNPACK_ARGS_"]; hasUnpack {
		t.Error("object-style function was rewritten to positional args")
	}
	if decoded["x"] != float64(179000) {
		t.Errorf("args = %v", decoded)
	}
}

func TestExpandCommandsPositional(t *testing.T) {
	args := json.RawMessage(`{
		"commands": [
			{"fn": "setCenter", "args": {"x": 1, "y": 2}},
			{"fn": "setBackground", "args": {"backgroundId": 9}},
			{"fn": "zoomIn", "args": {}}
		]
	}`)

	cmds, _, err := ExpandCommands("call-2", args)
	if err != nil {
		t.Fatalf("ExpandCommands() error = %v", err)
	}
	if len(cmds) != 3 {
		t.Fatalf("got %d commands, want 3", len(cmds))
	}

	unpack := func(i int) []any {
		t.Helper()
		var decoded map[string][]any
		if err := json.Unmarshal(cmds[i].Args, &decoded); err != nil {
			t.Fatalf("decode args[%d]: %v", i, err)
		}
		arr, ok := decoded["_UNPACK_ARGS_"]
		if !ok {
			t.Fatalf("args[%d] missing unpack array: %s", i, cmds[i].Args)
		}
		return arr
	}

	if got := unpack(0); len(got) != 2 || got[0] != float64(1) || got[1] != float64(2) {
		t.Errorf("setCenter unpack = %v", got)
	}
	if got := unpack(1); len(got) != 1 || got[0] != float64(9) {
		t.Errorf("setBackground unpack = %v", got)
	}
	if got := unpack(2); len(got) != 0 {
		t.Errorf("zoomIn unpack = %v, want empty", got)
	}
}

func TestExpandCommandsTrimsTrailingNulls(t *testing.T) {
	// setVisibleLayers with only layersOn: the absent layersOff must
	// not produce a trailing null positional argument.
	args := json.RawMessage(`{
		"commands": [{"fn": "setVisibleLayers", "args": {"layersOn": ["roads"]}}]
	}`)
	cmds, _, err := ExpandCommands("c", args)
	if err != nil {
		t.Fatalf("ExpandCommands() error = %v", err)
	}

	var decoded map[string][]any
	if err := json.Unmarshal(cmds[0].Args, &decoded); err != nil {
		t.Fatalf("decode args: %v", err)
	}
	arr := decoded["_UNPACK_ARGS_"]
	if len(arr) != 1 {
		t.Errorf("unpack = %v, want single element", arr)
	}
}

func TestExpandCommandsPreNormalizedUnpack(t *testing.T) {
	args := json.RawMessage(`{
		"commands": [{"fn": "identifyByXY", "args": {"_UNPACK_ARGS_": [5, 6, null, null]}}]
	}`)
	cmds, _, err := ExpandCommands("c", args)
	if err != nil {
		t.Fatalf("ExpandCommands() error = %v", err)
	}

	var decoded map[string][]any
	if err := json.Unmarshal(cmds[0].Args, &decoded); err != nil {
		t.Fatalf("decode args: %v", err)
	}
	arr := decoded["_UNPACK_ARGS_"]
	if len(arr) != 2 || arr[0] != float64(5) || arr[1] != float64(6) {
		t.Errorf("unpack = %v, want trailing nulls trimmed", arr)
	}
}

func TestExpandCommandsSkipsNamelessAndRejectsEmpty(t *testing.T) {
	args := json.RawMessage(`{
		"commands": [
			{"fn": "", "args": {}},
			{"fn": "zoomOut", "args": {}}
		]
	}`)
	cmds, _, err := ExpandCommands("c", args)
	if err != nil {
		t.Fatalf("ExpandCommands() error = %v", err)
	}
	if len(cmds) != 1 || cmds[0].Fn != "zoomOut" {
		t.Errorf("commands = %+v", cmds)
	}

	if _, _, err := ExpandCommands("c", json.RawMessage(`{"commands":[{"fn":"","args":{}}]}`)); err == nil {
		t.Error("all-nameless commands did not error")
	}
	if _, _, err := ExpandCommands("c", json.RawMessage(`not json`)); err == nil {
		t.Error("malformed arguments did not error")
	}
}
