package registry

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"
)

type fakeTool struct {
	name   string
	schema string
}

func (f *fakeTool) Name() string            { return f.name }
func (f *fakeTool) Description() string     { return "a fake tool" }
func (f *fakeTool) Schema() json.RawMessage { return json.RawMessage(f.schema) }
func (f *fakeTool) Execute(_ context.Context, _ json.RawMessage) (*Result, error) {
	return &Result{Content: "ok"}, nil
}

const objectSchema = `{
	"type": "object",
	"properties": {
		"query": {"type": "string"}
	},
	"required": ["query"],
	"additionalProperties": false
}`

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	if err := r.RegisterServer(&fakeTool{name: "web_search", schema: objectSchema}); err != nil {
		t.Fatalf("RegisterServer() error = %v", err)
	}

	desc, ok := r.Lookup("web_search")
	if !ok {
		t.Fatal("Lookup() not found")
	}
	if desc.Venue != VenueServer {
		t.Errorf("venue = %q, want server", desc.Venue)
	}

	if _, ok := r.Server("web_search"); !ok {
		t.Error("Server() not found for server capability")
	}
}

func TestRegisterClientHasNoExecutable(t *testing.T) {
	r := New()
	err := r.RegisterClient(Descriptor{
		Name:        "map_call",
		Description: "run map commands",
		Schema:      json.RawMessage(objectSchema),
	})
	if err != nil {
		t.Fatalf("RegisterClient() error = %v", err)
	}

	desc, _ := r.Lookup("map_call")
	if desc.Venue != VenueClient {
		t.Errorf("venue = %q, want client", desc.Venue)
	}
	if _, ok := r.Server("map_call"); ok {
		t.Error("Server() found executable for client capability")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	if err := r.RegisterServer(&fakeTool{name: "t", schema: objectSchema}); err != nil {
		t.Fatalf("first register error = %v", err)
	}
	if err := r.RegisterServer(&fakeTool{name: "t", schema: objectSchema}); err == nil {
		t.Error("duplicate register did not error")
	}
}

func TestRegisterInvalidSchema(t *testing.T) {
	r := New()
	if err := r.RegisterServer(&fakeTool{name: "bad", schema: `{"type": 12}`}); err == nil {
		t.Error("invalid schema did not error")
	}
	if err := r.RegisterServer(&fakeTool{name: "empty", schema: ""}); err == nil {
		t.Error("empty schema did not error")
	}
}

func TestValidate(t *testing.T) {
	r := New()
	if err := r.RegisterServer(&fakeTool{name: "web_search", schema: objectSchema}); err != nil {
		t.Fatalf("RegisterServer() error = %v", err)
	}

	if err := r.Validate("web_search", json.RawMessage(`{"query":"parks in Haifa"}`)); err != nil {
		t.Errorf("Validate(valid) error = %v", err)
	}
	if err := r.Validate("web_search", json.RawMessage(`{"query":7}`)); err == nil {
		t.Error("Validate(wrong type) did not error")
	}
	if err := r.Validate("web_search", json.RawMessage(`{}`)); err == nil {
		t.Error("Validate(missing required) did not error")
	}
	if err := r.Validate("web_search", json.RawMessage(`not json`)); err == nil {
		t.Error("Validate(malformed) did not error")
	}
	if err := r.Validate("ghost", json.RawMessage(`{}`)); err == nil {
		t.Error("Validate(unknown capability) did not error")
	}
}

func TestDescriptorsOrder(t *testing.T) {
	r := New()
	names := []string{"c", "a", "b"}
	for _, n := range names {
		if err := r.RegisterServer(&fakeTool{name: n, schema: objectSchema}); err != nil {
			t.Fatalf("RegisterServer(%s) error = %v", n, err)
		}
	}
	descs := r.Descriptors()
	for i, d := range descs {
		if d.Name != names[i] {
			t.Errorf("descriptor[%d] = %q, want %q (registration order)", i, d.Name, names[i])
		}
	}
}

func TestRenderUsage(t *testing.T) {
	r := New()
	r.RegisterServer(&fakeTool{name: "web_search", schema: objectSchema})
	out := r.RenderUsage()
	if !strings.Contains(out, "web_search") || !strings.Contains(out, "server") {
		t.Errorf("RenderUsage() = %q", out)
	}

	empty := New()
	if empty.RenderUsage() != "" {
		t.Error("RenderUsage() on empty registry should be empty")
	}
}

func TestRenderUsageTruncatesOnRuneBoundary(t *testing.T) {
	r := New()
	if err := r.RegisterClient(Descriptor{
		Name:        "map_call",
		Description: strings.Repeat("שכבת חלקות ", 30),
		Schema:      json.RawMessage(objectSchema),
	}); err != nil {
		t.Fatalf("RegisterClient() error = %v", err)
	}

	out := r.RenderUsage()
	if !utf8.ValidString(out) {
		t.Errorf("RenderUsage() split a multi-byte rune: %q", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("RenderUsage() did not truncate: %d bytes", len(out))
	}
}
