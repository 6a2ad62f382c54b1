// Package registry holds the capability catalog: which tools the
// reasoning engine may call, where each one executes, and the JSON
// schema its arguments must satisfy.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Venue tells the dispatcher where a capability runs.
type Venue string

const (
	// VenueServer capabilities execute inside the request; their
	// results feed straight back into the reasoning loop.
	VenueServer Venue = "server"

	// VenueClient capabilities are deferred: their calls are returned
	// to the browser and the round ends.
	VenueClient Venue = "client"
)

// Descriptor is the engine-facing definition of one capability.
type Descriptor struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Venue       Venue
}

// Tool is a server-immediate capability implementation.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*Result, error)
}

// Result is the output of a server-immediate execution.
type Result struct {
	Content string
	IsError bool
}

type entry struct {
	desc     Descriptor
	tool     Tool // nil for client-deferred capabilities
	compiled *jsonschema.Schema
}

// Registry is the capability catalog. Registration order is preserved
// so the engine always sees a stable tool list.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// RegisterServer adds a server-immediate capability.
func (r *Registry) RegisterServer(tool Tool) error {
	return r.register(Descriptor{
		Name:        tool.Name(),
		Description: tool.Description(),
		Schema:      tool.Schema(),
		Venue:       VenueServer,
	}, tool)
}

// RegisterClient adds a client-deferred capability by descriptor only;
// execution happens in the browser.
func (r *Registry) RegisterClient(desc Descriptor) error {
	desc.Venue = VenueClient
	return r.register(desc, nil)
}

func (r *Registry) register(desc Descriptor, tool Tool) error {
	if desc.Name == "" {
		return fmt.Errorf("registry: capability name is empty")
	}
	compiled, err := compileSchema(desc.Name, desc.Schema)
	if err != nil {
		return fmt.Errorf("registry: capability %q schema: %w", desc.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[desc.Name]; exists {
		return fmt.Errorf("registry: capability %q already registered", desc.Name)
	}
	r.entries[desc.Name] = &entry{desc: desc, tool: tool, compiled: compiled}
	r.order = append(r.order, desc.Name)
	return nil
}

func compileSchema(name string, schema json.RawMessage) (*jsonschema.Schema, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("schema is empty")
	}
	return jsonschema.CompileString(name+".schema.json", string(schema))
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

// Server returns the executable tool for a server-immediate capability.
func (r *Registry) Server(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok || e.tool == nil {
		return nil, false
	}
	return e.tool, true
}

// Validate checks params against the capability's schema.
func (r *Registry) Validate(name string, params json.RawMessage) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("registry: unknown capability %q", name)
	}

	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(params))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("registry: capability %q arguments are not valid JSON: %w", name, err)
	}
	if err := e.compiled.Validate(v); err != nil {
		return fmt.Errorf("registry: capability %q arguments rejected: %w", name, err)
	}
	return nil
}

// Descriptors returns all capabilities in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].desc)
	}
	return out
}

// RenderUsage renders a short capability list for prompt context,
// truncating descriptions to keep the block bounded.
func (r *Registry) RenderUsage() string {
	const maxDescription = 200

	descs := r.Descriptors()
	if len(descs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, d := range descs {
		desc := d.Description
		// Rune-wise so Hebrew descriptions are not cut mid-character.
		if runes := []rune(desc); len(runes) > maxDescription {
			desc = string(runes[:maxDescription]) + "..."
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", d.Name, d.Venue, desc)
	}
	return b.String()
}
