package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Schema describes a tool parameter block. It covers the subset of JSON
// schema the inference engines we target can enforce: object shape,
// required fields, and minimum string lengths.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	MinLength   int64              `json:"minLength,omitempty"`
}

// Spec documents a tool's contract (name + parameter schema).
type Spec struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Tool is a minimal in-process tool the inference engine may invoke.
type Tool interface {
	Spec() Spec
	Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// Hooks is an optional lifecycle surface. Engines fire OnStart immediately
// before Call and OnComplete immediately after a successful Call.
type Hooks interface {
	OnStart(ctx context.Context, input json.RawMessage)
	OnComplete(ctx context.Context, input, output json.RawMessage)
}

// ErrorHooks is fired when Call returns an error, if implemented.
type ErrorHooks interface {
	OnError(ctx context.Context, input json.RawMessage, err error)
}

// Registry holds tool registrations and dispatches calls.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry and registers any provided tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: map[string]Tool{}}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool by name.
func (r *Registry) Register(t Tool) {
	if r == nil || t == nil {
		return
	}
	spec := t.Spec()
	if spec.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tools == nil {
		r.tools = map[string]Tool{}
	}
	r.tools[spec.Name] = t
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	return t, ok
}

// Call validates input against the tool's schema and invokes it, firing the
// tool's lifecycle hooks: OnError on a validation or execution failure,
// otherwise OnStart immediately before Call and OnComplete after.
func (r *Registry) Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	if r == nil {
		return nil, fmt.Errorf("tool: registry is nil")
	}
	t, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("tool: unknown tool %q", name)
	}
	if err := ValidateInput(t.Spec(), input); err != nil {
		if eh, ok := t.(ErrorHooks); ok {
			eh.OnError(ctx, input, err)
		}
		return nil, err
	}
	if h, ok := t.(Hooks); ok {
		h.OnStart(ctx, input)
	}
	out, err := t.Call(ctx, input)
	if err != nil {
		if eh, ok := t.(ErrorHooks); ok {
			eh.OnError(ctx, input, err)
		}
		return nil, err
	}
	if h, ok := t.(Hooks); ok {
		h.OnComplete(ctx, input, out)
	}
	return out, nil
}

// Specs returns the current tool specs.
func (r *Registry) Specs() []Spec {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Spec, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Spec())
	}
	return out
}

// Tools returns the registered tools in no particular order.
func (r *Registry) Tools() []Tool {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}
