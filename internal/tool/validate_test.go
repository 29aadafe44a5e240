package tool

import (
	"context"
	"encoding/json"
	"testing"
)

func specWithMinLength() Spec {
	return Spec{
		Name: "note.add",
		Parameters: &Schema{
			Type: "object",
			Properties: map[string]*Schema{
				"text":     {Type: "string", MinLength: 8},
				"priority": {Type: "string"},
			},
			Required: []string{"text"},
		},
	}
}

func TestValidateInput(t *testing.T) {
	cases := []struct {
		name  string
		input string
		ok    bool
	}{
		{"valid", `{"text":"long enough"}`, true},
		{"valid with optional", `{"text":"long enough","priority":"high"}`, true},
		{"missing required", `{"priority":"high"}`, false},
		{"too short", `{"text":"oops"}`, false},
		{"multibyte counted in runes not bytes", `{"text":"héllø w"}`, false},
		{"multibyte at the limit", `{"text":"héllø wö"}`, true},
		{"unknown field", `{"text":"long enough","color":"red"}`, false},
		{"wrong type", `{"text":42}`, false},
		{"empty input missing required", ``, false},
	}
	spec := specWithMinLength()
	for _, tc := range cases {
		err := ValidateInput(spec, json.RawMessage(tc.input))
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected rejection", tc.name)
		}
	}
}

func TestValidateInput_NoSchemaAcceptsAnything(t *testing.T) {
	if err := ValidateInput(Spec{Name: "free"}, json.RawMessage(`{"whatever":true}`)); err != nil {
		t.Fatalf("schemaless tools accept any input: %v", err)
	}
}

type staticTool struct {
	name string
	out  string
}

func (s staticTool) Spec() Spec { return Spec{Name: s.name} }
func (s staticTool) Call(context.Context, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(s.out), nil
}

type hookedTool struct {
	spec   Spec
	err    error
	events []string
}

func (h *hookedTool) Spec() Spec { return h.spec }
func (h *hookedTool) Call(context.Context, json.RawMessage) (json.RawMessage, error) {
	if h.err != nil {
		return nil, h.err
	}
	return json.RawMessage(`{"ok":true}`), nil
}
func (h *hookedTool) OnStart(context.Context, json.RawMessage) { h.events = append(h.events, "start") }
func (h *hookedTool) OnComplete(context.Context, json.RawMessage, json.RawMessage) {
	h.events = append(h.events, "complete")
}
func (h *hookedTool) OnError(context.Context, json.RawMessage, error) {
	h.events = append(h.events, "error")
}

func TestRegistry_CallFiresLifecycleHooks(t *testing.T) {
	ht := &hookedTool{spec: specWithMinLength()}
	r := NewRegistry(ht)

	if _, err := r.Call(context.Background(), "note.add", json.RawMessage(`{"text":"long enough"}`)); err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if len(ht.events) != 2 || ht.events[0] != "start" || ht.events[1] != "complete" {
		t.Fatalf("expected start then complete, got %v", ht.events)
	}

	// Validation failure fires OnError and never reaches Call.
	ht.events = nil
	if _, err := r.Call(context.Background(), "note.add", json.RawMessage(`{"text":"tiny"}`)); err == nil {
		t.Fatalf("expected validation rejection")
	}
	if len(ht.events) != 1 || ht.events[0] != "error" {
		t.Fatalf("expected only an error hook, got %v", ht.events)
	}

	// Execution failure fires OnStart then OnError, never OnComplete.
	ht.events = nil
	ht.err = context.DeadlineExceeded
	if _, err := r.Call(context.Background(), "note.add", json.RawMessage(`{"text":"long enough"}`)); err == nil {
		t.Fatalf("expected execution failure")
	}
	if len(ht.events) != 2 || ht.events[0] != "start" || ht.events[1] != "error" {
		t.Fatalf("expected start then error, got %v", ht.events)
	}
}

func TestRegistry_RegisterAndCall(t *testing.T) {
	r := NewRegistry(staticTool{name: "a", out: `"a"`}, staticTool{name: "b", out: `"b"`})
	if got := len(r.Specs()); got != 2 {
		t.Fatalf("expected 2 specs, got %d", got)
	}
	out, err := r.Call(context.Background(), "b", nil)
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if string(out) != `"b"` {
		t.Fatalf("unexpected output %s", out)
	}
	if _, err := r.Call(context.Background(), "missing", nil); err == nil {
		t.Fatalf("unknown tools must error")
	}
}
