package llm

import (
	"context"
	"encoding/json"

	"appforge/internal/chat"
	"appforge/internal/tool"
)

// FakeCall scripts one tool invocation the fake engine performs.
type FakeCall struct {
	Name string
	Args json.RawMessage
}

// FakeEngine is a deterministic Engine for offline use and tests. It
// mirrors the hosted engine's obligations: it validates tool input against
// its schema before Call, fires lifecycle hooks around each invocation, and
// streams the response so the deltas concatenate to the returned text.
type FakeEngine struct {
	Response string
	Calls    []FakeCall
	Err      error
}

func (f *FakeEngine) Name() string { return "FakeLLM" }

func (f *FakeEngine) Chat(ctx context.Context, req chat.EngineRequest) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}

	reg := tool.NewRegistry(req.Tools...)
	for _, call := range f.Calls {
		args := map[string]any{}
		if len(call.Args) > 0 {
			if err := json.Unmarshal(call.Args, &args); err != nil {
				return "", err
			}
		}
		if _, err := dispatchToolCall(ctx, reg, call.Name, args); err != nil {
			return "", err
		}
	}

	cw := newChunkWriter(req.ChunkSize, req.OnDelta)
	cw.Write(f.Response)
	cw.Flush()
	return f.Response, nil
}
