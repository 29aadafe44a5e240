package chat

import (
	"context"
	"encoding/json"

	"appforge/internal/tool"
)

// LifecycleOptions tunes what the wrapper reports.
type LifecycleOptions struct {
	// EmitErrors fires a status=error notification when the wrapped tool's
	// Call fails. Off by default: a failing tool usually drags the whole
	// turn into the fallback path, and the fallback already masks the
	// failure from the user.
	EmitErrors bool
}

// WithLifecycle decorates a tool so that every invocation is reported to
// the turn's event sink: status=start with the call arguments before
// execution, status=success after. Execution semantics are untouched.
// Notifications carry empty chunk text; they are not textual content.
func WithLifecycle(t tool.Tool, sink EventSink, conversationID string, opts ...LifecycleOptions) tool.Tool {
	if t == nil {
		return nil
	}
	var o LifecycleOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	return &lifecycleTool{base: t, sink: sink, convID: conversationID, opts: o}
}

type lifecycleTool struct {
	base   tool.Tool
	sink   EventSink
	convID string
	opts   LifecycleOptions
}

func (l *lifecycleTool) Spec() tool.Spec { return l.base.Spec() }

func (l *lifecycleTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	return l.base.Call(ctx, input)
}

func (l *lifecycleTool) OnStart(ctx context.Context, input json.RawMessage) {
	l.emit(ToolStatusStart, input)
	if h, ok := l.base.(tool.Hooks); ok {
		h.OnStart(ctx, input)
	}
}

func (l *lifecycleTool) OnComplete(ctx context.Context, input, output json.RawMessage) {
	l.emit(ToolStatusSuccess, input)
	if h, ok := l.base.(tool.Hooks); ok {
		h.OnComplete(ctx, input, output)
	}
}

func (l *lifecycleTool) OnError(ctx context.Context, input json.RawMessage, err error) {
	if l.opts.EmitErrors {
		l.emit(ToolStatusError, input)
	}
	if h, ok := l.base.(tool.ErrorHooks); ok {
		h.OnError(ctx, input, err)
	}
}

func (l *lifecycleTool) emit(status ToolStatus, input json.RawMessage) {
	if l.sink == nil {
		return
	}
	l.sink("", l.convID, false, &ToolEvent{
		Name:   l.base.Spec().Name,
		Status: status,
		Args:   input,
	})
}
