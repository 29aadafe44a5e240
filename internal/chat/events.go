package chat

import "encoding/json"

// ToolStatus is the lifecycle phase carried by a tool notification.
type ToolStatus string

const (
	ToolStatusStart   ToolStatus = "start"
	ToolStatusSuccess ToolStatus = "success"
	ToolStatusError   ToolStatus = "error"
)

// ToolEvent is an out-of-band tool lifecycle notification.
type ToolEvent struct {
	Name   string          `json:"name"`
	Status ToolStatus      `json:"status"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// EventSink receives real-time turn progress. Streaming deltas arrive with
// isStreaming=true and a nil toolEvent; tool lifecycle notifications arrive
// with isStreaming=false, empty chunk text and a populated toolEvent. Both
// carry the same per-turn conversation identifier.
type EventSink func(chunk, conversationID string, isStreaming bool, toolEvent *ToolEvent)
