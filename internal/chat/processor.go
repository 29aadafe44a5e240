package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"appforge/internal/tool"

	"github.com/google/uuid"
)

// DefaultChunkSize bounds the frequency of streaming callbacks. Larger
// batches delay visible output; smaller ones multiply callback overhead.
const DefaultChunkSize = 64

// fallbackResponse is the canned acknowledgment shown when a turn fails in
// a non-fatal way.
const fallbackResponse = "Got it. I've noted your request and the team is on it. " +
	"You'll see updates here as the build progresses."

// Engine is the inference collaborator: it streams textual deltas through
// OnDelta, executes tool calls itself (feeding results back into its own
// reasoning loop), and returns the final completion text. The concatenation
// of all deltas must equal the returned completion.
type Engine interface {
	Chat(ctx context.Context, req EngineRequest) (string, error)
}

// EngineRequest carries one turn's inference inputs.
type EngineRequest struct {
	System    string
	Messages  []Entry
	Tools     []tool.Tool
	OnDelta   func(chunk string)
	ChunkSize int
	// Trace is an opaque caller token for engine-side request tracing.
	Trace string
}

// TurnInput is one inbound user message plus conversation state.
type TurnInput struct {
	UserMessage    string
	PastMessages   []Entry
	ProjectSummary string
	OnEvent        EventSink
}

// Response is the structured result of a turn.
type Response struct {
	// EnhancedUserRequest is whatever the queue_request tool captured this
	// turn; empty when the tool was never invoked.
	EnhancedUserRequest string `json:"enhancedUserRequest"`
	UserResponse        string `json:"userResponse"`
}

// TurnOutput packages the response and the advanced transcript. Messages is
// always PastMessages plus exactly one user and one assistant entry, on the
// success path and the fallback path alike.
type TurnOutput struct {
	Response Response
	Messages []Entry
}

// Processor executes conversational turns.
type Processor struct {
	Engine    Engine
	ChunkSize int
	// Timeout bounds a single turn end to end, tool executions included.
	// Zero means no deadline beyond the caller's context.
	Timeout time.Duration
	// EmitToolErrors forwards tool execution failures to the event sink as
	// status=error notifications before the turn falls back.
	EmitToolErrors bool
	// WebSearch and AppInfo extend the per-turn tool set when non-nil.
	WebSearch tool.Tool
	AppInfo   tool.Tool
}

// ProcessTurn runs exactly one turn. Rate-limit and policy errors propagate
// unchanged without touching the transcript; every other failure yields the
// deterministic fallback output so the transcript still advances coherently.
func (p *Processor) ProcessTurn(ctx context.Context, in TurnInput) (*TurnOutput, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	turnID := uuid.NewString()
	userEntry := NewEntry(RoleUser, in.UserMessage, turnID)

	var queued string
	tools := p.buildTools(in.OnEvent, turnID, func(s string) { queued = s })

	var streamed strings.Builder
	onDelta := func(chunk string) {
		if chunk == "" {
			return
		}
		streamed.WriteString(chunk)
		if in.OnEvent != nil {
			in.OnEvent(chunk, turnID, true, nil)
		}
	}

	chunkSize := p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	final, err := p.Engine.Chat(ctx, EngineRequest{
		System:    buildPreamble(in.ProjectSummary),
		Messages:  appendEntries(in.PastMessages, userEntry),
		Tools:     tools,
		OnDelta:   onDelta,
		ChunkSize: chunkSize,
		Trace:     turnID,
	})
	if err != nil {
		if IsFatal(err) {
			return nil, err
		}
		log.Printf("chat: turn %s recovered: %v", turnID, err)
		return p.fallback(in, userEntry), nil
	}

	assistantEntry := NewEntry(RoleAssistant, final, uuid.NewString())
	return &TurnOutput{
		Response: Response{
			EnhancedUserRequest: queued,
			UserResponse:        final,
		},
		Messages: appendEntries(in.PastMessages, userEntry, assistantEntry),
	}, nil
}

func (p *Processor) buildTools(sink EventSink, turnID string, set func(string)) []tool.Tool {
	opts := LifecycleOptions{EmitErrors: p.EmitToolErrors}
	tools := make([]tool.Tool, 0, 3)
	if p.WebSearch != nil {
		tools = append(tools, WithLifecycle(p.WebSearch, sink, turnID, opts))
	}
	if p.AppInfo != nil {
		tools = append(tools, WithLifecycle(p.AppInfo, sink, turnID, opts))
	}
	tools = append(tools, WithLifecycle(newQueueRequestTool(set), sink, turnID, opts))
	return tools
}

func (p *Processor) fallback(in TurnInput, userEntry Entry) *TurnOutput {
	assistantEntry := NewEntry(RoleAssistant, fallbackResponse, uuid.NewString())
	return &TurnOutput{
		Response: Response{
			EnhancedUserRequest: "User request: " + in.UserMessage,
			UserResponse:        fallbackResponse,
		},
		Messages: appendEntries(in.PastMessages, userEntry, assistantEntry),
	}
}
