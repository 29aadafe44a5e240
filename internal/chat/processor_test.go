package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"appforge/internal/chat"
	"appforge/internal/llm"
)

func TestProcessTurn_TranscriptAdvancesByTwo(t *testing.T) {
	past := []chat.Entry{
		chat.NewEntry(chat.RoleUser, "hello", "c1"),
		chat.NewEntry(chat.RoleAssistant, "hi there", "c2"),
	}
	p := &chat.Processor{Engine: &llm.FakeEngine{Response: "sure thing"}}

	out, err := p.ProcessTurn(context.Background(), chat.TurnInput{
		UserMessage:  "what can you do?",
		PastMessages: past,
	})
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	if len(out.Messages) != len(past)+2 {
		t.Fatalf("expected %d messages, got %d", len(past)+2, len(out.Messages))
	}
	userEntry := out.Messages[len(past)]
	assistantEntry := out.Messages[len(past)+1]
	if userEntry.Role != chat.RoleUser || userEntry.Content != "what can you do?" {
		t.Fatalf("unexpected user entry: %+v", userEntry)
	}
	if assistantEntry.Role != chat.RoleAssistant || assistantEntry.Content != "sure thing" {
		t.Fatalf("unexpected assistant entry: %+v", assistantEntry)
	}
	if userEntry.ConversationID == "" || assistantEntry.ConversationID == "" {
		t.Fatalf("conversation ids must be assigned")
	}
	if userEntry.ConversationID == assistantEntry.ConversationID {
		t.Fatalf("assistant entry must get a fresh conversation id")
	}
}

func TestProcessTurn_DoesNotMutatePastMessages(t *testing.T) {
	past := []chat.Entry{chat.NewEntry(chat.RoleUser, "first", "c1")}
	snapshot := past[0]
	p := &chat.Processor{Engine: &llm.FakeEngine{Response: "ok"}}

	if _, err := p.ProcessTurn(context.Background(), chat.TurnInput{
		UserMessage:  "second",
		PastMessages: past,
	}); err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	if past[0] != snapshot || len(past) != 1 {
		t.Fatalf("past messages were mutated: %+v", past)
	}
}

func TestProcessTurn_StreamedChunksEqualResponse(t *testing.T) {
	response := strings.Repeat("streaming consistency. ", 12)
	p := &chat.Processor{Engine: &llm.FakeEngine{Response: response}, ChunkSize: 64}

	var streamed strings.Builder
	var turnID string
	out, err := p.ProcessTurn(context.Background(), chat.TurnInput{
		UserMessage: "tell me a lot",
		OnEvent: func(chunk, conversationID string, isStreaming bool, toolEvent *chat.ToolEvent) {
			if !isStreaming {
				return
			}
			if toolEvent != nil {
				t.Fatalf("streaming event carried a tool payload")
			}
			if turnID == "" {
				turnID = conversationID
			} else if conversationID != turnID {
				t.Fatalf("streaming events must share the turn's conversation id")
			}
			streamed.WriteString(chunk)
		},
	})
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	if streamed.String() != out.Response.UserResponse {
		t.Fatalf("streamed text diverged from final response")
	}
	if out.Messages[len(out.Messages)-2].ConversationID != turnID {
		t.Fatalf("user entry should carry the streaming conversation id")
	}
}

func TestProcessTurn_NoQueueInvocationMeansEmptyRequest(t *testing.T) {
	p := &chat.Processor{Engine: &llm.FakeEngine{Response: "just chatting"}}
	out, err := p.ProcessTurn(context.Background(), chat.TurnInput{UserMessage: "hi"})
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	if out.Response.EnhancedUserRequest != "" {
		t.Fatalf("expected empty enhanced request, got %q", out.Response.EnhancedUserRequest)
	}
}

func TestProcessTurn_QueueRequestCaptured(t *testing.T) {
	p := &chat.Processor{Engine: &llm.FakeEngine{
		Response: "Queued it for you.",
		Calls: []llm.FakeCall{
			{Name: chat.QueueRequestToolName, Args: json.RawMessage(`{"modificationRequest":"Add a dark-mode toggle"}`)},
		},
	}}
	out, err := p.ProcessTurn(context.Background(), chat.TurnInput{UserMessage: "dark mode please"})
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	if out.Response.EnhancedUserRequest != "Add a dark-mode toggle" {
		t.Fatalf("unexpected enhanced request: %q", out.Response.EnhancedUserRequest)
	}
}

func TestProcessTurn_QueueRequestLastWriteWins(t *testing.T) {
	p := &chat.Processor{Engine: &llm.FakeEngine{
		Response: "Both noted; keeping the latest.",
		Calls: []llm.FakeCall{
			{Name: chat.QueueRequestToolName, Args: json.RawMessage(`{"modificationRequest":"Add A feature"}`)},
			{Name: chat.QueueRequestToolName, Args: json.RawMessage(`{"modificationRequest":"Add B feature"}`)},
		},
	}}
	out, err := p.ProcessTurn(context.Background(), chat.TurnInput{UserMessage: "do both"})
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	if out.Response.EnhancedUserRequest != "Add B feature" {
		t.Fatalf("expected last write to win, got %q", out.Response.EnhancedUserRequest)
	}
}

func TestProcessTurn_ShortRequestRejectedBeforeExecute(t *testing.T) {
	p := &chat.Processor{Engine: &llm.FakeEngine{
		Response: "should not matter",
		Calls: []llm.FakeCall{
			{Name: chat.QueueRequestToolName, Args: json.RawMessage(`{"modificationRequest":"tiny"}`)},
		},
	}}
	out, err := p.ProcessTurn(context.Background(), chat.TurnInput{UserMessage: "do a thing"})
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	// Schema rejection fails the engine call; the turn falls back and the
	// undersized request never reaches the tool.
	if out.Response.EnhancedUserRequest != "User request: do a thing" {
		t.Fatalf("expected fallback request, got %q", out.Response.EnhancedUserRequest)
	}
}

func TestProcessTurn_FatalErrorsPropagate(t *testing.T) {
	for _, fatal := range []error{chat.ErrRateLimited, chat.ErrPolicyViolation} {
		p := &chat.Processor{Engine: &llm.FakeEngine{Err: fatal}}
		out, err := p.ProcessTurn(context.Background(), chat.TurnInput{UserMessage: "hi"})
		if !errors.Is(err, fatal) {
			t.Fatalf("expected %v to propagate, got %v", fatal, err)
		}
		if out != nil {
			t.Fatalf("fatal errors must not return a transcript")
		}
	}
}

func TestProcessTurn_NonFatalErrorFallsBack(t *testing.T) {
	past := []chat.Entry{chat.NewEntry(chat.RoleUser, "earlier", "c1")}
	p := &chat.Processor{Engine: &llm.FakeEngine{Err: errors.New("upstream hiccup")}}

	out, err := p.ProcessTurn(context.Background(), chat.TurnInput{
		UserMessage:  "add billing",
		PastMessages: past,
	})
	if err != nil {
		t.Fatalf("non-fatal errors must be recovered, got %v", err)
	}
	if out.Response.EnhancedUserRequest != "User request: add billing" {
		t.Fatalf("unexpected fallback request: %q", out.Response.EnhancedUserRequest)
	}
	if out.Response.UserResponse == "" {
		t.Fatalf("fallback response must not be empty")
	}
	if len(out.Messages) != len(past)+2 {
		t.Fatalf("fallback must still advance the transcript by two")
	}
	if out.Messages[len(past)+1].Content != out.Response.UserResponse {
		t.Fatalf("fallback assistant entry must carry the canned response")
	}
}

func TestProcessTurn_ToolEventsShareTurnConversationID(t *testing.T) {
	p := &chat.Processor{Engine: &llm.FakeEngine{
		Response: "Queued.",
		Calls: []llm.FakeCall{
			{Name: chat.QueueRequestToolName, Args: json.RawMessage(`{"modificationRequest":"Add exports"}`)},
		},
	}}

	var streamID string
	var toolEvents []*chat.ToolEvent
	var toolConvIDs []string
	_, err := p.ProcessTurn(context.Background(), chat.TurnInput{
		UserMessage: "export data",
		OnEvent: func(chunk, conversationID string, isStreaming bool, toolEvent *chat.ToolEvent) {
			if isStreaming {
				streamID = conversationID
				return
			}
			if chunk != "" {
				t.Fatalf("tool events must carry empty chunk text, got %q", chunk)
			}
			toolEvents = append(toolEvents, toolEvent)
			toolConvIDs = append(toolConvIDs, conversationID)
		},
	})
	if err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}
	if len(toolEvents) != 2 {
		t.Fatalf("expected start+success events, got %d", len(toolEvents))
	}
	if toolEvents[0].Status != chat.ToolStatusStart || toolEvents[1].Status != chat.ToolStatusSuccess {
		t.Fatalf("unexpected statuses: %v then %v", toolEvents[0].Status, toolEvents[1].Status)
	}
	for _, id := range toolConvIDs {
		if id != streamID {
			t.Fatalf("tool events must share the streaming conversation id")
		}
	}
}
