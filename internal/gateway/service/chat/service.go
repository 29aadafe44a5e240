package chatservice

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"appforge/internal/chat"
	"appforge/internal/pipeline"
)

// TranscriptStore is the durable side of the conversation. Append must be
// atomic per call so a turn's user/assistant pair is never half persisted.
type TranscriptStore interface {
	Load(chatID string) ([]chat.Entry, error)
	Append(chatID string, entries []chat.Entry) error
}

// Event is one real-time notification fanned out to chat subscribers.
type Event struct {
	ChatID         string          `json:"chatId"`
	Chunk          string          `json:"chunk,omitempty"`
	ConversationID string          `json:"conversationId"`
	Streaming      bool            `json:"streaming"`
	Tool           *chat.ToolEvent `json:"tool,omitempty"`
	// Final marks the end of a turn and carries the committed response.
	Final *chat.Response `json:"final,omitempty"`
}

// Service runs conversational turns against the transcript store and
// bridges pipeline milestones into the same transcript.
type Service struct {
	processor *chat.Processor
	store     TranscriptStore
	queue     pipeline.RequestQueue
	bridge    *chat.UpdateBridge
	summary   func(ctx context.Context, chatID string) string

	mu   sync.Mutex
	subs map[string]map[int]chan Event
	next int
}

type Options struct {
	Processor *chat.Processor
	Store     TranscriptStore
	Queue     pipeline.RequestQueue
	Bridge    *chat.UpdateBridge
	// Summary supplies the per-chat project context merged into the system
	// preamble. Optional.
	Summary func(ctx context.Context, chatID string) string
}

func New(opts Options) (*Service, error) {
	if opts.Processor == nil {
		return nil, fmt.Errorf("chatservice: processor is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("chatservice: transcript store is required")
	}
	return &Service{
		processor: opts.Processor,
		store:     opts.Store,
		queue:     opts.Queue,
		bridge:    opts.Bridge,
		summary:   opts.Summary,
		subs:      make(map[string]map[int]chan Event),
	}, nil
}

// Send runs one turn for chatID. The returned output is already persisted;
// fatal engine errors (rate limit, policy) propagate with nothing written.
func (s *Service) Send(ctx context.Context, chatID, userMessage string) (*chat.TurnOutput, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("chatservice: chat_id is required")
	}
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return nil, fmt.Errorf("chatservice: message is required")
	}

	past, err := s.store.Load(chatID)
	if err != nil {
		return nil, fmt.Errorf("chatservice: load transcript: %w", err)
	}

	var projectSummary string
	if s.summary != nil {
		projectSummary = s.summary(ctx, chatID)
	}

	out, err := s.processor.ProcessTurn(ctx, chat.TurnInput{
		UserMessage:    userMessage,
		PastMessages:   past,
		ProjectSummary: projectSummary,
		OnEvent: func(chunk, conversationID string, streaming bool, toolEvent *chat.ToolEvent) {
			s.publish(chatID, Event{
				ChatID:         chatID,
				Chunk:          chunk,
				ConversationID: conversationID,
				Streaming:      streaming,
				Tool:           toolEvent,
			})
		},
	})
	if err != nil {
		return nil, err
	}

	// Persist only the two new entries; Load returned everything before them.
	added := out.Messages[len(past):]
	if err := s.store.Append(chatID, added); err != nil {
		return nil, fmt.Errorf("chatservice: persist turn: %w", err)
	}

	if s.queue != nil && strings.TrimSpace(out.Response.EnhancedUserRequest) != "" {
		if err := s.queue.Enqueue(ctx, out.Response.EnhancedUserRequest); err != nil {
			log.Printf("chatservice: enqueue request for %s: %v", chatID, err)
		}
	}

	s.publish(chatID, Event{
		ChatID:         chatID,
		ConversationID: added[len(added)-1].ConversationID,
		Final:          &out.Response,
	})
	return out, nil
}

// Transcript returns the persisted conversation for chatID.
func (s *Service) Transcript(chatID string) ([]chat.Entry, error) {
	return s.store.Load(strings.TrimSpace(chatID))
}

// WatchPipeline drains the milestone feed until ctx is done, compacting
// each event into its chat's transcript.
func (s *Service) WatchPipeline(ctx context.Context, feed *pipeline.Feed) {
	if feed == nil {
		return
	}
	events, cancel := feed.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if strings.TrimSpace(ev.ChatID) == "" {
				continue
			}
			s.ApplyPipelineEvent(ctx, ev.ChatID, ev)
		}
	}
}

// ApplyPipelineEvent compacts one milestone event into the transcript.
// Non-milestone kinds are ignored; failures are logged, never returned.
func (s *Service) ApplyPipelineEvent(ctx context.Context, chatID string, ev pipeline.Event) {
	if !chat.IsProjectUpdateType(ev.Kind) {
		return
	}
	entries := s.bridge.ProcessProjectUpdates(ctx, ev.Kind, ev.Payload)
	if len(entries) == 0 {
		return
	}
	if err := s.store.Append(chatID, entries); err != nil {
		log.Printf("chatservice: persist %s update for %s: %v", ev.Kind, chatID, err)
		return
	}
	for _, e := range entries {
		s.publish(chatID, Event{
			ChatID:         chatID,
			Chunk:          e.Content,
			ConversationID: e.ConversationID,
		})
	}
}

// Subscribe registers for a chat's real-time events; cancel releases it.
func (s *Service) Subscribe(chatID string) (<-chan Event, func()) {
	chatID = strings.TrimSpace(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[chatID] == nil {
		s.subs[chatID] = make(map[int]chan Event)
	}
	id := s.next
	s.next++
	ch := make(chan Event, 64)
	s.subs[chatID][id] = ch
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if m, ok := s.subs[chatID]; ok {
			if _, ok := m[id]; ok {
				delete(m, id)
				close(ch)
			}
			if len(m) == 0 {
				delete(s.subs, chatID)
			}
		}
	}
	return ch, cancel
}

// publish never blocks a turn on a slow subscriber: the oldest buffered
// event is dropped instead.
func (s *Service) publish(chatID string, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[chatID] {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
