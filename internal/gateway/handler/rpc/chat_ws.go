package rpc

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"appforge/internal/chat"
	chatservice "appforge/internal/gateway/service/chat"

	"github.com/gorilla/websocket"
)

// ChatHandler serves the conversational websocket endpoint.
type ChatHandler struct {
	svc *chatservice.Service
}

func NewChatHandler(svc *chatservice.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

const (
	chatWSWriteWait = 10 * time.Second
	chatWSPongWait  = 60 * time.Second
	chatWSPingEvery = (chatWSPongWait * 9) / 10
)

var chatWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type chatWSInbound struct {
	Type    string `json:"type"`
	ChatID  string `json:"chatId,omitempty"`
	Message string `json:"message,omitempty"`
}

type chatWSOutbound struct {
	Type           string          `json:"type"`
	ChatID         string          `json:"chatId,omitempty"`
	Chunk          string          `json:"chunk,omitempty"`
	ConversationID string          `json:"conversationId,omitempty"`
	Streaming      bool            `json:"streaming,omitempty"`
	Tool           *chat.ToolEvent `json:"tool,omitempty"`
	Response       *chat.Response  `json:"response,omitempty"`
	Code           string          `json:"code,omitempty"`
	Message        string          `json:"message,omitempty"`
}

func (h *ChatHandler) HandleChatWS(w http.ResponseWriter, r *http.Request) {
	chatID := strings.TrimSpace(r.URL.Query().Get("chat_id"))
	if chatID == "" {
		http.Error(w, "chat_id is required", http.StatusBadRequest)
		return
	}

	conn, err := chatWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(chatWSPongWait)); err != nil {
		log.Printf("chat ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatWSPongWait))
	})

	writeCh := make(chan chatWSOutbound, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(chatWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	events, unsubscribe := h.svc.Subscribe(chatID)
	defer unsubscribe()

	pushChatWS(writeCh, chatWSOutbound{Type: "subscribed", ChatID: chatID})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				out := chatWSOutbound{
					ChatID:         ev.ChatID,
					Chunk:          ev.Chunk,
					ConversationID: ev.ConversationID,
					Streaming:      ev.Streaming,
					Tool:           ev.Tool,
				}
				switch {
				case ev.Final != nil:
					out.Type = "turn_complete"
					out.Response = ev.Final
				case ev.Tool != nil:
					out.Type = "tool_event"
				default:
					out.Type = "assistant_chunk"
				}
				pushChatWS(writeCh, out)
			}
		}
	}()

	for {
		var in chatWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		msgType := strings.ToLower(strings.TrimSpace(in.Type))
		switch msgType {
		case "ping":
			pushChatWS(writeCh, chatWSOutbound{Type: "pong"})
		case "send":
			go h.runTurn(ctx, writeCh, chatID, in.Message)
		default:
			pushChatWS(writeCh, chatWSOutbound{
				Type:    "error",
				Code:    "invalid_argument",
				Message: "unsupported type: " + msgType,
			})
		}
	}
}

func (h *ChatHandler) runTurn(ctx context.Context, writeCh chan chatWSOutbound, chatID, message string) {
	if _, err := h.svc.Send(ctx, chatID, message); err != nil {
		code := "internal"
		switch {
		case errors.Is(err, chat.ErrRateLimited):
			code = "resource_exhausted"
		case errors.Is(err, chat.ErrPolicyViolation):
			code = "permission_denied"
		}
		pushChatWS(writeCh, chatWSOutbound{
			Type:    "error",
			ChatID:  chatID,
			Code:    code,
			Message: err.Error(),
		})
	}
}

func pushChatWS(writeCh chan chatWSOutbound, out chatWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
