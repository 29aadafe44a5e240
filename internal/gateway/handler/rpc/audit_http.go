package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"appforge/internal/chat"
	"appforge/internal/gateway/repository/audit"
	"appforge/internal/pipeline"
)

// PayloadAuditor serves recorded milestone payloads back out. The audit S3
// store implements it.
type PayloadAuditor interface {
	Fetch(ctx context.Context, conversationID string, kind pipeline.Kind) ([]byte, error)
	URL(ctx context.Context, conversationID string, kind pipeline.Kind) (string, error)
}

// AuditHandler exposes the out-of-band milestone payload store, keyed the
// same way the bridge records: conversation id + kind.
type AuditHandler struct {
	store PayloadAuditor
}

func NewAuditHandler(store PayloadAuditor) *AuditHandler {
	return &AuditHandler{store: store}
}

// HandleFetch serves GET /pipeline/audit?conversation_id=...&kind=... with
// the recorded payload and a presigned link to it.
func (h *AuditHandler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	conversationID := strings.TrimSpace(r.URL.Query().Get("conversation_id"))
	kind := pipeline.Kind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if conversationID == "" || kind == "" {
		http.Error(w, "conversation_id and kind are required", http.StatusBadRequest)
		return
	}
	if !chat.IsProjectUpdateType(kind) {
		http.Error(w, "unknown milestone kind", http.StatusBadRequest)
		return
	}

	payload, err := h.store.Fetch(r.Context(), conversationID, kind)
	if err != nil {
		if errors.Is(err, audit.ErrNotFound) {
			http.Error(w, "no payload recorded", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The presigned link is best effort; the payload is the answer.
	link, err := h.store.URL(r.Context(), conversationID, kind)
	if err != nil {
		link = ""
	}

	raw := json.RawMessage(payload)
	if len(raw) == 0 || !json.Valid(raw) {
		raw, _ = json.Marshal(string(payload))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"conversation_id": conversationID,
		"kind":            kind,
		"payload":         raw,
		"url":             link,
	})
}
