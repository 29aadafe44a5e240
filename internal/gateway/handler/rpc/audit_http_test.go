package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"appforge/internal/gateway/repository/audit"
	"appforge/internal/pipeline"
)

type fakeAuditor struct {
	payloads map[string][]byte
}

func (f *fakeAuditor) key(convID string, kind pipeline.Kind) string {
	return convID + "/" + string(kind)
}

func (f *fakeAuditor) Fetch(_ context.Context, convID string, kind pipeline.Kind) ([]byte, error) {
	p, ok := f.payloads[f.key(convID, kind)]
	if !ok {
		return nil, audit.ErrNotFound
	}
	return p, nil
}

func (f *fakeAuditor) URL(_ context.Context, convID string, kind pipeline.Kind) (string, error) {
	return "https://audit.example/" + f.key(convID, kind), nil
}

func TestAuditHandler_FetchRecordedPayload(t *testing.T) {
	store := &fakeAuditor{payloads: map[string][]byte{
		"conv-1/deployment_completed": []byte(`{"url":"https://app.example"}`),
	}}
	h := NewAuditHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/pipeline/audit?conversation_id=conv-1&kind=deployment_completed", nil)
	rec := httptest.NewRecorder()
	h.HandleFetch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		ConversationID string          `json:"conversation_id"`
		Kind           string          `json:"kind"`
		Payload        json.RawMessage `json:"payload"`
		URL            string          `json:"url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.ConversationID != "conv-1" || body.Kind != "deployment_completed" {
		t.Fatalf("unexpected identity fields: %+v", body)
	}
	if string(body.Payload) != `{"url":"https://app.example"}` {
		t.Fatalf("payload altered in transit: %s", body.Payload)
	}
	if body.URL == "" {
		t.Fatalf("expected a presigned link")
	}
}

func TestAuditHandler_MissingPayloadIs404(t *testing.T) {
	h := NewAuditHandler(&fakeAuditor{payloads: map[string][]byte{}})

	req := httptest.NewRequest(http.MethodGet, "/pipeline/audit?conversation_id=ghost&kind=code_review", nil)
	rec := httptest.NewRecorder()
	h.HandleFetch(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAuditHandler_RejectsBadRequests(t *testing.T) {
	h := NewAuditHandler(&fakeAuditor{payloads: map[string][]byte{}})
	cases := []struct {
		name   string
		target string
		code   int
	}{
		{"missing params", "/pipeline/audit", http.StatusBadRequest},
		{"unknown kind", "/pipeline/audit?conversation_id=c&kind=not_a_kind", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.HandleFetch(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
		if rec.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.code, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.HandleFetch(rec, httptest.NewRequest(http.MethodPost, "/pipeline/audit?conversation_id=c&kind=code_review", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", rec.Code)
	}
}
