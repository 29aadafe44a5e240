package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"appforge/internal/pipeline"

	"github.com/google/uuid"
)

// PayloadRecorder persists full milestone payloads out of band, keyed by
// the generated conversation identifier. The transcript itself stays
// lightweight; recording failures are non-critical.
type PayloadRecorder interface {
	Record(ctx context.Context, conversationID string, kind pipeline.Kind, payload []byte) error
}

// UpdateBridge compacts build-pipeline milestone events into transcript
// entries. It discards the event payload on purpose: a transcript viewer
// gets a short marker, not the build's structured data.
type UpdateBridge struct {
	Recorder PayloadRecorder
}

// IsProjectUpdateType reports whether kind belongs to the fixed milestone
// allow-list the transcript reflects.
func IsProjectUpdateType(kind pipeline.Kind) bool {
	return pipeline.IsMilestone(kind)
}

// ProcessProjectUpdates translates one milestone event into at most one
// assistant entry. It never propagates an error: on any internal failure it
// logs and returns an empty sequence, since a missed milestone note is
// non-critical.
func (b *UpdateBridge) ProcessProjectUpdates(ctx context.Context, kind pipeline.Kind, payload any) (entries []Entry) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bridge: recovered processing %s: %v", kind, r)
			entries = nil
		}
	}()

	if !IsProjectUpdateType(kind) {
		return nil
	}

	conversationID := uuid.NewString()
	if b != nil && b.Recorder != nil && payload != nil {
		raw, err := json.Marshal(payload)
		if err == nil {
			if err := b.Recorder.Record(ctx, conversationID, kind, raw); err != nil {
				log.Printf("bridge: record %s payload: %v", kind, err)
			}
		}
	}

	content := fmt.Sprintf("[build update: %s]", kind)
	return []Entry{NewEntry(RoleAssistant, content, conversationID)}
}
