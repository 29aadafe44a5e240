package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"appforge/internal/tool"
)

// QueueRequestToolName is the external name of the modification-queue tool.
const QueueRequestToolName = "queue_request"

// queueRequestAck is the literal the model is instructed to echo only
// after genuinely receiving it.
const queueRequestAck = "Modification request queued for the build pipeline."

const minModificationRequestLen = 8

// newQueueRequestTool builds the per-turn tool the model uses to hand off a
// distilled change request. The setter writes into turn-scoped state owned
// by the processor; invoking the tool twice overwrites the first capture
// (last write wins).
func newQueueRequestTool(set func(string)) tool.Tool {
	return &queueRequestTool{set: set}
}

type queueRequestTool struct {
	set func(string)
}

func (t *queueRequestTool) Spec() tool.Spec {
	return tool.Spec{
		Name: QueueRequestToolName,
		Description: "Queue a distilled modification request for the build pipeline. " +
			"Describe what the user wants changed, free of implementation detail.",
		Parameters: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"modificationRequest": {
					Type:        "string",
					Description: "The requirement to hand off to the build pipeline.",
					MinLength:   minModificationRequestLen,
				},
			},
			Required: []string{"modificationRequest"},
		},
	}
}

type queueRequestInput struct {
	ModificationRequest string `json:"modificationRequest"`
}

func (t *queueRequestTool) Call(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in queueRequestInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("queue_request: decode input: %w", err)
	}
	if t.set != nil {
		t.set(in.ModificationRequest)
	}
	return json.Marshal(map[string]string{"result": queueRequestAck})
}
