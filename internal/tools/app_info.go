package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"appforge/internal/tool"
)

// --------------------- app.info ---------------------

// AppInfoProvider answers informational lookups about the application
// under construction. The gateway supplies one backed by its stores.
type AppInfoProvider interface {
	AppInfo(ctx context.Context, topic string) (string, error)
}

// AppInfoFunc adapts a plain function to AppInfoProvider.
type AppInfoFunc func(ctx context.Context, topic string) (string, error)

func (f AppInfoFunc) AppInfo(ctx context.Context, topic string) (string, error) {
	return f(ctx, topic)
}

type appInfoTool struct {
	provider AppInfoProvider
}

func NewAppInfoTool(provider AppInfoProvider) tool.Tool {
	return &appInfoTool{provider: provider}
}

func (t *appInfoTool) Spec() tool.Spec {
	return tool.Spec{
		Name:        "app.info",
		Description: "Look up details about the application being built (features, status, configuration).",
		Parameters: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"topic": {Type: "string", Description: "What to look up."},
			},
			Required: []string{"topic"},
		},
	}
}

type appInfoInput struct {
	Topic string `json:"topic"`
}

func (t *appInfoTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	if t.provider == nil {
		return nil, fmt.Errorf("app.info: no provider configured")
	}
	var in appInfoInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("app.info: decode input: %w", err)
	}
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return nil, fmt.Errorf("app.info: topic is required")
	}
	info, err := t.provider.AppInfo(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("app.info: %w", err)
	}
	return json.Marshal(map[string]string{"info": info})
}
