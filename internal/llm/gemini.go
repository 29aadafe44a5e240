package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"appforge/internal/chat"
	"appforge/internal/tool"

	genai "google.golang.org/genai"
)

var ErrMaxToolCalls = errors.New("llm: max tool iterations reached")

// GeminiEngine drives streamed, tool-augmented completions through the
// official genai client. It executes tool calls itself and feeds the
// results back into the model before finalizing the completion, so the
// returned text equals the concatenation of all streamed deltas.
type GeminiEngine struct {
	cli          *genai.Client
	model        string
	maxToolIters int
}

func NewGeminiEngine(ctx context.Context, apiKey, model string) (*GeminiEngine, error) {
	// The genai client reads the API key from env when not set here.
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if strings.TrimSpace(apiKey) != "" {
		cfg.APIKey = apiKey
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiEngine{cli: cli, model: model, maxToolIters: 5}, nil
}

func (g *GeminiEngine) Name() string { return "Gemini:" + g.model }

func (g *GeminiEngine) Chat(ctx context.Context, req chat.EngineRequest) (string, error) {
	contents := toContents(req.Messages)
	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	reg := tool.NewRegistry(req.Tools...)
	decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
	for _, t := range req.Tools {
		if t == nil {
			continue
		}
		spec := t.Spec()
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  toGenaiSchema(spec.Parameters),
		})
	}
	if len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	cw := newChunkWriter(req.ChunkSize, req.OnDelta)
	var final strings.Builder

	max := g.maxToolIters
	if max <= 0 {
		max = 5
	}
	for iter := 0; iter < max; iter++ {
		var calls []*genai.FunctionCall
		for resp, err := range g.cli.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
			if err != nil {
				return "", classifyGenaiError(err)
			}
			if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
				return "", fmt.Errorf("%w: prompt blocked (%s)", chat.ErrPolicyViolation, resp.PromptFeedback.BlockReason)
			}
			for _, cand := range resp.Candidates {
				if cand.FinishReason == genai.FinishReasonSafety ||
					cand.FinishReason == genai.FinishReasonProhibitedContent {
					return "", fmt.Errorf("%w: completion blocked (%s)", chat.ErrPolicyViolation, cand.FinishReason)
				}
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if part.Text != "" {
						final.WriteString(part.Text)
						cw.Write(part.Text)
					}
					if part.FunctionCall != nil {
						calls = append(calls, part.FunctionCall)
					}
				}
			}
		}
		if len(calls) == 0 {
			cw.Flush()
			return final.String(), nil
		}

		echo := make([]*genai.Part, 0, len(calls))
		answers := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			echo = append(echo, &genai.Part{FunctionCall: call})
			out, err := dispatchToolCall(ctx, reg, call.Name, call.Args)
			if err != nil {
				return "", err
			}
			answers = append(answers, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				Name:     call.Name,
				Response: out,
			}})
		}
		contents = append(contents,
			&genai.Content{Role: genai.RoleModel, Parts: echo},
			&genai.Content{Role: genai.RoleUser, Parts: answers},
		)
	}
	return "", ErrMaxToolCalls
}

// dispatchToolCall runs one tool invocation through the registry, which
// validates the input and fires lifecycle hooks around Call. A validation
// or execution failure fails the turn; the processor owns recovery.
func dispatchToolCall(ctx context.Context, reg *tool.Registry, name string, args map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("llm: encode %s args: %w", name, err)
	}
	out, err := reg.Call(ctx, name, raw)
	if err != nil {
		return nil, fmt.Errorf("llm: tool %s: %w", name, err)
	}

	resp := map[string]any{}
	if len(out) > 0 {
		if err := json.Unmarshal(out, &resp); err != nil {
			resp = map[string]any{"output": string(out)}
		}
	}
	return resp, nil
}

func toContents(messages []chat.Entry) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == chat.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}

func toGenaiSchema(s *tool.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{Description: s.Description}
	switch strings.TrimSpace(s.Type) {
	case "object":
		out.Type = genai.TypeObject
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toGenaiSchema(v)
		}
	}
	if len(s.Required) > 0 {
		out.Required = s.Required
	}
	if s.MinLength > 0 {
		out.MinLength = genai.Ptr(s.MinLength)
	}
	return out
}

// classifyGenaiError maps provider errors onto the processor's fatal
// classes. Anything unrecognized passes through and lands on the
// fallback path.
func classifyGenaiError(err error) error {
	var ae genai.APIError
	if errors.As(err, &ae) {
		if ae.Code == http.StatusTooManyRequests || strings.EqualFold(ae.Status, "RESOURCE_EXHAUSTED") {
			return fmt.Errorf("%w: %s", chat.ErrRateLimited, ae.Message)
		}
	}
	return err
}
