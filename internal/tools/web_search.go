package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"appforge/internal/tool"
)

// --------------------- web.search ---------------------

const webSearchEndpoint = "https://api.duckduckgo.com/"

type webSearchTool struct {
	client *http.Client
}

// NewWebSearchTool builds the web lookup capability. A nil client gets a
// sane default with a request timeout.
func NewWebSearchTool(client *http.Client) tool.Tool {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &webSearchTool{client: client}
}

func (t *webSearchTool) Spec() tool.Spec {
	return tool.Spec{
		Name:        "web.search",
		Description: "Search the web for a short factual answer.",
		Parameters: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"query": {Type: "string", Description: "What to search for."},
			},
			Required: []string{"query"},
		},
	}
}

type webSearchInput struct {
	Query string `json:"query"`
}

type webSearchResult struct {
	Abstract string `json:"abstract,omitempty"`
	Answer   string `json:"answer,omitempty"`
	Source   string `json:"source,omitempty"`
}

func (t *webSearchTool) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in webSearchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("web.search: decode input: %w", err)
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, fmt.Errorf("web.search: query is required")
	}

	u := webSearchEndpoint + "?" + url.Values{
		"q":      {query},
		"format": {"json"},
	}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web.search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web.search: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		AbstractText string `json:"AbstractText"`
		Answer       string `json:"Answer"`
		AbstractURL  string `json:"AbstractURL"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("web.search: decode response: %w", err)
	}
	return json.Marshal(webSearchResult{
		Abstract: strings.TrimSpace(parsed.AbstractText),
		Answer:   strings.TrimSpace(parsed.Answer),
		Source:   strings.TrimSpace(parsed.AbstractURL),
	})
}
