package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lucaferri/parla/internal/brain"
)

// WebSearchTool answers open questions with a Tavily search. The answer
// field is preferred; top result snippets are the fallback.
type WebSearchTool struct {
	APIKey  string
	BaseURL string
}

func NewWebSearchTool(apiKey string) *WebSearchTool {
	return &WebSearchTool{APIKey: apiKey, BaseURL: "https://api.tavily.com"}
}

func (t *WebSearchTool) Declaration() brain.ToolDeclaration {
	return brain.ToolDeclaration{
		Name:        "web_search",
		Description: "Search the web for current information.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for",
				},
			},
			"required": []string{"query"},
		},
	}
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	payload, err := json.Marshal(map[string]any{
		"api_key":        t.APIKey,
		"query":          query,
		"include_answer": true,
		"max_results":    3,
	})
	if err != nil {
		return "", err
	}

	body, err := doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimRight(t.BaseURL, "/")+"/search", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var decoded tavilyResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}
	if strings.TrimSpace(decoded.Answer) != "" {
		return decoded.Answer, nil
	}
	var b strings.Builder
	for i, r := range decoded.Results {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(r.Title)
		b.WriteString(": ")
		b.WriteString(r.Content)
	}
	if b.Len() == 0 {
		return "No results found.", nil
	}
	return b.String(), nil
}
