package brain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// GeminiAdapter talks to the generative language REST API. Streaming uses
// the SSE variant of the generate endpoint; tool probing uses the plain one.
type GeminiAdapter struct {
	cfg    GeminiConfig
	client *http.Client
}

func NewGeminiAdapter(cfg GeminiConfig) *GeminiAdapter {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	return &GeminiAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiPart struct {
	Text             string          `json:"text,omitempty"`
	FunctionCall     *geminiFnCall   `json:"functionCall,omitempty"`
	FunctionResponse *geminiFnResult `json:"functionResponse,omitempty"`
}

type geminiFnCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFnResult struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTools   `json:"tools,omitempty"`
}

type geminiTools struct {
	FunctionDeclarations []geminiFnDecl `json:"functionDeclarations"`
}

type geminiFnDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *GeminiAdapter) buildRequest(req Request, includeTools bool) geminiRequest {
	out := geminiRequest{}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	for _, m := range req.History {
		out.Contents = append(out.Contents, geminiContent{
			Role:  string(m.Role),
			Parts: []geminiPart{{Text: m.Text}},
		})
	}
	for _, tr := range req.ToolResults {
		out.Contents = append(out.Contents, geminiContent{
			Role: "user",
			Parts: []geminiPart{{FunctionResponse: &geminiFnResult{
				Name:     tr.Name,
				Response: map[string]any{"content": tr.Content},
			}}},
		})
	}
	if includeTools && len(req.Tools) > 0 {
		decls := make([]geminiFnDecl, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, geminiFnDecl{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
		}
		out.Tools = []geminiTools{{FunctionDeclarations: decls}}
	}
	return out
}

// StreamReply generates the agent reply, invoking onDelta for every text
// fragment in arrival order. Tools are omitted here; a streaming round never
// mixes function calls with spoken text.
func (a *GeminiAdapter) StreamReply(ctx context.Context, req Request, onDelta DeltaHandler) (Reply, error) {
	body, err := json.Marshal(a.buildRequest(req, false))
	if err != nil {
		return Reply{}, err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse&key=%s",
		strings.TrimRight(a.cfg.BaseURL, "/"), a.cfg.Model, a.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return Reply{}, fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Reply{}, fmt.Errorf("generate status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		var chunk geminiResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return Reply{}, fmt.Errorf("generate error %d: %s", chunk.Error.Code, chunk.Error.Message)
		}
		for _, cand := range chunk.Candidates {
			for _, part := range cand.Content.Parts {
				if part.Text == "" {
					continue
				}
				full.WriteString(part.Text)
				if err := onDelta(part.Text); err != nil {
					return Reply{}, err
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Reply{}, fmt.Errorf("read generate stream: %w", err)
	}
	return Reply{Text: full.String()}, nil
}

// ProbeToolCall runs one non-streaming round with function declarations
// attached and reports the first function call, if any.
func (a *GeminiAdapter) ProbeToolCall(ctx context.Context, req Request) (*ToolCall, error) {
	if len(req.Tools) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(a.buildRequest(req, true))
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(a.cfg.BaseURL, "/"), a.cfg.Model, a.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("probe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("probe status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode probe response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("probe error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	for _, cand := range decoded.Candidates {
		for _, part := range cand.Content.Parts {
			if part.FunctionCall != nil {
				return &ToolCall{Name: part.FunctionCall.Name, Args: part.FunctionCall.Args}, nil
			}
		}
	}
	return nil, nil
}
