package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/lucaferri/parla/internal/brain"
)

// WeatherTool answers current-conditions questions via the wttr.in service.
// No API key needed; the one-line plain text format reads well aloud.
type WeatherTool struct {
	BaseURL string
}

func NewWeatherTool() *WeatherTool {
	return &WeatherTool{BaseURL: "https://wttr.in"}
}

func (t *WeatherTool) Declaration() brain.ToolDeclaration {
	return brain.ToolDeclaration{
		Name:        "get_weather",
		Description: "Get the current weather for a city.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "City name, for example Milan or New York",
				},
			},
			"required": []string{"city"},
		},
	}
}

func (t *WeatherTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	city, _ := args["city"].(string)
	city = strings.TrimSpace(city)
	if city == "" {
		return "", fmt.Errorf("city is required")
	}

	body, err := doWithRetry(ctx, func() (*http.Request, error) {
		endpoint := strings.TrimRight(t.BaseURL, "/") + "/" + url.PathEscape(city) + "?format=%l:+%C,+%t,+wind+%w"
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
