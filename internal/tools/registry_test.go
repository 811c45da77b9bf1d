package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/lucaferri/parla/internal/brain"
)

type fakeTool struct {
	name   string
	result string
	err    error
}

func (t fakeTool) Declaration() brain.ToolDeclaration {
	return brain.ToolDeclaration{Name: t.name}
}

func (t fakeTool) Execute(context.Context, map[string]any) (string, error) {
	return t.result, t.err
}

func TestRegistryDeclarationsSorted(t *testing.T) {
	r := NewRegistry(fakeTool{name: "zeta"}, fakeTool{name: "alpha"})
	decls := r.Declarations()
	if len(decls) != 2 || decls[0].Name != "alpha" || decls[1].Name != "zeta" {
		t.Fatalf("declarations not sorted: %+v", decls)
	}
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry(fakeTool{name: "get_weather", result: "sunny"})

	res, err := r.Execute(context.Background(), brain.ToolCall{Name: "get_weather"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "get_weather" || res.Content != "sunny" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err := r.Execute(context.Background(), brain.ToolCall{Name: "made_up"}); err == nil {
		t.Fatal("unknown tool should error")
	} else if !strings.Contains(err.Error(), "made_up") {
		t.Fatalf("error should name the tool: %v", err)
	}
}

func TestWeatherToolRequiresCity(t *testing.T) {
	w := NewWeatherTool()
	if _, err := w.Execute(context.Background(), map[string]any{}); err == nil {
		t.Fatal("missing city should error")
	}
	if _, err := w.Execute(context.Background(), map[string]any{"city": "  "}); err == nil {
		t.Fatal("blank city should error")
	}
}

func TestWebSearchToolRequiresQuery(t *testing.T) {
	s := NewWebSearchTool("key")
	if _, err := s.Execute(context.Background(), map[string]any{}); err == nil {
		t.Fatal("missing query should error")
	}
}
