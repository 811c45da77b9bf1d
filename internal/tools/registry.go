package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/lucaferri/parla/internal/brain"
)

// Tool is one callable function the generator may request.
type Tool interface {
	Declaration() brain.ToolDeclaration
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds the tools offered to the generator.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Declaration().Name] = t
	}
	return r
}

func (r *Registry) Len() int { return len(r.tools) }

// Declarations lists every registered tool in stable name order.
func (r *Registry) Declarations() []brain.ToolDeclaration {
	out := make([]brain.ToolDeclaration, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Declaration())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs the named tool. An unknown name is an error so the generator
// cannot invent functions.
func (r *Registry) Execute(ctx context.Context, call brain.ToolCall) (brain.ToolResult, error) {
	t, ok := r.tools[call.Name]
	if !ok {
		return brain.ToolResult{}, fmt.Errorf("unknown tool %q", call.Name)
	}
	content, err := t.Execute(ctx, call.Args)
	if err != nil {
		return brain.ToolResult{}, fmt.Errorf("tool %s: %w", call.Name, err)
	}
	return brain.ToolResult{Name: call.Name, Content: content}, nil
}
