package brain

import (
	"context"
	"errors"
	"testing"
)

func TestPersonaPromptFallsBack(t *testing.T) {
	if PersonaPrompt("pirate") == PersonaPrompt("default") {
		t.Fatal("pirate persona should have its own prompt")
	}
	if PersonaPrompt("nope") != PersonaPrompt("default") {
		t.Fatal("unknown persona should fall back to default")
	}
	if PersonaPrompt("  Pirate ") != PersonaPrompt("pirate") {
		t.Fatal("persona lookup should normalize case and whitespace")
	}
}

func TestMockAdapterStreamsAndAccumulates(t *testing.T) {
	a := &MockAdapter{Deltas: []string{"Hello, ", "world."}}
	var got []string
	reply, err := a.StreamReply(context.Background(), Request{}, func(text string) error {
		got = append(got, text)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != "Hello, world." {
		t.Fatalf("reply = %q", reply.Text)
	}
	if len(got) != 2 || got[0] != "Hello, " {
		t.Fatalf("deltas = %v", got)
	}
}

func TestMockAdapterDeltaErrorAborts(t *testing.T) {
	a := &MockAdapter{Deltas: []string{"a", "b"}}
	wantErr := errors.New("stop")
	_, err := a.StreamReply(context.Background(), Request{}, func(string) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected delta error to propagate, got %v", err)
	}
}

func TestGeminiBuildRequest(t *testing.T) {
	a := NewGeminiAdapter(GeminiConfig{APIKey: "k"})
	req := Request{
		SystemPrompt: "be brief",
		History: []Message{
			{Role: RoleUser, Text: "hi"},
			{Role: RoleAgent, Text: "hello"},
		},
		Tools:       []ToolDeclaration{{Name: "get_weather"}},
		ToolResults: []ToolResult{{Name: "get_weather", Content: "sunny"}},
	}

	got := a.buildRequest(req, true)
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "be brief" {
		t.Fatalf("system instruction missing: %+v", got.SystemInstruction)
	}
	if len(got.Contents) != 3 {
		t.Fatalf("contents length = %d, want 3", len(got.Contents))
	}
	if got.Contents[2].Parts[0].FunctionResponse == nil {
		t.Fatal("tool result should become a function response part")
	}
	if len(got.Tools) != 1 || got.Tools[0].FunctionDeclarations[0].Name != "get_weather" {
		t.Fatalf("tool declarations missing: %+v", got.Tools)
	}

	without := a.buildRequest(req, false)
	if len(without.Tools) != 0 {
		t.Fatal("streaming round must not attach tools")
	}
}
