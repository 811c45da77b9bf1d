package tts

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"

	"github.com/lucaferri/parla/internal/codec"
)

// MockProvider fabricates audio locally; used when no vendor key is
// configured and by tests. Like the real vendor, the first audio payload of
// each stream carries a WAV header ahead of the PCM bytes.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) StartStream(context.Context, string) (Stream, error) {
	return &mockStream{events: make(chan Event, 128)}, nil
}

type mockStream struct {
	mu     sync.Mutex
	events chan Event
	sent   bool
	closed bool
}

func (s *mockStream) SendText(_ context.Context, text string, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || strings.TrimSpace(text) == "" {
		return nil
	}
	// One silent sample per character keeps payload size proportional to
	// the text without synthesizing anything.
	pcm := make([]byte, len(text)*2)
	if !s.sent {
		s.sent = true
		wav, err := codec.EncodeWAV(pcm, 16000)
		if err != nil {
			return err
		}
		pcm = wav
	}
	s.events <- Event{Type: EventAudio, AudioBase64: base64.StdEncoding.EncodeToString(pcm)}
	return nil
}

func (s *mockStream) CloseInput(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.events <- Event{Type: EventFinal}
	return nil
}

func (s *mockStream) Events() <-chan Event { return s.events }

func (s *mockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}
