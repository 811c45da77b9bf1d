package stt

import (
	"context"
	"sync"
	"time"
)

// MockProvider simulates transcription locally; used when no vendor key is
// configured and by tests.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) StartSession(_ context.Context, _ int) (Session, <-chan Event, error) {
	events := make(chan Event, 64)
	s := &mockSession{events: events}
	return s, events, nil
}

type mockSession struct {
	mu     sync.Mutex
	events chan Event
	chunks int
	closed bool
}

func (s *mockSession) SendAudio(_ context.Context, pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(pcm) == 0 {
		return nil
	}
	s.chunks++
	s.events <- Event{Kind: KindInterim, Text: "simulated voice", Timestamp: time.Now().UnixMilli()}
	return nil
}

func (s *mockSession) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.chunks == 0 {
		// Nothing heard: emit an empty final, like a silent commit upstream.
		s.events <- Event{Kind: KindFinalFormatted, Text: "", Timestamp: time.Now().UnixMilli()}
		return nil
	}
	s.events <- Event{Kind: KindFinalUnformatted, Text: "simulated voice input", Timestamp: time.Now().UnixMilli()}
	s.events <- Event{Kind: KindFinalFormatted, Text: "Simulated voice input.", Timestamp: time.Now().UnixMilli()}
	s.chunks = 0
	return nil
}

func (s *mockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}
