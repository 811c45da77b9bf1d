package tts

import "context"

type EventType string

const (
	// EventAudio carries one base64-encoded audio payload. The first payload
	// of a stream may lead with a container header; the decoder strips it.
	EventAudio EventType = "audio"
	// EventFinal marks the end of a synthesis stream.
	EventFinal EventType = "final"
	EventError EventType = "error"
)

type Event struct {
	Type        EventType
	AudioBase64 string
	Code        string
	Detail      string
	Retryable   bool
}

// Stream is one live synthesis stream. Text goes in incrementally; audio
// events come out of Events until EventFinal or an error.
type Stream interface {
	SendText(ctx context.Context, text string, tryTrigger bool) error
	// CloseInput tells the vendor no more text is coming for this stream.
	CloseInput(ctx context.Context) error
	Events() <-chan Event
	Close() error
}

// Provider opens synthesis streams.
type Provider interface {
	StartStream(ctx context.Context, voiceID string) (Stream, error)
}
