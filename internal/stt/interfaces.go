package stt

import "context"

// EventKind is the tagged classification of a transcription update. The
// vendor reports two booleans per turn event; collapsing them into one tag at
// the adapter boundary keeps the rest of the pipeline free of flag pairs.
type EventKind string

const (
	// KindInterim is a provisional transcript that may still be revised.
	KindInterim EventKind = "interim"
	// KindFinalUnformatted closes a turn but lacks punctuation and casing.
	// Acting on it would race the formatted text that follows.
	KindFinalUnformatted EventKind = "final_unformatted"
	// KindFinalFormatted is the authoritative transcript for a turn.
	KindFinalFormatted EventKind = "final_formatted"
	// KindError carries a vendor-side failure.
	KindError EventKind = "error"
)

// Classify maps the vendor's (end of turn, formatted) flag pair onto a kind.
func Classify(endOfTurn, formatted bool) EventKind {
	switch {
	case !endOfTurn:
		return KindInterim
	case !formatted:
		return KindFinalUnformatted
	default:
		return KindFinalFormatted
	}
}

// Event is one update from a transcription session.
type Event struct {
	Kind      EventKind
	Text      string
	Code      string
	Detail    string
	Retryable bool
	Timestamp int64
}

// Session is one live transcription stream.
type Session interface {
	// SendAudio forwards one chunk of PCM16LE audio.
	SendAudio(ctx context.Context, pcm []byte) error
	// Flush asks the vendor to endpoint the current turn immediately.
	Flush(ctx context.Context) error
	Close() error
}

// Provider opens transcription sessions.
type Provider interface {
	StartSession(ctx context.Context, sampleRate int) (Session, <-chan Event, error)
}
