package protocol

// TurnState tracks where one session's active turn sits in its lifecycle.
// Exactly one turn is active per session; transitions are driven by the
// orchestrator, never by the transport layer.
type TurnState string

const (
	StateIdle             TurnState = "idle"
	StateAwaitingAudio    TurnState = "awaiting_audio"
	StateEndOfTurnPending TurnState = "end_of_turn_pending"
	StateGenerating       TurnState = "generating"
	StateSynthesizing     TurnState = "synthesizing"
)

// Accepts reports whether a client message of the given type is legal in
// this state. Messages arriving in a non-accepting state are protocol
// violations: dropped with an error event, state unchanged.
func (s TurnState) Accepts(t MessageType) bool {
	switch s {
	case StateIdle:
		return t == TypeConfigure
	case StateAwaitingAudio:
		return t == TypeAudioChunk || t == TypeEndOfTurn
	case StateEndOfTurnPending, StateGenerating, StateSynthesizing:
		return false
	default:
		return false
	}
}
