package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeConfigure             MessageType = "configure"
	TypeAudioChunk            MessageType = "audio_chunk"
	TypeEndOfTurn             MessageType = "end_of_turn"
	TypeInterimTranscript     MessageType = "interim_transcript"
	TypeFinalTranscript       MessageType = "final_transcript"
	TypeGeneratedTextChunk    MessageType = "generated_text_chunk"
	TypeGenerationComplete    MessageType = "generation_complete"
	TypeSynthesizedAudioChunk MessageType = "synthesized_audio_chunk"
	TypeErrorEvent            MessageType = "error"
)

// Error codes carried by ErrorEvent.
const (
	CodeConfigurationError   = "configuration_error"
	CodeNoSpeechDetected     = "no_speech_detected"
	CodeVendorPipeError      = "vendor_pipe_error"
	CodeProtocolViolation    = "protocol_violation"
	CodeInvalidClientMessage = "invalid_client_message"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// Credentials optionally overrides process-wide vendor keys for one session.
type Credentials struct {
	AssemblyAIAPIKey string `json:"assemblyai_api_key,omitempty"`
	GeminiAPIKey     string `json:"gemini_api_key,omitempty"`
	ElevenLabsAPIKey string `json:"elevenlabs_api_key,omitempty"`
}

type Configure struct {
	Type        MessageType  `json:"type"`
	SessionID   string       `json:"session_id,omitempty"`
	Persona     string       `json:"persona,omitempty"`
	SampleRate  int          `json:"sample_rate"`
	Credentials *Credentials `json:"credentials,omitempty"`
}

type AudioChunk struct {
	Type          MessageType `json:"type"`
	PayloadBase64 string      `json:"payload_base64"`
}

type EndOfTurn struct {
	Type MessageType `json:"type"`
}

type InterimTranscript struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type FinalTranscript struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type GeneratedTextChunk struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

type GenerationComplete struct {
	Type MessageType `json:"type"`
}

type SynthesizedAudioChunk struct {
	Type          MessageType `json:"type"`
	PayloadBase64 string      `json:"payload_base64"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	Code      string      `json:"code"`
	Source    string      `json:"source,omitempty"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes and validates one client frame.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeConfigure:
		var msg Configure
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SampleRate <= 0 {
			return nil, errors.New("invalid configure: sample_rate must be positive")
		}
		return msg, nil
	case TypeAudioChunk:
		var msg AudioChunk
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.PayloadBase64 == "" {
			return nil, errors.New("invalid audio_chunk: empty payload")
		}
		return msg, nil
	case TypeEndOfTurn:
		var msg EndOfTurn
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// ParseServerMessage decodes one server frame; used by the client read loop.
func ParseServerMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeInterimTranscript:
		var msg InterimTranscript
		err := json.Unmarshal(raw, &msg)
		return msg, err
	case TypeFinalTranscript:
		var msg FinalTranscript
		err := json.Unmarshal(raw, &msg)
		return msg, err
	case TypeGeneratedTextChunk:
		var msg GeneratedTextChunk
		err := json.Unmarshal(raw, &msg)
		return msg, err
	case TypeGenerationComplete:
		var msg GenerationComplete
		err := json.Unmarshal(raw, &msg)
		return msg, err
	case TypeSynthesizedAudioChunk:
		var msg SynthesizedAudioChunk
		err := json.Unmarshal(raw, &msg)
		return msg, err
	case TypeErrorEvent:
		var msg ErrorEvent
		err := json.Unmarshal(raw, &msg)
		return msg, err
	default:
		return nil, ErrUnsupportedType
	}
}

// MessageTypeOf reports the wire type of a decoded message.
func MessageTypeOf(v any) (MessageType, bool) {
	switch m := v.(type) {
	case Configure:
		return m.Type, true
	case AudioChunk:
		return m.Type, true
	case EndOfTurn:
		return m.Type, true
	case InterimTranscript:
		return m.Type, true
	case FinalTranscript:
		return m.Type, true
	case GeneratedTextChunk:
		return m.Type, true
	case GenerationComplete:
		return m.Type, true
	case SynthesizedAudioChunk:
		return m.Type, true
	case ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
