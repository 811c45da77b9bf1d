package protocol

import (
	"strings"
	"testing"
)

func TestParseClientMessage(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr string
		check   func(t *testing.T, got any)
	}{
		{
			name: "configure with credentials",
			raw:  `{"type":"configure","session_id":"s1","persona":"default","sample_rate":16000,"credentials":{"gemini_api_key":"g"}}`,
			check: func(t *testing.T, got any) {
				msg, ok := got.(Configure)
				if !ok {
					t.Fatalf("expected Configure, got %T", got)
				}
				if msg.SessionID != "s1" || msg.Persona != "default" || msg.SampleRate != 16000 {
					t.Fatalf("unexpected configure: %+v", msg)
				}
				if msg.Credentials == nil || msg.Credentials.GeminiAPIKey != "g" {
					t.Fatalf("credentials not decoded: %+v", msg.Credentials)
				}
			},
		},
		{
			name:    "configure rejects missing sample rate",
			raw:     `{"type":"configure","session_id":"s1"}`,
			wantErr: "sample_rate",
		},
		{
			name: "audio chunk",
			raw:  `{"type":"audio_chunk","payload_base64":"AAAA"}`,
			check: func(t *testing.T, got any) {
				msg, ok := got.(AudioChunk)
				if !ok || msg.PayloadBase64 != "AAAA" {
					t.Fatalf("unexpected audio chunk: %#v", got)
				}
			},
		},
		{
			name:    "audio chunk rejects empty payload",
			raw:     `{"type":"audio_chunk","payload_base64":""}`,
			wantErr: "empty payload",
		},
		{
			name: "end of turn",
			raw:  `{"type":"end_of_turn"}`,
			check: func(t *testing.T, got any) {
				if _, ok := got.(EndOfTurn); !ok {
					t.Fatalf("expected EndOfTurn, got %T", got)
				}
			},
		},
		{
			name:    "unknown type",
			raw:     `{"type":"interim_transcript","text":"x"}`,
			wantErr: "unsupported message type",
		},
		{
			name:    "garbage",
			raw:     `{{{`,
			wantErr: "invalid envelope",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseClientMessage([]byte(tc.raw))
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("want error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.check(t, got)
		})
	}
}

func TestTurnStateAccepts(t *testing.T) {
	cases := []struct {
		state TurnState
		msg   MessageType
		want  bool
	}{
		{StateIdle, TypeConfigure, true},
		{StateIdle, TypeAudioChunk, false},
		{StateIdle, TypeEndOfTurn, false},
		{StateAwaitingAudio, TypeAudioChunk, true},
		{StateAwaitingAudio, TypeEndOfTurn, true},
		{StateAwaitingAudio, TypeConfigure, false},
		{StateEndOfTurnPending, TypeAudioChunk, false},
		{StateGenerating, TypeAudioChunk, false},
		{StateGenerating, TypeConfigure, false},
		{StateSynthesizing, TypeAudioChunk, false},
		{StateSynthesizing, TypeEndOfTurn, false},
	}
	for _, tc := range cases {
		if got := tc.state.Accepts(tc.msg); got != tc.want {
			t.Errorf("%s.Accepts(%s) = %v, want %v", tc.state, tc.msg, got, tc.want)
		}
	}
}

func TestMessageTypeOf(t *testing.T) {
	if typ, ok := MessageTypeOf(FinalTranscript{Type: TypeFinalTranscript}); !ok || typ != TypeFinalTranscript {
		t.Fatalf("MessageTypeOf(FinalTranscript) = %q, %v", typ, ok)
	}
	if _, ok := MessageTypeOf(42); ok {
		t.Fatal("MessageTypeOf should reject unknown values")
	}
}
