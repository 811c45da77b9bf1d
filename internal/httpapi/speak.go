package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lucaferri/parla/internal/codec"
)

type speakRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
}

// handleSpeak synthesizes one standalone utterance and returns it as a WAV
// artifact, for auditioning voices without a live session.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	pcm, err := s.orchestrator.SpeakOnce(r.Context(), req.VoiceID, req.Text)
	if err != nil {
		respondError(w, http.StatusBadGateway, "speak_failed", err.Error())
		return
	}

	wav, err := codec.EncodeWAV(pcm, s.cfg.SampleRate)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wav)
}
