package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lucaferri/parla/internal/reliability"
)

type ElevenLabsConfig struct {
	APIKey       string
	WSBaseURL    string
	ModelID      string
	OutputFormat string
	VoiceID      string
}

type ElevenLabsProvider struct {
	cfg ElevenLabsConfig
}

func NewElevenLabsProvider(cfg ElevenLabsConfig) *ElevenLabsProvider {
	if strings.TrimSpace(cfg.WSBaseURL) == "" {
		cfg.WSBaseURL = "wss://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = "eleven_multilingual_v2"
	}
	if strings.TrimSpace(cfg.OutputFormat) == "" {
		cfg.OutputFormat = "pcm_16000"
	}
	return &ElevenLabsProvider{cfg: cfg}
}

func (p *ElevenLabsProvider) StartStream(ctx context.Context, voiceID string) (Stream, error) {
	if strings.TrimSpace(voiceID) == "" {
		voiceID = p.cfg.VoiceID
	}
	if strings.TrimSpace(voiceID) == "" {
		return nil, fmt.Errorf("voice id is required")
	}

	u, err := url.Parse(strings.TrimRight(p.cfg.WSBaseURL, "/") + "/v1/text-to-speech/" + url.PathEscape(voiceID) + "/stream-input")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("model_id", p.cfg.ModelID)
	q.Set("output_format", p.cfg.OutputFormat)
	q.Set("auto_mode", "true")
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("xi-api-key", p.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, fmt.Errorf("dial tts websocket: %w", err)
	}

	s := &elevenStream{conn: conn, events: make(chan Event, 512)}
	go s.readLoop()
	// Prime the stream as documented for stream-input flows.
	_ = s.writeJSON(map[string]any{
		"text": " ",
		"voice_settings": map[string]any{
			"stability":        0.42,
			"similarity_boost": 0.85,
		},
	})
	return s, nil
}

type elevenStream struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	events    chan Event
}

func (s *elevenStream) SendText(_ context.Context, text string, tryTrigger bool) error {
	return s.writeJSON(map[string]any{
		"text":                   text,
		"try_trigger_generation": tryTrigger,
	})
}

func (s *elevenStream) CloseInput(_ context.Context) error {
	return s.writeJSON(map[string]any{"text": ""})
}

func (s *elevenStream) Events() <-chan Event { return s.events }

func (s *elevenStream) Close() error {
	return s.closeConn()
}

func (s *elevenStream) closeConn() error {
	var retErr error
	s.closeOnce.Do(func() {
		retErr = s.conn.Close()
	})
	return retErr
}

func (s *elevenStream) writeJSON(payload map[string]any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(payload)
}

// readLoop is the only closer of the events channel, so a vendor frame
// arriving during teardown can never hit a closed channel.
func (s *elevenStream) readLoop() {
	defer close(s.events)
	defer s.closeConn()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}

		if audio, _ := raw["audio"].(string); audio != "" {
			s.events <- Event{Type: EventAudio, AudioBase64: audio}
		}
		if isFinal, _ := raw["isFinal"].(bool); isFinal {
			s.events <- Event{Type: EventFinal}
		}
		if errMsg, _ := raw["error"].(string); errMsg != "" {
			code, _ := raw["message_type"].(string)
			s.events <- Event{Type: EventError, Code: code, Detail: errMsg, Retryable: reliability.IsRetryableRealtimeMessageType(code)}
		}
	}
}
