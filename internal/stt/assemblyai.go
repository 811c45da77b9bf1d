package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lucaferri/parla/internal/reliability"
)

type AssemblyAIConfig struct {
	APIKey    string
	WSBaseURL string
}

// AssemblyAIProvider streams audio to the v3 realtime transcription API.
type AssemblyAIProvider struct {
	cfg AssemblyAIConfig
}

func NewAssemblyAIProvider(cfg AssemblyAIConfig) *AssemblyAIProvider {
	if strings.TrimSpace(cfg.WSBaseURL) == "" {
		cfg.WSBaseURL = "wss://streaming.assemblyai.com"
	}
	return &AssemblyAIProvider{cfg: cfg}
}

func (p *AssemblyAIProvider) StartSession(ctx context.Context, sampleRate int) (Session, <-chan Event, error) {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	u, err := url.Parse(strings.TrimRight(p.cfg.WSBaseURL, "/") + "/v3/ws")
	if err != nil {
		return nil, nil, err
	}
	q := u.Query()
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	// Formatted finals are what the rest of the pipeline acts on.
	q.Set("format_turns", "true")
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", p.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, nil, fmt.Errorf("dial stt websocket: %w", err)
	}

	events := make(chan Event, 256)
	s := &assemblySession{conn: conn, events: events}
	go s.readLoop()
	return s, events, nil
}

type assemblySession struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	events    chan Event
}

func (s *assemblySession) SendAudio(_ context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, pcm)
}

func (s *assemblySession) Flush(_ context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(map[string]any{"type": "ForceEndpoint"})
}

// readLoop is the only closer of the events channel, so a vendor frame
// arriving during teardown can never hit a closed channel.
func (s *assemblySession) readLoop() {
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
		messageType := asString(raw["type"])
		switch messageType {
		case "Turn":
			s.events <- Event{
				Kind:      Classify(asBool(raw["end_of_turn"]), asBool(raw["turn_is_formatted"])),
				Text:      asString(raw["transcript"]),
				Timestamp: time.Now().UnixMilli(),
			}
		case "Begin", "Termination":
			// control events
		case "":
			// ignore
		default:
			s.events <- Event{
				Kind:      KindError,
				Code:      messageType,
				Detail:    asString(raw["error"]),
				Retryable: reliability.IsRetryableRealtimeMessageType(messageType),
				Timestamp: time.Now().UnixMilli(),
			}
		}
	}
}

func (s *assemblySession) Close() error {
	s.writeMu.Lock()
	_ = s.conn.WriteJSON(map[string]any{"type": "Terminate"})
	s.writeMu.Unlock()

	return s.closeConn()
}

func (s *assemblySession) closeConn() error {
	var retErr error
	s.closeOnce.Do(func() {
		retErr = s.conn.Close()
	})
	return retErr
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func asBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
