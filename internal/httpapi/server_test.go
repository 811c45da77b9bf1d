package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lucaferri/parla/internal/archive"
	"github.com/lucaferri/parla/internal/brain"
	"github.com/lucaferri/parla/internal/config"
	"github.com/lucaferri/parla/internal/observability"
	"github.com/lucaferri/parla/internal/protocol"
	"github.com/lucaferri/parla/internal/session"
	"github.com/lucaferri/parla/internal/stt"
	"github.com/lucaferri/parla/internal/tools"
	"github.com/lucaferri/parla/internal/tts"
	"github.com/lucaferri/parla/internal/voice"
)

func newTestServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	cfg := config.Config{SampleRate: 16000, AllowAnyOrigin: true}
	sessions := session.NewManager(time.Minute)
	metrics := observability.NewMetrics(fmt.Sprintf("httpapi_test_%d", time.Now().UnixNano()))
	factory := func(*protocol.Credentials) (voice.Providers, error) {
		return voice.Providers{
			STT:   stt.NewMockProvider(),
			Brain: brain.NewMockAdapter(),
			TTS:   tts.NewMockProvider(),
		}, nil
	}
	orch := voice.NewOrchestrator(sessions, archive.NewNoopStore(), factory, tools.NewRegistry(), metrics, "test-voice", 1)
	return New(cfg, sessions, orch, metrics), sessions
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestSpeakReturnsWAV(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body, _ := json.Marshal(map[string]string{"text": "hello"})
	resp, err := http.Post(ts.URL+"/v1/speak", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("content type = %q", ct)
	}

	head := make([]byte, 4)
	if _, err := resp.Body.Read(head); err != nil {
		t.Fatal(err)
	}
	if string(head) != "RIFF" {
		t.Fatalf("body does not start with RIFF: % x", head)
	}
}

func TestSpeakRejectsEmptyText(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/speak", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebsocketTurnRoundTrip(t *testing.T) {
	srv, sessions := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/session/ws"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	send := func(v any) {
		t.Helper()
		if err := conn.WriteJSON(v); err != nil {
			t.Fatal(err)
		}
	}
	send(protocol.Configure{Type: protocol.TypeConfigure, SessionID: "ws-test", Persona: "default", SampleRate: 16000})
	send(protocol.AudioChunk{Type: protocol.TypeAudioChunk, PayloadBase64: base64.StdEncoding.EncodeToString(make([]byte, 320))})
	send(protocol.EndOfTurn{Type: protocol.TypeEndOfTurn})

	var sawFinal, sawComplete, sawAudio bool
	deadline := time.Now().Add(4 * time.Second)
	for !(sawFinal && sawComplete && sawAudio) {
		_ = conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed (final=%v complete=%v audio=%v): %v", sawFinal, sawComplete, sawAudio, err)
		}
		msg, err := protocol.ParseServerMessage(data)
		if err != nil {
			t.Fatalf("unparseable server frame: %v", err)
		}
		switch msg.(type) {
		case protocol.FinalTranscript:
			sawFinal = true
		case protocol.GenerationComplete:
			sawComplete = true
		case protocol.SynthesizedAudioChunk:
			sawAudio = true
		case protocol.ErrorEvent:
			t.Fatalf("unexpected error event: %+v", msg)
		}
	}

	// Session is visible over the REST surface too.
	deadlineAt := time.Now().Add(2 * time.Second)
	for {
		if sess, err := sessions.Get("ws-test"); err == nil && sess.TurnCount == 1 {
			break
		}
		if time.Now().After(deadlineAt) {
			t.Fatal("exchange never committed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	resp, err := http.Get(ts.URL + "/v1/session/ws-test")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session lookup status = %d", resp.StatusCode)
	}
}
