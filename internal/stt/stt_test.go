package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		endOfTurn, formatted bool
		want                 EventKind
	}{
		{false, false, KindInterim},
		{false, true, KindInterim},
		{true, false, KindFinalUnformatted},
		{true, true, KindFinalFormatted},
	}
	for _, tc := range cases {
		if got := Classify(tc.endOfTurn, tc.formatted); got != tc.want {
			t.Errorf("Classify(%v, %v) = %s, want %s", tc.endOfTurn, tc.formatted, got, tc.want)
		}
	}
}

func TestMockSessionFlushEmitsFinals(t *testing.T) {
	p := NewMockProvider()
	s, events, err := p.StartSession(context.Background(), 16000)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.SendAudio(context.Background(), []byte{0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	var kinds []EventKind
	for len(events) > 0 {
		kinds = append(kinds, (<-events).Kind)
	}
	want := []EventKind{KindInterim, KindFinalUnformatted, KindFinalFormatted}
	if len(kinds) != len(want) {
		t.Fatalf("got kinds %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("event %d kind = %s, want %s", i, kinds[i], want[i])
		}
	}
}

// Close races the read loop against frames still in flight; the events
// channel must close cleanly without a send on a closed channel.
func TestAssemblyAISessionCloseDuringStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		frame := map[string]any{
			"type":              "Turn",
			"transcript":        "hello",
			"end_of_turn":       false,
			"turn_is_formatted": false,
		}
		for {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	p := NewAssemblyAIProvider(AssemblyAIConfig{
		APIKey:    "test-key",
		WSBaseURL: "ws" + strings.TrimPrefix(ts.URL, "http"),
	})
	s, events, err := p.StartSession(context.Background(), 16000)
	if err != nil {
		t.Fatal(err)
	}

	ev := <-events
	if ev.Kind != KindInterim || ev.Text != "hello" {
		t.Fatalf("first event = %+v", ev)
	}
	_ = s.Close()
	_ = s.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel never closed after Close")
		}
	}
}

func TestMockSessionFlushWithoutAudio(t *testing.T) {
	p := NewMockProvider()
	s, events, _ := p.StartSession(context.Background(), 16000)
	defer s.Close()

	if err := s.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	ev := <-events
	if ev.Kind != KindFinalFormatted || ev.Text != "" {
		t.Fatalf("silent flush should yield empty formatted final, got %+v", ev)
	}
}
