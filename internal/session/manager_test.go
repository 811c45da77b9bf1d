package session

import (
	"testing"
	"time"
)

func TestCreateAndGet(t *testing.T) {
	m := NewManager(time.Minute)
	s, err := m.Create("", "default", 16000)
	if err != nil {
		t.Fatal(err)
	}
	if s.ID == "" {
		t.Fatal("expected generated id")
	}
	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Persona != "default" || got.SampleRate != 16000 || got.Status != StatusActive {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	m := NewManager(time.Minute)
	if _, err := m.Create("dup", "default", 16000); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create("dup", "default", 16000); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}

func TestAppendExchangeGrowsLogAtomically(t *testing.T) {
	m := NewManager(time.Minute)
	s, _ := m.Create("", "default", 16000)

	if err := m.AppendExchange(s.ID, "hi", "hello there"); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendExchange(s.ID, "weather?", "sunny"); err != nil {
		t.Fatal(err)
	}

	log, err := m.History(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 2 {
		t.Fatalf("log length = %d, want 2", len(log))
	}
	if log[0].UserText != "hi" || log[0].AgentText != "hello there" {
		t.Fatalf("first exchange mangled: %+v", log[0])
	}

	got, _ := m.Get(s.ID)
	if got.TurnCount != 2 {
		t.Fatalf("TurnCount = %d, want 2", got.TurnCount)
	}
}

func TestHistoryIsSnapshot(t *testing.T) {
	m := NewManager(time.Minute)
	s, _ := m.Create("", "default", 16000)
	m.AppendExchange(s.ID, "a", "b")

	log, _ := m.History(s.ID)
	log[0].UserText = "mutated"

	fresh, _ := m.History(s.ID)
	if fresh[0].UserText != "a" {
		t.Fatal("History returned shared backing storage")
	}
}

func TestExpireInactiveFiresHook(t *testing.T) {
	m := NewManager(5 * time.Second)
	s, _ := m.Create("", "default", 16000)

	expired := make(chan string, 1)
	m.SetExpireHook(func(es *Session) { expired <- es.ID })

	// Backdate activity past the timeout, then sweep directly.
	m.mu.Lock()
	m.sessions[s.ID].LastActivityAt = time.Now().UTC().Add(-time.Minute)
	m.mu.Unlock()
	m.expireInactive()

	select {
	case id := <-expired:
		if id != s.ID {
			t.Fatalf("expired wrong session: %s", id)
		}
	default:
		t.Fatal("expire hook did not fire")
	}

	got, _ := m.Get(s.ID)
	if got.Status != StatusEnded {
		t.Fatalf("status = %s, want ended", got.Status)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d, want 0", m.ActiveCount())
	}
}
