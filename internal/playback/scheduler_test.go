package playback

import (
	"testing"

	"github.com/lucaferri/parla/internal/codec"
)

type fakeClock struct{ t float64 }

func (c *fakeClock) Now() float64 { return c.t }

type scheduled struct {
	samples int
	startAt float64
	onEnded func()
}

type fakeSink struct{ played []scheduled }

func (s *fakeSink) Play(samples []float32, startAt float64, onEnded func()) {
	s.played = append(s.played, scheduled{samples: len(samples), startAt: startAt, onEnded: onEnded})
}

func pcmChunk(n int) []byte {
	return codec.EncodePCM16(make([]float32, n))
}

func TestGaplessSchedulingUnderJitter(t *testing.T) {
	clock := &fakeClock{}
	sink := &fakeSink{}
	s := NewScheduler(clock, sink, 16000)

	// Three chunks arrive in a burst at t=0: each must start where the
	// previous one ends, not at the clock.
	s.Enqueue(pcmChunk(1600)) // 0.1s
	s.Enqueue(pcmChunk(1600))
	s.Enqueue(pcmChunk(800)) // 0.05s

	if len(sink.played) != 3 {
		t.Fatalf("scheduled %d buffers, want 3", len(sink.played))
	}
	wantStarts := []float64{0, 0.1, 0.2}
	for i, p := range sink.played {
		if diff := p.startAt - wantStarts[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("buffer %d startAt = %f, want %f", i, p.startAt, wantStarts[i])
		}
	}

	// A late chunk after the stream ran dry starts at the clock, never in
	// the past.
	clock.t = 1.0
	s.Enqueue(pcmChunk(1600))
	if got := sink.played[3].startAt; got != 1.0 {
		t.Fatalf("late buffer startAt = %f, want 1.0", got)
	}
}

func TestHeaderOnlyChunkSkipped(t *testing.T) {
	clock := &fakeClock{}
	sink := &fakeSink{}
	s := NewScheduler(clock, sink, 16000)

	headerOnly, err := codec.EncodeWAV(nil, 16000)
	if err != nil {
		t.Fatal(err)
	}
	s.Enqueue(headerOnly)
	if len(sink.played) != 0 {
		t.Fatal("header-only chunk must not be scheduled")
	}

	// The next chunk plays from the clock with no phantom gap.
	s.Enqueue(pcmChunk(1600))
	if len(sink.played) != 1 || sink.played[0].startAt != 0 {
		t.Fatalf("unexpected schedule after skip: %+v", sink.played)
	}
}

func TestHeaderStrippedFromFirstChunkOnly(t *testing.T) {
	clock := &fakeClock{}
	sink := &fakeSink{}
	s := NewScheduler(clock, sink, 16000)

	withHeader, err := codec.EncodeWAV(make([]byte, 3200), 16000)
	if err != nil {
		t.Fatal(err)
	}
	s.Enqueue(withHeader)
	if sink.played[0].samples != 1600 {
		t.Fatalf("first buffer has %d samples, want 1600 after header strip", sink.played[0].samples)
	}

	s.Enqueue(pcmChunk(1600))
	if sink.played[1].samples != 1600 {
		t.Fatalf("second buffer has %d samples, want 1600 untouched", sink.played[1].samples)
	}
}

func TestResetReArmsDecoderAndPlayhead(t *testing.T) {
	clock := &fakeClock{}
	sink := &fakeSink{}
	s := NewScheduler(clock, sink, 16000)

	first, _ := codec.EncodeWAV(make([]byte, 3200), 16000)
	s.Enqueue(first)
	s.Reset()

	// A fresh stream leads with its own header; it must be stripped again.
	second, _ := codec.EncodeWAV(make([]byte, 1600), 16000)
	s.Enqueue(second)
	last := sink.played[len(sink.played)-1]
	if last.samples != 800 {
		t.Fatalf("post-reset buffer has %d samples, want 800", last.samples)
	}
	if last.startAt != 0 {
		t.Fatalf("post-reset startAt = %f, want clock time 0", last.startAt)
	}
}

func TestResetOrphansPriorStreamBuffers(t *testing.T) {
	clock := &fakeClock{}
	sink := &fakeSink{}
	s := NewScheduler(clock, sink, 16000)

	idles := 0
	s.SetOnIdle(func() { idles++ })

	s.Enqueue(pcmChunk(1600))
	s.Reset()
	if s.Pending() != 0 {
		t.Fatalf("pending after reset = %d, want 0", s.Pending())
	}

	s.Enqueue(pcmChunk(800))
	if s.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", s.Pending())
	}

	// The pre-reset buffer finishing must not signal idle into the new
	// stream, nor disturb its count.
	sink.played[0].onEnded()
	if idles != 0 {
		t.Fatal("orphaned buffer fired idle into the new stream")
	}
	if s.Pending() != 1 {
		t.Fatalf("pending after orphan completion = %d, want 1", s.Pending())
	}

	sink.played[1].onEnded()
	if idles != 1 {
		t.Fatalf("idle fired %d times, want 1", idles)
	}
}

func TestOnIdleFiresWhenDrained(t *testing.T) {
	clock := &fakeClock{}
	sink := &fakeSink{}
	s := NewScheduler(clock, sink, 16000)

	idles := 0
	s.SetOnIdle(func() { idles++ })

	s.Enqueue(pcmChunk(1600))
	s.Enqueue(pcmChunk(1600))
	if s.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", s.Pending())
	}

	sink.played[0].onEnded()
	if idles != 0 {
		t.Fatal("idle fired while a buffer was still playing")
	}
	sink.played[1].onEnded()
	if idles != 1 {
		t.Fatalf("idle fired %d times, want 1", idles)
	}
}
