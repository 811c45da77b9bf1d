package playback

import (
	"sync"

	"github.com/lucaferri/parla/internal/codec"
)

// Clock reports the audio device time in seconds.
type Clock interface {
	Now() float64
}

// Sink schedules a buffer of samples to start playing at an absolute device
// time and reports back when it finishes.
type Sink interface {
	Play(samples []float32, startAt float64, onEnded func())
}

// Scheduler turns an arriving stream of synthesized audio chunks into
// gapless playback: each buffer is scheduled at the later of the device's
// current time and the end of the previously scheduled buffer, so network
// jitter never causes overlap and only causes silence when the stream truly
// ran dry.
type Scheduler struct {
	mu         sync.Mutex
	clock      Clock
	sink       Sink
	sampleRate int
	playhead   float64
	active     int
	gen        int
	decoder    *codec.StreamDecoder
	onIdle     func()
}

func NewScheduler(clock Clock, sink Sink, sampleRate int) *Scheduler {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Scheduler{
		clock:      clock,
		sink:       sink,
		sampleRate: sampleRate,
		decoder:    codec.NewStreamDecoder(),
	}
}

// SetOnIdle registers a callback fired when the last scheduled buffer
// finishes and nothing else is queued.
func (s *Scheduler) SetOnIdle(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onIdle = fn
}

// Enqueue decodes one synthesized chunk and schedules it. Chunks that decode
// to zero samples (a bare container header, or malformed bytes) are skipped
// without advancing the playhead.
func (s *Scheduler) Enqueue(chunk []byte) {
	s.mu.Lock()
	samples := s.decoder.Decode(chunk)
	if len(samples) == 0 {
		s.mu.Unlock()
		return
	}

	now := s.clock.Now()
	start := s.playhead
	if now > start {
		start = now
	}
	s.playhead = start + float64(len(samples))/float64(s.sampleRate)
	s.active++
	gen := s.gen
	s.mu.Unlock()

	s.sink.Play(samples, start, func() {
		s.mu.Lock()
		// Buffers from before a Reset no longer count toward this
		// stream; their completions must not fire OnIdle into it.
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.active--
		idle := s.active == 0
		fn := s.onIdle
		s.mu.Unlock()
		if idle && fn != nil {
			fn()
		}
	})
}

// Reset prepares for a new response stream: the queue count is cleared, the
// playhead snaps back to the device clock, and the decoder re-arms its
// one-time header strip. Buffers still draining from the previous stream are
// orphaned rather than tracked.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playhead = 0
	s.active = 0
	s.gen++
	s.decoder = codec.NewStreamDecoder()
}

// Pending reports how many buffers are scheduled but not yet finished.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
