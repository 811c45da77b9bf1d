package client

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/lucaferri/parla/internal/playback"
	"github.com/lucaferri/parla/internal/protocol"
)

// Phase tracks where the push-to-talk loop sits.
type Phase string

const (
	// PhaseArmed means the mic button is ready to press.
	PhaseArmed Phase = "armed"
	// PhaseCapturing means audio is streaming to the server.
	PhaseCapturing Phase = "capturing"
	// PhaseWaiting covers transcription and generation after release.
	PhaseWaiting Phase = "waiting"
	// PhasePlaying means the reply is being spoken.
	PhasePlaying Phase = "playing"
)

// Sender delivers one client message to the server.
type Sender interface {
	Send(msg any) error
}

// Handlers receive server events for display. Nil handlers are skipped.
type Handlers struct {
	OnInterim func(text string)
	OnFinal   func(text string)
	OnDelta   func(text string)
	OnError   func(ev protocol.ErrorEvent)
}

// Controller runs the push-to-talk turn loop: press streams mic audio,
// release ends the turn, and server events drive the reply through the
// playback scheduler. Any turn-level error re-arms the button.
type Controller struct {
	mu        sync.Mutex
	phase     Phase
	sender    Sender
	scheduler *playback.Scheduler
	handlers  Handlers
}

func NewController(sender Sender, scheduler *playback.Scheduler, handlers Handlers) *Controller {
	c := &Controller{
		phase:     PhaseArmed,
		sender:    sender,
		scheduler: scheduler,
		handlers:  handlers,
	}
	scheduler.SetOnIdle(c.rearm)
	return c
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Press starts capturing. Pressing while the agent is replying is refused;
// the loop is half-duplex.
func (c *Controller) Press() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseArmed {
		return fmt.Errorf("cannot start capture in phase %s", c.phase)
	}
	c.phase = PhaseCapturing
	return nil
}

// SendAudio forwards one captured PCM chunk. Chunks outside the capturing
// phase are dropped silently; the mic pump may race a release.
func (c *Controller) SendAudio(pcm []byte) error {
	c.mu.Lock()
	capturing := c.phase == PhaseCapturing
	c.mu.Unlock()
	if !capturing || len(pcm) == 0 {
		return nil
	}
	return c.sender.Send(protocol.AudioChunk{
		Type:          protocol.TypeAudioChunk,
		PayloadBase64: base64.StdEncoding.EncodeToString(pcm),
	})
}

// Release ends the turn.
func (c *Controller) Release() error {
	c.mu.Lock()
	if c.phase != PhaseCapturing {
		c.mu.Unlock()
		return fmt.Errorf("cannot end turn in phase %s", c.phase)
	}
	c.phase = PhaseWaiting
	c.mu.Unlock()
	return c.sender.Send(protocol.EndOfTurn{Type: protocol.TypeEndOfTurn})
}

// HandleEvent dispatches one decoded server message.
func (c *Controller) HandleEvent(msg any) {
	switch m := msg.(type) {
	case protocol.InterimTranscript:
		if c.handlers.OnInterim != nil {
			c.handlers.OnInterim(m.Text)
		}
	case protocol.FinalTranscript:
		// A new reply stream follows; re-arm the decoder for its header.
		c.scheduler.Reset()
		if c.handlers.OnFinal != nil {
			c.handlers.OnFinal(m.Text)
		}
	case protocol.GeneratedTextChunk:
		if c.handlers.OnDelta != nil {
			c.handlers.OnDelta(m.Text)
		}
	case protocol.GenerationComplete:
		c.mu.Lock()
		if c.phase == PhaseWaiting {
			c.phase = PhasePlaying
		}
		c.mu.Unlock()
	case protocol.SynthesizedAudioChunk:
		chunk, err := base64.StdEncoding.DecodeString(m.PayloadBase64)
		if err != nil {
			return
		}
		c.scheduler.Enqueue(chunk)
	case protocol.ErrorEvent:
		if c.handlers.OnError != nil {
			c.handlers.OnError(m)
		}
		c.rearm()
	}
}

// rearm returns the loop to the pressable state. Fired by playback going
// idle and by turn-level errors.
func (c *Controller) rearm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseWaiting || c.phase == PhasePlaying {
		c.phase = PhaseArmed
	}
}
