package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lucaferri/parla/internal/archive"
	"github.com/lucaferri/parla/internal/brain"
	"github.com/lucaferri/parla/internal/observability"
	"github.com/lucaferri/parla/internal/protocol"
	"github.com/lucaferri/parla/internal/session"
	"github.com/lucaferri/parla/internal/stt"
	"github.com/lucaferri/parla/internal/tools"
	"github.com/lucaferri/parla/internal/tts"
)

const (
	ttsFinalizeTimeout = 10 * time.Second
	archiveSaveTimeout = 2 * time.Second
)

// Orchestrator drives the mic-to-speaker pipeline for websocket sessions:
// inbound audio feeds transcription, formatted finals feed generation, and
// generated text feeds synthesis while also streaming back to the client.
type Orchestrator struct {
	sessions       *session.Manager
	archiveStore   archive.Store
	factory        ProviderFactory
	registry       *tools.Registry
	metrics        *observability.Metrics
	defaultVoice   string
	toolRoundLimit int
}

func NewOrchestrator(
	sessions *session.Manager,
	archiveStore archive.Store,
	factory ProviderFactory,
	registry *tools.Registry,
	metrics *observability.Metrics,
	defaultVoice string,
	toolRoundLimit int,
) *Orchestrator {
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return &Orchestrator{
		sessions:       sessions,
		archiveStore:   archiveStore,
		factory:        factory,
		registry:       registry,
		metrics:        metrics,
		defaultVoice:   defaultVoice,
		toolRoundLimit: toolRoundLimit,
	}
}

type turnSignalKind int

const (
	turnSynthesizing turnSignalKind = iota
	turnCompleted
	turnFailed
)

type turnSignal struct {
	kind      turnSignalKind
	token     int64
	userText  string
	agentText string
	code      string
	source    string
	retryable bool
	detail    string
}

// RunConnection drives one websocket connection from handshake to close.
// The first accepted message must be configure; everything after follows the
// turn lifecycle, with out-of-place messages rejected and state preserved.
func (o *Orchestrator) RunConnection(ctx context.Context, inbound <-chan any, outbound chan<- any) error {
	var (
		state      = protocol.StateIdle
		sess       *session.Session
		providers  Providers
		sttSession stt.Session
		sttEvents  <-chan stt.Event
		audioSeen  bool
		turnToken  int64
		turnCancel context.CancelFunc
		turnAt     time.Time
	)

	turnSignals := make(chan turnSignal, 8)

	// Latest-wins relay for interim transcripts: a newer interim displaces
	// one still waiting, so a slow client sees fresh text instead of a
	// backlog of stale revisions.
	interimCh := make(chan protocol.InterimTranscript, 1)
	defer close(interimCh)
	go func() {
		for msg := range interimCh {
			select {
			case outbound <- msg:
				o.metrics.WSMessages.WithLabelValues("out", string(protocol.TypeInterimTranscript)).Inc()
			case <-ctx.Done():
				return
			}
		}
	}()
	relayInterim := func(text string) {
		msg := protocol.InterimTranscript{Type: protocol.TypeInterimTranscript, Text: text}
		if dropped := offerInterim(interimCh, msg); dropped > 0 {
			o.metrics.InterimDropped.Add(float64(dropped))
		}
	}

	cancelActiveTurn := func() {
		if turnCancel != nil {
			turnCancel()
			turnCancel = nil
		}
		turnToken++
	}
	defer cancelActiveTurn()
	defer func() {
		if sttSession != nil {
			_ = sttSession.Close()
		}
		if sess != nil {
			_, _ = o.sessions.End(sess.ID)
			o.metrics.ActiveSessions.Dec()
		}
	}()

	rejectOutOfPlace := func(t protocol.MessageType) {
		o.metrics.SessionEvents.WithLabelValues("protocol_violation").Inc()
		o.send(ctx, outbound, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			Code:      protocol.CodeProtocolViolation,
			Source:    "orchestrator",
			Retryable: false,
			Detail:    fmt.Sprintf("%s not accepted in state %s", t, state),
		})
	}

	startTurn := func(userText string) {
		o.send(ctx, outbound, protocol.FinalTranscript{Type: protocol.TypeFinalTranscript, Text: userText})
		state = protocol.StateGenerating
		audioSeen = false
		turnAt = time.Now()

		turnCtx, cancel := context.WithCancel(ctx)
		turnCancel = cancel
		turnToken++
		token := turnToken
		go o.runAgentTurn(turnCtx, *sess, providers, userText, turnAt, token, outbound, turnSignals)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			switch m := msg.(type) {
			case protocol.Configure:
				if !state.Accepts(protocol.TypeConfigure) {
					rejectOutOfPlace(protocol.TypeConfigure)
					continue
				}
				var err error
				providers, err = o.factory(m.Credentials)
				if err != nil {
					o.send(ctx, outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						Code:      protocol.CodeConfigurationError,
						Source:    "orchestrator",
						Retryable: false,
						Detail:    err.Error(),
					})
					return err
				}
				sess, err = o.sessions.Create(m.SessionID, m.Persona, m.SampleRate)
				if err != nil {
					o.send(ctx, outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						Code:      protocol.CodeConfigurationError,
						Source:    "orchestrator",
						Retryable: false,
						Detail:    err.Error(),
					})
					return err
				}
				sttSession, sttEvents, err = providers.STT.StartSession(ctx, m.SampleRate)
				if err != nil {
					o.send(ctx, outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						Code:      protocol.CodeVendorPipeError,
						Source:    "stt",
						Retryable: true,
						Detail:    err.Error(),
					})
					return err
				}
				o.metrics.ActiveSessions.Inc()
				o.metrics.SessionEvents.WithLabelValues("configured").Inc()
				state = protocol.StateAwaitingAudio

			case protocol.AudioChunk:
				if !state.Accepts(protocol.TypeAudioChunk) {
					rejectOutOfPlace(protocol.TypeAudioChunk)
					continue
				}
				pcm, err := base64.StdEncoding.DecodeString(m.PayloadBase64)
				if err != nil {
					o.send(ctx, outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						Code:      protocol.CodeInvalidClientMessage,
						Source:    "orchestrator",
						Retryable: false,
						Detail:    "audio payload is not valid base64",
					})
					continue
				}
				_ = o.sessions.Touch(sess.ID)
				audioSeen = true
				if err := sttSession.SendAudio(ctx, pcm); err != nil {
					o.send(ctx, outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						Code:      protocol.CodeVendorPipeError,
						Source:    "stt",
						Retryable: true,
						Detail:    err.Error(),
					})
				}

			case protocol.EndOfTurn:
				if !state.Accepts(protocol.TypeEndOfTurn) {
					rejectOutOfPlace(protocol.TypeEndOfTurn)
					continue
				}
				_ = o.sessions.Touch(sess.ID)
				if !audioSeen {
					o.metrics.TurnsFailed.WithLabelValues(protocol.CodeNoSpeechDetected).Inc()
					o.send(ctx, outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						Code:      protocol.CodeNoSpeechDetected,
						Source:    "orchestrator",
						Retryable: true,
						Detail:    "end of turn without any audio",
					})
					continue
				}
				if err := sttSession.Flush(ctx); err != nil {
					o.send(ctx, outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						Code:      protocol.CodeVendorPipeError,
						Source:    "stt",
						Retryable: true,
						Detail:    err.Error(),
					})
					continue
				}
				state = protocol.StateEndOfTurnPending
			}

		case evt, ok := <-sttEvents:
			if !ok {
				if state != protocol.StateIdle {
					o.send(ctx, outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						Code:      protocol.CodeVendorPipeError,
						Source:    "stt",
						Retryable: true,
						Detail:    "transcription stream closed",
					})
				}
				return nil
			}
			switch evt.Kind {
			case stt.KindInterim:
				if strings.TrimSpace(evt.Text) != "" {
					relayInterim(evt.Text)
				}
			case stt.KindFinalUnformatted:
				// The formatted revision follows shortly; acting here would
				// generate against text that is about to change.
				o.metrics.SessionEvents.WithLabelValues("unformatted_final_discarded").Inc()
			case stt.KindFinalFormatted:
				if state != protocol.StateAwaitingAudio && state != protocol.StateEndOfTurnPending {
					o.metrics.SessionEvents.WithLabelValues("stale_final_discarded").Inc()
					continue
				}
				text := strings.TrimSpace(evt.Text)
				if text == "" {
					o.metrics.TurnsFailed.WithLabelValues(protocol.CodeNoSpeechDetected).Inc()
					o.send(ctx, outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						Code:      protocol.CodeNoSpeechDetected,
						Source:    "stt",
						Retryable: true,
						Detail:    "no speech detected in turn",
					})
					state = protocol.StateAwaitingAudio
					audioSeen = false
					continue
				}
				startTurn(text)
			case stt.KindError:
				o.metrics.VendorErrors.WithLabelValues("assemblyai", evt.Code).Inc()
				o.send(ctx, outbound, protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					Code:      protocol.CodeVendorPipeError,
					Source:    "stt",
					Retryable: evt.Retryable,
					Detail:    vendorDetail(evt.Code, evt.Detail),
				})
				cancelActiveTurn()
				state = protocol.StateAwaitingAudio
				audioSeen = false
			}

		case sig := <-turnSignals:
			if sig.token != turnToken {
				// A cancelled turn still winding down; nothing to do.
				continue
			}
			switch sig.kind {
			case turnSynthesizing:
				state = protocol.StateSynthesizing
			case turnCompleted:
				turnCancel = nil
				o.commitExchange(ctx, sess, sig.userText, sig.agentText)
				o.metrics.TurnsCompleted.Inc()
				state = protocol.StateAwaitingAudio
			case turnFailed:
				turnCancel = nil
				o.metrics.TurnsFailed.WithLabelValues(sig.code).Inc()
				o.send(ctx, outbound, protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					Code:      sig.code,
					Source:    sig.source,
					Retryable: sig.retryable,
					Detail:    sig.detail,
				})
				state = protocol.StateAwaitingAudio
			}
		}
	}
}

// runAgentTurn produces one agent reply: optional tool rounds, then a
// streamed generation fanned out to the client and the synthesizer, then a
// drain of the synthesis stream. Nothing is committed here; the outcome
// travels back on signals.
func (o *Orchestrator) runAgentTurn(
	ctx context.Context,
	s session.Session,
	providers Providers,
	userText string,
	startedAt time.Time,
	token int64,
	outbound chan<- any,
	signals chan<- turnSignal,
) {
	fail := func(source, detail string, retryable bool) {
		select {
		case signals <- turnSignal{
			kind:      turnFailed,
			token:     token,
			code:      protocol.CodeVendorPipeError,
			source:    source,
			retryable: retryable,
			detail:    detail,
		}:
		case <-ctx.Done():
		}
	}

	req := brain.Request{
		SystemPrompt: brain.PersonaPrompt(s.Persona),
		Tools:        o.registry.Declarations(),
	}
	history, err := o.sessions.History(s.ID)
	if err == nil {
		for _, ex := range history {
			req.History = append(req.History,
				brain.Message{Role: brain.RoleUser, Text: ex.UserText},
				brain.Message{Role: brain.RoleAgent, Text: ex.AgentText},
			)
		}
	}
	req.History = append(req.History, brain.Message{Role: brain.RoleUser, Text: userText})

	// Tool rounds are bounded; a failed probe or tool degrades to a plain
	// reply instead of failing the turn.
	if prober, ok := providers.Brain.(brain.ToolProber); ok && o.registry.Len() > 0 {
		for round := 0; round < o.toolRoundLimit; round++ {
			call, err := prober.ProbeToolCall(ctx, req)
			if err != nil {
				log.Printf("tool probe failed session=%s: %v", s.ID, err)
				break
			}
			if call == nil {
				break
			}
			o.metrics.VendorRequests.WithLabelValues("tools", call.Name).Inc()
			result, err := o.registry.Execute(ctx, *call)
			if err != nil {
				log.Printf("tool execution failed session=%s tool=%s: %v", s.ID, call.Name, err)
				break
			}
			req.ToolResults = append(req.ToolResults, result)
		}
	}

	ttsStream, err := providers.TTS.StartStream(ctx, o.defaultVoice)
	if err != nil {
		fail("tts", err.Error(), true)
		return
	}

	ttsDone := make(chan struct{})
	go func() {
		defer close(ttsDone)
		firstAudio := false
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-ttsStream.Events():
				if !ok {
					return
				}
				switch evt.Type {
				case tts.EventAudio:
					if evt.AudioBase64 == "" {
						continue
					}
					if !firstAudio {
						firstAudio = true
						o.metrics.ObserveFirstAudioLatency(time.Since(startedAt))
					}
					o.send(ctx, outbound, protocol.SynthesizedAudioChunk{
						Type:          protocol.TypeSynthesizedAudioChunk,
						PayloadBase64: evt.AudioBase64,
					})
				case tts.EventFinal:
					return
				case tts.EventError:
					o.metrics.VendorErrors.WithLabelValues("elevenlabs", evt.Code).Inc()
					o.send(ctx, outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						Code:      protocol.CodeVendorPipeError,
						Source:    "tts",
						Retryable: evt.Retryable,
						Detail:    vendorDetail(evt.Code, evt.Detail),
					})
				}
			}
		}
	}()

	o.metrics.VendorRequests.WithLabelValues("gemini", "stream_generate").Inc()
	reply, err := providers.Brain.StreamReply(ctx, req, func(delta string) error {
		o.send(ctx, outbound, protocol.GeneratedTextChunk{
			Type: protocol.TypeGeneratedTextChunk,
			Text: delta,
		})
		return ttsStream.SendText(ctx, delta, true)
	})
	if err != nil {
		_ = ttsStream.Close()
		if errors.Is(err, context.Canceled) {
			return
		}
		fail("brain", err.Error(), true)
		return
	}

	o.send(ctx, outbound, protocol.GenerationComplete{Type: protocol.TypeGenerationComplete})
	select {
	case signals <- turnSignal{kind: turnSynthesizing, token: token}:
	case <-ctx.Done():
		_ = ttsStream.Close()
		return
	}

	_ = ttsStream.CloseInput(ctx)
	finalize := time.NewTimer(ttsFinalizeTimeout)
	defer finalize.Stop()
	select {
	case <-ttsDone:
	case <-finalize.C:
		log.Printf("tts finalize timeout session=%s", s.ID)
	case <-ctx.Done():
	}
	_ = ttsStream.Close()

	select {
	case signals <- turnSignal{
		kind:      turnCompleted,
		token:     token,
		userText:  userText,
		agentText: reply.Text,
	}:
	case <-ctx.Done():
	}
}

// commitExchange appends the finished turn to the session log and archives
// it best-effort.
func (o *Orchestrator) commitExchange(ctx context.Context, sess *session.Session, userText, agentText string) {
	if err := o.sessions.AppendExchange(sess.ID, userText, agentText); err != nil {
		log.Printf("append exchange session=%s: %v", sess.ID, err)
	}
	if o.archiveStore == nil {
		return
	}
	go func() {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveSaveTimeout)
		defer cancel()
		if err := o.archiveStore.SaveExchange(saveCtx, archive.ExchangeRecord{
			SessionID: sess.ID,
			Persona:   sess.Persona,
			UserText:  userText,
			AgentText: agentText,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			log.Printf("archive exchange session=%s: %v", sess.ID, err)
		}
	}()
}

// send delivers one authoritative outbound message, blocking until the
// writer takes it or the connection ends. Only the interim relay is allowed
// to drop; everything routed here carries ordering the client relies on.
func (o *Orchestrator) send(ctx context.Context, outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
		if t, ok := protocol.MessageTypeOf(msg); ok {
			o.metrics.WSMessages.WithLabelValues("out", string(t)).Inc()
		}
	case <-ctx.Done():
	}
}

// offerInterim places msg in the single-slot relay, displacing a stale
// interim still waiting for the writer. Returns how many pending messages
// were dropped to make room.
func offerInterim(ch chan protocol.InterimTranscript, msg protocol.InterimTranscript) int {
	dropped := 0
	for {
		select {
		case ch <- msg:
			return dropped
		default:
		}
		select {
		case <-ch:
			dropped++
		default:
		}
	}
}

func vendorDetail(code, detail string) string {
	code = strings.TrimSpace(code)
	detail = strings.TrimSpace(detail)
	switch {
	case code == "":
		return detail
	case detail == "":
		return code
	default:
		return code + ": " + detail
	}
}
