// parlacli drives a voice session from the terminal: each input file is
// streamed as one spoken turn and the agent's reply is played back through
// ffplay. Useful for exercising a server without a browser microphone.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucaferri/parla/internal/capture"
	"github.com/lucaferri/parla/internal/client"
	"github.com/lucaferri/parla/internal/codec"
	"github.com/lucaferri/parla/internal/playback"
	"github.com/lucaferri/parla/internal/protocol"
)

func main() {
	var (
		serverURL  = flag.String("server", "ws://localhost:8080/v1/session/ws", "session websocket URL")
		persona    = flag.String("persona", "default", "agent persona")
		sampleRate = flag.Int("rate", 16000, "sample rate of the input audio in Hz")
		chunkDur   = flag.Duration("chunk", 100*time.Millisecond, "mic chunk duration")
		noSpeaker  = flag.Bool("no-speaker", false, "discard reply audio instead of playing it")
		ffplayPath = flag.String("ffplay", "ffplay", "path to the ffplay binary")
		turnWait   = flag.Duration("turn-timeout", 60*time.Second, "max wait for one reply to finish")
	)
	flag.Parse()

	inputs := flag.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := newWallClock()
	var sink playback.Sink = discardSink{}
	if !*noSpeaker {
		speaker, err := newFFPlaySink(*ffplayPath, *sampleRate, clock)
		if err != nil {
			log.Fatalf("speaker: %v (use -no-speaker to run without audio output)", err)
		}
		defer speaker.Close()
		sink = speaker
	}
	scheduler := playback.NewScheduler(clock, sink, *sampleRate)

	configure := protocol.Configure{
		SessionID:  uuid.NewString(),
		Persona:    *persona,
		SampleRate: *sampleRate,
	}

	// The controller must exist before Dial starts the read loop, so the
	// sender is bound to the connection after the fact.
	sender := &lateSender{}
	controller := client.NewController(sender, scheduler, client.Handlers{
		OnInterim: func(text string) { fmt.Printf("\r... %s", text) },
		OnFinal:   func(text string) { fmt.Printf("\ryou: %s\n", text) },
		OnDelta:   func(text string) { fmt.Print(text) },
		OnError: func(ev protocol.ErrorEvent) {
			fmt.Printf("\nerror [%s/%s]: %s\n", ev.Source, ev.Code, ev.Detail)
		},
	})

	ws, err := client.Dial(ctx, *serverURL, configure, controller.HandleEvent)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer ws.Close()
	sender.bind(ws)

	log.Printf("connected to %s as session %s", *serverURL, configure.SessionID)

	for _, path := range inputs {
		samples, err := loadUtterance(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		if err := speakTurn(ctx, controller, samples, *sampleRate, *chunkDur); err != nil {
			log.Fatalf("turn %s: %v", path, err)
		}
		if err := awaitRearm(ctx, controller, ws.Done(), *turnWait); err != nil {
			log.Fatalf("turn %s: %v", path, err)
		}
		fmt.Println()
	}
}

// loadUtterance reads one audio file (or stdin for "-") as 16-bit PCM.
// A leading WAV header is stripped.
func loadUtterance(path string) ([]float32, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	samples := codec.NewStreamDecoder().Decode(data)
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples in input")
	}
	return samples, nil
}

// speakTurn streams one utterance as a press-and-hold turn, pacing chunks at
// real time so the transcriber sees a live mic rather than a burst.
func speakTurn(ctx context.Context, c *client.Controller, samples []float32, sampleRate int, chunkDur time.Duration) error {
	if err := c.Press(); err != nil {
		return err
	}

	var sendErr error
	buf := capture.NewBuffer(sampleRate, chunkDur, func(pcm []byte) {
		if sendErr == nil {
			sendErr = c.SendAudio(pcm)
		}
	})

	chunkSamples := int(float64(sampleRate) * chunkDur.Seconds())
	ticker := time.NewTicker(chunkDur)
	defer ticker.Stop()
	for off := 0; off < len(samples); off += chunkSamples {
		end := off + chunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		buf.Add(samples[off:end])
		if sendErr != nil {
			return sendErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	buf.Flush()
	if sendErr != nil {
		return sendErr
	}
	return c.Release()
}

// awaitRearm blocks until the reply has fully played and the push-to-talk
// loop is pressable again.
func awaitRearm(ctx context.Context, c *client.Controller, connDone <-chan struct{}, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-connDone:
			return fmt.Errorf("connection closed")
		case <-deadline.C:
			return fmt.Errorf("reply did not finish within %s", timeout)
		case <-tick.C:
			if c.Phase() == client.PhaseArmed {
				return nil
			}
		}
	}
}

// lateSender lets the controller be wired up before the connection exists.
type lateSender struct {
	mu sync.Mutex
	ws *client.WSClient
}

func (s *lateSender) bind(ws *client.WSClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ws = ws
}

func (s *lateSender) Send(msg any) error {
	s.mu.Lock()
	ws := s.ws
	s.mu.Unlock()
	if ws == nil {
		return fmt.Errorf("not connected")
	}
	return ws.Send(msg)
}

// wallClock maps the playback timeline onto real time.
type wallClock struct{ start time.Time }

func newWallClock() *wallClock { return &wallClock{start: time.Now()} }

func (c *wallClock) Now() float64 { return time.Since(c.start).Seconds() }

// discardSink swallows audio but still fires completion so the turn loop
// re-arms without a speaker.
type discardSink struct{}

func (discardSink) Play(_ []float32, _ float64, onEnded func()) {
	if onEnded != nil {
		go onEnded()
	}
}

// ffplaySink pipes scheduled buffers into a long-lived ffplay process.
// ffplay consumes stdin at real time, so writing buffers in schedule order
// preserves the gapless timeline; onEnded fires on the wall clock when the
// buffer's slot has elapsed.
type ffplaySink struct {
	mu    sync.Mutex
	stdin io.WriteCloser
	cmd   *exec.Cmd
	rate  int
	clock playback.Clock
}

func newFFPlaySink(path string, sampleRate int, clock playback.Clock) (*ffplaySink, error) {
	// ffplay takes -ch_layout rather than ffmpeg's -ac for channels.
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-nodisp",
		"-autoexit",
		"-f", "s16le",
		"-ch_layout", "mono",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-i", "-",
	}
	cmd := exec.Command(path, args...)
	if runtime.GOOS == "darwin" && os.Getenv("SDL_AUDIODRIVER") == "" {
		// SDL can pick a silent dummy backend on macOS; prefer CoreAudio.
		cmd.Env = append(os.Environ(), "SDL_AUDIODRIVER=coreaudio")
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, err
	}
	return &ffplaySink{stdin: stdin, cmd: cmd, rate: sampleRate, clock: clock}, nil
}

func (s *ffplaySink) Play(samples []float32, startAt float64, onEnded func()) {
	s.mu.Lock()
	_, err := s.stdin.Write(codec.EncodePCM16(samples))
	s.mu.Unlock()
	if err != nil {
		log.Printf("ffplay write: %v", err)
	}

	endAt := startAt + float64(len(samples))/float64(s.rate)
	delay := time.Duration((endAt - s.clock.Now()) * float64(time.Second))
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, onEnded)
}

func (s *ffplaySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.stdin.Close()
	return s.cmd.Wait()
}
