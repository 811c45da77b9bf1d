package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/lucaferri/parla/internal/codec"
	"github.com/lucaferri/parla/internal/tts"
)

// SpeakOnce synthesizes a short standalone utterance and returns the raw
// PCM16LE bytes, container header already stripped. Used for auditioning a
// voice outside any session.
func (o *Orchestrator) SpeakOnce(ctx context.Context, voiceID, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	if strings.TrimSpace(voiceID) == "" {
		voiceID = o.defaultVoice
	}
	if strings.TrimSpace(text) == "" {
		text = "Hi. I'm listening."
	}

	providers, err := o.factory(nil)
	if err != nil {
		return nil, err
	}
	stream, err := providers.TTS.StartStream(ctx, voiceID)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.SendText(ctx, text, true); err != nil {
		_ = stream.CloseInput(ctx)
		return nil, err
	}
	_ = stream.CloseInput(ctx)

	var out bytes.Buffer
	decoder := codec.NewStreamDecoder()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case evt, ok := <-stream.Events():
			if !ok {
				return out.Bytes(), nil
			}
			switch evt.Type {
			case tts.EventAudio:
				if strings.TrimSpace(evt.AudioBase64) == "" {
					continue
				}
				chunk, err := base64.StdEncoding.DecodeString(evt.AudioBase64)
				if err != nil {
					return nil, fmt.Errorf("decode audio chunk: %w", err)
				}
				out.Write(codec.EncodePCM16(decoder.Decode(chunk)))
			case tts.EventFinal:
				return out.Bytes(), nil
			case tts.EventError:
				return nil, fmt.Errorf("tts error: %s", vendorDetail(evt.Code, evt.Detail))
			}
		}
	}
}
