package voice

import (
	"fmt"
	"strings"

	"github.com/lucaferri/parla/internal/brain"
	"github.com/lucaferri/parla/internal/config"
	"github.com/lucaferri/parla/internal/protocol"
	"github.com/lucaferri/parla/internal/stt"
	"github.com/lucaferri/parla/internal/tts"
)

// Providers bundles the three vendor pipes one session needs.
type Providers struct {
	STT   stt.Provider
	Brain brain.Adapter
	TTS   tts.Provider
}

// ProviderFactory builds the vendor pipes for one session. Per-session
// credentials override the process-wide keys; a missing key in live mode is a
// configuration error surfaced before any audio flows.
type ProviderFactory func(creds *protocol.Credentials) (Providers, error)

// NewProviderFactory selects providers per the configured mode. "auto" goes
// live when every vendor key is present and falls back to mocks otherwise.
func NewProviderFactory(cfg config.Config) ProviderFactory {
	return func(creds *protocol.Credentials) (Providers, error) {
		assemblyKey := cfg.AssemblyAIAPIKey
		geminiKey := cfg.GeminiAPIKey
		elevenKey := cfg.ElevenLabsAPIKey
		if creds != nil {
			if strings.TrimSpace(creds.AssemblyAIAPIKey) != "" {
				assemblyKey = strings.TrimSpace(creds.AssemblyAIAPIKey)
			}
			if strings.TrimSpace(creds.GeminiAPIKey) != "" {
				geminiKey = strings.TrimSpace(creds.GeminiAPIKey)
			}
			if strings.TrimSpace(creds.ElevenLabsAPIKey) != "" {
				elevenKey = strings.TrimSpace(creds.ElevenLabsAPIKey)
			}
		}

		allKeys := assemblyKey != "" && geminiKey != "" && elevenKey != ""
		mode := cfg.VoiceProvider
		if mode == "auto" {
			if allKeys {
				mode = "live"
			} else {
				mode = "mock"
			}
		}

		switch mode {
		case "mock":
			return Providers{
				STT:   stt.NewMockProvider(),
				Brain: brain.NewMockAdapter(),
				TTS:   tts.NewMockProvider(),
			}, nil
		case "live":
			var missing []string
			if assemblyKey == "" {
				missing = append(missing, "assemblyai")
			}
			if geminiKey == "" {
				missing = append(missing, "gemini")
			}
			if elevenKey == "" {
				missing = append(missing, "elevenlabs")
			}
			if len(missing) > 0 {
				return Providers{}, fmt.Errorf("missing api keys: %s", strings.Join(missing, ", "))
			}
			return Providers{
				STT: stt.NewAssemblyAIProvider(stt.AssemblyAIConfig{
					APIKey:    assemblyKey,
					WSBaseURL: cfg.AssemblyAIWSBaseURL,
				}),
				Brain: brain.NewGeminiAdapter(brain.GeminiConfig{
					APIKey:  geminiKey,
					BaseURL: cfg.GeminiBaseURL,
					Model:   cfg.GeminiModel,
				}),
				TTS: tts.NewElevenLabsProvider(tts.ElevenLabsConfig{
					APIKey:       elevenKey,
					WSBaseURL:    cfg.ElevenLabsWSBaseURL,
					ModelID:      cfg.ElevenLabsTTSModel,
					OutputFormat: cfg.ElevenLabsTTSOutputFormat,
					VoiceID:      cfg.ElevenLabsTTSVoice,
				}),
			}, nil
		default:
			return Providers{}, fmt.Errorf("unknown voice provider mode %q", mode)
		}
	}
}
