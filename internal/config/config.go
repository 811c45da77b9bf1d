package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the voice agent service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	FirstAudioSLO            time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	VoiceProvider string

	SampleRate           int
	CaptureChunkDuration time.Duration

	AssemblyAIAPIKey    string
	AssemblyAIWSBaseURL string

	GeminiAPIKey   string
	GeminiBaseURL  string
	GeminiModel    string
	ToolRoundLimit int

	ElevenLabsAPIKey          string
	ElevenLabsWSBaseURL       string
	ElevenLabsTTSVoice        string
	ElevenLabsTTSModel        string
	ElevenLabsTTSOutputFormat string

	TavilyAPIKey string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:             envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:     envOrDefault("APP_METRICS_NAMESPACE", "parla"),
		AllowAnyOrigin:       false,
		VoiceProvider:        envOrDefault("VOICE_PROVIDER", "auto"),
		SampleRate:           16000,
		CaptureChunkDuration: 100 * time.Millisecond,
		AssemblyAIWSBaseURL:  envOrDefault("ASSEMBLYAI_WS_BASE_URL", "wss://streaming.assemblyai.com"),
		GeminiBaseURL:        envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:          envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		ToolRoundLimit:       1,
		ElevenLabsWSBaseURL:  envOrDefault("ELEVENLABS_WS_BASE_URL", "wss://api.elevenlabs.io"),
		// Warm premade voice; overridable per deployment.
		ElevenLabsTTSVoice: envOrDefault("ELEVENLABS_TTS_VOICE_ID", "cgSgspJ2msm6clMCkdW9"),
		ElevenLabsTTSModel: envOrDefault("ELEVENLABS_TTS_MODEL_ID", "eleven_multilingual_v2"),
		// Raw PCM keeps synthesis latency low; the WAV header on the first
		// chunk is stripped by the stream decoder.
		ElevenLabsTTSOutputFormat: envOrDefault("ELEVENLABS_TTS_OUTPUT_FORMAT", "pcm_16000"),
		AssemblyAIAPIKey:          trimmedEnv("ASSEMBLYAI_API_KEY"),
		GeminiAPIKey:              trimmedEnv("GEMINI_API_KEY"),
		ElevenLabsAPIKey:          trimmedEnv("ELEVENLABS_API_KEY"),
		TavilyAPIKey:              trimmedEnv("TAVILY_API_KEY"),
		DatabaseURL:               trimmedEnv("DATABASE_URL"),
		ShutdownTimeout:           15 * time.Second,
		SessionInactivityTimeout:  2 * time.Minute,
		FirstAudioSLO:             700 * time.Millisecond,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.FirstAudioSLO, err = durationFromEnv("APP_FIRST_AUDIO_SLO", cfg.FirstAudioSLO)
	if err != nil {
		return Config{}, err
	}
	cfg.CaptureChunkDuration, err = durationFromEnv("APP_CAPTURE_CHUNK_DURATION", cfg.CaptureChunkDuration)
	if err != nil {
		return Config{}, err
	}
	cfg.SampleRate, err = intFromEnv("APP_SAMPLE_RATE", cfg.SampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.ToolRoundLimit, err = intFromEnv("TOOL_ROUND_LIMIT", cfg.ToolRoundLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.SampleRate <= 0 {
		return Config{}, fmt.Errorf("APP_SAMPLE_RATE must be positive")
	}
	if cfg.CaptureChunkDuration < 10*time.Millisecond {
		return Config{}, fmt.Errorf("APP_CAPTURE_CHUNK_DURATION must be at least 10ms")
	}
	if cfg.ToolRoundLimit < 0 {
		return Config{}, fmt.Errorf("TOOL_ROUND_LIMIT must be >= 0")
	}
	switch cfg.VoiceProvider {
	case "auto", "live", "mock":
	default:
		return Config{}, fmt.Errorf("VOICE_PROVIDER must be one of auto, live, mock")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
