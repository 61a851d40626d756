package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	// Service configuration
	ServiceName string
	HTTPAddr    string
	LogLevel    string
	LogFormat   string

	// OpenAI configuration
	OpenAIAPIKey                string
	OpenAIBaseURL               string
	OpenAIChatModel             string
	OpenAITranscriptionModel    string
	OpenAITranscriptionLanguage string
	OpenAITTSModel              string
	OpenAITTSVoice              string
	OpenAITimeout               time.Duration

	// NATS configuration, disabled when NatsURL is empty
	NatsURL              string
	NatsRequestSubject   string
	NatsCompletedSubject string
	NatsTimeout          time.Duration

	// Redis transcript store, disabled when RedisURL is empty
	RedisURL     string
	SessionTTL   time.Duration
	HistoryLimit int

	MaxAudioBytes int64
}

func Load() *Config {
	return &Config{
		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "volunteer-intake"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		// OpenAI settings
		OpenAIAPIKey:                getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:               getEnv("OPENAI_BASE_URL", ""),
		OpenAIChatModel:             getEnv("OPENAI_CHAT_MODEL", "gpt-4o"),
		OpenAITranscriptionModel:    getEnv("OPENAI_TRANSCRIPTION_MODEL", "whisper-1"),
		OpenAITranscriptionLanguage: getEnv("OPENAI_TRANSCRIPTION_LANGUAGE", ""),
		OpenAITTSModel:              getEnv("OPENAI_TTS_MODEL", "tts-1"),
		OpenAITTSVoice:              getEnv("OPENAI_TTS_VOICE", "nova"),
		OpenAITimeout:               getDurationEnv("OPENAI_TIMEOUT", 60*time.Second),

		// NATS settings
		NatsURL:              getEnv("NATS_URL", ""),
		NatsRequestSubject:   getEnv("NATS_REQUEST_SUBJECT", "intake.turn"),
		NatsCompletedSubject: getEnv("NATS_COMPLETED_SUBJECT", "intake.completed"),
		NatsTimeout:          getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		// Redis settings
		RedisURL:     getEnv("REDIS_URL", ""),
		SessionTTL:   getDurationEnv("SESSION_TTL", 30*time.Minute),
		HistoryLimit: getIntEnv("HISTORY_LIMIT", 12),

		MaxAudioBytes: int64(getIntEnv("MAX_AUDIO_BYTES", 25<<20)),
	}
}

// Validate reports the first setting the service cannot start without.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY environment variable is required")
	}
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR must not be empty")
	}
	if c.MaxAudioBytes <= 0 {
		return errors.New("MAX_AUDIO_BYTES must be positive")
	}
	if c.HistoryLimit < 0 {
		return errors.New("HISTORY_LIMIT must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
