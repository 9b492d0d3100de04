package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultSampleRate     = 16000
	defaultChannels       = 1
	defaultChunkSize      = 4096
	minChunkSize          = 256
	defaultGraceMS        = 1000
	defaultCommitTimeout  = 10 * time.Second
	defaultSendInterval   = 50 * time.Millisecond
	defaultKeepAlive      = 5 * time.Second
	defaultEnvFile        = ".env"
	defaultModelName      = "nova-3"
	defaultLanguage       = "auto"
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
	defaultFFmpegCommand  = "ffmpeg"
	defaultInputFormat    = "pulse"
	defaultInputDevice    = "default"
	defaultDeepgramBase   = "https://api.deepgram.com/v1"
	defaultElevenLabsBase = "https://api.elevenlabs.io/v1"
)

// Config stores runtime configuration for a dictation session.
type Config struct {
	Deepgram   DeepgramConfig
	ElevenLabs ElevenLabsConfig
	Audio      AudioConfig
	Session    SessionConfig
	Output     OutputConfig
	Log        LogConfig
}

type DeepgramConfig struct {
	APIKey      string `env:"DEEPGRAM_API_KEY"`
	APIBaseURL  string `env:"DEEPGRAM_API_BASE" envDefault:"https://api.deepgram.com/v1"`
	SmartFormat bool   `env:"DEEPGRAM_SMART_FORMAT" envDefault:"true"`
}

type ElevenLabsConfig struct {
	APIKey     string `env:"ELEVENLABS_API_KEY"`
	APIBaseURL string `env:"ELEVENLABS_API_BASE" envDefault:"https://api.elevenlabs.io/v1"`
}

type AudioConfig struct {
	RecorderCommand string `env:"VOICEINK_FFMPEG_COMMAND" envDefault:"ffmpeg"`
	InputFormat     string `env:"VOICEINK_AUDIO_INPUT_FORMAT" envDefault:"pulse"`
	InputDevice     string `env:"VOICEINK_AUDIO_INPUT_DEVICE" envDefault:"default"`
	SampleRate      int
	Channels        int
}

type SessionConfig struct {
	Model             string        `env:"VOICEINK_MODEL" envDefault:"nova-3"`
	Language          string        `env:"VOICEINK_LANGUAGE" envDefault:"auto"`
	ChunkSize         int           `env:"VOICEINK_AUDIO_CHUNK_SIZE" envDefault:"4096"`
	StreamingGraceMS  int           `env:"VOICEINK_STREAMING_GRACE_MS" envDefault:"1000"`
	CommitTimeout     time.Duration `env:"VOICEINK_COMMIT_TIMEOUT" envDefault:"10s"`
	SendInterval      time.Duration `env:"VOICEINK_SEND_INTERVAL" envDefault:"50ms"`
	KeepAliveInterval time.Duration `env:"VOICEINK_KEEPALIVE_INTERVAL" envDefault:"5s"`
}

// StreamingGrace is how long Stop waits for in-flight audio before committing.
func (s SessionConfig) StreamingGrace() time.Duration {
	return time.Duration(s.StreamingGraceMS) * time.Millisecond
}

type OutputConfig struct {
	RecordingsDir string `env:"VOICEINK_RECORDINGS_DIR"`
	Clipboard     bool   `env:"VOICEINK_CLIPBOARD" envDefault:"true"`
}

type LogConfig struct {
	Level  string `env:"VOICEINK_LOG_LEVEL" envDefault:"info"`
	Format string `env:"VOICEINK_LOG_FORMAT" envDefault:"text"`
}

// SlogLevel maps the configured level name onto a slog level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads optional .env files and then resolves configuration from the
// environment. Variables already set in the environment take precedence over
// .env entries. With no paths, ./.env is tried.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{defaultEnvFile}
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("environment variables are invalid: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Deepgram.APIKey = strings.TrimSpace(c.Deepgram.APIKey)
	c.ElevenLabs.APIKey = strings.TrimSpace(c.ElevenLabs.APIKey)
	c.Deepgram.APIBaseURL = orDefault(c.Deepgram.APIBaseURL, defaultDeepgramBase)
	c.ElevenLabs.APIBaseURL = orDefault(c.ElevenLabs.APIBaseURL, defaultElevenLabsBase)

	c.Audio.RecorderCommand = orDefault(c.Audio.RecorderCommand, defaultFFmpegCommand)
	c.Audio.InputFormat = orDefault(c.Audio.InputFormat, defaultInputFormat)
	c.Audio.InputDevice = orDefault(c.Audio.InputDevice, defaultInputDevice)
	c.Audio.SampleRate = defaultSampleRate
	c.Audio.Channels = defaultChannels

	c.Session.Model = orDefault(c.Session.Model, defaultModelName)
	c.Session.Language = orDefault(c.Session.Language, defaultLanguage)
	if c.Session.ChunkSize < minChunkSize {
		c.Session.ChunkSize = defaultChunkSize
	}
	if c.Session.StreamingGraceMS < 0 {
		c.Session.StreamingGraceMS = defaultGraceMS
	}
	if c.Session.CommitTimeout <= 0 {
		c.Session.CommitTimeout = defaultCommitTimeout
	}
	if c.Session.SendInterval <= 0 {
		c.Session.SendInterval = defaultSendInterval
	}
	if c.Session.KeepAliveInterval <= 0 {
		c.Session.KeepAliveInterval = defaultKeepAlive
	}

	c.Output.RecordingsDir = strings.TrimSpace(c.Output.RecordingsDir)
	c.Log.Level = orDefault(c.Log.Level, defaultLogLevel)
	c.Log.Format = strings.ToLower(orDefault(c.Log.Format, defaultLogFormat))
}

func orDefault(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
