package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func missingEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Deepgram.APIBaseURL != "https://api.deepgram.com/v1" || !cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram defaults: %+v", cfg.Deepgram)
	}
	if cfg.ElevenLabs.APIBaseURL != "https://api.elevenlabs.io/v1" {
		t.Fatalf("unexpected elevenlabs defaults: %+v", cfg.ElevenLabs)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Fatalf("unexpected audio format: %+v", cfg.Audio)
	}
	if cfg.Session.Model != "nova-3" || cfg.Session.Language != "auto" {
		t.Fatalf("unexpected session model/language: %+v", cfg.Session)
	}
	if cfg.Session.CommitTimeout != 10*time.Second || cfg.Session.SendInterval != 50*time.Millisecond {
		t.Fatalf("unexpected session timings: %+v", cfg.Session)
	}
	if cfg.Session.StreamingGrace() != time.Second {
		t.Fatalf("expected default grace, got %s", cfg.Session.StreamingGrace())
	}
	if !cfg.Output.Clipboard || cfg.Output.RecordingsDir != "" {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
}

func TestLoadRespectsOverrides(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", " dg-key ")
	t.Setenv("DEEPGRAM_API_BASE", "https://example.com/v1")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "false")
	t.Setenv("ELEVENLABS_API_KEY", "xi-key")
	t.Setenv("VOICEINK_MODEL", "scribe_v2_realtime")
	t.Setenv("VOICEINK_LANGUAGE", "en")
	t.Setenv("VOICEINK_FFMPEG_COMMAND", "my-ffmpeg")
	t.Setenv("VOICEINK_AUDIO_INPUT_FORMAT", "alsa")
	t.Setenv("VOICEINK_AUDIO_INPUT_DEVICE", "mic0")
	t.Setenv("VOICEINK_AUDIO_CHUNK_SIZE", "512")
	t.Setenv("VOICEINK_STREAMING_GRACE_MS", "25")
	t.Setenv("VOICEINK_COMMIT_TIMEOUT", "3s")
	t.Setenv("VOICEINK_SEND_INTERVAL", "20ms")
	t.Setenv("VOICEINK_RECORDINGS_DIR", "/tmp/recordings")
	t.Setenv("VOICEINK_CLIPBOARD", "false")
	t.Setenv("VOICEINK_LOG_LEVEL", "debug")
	t.Setenv("VOICEINK_LOG_FORMAT", "JSON")

	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Deepgram.APIKey != "dg-key" || cfg.Deepgram.APIBaseURL != "https://example.com/v1" || cfg.Deepgram.SmartFormat {
		t.Fatalf("unexpected deepgram config: %+v", cfg.Deepgram)
	}
	if cfg.ElevenLabs.APIKey != "xi-key" {
		t.Fatalf("unexpected elevenlabs config: %+v", cfg.ElevenLabs)
	}
	if cfg.Audio.RecorderCommand != "my-ffmpeg" || cfg.Audio.InputFormat != "alsa" || cfg.Audio.InputDevice != "mic0" {
		t.Fatalf("unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.Session.Model != "scribe_v2_realtime" || cfg.Session.Language != "en" || cfg.Session.ChunkSize != 512 {
		t.Fatalf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.Session.StreamingGrace() != 25*time.Millisecond || cfg.Session.CommitTimeout != 3*time.Second || cfg.Session.SendInterval != 20*time.Millisecond {
		t.Fatalf("unexpected session timings: %+v", cfg.Session)
	}
	if cfg.Output.RecordingsDir != "/tmp/recordings" || cfg.Output.Clipboard {
		t.Fatalf("unexpected output config: %+v", cfg.Output)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadNormalizesOutOfRangeValues(t *testing.T) {
	t.Setenv("VOICEINK_AUDIO_CHUNK_SIZE", "5")
	t.Setenv("VOICEINK_STREAMING_GRACE_MS", "-1")
	t.Setenv("VOICEINK_COMMIT_TIMEOUT", "0s")
	t.Setenv("VOICEINK_SEND_INTERVAL", "-5ms")

	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Session.ChunkSize != 4096 {
		t.Fatalf("expected chunk size fallback, got %d", cfg.Session.ChunkSize)
	}
	if cfg.Session.StreamingGrace() != time.Second {
		t.Fatalf("expected default grace, got %s", cfg.Session.StreamingGrace())
	}
	if cfg.Session.CommitTimeout != 10*time.Second || cfg.Session.SendInterval != 50*time.Millisecond {
		t.Fatalf("expected default timings, got %+v", cfg.Session)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("VOICEINK_COMMIT_TIMEOUT", "soon")

	if _, err := Load(missingEnvFile(t)); err == nil {
		t.Fatalf("expected malformed duration to fail")
	}
}

func TestLoadReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiceink.env")
	contents := "VOICEINK_MODEL=nova-2\nVOICEINK_LANGUAGE=de\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("VOICEINK_LANGUAGE", "fr")
	// godotenv sets process variables; restore them when the test ends.
	t.Setenv("VOICEINK_MODEL", "")
	os.Unsetenv("VOICEINK_MODEL")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Session.Model != "nova-2" {
		t.Fatalf("expected model from env file, got %q", cfg.Session.Model)
	}
	if cfg.Session.Language != "fr" {
		t.Fatalf("expected environment to win, got %q", cfg.Session.Language)
	}
}

func TestLogConfigSlogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := (LogConfig{Level: input}).SlogLevel(); got != want {
			t.Fatalf("level %q: expected %v, got %v", input, want, got)
		}
	}
}
