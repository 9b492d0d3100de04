package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voiceink/internal/domain"
	"voiceink/internal/ports"
	"voiceink/internal/providers/wsclient"
)

const (
	defaultAPIBaseURL = "https://api.elevenlabs.io/v1"
	sampleRate        = 16000
	audioFormat       = "pcm_16000"
)

// Config controls ElevenLabs realtime settings.
type Config struct {
	APIBaseURL        string
	KeepAliveInterval time.Duration
	Dialer            *websocket.Dialer
	Log               *slog.Logger
}

// Provider implements ports.StreamingProvider for ElevenLabs realtime
// speech-to-text.
type Provider struct {
	cfg         Config
	credentials ports.CredentialStore
	log         *slog.Logger
	conn        *wsclient.Conn
}

func NewProvider(cfg Config, credentials ports.CredentialStore) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	log := cfg.Log.With("component", "elevenlabs_provider")

	p := &Provider{cfg: cfg, credentials: credentials, log: log}
	p.conn = wsclient.New(wsclient.Options{
		Dialer:            cfg.Dialer,
		Classify:          p.classify,
		KeepAlive:         func(c *wsclient.Conn) error { return c.WritePing() },
		KeepAliveInterval: cfg.KeepAliveInterval,
		Goodbye:           writeCloseFrame,
		Log:               log,
	})
	return p
}

func (p *Provider) Connect(ctx context.Context, model domain.TranscriptionModel, language string) error {
	apiKey, err := p.credentials.APIKey(domain.ProviderElevenLabs)
	if err != nil {
		return err
	}

	wsURL, err := buildRealtimeURL(p.cfg, model.Name, language)
	if err != nil {
		return err
	}

	headers := http.Header{}
	headers.Set("xi-api-key", apiKey)

	if err := p.conn.Dial(ctx, wsURL, headers); err != nil {
		return fmt.Errorf("failed to connect to ElevenLabs realtime websocket: %w", err)
	}
	return nil
}

type audioChunkMessage struct {
	MessageType string `json:"message_type"`
	AudioBase64 string `json:"audio_base_64"`
	Commit      bool   `json:"commit"`
	SampleRate  int    `json:"sample_rate"`
}

func (p *Provider) SendAudioChunk(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	return p.writeChunk(chunk, false)
}

// Commit sends an empty chunk flagged as the end of the utterance.
func (p *Provider) Commit() error {
	return p.writeChunk(nil, true)
}

func (p *Provider) Disconnect() error {
	return p.conn.Close()
}

func (p *Provider) Events() <-chan domain.TranscriptionEvent {
	return p.conn.Events()
}

func (p *Provider) writeChunk(chunk []byte, commit bool) error {
	payload, err := json.Marshal(audioChunkMessage{
		MessageType: "input_audio_chunk",
		AudioBase64: base64.StdEncoding.EncodeToString(chunk),
		Commit:      commit,
		SampleRate:  sampleRate,
	})
	if err != nil {
		return err
	}
	return p.conn.WriteText(payload)
}

type realtimeMessage struct {
	MessageType string          `json:"message_type"`
	Text        string          `json:"text"`
	Error       json.RawMessage `json:"error"`
	Message     string          `json:"message"`
}

var errorMessageTypes = map[string]bool{
	"quota_exceeded":              true,
	"unaccepted_terms":            true,
	"rate_limited":                true,
	"queue_overflow":              true,
	"resource_exhausted":          true,
	"session_time_limit_exceeded": true,
	"chunk_size_exceeded":         true,
	"insufficient_audio_activity": true,
	"commit_throttled":            true,
}

func (p *Provider) classify(messageType int, payload []byte) (domain.TranscriptionEvent, bool) {
	if messageType != websocket.TextMessage {
		return domain.TranscriptionEvent{}, false
	}

	var msg realtimeMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		p.log.Debug("ignoring undecodable elevenlabs frame", "error", err)
		return domain.TranscriptionEvent{}, false
	}

	kind := strings.ToLower(strings.TrimSpace(msg.MessageType))
	hasErrorField := len(msg.Error) > 0 && string(msg.Error) != "null"
	if hasErrorField || strings.HasSuffix(kind, "error") || errorMessageTypes[kind] {
		return domain.ErrorEvent(msg.serverError(kind, hasErrorField)), true
	}

	switch kind {
	case "session_started":
		return domain.SessionStarted(), true
	case "partial_transcript":
		if text := strings.TrimSpace(msg.Text); text != "" {
			return domain.Partial(text), true
		}
	case "committed_transcript":
		if text := strings.TrimSpace(msg.Text); text != "" {
			return domain.Committed(text), true
		}
	}
	return domain.TranscriptionEvent{}, false
}

func (m realtimeMessage) serverError(kind string, hasErrorField bool) error {
	message := strings.TrimSpace(m.Message)
	if message == "" && hasErrorField {
		var text string
		if err := json.Unmarshal(m.Error, &text); err == nil {
			message = text
		} else {
			message = string(m.Error)
		}
	}
	if message == "" {
		message = "elevenlabs returned an unknown error"
	}
	return &domain.ServerError{Provider: domain.ProviderElevenLabs, Code: kind, Message: message}
}

func writeCloseFrame(c *wsclient.Conn) error {
	return c.WriteClose(websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func buildRealtimeURL(providerCfg Config, model string, language string) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	if base == "" {
		base = defaultAPIBaseURL
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	realtimeURL, err := url.Parse(base + "/speech-to-text/realtime")
	if err != nil {
		return "", fmt.Errorf("%w: invalid ElevenLabs API base URL: %w", domain.ErrConnectionFailed, err)
	}
	if realtimeURL.Scheme != "ws" && realtimeURL.Scheme != "wss" {
		return "", fmt.Errorf("%w: unsupported ElevenLabs URL scheme %q", domain.ErrConnectionFailed, realtimeURL.Scheme)
	}

	query := realtimeURL.Query()
	query.Set("model_id", model)
	query.Set("audio_format", audioFormat)
	query.Set("commit_strategy", "manual")
	if language = strings.TrimSpace(language); language != "" && language != domain.LanguageAuto {
		query.Set("language_code", language)
	}
	realtimeURL.RawQuery = query.Encode()
	return realtimeURL.String(), nil
}
