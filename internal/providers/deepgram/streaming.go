package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voiceink/internal/domain"
	"voiceink/internal/ports"
	"voiceink/internal/providers/wsclient"
)

const (
	defaultAPIBaseURL = "https://api.deepgram.com/v1"
	sampleRate        = 16000
	encoding          = "linear16"
)

var (
	finalizeMessage    = []byte(`{"type":"Finalize"}`)
	keepAliveMessage   = []byte(`{"type":"KeepAlive"}`)
	closeStreamMessage = []byte(`{"type":"CloseStream"}`)
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIBaseURL        string
	SmartFormat       bool
	KeepAliveInterval time.Duration
	Dialer            *websocket.Dialer
	Log               *slog.Logger
}

// Provider implements ports.StreamingProvider for Deepgram's live API.
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
	log := cfg.Log.With("component", "deepgram_provider")

	p := &Provider{cfg: cfg, credentials: credentials, log: log}
	p.conn = wsclient.New(wsclient.Options{
		Dialer:            cfg.Dialer,
		Classify:          p.classify,
		KeepAlive:         func(c *wsclient.Conn) error { return c.WriteText(keepAliveMessage) },
		KeepAliveInterval: cfg.KeepAliveInterval,
		Goodbye:           func(c *wsclient.Conn) error { return c.WriteText(closeStreamMessage) },
		AnnounceSession:   true,
		Log:               log,
	})
	return p
}

func (p *Provider) Connect(ctx context.Context, model domain.TranscriptionModel, language string) error {
	apiKey, err := p.credentials.APIKey(domain.ProviderDeepgram)
	if err != nil {
		return err
	}

	wsURL, err := buildListenURL(p.cfg, model.Name, language)
	if err != nil {
		return err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+apiKey)

	if err := p.conn.Dial(ctx, wsURL, headers); err != nil {
		return fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}
	p.log.Debug("deepgram websocket connected", "model", model.Name)
	return nil
}

func (p *Provider) SendAudioChunk(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	return p.conn.WriteBinary(chunk)
}

// Commit asks Deepgram to finalize buffered audio without closing the stream.
func (p *Provider) Commit() error {
	return p.conn.WriteText(finalizeMessage)
}

func (p *Provider) Disconnect() error {
	return p.conn.Close()
}

func (p *Provider) Events() <-chan domain.TranscriptionEvent {
	return p.conn.Events()
}

type deepgramResponse struct {
	Type        string          `json:"type"`
	Error       json.RawMessage `json:"error"`
	Description string          `json:"description"`
	Message     string          `json:"message"`
	ErrCode     string          `json:"err_code"`
	ErrMsg      string          `json:"err_msg"`
	IsFinal     bool            `json:"is_final"`
	SpeechFinal bool            `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (p *Provider) classify(messageType int, payload []byte) (domain.TranscriptionEvent, bool) {
	if messageType != websocket.TextMessage {
		return domain.TranscriptionEvent{}, false
	}

	var response deepgramResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		p.log.Debug("ignoring undecodable deepgram frame", "error", err)
		return domain.TranscriptionEvent{}, false
	}

	if serverErr := response.serverError(); serverErr != nil {
		return domain.ErrorEvent(serverErr), true
	}

	if response.Type != "" && !strings.EqualFold(response.Type, "Results") {
		return domain.TranscriptionEvent{}, false
	}

	transcript := extractTranscript(response)
	if transcript == "" {
		return domain.TranscriptionEvent{}, false
	}
	if response.IsFinal || response.SpeechFinal {
		return domain.Committed(transcript), true
	}
	return domain.Partial(transcript), true
}

func (r deepgramResponse) serverError() error {
	hasErrorField := len(r.Error) > 0 && string(r.Error) != "null"
	if !hasErrorField && !strings.EqualFold(r.Type, "Error") && r.ErrCode == "" {
		return nil
	}

	message := firstNonEmpty(r.Description, r.Message, r.ErrMsg)
	if message == "" && hasErrorField {
		var text string
		if err := json.Unmarshal(r.Error, &text); err == nil {
			message = text
		} else {
			message = string(r.Error)
		}
	}
	if message == "" {
		message = "deepgram returned an unknown error"
	}
	return &domain.ServerError{Provider: domain.ProviderDeepgram, Code: r.ErrCode, Message: message}
}

func extractTranscript(response deepgramResponse) string {
	if len(response.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
}

func buildListenURL(providerCfg Config, model string, language string) (string, error) {
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

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("%w: invalid Deepgram API base URL: %w", domain.ErrConnectionFailed, err)
	}
	if listenURL.Scheme != "ws" && listenURL.Scheme != "wss" {
		return "", fmt.Errorf("%w: unsupported Deepgram URL scheme %q", domain.ErrConnectionFailed, listenURL.Scheme)
	}

	query := listenURL.Query()
	query.Set("model", model)
	query.Set("encoding", encoding)
	query.Set("sample_rate", strconv.Itoa(sampleRate))
	query.Set("channels", "1")
	query.Set("punctuate", "true")
	query.Set("smart_format", strconv.FormatBool(providerCfg.SmartFormat))
	query.Set("interim_results", "true")
	if language = strings.TrimSpace(language); language != "" && language != domain.LanguageAuto {
		query.Set("language", language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
