package providers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"voiceink/internal/domain"
	"voiceink/internal/ports"
	"voiceink/internal/providers/deepgram"
	"voiceink/internal/providers/elevenlabs"
)

// Config carries per-backend settings for every streaming provider.
type Config struct {
	DeepgramBaseURL     string
	DeepgramSmartFormat bool
	ElevenLabsBaseURL   string
	KeepAliveInterval   time.Duration
	Dialer              *websocket.Dialer
	Log                 *slog.Logger
}

// Factory builds a fresh provider per session, keyed by the model's backend.
type Factory struct {
	cfg         Config
	credentials ports.CredentialStore
}

func NewFactory(cfg Config, credentials ports.CredentialStore) *Factory {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Factory{cfg: cfg, credentials: credentials}
}

// Supports reports whether provider has a streaming implementation.
func (f *Factory) Supports(provider domain.ModelProvider) bool {
	switch provider {
	case domain.ProviderDeepgram, domain.ProviderElevenLabs:
		return true
	default:
		return false
	}
}

func (f *Factory) NewStreamingProvider(model domain.TranscriptionModel) (ports.StreamingProvider, error) {
	switch model.Provider {
	case domain.ProviderDeepgram:
		return deepgram.NewProvider(deepgram.Config{
			APIBaseURL:        f.cfg.DeepgramBaseURL,
			SmartFormat:       f.cfg.DeepgramSmartFormat,
			KeepAliveInterval: f.cfg.KeepAliveInterval,
			Dialer:            f.cfg.Dialer,
			Log:               f.cfg.Log,
		}, f.credentials), nil
	case domain.ProviderElevenLabs:
		return elevenlabs.NewProvider(elevenlabs.Config{
			APIBaseURL:        f.cfg.ElevenLabsBaseURL,
			KeepAliveInterval: f.cfg.KeepAliveInterval,
			Dialer:            f.cfg.Dialer,
			Log:               f.cfg.Log,
		}, f.credentials), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, model.Provider)
	}
}
