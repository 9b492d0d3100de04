package providers

import (
	"errors"
	"testing"

	"voiceink/internal/credentials"
	"voiceink/internal/domain"
	"voiceink/internal/providers/deepgram"
	"voiceink/internal/providers/elevenlabs"
)

func TestFactoryBuildsProviderPerBackend(t *testing.T) {
	t.Parallel()

	factory := NewFactory(Config{}, credentials.NewStore(nil))

	for _, model := range domain.PredefinedModels {
		provider, err := factory.NewStreamingProvider(model)
		switch model.Provider {
		case domain.ProviderDeepgram:
			if _, ok := provider.(*deepgram.Provider); !ok || err != nil {
				t.Fatalf("%s: expected deepgram provider, got %T err=%v", model.Name, provider, err)
			}
		case domain.ProviderElevenLabs:
			if _, ok := provider.(*elevenlabs.Provider); !ok || err != nil {
				t.Fatalf("%s: expected elevenlabs provider, got %T err=%v", model.Name, provider, err)
			}
		default:
			if !errors.Is(err, domain.ErrUnsupportedProvider) {
				t.Fatalf("%s: expected unsupported provider, got %v", model.Name, err)
			}
		}
	}
}

func TestFactoryReturnsFreshProviders(t *testing.T) {
	t.Parallel()

	factory := NewFactory(Config{}, credentials.NewStore(nil))
	model, _ := domain.FindModel("nova-3")

	first, _ := factory.NewStreamingProvider(model)
	second, _ := factory.NewStreamingProvider(model)
	if first == second {
		t.Fatalf("expected a new provider per session")
	}
}

func TestFactorySupportsMatchesCatalog(t *testing.T) {
	t.Parallel()

	factory := NewFactory(Config{}, credentials.NewStore(nil))
	for _, model := range domain.PredefinedModels {
		if factory.Supports(model.Provider) != model.SupportsStreaming {
			t.Fatalf("%s: Supports disagrees with catalog", model.Name)
		}
	}
}
