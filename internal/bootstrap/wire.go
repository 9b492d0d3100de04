package bootstrap

import (
	"log/slog"

	"github.com/samber/do/v2"

	"voiceink/internal/config"
	"voiceink/internal/ports"
	"voiceink/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.DictationController
	Streaming  *usecase.StreamingService
	Config     config.Config
}

// NewInjector registers every runtime dependency for cfg.
func NewInjector(cfg config.Config, events ports.EventSink, log *slog.Logger) do.Injector {
	if log == nil {
		log = slog.Default()
	}
	injector := do.New()
	do.ProvideValue(injector, &cfg)
	do.ProvideValue(injector, log)
	do.ProvideValue(injector, events)

	registerProviders(injector)
	registerStreaming(injector)
	registerDictation(injector)
	return injector
}

// Build wires all dependencies for cfg and resolves the top-level services.
func Build(cfg config.Config, events ports.EventSink, log *slog.Logger) (Services, error) {
	injector := NewInjector(cfg, events, log)

	controller, err := do.Invoke[*usecase.DictationController](injector)
	if err != nil {
		return Services{}, err
	}
	streaming, err := do.Invoke[*usecase.StreamingService](injector)
	if err != nil {
		return Services{}, err
	}
	return Services{Controller: controller, Streaming: streaming, Config: cfg}, nil
}
