package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"

	"voiceink/internal/audio"
	"voiceink/internal/clipboard"
	"voiceink/internal/config"
	"voiceink/internal/credentials"
	"voiceink/internal/domain"
	"voiceink/internal/ports"
	"voiceink/internal/providers"
	"voiceink/internal/recording"
	"voiceink/internal/usecase"
)

func registerProviders(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*credentials.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return credentials.NewStore(map[domain.ModelProvider]string{
			domain.ProviderDeepgram:   cfg.Deepgram.APIKey,
			domain.ProviderElevenLabs: cfg.ElevenLabs.APIKey,
		}), nil
	})

	do.Provide(injector, func(i do.Injector) (*providers.Factory, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*slog.Logger](i)
		store := do.MustInvoke[*credentials.Store](i)
		return providers.NewFactory(providers.Config{
			DeepgramBaseURL:     cfg.Deepgram.APIBaseURL,
			DeepgramSmartFormat: cfg.Deepgram.SmartFormat,
			ElevenLabsBaseURL:   cfg.ElevenLabs.APIBaseURL,
			KeepAliveInterval:   cfg.Session.KeepAliveInterval,
			Log:                 log,
		}, store), nil
	})
}

func registerStreaming(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*usecase.StreamingService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*slog.Logger](i)
		factory := do.MustInvoke[*providers.Factory](i)
		return usecase.NewStreamingService(factory, usecase.StreamingConfig{
			Language:      cfg.Session.Language,
			CommitTimeout: cfg.Session.CommitTimeout,
			SendInterval:  cfg.Session.SendInterval,
			Log:           log,
		}), nil
	})
}

func registerDictation(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*audio.FFmpegCapture, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*slog.Logger](i)
		return audio.NewFFmpegCapture(audio.CaptureOptions{Command: cfg.Audio.RecorderCommand, Log: log}), nil
	})

	do.Provide(injector, func(i do.Injector) (*usecase.DictationController, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*slog.Logger](i)
		events := do.MustInvoke[ports.EventSink](i)
		capture := do.MustInvoke[*audio.FFmpegCapture](i)
		streaming := do.MustInvoke[*usecase.StreamingService](i)

		model, ok := domain.FindModel(cfg.Session.Model)
		if !ok {
			return nil, fmt.Errorf("unknown transcription model %q", cfg.Session.Model)
		}

		var recorder ports.Recorder
		if cfg.Output.RecordingsDir != "" {
			recorder = recording.NewWAVRecorder(cfg.Output.RecordingsDir, cfg.Audio.SampleRate, cfg.Audio.Channels)
		}
		var clip ports.Clipboard
		if cfg.Output.Clipboard {
			clip = clipboard.NewSystem()
		}

		return usecase.NewDictationController(capture, streaming, recorder, clip, events, usecase.DictationConfig{
			Model: model,
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			ChunkSize:      cfg.Session.ChunkSize,
			StreamingGrace: cfg.Session.StreamingGrace(),
			Log:            log,
		}), nil
	})
}
