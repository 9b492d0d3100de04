package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"voiceink/internal/bootstrap"
	"voiceink/internal/config"
	"voiceink/internal/domain"
	"voiceink/internal/usecase"
)

// App is the command-line application root. It receives session events from
// the dictation controller and reports them through the logger.
type App struct {
	log *slog.Logger

	controller *usecase.DictationController
	cfg        config.Config
	bootErr    error
}

func NewApp(log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{log: log.With("component", "app")}
}

func (a *App) startup(cfg config.Config) error {
	services, err := bootstrap.Build(cfg, a, a.log)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return err
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
	return nil
}

// StartDictation starts capturing and streaming microphone audio.
func (a *App) StartDictation(ctx context.Context) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(ctx); err != nil {
		a.SessionError(domain.ErrorCodeTranscription, err.Error())
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// StopDictation stops capturing and returns the final transcript.
func (a *App) StopDictation(ctx context.Context) (domain.StopResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.StopResult{}, err
	}
	return a.controller.Stop(ctx)
}

// AbortDictation discards an in-progress dictation.
func (a *App) AbortDictation() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Abort(); err != nil && !errors.Is(err, usecase.ErrNoActiveSession) {
		a.SessionError(domain.ErrorCodeTranscription, err.Error())
		return err
	}
	return nil
}

// GetStatus returns the current dictation status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateFailed, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle}
	}
	return a.controller.Status()
}

// RuntimeInfo returns non-sensitive settings for display.
func (a *App) RuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	model := a.controller.Model()
	return map[string]string{
		"provider":         string(model.Provider),
		"model":            model.Name,
		"language":         a.cfg.Session.Language,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"recordingsDir":    a.cfg.Output.RecordingsDir,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	a.log.Info(sessionReasonMessage(reason), "state", state, "reason", reason)
}

func (a *App) FinalTranscript(text string) {
	a.log.Debug("final transcript", "chars", len(text))
}

func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.log.Error(errorMessage(code, detail), "code", code, "detail", detail)
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonRecordingStarted:
		return "Recording started"
	case domain.SessionReasonTranscribing:
		return "Recording stopped. Transcribing..."
	case domain.SessionReasonTranscriptCopied:
		return "Transcript copied to clipboard"
	case domain.SessionReasonTranscriptReady:
		return "Transcript ready"
	case domain.SessionReasonClipboardFailed:
		return "Transcript ready (clipboard write failed)"
	case domain.SessionReasonRecordingDiscarded:
		return "Recording discarded"
	case domain.SessionReasonNoTranscript:
		return "No transcript captured"
	case domain.SessionReasonTranscriptionFailed:
		return "Transcription failed"
	default:
		return "Session state changed"
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeRecording:
		return "Recording issue"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	case domain.ErrorCodeTranscription:
		return "Transcription error"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
