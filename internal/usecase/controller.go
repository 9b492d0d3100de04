package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"voiceink/internal/domain"
	"voiceink/internal/ports"
)

var (
	ErrNoActiveSession = errors.New("no active recording session")
	ErrNoTranscript    = errors.New("no transcript captured")
)

// Streamer is the part of StreamingService the dictation controller drives.
type Streamer interface {
	StartStreaming(ctx context.Context, model domain.TranscriptionModel) error
	SendAudioChunk(chunk []byte)
	StopAndGetFinalText(ctx context.Context) (string, error)
	Cancel()
}

// DictationConfig controls push-to-talk behavior.
type DictationConfig struct {
	Model          domain.TranscriptionModel
	Audio          ports.AudioConfig
	ChunkSize      int
	StreamingGrace time.Duration
	Log            *slog.Logger
}

// DictationController captures microphone audio into a streaming session and
// delivers the final transcript.
type DictationController struct {
	audio     ports.AudioCapture
	streamer  Streamer
	recorder  ports.Recorder
	events    ports.EventSink
	finalizer transcriptFinalizer
	cfg       DictationConfig
	log       *slog.Logger

	mu      sync.Mutex
	current *activeDictation
}

// NewDictationController wires a controller. recorder and clipboard may be nil.
func NewDictationController(
	audio ports.AudioCapture,
	streamer Streamer,
	recorder ports.Recorder,
	clipboard ports.Clipboard,
	events ports.EventSink,
	cfg DictationConfig,
) *DictationController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &DictationController{
		audio:     audio,
		streamer:  streamer,
		recorder:  recorder,
		events:    events,
		finalizer: newTranscriptFinalizer(clipboard, events),
		cfg:       cfg,
		log:       cfg.Log.With("component", "dictation"),
	}
}

// Model returns the configured transcription model.
func (c *DictationController) Model() domain.TranscriptionModel {
	return c.cfg.Model
}

// Start begins a new capture/transcription session. A session already in
// progress is discarded first.
func (c *DictationController) Start(ctx context.Context) error {
	if !c.cfg.Model.SupportsStreaming {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, c.cfg.Model.Name)
	}

	c.mu.Lock()
	previous := c.current
	c.current = nil
	c.mu.Unlock()

	if previous != nil {
		c.log.Info("discarding previous dictation", "dictation_id", previous.id)
		c.stopSession(previous)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	if err := c.streamer.StartStreaming(sessionCtx, c.cfg.Model); err != nil {
		cancel()
		return err
	}

	audioSession, err := c.audio.Start(sessionCtx, c.cfg.Audio)
	if err != nil {
		c.streamer.Cancel()
		cancel()
		return err
	}

	active := &activeDictation{
		id:        uuid.NewString(),
		cancel:    cancel,
		audio:     audioSession,
		state:     domain.SessionStateStreaming,
		audioDone: make(chan struct{}),
	}
	if c.recorder != nil {
		recording, err := c.recorder.Start(active.id)
		if err != nil {
			c.log.Warn("recording disabled for dictation", "dictation_id", active.id, "error", err)
			c.events.SessionError(domain.ErrorCodeRecording, err.Error())
		} else {
			active.recording = recording
		}
	}

	c.mu.Lock()
	c.current = active
	c.mu.Unlock()

	go pumpAudioChunks(active.audio, c.audioSink(active), c.cfg.ChunkSize, c.events, active.audioDone)

	c.log.Info("dictation started", "dictation_id", active.id, "model", c.cfg.Model.Name)
	c.events.SessionStateChanged(domain.SessionStateStreaming, domain.SessionReasonRecordingStarted)
	return nil
}

// Stop ends the active dictation and returns the final transcript.
func (c *DictationController) Stop(ctx context.Context) (domain.StopResult, error) {
	active, err := c.getCurrent()
	if err != nil {
		return domain.StopResult{}, err
	}

	active.setState(domain.SessionStateCommitting)
	c.events.SessionStateChanged(domain.SessionStateCommitting, domain.SessionReasonTranscribing)

	if err := active.audio.Stop(); err != nil {
		c.events.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}
	<-active.audioDone

	if c.cfg.StreamingGrace > 0 {
		timer := time.NewTimer(c.cfg.StreamingGrace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	transcript, streamErr := c.streamer.StopAndGetFinalText(ctx)
	recordingPath := c.closeRecording(active)

	if streamErr != nil {
		c.events.SessionError(domain.ErrorCodeTranscription, streamErr.Error())
		c.finishSession(active, domain.SessionStateFailed, domain.SessionReasonTranscriptionFailed)
		return domain.StopResult{RecordingPath: recordingPath}, streamErr
	}
	if transcript == "" {
		c.finishSession(active, domain.SessionStateDone, domain.SessionReasonNoTranscript)
		return domain.StopResult{RecordingPath: recordingPath}, ErrNoTranscript
	}

	result, reason := c.finalizer.Finalize(ctx, transcript)
	result.RecordingPath = recordingPath

	c.events.FinalTranscript(result.Transcript)
	c.finishSession(active, domain.SessionStateDone, reason)
	return result, nil
}

// Abort cancels and discards the active dictation without transcription.
func (c *DictationController) Abort() error {
	active, err := c.getCurrent()
	if err != nil {
		return err
	}

	c.stopSession(active)
	c.finishSession(active, domain.SessionStateCancelled, domain.SessionReasonRecordingDiscarded)
	return nil
}

// Status returns the current dictation status.
func (c *DictationController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Status{State: domain.SessionStateIdle, Model: c.cfg.Model.Name}
	}
	state := c.current.getState()
	return domain.Status{
		State:  state,
		Active: state == domain.SessionStateStreaming || state == domain.SessionStateCommitting,
		Model:  c.cfg.Model.Name,
	}
}

func (c *DictationController) audioSink(active *activeDictation) func([]byte) {
	return func(chunk []byte) {
		c.streamer.SendAudioChunk(chunk)
		if active.recording == nil {
			return
		}
		if err := active.recording.Write(chunk); err != nil {
			c.log.Warn("failed to record audio chunk", "dictation_id", active.id, "error", err)
		}
	}
}

func (c *DictationController) closeRecording(active *activeDictation) string {
	if active.recording == nil {
		return ""
	}
	if err := active.recording.Close(); err != nil {
		c.events.SessionError(domain.ErrorCodeRecording, err.Error())
		return ""
	}
	return active.recording.Path()
}

func (c *DictationController) getCurrent() (*activeDictation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, ErrNoActiveSession
	}
	return c.current, nil
}

func (c *DictationController) stopSession(active *activeDictation) {
	c.streamer.Cancel()
	active.cancel()
	_ = active.audio.Stop()
	<-active.audioDone
	c.closeRecording(active)
}

func (c *DictationController) finishSession(active *activeDictation, state domain.SessionState, reason domain.SessionStateReason) {
	active.cancel()
	active.setState(state)

	c.mu.Lock()
	if c.current == active {
		c.current = nil
	}
	c.mu.Unlock()

	c.log.Info("dictation finished", "dictation_id", active.id, "state", state, "reason", reason)
	c.events.SessionStateChanged(state, reason)
}
