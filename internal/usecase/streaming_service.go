package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"voiceink/internal/domain"
	"voiceink/internal/ports"
)

const (
	defaultCommitTimeout = 10 * time.Second
	defaultSendInterval  = 50 * time.Millisecond
)

// StreamingConfig controls the streaming session manager.
type StreamingConfig struct {
	// Language is a language code or domain.LanguageAuto.
	Language      string
	CommitTimeout time.Duration
	SendInterval  time.Duration
	Log           *slog.Logger
}

// StreamingService owns at most one streaming transcription session at a time.
//
// Audio chunks are accepted from any goroutine via SendAudioChunk and
// forwarded to the provider by a background send loop. Committed segments are
// collected for the whole session and joined by StopAndGetFinalText.
type StreamingService struct {
	factory ports.ProviderFactory
	cfg     StreamingConfig
	log     *slog.Logger
	buffer  *ChunkBuffer

	mu      sync.Mutex
	state   domain.SessionState
	current *streamSession
}

func NewStreamingService(factory ports.ProviderFactory, cfg StreamingConfig) *StreamingService {
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = defaultCommitTimeout
	}
	if cfg.SendInterval <= 0 {
		cfg.SendInterval = defaultSendInterval
	}
	if cfg.Language == "" {
		cfg.Language = domain.LanguageAuto
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &StreamingService{
		factory: factory,
		cfg:     cfg,
		log:     cfg.Log.With("component", "streaming_service"),
		buffer:  NewChunkBuffer(),
		state:   domain.SessionStateIdle,
	}
}

// StartStreaming connects a new provider for model and starts the send loop
// and event consumer. ctx bounds the lifetime of the whole session.
func (s *StreamingService) StartStreaming(ctx context.Context, model domain.TranscriptionModel) error {
	s.mu.Lock()
	if s.state != domain.SessionStateIdle {
		s.mu.Unlock()
		return domain.ErrSessionActive
	}

	provider, err := s.factory.NewStreamingProvider(model)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	session := &streamSession{
		id:       uuid.NewString(),
		model:    model,
		provider: provider,
		segments: newSegmentLog(),
		ctx:      sessionCtx,
		cancel:   cancel,
	}
	s.state = domain.SessionStateConnecting
	s.current = session
	// Audio handed over while idle belongs to no session.
	s.buffer.Clear()
	language := s.cfg.Language
	s.mu.Unlock()

	log := s.log.With("session_id", session.id, "provider", model.Provider, "model", model.Name)
	log.Info("connecting streaming session", "language", language)

	connectErr := provider.Connect(sessionCtx, model, language)

	s.mu.Lock()
	if s.current != session {
		// Cancel ran while Connect was in flight; the provider is ours to tear down.
		s.mu.Unlock()
		cancel()
		if err := session.disconnect(); err != nil {
			log.Warn("failed to disconnect provider after cancelled connect", "error", err)
		}
		log.Info("streaming session cancelled during connect")
		return domain.ErrSessionCancelled
	}

	if connectErr != nil {
		s.state = domain.SessionStateFailed
		s.current = nil
		s.mu.Unlock()

		cancel()
		if err := session.disconnect(); err != nil {
			log.Warn("failed to disconnect provider after connect failure", "error", err)
		}
		s.buffer.Clear()
		s.settle(domain.SessionStateFailed)
		log.Error("streaming connect failed", "error", connectErr)
		return connectErr
	}

	sendCtx, sendCancel := context.WithCancel(sessionCtx)
	session.sendCancel = sendCancel
	session.sendDone = make(chan struct{})
	session.eventsDone = make(chan struct{})
	session.stopWatch = context.AfterFunc(ctx, func() {
		s.cancelSession(session)
	})
	s.state = domain.SessionStateStreaming
	s.mu.Unlock()

	go s.runSendLoop(sendCtx, session)
	go consumeTranscriptionEvents(session, log)

	log.Info("streaming session started")
	return nil
}

// SendAudioChunk hands a chunk to the send loop. It never blocks on network
// I/O and may be called in any state; chunks outside a session are dropped at
// cleanup.
func (s *StreamingService) SendAudioChunk(chunk []byte) {
	s.buffer.Append(chunk)
}

// StopAndGetFinalText flushes pending audio, commits the utterance and returns
// every committed segment of the session joined by a single space. If no new
// segment arrives within the commit timeout the text accumulated so far is
// returned.
func (s *StreamingService) StopAndGetFinalText(ctx context.Context) (string, error) {
	s.mu.Lock()
	session := s.current
	if session == nil || s.state != domain.SessionStateStreaming {
		s.mu.Unlock()
		return "", domain.ErrNotConnected
	}
	s.state = domain.SessionStateCommitting
	s.mu.Unlock()

	log := s.log.With("session_id", session.id)

	session.sendCancel()
	<-session.sendDone
	if flushed := s.flush(session); flushed > 0 {
		log.Debug("flushed buffered audio before commit", "chunks", flushed)
	}

	baseline, _ := session.segments.Len()
	if err := session.provider.Commit(); err != nil {
		if !s.teardown(session, domain.SessionStateFailed) {
			return "", domain.ErrSessionCancelled
		}
		log.Error("streaming commit failed", "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrCommitFailed, err)
	}

	if !s.awaitCommittedSegment(ctx, session, baseline) {
		log.Warn("no committed segment before timeout, returning accumulated transcript", "timeout", s.cfg.CommitTimeout)
	}

	text := session.segments.Text()
	if !s.teardown(session, domain.SessionStateDone) {
		return "", domain.ErrSessionCancelled
	}
	log.Info("streaming session finished", "segments_length", len(text))
	return text, nil
}

// Cancel abandons the current session without waiting for the provider to
// disconnect. Buffered audio is discarded.
func (s *StreamingService) Cancel() {
	s.mu.Lock()
	session := s.current
	s.mu.Unlock()

	if session == nil {
		return
	}
	s.cancelSession(session)
}

// IsActive reports whether audio is being streamed or committed.
func (s *StreamingService) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == domain.SessionStateStreaming || s.state == domain.SessionStateCommitting
}

func (s *StreamingService) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *StreamingService) cancelSession(session *streamSession) {
	if !s.release(session, domain.SessionStateCancelled) {
		return
	}

	if session.stopWatch != nil {
		session.stopWatch()
	}
	session.cancel()
	s.buffer.Clear()
	session.segments.Reset()
	connected := session.loopsStarted()
	s.settle(domain.SessionStateCancelled)

	log := s.log.With("session_id", session.id)
	log.Info("streaming session cancelled")

	// A session still connecting is torn down by StartStreaming once Connect returns.
	if !connected {
		return
	}
	go func() {
		if err := session.disconnect(); err != nil {
			log.Warn("failed to disconnect cancelled session", "error", err)
		}
		session.waitLoops()
	}()
}

// teardown releases every resource of session and returns the manager to
// idle. It reports false when the session was already released by Cancel.
func (s *StreamingService) teardown(session *streamSession, terminal domain.SessionState) bool {
	if !s.release(session, terminal) {
		return false
	}

	if session.stopWatch != nil {
		session.stopWatch()
	}
	session.cancel()
	if err := session.disconnect(); err != nil {
		s.log.Warn("failed to disconnect provider", "session_id", session.id, "error", err)
	}
	session.waitLoops()
	s.buffer.Clear()
	session.segments.Reset()
	s.settle(terminal)
	return true
}

// release detaches session from the manager and enters a terminal state.
func (s *StreamingService) release(session *streamSession, terminal domain.SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != session {
		return false
	}
	s.current = nil
	s.state = terminal
	return true
}

// settle returns a released manager to idle.
func (s *StreamingService) settle(terminal domain.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil && s.state == terminal {
		s.state = domain.SessionStateIdle
	}
}

func (s *StreamingService) awaitCommittedSegment(ctx context.Context, session *streamSession, baseline int) bool {
	timer := time.NewTimer(s.cfg.CommitTimeout)
	defer timer.Stop()

	for {
		count, changed := session.segments.Len()
		if count > baseline {
			return true
		}

		select {
		case <-changed:
		case <-session.eventsDone:
			count, _ = session.segments.Len()
			return count > baseline
		case <-session.ctx.Done():
			return false
		case <-ctx.Done():
			return false
		case <-timer.C:
			return false
		}
	}
}
