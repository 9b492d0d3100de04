package usecase

import (
	"context"
	"sync"

	"voiceink/internal/domain"
	"voiceink/internal/ports"
)

// streamSession holds everything owned by one streaming session. A new value
// is created per StartStreaming call and never reused.
type streamSession struct {
	id       string
	model    domain.TranscriptionModel
	provider ports.StreamingProvider
	segments *segmentLog

	ctx    context.Context
	cancel context.CancelFunc
	// stopWatch detaches the parent-context watcher.
	stopWatch func() bool

	sendCancel context.CancelFunc
	sendDone   chan struct{}
	eventsDone chan struct{}

	disconnectOnce sync.Once
	disconnectErr  error
}

func (s *streamSession) loopsStarted() bool {
	return s.sendDone != nil
}

func (s *streamSession) disconnect() error {
	s.disconnectOnce.Do(func() {
		s.disconnectErr = s.provider.Disconnect()
	})
	return s.disconnectErr
}

// waitLoops blocks until both background loops have exited.
func (s *streamSession) waitLoops() {
	if !s.loopsStarted() {
		return
	}
	<-s.sendDone
	<-s.eventsDone
}
