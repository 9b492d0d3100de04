package usecase

import (
	"context"
	"time"
)

// runSendLoop drains the chunk buffer into the provider on every tick until
// ctx is done. A drained batch is always sent in full before ctx is checked
// again.
func (s *StreamingService) runSendLoop(ctx context.Context, session *streamSession) {
	defer close(session.sendDone)

	ticker := time.NewTicker(s.cfg.SendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.flush(session)
	}
}

// flush sends every pending chunk in arrival order. Send failures are logged
// and skipped.
func (s *StreamingService) flush(session *streamSession) int {
	chunks := s.drainFor(session)
	for i, chunk := range chunks {
		if err := session.provider.SendAudioChunk(chunk); err != nil {
			s.log.Warn("failed to send audio chunk",
				"session_id", session.id,
				"chunk", i,
				"batch", len(chunks),
				"bytes", len(chunk),
				"error", err,
			)
		}
	}
	return len(chunks)
}

// drainFor empties the buffer only while session still owns the manager, so a
// loop left over from a cancelled session cannot steal the next session's audio.
func (s *StreamingService) drainFor(session *streamSession) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != session {
		return nil
	}
	return s.buffer.DrainAll()
}
