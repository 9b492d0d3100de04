package usecase

import (
	"log/slog"
	"strings"
	"sync"

	"voiceink/internal/domain"
)

// segmentLog is the ordered list of committed segments of one session.
type segmentLog struct {
	mu       sync.Mutex
	segments []string
	changed  chan struct{}
}

func newSegmentLog() *segmentLog {
	return &segmentLog{changed: make(chan struct{})}
}

// Add appends a trimmed, non-empty segment and wakes waiters.
func (l *segmentLog) Add(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.segments = append(l.segments, text)
	close(l.changed)
	l.changed = make(chan struct{})
	return true
}

// Len returns the segment count and a channel closed on the next Add.
func (l *segmentLog) Len() (int, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.segments), l.changed
}

func (l *segmentLog) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.segments, " ")
}

func (l *segmentLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.segments = nil
}

// consumeTranscriptionEvents runs for the whole session and feeds committed
// text into the segment log. It returns when the provider closes its stream
// or the session is torn down.
func consumeTranscriptionEvents(
	session *streamSession,
	log *slog.Logger,
) {
	defer close(session.eventsDone)

	events := session.provider.Events()
	for {
		select {
		case <-session.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			switch event.Kind {
			case domain.EventCommitted:
				if session.segments.Add(event.Text) {
					log.Debug("committed segment received", "length", len(event.Text))
				}
			case domain.EventError:
				log.Warn("provider reported error", "error", event.Err)
			case domain.EventSessionStarted:
				log.Debug("provider session started")
			}
		}
	}
}
