package usecase

import (
	"context"
	"testing"

	"voiceink/internal/domain"
)

func TestSegmentLogSkipsBlankSegments(t *testing.T) {
	t.Parallel()

	l := newSegmentLog()
	l.Add("hello")
	if l.Add("   ") {
		t.Fatalf("blank segment must be ignored")
	}
	l.Add(" world ")

	if got := l.Text(); got != "hello world" {
		t.Fatalf("unexpected text: %q", got)
	}
	if count, _ := l.Len(); count != 2 {
		t.Fatalf("expected 2 segments, got %d", count)
	}

	l.Reset()
	if l.Text() != "" {
		t.Fatalf("expected empty log after reset")
	}
}

func TestSegmentLogWakesWaiters(t *testing.T) {
	t.Parallel()

	l := newSegmentLog()
	_, changed := l.Len()
	select {
	case <-changed:
		t.Fatalf("changed fired before any segment")
	default:
	}

	l.Add("x")
	select {
	case <-changed:
	default:
		t.Fatalf("expected changed to fire after Add")
	}
}

func TestConsumerCollectsCommittedSegmentsOnly(t *testing.T) {
	t.Parallel()

	provider := newFakeStreamingProvider()
	session := &streamSession{
		provider:   provider,
		segments:   newSegmentLog(),
		ctx:        context.Background(),
		eventsDone: make(chan struct{}),
	}

	provider.emit(domain.SessionStarted())
	provider.emit(domain.Partial("hel"))
	provider.emit(domain.Committed("hello"))
	provider.emit(domain.ErrorEvent(domain.ErrConnectionFailed))
	provider.emit(domain.Committed("there"))
	_ = provider.Disconnect()

	consumeTranscriptionEvents(session, discardLogger())

	if got := session.segments.Text(); got != "hello there" {
		t.Fatalf("unexpected segments: %q", got)
	}
	select {
	case <-session.eventsDone:
	default:
		t.Fatalf("expected eventsDone closed")
	}
}
