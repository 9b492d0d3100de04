package usecase

import (
	"context"

	"voiceink/internal/domain"
	"voiceink/internal/ports"
)

type transcriptFinalizer struct {
	clipboard ports.Clipboard
	events    ports.EventSink
}

func newTranscriptFinalizer(clipboard ports.Clipboard, events ports.EventSink) transcriptFinalizer {
	return transcriptFinalizer{clipboard: clipboard, events: events}
}

// Finalize delivers the transcript to the clipboard. A clipboard failure is
// reported but does not fail the dictation.
func (f transcriptFinalizer) Finalize(ctx context.Context, transcript string) (domain.StopResult, domain.SessionStateReason) {
	result := domain.StopResult{Transcript: transcript}
	if f.clipboard == nil {
		return result, domain.SessionReasonTranscriptReady
	}

	if err := f.clipboard.SetText(ctx, transcript); err != nil {
		f.events.SessionError(domain.ErrorCodeClipboard, "transcript ready but clipboard write failed: "+err.Error())
		return result, domain.SessionReasonClipboardFailed
	}

	result.Copied = true
	return result, domain.SessionReasonTranscriptCopied
}
