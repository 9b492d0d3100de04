package domain

// SessionState models the streaming session lifecycle.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateConnecting SessionState = "connecting"
	SessionStateStreaming  SessionState = "streaming"
	SessionStateCommitting SessionState = "committing"
	SessionStateDone       SessionState = "done"
	SessionStateFailed     SessionState = "failed"
	SessionStateCancelled  SessionState = "cancelled"
)

// IsTerminal reports whether the state ends a session.
func (s SessionState) IsTerminal() bool {
	switch s {
	case SessionStateDone, SessionStateFailed, SessionStateCancelled:
		return true
	default:
		return false
	}
}

// SessionStateReason provides a structured reason for dictation state transitions.
type SessionStateReason string

const (
	SessionReasonReady               SessionStateReason = "ready"
	SessionReasonRecordingStarted    SessionStateReason = "recording_started"
	SessionReasonTranscribing        SessionStateReason = "transcribing"
	SessionReasonTranscriptCopied    SessionStateReason = "transcript_copied"
	SessionReasonTranscriptReady     SessionStateReason = "transcript_ready"
	SessionReasonClipboardFailed     SessionStateReason = "transcript_clipboard_failed"
	SessionReasonRecordingDiscarded  SessionStateReason = "recording_discarded"
	SessionReasonNoTranscript        SessionStateReason = "no_transcript"
	SessionReasonTranscriptionFailed SessionStateReason = "transcription_failed"
)

// ErrorCode identifies non-fatal and fatal dictation errors.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodeAudioStop     ErrorCode = "audio_stop"
	ErrorCodeAudioStream   ErrorCode = "audio_stream"
	ErrorCodeTranscription ErrorCode = "transcription"
	ErrorCodeRecording     ErrorCode = "recording"
	ErrorCodeClipboard     ErrorCode = "clipboard"
)

// EventKind tags a TranscriptionEvent.
type EventKind string

const (
	EventSessionStarted EventKind = "session_started"
	EventPartial        EventKind = "partial"
	EventCommitted      EventKind = "committed"
	EventError          EventKind = "error"
)

// TranscriptionEvent is one item of a provider's event stream.
type TranscriptionEvent struct {
	Kind EventKind `json:"kind"`
	Text string    `json:"text,omitempty"`
	Err  error     `json:"-"`
}

func SessionStarted() TranscriptionEvent {
	return TranscriptionEvent{Kind: EventSessionStarted}
}

func Partial(text string) TranscriptionEvent {
	return TranscriptionEvent{Kind: EventPartial, Text: text}
}

func Committed(text string) TranscriptionEvent {
	return TranscriptionEvent{Kind: EventCommitted, Text: text}
}

func ErrorEvent(err error) TranscriptionEvent {
	return TranscriptionEvent{Kind: EventError, Err: err}
}

// StopResult is returned once dictation is stopped and the transcript is delivered.
type StopResult struct {
	Transcript    string `json:"transcript"`
	Copied        bool   `json:"copied"`
	RecordingPath string `json:"recordingPath,omitempty"`
}

// Status summarizes the current runtime status.
type Status struct {
	State   SessionState `json:"state"`
	Active  bool         `json:"active"`
	Model   string       `json:"model,omitempty"`
	Message string       `json:"message,omitempty"`
}
