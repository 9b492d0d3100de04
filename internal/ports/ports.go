package ports

import (
	"context"
	"io"

	"voiceink/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingProvider is one backend's realtime transcription transport.
// An instance serves exactly one session and is never reconnected.
type StreamingProvider interface {
	Connect(ctx context.Context, model domain.TranscriptionModel, language string) error
	SendAudioChunk(chunk []byte) error
	Commit() error
	Disconnect() error
	// Events is closed once Disconnect returns.
	Events() <-chan domain.TranscriptionEvent
}

// ProviderFactory creates a fresh provider for the model's backend.
type ProviderFactory interface {
	NewStreamingProvider(model domain.TranscriptionModel) (StreamingProvider, error)
}

// CredentialStore resolves API keys by provider name.
type CredentialStore interface {
	APIKey(provider domain.ModelProvider) (string, error)
}

// Recorder persists the audio of one session.
type Recorder interface {
	Start(sessionID string) (RecordingSession, error)
}

// RecordingSession receives the session's PCM chunks.
type RecordingSession interface {
	Write(chunk []byte) error
	Close() error
	Path() string
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink receives dictation state and transcript notifications.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	FinalTranscript(text string)
	SessionError(code domain.ErrorCode, detail string)
}
