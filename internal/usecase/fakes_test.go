package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"voiceink/internal/domain"
	"voiceink/internal/ports"
)

var testModel = domain.TranscriptionModel{
	Provider:          domain.ProviderDeepgram,
	Name:              "nova-3",
	SupportsStreaming: true,
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeStreamingProvider struct {
	mu           sync.Mutex
	sent         [][]byte
	sendAttempts int
	commits      int
	disconnects  int
	closed       bool

	// connectGate, when set, blocks Connect until it is closed.
	connectGate chan struct{}
	connecting  chan struct{}
	connectErr  error
	sendErr     func(attempt int) error
	commitErr   error
	onCommit    func(p *fakeStreamingProvider)
	events      chan domain.TranscriptionEvent
}

func newFakeStreamingProvider() *fakeStreamingProvider {
	return &fakeStreamingProvider{
		events:     make(chan domain.TranscriptionEvent, 32),
		connecting: make(chan struct{}),
	}
}

func (p *fakeStreamingProvider) Connect(ctx context.Context, _ domain.TranscriptionModel, _ string) error {
	close(p.connecting)
	if p.connectGate != nil {
		<-p.connectGate
	}
	if p.connectErr != nil {
		return p.connectErr
	}
	p.emit(domain.SessionStarted())
	return nil
}

func (p *fakeStreamingProvider) SendAudioChunk(chunk []byte) error {
	p.mu.Lock()
	p.sendAttempts++
	attempt := p.sendAttempts
	p.mu.Unlock()

	if p.sendErr != nil {
		if err := p.sendErr(attempt); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.sent = append(p.sent, append([]byte(nil), chunk...))
	p.mu.Unlock()
	return nil
}

func (p *fakeStreamingProvider) Commit() error {
	p.mu.Lock()
	p.commits++
	p.mu.Unlock()
	if p.commitErr != nil {
		return p.commitErr
	}
	if p.onCommit != nil {
		p.onCommit(p)
	}
	return nil
}

func (p *fakeStreamingProvider) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnects++
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	return nil
}

func (p *fakeStreamingProvider) Events() <-chan domain.TranscriptionEvent {
	return p.events
}

func (p *fakeStreamingProvider) emit(event domain.TranscriptionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.events <- event
}

func (p *fakeStreamingProvider) sentChunks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.sent))
	for i, chunk := range p.sent {
		out[i] = string(chunk)
	}
	return out
}

func (p *fakeStreamingProvider) attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sendAttempts
}

func (p *fakeStreamingProvider) disconnectCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnects
}

type fakeProviderFactory struct {
	mu        sync.Mutex
	providers []*fakeStreamingProvider
	calls     int
}

func (f *fakeProviderFactory) NewStreamingProvider(model domain.TranscriptionModel) (ports.StreamingProvider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !model.SupportsStreaming {
		return nil, domain.ErrUnsupportedProvider
	}
	if f.calls >= len(f.providers) {
		return nil, errors.New("no provider configured")
	}
	provider := f.providers[f.calls]
	f.calls++
	return provider, nil
}

func newTestService(cfg StreamingConfig, providers ...*fakeStreamingProvider) *StreamingService {
	if cfg.SendInterval == 0 {
		cfg.SendInterval = 5 * time.Millisecond
	}
	if cfg.CommitTimeout == 0 {
		cfg.CommitTimeout = time.Second
	}
	cfg.Log = discardLogger()
	return NewStreamingService(&fakeProviderFactory{providers: providers}, cfg)
}

func commitWith(text string) func(p *fakeStreamingProvider) {
	return func(p *fakeStreamingProvider) {
		p.emit(domain.Committed(text))
	}
}

type fakeAudioCapture struct {
	mu       sync.Mutex
	sessions []*fakeAudioSession
	err      error
	calls    int
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no audio session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

// fakeAudioSession yields its chunks and then blocks until Stop.
type fakeAudioSession struct {
	mu        sync.Mutex
	chunks    [][]byte
	index     int
	readErr   error
	stopErr   error
	stopCalls int
	stopped   chan struct{}
	stopOnce  sync.Once
}

func newFakeAudioSession(chunks ...string) *fakeAudioSession {
	s := &fakeAudioSession{stopped: make(chan struct{})}
	for _, chunk := range chunks {
		s.chunks = append(s.chunks, []byte(chunk))
	}
	return s
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.index < len(f.chunks) {
		n := copy(p, f.chunks[f.index])
		f.index++
		f.mu.Unlock()
		return n, nil
	}
	readErr := f.readErr
	f.mu.Unlock()

	if readErr != nil {
		return 0, readErr
	}
	<-f.stopped
	return 0, io.EOF
}

func (f *fakeAudioSession) Close() error { return f.Stop() }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.stopOnce.Do(func() { close(f.stopped) })
	return f.stopErr
}

func (f *fakeAudioSession) consumed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index
}

type fakeStreamer struct {
	mu         sync.Mutex
	startErr   error
	transcript string
	stopErr    error
	chunks     []string
	starts     int
	stops      int
	cancels    int
}

func (f *fakeStreamer) StartStreaming(_ context.Context, _ domain.TranscriptionModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *fakeStreamer) SendAudioChunk(chunk []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, string(chunk))
}

func (f *fakeStreamer) StopAndGetFinalText(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.transcript, f.stopErr
}

func (f *fakeStreamer) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeStreamer) snapshotChunks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.chunks...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	err      error
	sessions []*fakeRecording
}

func (f *fakeRecorder) Start(sessionID string) (ports.RecordingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	recording := &fakeRecording{path: "/recordings/" + sessionID + ".wav"}
	f.sessions = append(f.sessions, recording)
	return recording, nil
}

type fakeRecording struct {
	mu     sync.Mutex
	path   string
	data   []byte
	closes int
}

func (f *fakeRecording) Write(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append(f.data, chunk...)
	return nil
}

func (f *fakeRecording) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeRecording) Path() string { return f.path }

type fakeClipboard struct {
	mu       sync.Mutex
	lastText string
	err      error
}

func (f *fakeClipboard) SetText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastText = text
	return f.err
}

type fakeEventSink struct {
	mu sync.Mutex

	states []stateEvent
	finals []string
	errors []errEvent
}

type stateEvent struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) FinalTranscript(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finals = append(f.finals, text)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stateEvent(nil), f.states...)
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]errEvent(nil), f.errors...)
}

func (f *fakeEventSink) snapshotFinals() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.finals...)
}
