package recording

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voiceink/internal/ports"
)

const (
	bitDepth       = 16
	pcmAudioFormat = 1
)

// WAVRecorder writes each session's PCM16 audio to <dir>/<session id>.wav.
type WAVRecorder struct {
	dir        string
	sampleRate int
	channels   int
}

func NewWAVRecorder(dir string, sampleRate int, channels int) *WAVRecorder {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}
	return &WAVRecorder{dir: dir, sampleRate: sampleRate, channels: channels}
}

func (r *WAVRecorder) Start(sessionID string) (ports.RecordingSession, error) {
	if strings.TrimSpace(r.dir) == "" {
		return nil, errors.New("recordings directory is not configured")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}

	path := filepath.Join(r.dir, sessionID+".wav")
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording %q: %w", path, err)
	}

	return &wavSession{
		path:    path,
		file:    file,
		encoder: wav.NewEncoder(file, r.sampleRate, bitDepth, r.channels, pcmAudioFormat),
		format:  &audio.Format{NumChannels: r.channels, SampleRate: r.sampleRate},
	}, nil
}

type wavSession struct {
	path    string
	file    *os.File
	encoder *wav.Encoder
	format  *audio.Format

	mu      sync.Mutex
	pending []byte
	closed  bool
}

// Write appends little-endian PCM16 samples. A trailing odd byte is held
// until the next chunk.
func (s *wavSession) Write(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}

	data := chunk
	if len(s.pending) > 0 {
		data = append(s.pending, chunk...)
		s.pending = nil
	}
	if len(data)%2 == 1 {
		s.pending = []byte{data[len(data)-1]}
		data = data[:len(data)-1]
	}
	if len(data) == 0 {
		return nil
	}

	samples := make([]int, len(data)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return s.encoder.Write(&audio.IntBuffer{Format: s.format, Data: samples, SourceBitDepth: bitDepth})
}

func (s *wavSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	encErr := s.encoder.Close()
	fileErr := s.file.Close()
	if encErr != nil {
		return fmt.Errorf("failed to finalize recording: %w", encErr)
	}
	return fileErr
}

func (s *wavSession) Path() string {
	return s.path
}
