package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"voiceink/internal/ports"
)

const (
	defaultCommand      = "ffmpeg"
	defaultStartupProbe = 250 * time.Millisecond
	defaultStopTimeout  = 1200 * time.Millisecond
	stderrTailLimit     = 4096
)

// CaptureOptions tunes how the ffmpeg child process is supervised.
type CaptureOptions struct {
	Command string
	// StartupProbe is how long Start waits for an early exit before
	// handing the stream to the caller.
	StartupProbe time.Duration
	StopTimeout  time.Duration
	Log          *slog.Logger
}

// FFmpegCapture streams 16-bit little-endian PCM from the microphone through
// an ffmpeg child process.
type FFmpegCapture struct {
	opts CaptureOptions
	log  *slog.Logger
}

func NewFFmpegCapture(opts CaptureOptions) *FFmpegCapture {
	if strings.TrimSpace(opts.Command) == "" {
		opts.Command = defaultCommand
	}
	if opts.StartupProbe <= 0 {
		opts.StartupProbe = defaultStartupProbe
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &FFmpegCapture{opts: opts, log: opts.Log.With("component", "ffmpeg_capture")}
}

func (c *FFmpegCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cmd := exec.CommandContext(ctx, c.opts.Command, captureArgs(cfg)...)
	stderr := &tailBuffer{limit: stderrTailLimit}
	cmd.Stderr = stderr
	cmd.WaitDelay = c.opts.StopTimeout

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create capture stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", c.opts.Command, err)
	}
	c.log.Debug("capture process started", "pid", cmd.Process.Pid, "device", cfg.InputDevice)

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	probe := time.NewTimer(c.opts.StartupProbe)
	defer probe.Stop()
	select {
	case err := <-exited:
		if err != nil {
			return nil, fmt.Errorf("capture exited before streaming started: %w: %s", err, stderr.String())
		}
		return nil, errors.New("capture exited before streaming started")
	case <-probe.C:
	}

	return &captureSession{
		stdout:      stdout,
		stderr:      stderr,
		process:     cmd.Process,
		exited:      exited,
		stopTimeout: c.opts.StopTimeout,
		log:         c.log,
	}, nil
}

func captureArgs(cfg ports.AudioConfig) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if strings.TrimSpace(cfg.InputFormat) == "" {
		cfg.InputFormat = "pulse"
	}
	if strings.TrimSpace(cfg.InputDevice) == "" {
		cfg.InputDevice = "default"
	}

	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

type captureSession struct {
	stdout io.ReadCloser
	stderr *tailBuffer

	process     *os.Process
	exited      <-chan error
	stopTimeout time.Duration
	log         *slog.Logger

	stopOnce sync.Once
	stopErr  error
}

func (s *captureSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *captureSession) Close() error {
	return s.Stop()
}

// Stop interrupts the process so ffmpeg can flush, and kills it when it
// does not exit within the stop timeout.
func (s *captureSession) Stop() error {
	s.stopOnce.Do(func() {
		_ = s.process.Signal(os.Interrupt)

		timer := time.NewTimer(s.stopTimeout)
		defer timer.Stop()

		var waitErr error
		select {
		case waitErr = <-s.exited:
		case <-timer.C:
			s.log.Warn("capture did not exit after interrupt, killing", "pid", s.process.Pid)
			_ = s.process.Kill()
			waitErr = <-s.exited
		}
		s.stopErr = ignoreExitStatus(waitErr)

		if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = err
		}
		if s.stopErr != nil {
			if tail := s.stderr.String(); tail != "" {
				s.stopErr = fmt.Errorf("%w: %s", s.stopErr, tail)
			}
		}
	})
	return s.stopErr
}

// ignoreExitStatus drops non-zero exit codes, which ffmpeg reports after
// being interrupted.
func ignoreExitStatus(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p)
	if overflow := b.buf.Len() - b.limit; overflow > 0 {
		b.buf.Next(overflow)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}
