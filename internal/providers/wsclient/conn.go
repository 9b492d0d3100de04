// Package wsclient is the websocket transport shared by the streaming
// providers: dialing, serialized writes, idle keepalive and a receive loop
// that turns inbound frames into transcription events.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voiceink/internal/domain"
)

const (
	defaultKeepAliveInterval = 5 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	defaultEventBuffer       = 256
)

// Classifier maps one inbound frame to at most one event. ok=false drops the frame.
type Classifier func(messageType int, payload []byte) (event domain.TranscriptionEvent, ok bool)

// Options configures a Conn.
type Options struct {
	Dialer   *websocket.Dialer
	Classify Classifier
	// KeepAlive is sent whenever nothing was written for KeepAliveInterval.
	KeepAlive         func(c *Conn) error
	KeepAliveInterval time.Duration
	// Goodbye is written best effort before the socket is closed.
	Goodbye func(c *Conn) error
	// AnnounceSession emits a session_started event as soon as the socket opens,
	// for backends that do not acknowledge sessions themselves.
	AnnounceSession bool
	WriteTimeout    time.Duration
	EventBuffer     int
	Log             *slog.Logger
}

// Conn is a single-use websocket connection.
type Conn struct {
	opts   Options
	log    *slog.Logger
	events chan domain.TranscriptionEvent
	done   chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	writeMu   sync.Mutex
	lastWrite time.Time

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func New(opts Options) *Conn {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.KeepAliveInterval <= 0 {
		opts.KeepAliveInterval = defaultKeepAliveInterval
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Conn{
		opts:   opts,
		log:    opts.Log,
		events: make(chan domain.TranscriptionEvent, opts.EventBuffer),
		done:   make(chan struct{}),
	}
}

// Dial opens the socket and starts the receive and keepalive loops.
func (c *Conn) Dial(ctx context.Context, url string, header http.Header) error {
	conn, resp, err := c.opts.Dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: handshake returned %s: %w", domain.ErrConnectionFailed, resp.Status, err)
		}
		return fmt.Errorf("%w: %w", domain.ErrConnectionFailed, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("%w: connection closed while dialing", domain.ErrConnectionFailed)
	}
	if c.conn != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return errors.New("websocket is already connected")
	}
	c.conn = conn
	c.mu.Unlock()

	c.writeMu.Lock()
	c.lastWrite = time.Now()
	c.writeMu.Unlock()

	if c.opts.AnnounceSession {
		c.emit(domain.SessionStarted())
	}

	c.wg.Add(1)
	go c.readLoop(conn)
	if c.opts.KeepAlive != nil {
		c.wg.Add(1)
		go c.keepAliveLoop()
	}
	return nil
}

// Events is closed by Close after the receive loop has exited.
func (c *Conn) Events() <-chan domain.TranscriptionEvent {
	return c.events
}

// WriteBinary sends one binary frame.
func (c *Conn) WriteBinary(payload []byte) error {
	return c.write(websocket.BinaryMessage, payload)
}

// WriteText sends one text frame.
func (c *Conn) WriteText(payload []byte) error {
	return c.write(websocket.TextMessage, payload)
}

// WritePing sends a websocket ping control frame.
func (c *Conn) WritePing() error {
	return c.writeControl(websocket.PingMessage, nil)
}

// WriteClose sends a websocket close control frame.
func (c *Conn) WriteClose(payload []byte) error {
	return c.writeControl(websocket.CloseMessage, payload)
}

// Close writes the goodbye frame, stops the loops, closes the socket and
// finally the event channel. It is safe to call more than once and before Dial.
func (c *Conn) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn != nil && c.opts.Goodbye != nil {
			if err := c.opts.Goodbye(c); err != nil {
				c.log.Debug("goodbye frame not delivered", "error", err)
			}
		}

		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)

		if conn != nil {
			if err := conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				closeErr = err
			}
		}
		c.wg.Wait()
		close(c.events)
	})
	return closeErr
}

func (c *Conn) active() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return nil, domain.ErrNotConnected
	}
	return c.conn, nil
}

func (c *Conn) write(messageType int, payload []byte) error {
	conn, err := c.active()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := conn.WriteMessage(messageType, payload); err != nil {
		return err
	}
	c.lastWrite = time.Now()
	return nil
}

func (c *Conn) writeControl(messageType int, payload []byte) error {
	conn, err := c.active()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteControl(messageType, payload, time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return err
	}
	c.lastWrite = time.Now()
	return nil
}

func (c *Conn) idleFor() time.Duration {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return time.Since(c.lastWrite)
}

func (c *Conn) emit(event domain.TranscriptionEvent) bool {
	select {
	case c.events <- event:
		return true
	case <-c.done:
		return false
	}
}

func (c *Conn) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Info("websocket closed by server")
				return
			}
			c.log.Warn("websocket receive failed", "error", err)
			c.emit(domain.ErrorEvent(fmt.Errorf("receive: %w", err)))
			return
		}

		event, ok := c.opts.Classify(messageType, payload)
		if !ok {
			continue
		}
		if !c.emit(event) {
			return
		}
	}
}

func (c *Conn) keepAliveLoop() {
	defer c.wg.Done()

	interval := c.opts.KeepAliveInterval
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		// Ticks run at half the interval; the margin absorbs timer jitter.
		if c.idleFor() < interval-interval/4 {
			continue
		}
		if err := c.opts.KeepAlive(c); err != nil {
			if errors.Is(err, domain.ErrNotConnected) {
				return
			}
			c.log.Warn("keepalive failed", "error", err)
		}
	}
}
