// Package wstest runs in-process websocket servers for provider tests.
package wstest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is one message received by the server.
type Frame struct {
	Type    int
	Payload []byte
}

// Server upgrades every request and records inbound frames.
type Server struct {
	*httptest.Server

	Frames chan Frame

	mu       sync.Mutex
	requests []*http.Request
	conns    chan *websocket.Conn
}

func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		Frames: make(chan Frame, 256),
		conns:  make(chan *websocket.Conn, 4),
	}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r)
		s.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.conns <- conn

		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.Frames <- Frame{Type: messageType, Payload: payload}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

// URL returns the server address with a ws:// scheme.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// HTTPURL returns the server address with an http:// scheme.
func (s *Server) HTTPURL() string {
	return s.Server.URL
}

// Conn waits for the next upgraded client connection.
func (s *Server) Conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatalf("no websocket client connected")
		return nil
	}
}

// Request returns the i-th upgrade request.
func (s *Server) Request(i int) *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.requests) {
		return nil
	}
	return s.requests[i]
}

// NextFrame waits for the next frame the client sent.
func (s *Server) NextFrame(t *testing.T) Frame {
	t.Helper()
	select {
	case frame := <-s.Frames:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame received")
		return Frame{}
	}
}

// NextFrameMatching skips frames until match accepts one.
func (s *Server) NextFrameMatching(t *testing.T, match func(Frame) bool) Frame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-s.Frames:
			if match(frame) {
				return frame
			}
		case <-deadline:
			t.Fatalf("no matching frame received")
			return Frame{}
		}
	}
}
