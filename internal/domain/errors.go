package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredential   = errors.New("missing API key")
	ErrConnectionFailed    = errors.New("connection failed")
	ErrNotConnected        = errors.New("not connected")
	ErrCommitFailed        = errors.New("commit failed")
	ErrUnsupportedProvider = errors.New("provider does not support streaming")
	ErrSessionActive       = errors.New("a streaming session is already active")
	ErrSessionCancelled    = errors.New("streaming session cancelled")
)

// ServerError is an explicit error payload sent by a backend over an open connection.
type ServerError struct {
	Provider ModelProvider
	Code     string
	Message  string
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s server error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s server error (%s): %s", e.Provider, e.Code, e.Message)
}
