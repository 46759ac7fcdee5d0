package driver

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a Store after Close.
var ErrClosed = errors.New("driver: store is closed")

// ConfigError reports a Store configuration that cannot be used. It is
// returned by Open before any network call is made.
type ConfigError struct {
	// Field is the Config field at fault.
	Field string
	// Message describes the problem.
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("driver: config %s: %s", e.Field, e.Message)
}

// TransportError wraps a failure to reach the store or read its response.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("driver: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when the store answers with a non-success
// status. Message is the human-readable description extracted from the
// response body, or the trimmed raw body when none could be found.
type ProtocolError struct {
	Status  int
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("driver: store returned status %d", e.Status)
	}
	return fmt.Sprintf("driver: store returned status %d: %s", e.Status, e.Message)
}

// ResultParseError is returned when a success response cannot be decoded.
type ResultParseError struct {
	Format Format
	Err    error
}

func (e *ResultParseError) Error() string {
	return fmt.Sprintf("driver: parse %s results: %v", e.Format, e.Err)
}

func (e *ResultParseError) Unwrap() error {
	return e.Err
}
