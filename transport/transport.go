// Package transport abstracts the byte stream carrying owl link frames.
// The production implementation is a serial port; tests substitute in-memory
// fakes.
package transport

import (
	"errors"
	"io"
)

// ErrClosed is returned by Port operations after Close, and surfaces from
// blocked reads when the port is closed underneath them.
var ErrClosed = errors.New("transport closed")

// Port is a bidirectional byte stream. Read blocks until data arrives or the
// port is closed; Close must unblock any in-flight Read.
type Port interface {
	io.Reader
	io.Writer
	io.Closer
}
