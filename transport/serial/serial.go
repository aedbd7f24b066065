// Package serial opens the serial line shared by the multiplexed flight
// controllers and exposes it as a transport.Port.
package serial

import (
	"errors"
	"fmt"
	"log/slog"

	"go.bug.st/serial"

	"github.com/owl-uav/owlink/transport"
)

// Compile-time interface check.
var _ transport.Port = (*port)(nil)

// DefaultBaudRate matches the link speed of the owl serial bridge.
const DefaultBaudRate = 115200

// Config holds the configuration for the serial line.
type Config struct {
	// Port is the serial port path (e.g., "/dev/ttyUSB0" or "COM3").
	Port string
	// BaudRate is the serial baud rate. Defaults to 115200.
	BaudRate int
	// Logger is the logger to use. If nil, slog.Default() is used.
	Logger *slog.Logger
}

type port struct {
	inner serial.Port
	log   *slog.Logger
}

// Open opens the configured serial port.
func Open(cfg Config) (transport.Port, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
	}
	inner, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port: %w", err)
	}

	log := cfg.Logger.WithGroup("serial")
	log.Info("connected to serial port", "port", cfg.Port, "baud", cfg.BaudRate)
	return &port{inner: inner, log: log}, nil
}

func (p *port) Read(b []byte) (int, error) {
	n, err := p.inner.Read(b)
	if err != nil {
		return n, fmt.Errorf("%w: %w", transport.ErrClosed, err)
	}
	return n, nil
}

func (p *port) Write(b []byte) (int, error) {
	n, err := p.inner.Write(b)
	if err != nil {
		return n, fmt.Errorf("writing to serial port: %w", err)
	}
	return n, nil
}

func (p *port) Close() error {
	p.log.Debug("closing serial port")
	return p.inner.Close()
}
