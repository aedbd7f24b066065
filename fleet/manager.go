// Package fleet runs the shared serial link for a fleet of flight
// controllers. The Manager owns the transport: a reader goroutine feeds the
// frame decoder and routes messages to per-device state, a broadcaster
// keeps every registered device supplied with ground-station heartbeats,
// and a single writer serializes all outbound frames onto the wire.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/owl-uav/owlink/core/clock"
	"github.com/owl-uav/owlink/core/codec"
	"github.com/owl-uav/owlink/core/mavlink"
	"github.com/owl-uav/owlink/device"
	"github.com/owl-uav/owlink/transport"
)

// RunState is the lifecycle state of the Manager.
type RunState int

const (
	StateStopped RunState = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s RunState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

var (
	ErrNotRunning     = errors.New("link manager is not running")
	ErrAlreadyRunning = errors.New("link manager is already running")
	ErrQueueFull      = errors.New("outbound queue is full")
	ErrUnknownDevice  = errors.New("device not registered")
)

// MessageCodec encodes and decodes the per-device message payloads carried
// inside link frames. The default is the in-tree MAVLink codec.
type MessageCodec interface {
	Encode(msg mavlink.Message) ([]byte, error)
	Decode(data []byte) (mavlink.Message, error)
}

const (
	// DefaultHeartbeatInterval is the broadcast cadence for ground-station
	// heartbeats.
	DefaultHeartbeatInterval = time.Second

	// DefaultQueueSize is the outbound frame queue depth.
	DefaultQueueSize = 64

	// readBufSize is the size of the serial read buffer.
	readBufSize = 1024
)

// Config holds the configuration for a Manager.
type Config struct {
	// Port is the byte stream shared by all devices. Required.
	Port transport.Port
	// Codec translates messages to and from payload bytes. Defaults to the
	// in-tree MAVLink codec.
	Codec MessageCodec
	// HeartbeatInterval is the broadcast cadence. Defaults to one second.
	HeartbeatInterval time.Duration
	// QueueSize is the outbound frame queue depth. Defaults to 64.
	QueueSize int
	// Logger is the logger to use. If nil, slog.Default() is used.
	Logger *slog.Logger
}

type outFrame struct {
	data []byte
	// sent, when non-nil, is closed once the writer has drained this entry.
	sent chan struct{}
}

// Manager multiplexes MAVLink traffic for up to 16 devices over one port.
type Manager struct {
	cfg      Config
	log      *slog.Logger
	codec    MessageCodec
	registry *device.Registry
	clock    *clock.Clock

	mu       sync.Mutex
	state    RunState
	err      error
	cancel   context.CancelFunc
	done     chan struct{}
	outbound chan outFrame
}

// New creates a Manager for the given configuration.
func New(cfg Config) (*Manager, error) {
	if cfg.Port == nil {
		return nil, errors.New("transport port is required")
	}
	if cfg.Codec == nil {
		cfg.Codec = mavlink.NewCodec(0, 0)
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	log := cfg.Logger.WithGroup("fleet")
	return &Manager{
		cfg:      cfg,
		log:      log,
		codec:    cfg.Codec,
		registry: device.NewRegistry(cfg.Logger),
		clock:    clock.New(),
	}, nil
}

// Start launches the reader, heartbeat broadcaster and writer. It returns
// ErrAlreadyRunning if the manager is not stopped.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.state != StateStopped {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.state = StateStarting
	m.err = nil

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.outbound = make(chan outFrame, m.cfg.QueueSize)
	done := m.done
	outbound := m.outbound
	// The manager must be observably running before any duty launches, so a
	// duty that fails instantly can still drive Stop through the Running
	// state instead of hitting the Starting no-op.
	m.state = StateRunning
	m.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(3)
	go m.readLoop(ctx, &wg)
	go m.writeLoop(ctx, &wg, outbound)
	go m.heartbeatLoop(ctx, &wg)

	// Closing the port is the only way to unblock a reader stuck in Read.
	go func() {
		<-ctx.Done()
		m.cfg.Port.Close()
	}()

	go func() {
		wg.Wait()
		m.mu.Lock()
		m.state = StateStopped
		m.mu.Unlock()
		close(done)
	}()

	m.log.Info("link manager started",
		"heartbeat_interval", m.cfg.HeartbeatInterval,
		"queue_size", m.cfg.QueueSize)
	return nil
}

// Stop cancels all duties, closes the port and waits for an orderly exit.
// Stopping an already-stopped manager is a no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	switch m.state {
	case StateStopped, StateStarting:
		m.mu.Unlock()
		return nil
	case StateStopping:
		done := m.done
		m.mu.Unlock()
		<-done
		return nil
	}
	m.state = StateStopping
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
	m.log.Info("link manager stopped")
	return nil
}

// fail records the first fatal error and tears the manager down.
func (m *Manager) fail(err error) {
	m.mu.Lock()
	if m.err == nil {
		m.err = err
	}
	m.mu.Unlock()

	m.log.Error("link failed", "error", err)
	go m.Stop()
}

// State returns the manager's lifecycle state.
func (m *Manager) State() RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the fatal error that stopped the manager, if any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Done returns a channel closed once the manager has fully stopped. It
// returns nil before the first Start.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Devices returns all registered devices ordered by id.
func (m *Manager) Devices() []*device.Device {
	return m.registry.List()
}

// Device returns a state snapshot for the given device id.
func (m *Manager) Device(id uint8) (device.Snapshot, error) {
	d := m.registry.Get(id)
	if d == nil {
		return device.Snapshot{}, fmt.Errorf("device %d: %w", id, ErrUnknownDevice)
	}
	return d.Snapshot(), nil
}

// CachedMessage returns the latest message of the given kind received from
// a device. ok is false if the device is unknown or no such message arrived.
func (m *Manager) CachedMessage(id uint8, msgID uint32) (device.Cached, bool) {
	d := m.registry.Get(id)
	if d == nil {
		return device.Cached{}, false
	}
	return d.CachedMessage(msgID)
}

// Send encodes msg, frames it for the device and enqueues it. It blocks
// while the queue is full and returns once the frame is accepted for
// transmission, not once it is on the wire.
func (m *Manager) Send(deviceID uint8, msg mavlink.Message) error {
	payload, err := m.codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	frame, err := codec.EncodeFrame(deviceID, payload)
	if err != nil {
		return err
	}
	return m.enqueue(outFrame{data: frame}, true)
}

// trySend is the non-blocking variant used by the heartbeat broadcaster.
func (m *Manager) trySend(deviceID uint8, msg mavlink.Message) error {
	payload, err := m.codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	frame, err := codec.EncodeFrame(deviceID, payload)
	if err != nil {
		return err
	}
	return m.enqueue(outFrame{data: frame}, false)
}

func (m *Manager) enqueue(f outFrame, block bool) error {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return ErrNotRunning
	}
	outbound := m.outbound
	done := m.done
	m.mu.Unlock()

	if block {
		select {
		case outbound <- f:
			return nil
		case <-done:
			return ErrNotRunning
		}
	}
	select {
	case outbound <- f:
		return nil
	default:
		return ErrQueueFull
	}
}

// Flush blocks until every frame enqueued before the call has been written
// to the port, the context expires, or the manager stops.
func (m *Manager) Flush(ctx context.Context) error {
	marker := outFrame{sent: make(chan struct{})}
	if err := m.enqueue(marker, true); err != nil {
		return err
	}

	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	select {
	case <-marker.sent:
		return nil
	case <-done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readLoop feeds serial bytes through the frame decoder and dispatches
// decoded messages to per-device state.
func (m *Manager) readLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	dec := codec.NewDecoder()
	buf := make([]byte, readBufSize)
	for {
		n, err := m.cfg.Port.Read(buf)
		if n > 0 {
			for _, frame := range dec.Feed(buf[:n]) {
				m.handleFrame(frame)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return // orderly shutdown closed the port
			}
			m.fail(fmt.Errorf("%w: %w", transport.ErrClosed, err))
			return
		}
	}
}

func (m *Manager) handleFrame(frame codec.Frame) {
	msg, err := m.codec.Decode(frame.Payload)
	if err != nil {
		m.log.Debug("dropping undecodable payload",
			"device", frame.DeviceID, "len", len(frame.Payload), "error", err)
		return
	}
	if err := m.registry.Dispatch(frame.DeviceID, msg); err != nil {
		m.log.Warn("dropping message for invalid device",
			"device", frame.DeviceID, "error", err)
	}
}

// heartbeatLoop broadcasts one ground-station heartbeat per registered
// device every interval. A full queue drops that device's heartbeat rather
// than blocking; missed ticks are skipped, never bursted.
func (m *Manager) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.broadcastHeartbeats()
		}
	}
}

func (m *Manager) broadcastHeartbeats() {
	for _, d := range m.registry.List() {
		hb := &mavlink.Heartbeat{
			Type:           mavlink.TypeGCS,
			Autopilot:      mavlink.AutopilotGeneric,
			SystemStatus:   mavlink.StateActive,
			MavlinkVersion: 3,
		}
		err := m.trySend(d.ID(), hb)
		if errors.Is(err, ErrQueueFull) {
			m.log.Warn("heartbeat dropped, outbound queue full", "device", d.ID())
		} else if err != nil && !errors.Is(err, ErrNotRunning) {
			m.log.Warn("heartbeat failed", "device", d.ID(), "error", err)
		}
	}
}

// writeLoop is the sole writer on the port, draining the outbound queue in
// FIFO order.
func (m *Manager) writeLoop(ctx context.Context, wg *sync.WaitGroup, outbound chan outFrame) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-outbound:
			if len(f.data) > 0 {
				if _, err := m.cfg.Port.Write(f.data); err != nil {
					if f.sent != nil {
						close(f.sent)
					}
					if ctx.Err() == nil {
						m.fail(fmt.Errorf("%w: %w", transport.ErrClosed, err))
					}
					return
				}
			}
			if f.sent != nil {
				close(f.sent)
			}
		}
	}
}
