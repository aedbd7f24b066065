package device

import (
	"sync"
	"time"

	"github.com/owl-uav/owlink/core/mavlink"
)

// Device is the live state of one flight controller on the shared line.
// All fields are guarded by mu; accessors return copies.
type Device struct {
	id uint8

	mu           sync.RWMutex
	armed        bool
	mode         FlightMode
	autoMode     AutoMode
	positionMode PositionMode
	landedState  uint8
	position     GPSPosition
	groundspeed  float64
	battery      Battery
	version      *VersionInfo
	lastAck      *CommandResult
	statusText   string
	lastSeen     time.Time
	cache        map[uint32]Cached

	nowFn func() time.Time
}

func newDevice(id uint8) *Device {
	return &Device{
		id:    id,
		cache: make(map[uint32]Cached),
		nowFn: time.Now,
	}
}

// ID returns the device's channel id on the serial link.
func (d *Device) ID() uint8 { return d.id }

// Armed reports whether the airframe was armed at the last heartbeat.
func (d *Device) Armed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.armed
}

// Mode returns the decoded flight mode and its sub modes.
func (d *Device) Mode() (FlightMode, AutoMode, PositionMode) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mode, d.autoMode, d.positionMode
}

// Position returns the last known global position.
func (d *Device) Position() GPSPosition {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.position
}

// Battery returns the last battery report.
func (d *Device) Battery() Battery {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.battery
}

// Version returns the firmware description, or nil before the first
// AUTOPILOT_VERSION reply.
func (d *Device) Version() *VersionInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.version == nil {
		return nil
	}
	v := *d.version
	return &v
}

// LastAck returns the most recent command acknowledgement, or nil.
func (d *Device) LastAck() *CommandResult {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.lastAck == nil {
		return nil
	}
	a := *d.lastAck
	return &a
}

// LastSeen returns the arrival time of the last message from this device.
func (d *Device) LastSeen() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastSeen
}

// CachedMessage returns the most recent message of the given id received
// from this device, with its arrival time. ok is false if none has arrived.
func (d *Device) CachedMessage(msgID uint32) (Cached, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.cache[msgID]
	return c, ok
}

// Snapshot copies the device's state for telemetry export.
func (d *Device) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Snapshot{
		ID:          d.id,
		Armed:       d.armed,
		Mode:        d.mode.String(),
		LandedState: mavlink.LandedStateName(d.landedState),
		Position:    d.position,
		Groundspeed: d.groundspeed,
		Battery:     d.battery,
		StatusText:  d.statusText,
		LastSeen:    d.lastSeen,
	}
	switch d.mode {
	case ModeAuto:
		s.SubMode = d.autoMode.String()
	case ModePosition:
		if d.positionMode == PositionObstacleAvoidance {
			s.SubMode = d.positionMode.String()
		}
	}
	if d.version != nil {
		v := *d.version
		s.Version = &v
	}
	if d.lastAck != nil {
		a := *d.lastAck
		s.LastAck = &a
	}
	return s
}
