package device

import (
	"github.com/owl-uav/owlink/core/mavlink"
)

// Handle folds one inbound message into the device's state. Every message,
// typed or unknown, lands in the per-id cache; the typed kinds additionally
// update the interpreted telemetry fields.
func (d *Device) Handle(msg mavlink.Message) {
	now := d.nowFn()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastSeen = now
	d.cache[msg.MsgID()] = Cached{Msg: msg, Time: now}

	switch m := msg.(type) {
	case *mavlink.Heartbeat:
		d.applyHeartbeat(m)
	case *mavlink.GlobalPositionInt:
		d.applyGlobalPosition(m)
	case *mavlink.VfrHud:
		d.groundspeed = float64(m.Groundspeed)
	case *mavlink.BatteryStatus:
		d.applyBatteryStatus(m)
	case *mavlink.AutopilotVersion:
		d.applyAutopilotVersion(m)
	case *mavlink.ExtendedSysState:
		d.landedState = m.LandedState
	case *mavlink.CommandAck:
		d.lastAck = &CommandResult{
			Command:   m.Command,
			Result:    m.Result,
			Timestamp: m.ResultParam2,
			Time:      now,
		}
	case *mavlink.StatusText:
		d.statusText = m.Text()
	}
}

func (d *Device) applyHeartbeat(m *mavlink.Heartbeat) {
	d.armed = m.Armed()
	d.mode, d.autoMode, d.positionMode = flightModeFromHeartbeat(m.MainMode(), m.SubMode())
}

func (d *Device) applyGlobalPosition(m *mavlink.GlobalPositionInt) {
	d.position = GPSPosition{
		Latitude:    float64(m.Lat) / 1e7,
		Longitude:   float64(m.Lon) / 1e7,
		AltitudeMSL: float64(m.Alt) / 1e3,
		RelativeAlt: float64(m.RelativeAlt) / 1e3,
		Heading:     float64(m.Hdg) / 100.0,
	}
}

func (d *Device) applyBatteryStatus(m *mavlink.BatteryStatus) {
	d.battery = Battery{
		Voltage:     m.VoltageVolts(),
		Remaining:   m.BatteryRemaining,
		Temperature: float64(m.Temperature) / 100.0,
	}
}

func (d *Device) applyAutopilotVersion(m *mavlink.AutopilotVersion) {
	d.version = &VersionInfo{
		FlightSwVersion: m.FlightSwVersionString(),
		BoardVersion:    m.BoardVersion,
		SerialNumber:    m.SerialNumber(),
	}
}
