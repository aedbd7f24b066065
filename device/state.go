// Package device tracks per-airframe state. Each flight controller on the
// shared serial line gets one Device whose telemetry fields are refreshed as
// messages arrive; a Registry owns the Device set and routes decoded
// messages to them.
package device

import (
	"time"

	"github.com/owl-uav/owlink/core/mavlink"
)

// FlightMode is the PX4 main flight mode decoded from heartbeat custom_mode.
type FlightMode uint8

const (
	ModeUnknown FlightMode = iota
	ModeHold
	ModePosition
	ModeAuto
)

func (m FlightMode) String() string {
	switch m {
	case ModeHold:
		return "HOLD"
	case ModePosition:
		return "POSITION"
	case ModeAuto:
		return "AUTO"
	default:
		return "UNKNOWN"
	}
}

// AutoMode refines ModeAuto with the PX4 sub mode.
type AutoMode uint8

const (
	AutoNone AutoMode = iota
	AutoTakeoff
	AutoFollow
	AutoMission
	AutoRTL
	AutoLand
)

func (m AutoMode) String() string {
	switch m {
	case AutoTakeoff:
		return "TAKEOFF"
	case AutoFollow:
		return "FOLLOW"
	case AutoMission:
		return "MISSION"
	case AutoRTL:
		return "RTL"
	case AutoLand:
		return "LAND"
	default:
		return "NONE"
	}
}

// PositionMode refines ModePosition with the PX4 sub mode.
type PositionMode uint8

const (
	PositionNormal PositionMode = iota
	PositionObstacleAvoidance
)

func (m PositionMode) String() string {
	if m == PositionObstacleAvoidance {
		return "OBSTACLE_AVOIDANCE"
	}
	return "NORMAL"
}

// flightModeFromHeartbeat maps the PX4 custom_mode bytes onto the mode enums.
func flightModeFromHeartbeat(main, sub uint8) (FlightMode, AutoMode, PositionMode) {
	switch main {
	case 2:
		return ModeHold, AutoNone, PositionNormal
	case 3:
		pos := PositionNormal
		if sub == 2 {
			pos = PositionObstacleAvoidance
		}
		return ModePosition, AutoNone, pos
	case 4:
		auto := AutoNone
		switch sub {
		case 2:
			auto = AutoTakeoff
		case 3:
			auto = AutoFollow
		case 4:
			auto = AutoMission
		case 5:
			auto = AutoRTL
		case 6:
			auto = AutoLand
		}
		return ModeAuto, auto, PositionNormal
	default:
		return ModeUnknown, AutoNone, PositionNormal
	}
}

// GPSPosition is the fused global position in human units: degrees, metres
// above mean sea level / home, and degrees of heading.
type GPSPosition struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	AltitudeMSL float64 `json:"altitude_msl"`
	RelativeAlt float64 `json:"relative_alt"`
	Heading     float64 `json:"heading"`
}

// Battery is the most recent battery report.
type Battery struct {
	Voltage     float64 `json:"voltage"`
	Remaining   int8    `json:"remaining"`
	Temperature float64 `json:"temperature"`
}

// VersionInfo describes the flight controller firmware, filled in when an
// AUTOPILOT_VERSION reply arrives.
type VersionInfo struct {
	FlightSwVersion string `json:"flight_sw_version"`
	BoardVersion    uint32 `json:"board_version"`
	SerialNumber    string `json:"serial_number"`
}

// CommandResult is the latest COMMAND_ACK seen from the airframe.
type CommandResult struct {
	Command   uint16    `json:"command"`
	Result    uint8     `json:"result"`
	Timestamp int32     `json:"timestamp"`
	Time      time.Time `json:"time"`
}

// Cached is one raw message retained in the per-device cache.
type Cached struct {
	Msg  mavlink.Message
	Time time.Time
}

// Snapshot is a point-in-time copy of a device's state, shaped for JSON
// telemetry export.
type Snapshot struct {
	ID          uint8          `json:"id"`
	Armed       bool           `json:"armed"`
	Mode        string         `json:"mode"`
	SubMode     string         `json:"sub_mode,omitempty"`
	LandedState string         `json:"landed_state"`
	Position    GPSPosition    `json:"position"`
	Groundspeed float64        `json:"groundspeed"`
	Battery     Battery        `json:"battery"`
	Version     *VersionInfo   `json:"version,omitempty"`
	LastAck     *CommandResult `json:"last_ack,omitempty"`
	StatusText  string         `json:"status_text,omitempty"`
	LastSeen    time.Time      `json:"last_seen"`
}
