package device

import (
	"testing"
	"time"

	"github.com/owl-uav/owlink/core/mavlink"
)

func testDevice(id uint8) *Device {
	d := newDevice(id)
	d.nowFn = func() time.Time { return time.Unix(1700000000, 0) }
	return d
}

func TestHandleHeartbeat(t *testing.T) {
	tests := []struct {
		name       string
		customMode uint32
		baseMode   uint8
		wantArmed  bool
		wantMode   FlightMode
		wantAuto   AutoMode
		wantPos    PositionMode
	}{
		{
			name:       "hold armed",
			customMode: uint32(2) << 16,
			baseMode:   mavlink.BaseModeArmed,
			wantArmed:  true,
			wantMode:   ModeHold,
		},
		{
			name:       "position normal",
			customMode: uint32(3) << 16,
			wantMode:   ModePosition,
			wantPos:    PositionNormal,
		},
		{
			name:       "position obstacle avoidance",
			customMode: uint32(3)<<16 | uint32(2)<<24,
			wantMode:   ModePosition,
			wantPos:    PositionObstacleAvoidance,
		},
		{
			name:       "auto mission",
			customMode: uint32(4)<<16 | uint32(4)<<24,
			wantMode:   ModeAuto,
			wantAuto:   AutoMission,
		},
		{
			name:       "auto rtl",
			customMode: uint32(4)<<16 | uint32(5)<<24,
			wantMode:   ModeAuto,
			wantAuto:   AutoRTL,
		},
		{
			name:       "unrecognized main mode",
			customMode: uint32(9) << 16,
			wantMode:   ModeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDevice(1)
			d.Handle(&mavlink.Heartbeat{CustomMode: tt.customMode, BaseMode: tt.baseMode})

			if d.Armed() != tt.wantArmed {
				t.Errorf("Armed() = %v, want %v", d.Armed(), tt.wantArmed)
			}
			mode, auto, pos := d.Mode()
			if mode != tt.wantMode || auto != tt.wantAuto || pos != tt.wantPos {
				t.Errorf("Mode() = %v/%v/%v, want %v/%v/%v",
					mode, auto, pos, tt.wantMode, tt.wantAuto, tt.wantPos)
			}
		})
	}
}

func TestHandleGlobalPosition(t *testing.T) {
	d := testDevice(1)
	d.Handle(&mavlink.GlobalPositionInt{
		Lat:         473977420,
		Lon:         85455940,
		Alt:         488500,
		RelativeAlt: 12000,
		Hdg:         27050,
	})

	pos := d.Position()
	if pos.Latitude != 47.3977420 {
		t.Errorf("Latitude = %v", pos.Latitude)
	}
	if pos.Longitude != 8.5455940 {
		t.Errorf("Longitude = %v", pos.Longitude)
	}
	if pos.AltitudeMSL != 488.5 {
		t.Errorf("AltitudeMSL = %v", pos.AltitudeMSL)
	}
	if pos.RelativeAlt != 12.0 {
		t.Errorf("RelativeAlt = %v", pos.RelativeAlt)
	}
	if pos.Heading != 270.5 {
		t.Errorf("Heading = %v", pos.Heading)
	}
}

func TestHandleBatteryStatus(t *testing.T) {
	d := testDevice(1)
	voltages := [10]uint16{3900, 3880, 3910}
	for i := 3; i < 10; i++ {
		voltages[i] = 0xFFFF
	}
	d.Handle(&mavlink.BatteryStatus{
		Voltages:         voltages,
		BatteryRemaining: 77,
		Temperature:      2150,
	})

	b := d.Battery()
	if b.Voltage != 11.69 {
		t.Errorf("Voltage = %v, want 11.69", b.Voltage)
	}
	if b.Remaining != 77 {
		t.Errorf("Remaining = %d, want 77", b.Remaining)
	}
	if b.Temperature != 21.5 {
		t.Errorf("Temperature = %v, want 21.5", b.Temperature)
	}
}

func TestHandleAutopilotVersion(t *testing.T) {
	d := testDevice(1)
	if d.Version() != nil {
		t.Fatal("Version() before any reply should be nil")
	}

	d.Handle(&mavlink.AutopilotVersion{FlightSwVersion: 0x00010902, BoardVersion: 9})
	v := d.Version()
	if v == nil {
		t.Fatal("Version() = nil after reply")
	}
	if v.FlightSwVersion != "1.9.2" {
		t.Errorf("FlightSwVersion = %q, want 1.9.2", v.FlightSwVersion)
	}
	if v.BoardVersion != 9 {
		t.Errorf("BoardVersion = %d, want 9", v.BoardVersion)
	}
}

func TestHandleCommandAck(t *testing.T) {
	d := testDevice(1)
	d.Handle(&mavlink.CommandAck{
		Command:      mavlink.CmdExtTakeoff,
		Result:       mavlink.AckFinished,
		ResultParam2: 123456,
	})

	ack := d.LastAck()
	if ack == nil {
		t.Fatal("LastAck() = nil")
	}
	if ack.Command != mavlink.CmdExtTakeoff || ack.Result != mavlink.AckFinished || ack.Timestamp != 123456 {
		t.Errorf("LastAck() = %+v", ack)
	}
}

func TestHandleCachesEveryMessage(t *testing.T) {
	d := testDevice(1)
	unknown := &mavlink.Unknown{ID: 805, Data: []byte{0x01}}
	d.Handle(unknown)
	d.Handle(&mavlink.ExtendedSysState{LandedState: mavlink.LandedStateInAir})

	c, ok := d.CachedMessage(805)
	if !ok {
		t.Fatal("unknown message not cached")
	}
	if c.Msg != unknown {
		t.Error("cached message is not the handled message")
	}
	if _, ok := d.CachedMessage(mavlink.MsgIDExtendedSysState); !ok {
		t.Error("extended sys state not cached")
	}
	if _, ok := d.CachedMessage(mavlink.MsgIDHeartbeat); ok {
		t.Error("cache reports a message that never arrived")
	}
}

func TestSnapshot(t *testing.T) {
	d := testDevice(3)
	d.Handle(&mavlink.Heartbeat{
		CustomMode: uint32(4)<<16 | uint32(2)<<24,
		BaseMode:   mavlink.BaseModeArmed,
	})
	d.Handle(&mavlink.ExtendedSysState{LandedState: mavlink.LandedStateTakeoff})
	st := &mavlink.StatusText{Severity: 6}
	st.SetText("takeoff detected")
	d.Handle(st)

	s := d.Snapshot()
	if s.ID != 3 || !s.Armed {
		t.Errorf("Snapshot id/armed = %d/%v", s.ID, s.Armed)
	}
	if s.Mode != "AUTO" || s.SubMode != "TAKEOFF" {
		t.Errorf("Snapshot mode = %q/%q", s.Mode, s.SubMode)
	}
	if s.LandedState != "TAKEOFF" {
		t.Errorf("LandedState = %q", s.LandedState)
	}
	if s.StatusText != "takeoff detected" {
		t.Errorf("StatusText = %q", s.StatusText)
	}
}
