package mavlink

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestX25CheckValue(t *testing.T) {
	// CRC-16/MCRF4XX check value for the standard test vector.
	if got := x25([]byte("123456789"), x25Init); got != 0x6F91 {
		t.Errorf("x25 = %04x, want 6f91", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "heartbeat",
			msg: &Heartbeat{
				CustomMode:     0x02030000,
				Type:           TypeGCS,
				Autopilot:      AutopilotGeneric,
				BaseMode:       BaseModeArmed,
				SystemStatus:   StateActive,
				MavlinkVersion: 2,
			},
		},
		{
			name: "heartbeat all zero fields truncates",
			msg:  &Heartbeat{},
		},
		{
			name: "global position",
			msg: &GlobalPositionInt{
				TimeBootMS:  123456,
				Lat:         473977420,
				Lon:         85455940,
				Alt:         488000,
				RelativeAlt: 12000,
				Vx:          -3,
				Vy:          14,
				Vz:          0,
				Hdg:         27000,
			},
		},
		{
			name: "command long",
			msg: &CommandLong{
				Param1:          1,
				Param7:          8388607,
				Command:         CmdComponentArmDisarm,
				TargetSystem:    1,
				TargetComponent: 1,
			},
		},
		{
			name: "command ack with extension fields",
			msg: &CommandAck{
				Command:      CmdExtTakeoff,
				Result:       AckFinished,
				ResultParam2: 1234567,
			},
		},
		{
			name: "battery status",
			msg: &BatteryStatus{
				Temperature:      211,
				Voltages:         [10]uint16{3900, 3880, 3910, 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF},
				CurrentBattery:   1520,
				BatteryRemaining: 77,
			},
		},
		{
			name: "extended sys state",
			msg:  &ExtendedSysState{LandedState: LandedStateInAir},
		},
		{
			name: "autopilot version",
			msg: &AutopilotVersion{
				FlightSwVersion: 0x01080200,
				BoardVersion:    9,
				UID2:            [18]uint8{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			},
		},
	}

	c := NewCodec(0, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := c.Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := c.Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.msg) {
				t.Errorf("Decode() = %+v, want %+v", got, tt.msg)
			}
		})
	}
}

func TestStatusTextRoundTrip(t *testing.T) {
	msg := &StatusText{Severity: 6}
	msg.SetText("ready for takeoff")

	c := NewCodec(0, 0)
	data, err := c.Encode(msg)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	st, ok := got.(*StatusText)
	if !ok {
		t.Fatalf("decoded %T, want *StatusText", got)
	}
	if st.Text() != "ready for takeoff" {
		t.Errorf("Text() = %q", st.Text())
	}
}

func TestEncodeTruncatesTrailingZeros(t *testing.T) {
	c := NewCodec(0, 0)
	data, err := c.Encode(&Heartbeat{Type: TypeGCS}) // everything after the type byte is zero
	if err != nil {
		t.Fatal(err)
	}
	payloadLen := int(data[1])
	if payloadLen >= 9 {
		t.Errorf("payload length = %d, expected truncation below 9", payloadLen)
	}
}

func TestDecodeUnknownID(t *testing.T) {
	// Hand-build a frame for dialect message 805 (photo transfer). The
	// checksum cannot be verified without the dialect, so any value passes.
	payload := []byte{0x01, 0x07, 0xAB}
	frame := []byte{magicV2, uint8(len(payload)), 0, 0, 0, 1, 1, 0x25, 0x03, 0x00}
	frame = append(frame, payload...)
	frame = append(frame, 0x00, 0x00)

	got, err := NewCodec(0, 0).Decode(frame)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	u, ok := got.(*Unknown)
	if !ok {
		t.Fatalf("decoded %T, want *Unknown", got)
	}
	if u.ID != 805 {
		t.Errorf("ID = %d, want 805", u.ID)
	}
	if !bytes.Equal(u.Data, payload) {
		t.Errorf("Data = % X, want % X", u.Data, payload)
	}
}

func TestDecodeErrors(t *testing.T) {
	c := NewCodec(0, 0)
	good, err := c.Encode(&Heartbeat{Type: TypeGCS, SystemStatus: StateActive, MavlinkVersion: 2})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("short", func(t *testing.T) {
		if _, err := c.Decode(good[:5]); !errors.Is(err, ErrShortMessage) {
			t.Errorf("error = %v, want ErrShortMessage", err)
		}
	})

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[0] = 0xFE
		if _, err := c.Decode(bad); !errors.Is(err, ErrBadMagic) {
			t.Errorf("error = %v, want ErrBadMagic", err)
		}
	})

	t.Run("corrupt checksum", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[len(bad)-1] ^= 0xFF
		if _, err := c.Decode(bad); !errors.Is(err, ErrChecksumMismatch) {
			t.Errorf("error = %v, want ErrChecksumMismatch", err)
		}
	})
}

func TestEncodeSequenceIncrements(t *testing.T) {
	c := NewCodec(0, 0)
	a, _ := c.Encode(&Heartbeat{Type: TypeGCS})
	b, _ := c.Encode(&Heartbeat{Type: TypeGCS})
	if a[4] == b[4] {
		t.Errorf("sequence did not advance: %d, %d", a[4], b[4])
	}
}

func TestHeartbeatModeHelpers(t *testing.T) {
	hb := &Heartbeat{CustomMode: uint32(4)<<16 | uint32(5)<<24, BaseMode: BaseModeArmed}
	if !hb.Armed() {
		t.Error("Armed() = false")
	}
	if hb.MainMode() != 4 {
		t.Errorf("MainMode() = %d, want 4", hb.MainMode())
	}
	if hb.SubMode() != 5 {
		t.Errorf("SubMode() = %d, want 5", hb.SubMode())
	}
}

func TestAutopilotVersionHelpers(t *testing.T) {
	v := &AutopilotVersion{FlightSwVersion: 0x00010203}
	if got := v.FlightSwVersionString(); got != "1.2.3" {
		t.Errorf("FlightSwVersionString() = %q, want 1.2.3", got)
	}

	var uid2 [18]uint8
	copy(uid2[:], []byte{0x01, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00})
	v.UID2 = uid2
	if got := v.SerialNumber(); got != "000000010000000200000003" {
		t.Errorf("SerialNumber() = %q", got)
	}
}
