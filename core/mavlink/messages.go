package mavlink

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Message ids of the kinds the ground station interprets. Everything else
// flows through Unknown untouched.
const (
	MsgIDHeartbeat         uint32 = 0
	MsgIDAttitude          uint32 = 30
	MsgIDGlobalPositionInt uint32 = 33
	MsgIDVfrHud            uint32 = 74
	MsgIDCommandLong       uint32 = 76
	MsgIDCommandAck        uint32 = 77
	MsgIDBatteryStatus     uint32 = 147
	MsgIDAutopilotVersion  uint32 = 148
	MsgIDExtendedSysState  uint32 = 245
	MsgIDStatusText        uint32 = 253
)

// MAV_TYPE / MAV_AUTOPILOT / MAV_STATE values used by the ground station.
const (
	TypeGCS          = 6
	AutopilotGeneric = 0
	StateActive      = 4

	// BaseModeArmed is the MAV_MODE_FLAG_SAFETY_ARMED bit of base_mode.
	BaseModeArmed = 0x80
)

// COMMAND_ACK results defined by the BR&XGF control protocol: the airframe
// replies "received" when a command is accepted, "finished" when the action
// completes, "error" when it refuses.
const (
	AckReceived = 1
	AckFinished = 2
	AckError    = 3
)

// Command ids. The CmdExt block is the vendor extension range of the BR&XGF
// control protocol 2.0.
const (
	CmdNavReturnToLaunch            uint16 = 20
	CmdComponentArmDisarm           uint16 = 400
	CmdRequestAutopilotCapabilities uint16 = 520

	CmdExtTakeoff      uint16 = 281
	CmdExtLand         uint16 = 282
	CmdExtMove         uint16 = 283
	CmdExtCircle       uint16 = 284
	CmdExtGoto         uint16 = 285
	CmdExtTakePhoto    uint16 = 286
	CmdExtChangeSpeed  uint16 = 287
	CmdExtSetHeight    uint16 = 288
	CmdExtLightRGB     uint16 = 289
	CmdExtSetMode      uint16 = 290
	CmdExtHover        uint16 = 291
	CmdExtExtraActions uint16 = 292
	CmdExtUrgentDisarm uint16 = 293
)

// ArmDisarmForceMagic in param2 of an ARM_DISARM command forces the motors
// off regardless of flight state (emergency stop).
const ArmDisarmForceMagic = 21196

// EXTENDED_SYS_STATE landed_state values.
const (
	LandedStateUndefined = 0
	LandedStateOnGround  = 1
	LandedStateInAir     = 2
	LandedStateTakeoff   = 3
	LandedStateLanding   = 4
)

// LandedStateName returns a human-readable name for a landed_state value.
func LandedStateName(s uint8) string {
	switch s {
	case LandedStateOnGround:
		return "ON_GROUND"
	case LandedStateInAir:
		return "IN_AIR"
	case LandedStateTakeoff:
		return "TAKEOFF"
	case LandedStateLanding:
		return "LANDING"
	default:
		return "UNDEFINED"
	}
}

// Message is a decoded MAVLink message. MsgID reports the wire message id.
type Message interface {
	MsgID() uint32
}

// wireMessage is implemented by the typed messages the codec can serialize.
// unpack receives the payload zero-extended to payloadLen bytes.
type wireMessage interface {
	Message
	payloadLen() int
	pack(b []byte)
	unpack(b []byte)
}

// Heartbeat (0) carries arming state and the PX4-style flight mode word.
type Heartbeat struct {
	CustomMode     uint32
	Type           uint8
	Autopilot      uint8
	BaseMode       uint8
	SystemStatus   uint8
	MavlinkVersion uint8
}

func (*Heartbeat) MsgID() uint32   { return MsgIDHeartbeat }
func (*Heartbeat) payloadLen() int { return 9 }

// Armed reports the MAV_MODE_FLAG_SAFETY_ARMED bit.
func (m *Heartbeat) Armed() bool { return m.BaseMode&BaseModeArmed != 0 }

// MainMode returns the PX4 main mode byte of custom_mode.
func (m *Heartbeat) MainMode() uint8 { return uint8(m.CustomMode >> 16) }

// SubMode returns the PX4 sub mode byte of custom_mode.
func (m *Heartbeat) SubMode() uint8 { return uint8(m.CustomMode >> 24) }

func (m *Heartbeat) pack(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], m.CustomMode)
	b[4] = m.Type
	b[5] = m.Autopilot
	b[6] = m.BaseMode
	b[7] = m.SystemStatus
	b[8] = m.MavlinkVersion
}

func (m *Heartbeat) unpack(b []byte) {
	m.CustomMode = binary.LittleEndian.Uint32(b[0:4])
	m.Type = b[4]
	m.Autopilot = b[5]
	m.BaseMode = b[6]
	m.SystemStatus = b[7]
	m.MavlinkVersion = b[8]
}

// Attitude (30) carries airframe orientation in radians.
type Attitude struct {
	TimeBootMS uint32
	Roll       float32
	Pitch      float32
	Yaw        float32
	RollSpeed  float32
	PitchSpeed float32
	YawSpeed   float32
}

func (*Attitude) MsgID() uint32   { return MsgIDAttitude }
func (*Attitude) payloadLen() int { return 28 }

func (m *Attitude) pack(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], m.TimeBootMS)
	putFloat32(b[4:8], m.Roll)
	putFloat32(b[8:12], m.Pitch)
	putFloat32(b[12:16], m.Yaw)
	putFloat32(b[16:20], m.RollSpeed)
	putFloat32(b[20:24], m.PitchSpeed)
	putFloat32(b[24:28], m.YawSpeed)
}

func (m *Attitude) unpack(b []byte) {
	m.TimeBootMS = binary.LittleEndian.Uint32(b[0:4])
	m.Roll = getFloat32(b[4:8])
	m.Pitch = getFloat32(b[8:12])
	m.Yaw = getFloat32(b[12:16])
	m.RollSpeed = getFloat32(b[16:20])
	m.PitchSpeed = getFloat32(b[20:24])
	m.YawSpeed = getFloat32(b[24:28])
}

// GlobalPositionInt (33) is the fused global position estimate.
// Lat/Lon are degrees * 1e7, altitudes are millimetres, hdg is centidegrees.
type GlobalPositionInt struct {
	TimeBootMS  uint32
	Lat         int32
	Lon         int32
	Alt         int32
	RelativeAlt int32
	Vx          int16
	Vy          int16
	Vz          int16
	Hdg         uint16
}

func (*GlobalPositionInt) MsgID() uint32   { return MsgIDGlobalPositionInt }
func (*GlobalPositionInt) payloadLen() int { return 28 }

func (m *GlobalPositionInt) pack(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], m.TimeBootMS)
	binary.LittleEndian.PutUint32(b[4:8], uint32(m.Lat))
	binary.LittleEndian.PutUint32(b[8:12], uint32(m.Lon))
	binary.LittleEndian.PutUint32(b[12:16], uint32(m.Alt))
	binary.LittleEndian.PutUint32(b[16:20], uint32(m.RelativeAlt))
	binary.LittleEndian.PutUint16(b[20:22], uint16(m.Vx))
	binary.LittleEndian.PutUint16(b[22:24], uint16(m.Vy))
	binary.LittleEndian.PutUint16(b[24:26], uint16(m.Vz))
	binary.LittleEndian.PutUint16(b[26:28], m.Hdg)
}

func (m *GlobalPositionInt) unpack(b []byte) {
	m.TimeBootMS = binary.LittleEndian.Uint32(b[0:4])
	m.Lat = int32(binary.LittleEndian.Uint32(b[4:8]))
	m.Lon = int32(binary.LittleEndian.Uint32(b[8:12]))
	m.Alt = int32(binary.LittleEndian.Uint32(b[12:16]))
	m.RelativeAlt = int32(binary.LittleEndian.Uint32(b[16:20]))
	m.Vx = int16(binary.LittleEndian.Uint16(b[20:22]))
	m.Vy = int16(binary.LittleEndian.Uint16(b[22:24]))
	m.Vz = int16(binary.LittleEndian.Uint16(b[24:26]))
	m.Hdg = binary.LittleEndian.Uint16(b[26:28])
}

// VfrHud (74) carries HUD-style speed and altitude readouts.
type VfrHud struct {
	Airspeed    float32
	Groundspeed float32
	Alt         float32
	Climb       float32
	Heading     int16
	Throttle    uint16
}

func (*VfrHud) MsgID() uint32   { return MsgIDVfrHud }
func (*VfrHud) payloadLen() int { return 20 }

func (m *VfrHud) pack(b []byte) {
	putFloat32(b[0:4], m.Airspeed)
	putFloat32(b[4:8], m.Groundspeed)
	putFloat32(b[8:12], m.Alt)
	putFloat32(b[12:16], m.Climb)
	binary.LittleEndian.PutUint16(b[16:18], uint16(m.Heading))
	binary.LittleEndian.PutUint16(b[18:20], m.Throttle)
}

func (m *VfrHud) unpack(b []byte) {
	m.Airspeed = getFloat32(b[0:4])
	m.Groundspeed = getFloat32(b[4:8])
	m.Alt = getFloat32(b[8:12])
	m.Climb = getFloat32(b[12:16])
	m.Heading = int16(binary.LittleEndian.Uint16(b[16:18]))
	m.Throttle = binary.LittleEndian.Uint16(b[18:20])
}

// CommandLong (76) is the outbound command envelope. Param7 carries the
// 23-bit millisecond timestamp the airframe uses to discard duplicates.
type CommandLong struct {
	Param1          float32
	Param2          float32
	Param3          float32
	Param4          float32
	Param5          float32
	Param6          float32
	Param7          float32
	Command         uint16
	TargetSystem    uint8
	TargetComponent uint8
	Confirmation    uint8
}

func (*CommandLong) MsgID() uint32   { return MsgIDCommandLong }
func (*CommandLong) payloadLen() int { return 33 }

func (m *CommandLong) pack(b []byte) {
	putFloat32(b[0:4], m.Param1)
	putFloat32(b[4:8], m.Param2)
	putFloat32(b[8:12], m.Param3)
	putFloat32(b[12:16], m.Param4)
	putFloat32(b[16:20], m.Param5)
	putFloat32(b[20:24], m.Param6)
	putFloat32(b[24:28], m.Param7)
	binary.LittleEndian.PutUint16(b[28:30], m.Command)
	b[30] = m.TargetSystem
	b[31] = m.TargetComponent
	b[32] = m.Confirmation
}

func (m *CommandLong) unpack(b []byte) {
	m.Param1 = getFloat32(b[0:4])
	m.Param2 = getFloat32(b[4:8])
	m.Param3 = getFloat32(b[8:12])
	m.Param4 = getFloat32(b[12:16])
	m.Param5 = getFloat32(b[16:20])
	m.Param6 = getFloat32(b[20:24])
	m.Param7 = getFloat32(b[24:28])
	m.Command = binary.LittleEndian.Uint16(b[28:30])
	m.TargetSystem = b[30]
	m.TargetComponent = b[31]
	m.Confirmation = b[32]
}

// CommandAck (77) acknowledges a command. ResultParam2 echoes the command
// timestamp so acks can be matched to the command instance that caused them.
type CommandAck struct {
	Command         uint16
	Result          uint8
	Progress        uint8
	ResultParam2    int32
	TargetSystem    uint8
	TargetComponent uint8
}

func (*CommandAck) MsgID() uint32   { return MsgIDCommandAck }
func (*CommandAck) payloadLen() int { return 10 }

func (m *CommandAck) pack(b []byte) {
	binary.LittleEndian.PutUint16(b[0:2], m.Command)
	b[2] = m.Result
	b[3] = m.Progress
	binary.LittleEndian.PutUint32(b[4:8], uint32(m.ResultParam2))
	b[8] = m.TargetSystem
	b[9] = m.TargetComponent
}

func (m *CommandAck) unpack(b []byte) {
	m.Command = binary.LittleEndian.Uint16(b[0:2])
	m.Result = b[2]
	m.Progress = b[3]
	m.ResultParam2 = int32(binary.LittleEndian.Uint32(b[4:8]))
	m.TargetSystem = b[8]
	m.TargetComponent = b[9]
}

// BatteryStatus (147) reports pack voltages and remaining charge.
// Unused cell slots hold 0xFFFF.
type BatteryStatus struct {
	CurrentConsumed  int32
	EnergyConsumed   int32
	Temperature      int16
	Voltages         [10]uint16
	CurrentBattery   int16
	ID               uint8
	BatteryFunction  uint8
	Type             uint8
	BatteryRemaining int8
}

func (*BatteryStatus) MsgID() uint32   { return MsgIDBatteryStatus }
func (*BatteryStatus) payloadLen() int { return 36 }

// VoltageVolts sums the valid cell voltages and converts to volts.
func (m *BatteryStatus) VoltageVolts() float64 {
	var mv uint32
	for _, v := range m.Voltages {
		if v != 0xFFFF {
			mv += uint32(v)
		}
	}
	return float64(mv) / 1000.0
}

func (m *BatteryStatus) pack(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], uint32(m.CurrentConsumed))
	binary.LittleEndian.PutUint32(b[4:8], uint32(m.EnergyConsumed))
	binary.LittleEndian.PutUint16(b[8:10], uint16(m.Temperature))
	for i, v := range m.Voltages {
		binary.LittleEndian.PutUint16(b[10+i*2:12+i*2], v)
	}
	binary.LittleEndian.PutUint16(b[30:32], uint16(m.CurrentBattery))
	b[32] = m.ID
	b[33] = m.BatteryFunction
	b[34] = m.Type
	b[35] = uint8(m.BatteryRemaining)
}

func (m *BatteryStatus) unpack(b []byte) {
	m.CurrentConsumed = int32(binary.LittleEndian.Uint32(b[0:4]))
	m.EnergyConsumed = int32(binary.LittleEndian.Uint32(b[4:8]))
	m.Temperature = int16(binary.LittleEndian.Uint16(b[8:10]))
	for i := range m.Voltages {
		m.Voltages[i] = binary.LittleEndian.Uint16(b[10+i*2 : 12+i*2])
	}
	m.CurrentBattery = int16(binary.LittleEndian.Uint16(b[30:32]))
	m.ID = b[32]
	m.BatteryFunction = b[33]
	m.Type = b[34]
	m.BatteryRemaining = int8(b[35])
}

// AutopilotVersion (148) describes the flight controller firmware.
type AutopilotVersion struct {
	Capabilities            uint64
	UID                     uint64
	FlightSwVersion         uint32
	MiddlewareSwVersion     uint32
	OsSwVersion             uint32
	BoardVersion            uint32
	VendorID                uint16
	ProductID               uint16
	FlightCustomVersion     [8]uint8
	MiddlewareCustomVersion [8]uint8
	OsCustomVersion         [8]uint8
	UID2                    [18]uint8
}

func (*AutopilotVersion) MsgID() uint32   { return MsgIDAutopilotVersion }
func (*AutopilotVersion) payloadLen() int { return 78 }

// FlightSwVersionString renders flight_sw_version as "major.minor.patch".
func (m *AutopilotVersion) FlightSwVersionString() string {
	return fmt.Sprintf("%d.%d.%d",
		(m.FlightSwVersion>>16)&0xFF,
		(m.FlightSwVersion>>8)&0xFF,
		m.FlightSwVersion&0xFF)
}

// SerialNumber renders the first 12 bytes of uid2 as three hex words.
func (m *AutopilotVersion) SerialNumber() string {
	var sb strings.Builder
	for i := 0; i < 3; i++ {
		word := binary.LittleEndian.Uint32(m.UID2[i*4 : i*4+4])
		fmt.Fprintf(&sb, "%08x", word)
	}
	return sb.String()
}

func (m *AutopilotVersion) pack(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], m.Capabilities)
	binary.LittleEndian.PutUint64(b[8:16], m.UID)
	binary.LittleEndian.PutUint32(b[16:20], m.FlightSwVersion)
	binary.LittleEndian.PutUint32(b[20:24], m.MiddlewareSwVersion)
	binary.LittleEndian.PutUint32(b[24:28], m.OsSwVersion)
	binary.LittleEndian.PutUint32(b[28:32], m.BoardVersion)
	binary.LittleEndian.PutUint16(b[32:34], m.VendorID)
	binary.LittleEndian.PutUint16(b[34:36], m.ProductID)
	copy(b[36:44], m.FlightCustomVersion[:])
	copy(b[44:52], m.MiddlewareCustomVersion[:])
	copy(b[52:60], m.OsCustomVersion[:])
	copy(b[60:78], m.UID2[:])
}

func (m *AutopilotVersion) unpack(b []byte) {
	m.Capabilities = binary.LittleEndian.Uint64(b[0:8])
	m.UID = binary.LittleEndian.Uint64(b[8:16])
	m.FlightSwVersion = binary.LittleEndian.Uint32(b[16:20])
	m.MiddlewareSwVersion = binary.LittleEndian.Uint32(b[20:24])
	m.OsSwVersion = binary.LittleEndian.Uint32(b[24:28])
	m.BoardVersion = binary.LittleEndian.Uint32(b[28:32])
	m.VendorID = binary.LittleEndian.Uint16(b[32:34])
	m.ProductID = binary.LittleEndian.Uint16(b[34:36])
	copy(m.FlightCustomVersion[:], b[36:44])
	copy(m.MiddlewareCustomVersion[:], b[44:52])
	copy(m.OsCustomVersion[:], b[52:60])
	copy(m.UID2[:], b[60:78])
}

// ExtendedSysState (245) reports VTOL and landed state.
type ExtendedSysState struct {
	VtolState   uint8
	LandedState uint8
}

func (*ExtendedSysState) MsgID() uint32   { return MsgIDExtendedSysState }
func (*ExtendedSysState) payloadLen() int { return 2 }

func (m *ExtendedSysState) pack(b []byte) {
	b[0] = m.VtolState
	b[1] = m.LandedState
}

func (m *ExtendedSysState) unpack(b []byte) {
	m.VtolState = b[0]
	m.LandedState = b[1]
}

// StatusText (253) is a free-form status string from the airframe.
type StatusText struct {
	Severity uint8
	RawText  [50]byte
	ID       uint16
	ChunkSeq uint8
}

func (*StatusText) MsgID() uint32   { return MsgIDStatusText }
func (*StatusText) payloadLen() int { return 54 }

// Text returns the status string with trailing NULs stripped.
func (m *StatusText) Text() string {
	return strings.TrimRight(string(m.RawText[:]), "\x00")
}

// SetText stores s into the fixed-size text field, truncating if needed.
func (m *StatusText) SetText(s string) {
	m.RawText = [50]byte{}
	copy(m.RawText[:], s)
}

func (m *StatusText) pack(b []byte) {
	b[0] = m.Severity
	copy(b[1:51], m.RawText[:])
	binary.LittleEndian.PutUint16(b[51:53], m.ID)
	b[53] = m.ChunkSeq
}

func (m *StatusText) unpack(b []byte) {
	m.Severity = b[0]
	copy(m.RawText[:], b[1:51])
	m.ID = binary.LittleEndian.Uint16(b[51:53])
	m.ChunkSeq = b[53]
}

// Unknown wraps a message id the codec has no dialect entry for. The raw
// payload is preserved so it can still be cached per device.
type Unknown struct {
	ID   uint32
	Data []byte
}

func (m *Unknown) MsgID() uint32 { return m.ID }

func putFloat32(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}

func getFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
