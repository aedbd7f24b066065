package fleet

import (
	"errors"
	"fmt"

	"github.com/owl-uav/owlink/core/mavlink"
)

// ErrInvalidParameter is returned when a command argument is out of range.
var ErrInvalidParameter = errors.New("invalid command parameter")

// MoveDirection selects the body-frame axis for Move.
type MoveDirection uint8

const (
	MoveUp MoveDirection = iota + 1
	MoveDown
	MoveForward
	MoveBack
	MoveLeft
	MoveRight
)

func (d MoveDirection) String() string {
	switch d {
	case MoveUp:
		return "up"
	case MoveDown:
		return "down"
	case MoveForward:
		return "forward"
	case MoveBack:
		return "back"
	case MoveLeft:
		return "left"
	case MoveRight:
		return "right"
	default:
		return "unknown"
	}
}

// FlipDirection selects the axis and sense of a Flip.
type FlipDirection uint8

const (
	FlipForward FlipDirection = iota + 1
	FlipBack
	FlipLeft
	FlipRight
)

func (d FlipDirection) String() string {
	switch d {
	case FlipForward:
		return "forward"
	case FlipBack:
		return "back"
	case FlipLeft:
		return "left"
	case FlipRight:
		return "right"
	default:
		return "unknown"
	}
}

// AssistMode selects the airframe's onboard assistance mode.
type AssistMode uint8

const (
	AssistNormal AssistMode = iota + 1
	AssistLineFollow
	AssistFollow
)

func (m AssistMode) String() string {
	switch m {
	case AssistNormal:
		return "normal"
	case AssistLineFollow:
		return "line-follow"
	case AssistFollow:
		return "follow"
	default:
		return "unknown"
	}
}

// maxSpeedCMS is the airframe's flight speed ceiling.
const maxSpeedCMS = 200

// Arm arms the airframe's motors.
func (m *Manager) Arm(deviceID uint8) error {
	return m.sendCommand(deviceID, mavlink.CmdComponentArmDisarm, [6]float32{1})
}

// Disarm disarms the airframe's motors.
func (m *Manager) Disarm(deviceID uint8) error {
	return m.sendCommand(deviceID, mavlink.CmdComponentArmDisarm, [6]float32{0})
}

// Takeoff commands a climb to the given height above the launch point, in
// centimetres. Completion is reported asynchronously via COMMAND_ACK.
func (m *Manager) Takeoff(deviceID uint8, altitudeCM int) error {
	if altitudeCM <= 0 {
		return fmt.Errorf("%w: takeoff altitude %d cm", ErrInvalidParameter, altitudeCM)
	}
	return m.sendCommand(deviceID, mavlink.CmdExtTakeoff, [6]float32{float32(altitudeCM)})
}

// Land commands a landing at the current position.
func (m *Manager) Land(deviceID uint8) error {
	return m.sendCommand(deviceID, mavlink.CmdExtLand, [6]float32{1, 100})
}

// ReturnToLaunch commands a return to the launch point.
func (m *Manager) ReturnToLaunch(deviceID uint8) error {
	return m.sendCommand(deviceID, mavlink.CmdNavReturnToLaunch, [6]float32{})
}

// RequestVersion asks the airframe for its AUTOPILOT_VERSION report. The
// reply lands in the device's state asynchronously.
func (m *Manager) RequestVersion(deviceID uint8) error {
	return m.sendCommand(deviceID, mavlink.CmdRequestAutopilotCapabilities, [6]float32{1})
}

// Move commands a body-frame translation by distanceCM centimetres.
func (m *Manager) Move(deviceID uint8, dir MoveDirection, distanceCM int) error {
	if dir < MoveUp || dir > MoveRight {
		return fmt.Errorf("%w: move direction %d", ErrInvalidParameter, dir)
	}
	if distanceCM <= 0 {
		return fmt.Errorf("%w: move distance %d cm", ErrInvalidParameter, distanceCM)
	}
	return m.sendCommand(deviceID, mavlink.CmdExtMove,
		[6]float32{float32(dir), float32(distanceCM), 100})
}

// Goto commands a flight to the given position in the local frame, all in
// centimetres: x forward, y right, h height above the launch point.
func (m *Manager) Goto(deviceID uint8, xCM, yCM, heightCM int) error {
	if heightCM <= 0 {
		return fmt.Errorf("%w: goto height %d cm", ErrInvalidParameter, heightCM)
	}
	return m.sendCommand(deviceID, mavlink.CmdExtGoto,
		[6]float32{float32(xCM), float32(yCM), float32(heightCM)})
}

// Rotate commands a clockwise yaw by deg degrees, 0 < deg <= 360.
func (m *Manager) Rotate(deviceID uint8, deg int) error {
	return m.rotate(deviceID, deg, 2)
}

// RotateCCW commands a counter-clockwise yaw by deg degrees, 0 < deg <= 360.
func (m *Manager) RotateCCW(deviceID uint8, deg int) error {
	return m.rotate(deviceID, deg, 1)
}

func (m *Manager) rotate(deviceID uint8, deg int, direction float32) error {
	if deg <= 0 || deg > 360 {
		return fmt.Errorf("%w: rotation %d degrees", ErrInvalidParameter, deg)
	}
	return m.sendCommand(deviceID, mavlink.CmdExtCircle,
		[6]float32{direction, float32(deg)})
}

// SetSpeed sets the flight speed in centimetres per second, up to 200.
func (m *Manager) SetSpeed(deviceID uint8, speedCMS int) error {
	if speedCMS <= 0 || speedCMS > maxSpeedCMS {
		return fmt.Errorf("%w: speed %d cm/s", ErrInvalidParameter, speedCMS)
	}
	return m.sendCommand(deviceID, mavlink.CmdExtChangeSpeed,
		[6]float32{float32(speedCMS)})
}

// SetHeight commands a climb or descent to the given height above the
// launch point, in centimetres.
func (m *Manager) SetHeight(deviceID uint8, heightCM int) error {
	if heightCM <= 0 {
		return fmt.Errorf("%w: height %d cm", ErrInvalidParameter, heightCM)
	}
	return m.sendCommand(deviceID, mavlink.CmdExtSetHeight,
		[6]float32{float32(heightCM)})
}

// Hover interrupts the current movement command and holds position.
func (m *Manager) Hover(deviceID uint8) error {
	return m.sendCommand(deviceID, mavlink.CmdExtHover, [6]float32{1})
}

// Flip commands an aerobatic flip in the given direction.
func (m *Manager) Flip(deviceID uint8, dir FlipDirection) error {
	if dir < FlipForward || dir > FlipRight {
		return fmt.Errorf("%w: flip direction %d", ErrInvalidParameter, dir)
	}
	return m.sendCommand(deviceID, mavlink.CmdExtExtraActions,
		[6]float32{1, float32(dir)})
}

// SetAssistMode selects the airframe's onboard assistance mode.
func (m *Manager) SetAssistMode(deviceID uint8, mode AssistMode) error {
	if mode < AssistNormal || mode > AssistFollow {
		return fmt.Errorf("%w: assist mode %d", ErrInvalidParameter, mode)
	}
	return m.sendCommand(deviceID, mavlink.CmdExtSetMode,
		[6]float32{float32(mode)})
}

// StopMotors force-disarms the motors immediately, regardless of flight
// state. The airframe will fall.
func (m *Manager) StopMotors(deviceID uint8) error {
	return m.sendCommand(deviceID, mavlink.CmdComponentArmDisarm,
		[6]float32{0, mavlink.ArmDisarmForceMagic})
}

// EmergencyDisarm commands the vendor emergency stop-and-lock.
func (m *Manager) EmergencyDisarm(deviceID uint8) error {
	return m.sendCommand(deviceID, mavlink.CmdExtUrgentDisarm, [6]float32{1})
}

// LED sets the airframe's LED to a steady color.
func (m *Manager) LED(deviceID uint8, r, g, b uint8) error {
	return m.led(deviceID, r, g, b, 0, 0)
}

// LEDBreathe sets the airframe's LED to a breathing pattern in the given
// color.
func (m *Manager) LEDBreathe(deviceID uint8, r, g, b uint8) error {
	return m.led(deviceID, r, g, b, 1, 0)
}

// LEDRainbow sets the airframe's LED to a rainbow cycle starting from the
// given color.
func (m *Manager) LEDRainbow(deviceID uint8, r, g, b uint8) error {
	return m.led(deviceID, r, g, b, 0, 1)
}

func (m *Manager) led(deviceID uint8, r, g, b uint8, breathe, rainbow float32) error {
	return m.sendCommand(deviceID, mavlink.CmdExtLightRGB,
		[6]float32{float32(r), float32(g), float32(b), breathe, rainbow})
}

// TakePhoto triggers the onboard camera. The photo itself arrives over the
// vendor image-transfer messages, which are cached raw per device.
func (m *Manager) TakePhoto(deviceID uint8) error {
	return m.sendCommand(deviceID, mavlink.CmdExtTakePhoto, [6]float32{})
}

// sendCommand builds a COMMAND_LONG with a fresh command timestamp and
// enqueues it. The operation completes once the frame is accepted for
// transmission; acknowledgements arrive asynchronously as COMMAND_ACK.
func (m *Manager) sendCommand(deviceID uint8, command uint16, params [6]float32) error {
	if _, err := m.registry.GetOrCreate(deviceID); err != nil {
		return err
	}

	msg := &mavlink.CommandLong{
		Param1:          params[0],
		Param2:          params[1],
		Param3:          params[2],
		Param4:          params[3],
		Param5:          params[4],
		Param6:          params[5],
		Param7:          float32(m.clock.CommandTimestamp()),
		Command:         command,
		TargetSystem:    1,
		TargetComponent: 1,
	}

	if err := m.Send(deviceID, msg); err != nil {
		return err
	}
	m.log.Debug("command enqueued", "device", deviceID, "command", command)
	return nil
}
