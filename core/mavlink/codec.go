// Package mavlink implements the MAVLink v2 message subset spoken between
// the ground station and the owl flight controllers.
//
// Only the message kinds the per-device dispatcher interprets get typed
// structs; any other id decodes to Unknown with its raw payload intact.
// The package deliberately covers one dialect's worth of messages rather
// than the full MAVLink standard.
package mavlink

import (
	"errors"
	"fmt"
	"sync"
)

const (
	magicV2     = 0xFD
	headerLen   = 10 // magic, len, incompat, compat, seq, sysid, compid, msgid[3]
	checksumLen = 2
	// signatureLen is the length of the optional v2 signature trailer.
	signatureLen = 13

	// incompatFlagSigned marks a signed frame in the incompat_flags byte.
	incompatFlagSigned = 0x01

	// DefaultSystemID and DefaultComponentID identify this ground station
	// (MAV_COMP_ID_MISSIONPLANNER).
	DefaultSystemID    = 255
	DefaultComponentID = 190
)

var (
	ErrShortMessage     = errors.New("mavlink message too short")
	ErrBadMagic         = errors.New("not a mavlink v2 frame")
	ErrChecksumMismatch = errors.New("mavlink checksum mismatch")
	ErrUnsupportedType  = errors.New("message type cannot be encoded")
)

// crcExtra seeds the checksum with each message's dialect signature, so a
// frame only validates against the field layout it was generated from.
var crcExtra = map[uint32]uint8{
	MsgIDHeartbeat:         50,
	MsgIDAttitude:          39,
	MsgIDGlobalPositionInt: 104,
	MsgIDVfrHud:            20,
	MsgIDCommandLong:       152,
	MsgIDCommandAck:        143,
	MsgIDBatteryStatus:     154,
	MsgIDAutopilotVersion:  178,
	MsgIDExtendedSysState:  130,
	MsgIDStatusText:        83,
}

var decoders = map[uint32]func() wireMessage{
	MsgIDHeartbeat:         func() wireMessage { return &Heartbeat{} },
	MsgIDAttitude:          func() wireMessage { return &Attitude{} },
	MsgIDGlobalPositionInt: func() wireMessage { return &GlobalPositionInt{} },
	MsgIDVfrHud:            func() wireMessage { return &VfrHud{} },
	MsgIDCommandLong:       func() wireMessage { return &CommandLong{} },
	MsgIDCommandAck:        func() wireMessage { return &CommandAck{} },
	MsgIDBatteryStatus:     func() wireMessage { return &BatteryStatus{} },
	MsgIDAutopilotVersion:  func() wireMessage { return &AutopilotVersion{} },
	MsgIDExtendedSysState:  func() wireMessage { return &ExtendedSysState{} },
	MsgIDStatusText:        func() wireMessage { return &StatusText{} },
}

// Codec serializes and parses MAVLink v2 frames. Encode stamps outbound
// frames with this station's system/component id and a rolling sequence
// number; Decode accepts frames from any sender.
//
// Safe for concurrent use.
type Codec struct {
	mu          sync.Mutex
	seq         uint8
	systemID    uint8
	componentID uint8
}

// NewCodec creates a codec identifying as the given system and component.
// Zero values select the ground-station defaults.
func NewCodec(systemID, componentID uint8) *Codec {
	if systemID == 0 {
		systemID = DefaultSystemID
	}
	if componentID == 0 {
		componentID = DefaultComponentID
	}
	return &Codec{systemID: systemID, componentID: componentID}
}

// Encode serializes msg into a MAVLink v2 frame with trailing-zero payload
// truncation.
func (c *Codec) Encode(msg Message) ([]byte, error) {
	wm, ok := msg.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnsupportedType, msg.MsgID())
	}
	extra := crcExtra[msg.MsgID()]

	payload := make([]byte, wm.payloadLen())
	wm.pack(payload)

	// v2 truncates trailing zero payload bytes, keeping at least one.
	n := len(payload)
	for n > 1 && payload[n-1] == 0 {
		n--
	}
	payload = payload[:n]

	c.mu.Lock()
	seq := c.seq
	c.seq++
	c.mu.Unlock()

	id := msg.MsgID()
	buf := make([]byte, 0, headerLen+len(payload)+checksumLen)
	buf = append(buf, magicV2, uint8(len(payload)), 0, 0, seq, c.systemID, c.componentID,
		uint8(id), uint8(id>>8), uint8(id>>16))
	buf = append(buf, payload...)

	crc := x25(buf[1:], x25Init)
	crc = x25([]byte{extra}, crc)
	buf = append(buf, uint8(crc), uint8(crc>>8))
	return buf, nil
}

// Decode parses one MAVLink v2 frame. Truncated payloads are zero-extended
// before unpacking; a signature trailer, if present, is ignored. Ids outside
// the dialect decode to *Unknown without checksum verification, since their
// CRC_EXTRA seed is dialect data this codec does not carry.
func (c *Codec) Decode(data []byte) (Message, error) {
	if len(data) < headerLen+checksumLen {
		return nil, ErrShortMessage
	}
	if data[0] != magicV2 {
		return nil, fmt.Errorf("%w: leading byte 0x%02X", ErrBadMagic, data[0])
	}

	payloadLen := int(data[1])
	total := headerLen + payloadLen + checksumLen
	if data[2]&incompatFlagSigned != 0 {
		total += signatureLen
	}
	if len(data) < total {
		return nil, ErrShortMessage
	}

	id := uint32(data[7]) | uint32(data[8])<<8 | uint32(data[9])<<16
	payload := data[headerLen : headerLen+payloadLen]

	extra, known := crcExtra[id]
	if !known {
		return &Unknown{ID: id, Data: append([]byte(nil), payload...)}, nil
	}

	crcOff := headerLen + payloadLen
	want := uint16(data[crcOff]) | uint16(data[crcOff+1])<<8
	crc := x25(data[1:crcOff], x25Init)
	crc = x25([]byte{extra}, crc)
	if crc != want {
		return nil, fmt.Errorf("%w: id %d expected %04x, got %04x", ErrChecksumMismatch, id, crc, want)
	}

	wm := decoders[id]()
	full := make([]byte, wm.payloadLen())
	copy(full, payload)
	wm.unpack(full)
	return wm, nil
}
