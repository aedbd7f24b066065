// Package codec implements the owl link framing protocol that multiplexes
// MAVLink traffic for up to 16 flight controllers over one serial line.
//
// Frame format:
//
//	[0xAA][0xBB][deviceId][length][payload: length bytes][checksum][0xCC]
//
// deviceId is 1-16, length is 0-58 and checksum is the low 8 bits of the
// sum of the payload bytes.
package codec

import "errors"

const (
	// Header1 and Header2 start every frame.
	Header1 = 0xAA
	Header2 = 0xBB
	// Tail ends every frame.
	Tail = 0xCC

	// MinDeviceID and MaxDeviceID bound the addressable channel range.
	MinDeviceID = 1
	MaxDeviceID = 16

	// MaxPayloadSize is the maximum payload carried by one frame.
	MaxPayloadSize = 58

	// FrameOverhead is the number of framing bytes around the payload
	// (two header bytes, device id, length, checksum, tail).
	FrameOverhead = 6

	// maxBuffered caps the decoder's internal buffer. Exceeding it forces a
	// resynchronization: whatever partial frame was pending is abandoned.
	maxBuffered = 4096
)

var (
	ErrInvalidDevice   = errors.New("device id out of range")
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
)

// Frame is one decoded unit of the owl link protocol.
type Frame struct {
	DeviceID uint8
	Payload  []byte
}

// Checksum returns the low 8 bits of the sum of the payload bytes.
func Checksum(payload []byte) uint8 {
	var sum uint8
	for _, b := range payload {
		sum += b
	}
	return sum
}

// EncodeFrame wraps payload in a frame addressed to deviceID.
func EncodeFrame(deviceID uint8, payload []byte) ([]byte, error) {
	if deviceID < MinDeviceID || deviceID > MaxDeviceID {
		return nil, ErrInvalidDevice
	}
	if len(payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	frame := make([]byte, 0, len(payload)+FrameOverhead)
	frame = append(frame, Header1, Header2, deviceID, uint8(len(payload)))
	frame = append(frame, payload...)
	frame = append(frame, Checksum(payload), Tail)
	return frame, nil
}

// Stats holds decoder counters for diagnostics.
type Stats struct {
	// Frames is the number of validated frames emitted.
	Frames uint64
	// Resyncs counts recoveries from corrupt frames.
	Resyncs uint64
	// DroppedBytes counts bytes discarded as garbage or corruption.
	DroppedBytes uint64
}

// Decoder is a streaming frame decoder. Feed it arbitrary chunks of serial
// data; it buffers partial frames and resynchronizes past corruption by
// scanning for the next header pair.
//
// Not safe for concurrent use. The reader goroutine owns it.
type Decoder struct {
	buf   []byte
	stats Stats
}

// NewDecoder creates an empty streaming decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Stats returns a copy of the decoder's counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Feed appends chunk to the internal buffer and returns all complete,
// validated frames now available. A frame split across chunks is emitted
// once its remaining bytes arrive.
func (d *Decoder) Feed(chunk []byte) []Frame {
	if len(d.buf) > 0 && len(d.buf)+len(chunk) > maxBuffered {
		d.stats.DroppedBytes += uint64(len(d.buf))
		d.stats.Resyncs++
		d.buf = nil
	}
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	for {
		frame, ok := d.next()
		if !ok {
			break
		}
		frames = append(frames, frame)
	}
	return frames
}

// next scans the buffer for one complete frame. ok is false when more
// input is needed.
func (d *Decoder) next() (Frame, bool) {
	for {
		start := indexHeader(d.buf)
		if start < 0 {
			// No header pair. Keep a trailing 0xAA in case its partner
			// arrives in the next chunk.
			if n := len(d.buf); n > 0 && d.buf[n-1] == Header1 {
				d.stats.DroppedBytes += uint64(n - 1)
				d.buf = d.buf[n-1:]
			} else {
				d.stats.DroppedBytes += uint64(n)
				d.buf = nil
			}
			return Frame{}, false
		}
		if start > 0 {
			d.stats.DroppedBytes += uint64(start)
			d.buf = d.buf[start:]
		}

		if len(d.buf) < 4 {
			return Frame{}, false
		}

		id := d.buf[2]
		length := int(d.buf[3])
		if id < MinDeviceID || id > MaxDeviceID || length > MaxPayloadSize {
			d.resync()
			continue
		}

		total := 4 + length + 2
		if len(d.buf) < total {
			return Frame{}, false
		}

		payload := d.buf[4 : 4+length]
		if d.buf[total-1] != Tail || d.buf[4+length] != Checksum(payload) {
			d.resync()
			continue
		}

		frame := Frame{
			DeviceID: id,
			Payload:  append([]byte(nil), payload...),
		}
		d.buf = d.buf[total:]
		d.stats.Frames++
		return frame, true
	}
}

// resync drops the header pair just matched so scanning resumes one byte
// past it. Only bytes proven corrupt are discarded.
func (d *Decoder) resync() {
	d.buf = d.buf[2:]
	d.stats.Resyncs++
	d.stats.DroppedBytes += 2
}

// indexHeader returns the index of the first header byte pair, or -1.
func indexHeader(data []byte) int {
	for i := 0; i+1 < len(data); i++ {
		if data[i] == Header1 && data[i+1] == Header2 {
			return i
		}
	}
	return -1
}
