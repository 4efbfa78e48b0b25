// Package speed implements the C2 speed-daemon ticketing engine: a
// multi-role TCP service where cameras report license-plate
// observations, the server detects speeding across pairs of
// observations on the same road, and registered dispatchers receive
// the resulting tickets.
package speed

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// Message type tags, per the wire protocol.
const (
	msgError         byte = 0x10
	msgPlate         byte = 0x20
	msgTicket        byte = 0x21
	msgWantHeartbeat byte = 0x40
	msgHeartbeat     byte = 0x41
	msgIAmCamera     byte = 0x80
	msgIAmDispatcher byte = 0x81
)

// speedFactor is the fixed-point multiplier applied to a ticket's
// speed before it goes on the wire.
const speedFactor = 100

// Plate is a client-reported plate observation.
type Plate struct {
	Plate     string
	Timestamp uint32
}

// WantHeartbeat requests periodic Heartbeat messages every
// Interval/10 seconds; Interval == 0 means no heartbeats.
type WantHeartbeat struct {
	Interval uint32
}

// IAmCamera identifies the connection as a camera on Road at Mile,
// enforcing speed Limit (mph).
type IAmCamera struct {
	Road  uint16
	Mile  uint16
	Limit uint16
}

// IAmDispatcher identifies the connection as a dispatcher responsible
// for Roads.
type IAmDispatcher struct {
	Roads []uint16
}

// Ticket is the result of a detected speeding violation.
type Ticket struct {
	Plate  string
	Road   uint16
	Mile1  uint16
	Time1  uint32
	Mile2  uint16
	Time2  uint32
	Speed  uint16 // already multiplied by speedFactor
}

// ReadClientMessage reads and decodes the next client-to-server
// message. The returned value is one of Plate, WantHeartbeat,
// IAmCamera, or IAmDispatcher.
func ReadClientMessage(r *bufio.Reader) (any, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case msgPlate:
		plate, err := readString(r)
		if err != nil {
			return nil, err
		}
		ts, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		return Plate{Plate: plate, Timestamp: ts}, nil
	case msgWantHeartbeat:
		interval, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		return WantHeartbeat{Interval: interval}, nil
	case msgIAmCamera:
		road, err := readUint16(r)
		if err != nil {
			return nil, err
		}
		mile, err := readUint16(r)
		if err != nil {
			return nil, err
		}
		limit, err := readUint16(r)
		if err != nil {
			return nil, err
		}
		return IAmCamera{Road: road, Mile: mile, Limit: limit}, nil
	case msgIAmDispatcher:
		count, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		roads := make([]uint16, count)
		for i := range roads {
			road, err := readUint16(r)
			if err != nil {
				return nil, err
			}
			roads[i] = road
		}
		return IAmDispatcher{Roads: roads}, nil
	default:
		return nil, fmt.Errorf("unknown message type 0x%02x", tag)
	}
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// readString reads a u8-length-prefixed string and validates it is
// well-formed UTF-8, per the original implementation's DeserializeError::Utf.
func readString(r io.Reader) (string, error) {
	var l [1]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return "", err
	}
	raw := make([]byte, l[0])
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", errInvalidString
	}
	return string(raw), nil
}

var errInvalidString = fmt.Errorf("invalid string format")

// writeString writes s as a u8-length-prefixed string.
func writeString(w io.Writer, s string) error {
	if len(s) > 255 {
		return fmt.Errorf("string %q too long to encode", s)
	}
	if _, err := w.Write([]byte{byte(len(s))}); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteError encodes an Error message.
func WriteError(w io.Writer, msg string) error {
	if _, err := w.Write([]byte{msgError}); err != nil {
		return err
	}
	return writeString(w, msg)
}

// WriteHeartbeat encodes a Heartbeat message.
func WriteHeartbeat(w io.Writer) error {
	_, err := w.Write([]byte{msgHeartbeat})
	return err
}

// NewTicket builds a Ticket from two observations reordered by
// timestamp (mile1/time1 earlier), applying speedFactor to speed.
func NewTicket(plate string, road uint16, mile1 uint16, time1 uint32, mile2 uint16, time2 uint32, speed uint16) Ticket {
	return Ticket{
		Plate: plate,
		Road:  road,
		Mile1: mile1,
		Time1: time1,
		Mile2: mile2,
		Time2: time2,
		Speed: speed * speedFactor,
	}
}

// WriteTicket encodes a Ticket message.
func WriteTicket(w io.Writer, t Ticket) error {
	if _, err := w.Write([]byte{msgTicket}); err != nil {
		return err
	}
	if err := writeString(w, t.Plate); err != nil {
		return err
	}
	if err := writeUint16(w, t.Road); err != nil {
		return err
	}
	if err := writeUint16(w, t.Mile1); err != nil {
		return err
	}
	if err := writeUint32(w, t.Time1); err != nil {
		return err
	}
	if err := writeUint16(w, t.Mile2); err != nil {
		return err
	}
	if err := writeUint32(w, t.Time2); err != nil {
		return err
	}
	return writeUint16(w, t.Speed)
}
