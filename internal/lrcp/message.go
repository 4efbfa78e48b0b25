// Package lrcp implements the Line Reversal Control Protocol: a
// session-oriented reliable byte stream multiplexed over a single UDP
// socket, with application-level retransmission, acknowledgment and
// expiry.
package lrcp

import (
	"errors"
	"fmt"
	"strconv"
)

/* Wire formats:
/connect/SESSION/
/close/SESSION/
/ack/SESSION/LENGTH/
/data/SESSION/POS/DATA/
*/

// MaxDatagramSize is the maximum size, in bytes, of an LRCP datagram
// including framing, header and escaped payload.
const MaxDatagramSize = 1000

// MaxNumericField is the largest value a numeric field (session id,
// position, length) may hold.
const MaxNumericField = 1<<32 - 1

type msgType int

const (
	typeConnect msgType = iota
	typeClose
	typeAck
	typeData
)

// Msg is a parsed LRCP message.
type Msg struct {
	kind    msgType
	Session int
	// data
	Pos  int
	Data []byte
	// ack
	Length int
}

// IsConnect reports whether m is a Connect message.
func (m *Msg) IsConnect() bool { return m.kind == typeConnect }

// IsClose reports whether m is a Close message.
func (m *Msg) IsClose() bool { return m.kind == typeClose }

// IsAck reports whether m is an Ack message.
func (m *Msg) IsAck() bool { return m.kind == typeAck }

// IsData reports whether m is a Data message.
func (m *Msg) IsData() bool { return m.kind == typeData }

// ParseMessage parses a raw LRCP datagram. Parse errors (malformed
// framing, out-of-range numeric fields, bad escaping) are reported so
// the caller can silently drop the datagram, per the protocol's
// parse-error policy.
func ParseMessage(bs []byte) (*Msg, error) {
	if len(bs) == 0 {
		return nil, errors.New("empty message")
	}
	if bs[0] != '/' {
		return nil, errors.New("missing leading /")
	}

	t, rest, err := parseField(bs[1:])
	if err != nil {
		return nil, fmt.Errorf("parsing type: %w", err)
	}

	session, rest, err := parseField(rest)
	if err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}
	sessionInt, err := parseUint32(session)
	if err != nil {
		return nil, fmt.Errorf("parsing session id: %w", err)
	}

	switch string(t) {
	case "connect":
		if len(rest) != 0 {
			return nil, fmt.Errorf("extra data after session on connect: %s", rest)
		}
		return &Msg{kind: typeConnect, Session: sessionInt}, nil
	case "close":
		if len(rest) != 0 {
			return nil, fmt.Errorf("extra data after session on close: %s", rest)
		}
		return &Msg{kind: typeClose, Session: sessionInt}, nil
	case "ack":
		rawLength, rest, err := parseField(rest)
		if err != nil {
			return nil, fmt.Errorf("parsing length field: %w", err)
		}
		if len(rest) != 0 {
			return nil, fmt.Errorf("extra data after length field: %s", rest)
		}
		length, err := parseUint32(rawLength)
		if err != nil {
			return nil, fmt.Errorf("parsing length value: %w", err)
		}
		return &Msg{kind: typeAck, Session: sessionInt, Length: length}, nil
	case "data":
		rawPos, rest, err := parseField(rest)
		if err != nil {
			return nil, fmt.Errorf("parsing pos field: %w", err)
		}
		pos, err := parseUint32(rawPos)
		if err != nil {
			return nil, fmt.Errorf("parsing pos value: %w", err)
		}
		rawData, rest, err := parseField(rest)
		if err != nil {
			return nil, fmt.Errorf("parsing data field: %w", err)
		}
		if len(rest) != 0 {
			return nil, fmt.Errorf("extra data after data field: %s", rest)
		}
		data, err := unescapeData(rawData)
		if err != nil {
			return nil, fmt.Errorf("unescaping data: %w", err)
		}
		if total := pos + len(data); total > MaxNumericField {
			return nil, fmt.Errorf("total data length %d exceeds max %d", total, MaxNumericField)
		}
		return &Msg{kind: typeData, Session: sessionInt, Pos: pos, Data: data}, nil
	default:
		return nil, fmt.Errorf("unknown type %q", t)
	}
}

// parseField scans to the next unescaped '/', returning the bytes
// before it and the remainder after it. Every field must be terminated
// by an unescaped slash.
func parseField(bs []byte) (before, after []byte, err error) {
	var i int
	for i = 0; i < len(bs); i++ {
		if bs[i] == '\\' {
			i++ // the escaped byte cannot end the field
			continue
		}
		if bs[i] == '/' {
			break
		}
	}
	if i >= len(bs) {
		return nil, nil, fmt.Errorf("no unescaped / found in %q", bs)
	}
	return bs[:i], bs[i+1:], nil
}

func parseUint32(bs []byte) (int, error) {
	i, err := strconv.Atoi(string(bs))
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if i < 0 || i > MaxNumericField {
		return 0, fmt.Errorf("integer %d out of range", i)
	}
	return i, nil
}

// unescapeData reverses the data-field escaping (\\ -> \, \/ -> /),
// rejecting any unescaped \ or / encountered along the way.
func unescapeData(bs []byte) ([]byte, error) {
	out := make([]byte, 0, len(bs))
	for i := 0; i < len(bs); i++ {
		c := bs[i]
		if c == '\\' {
			if i+1 >= len(bs) {
				return nil, fmt.Errorf("trailing unescaped \\ at position %d", i)
			}
			next := bs[i+1]
			if next != '\\' && next != '/' {
				return nil, fmt.Errorf("invalid escape \\%c at position %d", next, i)
			}
			out = append(out, next)
			i++
			continue
		}
		if c == '/' {
			return nil, fmt.Errorf("unescaped / at position %d", i)
		}
		out = append(out, c)
	}
	return out, nil
}

// escapeData applies the data-field escaping (\ -> \\, / -> \/).
func escapeData(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c == '\\' || c == '/' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return out
}

// SerializeConnect renders a /connect/SESSION/ message.
func SerializeConnect(session int) []byte {
	return []byte(fmt.Sprintf("/connect/%d/", session))
}

// SerializeClose renders a /close/SESSION/ message.
func SerializeClose(session int) []byte {
	return []byte(fmt.Sprintf("/close/%d/", session))
}

// SerializeAck renders a /ack/SESSION/LENGTH/ message.
func SerializeAck(session, length int) []byte {
	return []byte(fmt.Sprintf("/ack/%d/%d/", session, length))
}

// SerializeData renders a /data/SESSION/POS/DATA/ message with data
// escaped per the wire format. The caller is responsible for ensuring
// the result does not exceed MaxDatagramSize; see FitData.
func SerializeData(session, pos int, data []byte) []byte {
	header := fmt.Sprintf("/data/%d/%d/", session, pos)
	escaped := escapeData(data)
	out := make([]byte, 0, len(header)+len(escaped)+1)
	out = append(out, header...)
	out = append(out, escaped...)
	out = append(out, '/')
	return out
}

// FitData returns the largest prefix length of data (in unescaped
// bytes) whose serialized /data/ message, starting at pos for the
// given session, fits within MaxDatagramSize.
func FitData(session, pos int, data []byte) int {
	header := fmt.Sprintf("/data/%d/%d/", session, pos)
	budget := MaxDatagramSize - len(header) - 1 // trailing /
	if budget <= 0 {
		return 0
	}
	n := 0
	used := 0
	for n < len(data) {
		c := data[n]
		cost := 1
		if c == '\\' || c == '/' {
			cost = 2
		}
		if used+cost > budget {
			break
		}
		used += cost
		n++
	}
	return n
}
