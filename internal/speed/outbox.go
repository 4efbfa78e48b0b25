package speed

import "io"

// outKind tags the variants carried over a client's outbound channel.
type outKind int

const (
	outError outKind = iota
	outTicket
	outHeartbeat
)

// outMsg is a message queued for delivery to a single client
// connection, encoded on the writer goroutine to keep message framing
// serialized per connection.
type outMsg struct {
	kind   outKind
	errMsg string
	ticket Ticket
}

func newOutError(msg string) outMsg { return outMsg{kind: outError, errMsg: msg} }
func newOutTicket(t Ticket) outMsg  { return outMsg{kind: outTicket, ticket: t} }
func newOutHeartbeat() outMsg       { return outMsg{kind: outHeartbeat} }

func (m outMsg) encode(w io.Writer) error {
	switch m.kind {
	case outError:
		return WriteError(w, m.errMsg)
	case outTicket:
		return WriteTicket(w, m.ticket)
	case outHeartbeat:
		return WriteHeartbeat(w)
	default:
		return nil
	}
}

// outboxBufferSize matches the original implementation's
// TO_CLIENT_BUFFER_SIZE: large enough that a dispatcher with a steady
// trickle of tickets never blocks the systems delivering them.
const outboxBufferSize = 32
