package speed

// dispatchBufferSize is generous since this actor is on the hot path
// for every ticket the road workers submit; it should never become
// the bottleneck.
const dispatchBufferSize = 1024

type registerDispatcherCmd struct {
	roads []uint16
	out   chan<- outMsg
}

type submitTicketCmd struct {
	ticket Ticket
}

// DispatchRegistry routes tickets to dispatchers registered for the
// ticket's road, queuing them when no dispatcher is available yet.
// It is a single actor goroutine owning all dispatcher/pending-ticket
// state, avoiding any shared-map locking.
type DispatchRegistry struct {
	registerCh chan registerDispatcherCmd
	submitCh   chan submitTicketCmd
}

// NewDispatchRegistry starts the ticket-routing actor and returns a
// handle to it.
func NewDispatchRegistry() *DispatchRegistry {
	d := &DispatchRegistry{
		registerCh: make(chan registerDispatcherCmd, dispatchBufferSize),
		submitCh:   make(chan submitTicketCmd, dispatchBufferSize),
	}
	go d.run()
	return d
}

// RegisterDispatcher registers out to receive tickets for roads,
// immediately flushing any tickets already pending for them.
func (d *DispatchRegistry) RegisterDispatcher(roads []uint16, out chan<- outMsg) {
	d.registerCh <- registerDispatcherCmd{roads: roads, out: out}
}

// SubmitTicket routes t to a live dispatcher for its road, or queues
// it until one registers.
func (d *DispatchRegistry) SubmitTicket(t Ticket) {
	d.submitCh <- submitTicketCmd{ticket: t}
}

func (d *DispatchRegistry) run() {
	dispatchers := make(map[uint16][]chan<- outMsg)
	pending := make(map[uint16][]Ticket)

	for {
		select {
		case cmd := <-d.registerCh:
			for _, road := range cmd.roads {
				dispatchers[road] = append(dispatchers[road], cmd.out)
			}
			for _, road := range cmd.roads {
				queued := pending[road]
				if len(queued) == 0 {
					continue
				}
				delete(pending, road)
				for i, t := range queued {
					if !sendNonBlocking(cmd.out, newOutTicket(t)) {
						// Not delivered: keep it and the rest queued.
						pending[road] = queued[i:]
						break
					}
				}
			}
		case cmd := <-d.submitCh:
			road := cmd.ticket.Road
			delivered := false
			for _, out := range dispatchers[road] {
				if sendNonBlocking(out, newOutTicket(cmd.ticket)) {
					delivered = true
					break
				}
			}
			if !delivered {
				pending[road] = append(pending[road], cmd.ticket)
			}
		}
	}
}

// sendNonBlocking attempts to enqueue msg on out, reporting whether it
// succeeded. A full or closed channel means the dispatcher connection
// is gone or backed up beyond its buffer; the caller treats that the
// same as the original implementation treats a closed mpsc sender:
// the ticket is not considered delivered.
func sendNonBlocking(out chan<- outMsg, msg outMsg) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case out <- msg:
		return true
	default:
		return false
	}
}
