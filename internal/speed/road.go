package speed

import (
	"fmt"
	"sync"
)

// dayInSecs converts a unix-ish timestamp to a calendar day index for
// the at-most-one-ticket-per-day rule.
const dayInSecs = 86400

// recordBufferSize and roadWorkerBufferSize mirror the original
// implementation's SYSTEM_BUFFER_SIZE/WORKER_BUFFER_SIZE: the record
// system forwards work quickly, so neither buffer needs to be large.
const (
	recordBufferSize     = 64
	roadWorkerBufferSize = 64
)

type registerCameraCmd struct {
	road  uint16
	limit uint16
}

type submitRecordCmd struct {
	road      uint16
	mile      uint16
	plate     string
	timestamp uint32
}

// RecordSystem owns the set of per-road workers, lazily starting one
// the first time a camera registers on that road.
type RecordSystem struct {
	registerCh chan registerCameraCmd
	submitCh   chan submitRecordCmd

	dispatch *DispatchRegistry

	// ticketed deduplicates tickets across roads: a (plate, day)
	// pair already present here has already been ticketed, per §9's
	// at-most-one-ticket-per-plate-per-day rule. Shared across all road
	// worker goroutines, so it's guarded by its own mutex rather than
	// routed through any single actor.
	ticketedMu sync.Mutex
	ticketed   map[string]struct{}
}

// NewRecordSystem starts the record system actor, routing tickets it
// detects to dispatch.
func NewRecordSystem(dispatch *DispatchRegistry) *RecordSystem {
	s := &RecordSystem{
		registerCh: make(chan registerCameraCmd, recordBufferSize),
		submitCh:   make(chan submitRecordCmd, recordBufferSize),
		dispatch:   dispatch,
		ticketed:   make(map[string]struct{}),
	}
	go s.run()
	return s
}

// RegisterCamera ensures a road worker exists for road, with limit as
// its speed limit. Repeated registration for the same road is a no-op
// on the limit (the first camera to register on a road wins, matching
// the original implementation's HashMap::entry().or_insert_with()).
func (s *RecordSystem) RegisterCamera(road, limit uint16) {
	s.registerCh <- registerCameraCmd{road: road, limit: limit}
}

// SubmitRecord reports a plate observation at mile on road at
// timestamp.
func (s *RecordSystem) SubmitRecord(road, mile uint16, plate string, timestamp uint32) {
	s.submitCh <- submitRecordCmd{road: road, mile: mile, plate: plate, timestamp: timestamp}
}

func (s *RecordSystem) run() {
	workers := make(map[uint16]chan submitRecordCmd)
	register := func(cmd registerCameraCmd) {
		if _, ok := workers[cmd.road]; ok {
			return
		}
		ch := make(chan submitRecordCmd, roadWorkerBufferSize)
		workers[cmd.road] = ch
		w := &roadWorker{
			road:     cmd.road,
			limit:    cmd.limit,
			dispatch: s.dispatch,
			system:   s,
			records:  make(map[string]map[uint16]uint32),
		}
		go w.run(ch)
	}

	for {
		select {
		case cmd := <-s.registerCh:
			register(cmd)
		case cmd := <-s.submitCh:
			// select picks among ready cases at random, so a camera's
			// registration may still be queued behind its first record.
			for len(s.registerCh) > 0 {
				register(<-s.registerCh)
			}
			ch, ok := workers[cmd.road]
			if !ok {
				// A record for a road with no registered camera is a
				// programmer error in the caller; nothing to route to.
				continue
			}
			ch <- cmd
		}
	}
}

// tryClaimDays attempts to claim every calendar day in [day1, day2]
// (inclusive) for plate, atomically: either every day was free and is
// now claimed, or at least one was already claimed and none are
// changed.
func (s *RecordSystem) tryClaimDays(plate string, day1, day2 uint32) bool {
	if day1 > day2 {
		day1, day2 = day2, day1
	}
	s.ticketedMu.Lock()
	defer s.ticketedMu.Unlock()
	for d := day1; d <= day2; d++ {
		if _, ok := s.ticketed[dayKey(plate, d)]; ok {
			return false
		}
	}
	for d := day1; d <= day2; d++ {
		s.ticketed[dayKey(plate, d)] = struct{}{}
	}
	return true
}

func dayKey(plate string, day uint32) string {
	return fmt.Sprintf("%s|%d", plate, day)
}

// roadWorker is a per-road actor holding the mile/timestamp
// observations for every plate seen on its road, detecting speeding
// across every pair of observations for a plate as new ones arrive.
type roadWorker struct {
	road     uint16
	limit    uint16
	dispatch *DispatchRegistry
	system   *RecordSystem

	records map[string]map[uint16]uint32
}

func (w *roadWorker) run(in <-chan submitRecordCmd) {
	for cmd := range in {
		w.record(cmd.mile, cmd.plate, cmd.timestamp)
	}
}

func (w *roadWorker) record(mile uint16, plate string, timestamp uint32) {
	entries := w.records[plate]
	if entries == nil {
		entries = make(map[uint16]uint32)
		w.records[plate] = entries
	}

	for otherMile, otherTimestamp := range entries {
		w.checkPair(plate, mile, timestamp, otherMile, otherTimestamp)
	}
	entries[mile] = timestamp
}

func (w *roadWorker) checkPair(plate string, mile1 uint16, t1 uint32, mile2 uint16, t2 uint32) {
	distance := absDiffU16(mile1, mile2)
	elapsedHours := float64(absDiffU32(t1, t2)) / 3600.0
	if elapsedHours == 0 || distance == 0 {
		return
	}
	speed := roundSpeed(float64(distance) / elapsedHours)
	if speed <= w.limit {
		return
	}

	// Reorder by timestamp, earliest first.
	startMile, startTime, endMile, endTime := mile1, t1, mile2, t2
	if t2 < t1 {
		startMile, startTime, endMile, endTime = mile2, t2, mile1, t1
	}

	day1 := startTime / dayInSecs
	day2 := endTime / dayInSecs
	if !w.system.tryClaimDays(plate, day1, day2) {
		return
	}

	ticket := NewTicket(plate, w.road, startMile, startTime, endMile, endTime, speed)
	w.dispatch.SubmitTicket(ticket)
}

func absDiffU16(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}

func absDiffU32(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// roundSpeed rounds a computed mph value to the nearest uint16, per
// §4.2's `speed = round(Δd/Δh)`.
func roundSpeed(mph float64) uint16 {
	return uint16(mph + 0.5)
}
