// Package sendqueue implements the outbound pipeline of spec.md §4.2:
// a FIFO of framed messages drained under simulated jitter, with a
// single-slot out-of-order injector used for shakeout testing.
//
// Driven from the same cooperative tick as the endpoint state machine
// (no goroutines, no blocking): Drain runs on every tick and after each
// enqueue, and only ever reads the queue's clock, never sleeps.
//
// Grounded on ventosilenzioso-go-raknet/source/protocol/raknet.go's
// Session.SendQueue ([]*EncapsulatedPacket FIFO drained from Update)
// and the ring/hold-back technique in
// other_examples/8eaacd1a_rustyguts-bken__client-internal-jitter-jitter.go.go.
package sendqueue

import "time"

// Clock abstracts wall-clock reads so tests can control time.
type Clock interface {
	Now() time.Time
}

// Rng abstracts the jitter/OOP random draws so tests are deterministic.
type Rng interface {
	// Float64 returns a value in [0, 1), matching math/rand.Float64.
	Float64() float64
}

// Sink is the transport handoff: framed bytes addressed to a bound
// peer identity. PeerIdentity is opaque to sendqueue; it is whatever
// the endpoint bound at Init.
type Sink interface {
	SendTo(peerIdentity any, data []byte) error
}

type entry struct {
	data         []byte
	peerIdentity any
	enqueuedAt   time.Time
}

// Queue is the per-endpoint outbound pipeline. Not safe for concurrent
// use; the owning endpoint's tick loop is the sole caller.
type Queue struct {
	clock Clock
	rng   Rng

	sendLatency time.Duration
	oopPercent  int

	pending []entry

	oopOccupied bool
	oopEntry    entry
	oopRelease  time.Time
}

// New constructs a Queue with the shakeout parameters loaded once at
// construction, per §4.2 ("both loaded once at construction from host
// config").
func New(clock Clock, rng Rng, sendLatency time.Duration, oopPercent int) *Queue {
	return &Queue{clock: clock, rng: rng, sendLatency: sendLatency, oopPercent: oopPercent}
}

// Enqueue stamps an enqueue timestamp and appends data to the tail of
// the pending FIFO, addressed to peerIdentity.
func (q *Queue) Enqueue(peerIdentity any, data []byte) {
	q.pending = append(q.pending, entry{
		data:         data,
		peerIdentity: peerIdentity,
		enqueuedAt:   q.clock.Now(),
	})
}

// Drain walks the head of the pending FIFO, releasing, diverting to
// the out-of-order slot, or holding each entry per §4.2, then services
// the out-of-order slot if its release time has arrived.
func (q *Queue) Drain(sink Sink) error {
	now := q.clock.Now()

	for len(q.pending) > 0 {
		head := q.pending[0]

		if q.sendLatency > 0 {
			jitter := q.jitterDelay()
			if now.Before(head.enqueuedAt.Add(jitter)) {
				break
			}
		}

		if !q.oopOccupied && q.oopPercent > 0 && q.rng.Float64() < float64(q.oopPercent)/100 {
			q.oopEntry = head
			q.oopOccupied = true
			q.oopRelease = now.Add(q.oopReleaseDelay())
			q.pending = q.pending[1:]
			continue
		}

		// Pop before the handoff: a transport that delivers synchronously
		// can re-enter Drain, which must only see entries not yet sent.
		q.pending = q.pending[1:]
		if err := sink.SendTo(head.peerIdentity, head.data); err != nil {
			return err
		}
	}

	if q.oopOccupied && !now.Before(q.oopRelease) {
		held := q.oopEntry
		q.oopOccupied = false
		q.oopEntry = entry{}
		if err := sink.SendTo(held.peerIdentity, held.data); err != nil {
			return err
		}
	}

	return nil
}

// jitterDelay computes (2/3)*send_latency + uniform(0, send_latency/3).
func (q *Queue) jitterDelay() time.Duration {
	base := q.sendLatency * 2 / 3
	spread := time.Duration(q.rng.Float64() * float64(q.sendLatency) / 3)
	return base + spread
}

// oopReleaseDelay computes uniform(0, 10*send_latency + 1000ms).
func (q *Queue) oopReleaseDelay() time.Duration {
	span := 10*q.sendLatency + 1000*time.Millisecond
	return time.Duration(q.rng.Float64() * float64(span))
}

// Reset clears the pending FIFO and the out-of-order slot, matching
// the original's queue teardown on shutdown.
func (q *Queue) Reset() {
	q.pending = nil
	q.oopOccupied = false
	q.oopEntry = entry{}
}

// Len reports the number of entries still waiting in the FIFO (not
// counting an occupied out-of-order slot).
func (q *Queue) Len() int {
	return len(q.pending)
}
