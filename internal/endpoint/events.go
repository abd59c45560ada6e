// Package endpoint implements the per-peer connection state machine
// of spec.md §4.3-§4.7: receive dispatch, the Syncing/Running/
// Disconnected lifecycle, input stream bookkeeping, quality/stats
// sampling, and the event queue the session layer drains.
//
// Grounded on ventosilenzioso-go-raknet/source/protocol/raknet.go's
// Session (phase-driven state machine polled from Server.updateLoop)
// and xendarboh-katzenpost/client2/arq.go's single-threaded ARQ
// endpoint shape.
package endpoint

// Kind tags an Event's variant.
type Kind int

const (
	EventConnected Kind = iota
	EventSynchronizing
	EventSynchronized
	EventInput
	EventNetworkInterrupted
	EventNetworkResumed
	EventDisconnected
)

func (k Kind) String() string {
	switch k {
	case EventConnected:
		return "Connected"
	case EventSynchronizing:
		return "Synchronizing"
	case EventSynchronized:
		return "Synchronized"
	case EventInput:
		return "Input"
	case EventNetworkInterrupted:
		return "NetworkInterrupted"
	case EventNetworkResumed:
		return "NetworkResumed"
	case EventDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Event is a plain value produced by handlers and the tick driver and
// consumed one at a time via PollEvent (§4.7).
type Event struct {
	Kind Kind

	// Synchronizing fields.
	SyncTotal int
	SyncCount int

	// Input field.
	Input GameInputEvent

	// NetworkInterrupted field: ms remaining until hard disconnect.
	DisconnectTimeoutRemaining int32
}

// GameInputEvent carries the decoded frame payload for an Input event.
type GameInputEvent struct {
	Frame int32
	Size  int
	Bits  []byte
}

// eventQueue is a single-consumer FIFO with no coalescing or
// deduplication; duplicate emissions are prevented upstream by the
// producer-side flags (connected, disconnectNotifySent,
// disconnectEventSent), not by the queue.
type eventQueue struct {
	items []Event
}

func (q *eventQueue) push(e Event) {
	q.items = append(q.items, e)
}

// poll returns the oldest queued event and removes it, or false if
// the queue is empty.
func (q *eventQueue) poll() (Event, bool) {
	if len(q.items) == 0 {
		return Event{}, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e, true
}
