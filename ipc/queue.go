// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ipc

// EventKind identifies what happened on the wire, as reported by the
// sequencer's interrupt-side completion path.
type EventKind int

const (
	// HostWriteComplete: a transfer this side launched has landed.
	HostWriteComplete EventKind = iota
	// HostReadComplete: a transfer the peer launched into our memory has
	// landed.
	HostReadComplete
	// Error: the bus signalled a DMA error mid-transfer.
	Error
)

func (k EventKind) String() string {
	switch k {
	case HostWriteComplete:
		return "HostWriteComplete"
	case HostReadComplete:
		return "HostReadComplete"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is one entry in the deferral queue: what happened, and the
// envelope that was in flight when it happened.
type Event struct {
	Kind EventKind
	Meta Envelope
	// Data holds the words the sequencer landed in local memory for this
	// header. Populated for HostReadComplete, nil for HostWriteComplete
	// and Error.
	Data []uint32
}

// EventQueue is the event deferral queue: a bounded single-producer,
// single-consumer ring that hands sequencer-side completions off to
// Driver.Tick running on the mainline. The producer is the sequencer's
// interrupt path (Sequencer.ProcessEvents, standing in for the real
// ISR); the consumer is Driver.Tick. Because there is exactly one of
// each, the ring needs no locking beyond the atomics implied by channel
// send/receive.
//
// Overflow is a protocol violation, not routine backpressure: a full
// queue means the mainline side has stopped ticking while the hardware
// kept completing transfers, which cannot happen if Tick is called
// promptly. Push reports false on overflow so the caller can escalate
// rather than silently drop the event.
type EventQueue struct {
	ch chan Event
}

// NewEventQueue creates a queue of the given capacity. Driver sizes this
// at least twice its request-ring depth, since both a write-queue entry
// and its mirrored in-flight read entry can complete independently.
func NewEventQueue(capacity int) *EventQueue {
	return &EventQueue{ch: make(chan Event, capacity)}
}

// Push enqueues an event, reporting false if the queue is full.
func (q *EventQueue) Push(e Event) bool {
	select {
	case q.ch <- e:
		return true
	default:
		return false
	}
}

// Pop removes and returns the oldest event, reporting false if the queue
// is empty.
func (q *EventQueue) Pop() (Event, bool) {
	select {
	case e := <-q.ch:
		return e, true
	default:
		return Event{}, false
	}
}

// Len reports the number of events currently queued.
func (q *EventQueue) Len() int {
	return len(q.ch)
}

// Cap reports the queue's capacity.
func (q *EventQueue) Cap() int {
	return cap(q.ch)
}
