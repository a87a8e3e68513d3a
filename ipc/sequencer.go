// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ipc

// EventCallback is how a Sequencer reports a completion back to the
// Driver that owns it. The Driver supplies three of these to Init, one
// per EventKind, each a closure that pushes onto the Driver's EventQueue;
// the Sequencer itself never sees the queue, keeping the same shape as
// the C firmware's ISR-calls-a-fixed-handler structure.
// data carries the words the Sequencer actually landed in local memory
// for this header (nil for the tx/err callbacks, since a write completion
// or an error carries no fresh local payload).
type EventCallback func(meta Envelope, data []uint32)

// Mode is the hardware sequencer's state.
type Mode int

const (
	// Off: the sequencer has not been Init'd, or is locked out after an
	// unrecovered error.
	Off Mode = iota
	// Idle: no transfer in flight; ready to accept a Submit.
	Idle
	// HostWrite: this side is driving a DMA write to the peer.
	HostWrite
	// HostReadApproved: this side is pulling in a transfer the peer
	// started, block by block.
	HostReadApproved
)

func (m Mode) String() string {
	switch m {
	case Off:
		return "Off"
	case Idle:
		return "Idle"
	case HostWrite:
		return "HostWrite"
	case HostReadApproved:
		return "HostReadApproved"
	default:
		return "Unknown"
	}
}

// Sequencer is the hardware-facing half of one side of
// the link. cpu/emifa and dsp/hostdma each implement it against their own
// register layout; ipc.Driver drives it without knowing which.
type Sequencer interface {
	// Init arms the sequencer and registers the completion callbacks.
	// rx fires on HostReadComplete, tx on HostWriteComplete, err on
	// Error. Init must be called exactly once before Submit.
	Init(rx, tx, err EventCallback) error

	// Submit launches (or queues, at the Sequencer's discretion; in
	// this port the Sequencer has no queue of its own; Driver serializes
	// submissions so Submit is only ever called when Idle) a transfer of
	// words to remoteAddr, carrying meta as the 5-word header. It
	// returns BusOccupied if the peer's handshake line is already
	// raised, and InvalidArgument if len(words) >= 32768.
	Submit(remoteAddr uint32, words []uint32, meta Envelope) Status

	// ProcessEvents runs the sequencer's interrupt-side logic: block
	// chunking (blocks of up to 16 32-bit words, ceil(word_count/16)
	// blocks; burst mode is not modelled, so the final partial block is
	// moved like any other), mode transitions, and
	// invoking the Init-supplied EventCallbacks on completion or error.
	// In this port it stands in for a real ISR and is invoked explicitly
	// by test harnesses (internal/simbus) rather than by hardware.
	ProcessEvents()
}
