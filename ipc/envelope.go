// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ipc implements the bidirectional, queued, asynchronous transport
// shared by both sides of the CPU<->DSP link: the envelope format, status
// codes, the event deferral queue, and the IPC driver. The hardware
// sequencer is supplied by cpu/emifa or dsp/hostdma through the Sequencer
// interface.
package ipc

// OpKind identifies what a transfer's metadata envelope means to the
// receiving side.
type OpKind uint16

const (
	// Transfer is a fire-and-forget payload write.
	Transfer OpKind = iota
	// Request asks the peer to send data back.
	Request
	// Response is the peer's reply to a Request.
	Response
)

func (k OpKind) String() string {
	switch k {
	case Transfer:
		return "Transfer"
	case Request:
		return "Request"
	case Response:
		return "Response"
	default:
		return "Unknown"
	}
}

// Envelope is the 5-word metadata blob round-tripped through every on-wire
// header. The C firmware pairs two structs over the same memory (a
// "transfer view" and a "read view") sharing a leading op_kind tag; Go
// has no union, so Envelope is the tagged-variant equivalent: one struct,
// one discriminant (OpKind), and accessor methods that assert the caller is
// reading the view that OpKind actually describes. Count/RemoteSrc/
// LocalDest are meaningful only for Request/Response envelopes and are
// zero for Transfer envelopes, which carry them as padding on the wire.
type Envelope struct {
	OpKind    OpKind
	Count     uint16
	RemoteSrc uint32
	LocalDest uint32
}

// ReadParams returns the Request/Response fields of the envelope. It
// panics if called on a Transfer envelope; the two views must never be
// cross-read.
func (e Envelope) ReadParams() (count uint16, remoteSrc, localDest uint32) {
	if e.OpKind == Transfer {
		panic("ipc: ReadParams on a Transfer envelope")
	}
	return e.Count, e.RemoteSrc, e.LocalDest
}

// AsResponse returns a copy of e with OpKind flipped to Response, echoing
// the rest of the envelope unchanged: the wire-level operation a
// responder performs on an inbound Request.
func (e Envelope) AsResponse() Envelope {
	r := e
	r.OpKind = Response
	return r
}
