// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package linktest drives a simulated CPU<->DSP link end to end: a real
// pair of ipc.Driver/Sequencer instances joined by internal/simbus,
// exercised through the public API alone, asserting on callbacks and
// bus-memory side effects rather than on internals.
package linktest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bangcorrupt/freetribe/internal/simbus"
	"github.com/bangcorrupt/freetribe/ipc"
)

const (
	testMemSize  = 1 << 20
	testReqDepth = 32
	testEvtDepth = 64
)

// newLink builds a fresh simulated link with the standard test depths
// (event queue at least 2x the request queue).
func newLink(t *testing.T) *simbus.Link {
	t.Helper()

	l, err := simbus.NewLink(testMemSize, testReqDepth, testEvtDepth, nil, nil)
	require.NoError(t, err)

	return l
}

// newLinkWithRecv is newLink but lets the caller observe unsolicited
// inbound Transfers on either side.
func newLinkWithRecv(t *testing.T, cpuRecv, dspRecv ipc.Receiver) *simbus.Link {
	t.Helper()

	l, err := simbus.NewLink(testMemSize, testReqDepth, testEvtDepth, cpuRecv, dspRecv)
	require.NoError(t, err)

	return l
}

// newLinkWithDepth is newLink but lets the caller pick the request-ring
// depth explicitly (evtDepth is always sized to 2x).
func newLinkWithDepth(t *testing.T, reqDepth int) *simbus.Link {
	t.Helper()

	l, err := simbus.NewLink(testMemSize, reqDepth, 2*reqDepth, nil, nil)
	require.NoError(t, err)

	return l
}

// call is one recorded callback invocation.
type call struct {
	ctx    any
	status ipc.Status
}

// recorder accumulates callback invocations in the order they fire, for
// asserting callback conservation and ordering. The simulated link is
// single-threaded (internal/simbus.Link.Pump/Step never spawns a
// goroutine), so no locking is needed around calls.
type recorder struct {
	calls []call
}

// cb returns an ipc.Callback that appends to the recorder, tagging the
// call with ctx so tests can assert both the verdict and which submission
// it belongs to.
func (r *recorder) cb() ipc.Callback {
	return func(ctx any, status ipc.Status) {
		r.calls = append(r.calls, call{ctx: ctx, status: status})
	}
}

// reserve carves out a words-sized block in mem and returns its address,
// the bus-visible landing spot a write/response destination needs: real
// addressable memory, not a bare pointer label.
func reserve(t *testing.T, l *simbus.Link, words int) uint32 {
	t.Helper()

	addr, _ := l.Bus.Mem.Reserve(words*4, 4)
	require.NotZero(t, addr, "reserve must not return the null address")

	return addr
}

// words32 builds a []uint32 test buffer of the given length, content
// derived deterministically from its index so mismatches are easy to spot.
func words32(n int) []uint32 {
	buf := make([]uint32, n)
	for i := range buf {
		buf[i] = uint32(i)*0x01010101 + 1
	}
	return buf
}
