// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package linktest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bangcorrupt/freetribe/ipc"
)

// Every submission that returned Success gets
// exactly one callback, Success or Failed; every submission that returned
// a non-success status gets zero.
func TestCallbackConservation(t *testing.T) {
	l := newLink(t)
	rec := &recorder{}

	dst := reserve(t, l, 8)

	// A rejected submission (word count over the limit) must fire no
	// callback at all.
	status := l.CPU.SubmitWrite(dst, words32(ipc.MaxWordCount), rec.cb(), "oversize")
	assert.Equal(t, ipc.InvalidArgument, status)

	// Three accepted submissions, each with a distinct word count.
	for i, n := range []int{0, 8, 17} {
		reserveN := n
		if reserveN == 0 {
			reserveN = 1
		}
		addr := reserve(t, l, reserveN)
		status := l.CPU.SubmitWrite(addr, words32(n), rec.cb(), i)
		require.Equal(t, ipc.Success, status)
	}

	l.Pump()

	require.Len(t, rec.calls, 3, "exactly one callback per accepted submission, none for the rejected one")
	for _, c := range rec.calls {
		assert.Equal(t, ipc.Success, c.status)
	}
}

// If submit(A) returns before submit(B) and both
// return Success, callback-A fires before callback-B.
func TestOrderPreservation(t *testing.T) {
	l := newLink(t)
	rec := &recorder{}

	const n = 10
	for i := 0; i < n; i++ {
		addr := reserve(t, l, 4)
		status := l.CPU.SubmitWrite(addr, words32(4), rec.cb(), i)
		require.Equal(t, ipc.Success, status)
	}

	l.Pump()

	require.Len(t, rec.calls, n)
	for i, c := range rec.calls {
		assert.Equal(t, i, c.ctx, "callback %d fired out of submission order", i)
		assert.Equal(t, ipc.Success, c.status)
	}
}

// SubmitRead's callback fires exactly once,
// matched to the oldest outstanding in-flight record, and delivers the
// responder's actual memory contents.
func TestRequestResponsePairing(t *testing.T) {
	l := newLink(t)

	want := words32(4)
	srcAddr := reserve(t, l, 4)
	l.Bus.Mem.Write(srcAddr, 0, wordsToBytesForTest(want))

	destAddr := reserve(t, l, 4)
	dest := make([]uint32, 4)

	rec := &recorder{}
	status := l.CPU.SubmitRead(srcAddr, destAddr, dest, rec.cb(), "read1")
	require.Equal(t, ipc.Success, status)

	l.Pump()

	require.Len(t, rec.calls, 1)
	assert.Equal(t, ipc.Success, rec.calls[0].status)
	assert.Equal(t, "read1", rec.calls[0].ctx)
	assert.Equal(t, want, dest)
}

// A write of buffer B followed by the peer reading the same N words back
// produces dest == B once both callbacks fire Success.
func TestLosslessRoundTrip(t *testing.T) {
	l := newLink(t)

	for _, n := range []int{0, 1, 8, 17, 32, 32767} {
		n := n
		t.Run("", func(t *testing.T) {
			buf := words32(n)
			reserveN := n
			if reserveN == 0 {
				reserveN = 1
			}
			remote := reserve(t, l, reserveN)

			writeRec := &recorder{}
			status := l.CPU.SubmitWrite(remote, buf, writeRec.cb(), "write")
			require.Equal(t, ipc.Success, status)
			l.Pump()
			require.Len(t, writeRec.calls, 1)
			require.Equal(t, ipc.Success, writeRec.calls[0].status)

			dest := make([]uint32, n)
			local := reserve(t, l, reserveN)

			readRec := &recorder{}
			status = l.DSP.SubmitRead(remote, local, dest, readRec.cb(), "read")
			require.Equal(t, ipc.Success, status)
			l.Pump()
			require.Len(t, readRec.calls, 1)
			require.Equal(t, ipc.Success, readRec.calls[0].status)

			assert.Equal(t, buf, dest)
		})
	}
}

// Triggering the error path with empty queues
// is a no-op on user callbacks and leaves the driver validly locked.
func TestIdempotentErrorDrain(t *testing.T) {
	l := newLink(t)

	require.False(t, l.CPU.Locked())

	l.CPU.RaiseError()
	l.Pump()

	assert.True(t, l.CPU.Locked())
	assert.EqualValues(t, 1, l.CPU.Stats.ErrorDrains)
	assert.EqualValues(t, 0, l.CPU.Stats.Failed, "nothing was outstanding, so nothing should be failed")

	// Idempotent: doing it again (e.g. a second spurious error IRQ) must
	// not panic or corrupt state further.
	l.CPU.RaiseError()
	l.Pump()
	assert.True(t, l.CPU.Locked())

	l.CPU.Recover()
	l.CPU.Unlock()
	assert.False(t, l.CPU.Locked())

	addr := reserve(t, l, 4)
	rec := &recorder{}
	status := l.CPU.SubmitWrite(addr, words32(4), rec.cb(), nil)
	require.Equal(t, ipc.Success, status)
	l.Pump()
	require.Len(t, rec.calls, 1)
	assert.Equal(t, ipc.Success, rec.calls[0].status)
}

// While the driver is locked, no submission is accepted and no queued
// transfer advances.
func TestNoSpuriousLaunchesWhileLocked(t *testing.T) {
	l := newLink(t)

	l.CPU.RaiseError()
	l.Pump()
	require.True(t, l.CPU.Locked())

	addr := reserve(t, l, 4)
	rec := &recorder{}
	status := l.CPU.SubmitWrite(addr, words32(4), rec.cb(), nil)
	assert.Equal(t, ipc.DriverLocked, status)

	l.Pump()
	assert.Empty(t, rec.calls, "a rejected submission must never fire its callback")

	l.CPU.Recover()
	l.CPU.Unlock()

	status = l.CPU.SubmitWrite(addr, words32(4), rec.cb(), nil)
	require.Equal(t, ipc.Success, status)
	l.Pump()
	require.Len(t, rec.calls, 1)
}

// wordsToBytesForTest packs words little-endian, independent of ipc/proto,
// so property tests can seed bus memory directly without going through a
// Driver submission.
func wordsToBytesForTest(words []uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		buf[i*4+0] = byte(w)
		buf[i*4+1] = byte(w >> 8)
		buf[i*4+2] = byte(w >> 16)
		buf[i*4+3] = byte(w >> 24)
	}
	return buf
}
