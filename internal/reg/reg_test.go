// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitForTimesOut(t *testing.T) {
	f := NewFake()

	ok := WaitFor(f, 10*time.Millisecond, 0x00, 0, 1, 1)
	assert.False(t, ok, "a bit that never sets must report timeout, not hang")
}

func TestWaitForSucceeds(t *testing.T) {
	f := NewFake()

	go func() {
		time.Sleep(2 * time.Millisecond)
		f.Set(0x00, 0)
	}()

	ok := WaitFor(f, time.Second, 0x00, 0, 1, 1)
	assert.True(t, ok)
}

func TestWaitUnblocksOnBitSet(t *testing.T) {
	f := NewFake()
	done := make(chan struct{})

	go func() {
		Wait(f, 0x04, 2, 1, 1)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before the bit was ever set")
	case <-time.After(5 * time.Millisecond):
	}

	f.Set(0x04, 2)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after the bit was set")
	}
}
