// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFakeReadWrite(t *testing.T) {
	f := NewFake()

	assert.Zero(t, f.Read(0x04), "an untouched address reads as zero")

	f.Write(0x04, 0xCAFEBABE)
	assert.EqualValues(t, 0xCAFEBABE, f.Read(0x04))
}

func TestFakeSetClear(t *testing.T) {
	f := NewFake()

	f.Set(0x00, 3)
	assert.EqualValues(t, 1, f.Get(0x00, 3, 1))

	f.Set(0x00, 5)
	assert.EqualValues(t, 1, f.Get(0x00, 5, 1), "setting one bit must not disturb another")
	assert.EqualValues(t, 1, f.Get(0x00, 3, 1))

	f.Clear(0x00, 3)
	assert.Zero(t, f.Get(0x00, 3, 1))
	assert.EqualValues(t, 1, f.Get(0x00, 5, 1), "clearing one bit must not disturb another")
}

func TestFakeSetNClearN(t *testing.T) {
	f := NewFake()

	f.SetN(0x00, 4, 0xF, 0xA)
	assert.EqualValues(t, 0xA, f.Get(0x00, 4, 0xF))

	f.SetN(0x00, 0, 0xF, 0x5)
	assert.EqualValues(t, 0x5, f.Get(0x00, 0, 0xF), "an adjacent field must be independently addressable")
	assert.EqualValues(t, 0xA, f.Get(0x00, 4, 0xF))

	f.ClearN(0x00, 4, 0xF)
	assert.Zero(t, f.Get(0x00, 4, 0xF))
	assert.EqualValues(t, 0x5, f.Get(0x00, 0, 0xF))
}
