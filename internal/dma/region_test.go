// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionAllocReadWrite(t *testing.T) {
	r := NewHeapRegion(1024)

	addr := r.Alloc([]byte{1, 2, 3, 4}, 4)
	require.NotZero(t, addr)

	got := make([]byte, 4)
	r.Read(addr, 0, got)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)

	r.Write(addr, 2, []byte{0xAA, 0xBB})
	r.Read(addr, 0, got)
	assert.Equal(t, []byte{1, 2, 0xAA, 0xBB}, got)
}

func TestRegionReserveGivesDirectView(t *testing.T) {
	r := NewHeapRegion(1024)

	addr, buf := r.Reserve(8, 4)
	require.NotZero(t, addr)
	require.Len(t, buf, 8)

	copy(buf, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	got := make([]byte, 8)
	r.Read(addr, 0, got)
	assert.Equal(t, buf, got, "Reserve's returned slice must alias the same bytes Read/Write see")
}

func TestRegionFreeAllowsReuse(t *testing.T) {
	r := NewHeapRegion(16)

	a := r.Alloc(make([]byte, 16), 4)
	require.NotZero(t, a)

	// The region has no room for a second 16-byte block until the first
	// is freed (first-fit, no fragmentation headroom in a 16-byte region).
	r.Free(a)

	b := r.Alloc(make([]byte, 16), 4)
	assert.NotZero(t, b)
}

func TestRegionWriteToUnallocatedAddrIsNoop(t *testing.T) {
	r := NewHeapRegion(64)

	assert.NotPanics(t, func() {
		r.Write(0, 0, []byte{1})
	}, "the null address is always a no-op, never a panic")
}

func TestRegionReadUnallocatedPanics(t *testing.T) {
	r := NewHeapRegion(64)

	addr := r.Alloc([]byte{1, 2, 3, 4}, 4)
	r.Free(addr)

	assert.Panics(t, func() {
		r.Read(addr, 0, make([]byte, 4))
	}, "reading a freed address must not silently return stale or zero data")
}

func TestRegionContainsBounds(t *testing.T) {
	r := NewRegion(0x1000, 256, 0)

	assert.True(t, r.Contains(0x1000))
	assert.True(t, r.Contains(0x10FF))
	assert.False(t, r.Contains(0x1100))
	assert.False(t, r.Contains(0x0FFF))
}
