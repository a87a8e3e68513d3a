// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dma provides a first-fit memory allocator for DMA buffers, used
// to back each IPC side's local addressable memory: the "remote address"
// and "local buffer address" fields carried in transfer requests are real
// offsets into a Region, so round-tripped data is actually stored and
// compared, not merely pointer-matched.
package dma

import (
	"container/list"
	"reflect"
	"sync"
	"unsafe"
)

// Region represents one side's local memory region.
type Region struct {
	sync.Mutex

	start uint32
	size  int
	base  uintptr

	// heap keeps the backing array reachable for the GC when the region
	// is backed by real Go memory (NewHeapRegion). Nil for NewRegion,
	// where base is assumed to already be a live address (real target).
	heap []byte

	freeBlocks *list.List
	usedBlocks map[uint32]*block
}

// NewRegion creates a Region over [start, start+size) where base is the
// real, already-live memory address corresponding to start, as on a
// bare-metal target where start/base coincide with a carved-out RAM
// range never touched by the Go runtime.
func NewRegion(start uint32, size int, base uintptr) *Region {
	r := &Region{start: start, size: size, base: base}
	r.init()
	return r
}

// heapRegionStart is an arbitrary nonzero base for NewHeapRegion's address
// space. Address 0 is reserved as Alloc/Reserve/Read/Write/Free's "no
// address" sentinel (mirroring every real target, where start is always a
// live, nonzero RAM address); a heap region starting at 0 would make its
// very first allocation indistinguishable from that sentinel.
const heapRegionStart = 0x1000

// NewHeapRegion creates a Region backed by ordinary, GC-visible Go memory.
// It is the host-testable counterpart to NewRegion: the backing array is
// real memory the Region itself keeps alive, so read/write are sound on
// any host, not just the real target.
func NewHeapRegion(size int) *Region {
	heap := make([]byte, size)
	base := uintptr(unsafe.Pointer(&heap[0]))

	r := &Region{start: heapRegionStart, size: size, base: base, heap: heap}
	r.init()
	return r
}

func (r *Region) init() {
	r.freeBlocks = list.New()
	r.freeBlocks.PushFront(&block{addr: 0, size: r.size})
	r.usedBlocks = make(map[uint32]*block)
}

// Start returns the region's first address.
func (r *Region) Start() uint32 {
	return r.start
}

// End returns the address one past the region's last byte.
func (r *Region) End() uint32 {
	return r.start + uint32(r.size)
}

// Contains reports whether addr falls within the region.
func (r *Region) Contains(addr uint32) bool {
	return addr >= r.start && addr < r.End()
}

// Alloc copies buf into a newly allocated block and returns its address.
func (r *Region) Alloc(buf []byte, align int) (addr uint32) {
	if len(buf) == 0 {
		return 0
	}

	r.Lock()
	defer r.Unlock()

	b := r.alloc(len(buf), align)
	b.write(0, buf, r.base)
	r.usedBlocks[b.addr] = b

	return r.start + b.addr
}

// Reserve allocates size bytes without initializing them, returning the
// address and a byte slice view directly over the region's backing memory.
func (r *Region) Reserve(size int, align int) (addr uint32, buf []byte) {
	if size == 0 {
		return
	}

	r.Lock()
	defer r.Unlock()

	b := r.alloc(size, align)
	b.res = true
	r.usedBlocks[b.addr] = b

	hdr := (*reflect.SliceHeader)(unsafe.Pointer(&buf))
	hdr.Data = r.base + uintptr(b.addr)
	hdr.Len = size
	hdr.Cap = size

	return r.start + b.addr, buf
}

// Read reads exactly len(buf) bytes from addr, previously returned by
// Alloc, into buf.
func (r *Region) Read(addr uint32, off int, buf []byte) {
	if addr == 0 || len(buf) == 0 {
		return
	}

	r.Lock()
	defer r.Unlock()

	b, ok := r.usedBlocks[addr-r.start]
	if !ok {
		panic("dma: read of unallocated address")
	}

	if off+len(buf) > b.size {
		panic("dma: read out of bounds")
	}

	b.read(off, buf, r.base)
}

// Write writes buf to addr, previously returned by Alloc or Reserve.
func (r *Region) Write(addr uint32, off int, buf []byte) {
	if addr == 0 || len(buf) == 0 {
		return
	}

	r.Lock()
	defer r.Unlock()

	b, ok := r.usedBlocks[addr-r.start]
	if !ok {
		return
	}

	if off+len(buf) > b.size {
		panic("dma: write out of bounds")
	}

	b.write(off, buf, r.base)
}

// Free releases a block allocated with Alloc.
func (r *Region) Free(addr uint32) {
	r.freeBlock(addr, false)
}

// Release releases a block allocated with Reserve.
func (r *Region) Release(addr uint32) {
	r.freeBlock(addr, true)
}
