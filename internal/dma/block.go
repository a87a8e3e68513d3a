// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"reflect"
	"unsafe"
)

// block tracks one allocation within a Region. addr is an offset relative
// to the region's base, not an absolute address.
type block struct {
	addr uint32
	size int
	// distinguishes regular (Alloc/Free) from reserved (Reserve/Release)
	// blocks.
	res bool
}

func (b *block) read(off int, buf []byte, base uintptr) {
	var mem []byte

	hdr := (*reflect.SliceHeader)(unsafe.Pointer(&mem))
	hdr.Data = base + uintptr(b.addr) + uintptr(off)
	hdr.Len = len(buf)
	hdr.Cap = hdr.Len

	copy(buf, mem)
}

func (b *block) write(off int, buf []byte, base uintptr) {
	var mem []byte

	hdr := (*reflect.SliceHeader)(unsafe.Pointer(&mem))
	hdr.Data = base + uintptr(b.addr) + uintptr(off)
	hdr.Len = len(buf)
	hdr.Cap = hdr.Len

	copy(mem, buf)
}
