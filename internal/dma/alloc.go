// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import "container/list"

func (r *Region) defrag() {
	var prev *block

	for e := r.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)

		if prev != nil && prev.addr+uint32(prev.size) == b.addr {
			prev.size += b.size
			defer r.freeBlocks.Remove(e)
			continue
		}

		prev = b
	}
}

func (r *Region) alloc(size int, align int) *block {
	var e *list.Element
	var free *block
	var pad uint32

	if align == 0 {
		align = 4
	}

	for e = r.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)

		pad = uint32(-int32(b.addr)) & uint32(align-1)

		if b.size >= size+int(pad) {
			free = b
			break
		}
	}

	if free == nil {
		panic("dma: out of memory")
	}

	defer r.freeBlocks.Remove(e)

	total := size + int(pad)

	if rem := free.size - total; rem != 0 {
		after := &block{addr: free.addr + uint32(total), size: rem}
		free.size = total
		r.freeBlocks.InsertAfter(after, e)
	}

	if pad != 0 {
		before := &block{addr: free.addr, size: int(pad)}
		free.addr += pad
		free.size -= int(pad)
		r.freeBlocks.InsertBefore(before, e)
	}

	return free
}

func (r *Region) free(used *block) {
	for e := r.freeBlocks.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)

		if b.addr > used.addr {
			r.freeBlocks.InsertBefore(used, e)
			r.defrag()
			return
		}
	}

	r.freeBlocks.PushBack(used)
	r.defrag()
}

func (r *Region) freeBlock(addr uint32, res bool) {
	if addr == 0 {
		return
	}

	r.Lock()
	defer r.Unlock()

	off := addr - r.start
	b, ok := r.usedBlocks[off]

	if !ok || b.res != res {
		return
	}

	r.free(b)
	delete(r.usedBlocks, off)
}
