// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package reg provides primitives for retrieving and modifying hardware
// registers, abstracted behind the Registers interface so that driver logic
// can be exercised against a fake register bank off real silicon.
package reg

import (
	"runtime"
	"time"
)

// Registers is the register-bank contract consumed by the sequencer
// drivers. Get/Set/Clear/SetN/ClearN operate on a bitfield at the given bit
// position, optionally masked; Read/Write operate on the whole 32-bit word.
type Registers interface {
	Get(addr uint32, pos int, mask int) uint32
	Set(addr uint32, pos int)
	Clear(addr uint32, pos int)
	SetN(addr uint32, pos int, mask int, val uint32)
	ClearN(addr uint32, pos int, mask int)
	Read(addr uint32) uint32
	Write(addr uint32, val uint32)
}

// Wait spins until a register bit field matches val. Callers on a real
// target run single-threaded against interrupts; Gosched lets other
// goroutines (the simulated mainline/ISR split used in tests) make
// progress while spinning.
func Wait(r Registers, addr uint32, pos int, mask int, val uint32) {
	for r.Get(addr, pos, mask) != val {
		runtime.Gosched()
	}
}

// WaitFor spins for at most timeout for a register bit field to match val.
// The returned bool reports whether the condition was met before timeout.
func WaitFor(r Registers, timeout time.Duration, addr uint32, pos int, mask int, val uint32) bool {
	start := time.Now()

	for r.Get(addr, pos, mask) != val {
		runtime.Gosched()

		if time.Since(start) >= timeout {
			return false
		}
	}

	return true
}
