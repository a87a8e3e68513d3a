// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package simbus is a shared-bus test double joining a CPU-side and a
// DSP-side IPC device over one fake register bank and one heap-backed DMA
// region, standing in for the real EMIFA<->HostDMA electrical link so
// linktest can drive both halves of the link from ordinary Go tests
// without real silicon or interrupts.
package simbus

import (
	"github.com/bangcorrupt/freetribe/cpu/dspipc"
	"github.com/bangcorrupt/freetribe/dsp/cpuipc"
	"github.com/bangcorrupt/freetribe/internal/dma"
	"github.com/bangcorrupt/freetribe/internal/reg"
	"github.com/bangcorrupt/freetribe/ipc"
)

// maxPumpRounds is the fixed number of rounds Link.Pump runs: large enough
// to flush a maximum-size transfer (32767 words / 16 per block = 2048
// blocks) on both sides with headroom for handshake round trips, and
// finite, so a stuck link (a bug, not backpressure) ends the pump instead
// of hanging a test suite. Pump runs every round even once the link is
// idle.
const maxPumpRounds = 8192

// Bus is the shared hardware state two Sequencer implementations (one per
// side) read and write: one register bank standing in for the EMIFA/
// HostDMA status-and-descriptor registers (the two sides see the same
// physical bits), and one memory region standing in for the addressable
// window each side's DMA engine can reach on the other.
type Bus struct {
	Regs *reg.Fake
	Mem  *dma.Region
}

// NewBus allocates a Bus with memSize bytes of shared, heap-backed link
// memory.
func NewBus(memSize int) *Bus {
	return &Bus{
		Regs: reg.NewFake(),
		Mem:  dma.NewHeapRegion(memSize),
	}
}

// Link pairs a CPU-side Device and a DSP-side Device across one Bus. It
// is the test-only analogue of the two processors and the wire between
// them.
type Link struct {
	Bus *Bus
	CPU *dspipc.Device
	DSP *cpuipc.Device
}

// NewLink constructs both devices over a fresh Bus and initializes them.
// reqDepth/evtDepth size each side's request ring and event queue
// (evtDepth must be >= 2*reqDepth). cpuRecv/dspRecv are
// each side's handler for unsolicited inbound Transfers; either may be
// nil.
func NewLink(memSize, reqDepth, evtDepth int, cpuRecv, dspRecv ipc.Receiver) (*Link, error) {
	bus := NewBus(memSize)

	cpu := dspipc.New(bus.Regs, bus.Mem, reqDepth, evtDepth, cpuRecv)
	dsp := cpuipc.New(bus.Regs, bus.Mem, reqDepth, evtDepth, dspRecv)

	if err := cpu.Init(); err != nil {
		return nil, err
	}
	if err := dsp.Init(); err != nil {
		return nil, err
	}

	return &Link{Bus: bus, CPU: cpu, DSP: dsp}, nil
}

// Pump alternately steps both sides' hardware sequencers (standing in for
// their interrupt vectors) and their drivers' mainline Tick, until
// maxPumpRounds elapses. Tests call this after Submit* and after
// RaiseError/Recover to let a transfer, or an error/recovery handshake,
// run to completion without hand-stepping every block (ticks and
// submissions are non-blocking, so nothing here can itself deadlock).
func (l *Link) Pump() {
	for i := 0; i < maxPumpRounds; i++ {
		l.CPU.ProcessEvents()
		l.DSP.ProcessEvents()
		l.CPU.Tick()
		l.DSP.Tick()
	}
}

// Step runs a single round of the pump loop above, for tests that want to
// observe intermediate per-block state (e.g. a multi-block write stopped
// partway through).
func (l *Link) Step() {
	l.CPU.ProcessEvents()
	l.DSP.ProcessEvents()
	l.CPU.Tick()
	l.DSP.Tick()
}
