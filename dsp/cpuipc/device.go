// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cpuipc is the DSP-side IPC device: it wires an ipc.Driver to
// the host-DMA hardware sequencer (dsp/hostdma), the mirror image of
// cpu/dspipc on the CPU side.
package cpuipc

import (
	"github.com/bangcorrupt/freetribe/dsp/hostdma"
	"github.com/bangcorrupt/freetribe/internal/dma"
	"github.com/bangcorrupt/freetribe/internal/reg"
	"github.com/bangcorrupt/freetribe/ipc"
	"github.com/bangcorrupt/freetribe/ipc/proto"
)

// Device is the DSP-side endpoint of the link: an ipc.Driver bound to its
// own hostdma.Sequencer.
type Device struct {
	*ipc.Driver
	Seq *hostdma.Sequencer
	Mem *dma.Region
}

// New constructs a DSP-side Device over the same regs/bus cpu/dspipc
// uses; the two are two views of one physical link (see cpu/emifa and
// dsp/hostdma doc comments).
func New(regs reg.Registers, bus *dma.Region, reqDepth, evtDepth int, onRecv ipc.Receiver) *Device {
	seq := hostdma.New(regs, bus)

	source := func(localAddr uint32, count uint16) []uint32 {
		buf := make([]byte, int(count)*4)
		bus.Read(localAddr, 0, buf)
		return proto.BytesToWords(buf)
	}

	return &Device{
		Driver: ipc.NewDriver(seq, reqDepth, evtDepth, source, onRecv),
		Seq:    seq,
		Mem:    bus,
	}
}

// ProcessEvents drives one step of the sequencer's block-transfer state
// machine, standing in for the real interrupt vectors.
func (d *Device) ProcessEvents() {
	d.Seq.ProcessEvents()
}

// RaiseError forces the sequencer into its halted error state.
func (d *Device) RaiseError() {
	d.Seq.RaiseError()
}

// Recover clears the error state and restarts the sequencer.
func (d *Device) Recover() {
	d.Seq.Recover()
}
