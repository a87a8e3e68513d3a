// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dspipc is the CPU-side IPC device: it wires an ipc.Driver to
// the EMIFA hardware sequencer (cpu/emifa), and answers the peer's
// inbound Requests out of the shared bus memory. This is the CPU's half
// of the symmetric link protocol; dsp/cpuipc is its mirror image on the
// DSP side.
package dspipc

import (
	"github.com/bangcorrupt/freetribe/cpu/emifa"
	"github.com/bangcorrupt/freetribe/internal/dma"
	"github.com/bangcorrupt/freetribe/internal/reg"
	"github.com/bangcorrupt/freetribe/ipc"
	"github.com/bangcorrupt/freetribe/ipc/proto"
)

// Device is the CPU-side endpoint of the link: an ipc.Driver bound to its
// own emifa.Sequencer. Embedding *ipc.Driver gives callers Init/Tick/
// SubmitWrite/SubmitRead/Locked/Unlock/Stats directly on Device.
type Device struct {
	*ipc.Driver
	Seq *emifa.Sequencer
	Mem *dma.Region
}

// New constructs a CPU-side Device over regs (the shared status/descriptor
// register bank) and bus (the shared link memory). reqDepth/evtDepth size
// the request ring and event queue (evtDepth must be at least 2*reqDepth).
// onRecv, if non-nil, is notified of unsolicited inbound Transfers.
func New(regs reg.Registers, bus *dma.Region, reqDepth, evtDepth int, onRecv ipc.Receiver) *Device {
	seq := emifa.New(regs, bus)

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
// machine, standing in for the real interrupt vectors. Test harnesses
// (internal/simbus) call this in place of hardware IRQs.
func (d *Device) ProcessEvents() {
	d.Seq.ProcessEvents()
}

// RaiseError forces the sequencer into its halted error state, standing
// in for a DMA-error interrupt.
func (d *Device) RaiseError() {
	d.Seq.RaiseError()
}

// Recover clears the error state and restarts the sequencer, standing in
// for the peer's status-IRQ-driven recovery. It does not unlock the
// Driver: callers invoke Driver.Unlock() once recovery is observed.
func (d *Device) Recover() {
	d.Seq.Recover()
}
