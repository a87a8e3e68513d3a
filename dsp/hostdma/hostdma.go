// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package hostdma implements the DSP-side half of the CPU<->DSP link
// over the HostDMA peripheral, which exposes the DSP's memory to the
// CPU's EMIFA engine through a FIFO data port. It is the DSP's
// ipc.Sequencer, the mirror image of cpu/emifa.
package hostdma

import (
	"sync"

	"github.com/bangcorrupt/freetribe/internal/dma"
	"github.com/bangcorrupt/freetribe/internal/reg"
	"github.com/bangcorrupt/freetribe/ipc"
)

// HOST_STATUS bit positions, named after per_hostdma.c's own macros.
// This is the same physical register cpu/emifa calls HOST_STATUS too,
// since EMIFA memory-maps it directly.
const (
	statusDMARdy     = 0
	statusFIFOFull   = 1
	statusFIFOEmpty  = 2
	statusDMACmplt   = 3
	statusHSHK       = 4
	statusHostDPTout = 5
	statusHIRQ       = 6
	statusAllowCnfg  = 7
	statusDMADir     = 8
	statusBTE        = 9 // BT_EN, per _handle_error's host status abuse
)

// Descriptor register layout; see cpu/emifa for why these are native
// 32-bit registers rather than per_hostdma.h's HOST_TO_DSP_HEADER_BASE/
// DSP_TO_HOST_HEADER_BASE byte-offset macros.
const (
	regStatus     uint32 = 0x00
	regWordCount  uint32 = 0x04
	regRemoteAddr uint32 = 0x08
	regOpKind     uint32 = 0x0C
	regCount      uint32 = 0x10
	regRemoteSrc  uint32 = 0x14
	regLocalDest  uint32 = 0x18
)

// blockWords is the FIFO burst size, per per_hostdma_transfer's
// ((word_count + 15) / 16) block count.
const blockWords = 16

// Sequencer is the DSP-side ipc.Sequencer.
type Sequencer struct {
	sync.Mutex

	regs reg.Registers
	bus  *dma.Region // shared bus-mapped memory

	mode ipc.Mode

	rx, tx, err ipc.EventCallback

	meta            ipc.Envelope
	words           []uint32
	dest            []uint32
	remoteAddr      uint32
	blocksRemaining int
}

// New constructs a Sequencer over the same shared regs/bus cpu/emifa
// uses; the two are two views of one physical link.
func New(regs reg.Registers, bus *dma.Region) *Sequencer {
	return &Sequencer{regs: regs, bus: bus, mode: ipc.Off}
}

// Init arms the sequencer (per_hostdma_init) and records the completion
// callbacks.
func (s *Sequencer) Init(rx, tx, err ipc.EventCallback) error {
	s.Lock()
	defer s.Unlock()

	s.rx, s.tx, s.err = rx, tx, err
	s.mode = ipc.Idle

	return nil
}

// busAvailable mirrors _check_bus_availability: idle and HSHK clear.
func (s *Sequencer) busAvailable() bool {
	return s.mode == ipc.Idle && s.regs.Get(regStatus, statusHSHK, 1) == 0
}

// Submit requests to transfer words to the host's (CPU's) memory at
// remoteAddr, per per_hostdma_transfer.
func (s *Sequencer) Submit(remoteAddr uint32, words []uint32, meta ipc.Envelope) ipc.Status {
	s.Lock()
	defer s.Unlock()

	if s.mode == ipc.Off {
		return ipc.Uninitialised
	}

	if len(words) >= ipc.MaxWordCount {
		return ipc.InvalidArgument
	}

	if !s.busAvailable() {
		return ipc.BusOccupied
	}

	s.meta = meta
	s.words = words
	s.remoteAddr = remoteAddr

	s.regs.Write(regWordCount, uint32(len(words)))
	s.regs.Write(regRemoteAddr, remoteAddr)
	s.writeHeader(meta)

	// Request to claim the bus: *pHOST_STATUS |= HSHK.
	s.regs.Set(regStatus, statusHSHK)

	if len(words) == 0 {
		// Header-only transfer: the header is deposited and HSHK raised
		// above so the peer's beginRead observes wordCount==0 and fires
		// immediately; blocksRemaining stays 0 so this side's own
		// ProcessEvents never enters HostWrite for it.
		s.fireTx()
		return ipc.Success
	}

	s.blocksRemaining = (len(words) + blockWords - 1) / blockWords

	return ipc.Success
}

func (s *Sequencer) writeHeader(meta ipc.Envelope) {
	s.regs.Write(regOpKind, uint32(meta.OpKind))
	s.regs.Write(regCount, uint32(meta.Count))
	s.regs.Write(regRemoteSrc, meta.RemoteSrc)
	s.regs.Write(regLocalDest, meta.LocalDest)
}

func (s *Sequencer) readHeader() ipc.Envelope {
	return ipc.Envelope{
		OpKind:    ipc.OpKind(s.regs.Read(regOpKind)),
		Count:     uint16(s.regs.Read(regCount)),
		RemoteSrc: s.regs.Read(regRemoteSrc),
		LocalDest: s.regs.Read(regLocalDest),
	}
}

// ProcessEvents advances whichever direction is in flight: the DSP's own
// outbound send (host_read_done_isr, one block per tick; burst mode is
// not modelled, so the final block is moved like the others) or an
// inbound push the CPU made (an Idle -> HostReadApproved transition,
// noticed here via the DMA_CMPLT doorbell cpu/emifa's stepWrite sets).
func (s *Sequencer) ProcessEvents() {
	s.Lock()
	defer s.Unlock()

	switch s.mode {
	case ipc.HostWrite:
		s.stepSend()
		return
	case ipc.HostReadApproved:
		s.stepReceive()
		return
	}

	if s.regs.Get(regStatus, statusHSHK, 1) == 1 && s.blocksRemaining > 0 {
		s.mode = ipc.HostWrite
		s.stepSend()
		return
	}

	if s.regs.Get(regStatus, statusDMACmplt, 1) == 1 {
		s.beginReceive()
	}
}

// stepSend drains one block of an outbound send (this side is "sending
// to the host"; per_hostdma_transfer's g_tx_state bookkeeping, serviced
// per block by the real HOSTRD_DONE ISR).
func (s *Sequencer) stepSend() {
	if s.blocksRemaining == 0 {
		s.mode = ipc.Idle
		s.regs.Clear(regStatus, statusHSHK)
		s.fireTx()
		return
	}

	total := (len(s.words) + blockWords - 1) / blockWords
	start := (total - s.blocksRemaining) * blockWords
	end := start + blockWords
	if end > len(s.words) {
		end = len(s.words)
	}

	s.bus.Write(s.remoteAddr, start*4, wordsToBytes(s.words[start:end]))
	s.blocksRemaining--
}

// beginReceive loads the descriptor the CPU deposited when it finished
// pushing a block set into this side's memory.
func (s *Sequencer) beginReceive() {
	wordCount := int(s.regs.Read(regWordCount))
	addr := s.regs.Read(regRemoteAddr)
	s.meta = s.readHeader()
	s.remoteAddr = addr
	s.blocksRemaining = (wordCount + blockWords - 1) / blockWords
	s.dest = make([]uint32, wordCount)
	s.words = s.dest
	s.mode = ipc.HostReadApproved

	s.regs.Clear(regStatus, statusDMACmplt)

	if wordCount == 0 {
		s.mode = ipc.Idle
		s.fireRx()
	}
}

func (s *Sequencer) stepReceive() {
	if s.blocksRemaining == 0 {
		s.mode = ipc.Idle
		s.fireRx()
		return
	}

	n := blockWords
	if n > len(s.words) {
		n = len(s.words)
	}

	buf := make([]byte, n*4)
	s.bus.Read(s.remoteAddr, (len(s.dest)-len(s.words))*4, buf)
	copy(s.words, bytesToWords(buf))
	s.words = s.words[n:]
	s.blocksRemaining--
}

// RaiseError forces the sequencer Off and signals the Error callback,
// standing in for _handle_error.
func (s *Sequencer) RaiseError() {
	s.Lock()
	defer s.Unlock()

	s.mode = ipc.Off
	s.regs.Set(regStatus, statusBTE)

	meta := s.meta
	if s.err != nil {
		s.err(meta, nil)
	}
}

// Recover clears the BTE flag and restarts the state machine, standing
// in for _hostdp_status_isr's recovery branch.
func (s *Sequencer) Recover() {
	s.Lock()
	defer s.Unlock()

	s.regs.Clear(regStatus, statusBTE)
	s.mode = ipc.Idle
}

func (s *Sequencer) fireTx() {
	if s.tx != nil {
		s.tx(s.meta, nil)
	}
}

func (s *Sequencer) fireRx() {
	data := append([]uint32(nil), s.dest...)
	if s.rx != nil {
		s.rx(s.meta, data)
	}
}

func wordsToBytes(words []uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		buf[i*4+0] = byte(w)
		buf[i*4+1] = byte(w >> 8)
		buf[i*4+2] = byte(w >> 16)
		buf[i*4+3] = byte(w >> 24)
	}
	return buf
}

func bytesToWords(buf []byte) []uint32 {
	words := make([]uint32, len(buf)/4)
	for i := range words {
		words[i] = uint32(buf[i*4+0]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
	}
	return words
}
