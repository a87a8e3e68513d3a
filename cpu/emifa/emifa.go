// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package emifa implements the CPU-side half of the CPU<->DSP link over
// the EMIFA peripheral, which memory-maps the DSP's HostDMA engine into
// the CPU's address space. It is the CPU's ipc.Sequencer.
package emifa

import (
	"sync"

	"github.com/bangcorrupt/freetribe/internal/dma"
	"github.com/bangcorrupt/freetribe/internal/reg"
	"github.com/bangcorrupt/freetribe/ipc"
)

// HOST_STATUS bit positions, named after the EMIFA-visible mirror of the
// DSP's HostDMA status register.
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
	statusBTE        = 9
)

// Descriptor register layout, one word (32-bit) per field instead of the
// original's 16-bit lo/hi pairs; internal/reg already speaks native
// 32-bit registers, so there is nothing to split.
const (
	regStatus     uint32 = 0x00
	regWordCount  uint32 = 0x04
	regRemoteAddr uint32 = 0x08
	regOpKind     uint32 = 0x0C
	regCount      uint32 = 0x10
	regRemoteSrc  uint32 = 0x14
	regLocalDest  uint32 = 0x18
)

// blockWords is the FIFO burst size: 16 words per block, per
// per_emifa.c's MIN(words_remaining, 16) chunking.
const blockWords = 16

// Sequencer is the CPU-side ipc.Sequencer.
type Sequencer struct {
	sync.Mutex

	regs reg.Registers
	bus  *dma.Region // shared bus-mapped memory, the DSP's addressable window

	mode ipc.Mode

	rx, tx, err ipc.EventCallback

	// active transfer state
	meta            ipc.Envelope
	words           []uint32 // all source words of a write; the unfilled tail of dest for a read
	dest            []uint32 // full destination buffer, for a host read
	remoteAddr      uint32
	blocksRemaining int
	writing         bool // true: this side is driving a HostWrite
}

// New constructs a Sequencer over regs (the shared status/descriptor
// register bank) and bus (the DSP-side memory window EMIFA maps into).
func New(regs reg.Registers, bus *dma.Region) *Sequencer {
	return &Sequencer{regs: regs, bus: bus, mode: ipc.Off}
}

// Init arms the sequencer (per_emifa_init) and records the completion
// callbacks.
func (s *Sequencer) Init(rx, tx, err ipc.EventCallback) error {
	s.Lock()
	defer s.Unlock()

	s.rx, s.tx, s.err = rx, tx, err
	s.mode = ipc.Idle

	return nil
}

// busAvailable reports whether the DSP's handshake bit is clear, i.e.
// false while the DSP has it raised (per_emifa_is_bus_available / _check_bus_availability, host-write
// prioritization: the DSP's read request always wins).
func (s *Sequencer) busAvailable() bool {
	return s.regs.Get(regStatus, statusHSHK, 1) == 0
}

// Submit launches a transfer of words to remoteAddr in the DSP's memory
// map, carrying meta. It is the CPU-side analogue of
// per_emifa_transfer.
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

	if len(words) == 0 {
		// Header-only transfer: no blocks to move, completes immediately
		// without ever entering HostWrite. The header is still deposited
		// and the DMA_CMPLT doorbell raised so the peer's beginReceive
		// observes wordCount==0 and fires its own completion without
		// waiting on any block transfer.
		s.regs.Set(regStatus, statusDMACmplt)
		s.fireTx()
		return ipc.Success
	}

	s.mode = ipc.HostWrite
	s.writing = true
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

// ProcessEvents drives one step of the block-transfer state machine,
// standing in for the DMA1/HOSTRD_DONE interrupt handlers in
// per_hostdma.c. The CPU side has no equivalent ISR of its own, since
// EMIFA transfers are driven synchronously in hardware, but scheduling
// the per-block bookkeeping here lets tests single-step a multi-block
// transfer deterministically.
func (s *Sequencer) ProcessEvents() {
	s.Lock()
	defer s.Unlock()

	switch s.mode {
	case ipc.HostWrite:
		s.stepWrite()
		return
	case ipc.HostReadApproved:
		s.stepRead()
		return
	}

	if s.regs.Get(regStatus, statusHSHK, 1) == 1 {
		s.beginRead()
	}
}

func (s *Sequencer) stepWrite() {
	if s.blocksRemaining == 0 {
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

	if s.blocksRemaining == 0 {
		s.mode = ipc.Idle
		s.writing = false
		// No hardware interrupt tells the DSP a push landed (the real
		// DMA1 engine fires its own ISR once the FIFO threshold is hit,
		// with no CPU-side action); DMA_CMPLT stands in for that signal
		// so dsp/hostdma's ProcessEvents can notice the delivery.
		s.regs.Set(regStatus, statusDMACmplt)
		s.fireTx()
	}
}

// stepRead drives the DSP-host-read direction: the peer has raised HSHK
// requesting we (the CPU) read its memory. Blocks are pulled the same
// way per_emifa_poll's read loop does.
func (s *Sequencer) stepRead() {
	if s.blocksRemaining == 0 {
		s.mode = ipc.Idle
		s.regs.Clear(regStatus, statusHSHK)
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

// beginRead loads the descriptor the peer deposited when it raised
// HSHK, requesting a host read, and arms stepRead to pull the requested
// words out of the shared bus region.
func (s *Sequencer) beginRead() {
	wordCount := int(s.regs.Read(regWordCount))
	s.remoteAddr = s.regs.Read(regRemoteAddr)
	s.meta = s.readHeader()
	s.dest = make([]uint32, wordCount)
	s.words = s.dest
	s.blocksRemaining = (wordCount + blockWords - 1) / blockWords
	s.mode = ipc.HostReadApproved

	if wordCount == 0 {
		s.mode = ipc.Idle
		s.regs.Clear(regStatus, statusHSHK)
		s.fireRx()
	}
}

// RaiseError forces the sequencer Off and signals the Error callback,
// standing in for the DMA-error ISR path (_handle_error).
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
// in for the HostDP status ISR's recovery branch.
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
