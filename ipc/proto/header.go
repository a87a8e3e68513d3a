// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package proto implements the on-wire descriptor format carried by every
// header-only or header-plus-payload transfer on the link: the DSP-side
// 8-word layout both endpoints treat as authoritative.
package proto

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/bangcorrupt/freetribe/ipc"
)

// HeaderSize is the wire size of Header: 8 32-bit words (descriptor
// offsets 0x00-0x1F).
const HeaderSize = 32

// Header must pack to exactly HeaderSize bytes, or binary.Write would
// emit a different wire length than receivers expect.
var _ [HeaderSize]byte = [unsafe.Sizeof(Header{})]byte{}

// Header is the canonical on-wire descriptor. The CPU-side EMIFA mirror
// (cpu/emifa) carries the metadata in four discrete descriptor registers
// (op kind, count, remote source, local destination) instead of this
// packed byte form.
type Header struct {
	WordCount  uint16
	Pad        uint16
	RemoteAddr uint32
	LocalAddr  uint32
	// Meta holds the 5-word metadata envelope. Meta[0]'s low 16 bits carry
	// OpKind, Meta[1] Count, Meta[2] RemoteSrc, Meta[3] LocalDest. Meta[4]
	// is reserved: the C firmware's transfer/read views give this word to the
	// callback/user_ctx pointer pair, which has no cross-process meaning
	// once callbacks are Go closures (see ipc.Envelope) and so is never
	// populated on the wire.
	Meta [5]uint32
}

// NewHeader packs an ipc.Envelope and the transfer's addressing fields
// into the wire Header shape.
func NewHeader(wordCount uint16, remoteAddr, localAddr uint32, meta ipc.Envelope) Header {
	var h Header

	h.WordCount = wordCount
	h.RemoteAddr = remoteAddr
	h.LocalAddr = localAddr
	h.Meta[0] = uint32(meta.OpKind)
	h.Meta[1] = uint32(meta.Count)
	h.Meta[2] = meta.RemoteSrc
	h.Meta[3] = meta.LocalDest

	return h
}

// Envelope extracts the metadata envelope this header carries.
func (h Header) Envelope() ipc.Envelope {
	return ipc.Envelope{
		OpKind:    ipc.OpKind(uint16(h.Meta[0])),
		Count:     uint16(h.Meta[1]),
		RemoteSrc: h.Meta[2],
		LocalDest: h.Meta[3],
	}
}

// Bytes encodes h into its little-endian wire representation.
func (h Header) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.Grow(HeaderSize)
	binary.Write(buf, binary.LittleEndian, h)
	return buf.Bytes()
}

// ParseHeader decodes a wire-format header. It returns an error instead of
// panicking because this is the one place raw bus bytes cross into typed
// driver state.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("proto: short header: %d bytes, want %d", len(b), HeaderSize)
	}

	var h Header
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &h); err != nil {
		return Header{}, fmt.Errorf("proto: decode header: %w", err)
	}

	return h, nil
}

// WordsToBytes packs 32-bit words into little-endian wire bytes, the
// payload-block counterpart to Header.Bytes(). Receivers recombine with
// the low half first, matching the 16-bit bus's transmit order.
func WordsToBytes(words []uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// BytesToWords unpacks little-endian wire bytes into 32-bit words.
func BytesToWords(buf []byte) []uint32 {
	words := make([]uint32, len(buf)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return words
}
