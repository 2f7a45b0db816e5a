package packet

import (
	"bytes"
	"io"

	"github.com/brecio/brec"
	"github.com/brecio/brec/block"
	"github.com/brecio/brec/payload"
)

// MaxBlocksCount bounds how many blocks a single packet may carry, guarding
// against a corrupted blocks_len driving an unbounded decode loop.
const MaxBlocksCount = 10_000

// Payload is a packet's optional payload section: its header plus the raw,
// still-encoded body bytes. Typed decode of Body is left to the caller via
// the payload package's Read/ReadBuffered, since the packet layer has no
// way to know which concrete payload type a given signature maps to beyond
// what the caller's own dispatch provides.
type Payload struct {
	Header payload.Header
	Body   []byte
}

// Packet is an ordered group of blocks plus an optional payload.
type Packet struct {
	Blocks  []block.Block
	Payload *Payload
}

// Write encodes p to w: header, then each block in order, then the payload
// header and body if present.
func Write(w io.Writer, p Packet) (int, error) {
	var blockBuf bytes.Buffer

	for _, b := range p.Blocks {
		if _, err := block.Write(&blockBuf, b); err != nil {
			return 0, err
		}
	}

	blocksLen := uint64(blockBuf.Len())

	var bodyBuf bytes.Buffer

	hasPayload := p.Payload != nil
	if hasPayload {
		bodyBuf.Write(p.Payload.Header.Encode(nil))
		bodyBuf.Write(p.Payload.Body)
	}

	total := uint64(HeaderSize) + blocksLen + uint64(bodyBuf.Len())

	hdr := Header{Size: total, BlocksLen: blocksLen, HasPayload: hasPayload}

	full := hdr.Encode(make([]byte, 0, total))
	full = append(full, blockBuf.Bytes()...)
	full = append(full, bodyBuf.Bytes()...)

	return w.Write(full)
}

// Size reports the total encoded size p would have if written now.
func Size(p Packet) uint64 {
	var blocksLen uint64

	for _, b := range p.Blocks {
		blocksLen += 4 + uint64(len(b.Encode())) + 4
	}

	total := uint64(HeaderSize) + blocksLen

	if p.Payload != nil {
		total += uint64(p.Payload.Header.Size()) + uint64(len(p.Payload.Body))
	}

	return total
}

// ReadBody decodes the blocks and optional payload section of a packet
// whose header has already been parsed, from buf (which must hold at
// least hdr.Size-HeaderSize bytes: the portion after the header). reg
// dispatches block signatures to decoders.
//
// Blocks are decoded through their zero-copy referred form first (so a
// FilterByBlocks rule, if any, can reject before owned conversion), then
// converted to owned Blocks.
func ReadBody(buf []byte, hdr Header, reg *block.Registry, rules *Rules) (Packet, int, error) {
	referred := make([]block.ReferredBlock, 0, 8)

	var consumed uint64

	for consumed < hdr.BlocksLen {
		if len(referred) >= MaxBlocksCount {
			return Packet{}, 0, brec.ErrMaxBlocksCount
		}

		rb, n, err := reg.TryReadReferred(buf[consumed:])
		if err != nil {
			return Packet{}, 0, err
		}

		if n == 0 {
			return Packet{}, 0, brec.ErrZeroLengthBlock
		}

		referred = append(referred, rb)
		consumed += uint64(n)
	}

	if consumed != hdr.BlocksLen {
		return Packet{}, 0, brec.ErrInvalidPacketReaderLogic
	}

	if rules != nil && !rules.acceptBlocks(referred) {
		return Packet{}, int(consumed), errRejectedByBlocks
	}

	blocks := make([]block.Block, 0, len(referred))

	for _, rb := range referred {
		owned, err := rb.ToOwned()
		if err != nil {
			return Packet{}, 0, err
		}

		blocks = append(blocks, owned)
	}

	p := Packet{Blocks: blocks}

	if !hdr.HasPayload {
		if rules != nil && !rules.accept(&p) {
			return Packet{}, int(consumed), errRejectedByFilter
		}

		return p, int(consumed), nil
	}

	rest := buf[consumed:]

	phdr, err := parsePayloadHeader(rest)
	if err != nil {
		return Packet{}, 0, err
	}

	hdrSize := phdr.Size()
	bodyStart := hdrSize
	bodyEnd := bodyStart + int(phdr.Len)

	if len(rest) < bodyEnd {
		return Packet{}, 0, brec.NotEnoughData(bodyEnd - len(rest))
	}

	body := rest[bodyStart:bodyEnd]

	if rules != nil && !rules.acceptPayload(body) {
		return Packet{}, int(consumed) + bodyEnd, errRejectedByPayload
	}

	ownedBody := append([]byte(nil), body...)

	p.Payload = &Payload{Header: phdr, Body: ownedBody}

	if rules != nil && !rules.accept(&p) {
		return Packet{}, int(consumed) + bodyEnd, errRejectedByFilter
	}

	return p, int(consumed) + bodyEnd, nil
}

func parsePayloadHeader(buf []byte) (payload.Header, error) {
	return payload.ReadHeader(bytes.NewReader(buf))
}
