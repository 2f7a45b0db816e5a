// Package packet implements packet assembly (header + blocks + optional
// payload), the fast-reject look-in path, the rule engine, and the
// resynchronizing stream reader.
package packet

import (
	"bufio"
	"bytes"
	"io"

	"github.com/brecio/brec"
)

// HeaderSignature is the constant 4-byte signature stamped at the front of
// every packet header.
var HeaderSignature = [4]byte{0x62, 0x72, 0x65, 0x63} // "brec"

// HeaderSize is the fixed encoded size of a Header: sig(4) size(8) blocks_len(8)
// payload_flag(1) crc(4).
const HeaderSize = 4 + 8 + 8 + 1 + 4

// Header is the fixed-size preface of a packet.
type Header struct {
	// Size is the total packet size in bytes: this header plus all block
	// bytes plus, if present, the payload header and body.
	Size uint64
	// BlocksLen is the cumulative byte length of the block section.
	BlocksLen uint64
	// HasPayload reports whether a payload header+body follows the blocks.
	HasPayload bool
}

// Encode appends h's wire form (including its own CRC) to dst.
func (h Header) Encode(dst []byte) []byte {
	start := len(dst)
	dst = append(dst, HeaderSignature[:]...)
	dst = brec.PutUint64(dst, h.Size)
	dst = brec.PutUint64(dst, h.BlocksLen)

	if h.HasPayload {
		dst = append(dst, 1)
	} else {
		dst = append(dst, 0)
	}

	crc := brec.CRC32(dst[start:len(dst)])
	dst = brec.PutUint32(dst, crc)

	return dst
}

// ReadHeader parses and CRC-verifies a packet header from r.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderSize)

	n, err := io.ReadFull(r, buf)
	if err != nil {
		return Header{}, brec.NotEnoughData(HeaderSize - n)
	}

	return decodeHeader(buf)
}

// TryReadHeaderBuffered parses a packet header using Peek/Discard only,
// returning NotEnoughData without consuming anything if br does not yet
// hold a full header.
func TryReadHeaderBuffered(br *bufio.Reader) (Header, error) {
	buf, err := br.Peek(HeaderSize)
	if err != nil {
		return Header{}, brec.NotEnoughData(HeaderSize - len(buf))
	}

	hdr, err := decodeHeader(buf)
	if err != nil {
		return Header{}, err
	}

	if _, err := br.Discard(HeaderSize); err != nil {
		return Header{}, err
	}

	return hdr, nil
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, brec.NotEnoughData(HeaderSize - len(buf))
	}

	if !bytes.Equal(buf[0:4], HeaderSignature[:]) {
		return Header{}, brec.ErrSignatureMismatch
	}

	crc := brec.Uint32(buf[21:25])
	want := brec.CRC32(buf[0:21])

	if crc != want {
		return Header{}, brec.ErrCrcMismatch
	}

	return Header{
		Size:       brec.Uint64(buf[4:12]),
		BlocksLen:  brec.Uint64(buf[12:20]),
		HasPayload: buf[20] != 0,
	}, nil
}

// LocateHeaderSignature scans buf for HeaderSignature, returning its byte
// offset, or -1 if not found.
func LocateHeaderSignature(buf []byte) int {
	return bytes.Index(buf, HeaderSignature[:])
}
