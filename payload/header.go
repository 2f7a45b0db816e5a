// Package payload implements the variable-size payload framing:
// sig_len | sig | crc_len | crc | len(4 LE) | body, with the body's bytes
// delegated to a user-supplied encode/decode/size capability.
package payload

import (
	"bufio"
	"bytes"
	"io"

	"github.com/brecio/brec"
)

// Header is the on-wire preface of a payload: a capacity-tagged signature,
// a capacity-tagged CRC (zero-width CRC means "CRC disabled" for this
// payload type), and the body length.
type Header struct {
	Sig brec.ByteBlock
	Crc brec.ByteBlock
	Len uint32
}

// Size returns the encoded size of h: 1 + len(sig) + 1 + len(crc) + 4.
func (h Header) Size() int {
	return 1 + h.Sig.Len() + 1 + h.Crc.Len() + 4
}

// Encode appends h's wire form to dst.
func (h Header) Encode(dst []byte) []byte {
	dst = append(dst, byte(h.Sig.Len()))
	dst = append(dst, h.Sig.Bytes()...)
	dst = append(dst, byte(h.Crc.Len()))
	dst = append(dst, h.Crc.Bytes()...)
	dst = brec.PutUint32(dst, h.Len)

	return dst
}

// ReadHeader parses a Header from an owned io.Reader, validating both
// capacity-tagged widths via brec.IsValidByteBlockCapacity.
func ReadHeader(r io.Reader) (Header, error) {
	var sigLen [1]byte
	if _, err := io.ReadFull(r, sigLen[:]); err != nil {
		return Header{}, brec.NotEnoughData(1)
	}

	sig := make([]byte, sigLen[0])
	if _, err := io.ReadFull(r, sig); err != nil {
		return Header{}, brec.NotEnoughData(int(sigLen[0]))
	}

	if !brec.IsValidByteBlockCapacity(len(sig)) && len(sig) != 0 {
		return Header{}, brec.ErrInvalidByteBlockCapacity
	}

	var crcLen [1]byte
	if _, err := io.ReadFull(r, crcLen[:]); err != nil {
		return Header{}, brec.NotEnoughData(1)
	}

	crc := make([]byte, crcLen[0])
	if _, err := io.ReadFull(r, crc); err != nil {
		return Header{}, brec.NotEnoughData(int(crcLen[0]))
	}

	if !brec.IsValidByteBlockCapacity(len(crc)) && len(crc) != 0 {
		return Header{}, brec.ErrInvalidByteBlockCapacity
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Header{}, brec.NotEnoughData(4)
	}

	sigBlock, err := toByteBlock(sig)
	if err != nil {
		return Header{}, err
	}

	crcBlock, err := toByteBlock(crc)
	if err != nil {
		return Header{}, err
	}

	return Header{Sig: sigBlock, Crc: crcBlock, Len: brec.Uint32(lenBuf[:])}, nil
}

// TryReadHeaderBuffered parses a Header from br using only Peek/Discard: it
// never seeks, returning NotEnoughData when br does not yet hold a full
// header.
func TryReadHeaderBuffered(br *bufio.Reader) (Header, int, error) {
	b, err := br.Peek(1)
	if err != nil {
		return Header{}, 0, brec.NotEnoughData(1)
	}

	sigLen := int(b[0])
	need := 1 + sigLen + 1

	b, err = br.Peek(need)
	if err != nil {
		return Header{}, 0, brec.NotEnoughData(need - len(b))
	}

	sig := append([]byte(nil), b[1:1+sigLen]...)
	crcLen := int(b[1+sigLen])
	need = 1 + sigLen + 1 + crcLen + 4

	b, err = br.Peek(need)
	if err != nil {
		return Header{}, 0, brec.NotEnoughData(need - len(b))
	}

	crc := append([]byte(nil), b[1+sigLen+1:1+sigLen+1+crcLen]...)
	length := brec.Uint32(b[need-4 : need])

	sigBlock, err := toByteBlock(sig)
	if err != nil {
		return Header{}, 0, err
	}

	crcBlock, err := toByteBlock(crc)
	if err != nil {
		return Header{}, 0, err
	}

	if _, err := br.Discard(need); err != nil {
		return Header{}, 0, err
	}

	return Header{Sig: sigBlock, Crc: crcBlock, Len: length}, need, nil
}

func toByteBlock(b []byte) (brec.ByteBlock, error) {
	if len(b) == 0 {
		return brec.ByteBlock{}, nil
	}

	return brec.NewByteBlock(b)
}

// MatchesSignature reports whether h's signature equals sig.
func (h Header) MatchesSignature(sig []byte) bool {
	return bytes.Equal(h.Sig.Bytes(), sig)
}
