// Package block implements the per-type block codec: a fixed-size, typed
// record written as signature | fields | crc32(fields).
package block

import (
	"bufio"
	"bytes"
	"io"

	"github.com/brecio/brec"
)

// Block is the owned form of a user-declared block type. A generated (or,
// in this module, hand-written) implementation supplies its signature and
// the little-endian encoding of its fields in declaration order; this
// package supplies the sig/crc framing around it.
type Block interface {
	Signature() [4]byte
	// Encode returns the field bytes only: no signature, no CRC.
	Encode() []byte
}

// Referred is the zero-copy, borrowed counterpart of a Block: its Fields
// slice aliases the source buffer passed to ReadReferred and must not be
// used after that buffer is mutated or goes out of scope.
type Referred struct {
	Sig    []byte
	Fields []byte
	Crc    []byte
}

// Signature copies the referred signature bytes into a fixed array.
func (r Referred) Signature() [4]byte {
	var s [4]byte
	copy(s[:], r.Sig)

	return s
}

// Size returns the total encoded size of the block this view was read from:
// 4-byte signature, fields, 4-byte CRC.
func (r Referred) Size() int {
	return 4 + len(r.Fields) + 4
}

// Write emits signature | b.Encode() | crc32(fields) to w and returns the
// number of bytes written.
func Write(w io.Writer, b Block) (int, error) {
	sig := b.Signature()
	fields := b.Encode()

	buf := make([]byte, 0, 4+len(fields)+4)
	buf = append(buf, sig[:]...)
	buf = append(buf, fields...)
	buf = brec.PutUint32(buf, brec.CRC32(fields))

	return w.Write(buf)
}

// ReadOwned reads a block of fieldsLen fields from r, verifying its
// signature (unless skipSig is true, e.g. the caller already peeked and
// matched it) and its CRC, then returns the raw field bytes for the caller's
// decode function to interpret.
func ReadOwned(r io.Reader, expectedSig [4]byte, fieldsLen int, skipSig bool) ([]byte, error) {
	total := 4 + fieldsLen + 4
	buf := make([]byte, total)

	n, err := io.ReadFull(r, buf)
	if err != nil {
		return nil, brec.NotEnoughData(total - n)
	}

	if !skipSig && !bytes.Equal(buf[:4], expectedSig[:]) {
		return nil, brec.ErrSignatureMismatch
	}

	fields := buf[4 : 4+fieldsLen]
	crc := buf[4+fieldsLen : total]

	if brec.Uint32(crc) != brec.CRC32(fields) {
		return nil, brec.ErrCrcMismatch
	}

	return fields, nil
}

// ReadReferred decodes a zero-copy Referred view from buf, which must hold
// at least 4+fieldsLen+4 bytes. The returned Referred aliases buf.
func ReadReferred(buf []byte, expectedSig [4]byte, fieldsLen int) (Referred, int, error) {
	total := 4 + fieldsLen + 4

	if len(buf) < 4 {
		return Referred{}, 0, brec.NotEnoughData(4 - len(buf))
	}

	if !bytes.Equal(buf[:4], expectedSig[:]) {
		return Referred{}, 0, brec.ErrSignatureMismatch
	}

	if len(buf) < total {
		return Referred{}, 0, brec.NotEnoughData(total - len(buf))
	}

	fields := buf[4 : 4+fieldsLen]
	crc := buf[4+fieldsLen : total]

	if brec.Uint32(crc) != brec.CRC32(fields) {
		return Referred{}, 0, brec.ErrCrcMismatch
	}

	return Referred{Sig: buf[:4], Fields: fields, Crc: crc}, total, nil
}

// TryReadBuffered peeks the signature and, on a match, the full frame from
// br without consuming anything on a signature mismatch or short read. On a
// match it consumes the frame and returns the verified field bytes.
func TryReadBuffered(br *bufio.Reader, expectedSig [4]byte, fieldsLen int) ([]byte, error) {
	sig, err := br.Peek(4)
	if err != nil {
		return nil, brec.NotEnoughData(4 - len(sig))
	}

	if !bytes.Equal(sig, expectedSig[:]) {
		return nil, brec.ErrSignatureMismatch
	}

	total := 4 + fieldsLen + 4

	frame, err := br.Peek(total)
	if err != nil {
		return nil, brec.NotEnoughData(total - len(frame))
	}

	fields := make([]byte, fieldsLen)
	copy(fields, frame[4:4+fieldsLen])
	crc := frame[4+fieldsLen : total]

	if brec.Uint32(crc) != brec.CRC32(fields) {
		return nil, brec.ErrCrcMismatch
	}

	if _, err := br.Discard(total); err != nil {
		return nil, err
	}

	return fields, nil
}

// TryReadStreamed behaves like TryReadBuffered but against a seekable
// source: on signature mismatch or short read it seeks back to the
// position it started at, so the caller may retry a different variant or
// wait for more bytes without having lost its place in the stream. The
// signature is checked as soon as 4 bytes are available, independent of
// whether the rest of the frame fits, so a short stream with a mismatched
// signature is reported as ErrSignatureMismatch rather than
// NotEnoughData.
func TryReadStreamed(rs io.ReadSeeker, expectedSig [4]byte, fieldsLen int) ([]byte, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	sig := make([]byte, 4)

	n, err := io.ReadFull(rs, sig)
	if err != nil {
		if _, serr := rs.Seek(start, io.SeekStart); serr != nil {
			return nil, serr
		}

		return nil, brec.NotEnoughData(4 - n)
	}

	if !bytes.Equal(sig, expectedSig[:]) {
		if _, serr := rs.Seek(start, io.SeekStart); serr != nil {
			return nil, serr
		}

		return nil, brec.ErrSignatureMismatch
	}

	rest := make([]byte, fieldsLen+4)

	n, err = io.ReadFull(rs, rest)
	if err != nil {
		if _, serr := rs.Seek(start, io.SeekStart); serr != nil {
			return nil, serr
		}

		return nil, brec.NotEnoughData(fieldsLen + 4 - n)
	}

	fields := rest[:fieldsLen]
	crc := rest[fieldsLen:]

	if brec.Uint32(crc) != brec.CRC32(fields) {
		return nil, brec.ErrCrcMismatch
	}

	return fields, nil
}
