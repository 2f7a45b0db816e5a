package payload

import (
	"bufio"
	"io"

	"github.com/brecio/brec"
)

// Inner is the user-supplied capability a payload type provides: how to
// turn itself into bytes and how many bytes that encoding takes. Parsing
// the bytes back is supplied separately as a Decoder. Write sizes the
// header from the encoded bytes and does not call Size.
type Inner interface {
	Encode() ([]byte, error)
	Size() uint64
}

// Decoder parses an Inner's encoded body back into a value of type T.
type Decoder[T Inner] func([]byte) (T, error)

// Write emits header | encode(body) to w. crcWidth of 0 disables CRC: the
// header carries a zero-width CRC field and no integrity check is made on
// read.
func Write(w io.Writer, sig brec.ByteBlock, crcWidth int, body Inner) (int, error) {
	encoded, err := body.Encode()
	if err != nil {
		return 0, err
	}

	hdr := Header{Sig: sig, Len: uint32(len(encoded))}

	if crcWidth > 0 {
		crc := brec.CRC32(encoded)
		crcBytes := make([]byte, crcWidth)
		// CRC32 is 4 bytes; wider CRC widths zero-pad the remainder (the
		// wire format allows wider CRCs for forward compatibility with
		// payload types that bring their own stronger hash, but this
		// module's Write only ever computes a CRC32).
		copy(crcBytes[:4], encodeUint32(crc))

		block, err := brec.NewByteBlock(crcBytes)
		if err != nil {
			return 0, err
		}

		hdr.Crc = block
	}

	buf := hdr.Encode(nil)
	buf = append(buf, encoded...)

	return w.Write(buf)
}

func encodeUint32(v uint32) []byte {
	return brec.PutUint32(nil, v)
}

// Read parses a Header from r, reads exactly Len bytes, verifies the CRC
// (unless the header's CRC width is 0), and decodes the body with decode.
func Read[T Inner](r io.Reader, decode Decoder[T]) (T, Header, error) {
	var zero T

	hdr, err := ReadHeader(r)
	if err != nil {
		return zero, Header{}, err
	}

	body := make([]byte, hdr.Len)
	if n, err := io.ReadFull(r, body); err != nil {
		return zero, Header{}, brec.NotEnoughData(int(hdr.Len) - n)
	}

	if hdr.Crc.Len() > 0 {
		want := brec.Uint32(hdr.Crc.Bytes()[:4])
		if brec.CRC32(body) != want {
			return zero, Header{}, brec.ErrCrcMismatch
		}
	}

	val, err := decode(body)
	if err != nil {
		return zero, Header{}, err
	}

	return val, hdr, nil
}

// ReadBuffered behaves like Read but never seeks: it uses only
// bufio.Reader's Peek/Discard, matching the stream reader's
// never-rewind-the-source contract once a packet header has committed to a
// size.
func ReadBuffered[T Inner](br *bufio.Reader, decode Decoder[T]) (T, Header, error) {
	var zero T

	hdr, hdrLen, err := TryReadHeaderBuffered(br)
	if err != nil {
		return zero, Header{}, err
	}

	_ = hdrLen

	body, err := br.Peek(int(hdr.Len))
	if err != nil {
		return zero, Header{}, brec.NotEnoughData(int(hdr.Len) - len(body))
	}

	owned := append([]byte(nil), body...)

	if _, err := br.Discard(int(hdr.Len)); err != nil {
		return zero, Header{}, err
	}

	if hdr.Crc.Len() > 0 {
		want := brec.Uint32(hdr.Crc.Bytes()[:4])
		if brec.CRC32(owned) != want {
			return zero, Header{}, brec.ErrCrcMismatch
		}
	}

	val, err := decode(owned)
	if err != nil {
		return zero, Header{}, err
	}

	return val, hdr, nil
}
