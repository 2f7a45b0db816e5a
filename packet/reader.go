package packet

import (
	"io"

	"github.com/brecio/brec"
	"github.com/brecio/brec/block"
)

// NextKind classifies the outcome of one BufReader.Read call.
type NextKind int

const (
	// NextFound means a packet was fully decoded and accepted.
	NextFound NextKind = iota
	// NextNotFound means no packet header signature was located in the
	// bytes read this call; any such bytes were delivered to the ignore
	// rule.
	NextNotFound
	// NextNotEnoughData means the source has not yet produced enough bytes
	// to complete the header or the body currently being awaited.
	NextNotEnoughData
	// NextIgnored means a packet was fully decoded but rejected by a
	// filter rule.
	NextIgnored
	// NextNoData means the source is exhausted and no partial work is in
	// flight.
	NextNoData
)

// NextPacket is the result of one BufReader.Read call.
type NextPacket struct {
	Kind   NextKind
	Packet Packet
	N      int // byte shortfall, valid when Kind == NextNotEnoughData
}

type readerState int

const (
	stateEmpty readerState = iota
	stateRefill
	stateReady
)

const readChunkSize = 4096

// DefaultMaxPacketSize bounds a single packet's declared size. A header
// claiming a larger size is treated as corruption (resynchronized past)
// rather than honored, since honoring it could mean allocating an
// attacker- or corruption-controlled amount of memory. 0 disables the
// check.
const DefaultMaxPacketSize = 64 * 1024 * 1024

// BufReader is the resynchronizing stream reader: it scans an arbitrary
// io.Reader for packet headers, tolerating and reporting intervening
// "litter" bytes, and yields fully decoded packets subject to the
// registered rules.
type BufReader struct {
	src           io.Reader
	reg           *block.Registry
	rules         *Rules
	maxPacketSize uint64

	st    readerState
	buf   []byte
	hdr   Header
	chunk []byte
}

// NewBufReader builds a BufReader over source, dispatching block
// signatures through reg.
func NewBufReader(source io.Reader, reg *block.Registry) *BufReader {
	return &BufReader{
		src:           source,
		reg:           reg,
		rules:         NewRules(),
		maxPacketSize: DefaultMaxPacketSize,
		chunk:         make([]byte, readChunkSize),
	}
}

// SetMaxPacketSize overrides the packet size ceiling; 0 disables it.
func (br *BufReader) SetMaxPacketSize(n uint64) {
	br.maxPacketSize = n
}

// AddRule registers a rule; see Rules.Add*.
func (br *BufReader) AddRule(kind RuleKind, fn any) error {
	switch kind {
	case KindIgnored:
		f, ok := fn.(IgnoredFunc)
		if !ok {
			return brec.ErrInvalidPacketReaderLogic
		}

		return br.rules.AddIgnored(f)
	case KindFilterByBlocks:
		f, ok := fn.(BlocksFilterFunc)
		if !ok {
			return brec.ErrInvalidPacketReaderLogic
		}

		return br.rules.AddFilterByBlocks(f)
	case KindFilterByPayload:
		f, ok := fn.(PayloadFilterFunc)
		if !ok {
			return brec.ErrInvalidPacketReaderLogic
		}

		return br.rules.AddFilterByPayload(f)
	case KindFilter:
		f, ok := fn.(FilterFunc)
		if !ok {
			return brec.ErrInvalidPacketReaderLogic
		}

		return br.rules.AddFilter(f)
	default:
		return brec.ErrInvalidPacketReaderLogic
	}
}

// RemoveRule clears the rule registered for kind, if any.
func (br *BufReader) RemoveRule(kind RuleKind) {
	br.rules.Remove(kind)
}

// refill performs one Read against the source, appending whatever bytes it
// returns (even alongside an error, per io.Reader's contract) to the
// internal buffer.
func (br *BufReader) refill() (int, error) {
	n, err := br.src.Read(br.chunk)
	if n > 0 {
		br.buf = append(br.buf, br.chunk[:n]...)
	}

	return n, err
}

// Read produces one NextPacket, resynchronizing across litter and partial
// reads as needed.
func (br *BufReader) Read() (NextPacket, error) {
	switch br.st {
	case stateEmpty:
		return br.readEmpty()
	case stateRefill:
		return br.readRefill()
	case stateReady:
		return br.readReady()
	default:
		return NextPacket{}, brec.ErrInvalidPacketReaderLogic
	}
}

// refillNext performs one refill and classifies the outcome: ok is false
// when there is nothing further this BufReader can do without more calls
// to Read — either the source errored (err holds that error, excluding
// io.EOF) or it is exhausted with no new bytes (err is nil).
func (br *BufReader) refillNext() (ok bool, err error) {
	n, rerr := br.refill()
	if n > 0 {
		return true, nil
	}

	if rerr != nil && rerr != io.EOF {
		return false, rerr
	}

	return false, nil
}

// exhausted flushes whatever bytes remain buffered as litter, since the
// source produced no more and they can never complete a header or body,
// and reports NextNoData.
func (br *BufReader) exhausted(err error) (NextPacket, error) {
	if err != nil {
		return NextPacket{}, err
	}

	if len(br.buf) > 0 {
		br.rules.emitIgnored(br.buf)
		br.buf = nil
	}

	br.hdr = Header{}
	br.st = stateEmpty

	return NextPacket{Kind: NextNoData}, nil
}

func (br *BufReader) readEmpty() (NextPacket, error) {
	ok, err := br.refillNext()
	if !ok && (err != nil || len(br.buf) == 0) {
		return br.exhausted(err)
	}

	return br.scanForHeader()
}

func (br *BufReader) readRefill() (NextPacket, error) {
	ok, err := br.refillNext()
	if !ok {
		return br.exhausted(err)
	}

	return br.scanForHeader()
}

// scanForHeader looks for HeaderSignature in the buffered bytes. Bytes
// before any match are litter and are delivered to the ignore rule in
// source order. With no match, the whole buffer is only litter once it is
// at least HeaderSize long; a shorter buffer might still complete to a
// signature on the next refill, so that case reports NextNotEnoughData
// instead of flushing early.
func (br *BufReader) scanForHeader() (NextPacket, error) {
	idx := LocateHeaderSignature(br.buf)
	if idx < 0 {
		if len(br.buf) < HeaderSize {
			br.st = stateRefill

			return NextPacket{Kind: NextNotEnoughData, N: HeaderSize - len(br.buf)}, nil
		}

		// Keep the last 3 bytes: a signature may straddle this refill and
		// the next one.
		litter := br.buf[:len(br.buf)-3]
		br.rules.emitIgnored(litter)
		br.buf = append([]byte(nil), br.buf[len(br.buf)-3:]...)
		br.st = stateEmpty

		return NextPacket{Kind: NextNotFound}, nil
	}

	if idx > 0 {
		br.rules.emitIgnored(br.buf[:idx])
		br.buf = br.buf[idx:]
	}

	if len(br.buf) < HeaderSize {
		br.st = stateRefill

		return NextPacket{Kind: NextNotEnoughData, N: HeaderSize - len(br.buf)}, nil
	}

	hdr, err := decodeHeader(br.buf[:HeaderSize])
	if err != nil {
		// The 4 signature bytes we matched were litter that happened to
		// collide with the header signature. Treat the first byte as
		// litter and keep scanning from the next one.
		br.rules.emitIgnored(br.buf[:1])
		br.buf = br.buf[1:]
		br.st = stateEmpty

		return NextPacket{Kind: NextNotFound}, nil
	}

	if br.maxPacketSize > 0 && hdr.Size > br.maxPacketSize {
		br.rules.emitIgnored(br.buf[:1])
		br.buf = br.buf[1:]
		br.st = stateEmpty

		return NextPacket{Kind: NextNotFound}, nil
	}

	br.hdr = hdr
	br.st = stateReady

	return br.readReady()
}

func (br *BufReader) readReady() (NextPacket, error) {
	if uint64(len(br.buf)) < br.hdr.Size {
		ok, err := br.refillNext()
		if !ok && err != nil {
			return br.exhausted(err)
		}

		if uint64(len(br.buf)) < br.hdr.Size {
			return NextPacket{Kind: NextNotEnoughData, N: int(br.hdr.Size) - len(br.buf)}, nil
		}
	}

	full := br.buf[:br.hdr.Size]
	br.buf = br.buf[br.hdr.Size:]
	hdr := br.hdr
	br.hdr = Header{}
	br.st = stateEmpty

	p, _, err := ReadBody(full[HeaderSize:], hdr, br.reg, br.rules)
	if err != nil {
		if Rejected(err) {
			return NextPacket{Kind: NextIgnored}, nil
		}

		return NextPacket{}, err
	}

	return NextPacket{Kind: NextFound, Packet: p}, nil
}
