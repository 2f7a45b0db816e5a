package packet

import (
	"github.com/brecio/brec/block"
)

// LookInKind classifies the outcome of a look-in scan.
type LookInKind int

const (
	// Accepted means the packet passed the rule being applied; Consumed is
	// the number of bytes the packet occupied and Packet holds the decoded
	// result.
	Accepted LookInKind = iota
	// Denied means the packet was rejected; Consumed is still valid so the
	// caller can skip past it.
	Denied
	// LookInNotEnoughData means buf does not yet hold a complete packet.
	LookInNotEnoughData
)

// LookInStatus is the result of a fast-reject scan: either the packet was
// Accepted (with its decoded form), Denied (rejected, but its byte span is
// known so the caller can skip it), or the buffer held NotEnoughData.
type LookInStatus struct {
	Kind     LookInKind
	Consumed int
	Needed   int
	Packet   Packet
}

// LookIn decodes a packet header from the front of buf, then decodes its
// blocks (zero-copy) and consults blocksFilter; if it accepts, continues to
// decode the owned packet (and payload, if present) and consults
// payloadFilter and filter. Any of the three may be nil to skip that
// decision point. This is the fast-reject entry point for scan-heavy
// workloads such as storage iteration: a Denied result lets the caller skip
// the packet's bytes without paying for payload decode.
func LookIn(buf []byte, reg *block.Registry, blocksFilter BlocksFilterFunc, payloadFilter PayloadFilterFunc, filter FilterFunc) (LookInStatus, error) {
	if len(buf) < HeaderSize {
		return LookInStatus{Kind: LookInNotEnoughData, Needed: HeaderSize - len(buf)}, nil
	}

	hdr, err := decodeHeader(buf[:HeaderSize])
	if err != nil {
		return LookInStatus{}, err
	}

	if uint64(len(buf)) < hdr.Size {
		return LookInStatus{Kind: LookInNotEnoughData, Needed: int(hdr.Size) - len(buf)}, nil
	}

	rules := NewRules()

	if blocksFilter != nil {
		_ = rules.AddFilterByBlocks(blocksFilter)
	}

	if payloadFilter != nil {
		_ = rules.AddFilterByPayload(payloadFilter)
	}

	if filter != nil {
		_ = rules.AddFilter(filter)
	}

	p, consumed, err := ReadBody(buf[HeaderSize:], hdr, reg, rules)
	total := HeaderSize + consumed

	if err != nil {
		if Rejected(err) {
			return LookInStatus{Kind: Denied, Consumed: total}, nil
		}

		return LookInStatus{}, err
	}

	return LookInStatus{Kind: Accepted, Consumed: total, Packet: p}, nil
}

// FilteredByBlocks is LookIn with only the blocks filter applied.
func FilteredByBlocks(buf []byte, reg *block.Registry, fn BlocksFilterFunc) (LookInStatus, error) {
	return LookIn(buf, reg, fn, nil, nil)
}

// FilteredByPayload is LookIn with only the payload filter applied.
func FilteredByPayload(buf []byte, reg *block.Registry, fn PayloadFilterFunc) (LookInStatus, error) {
	return LookIn(buf, reg, nil, fn, nil)
}

// Filtered is LookIn with only the fully-decoded-packet filter applied.
func Filtered(buf []byte, reg *block.Registry, fn FilterFunc) (LookInStatus, error) {
	return LookIn(buf, reg, nil, nil, fn)
}
