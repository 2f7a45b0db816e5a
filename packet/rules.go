package packet

import (
	"errors"

	"github.com/brecio/brec"
	"github.com/brecio/brec/block"
)

// internal sentinels signaling that ReadBody rejected a packet via one of
// the three decision-point rules, as opposed to failing outright. Callers
// that care only about byte consumption (the BufReader) treat these as
// "Ignored", not as errors to propagate.
var (
	errRejectedByBlocks  = errors.New("brec: rejected by filter-by-blocks rule")
	errRejectedByPayload = errors.New("brec: rejected by filter-by-payload rule")
	errRejectedByFilter  = errors.New("brec: rejected by filter rule")
)

// Rejected reports whether err is one of ReadBody's rule-rejection
// sentinels (as opposed to a real decode failure).
func Rejected(err error) bool {
	return errors.Is(err, errRejectedByBlocks) ||
		errors.Is(err, errRejectedByPayload) ||
		errors.Is(err, errRejectedByFilter)
}

// RuleKind identifies one of the four rule slots a BufReader or storage
// Reader may hold. At most one rule of each kind may be registered at a
// time.
type RuleKind int

const (
	// KindIgnored receives every byte sequence classified as non-packet
	// litter; side-effect only, never rejects anything.
	KindIgnored RuleKind = iota
	// KindFilterByBlocks runs over block-referred views before owned
	// conversion; returning false rejects the packet.
	KindFilterByBlocks
	// KindFilterByPayload runs over raw payload bytes before decode;
	// returning false rejects the packet.
	KindFilterByPayload
	// KindFilter runs over the fully decoded packet; returning false
	// rejects the packet.
	KindFilter
)

// IgnoredFunc observes litter bytes. It never rejects anything; its return
// value is discarded.
type IgnoredFunc func(litter []byte)

// BlocksFilterFunc decides whether a packet should proceed to owned
// conversion, given its block-referred views.
type BlocksFilterFunc func(blocks []block.ReferredBlock) bool

// PayloadFilterFunc decides whether a packet should proceed to payload
// decode, given the raw payload bytes (header already stripped).
type PayloadFilterFunc func(payloadBody []byte) bool

// FilterFunc decides whether a fully decoded packet should be yielded.
type FilterFunc func(p *Packet) bool

// Rules holds at most one rule of each RuleKind.
type Rules struct {
	ignored        IgnoredFunc
	filterByBlocks BlocksFilterFunc
	filterByPayload PayloadFilterFunc
	filter         FilterFunc
}

// NewRules returns an empty rule set.
func NewRules() *Rules {
	return &Rules{}
}

// AddIgnored registers the ignore rule. Returns ErrRuleDuplicate if one is
// already registered.
func (r *Rules) AddIgnored(fn IgnoredFunc) error {
	if r.ignored != nil {
		return brec.ErrRuleDuplicate
	}

	r.ignored = fn

	return nil
}

// AddFilterByBlocks registers the filter-by-blocks rule.
func (r *Rules) AddFilterByBlocks(fn BlocksFilterFunc) error {
	if r.filterByBlocks != nil {
		return brec.ErrRuleDuplicate
	}

	r.filterByBlocks = fn

	return nil
}

// AddFilterByPayload registers the filter-by-payload rule.
func (r *Rules) AddFilterByPayload(fn PayloadFilterFunc) error {
	if r.filterByPayload != nil {
		return brec.ErrRuleDuplicate
	}

	r.filterByPayload = fn

	return nil
}

// AddFilter registers the filter rule.
func (r *Rules) AddFilter(fn FilterFunc) error {
	if r.filter != nil {
		return brec.ErrRuleDuplicate
	}

	r.filter = fn

	return nil
}

// BlocksFilter returns the registered filter-by-blocks rule, or nil.
func (r *Rules) BlocksFilter() BlocksFilterFunc {
	return r.filterByBlocks
}

// PayloadFilter returns the registered filter-by-payload rule, or nil.
func (r *Rules) PayloadFilter() PayloadFilterFunc {
	return r.filterByPayload
}

// Filter returns the registered filter rule, or nil.
func (r *Rules) Filter() FilterFunc {
	return r.filter
}

// Remove clears the rule registered for kind, if any.
func (r *Rules) Remove(kind RuleKind) {
	switch kind {
	case KindIgnored:
		r.ignored = nil
	case KindFilterByBlocks:
		r.filterByBlocks = nil
	case KindFilterByPayload:
		r.filterByPayload = nil
	case KindFilter:
		r.filter = nil
	}
}

func (r *Rules) emitIgnored(litter []byte) {
	if r.ignored != nil && len(litter) > 0 {
		r.ignored(litter)
	}
}

func (r *Rules) acceptBlocks(blocks []block.ReferredBlock) bool {
	if r.filterByBlocks == nil {
		return true
	}

	return r.filterByBlocks(blocks)
}

func (r *Rules) acceptPayload(body []byte) bool {
	if r.filterByPayload == nil {
		return true
	}

	return r.filterByPayload(body)
}

func (r *Rules) accept(p *Packet) bool {
	if r.filter == nil {
		return true
	}

	return r.filter(p)
}
