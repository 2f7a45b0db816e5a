package block

import (
	"bytes"

	"github.com/brecio/brec"
)

// ReferredBlock is a block-referred view that knows how to convert itself
// to an owned Block. Generated variant types implement this alongside
// Referred's plain field access.
type ReferredBlock interface {
	Signature() [4]byte
	ToOwned() (Block, error)
}

// Variant registers one block type with a Registry: its signature, its
// fixed field width, and a decoder from raw field bytes to a
// ReferredBlock. This is what a code generator would emit per declared
// block type; examples/demo hand-writes it to stand in for that output.
type Variant struct {
	Signature      [4]byte
	FieldsLen      int
	DecodeReferred func(fields []byte) (ReferredBlock, error)
}

// Registry is the generated sum type of all user block variants: it
// dispatches a try-read by signature, trying each registered variant in
// turn.
type Registry struct {
	variants []Variant
}

// NewRegistry builds a Registry from the given variants. Order matters only
// in that it determines try order; signatures are expected to be globally
// unique within one registry.
func NewRegistry(variants ...Variant) *Registry {
	return &Registry{variants: append([]Variant(nil), variants...)}
}

// TryReadReferred dispatches on the 4-byte signature at the front of buf:
// for each registered variant, a SignatureMismatch moves on to the next;
// NotEnoughData propagates immediately; any other error aborts. If no
// variant's signature matches, ErrSignatureMismatch is returned.
func (reg *Registry) TryReadReferred(buf []byte) (ReferredBlock, int, error) {
	if len(buf) < 4 {
		return nil, 0, brec.NotEnoughData(4 - len(buf))
	}

	for _, v := range reg.variants {
		if !bytes.Equal(buf[:4], v.Signature[:]) {
			continue
		}

		referred, n, err := ReadReferred(buf, v.Signature, v.FieldsLen)
		if err != nil {
			return nil, 0, err
		}

		rb, err := v.DecodeReferred(referred.Fields)
		if err != nil {
			return nil, 0, err
		}

		if n == 0 {
			return nil, 0, brec.ErrZeroLengthBlock
		}

		return rb, n, nil
	}

	return nil, 0, brec.ErrSignatureMismatch
}

// SizeOf returns the total encoded size (signature + fields + crc) of the
// variant registered under sig, or false if no such variant is registered.
func (reg *Registry) SizeOf(sig [4]byte) (int, bool) {
	for _, v := range reg.variants {
		if v.Signature == sig {
			return 4 + v.FieldsLen + 4, true
		}
	}

	return 0, false
}
