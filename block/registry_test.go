package block_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brecio/brec"
	"github.com/brecio/brec/block"
)

type refA struct{ fields []byte }

func (r refA) Signature() [4]byte        { return [4]byte{'a', 'a', 'a', 'a'} }
func (r refA) ToOwned() (block.Block, error) { return fakeBlock{sig: r.Signature(), fields: r.fields}, nil }

type refB struct{ fields []byte }

func (r refB) Signature() [4]byte        { return [4]byte{'b', 'b', 'b', 'b'} }
func (r refB) ToOwned() (block.Block, error) { return fakeBlock{sig: r.Signature(), fields: r.fields}, nil }

func newTestRegistry() *block.Registry {
	return block.NewRegistry(
		block.Variant{
			Signature: [4]byte{'a', 'a', 'a', 'a'},
			FieldsLen: 4,
			DecodeReferred: func(fields []byte) (block.ReferredBlock, error) {
				return refA{fields: fields}, nil
			},
		},
		block.Variant{
			Signature: [4]byte{'b', 'b', 'b', 'b'},
			FieldsLen: 2,
			DecodeReferred: func(fields []byte) (block.ReferredBlock, error) {
				return refB{fields: fields}, nil
			},
		},
	)
}

func Test_Registry_TryReadReferred_Dispatches_By_Signature(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()

	b := fakeBlock{sig: [4]byte{'b', 'b', 'b', 'b'}, fields: []byte{5, 6}}

	buf := append([]byte{}, b.sig[:]...)
	buf = append(buf, b.fields...)
	buf = brec.PutUint32(buf, brec.CRC32(b.fields))

	rb, n, err := reg.TryReadReferred(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, b.sig, rb.Signature())
}

func Test_Registry_TryReadReferred_Returns_SignatureMismatch_When_No_Variant_Matches(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()

	_, _, err := reg.TryReadReferred([]byte{'z', 'z', 'z', 'z', 0, 0, 0, 0})
	require.True(t, errors.Is(err, brec.ErrSignatureMismatch))
}

func Test_Registry_TryReadReferred_Propagates_NotEnoughData(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()

	var nd *brec.NotEnoughDataError
	_, _, err := reg.TryReadReferred([]byte{'a', 'a'})
	require.True(t, errors.As(err, &nd))
}

func Test_Registry_SizeOf_Reports_Total_Frame_Size(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()

	size, ok := reg.SizeOf([4]byte{'a', 'a', 'a', 'a'})
	require.True(t, ok)
	require.Equal(t, 4+4+4, size)

	_, ok = reg.SizeOf([4]byte{'z', 'z', 'z', 'z'})
	require.False(t, ok)
}
