package brec_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brecio/brec"
)

func Test_NewByteBlock_Accepts_Valid_Capacities(t *testing.T) {
	t.Parallel()

	for _, n := range []int{4, 8, 16, 32, 64, 128} {
		b, err := brec.NewByteBlock(make([]byte, n))
		require.NoError(t, err)
		require.Equal(t, n, b.Len())
	}
}

func Test_NewByteBlock_Rejects_Invalid_Capacity(t *testing.T) {
	t.Parallel()

	_, err := brec.NewByteBlock(make([]byte, 5))
	require.True(t, errors.Is(err, brec.ErrInvalidByteBlockCapacity))
}

func Test_NewByteBlock_Rejects_Zero_Length(t *testing.T) {
	t.Parallel()

	// Zero-width is a special "disabled" case handled by callers (e.g.
	// payload.Header's sig/crc fields) bypassing NewByteBlock entirely;
	// NewByteBlock itself only accepts the declared non-zero widths.
	_, err := brec.NewByteBlock(nil)
	require.True(t, errors.Is(err, brec.ErrInvalidByteBlockCapacity))
}

func Test_ByteBlock_Equal(t *testing.T) {
	t.Parallel()

	a, err := brec.NewByteBlock([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	b, err := brec.NewByteBlock([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	c, err := brec.NewByteBlock([]byte{1, 2, 3, 5})
	require.NoError(t, err)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}
