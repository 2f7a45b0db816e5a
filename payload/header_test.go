package payload_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brecio/brec"
	"github.com/brecio/brec/payload"
)

func Test_Header_Encode_Then_ReadHeader_RoundTrips(t *testing.T) {
	t.Parallel()

	sig, err := brec.NewByteBlock([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	crc, err := brec.NewByteBlock([]byte{5, 6, 7, 8})
	require.NoError(t, err)

	hdr := payload.Header{Sig: sig, Crc: crc, Len: 123}

	encoded := hdr.Encode(nil)
	require.Equal(t, hdr.Size(), len(encoded))

	decoded, err := payload.ReadHeader(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Equal(t, hdr.Sig.Bytes(), decoded.Sig.Bytes())
	require.Equal(t, hdr.Crc.Bytes(), decoded.Crc.Bytes())
	require.Equal(t, hdr.Len, decoded.Len)
}

func Test_Header_Encode_Allows_Zero_Width_Sig_And_Crc(t *testing.T) {
	t.Parallel()

	hdr := payload.Header{Len: 0}

	encoded := hdr.Encode(nil)
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0}, encoded)

	decoded, err := payload.ReadHeader(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Equal(t, 0, decoded.Sig.Len())
	require.Equal(t, 0, decoded.Crc.Len())
}

func Test_TryReadHeaderBuffered_Matches_ReadHeader(t *testing.T) {
	t.Parallel()

	sig, err := brec.NewByteBlock([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	hdr := payload.Header{Sig: sig, Len: 9}
	encoded := hdr.Encode(nil)

	br := bufio.NewReader(bytes.NewReader(encoded))

	decoded, n, err := payload.TryReadHeaderBuffered(br)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)
	require.Equal(t, hdr.Sig.Bytes(), decoded.Sig.Bytes())
	require.Equal(t, hdr.Len, decoded.Len)
}

func Test_Header_MatchesSignature(t *testing.T) {
	t.Parallel()

	sig, err := brec.NewByteBlock([]byte("text"))
	require.NoError(t, err)

	hdr := payload.Header{Sig: sig}

	require.True(t, hdr.MatchesSignature([]byte("text")))
	require.False(t, hdr.MatchesSignature([]byte("other")))
}
