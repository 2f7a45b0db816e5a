package packet_test

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brecio/brec"
	"github.com/brecio/brec/packet"
)

func Test_Header_Encode_Then_ReadHeader_RoundTrips(t *testing.T) {
	t.Parallel()

	hdr := packet.Header{Size: 100, BlocksLen: 40, HasPayload: true}

	encoded := hdr.Encode(nil)
	require.Equal(t, packet.HeaderSize, len(encoded))

	decoded, err := packet.ReadHeader(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Equal(t, hdr, decoded)
}

func Test_ReadHeader_Rejects_Wrong_Signature(t *testing.T) {
	t.Parallel()

	hdr := packet.Header{Size: 50, BlocksLen: 10}
	encoded := hdr.Encode(nil)
	encoded[0] ^= 0xFF

	_, err := packet.ReadHeader(bytes.NewReader(encoded))
	require.True(t, errors.Is(err, brec.ErrSignatureMismatch))
}

func Test_ReadHeader_Detects_Crc_Corruption(t *testing.T) {
	t.Parallel()

	hdr := packet.Header{Size: 50, BlocksLen: 10}
	encoded := hdr.Encode(nil)
	encoded[12] ^= 0xFF // corrupt a byte covered by the CRC but not the signature

	_, err := packet.ReadHeader(bytes.NewReader(encoded))
	require.True(t, errors.Is(err, brec.ErrCrcMismatch))
}

func Test_TryReadHeaderBuffered_Does_Not_Consume_On_NotEnoughData(t *testing.T) {
	t.Parallel()

	hdr := packet.Header{Size: 50, BlocksLen: 10}
	encoded := hdr.Encode(nil)

	br := bufio.NewReader(bytes.NewReader(encoded[:packet.HeaderSize-1]))

	_, err := packet.TryReadHeaderBuffered(br)

	var nd *brec.NotEnoughDataError
	require.True(t, errors.As(err, &nd))
	require.Equal(t, packet.HeaderSize-1, br.Buffered())
}

func Test_LocateHeaderSignature_Finds_Offset(t *testing.T) {
	t.Parallel()

	hdr := packet.Header{Size: 50, BlocksLen: 10}
	encoded := hdr.Encode(nil)

	litter := append([]byte{0xDE, 0xAD, 0xBE, 0xEF}, encoded...)

	require.Equal(t, 4, packet.LocateHeaderSignature(litter))
	require.Equal(t, -1, packet.LocateHeaderSignature([]byte{0, 1, 2, 3}))
}
