package brec_test

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brecio/brec"
)

func Test_CRC32_Matches_Stdlib_IEEE(t *testing.T) {
	t.Parallel()

	data := []byte("the quick brown fox")

	require.Equal(t, crc32.ChecksumIEEE(data), brec.CRC32(data))
}

func Test_Uint64_RoundTrips_PutUint64(t *testing.T) {
	t.Parallel()

	dst := brec.PutUint64(nil, 0x0102030405060708)

	require.Equal(t, uint64(0x0102030405060708), brec.Uint64(dst))
}

func Test_Uint128_RoundTrips_PutUint128(t *testing.T) {
	t.Parallel()

	dst := brec.PutUint128(nil, 0x1111111111111111, 0x2222222222222222)
	require.Len(t, dst, 16)

	lo, hi := brec.Uint128(dst)
	require.Equal(t, uint64(0x1111111111111111), lo)
	require.Equal(t, uint64(0x2222222222222222), hi)
}

func Test_PutUint32_Is_Little_Endian(t *testing.T) {
	t.Parallel()

	dst := brec.PutUint32(nil, 0x01020304)

	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, dst)
}
