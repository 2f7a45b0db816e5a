package packet_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brecio/brec"
	"github.com/brecio/brec/block"
	"github.com/brecio/brec/packet"
)

type idBlock struct {
	id uint32
}

var idBlockSig = [4]byte{'i', 'd', '0', '1'}

func (b idBlock) Signature() [4]byte { return idBlockSig }
func (b idBlock) Encode() []byte     { return brec.PutUint32(nil, b.id) }

type idReferred struct{ fields []byte }

func (r idReferred) Signature() [4]byte { return idBlockSig }
func (r idReferred) ToOwned() (block.Block, error) {
	return idBlock{id: brec.Uint32(r.fields)}, nil
}

func testRegistry() *block.Registry {
	return block.NewRegistry(block.Variant{
		Signature: idBlockSig,
		FieldsLen: 4,
		DecodeReferred: func(fields []byte) (block.ReferredBlock, error) {
			return idReferred{fields: fields}, nil
		},
	})
}

func Test_Write_Then_ReadBody_RoundTrips_Blocks_Only(t *testing.T) {
	t.Parallel()

	p := packet.Packet{Blocks: []block.Block{idBlock{id: 7}, idBlock{id: 9}}}

	var buf bytes.Buffer

	_, err := packet.Write(&buf, p)
	require.NoError(t, err)

	hdr, err := packet.ReadHeader(&buf)
	require.NoError(t, err)
	require.False(t, hdr.HasPayload)

	decoded, consumed, err := packet.ReadBody(buf.Bytes(), hdr, testRegistry(), nil)
	require.NoError(t, err)
	require.Equal(t, int(hdr.BlocksLen), consumed)
	require.Len(t, decoded.Blocks, 2)
	require.Equal(t, idBlock{id: 7}, decoded.Blocks[0])
	require.Equal(t, idBlock{id: 9}, decoded.Blocks[1])
}

func Test_Size_Matches_Actual_Encoded_Length(t *testing.T) {
	t.Parallel()

	p := packet.Packet{Blocks: []block.Block{idBlock{id: 1}}}

	var buf bytes.Buffer

	n, err := packet.Write(&buf, p)
	require.NoError(t, err)
	require.Equal(t, uint64(n), packet.Size(p))
}

func Test_ReadBody_Rejects_Too_Many_Blocks(t *testing.T) {
	t.Parallel()

	blocks := make([]block.Block, packet.MaxBlocksCount+1)
	for i := range blocks {
		blocks[i] = idBlock{id: uint32(i)}
	}

	p := packet.Packet{Blocks: blocks}

	var buf bytes.Buffer

	_, err := packet.Write(&buf, p)
	require.NoError(t, err)

	hdr, err := packet.ReadHeader(&buf)
	require.NoError(t, err)

	_, _, err = packet.ReadBody(buf.Bytes(), hdr, testRegistry(), nil)
	require.True(t, errors.Is(err, brec.ErrMaxBlocksCount))
}

func Test_ReadBody_Applies_FilterByBlocks_Rule(t *testing.T) {
	t.Parallel()

	p := packet.Packet{Blocks: []block.Block{idBlock{id: 42}}}

	var buf bytes.Buffer

	_, err := packet.Write(&buf, p)
	require.NoError(t, err)

	hdr, err := packet.ReadHeader(&buf)
	require.NoError(t, err)

	rules := packet.NewRules()
	require.NoError(t, rules.AddFilterByBlocks(func(blocks []block.ReferredBlock) bool {
		return false
	}))

	_, _, err = packet.ReadBody(buf.Bytes(), hdr, testRegistry(), rules)
	require.True(t, packet.Rejected(err))
}
