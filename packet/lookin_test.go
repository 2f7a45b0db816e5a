package packet_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brecio/brec/block"
	"github.com/brecio/brec/packet"
)

func Test_LookIn_Accepts_When_No_Filters_Given(t *testing.T) {
	t.Parallel()

	p := packet.Packet{Blocks: []block.Block{idBlock{id: 1}}}

	var buf bytes.Buffer

	n, err := packet.Write(&buf, p)
	require.NoError(t, err)

	status, err := packet.LookIn(buf.Bytes(), testRegistry(), nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, packet.Accepted, status.Kind)
	require.Equal(t, n, status.Consumed)
}

func Test_LookIn_Denies_Via_BlocksFilter_Without_Owned_Decode(t *testing.T) {
	t.Parallel()

	p := packet.Packet{Blocks: []block.Block{idBlock{id: 5}}}

	var buf bytes.Buffer

	_, err := packet.Write(&buf, p)
	require.NoError(t, err)

	status, err := packet.FilteredByBlocks(buf.Bytes(), testRegistry(), func(blocks []block.ReferredBlock) bool {
		return false
	})
	require.NoError(t, err)
	require.Equal(t, packet.Denied, status.Kind)
	require.Greater(t, status.Consumed, 0)
}

func Test_LookIn_Reports_NotEnoughData_On_Short_Buffer(t *testing.T) {
	t.Parallel()

	p := packet.Packet{Blocks: []block.Block{idBlock{id: 1}}}

	var buf bytes.Buffer

	_, err := packet.Write(&buf, p)
	require.NoError(t, err)

	status, err := packet.LookIn(buf.Bytes()[:packet.HeaderSize-1], testRegistry(), nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, packet.LookInNotEnoughData, status.Kind)
	require.Greater(t, status.Needed, 0)
}

func Test_Filtered_Applies_FullPacket_Filter(t *testing.T) {
	t.Parallel()

	p := packet.Packet{Blocks: []block.Block{idBlock{id: 11}}}

	var buf bytes.Buffer

	_, err := packet.Write(&buf, p)
	require.NoError(t, err)

	status, err := packet.Filtered(buf.Bytes(), testRegistry(), func(p *packet.Packet) bool {
		return len(p.Blocks) > 0 && p.Blocks[0].(idBlock).id == 11
	})
	require.NoError(t, err)
	require.Equal(t, packet.Accepted, status.Kind)
}
