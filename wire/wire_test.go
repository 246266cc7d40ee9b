package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func samplePacket() Packet {
	return Packet{
		Header: Header{Op: OpQSPNClose, ID: 7, SrcIP: 0x0a000001},
		Bcast:  BroadcastHeader{GNode: 3, Level: 1, SubID: 9, Flags: FlagBnodeClosed},
		Tracer: TracerHeader{Hops: 2, Flags: 0},
		Chunks: []Chunk{
			{NodePos: 0, RTTMicro: 0},
			{NodePos: 4, RTTMicro: 1500},
		},
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	p := samplePacket()
	buf, err := p.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, p.Header.Op, got.Header.Op)
	require.Equal(t, p.Header.ID, got.Header.ID)
	require.Equal(t, p.Bcast, got.Bcast)
	require.Equal(t, p.Tracer, got.Tracer)
	require.Equal(t, p.Chunks, got.Chunks)
	require.Nil(t, got.BnodeInfo)
}

func TestMarshalUnmarshalWithBnodeBlock(t *testing.T) {
	p := samplePacket()
	p.BnodeInfo = []BnodeRecord{
		{BnodePos: 2, Links: []BorderLink{{PeerGNodePos: 5, RTTMicro: 900}}},
	}

	buf, err := p.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, p.BnodeInfo, got.BnodeInfo)
}

func TestUnmarshalRejectsTruncatedHeader(t *testing.T) {
	_, err := Unmarshal([]byte{0x00, 0x01})
	require.Error(t, err)
}

func TestUnmarshalRejectsBadTotalLen(t *testing.T) {
	p := samplePacket()
	buf, err := p.Marshal()
	require.NoError(t, err)

	_, err = Unmarshal(buf[:len(buf)-2])
	require.Error(t, err)
}

func TestUnmarshalRejectsHopCountOverrun(t *testing.T) {
	p := samplePacket()
	buf, err := p.Marshal()
	require.NoError(t, err)

	// Inflate the declared hop count beyond what the buffer actually carries.
	buf[headerLen+bcastHeaderLen] = 0xff
	_, err = Unmarshal(buf)
	require.Error(t, err)
}

func TestMarshalRejectsHopsChunkMismatch(t *testing.T) {
	p := samplePacket()
	p.Tracer.Hops = 99
	_, err := p.Marshal()
	require.Error(t, err)
}

func TestOpString(t *testing.T) {
	require.Equal(t, "QSPN_CLOSE", OpQSPNClose.String())
	require.Equal(t, "UNKNOWN", Op(999).String())
}
