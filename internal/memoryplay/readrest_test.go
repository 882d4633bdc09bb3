package memoryplay

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func dsdFormat(channels int) Format {
	return Format{Family: FamilyDSD, Bits: 32, Rate: 2822400, Channels: channels}
}

func TestReadRestMSBSingleChannel(t *testing.T) {
	rest, err := NewReadRest(dsdFormat(1))
	require.NoError(t, err)

	out := make([]byte, 4)
	// A word is due as soon as 32 bits are buffered: after the fourth
	// byte and again after the eighth.
	for i := 0; i < 7; i++ {
		rest.PushMSB([]byte{0xA5}, 8)
		if i == 3 {
			require.True(t, rest.Full(out), "no word after byte %d", i)
			require.Equal(t, uint32(0xA5A5A5A5), binary.LittleEndian.Uint32(out))
			continue
		}
		require.False(t, rest.Full(out), "word emitted early at byte %d", i)
	}
	rest.PushMSB([]byte{0xA5}, 8)

	require.True(t, rest.Full(out))
	require.Equal(t, uint32(0xA5A5A5A5), binary.LittleEndian.Uint32(out))
	// 64 bits pushed, 64 emitted; nothing is pending.
	require.False(t, rest.Full(out))
	require.Zero(t, rest.BitCount())
}

func TestReadRestLSBReversesBits(t *testing.T) {
	rest, err := NewReadRest(dsdFormat(1))
	require.NoError(t, err)

	out := make([]byte, 4)
	// 0x01 reversed is 0x80.
	for i := 0; i < 4; i++ {
		rest.PushLSB([]byte{0x01}, 8)
	}
	require.True(t, rest.Full(out))
	require.Equal(t, uint32(0x80808080), binary.LittleEndian.Uint32(out))
}

func TestReadRestWordCountInvariant(t *testing.T) {
	// 13 bytes per channel = 104 bits: 3 whole words plus a tail.
	rest, err := NewReadRest(dsdFormat(2))
	require.NoError(t, err)

	out := make([]byte, 8)
	words := 0
	for i := 0; i < 13; i++ {
		rest.PushMSB([]byte{0xFF, 0x00}, 8)
		if rest.Full(out) {
			words++
		}
	}
	require.Equal(t, 3, words)
	require.Equal(t, 8, rest.BitCount())

	tail := rest.Final()
	require.Len(t, tail, 8)
	require.Zero(t, rest.BitCount())
	// ceil(104/32) = 4 words per channel in total.
	require.Equal(t, 4, words+1)
}

func TestReadRestFinalPadsWithMute(t *testing.T) {
	rest, err := NewReadRest(dsdFormat(1))
	require.NoError(t, err)

	rest.PushMSB([]byte{0xFF}, 8)
	tail := rest.Final()
	require.Len(t, tail, 4)

	word := binary.LittleEndian.Uint32(tail)
	// Accumulated bits in the high end, mute pattern below.
	require.Equal(t, uint32(0xFF000000|0x00696969), word)
}

func TestReadRestFinalEmptyOnBoundary(t *testing.T) {
	rest, err := NewReadRest(dsdFormat(1))
	require.NoError(t, err)

	out := make([]byte, 4)
	for i := 0; i < 4; i++ {
		rest.PushMSB([]byte{0x00}, 8)
	}
	require.True(t, rest.Full(out))
	require.Empty(t, rest.Final())
}

func TestReadRestPartialBits(t *testing.T) {
	rest, err := NewReadRest(dsdFormat(1))
	require.NoError(t, err)

	// 3 whole bytes plus a 5-bit tail: 29 bits, no full word yet.
	out := make([]byte, 4)
	for i := 0; i < 3; i++ {
		rest.PushMSB([]byte{0x00}, 8)
	}
	rest.PushMSB([]byte{0x1F}, 5)
	require.False(t, rest.Full(out))
	require.Equal(t, 29, rest.BitCount())

	tail := rest.Final()
	word := binary.LittleEndian.Uint32(tail)
	require.Equal(t, uint32(0x1F<<3|0x69&0x07), word)
}

func TestReadRestRejectsTooManyChannels(t *testing.T) {
	_, err := NewReadRest(dsdFormat(33))
	require.ErrorIs(t, err, ErrInvalidParam)
}
