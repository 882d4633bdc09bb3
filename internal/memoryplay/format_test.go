package memoryplay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatIDEncoding(t *testing.T) {
	f := Format{Family: FamilyPCMSigned, Bits: 16, Rate: 44100, Channels: 2}
	id, err := f.ID()
	require.NoError(t, err)
	require.Equal(t, byte(16), id[1])
	require.Equal(t, byte(2), id[2])

	rate, ok := RateFromCode(id[3])
	require.True(t, ok)
	require.Equal(t, 44100, rate)
}

func TestFormatIDDistinguishesFamilies(t *testing.T) {
	pcm := Format{Family: FamilyPCMSigned, Bits: 32, Rate: 44100, Channels: 2}
	flt := Format{Family: FamilyPCMFloat, Bits: 32, Rate: 44100, Channels: 2}
	dsd := Format{Family: FamilyDSD, Bits: 32, Rate: 2822400, Channels: 2}

	idPCM, err := pcm.ID()
	require.NoError(t, err)
	idFlt, err := flt.ID()
	require.NoError(t, err)
	idDSD, err := dsd.ID()
	require.NoError(t, err)

	require.NotEqual(t, idPCM, idFlt)
	require.NotEqual(t, idPCM, idDSD)
	require.NotEqual(t, idFlt, idDSD)
}

func TestFormatIDRejectsUnknownRate(t *testing.T) {
	f := Format{Family: FamilyPCMSigned, Bits: 16, Rate: 44101, Channels: 2}
	_, err := f.ID()
	require.ErrorIs(t, err, ErrInvalidParam)
}

func TestFrameSize(t *testing.T) {
	require.Equal(t, 4, Format{Family: FamilyPCMSigned, Bits: 16, Rate: 44100, Channels: 2}.FrameSize())
	require.Equal(t, 3, Format{Family: FamilyPCMSigned, Bits: 24, Rate: 44100, Channels: 1}.FrameSize())
	require.Equal(t, 8, Format{Family: FamilyDSD, Bits: 32, Rate: 2822400, Channels: 2}.FrameSize())
}

func TestOneSecondBytes(t *testing.T) {
	pcm := Format{Family: FamilyPCMSigned, Bits: 16, Rate: 44100, Channels: 2}
	require.Equal(t, 176400, pcm.OneSecondBytes())

	dsd := Format{Family: FamilyDSD, Bits: 32, Rate: 2822400, Channels: 2}
	require.Equal(t, 2822400/8*2, dsd.OneSecondBytes())
}

func TestMuteByte(t *testing.T) {
	require.Equal(t, byte(0x00), Format{Family: FamilyPCMSigned, Bits: 16, Rate: 44100, Channels: 2}.MuteByte())
	require.Equal(t, byte(0x69), Format{Family: FamilyDSD, Bits: 32, Rate: 2822400, Channels: 2}.MuteByte())
}
