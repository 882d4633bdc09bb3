package wav

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/famish99/memoryplayctl/internal/memoryplay"
)

// buildDSF assembles a DSF file: DSD header, fmt chunk, a data chunk
// holding the block-interleaved audio bytes, and an optional trailing
// ID3 tag.
func buildDSF(channels, rate, blockSize int, samples uint64, audio, id3 []byte) []byte {
	var out bytes.Buffer

	out.WriteString("DSD ")
	binary.Write(&out, binary.LittleEndian, uint64(28))
	binary.Write(&out, binary.LittleEndian, uint64(0)) // file size, unchecked
	binary.Write(&out, binary.LittleEndian, uint64(0)) // metadata pointer

	out.WriteString("fmt ")
	binary.Write(&out, binary.LittleEndian, uint64(52))
	binary.Write(&out, binary.LittleEndian, uint32(1)) // version
	binary.Write(&out, binary.LittleEndian, uint32(0)) // format id
	binary.Write(&out, binary.LittleEndian, uint32(0)) // channel type
	binary.Write(&out, binary.LittleEndian, uint32(channels))
	binary.Write(&out, binary.LittleEndian, uint32(rate))
	binary.Write(&out, binary.LittleEndian, uint32(1)) // bits per sample
	binary.Write(&out, binary.LittleEndian, samples)
	binary.Write(&out, binary.LittleEndian, uint32(blockSize))
	binary.Write(&out, binary.LittleEndian, uint32(0)) // reserved

	out.WriteString("data")
	binary.Write(&out, binary.LittleEndian, uint64(12+len(audio)))
	out.Write(audio)

	out.Write(id3)
	return out.Bytes()
}

func TestDSFOpenFormat(t *testing.T) {
	data := buildDSF(2, 2822400, 4096, 0, make([]byte, 8192), nil)
	f, err := Open(writeTemp(t, "probe.dsf", data), false)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, memoryplay.Format{
		Family:   memoryplay.FamilyDSD,
		Bits:     32,
		Rate:     2822400,
		Channels: 2,
	}, f.Format())
}

func TestDSFReadPacksWords(t *testing.T) {
	// One channel, two 4-byte blocks, 64 samples: two whole words.
	audio := bytes.Repeat([]byte{0xA5}, 8)
	data := buildDSF(1, 2822400, 4, 64, audio, nil)

	f, err := Open(writeTemp(t, "words.dsf", data), false)
	require.NoError(t, err)
	defer f.Close()

	rest, err := memoryplay.NewReadRest(f.Format())
	require.NoError(t, err)

	buf, err := f.Read(8, rest)
	require.NoError(t, err)
	require.Len(t, buf, 8)
	// 0xA5 is a bit-order palindrome, so LSB-first packing still
	// yields 0xA5A5A5A5 words.
	require.Equal(t, uint32(0xA5A5A5A5), binary.LittleEndian.Uint32(buf[0:]))
	require.Equal(t, uint32(0xA5A5A5A5), binary.LittleEndian.Uint32(buf[4:]))
	require.True(t, f.Empty())
	require.Empty(t, rest.Final())
}

func TestDSFLSBBitOrder(t *testing.T) {
	// 0x01 reversed is 0x80: the first sample in time is the LSB.
	audio := bytes.Repeat([]byte{0x01}, 4)
	data := buildDSF(1, 2822400, 4, 32, audio, nil)

	f, err := Open(writeTemp(t, "lsb.dsf", data), false)
	require.NoError(t, err)
	defer f.Close()

	rest, err := memoryplay.NewReadRest(f.Format())
	require.NoError(t, err)

	buf, err := f.Read(4, rest)
	require.NoError(t, err)
	require.Equal(t, uint32(0x80808080), binary.LittleEndian.Uint32(buf))
}

func TestDSFPartialTail(t *testing.T) {
	// 36 samples: one whole word plus 4 leftover bits. The second
	// block byte 0xF0 contributes the low nibble of its bit-reversed
	// value 0x0F.
	audio := append(bytes.Repeat([]byte{0xA5}, 4), 0xF0, 0, 0, 0)
	data := buildDSF(1, 2822400, 4, 36, audio, nil)

	f, err := Open(writeTemp(t, "tail.dsf", data), false)
	require.NoError(t, err)
	defer f.Close()

	rest, err := memoryplay.NewReadRest(f.Format())
	require.NoError(t, err)

	buf, err := f.Read(64, rest)
	require.NoError(t, err)
	require.Len(t, buf, 4)
	require.Equal(t, uint32(0xA5A5A5A5), binary.LittleEndian.Uint32(buf))
	require.True(t, f.Empty())
	require.Equal(t, 4, rest.BitCount())

	tail := rest.Final()
	require.Len(t, tail, 4)
	word := binary.LittleEndian.Uint32(tail)
	// Reversed 0xF0 is 0x0F; its low 4 bits ride the word's high
	// nibble over the mute fill.
	require.Equal(t, uint32(0xF0000000|0x69696969&0x0FFFFFFF), word)
}

func TestDSFBlockInterleavedChannels(t *testing.T) {
	// Two channels, block size 4: ch0's block first, then ch1's.
	audio := append(bytes.Repeat([]byte{0xFF}, 4), bytes.Repeat([]byte{0x00}, 4)...)
	data := buildDSF(2, 2822400, 4, 32, audio, nil)

	f, err := Open(writeTemp(t, "stereo.dsf", data), false)
	require.NoError(t, err)
	defer f.Close()

	rest, err := memoryplay.NewReadRest(f.Format())
	require.NoError(t, err)

	buf, err := f.Read(8, rest)
	require.NoError(t, err)
	require.Len(t, buf, 8)
	require.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(buf[0:]))
	require.Equal(t, uint32(0x00000000), binary.LittleEndian.Uint32(buf[4:]))
}

func TestDSFTrailingID3Metadata(t *testing.T) {
	tag := id3v23([2]string{"TIT2", "Slow Tide"}, [2]string{"TRCK", "4"})
	audio := make([]byte, 8)
	data := buildDSF(1, 2822400, 4, 64, audio, tag)

	f, err := Open(writeTemp(t, "meta.dsf", data), false)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, "Slow Tide", f.Title())
	require.Equal(t, 4, f.Index())

	// The metadata walk must leave the audio cursor untouched.
	rest, err := memoryplay.NewReadRest(f.Format())
	require.NoError(t, err)
	buf, err := f.Read(8, rest)
	require.NoError(t, err)
	require.Len(t, buf, 8)
}

func TestDSFRejectsBadHeader(t *testing.T) {
	data := buildDSF(1, 2822400, 4, 32, make([]byte, 4), nil)
	data[4] = 29 // corrupt the DSD chunk size
	_, err := Open(writeTemp(t, "bad.dsf", data), false)
	require.ErrorIs(t, err, memoryplay.ErrInvalidParam)
}
