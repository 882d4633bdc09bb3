package wav

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWidenMono8(t *testing.T) {
	out := widenTo32Stereo([]byte{0x7F}, 1, 1)
	require.Equal(t, []byte{0, 0, 0, 0x7F, 0, 0, 0, 0x7F}, out)
}

func TestWidenMono16(t *testing.T) {
	out := widenTo32Stereo([]byte{0x34, 0x12}, 2, 1)
	require.Equal(t, []byte{0, 0, 0x34, 0x12, 0, 0, 0x34, 0x12}, out)
}

func TestWidenMono24(t *testing.T) {
	out := widenTo32Stereo([]byte{0x56, 0x34, 0x12}, 3, 1)
	require.Equal(t, []byte{0, 0x56, 0x34, 0x12, 0, 0x56, 0x34, 0x12}, out)
}

func TestWidenStereo16KeepsChannelOrder(t *testing.T) {
	// Left 0x1111, right 0x2222: no duplication, order preserved.
	out := widenTo32Stereo([]byte{0x11, 0x11, 0x22, 0x22}, 2, 2)
	require.Equal(t, []byte{0, 0, 0x11, 0x11, 0, 0, 0x22, 0x22}, out)
}

func TestSwapSampleBytes(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	swapSampleBytes(buf, 2)
	require.Equal(t, []byte{2, 1, 4, 3}, buf)

	buf = []byte{1, 2, 3, 4, 5, 6}
	swapSampleBytes(buf, 3)
	require.Equal(t, []byte{3, 2, 1, 6, 5, 4}, buf)

	buf = []byte{1, 2, 3, 4}
	swapSampleBytes(buf, 4)
	require.Equal(t, []byte{4, 3, 2, 1}, buf)

	buf = []byte{9}
	swapSampleBytes(buf, 1)
	require.Equal(t, []byte{9}, buf)
}
