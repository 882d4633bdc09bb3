package wav

import "encoding/binary"

// widenTo32Stereo rewrites narrow signed little-endian PCM as stereo
// signed 32-bit: each sample is left-justified into a 32-bit word and
// mono input is duplicated onto both channels. Input with two channels
// is widened in place order. src length must be a multiple of width.
func widenTo32Stereo(src []byte, width, channels int) []byte {
	sampleCount := len(src) / width
	copies := 1
	if channels == 1 {
		copies = 2
	}
	out := make([]byte, sampleCount*4*copies)

	for i := 0; i < sampleCount; i++ {
		var word uint32
		switch width {
		case 1:
			word = uint32(src[i]) << 24
		case 2:
			word = uint32(binary.LittleEndian.Uint16(src[i*2:])) << 16
		case 3:
			word = uint32(src[i*3])<<8 | uint32(src[i*3+1])<<16 | uint32(src[i*3+2])<<24
		}
		for c := 0; c < copies; c++ {
			binary.LittleEndian.PutUint32(out[(i*copies+c)*4:], word)
		}
	}
	return out
}
