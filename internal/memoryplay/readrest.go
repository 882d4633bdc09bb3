package memoryplay

import (
	"encoding/binary"
	"fmt"
)

// MaxDSDChannels bounds the per-channel accumulator array.
const MaxDSDChannels = 32

// swapBitsTable reverses the bit order within a byte.
var swapBitsTable = [256]uint8{
	0x00, 0x80, 0x40, 0xC0, 0x20, 0xA0, 0x60, 0xE0, 0x10, 0x90, 0x50, 0xD0, 0x30, 0xB0, 0x70, 0xF0,
	0x08, 0x88, 0x48, 0xC8, 0x28, 0xA8, 0x68, 0xE8, 0x18, 0x98, 0x58, 0xD8, 0x38, 0xB8, 0x78, 0xF8,
	0x04, 0x84, 0x44, 0xC4, 0x24, 0xA4, 0x64, 0xE4, 0x14, 0x94, 0x54, 0xD4, 0x34, 0xB4, 0x74, 0xF4,
	0x0C, 0x8C, 0x4C, 0xCC, 0x2C, 0xAC, 0x6C, 0xEC, 0x1C, 0x9C, 0x5C, 0xDC, 0x3C, 0xBC, 0x7C, 0xFC,
	0x02, 0x82, 0x42, 0xC2, 0x22, 0xA2, 0x62, 0xE2, 0x12, 0x92, 0x52, 0xD2, 0x32, 0xB2, 0x72, 0xF2,
	0x0A, 0x8A, 0x4A, 0xCA, 0x2A, 0xAA, 0x6A, 0xEA, 0x1A, 0x9A, 0x5A, 0xDA, 0x3A, 0xBA, 0x7A, 0xFA,
	0x06, 0x86, 0x46, 0xC6, 0x26, 0xA6, 0x66, 0xE6, 0x16, 0x96, 0x56, 0xD6, 0x36, 0xB6, 0x76, 0xF6,
	0x0E, 0x8E, 0x4E, 0xCE, 0x2E, 0xAE, 0x6E, 0xEE, 0x1E, 0x9E, 0x5E, 0xDE, 0x3E, 0xBE, 0x7E, 0xFE,
	0x01, 0x81, 0x41, 0xC1, 0x21, 0xA1, 0x61, 0xE1, 0x11, 0x91, 0x51, 0xD1, 0x31, 0xB1, 0x71, 0xF1,
	0x09, 0x89, 0x49, 0xC9, 0x29, 0xA9, 0x69, 0xE9, 0x19, 0x99, 0x59, 0xD9, 0x39, 0xB9, 0x79, 0xF9,
	0x05, 0x85, 0x45, 0xC5, 0x25, 0xA5, 0x65, 0xE5, 0x15, 0x95, 0x55, 0xD5, 0x35, 0xB5, 0x75, 0xF5,
	0x0D, 0x8D, 0x4D, 0xCD, 0x2D, 0xAD, 0x6D, 0xED, 0x1D, 0x9D, 0x5D, 0xDD, 0x3D, 0xBD, 0x7D, 0xFD,
	0x03, 0x83, 0x43, 0xC3, 0x23, 0xA3, 0x63, 0xE3, 0x13, 0x93, 0x53, 0xD3, 0x33, 0xB3, 0x73, 0xF3,
	0x0B, 0x8B, 0x4B, 0xCB, 0x2B, 0xAB, 0x6B, 0xEB, 0x1B, 0x9B, 0x5B, 0xDB, 0x3B, 0xBB, 0x7B, 0xFB,
	0x07, 0x87, 0x47, 0xC7, 0x27, 0xA7, 0x67, 0xE7, 0x17, 0x97, 0x57, 0xD7, 0x37, 0xB7, 0x77, 0xF7,
	0x0F, 0x8F, 0x4F, 0xCF, 0x2F, 0xAF, 0x6F, 0xEF, 0x1F, 0x9F, 0x5F, 0xDF, 0x3F, 0xBF, 0x7F, 0xFF,
}

// ReadRest accumulates per-channel 1-bit DSD samples and emits packed
// 32-bit little-endian words once 32 bits per channel are available.
// Bits left over at end of stream come out of Final as one padded word
// per channel. The accumulators start mute-filled so a short first
// word, should one ever be emitted, carries silence, not junk.
type ReadRest struct {
	mute     byte
	channels int
	rest     [MaxDSDChannels]uint64
	bitCount int
}

// NewReadRest builds a reassembler for the given DSD format.
func NewReadRest(format Format) (*ReadRest, error) {
	if format.Channels < 1 || format.Channels > MaxDSDChannels {
		return nil, fmt.Errorf("%w: %d channels (max %d)", ErrInvalidParam, format.Channels, MaxDSDChannels)
	}
	r := &ReadRest{
		mute:     format.MuteByte(),
		channels: format.Channels,
	}
	fill := uint64(r.mute)
	fill |= fill<<8 | fill<<16 | fill<<24
	fill |= fill << 32
	for c := range r.rest {
		r.rest[c] = fill
	}
	return r, nil
}

// BitCount returns the bits currently buffered per channel.
func (r *ReadRest) BitCount() int { return r.bitCount }

// Channels returns the channel count the reassembler was built for.
func (r *ReadRest) Channels() int { return r.channels }

func (r *ReadRest) push(input []byte, bits int) {
	r.bitCount += bits
	mask := uint64(1)<<bits - 1
	for c := 0; c < r.channels; c++ {
		r.rest[c] = r.rest[c]<<bits | uint64(input[c])&mask
	}
}

// PushMSB pushes the low `bits` bits of one byte per channel, oldest
// sample in the most significant position.
func (r *ReadRest) PushMSB(input []byte, bits int) {
	r.push(input, bits)
}

// PushLSB bit-reverses each byte first, for containers that store the
// oldest sample in the least significant bit.
func (r *ReadRest) PushLSB(input []byte, bits int) {
	var tmp [MaxDSDChannels]byte
	for c := 0; c < r.channels; c++ {
		tmp[c] = swapBitsTable[input[c]]
	}
	r.push(tmp[:], bits)
}

// Full emits one 32-bit word per channel into out (little-endian,
// 4*channels bytes) when enough bits have accumulated. It reports
// whether a column was written.
func (r *ReadRest) Full(out []byte) bool {
	if r.bitCount < 32 {
		return false
	}
	r.bitCount -= 32
	for c := 0; c < r.channels; c++ {
		binary.LittleEndian.PutUint32(out[4*c:], uint32(r.rest[c]>>r.bitCount))
	}
	return true
}

// Final flushes a trailing partial word. The result is empty when the
// stream ended on a word boundary; otherwise it is one 4*channels-byte
// column with the leftover bits in the high end and mute fill below.
func (r *ReadRest) Final() []byte {
	if r.bitCount == 0 {
		return nil
	}
	out := make([]byte, 4*r.channels)
	muteWord := uint32(r.mute)
	muteWord |= muteWord<<8 | muteWord<<16 | muteWord<<24
	shift := uint(32 - r.bitCount)
	lowMask := uint32(1)<<shift - 1
	for c := 0; c < r.channels; c++ {
		word := muteWord&lowMask | uint32(r.rest[c])<<shift
		binary.LittleEndian.PutUint32(out[4*c:], word)
	}
	r.bitCount = 0
	return out
}
