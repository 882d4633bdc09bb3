package memoryplay

import "fmt"

// Family identifies the sample family carried by a stream.
type Family uint8

const (
	FamilyPCMSigned Family = 0
	FamilyPCMFloat  Family = 1
	FamilyDSD       Family = 2
)

// Format describes a unified sample format: family, container width,
// sample rate, channel layout, and for DSD the bit/byte orientation of
// the packed 32-bit words.
type Format struct {
	Family   Family
	Bits     int // container width: 8, 16, 24 or 32 (DSD always 32)
	Rate     int // Hz; for DSD this is the 1-bit sample rate
	Channels int

	// DSD packing options. MSB-first little-endian is what every
	// supported container resolves to; the flags exist because the
	// wire token carries them.
	DSDLSBFirst  bool
	DSDBigEndian bool
}

// FormatID is the 4-byte wire token announcing a Format. Byte layout:
// flags, container width in bits, channel count, rate code.
type FormatID [4]byte

const (
	fmtFlagFamilyMask  = 0x03
	fmtFlagDSDLSB      = 0x04
	fmtFlagDSDBig      = 0x08
	fmtFlagWordSizePos = 4 // log2(bytes per word) in bits 4-5
)

// rateCodes maps the standard PCM and DSD rates onto the single-byte
// rate code of the wire token. Order matters; codes are indices.
var rateCodes = []int{
	8000, 11025, 16000, 22050, 32000,
	44100, 48000, 88200, 96000,
	176400, 192000, 352800, 384000,
	705600, 768000,
	2822400, 5644800, 11289600, 22579200,
}

func rateCode(rate int) (byte, bool) {
	for i, r := range rateCodes {
		if r == rate {
			return byte(i), true
		}
	}
	return 0, false
}

// RateFromCode is the inverse of the rate-code lookup.
func RateFromCode(code byte) (int, bool) {
	if int(code) >= len(rateCodes) {
		return 0, false
	}
	return rateCodes[code], true
}

// Valid reports whether the format can be expressed on the wire.
func (f Format) Valid() bool {
	if f.Channels < 1 || f.Channels > 255 {
		return false
	}
	switch f.Bits {
	case 8, 16, 24, 32:
	default:
		return false
	}
	if f.Family == FamilyDSD && f.Bits != 32 {
		return false
	}
	_, ok := rateCode(f.Rate)
	return ok
}

// ID encodes the format into its wire token.
func (f Format) ID() (FormatID, error) {
	var id FormatID
	if !f.Valid() {
		return id, fmt.Errorf("%w: unrepresentable format %+v", ErrInvalidParam, f)
	}
	flags := byte(f.Family) & fmtFlagFamilyMask
	if f.DSDLSBFirst {
		flags |= fmtFlagDSDLSB
	}
	if f.DSDBigEndian {
		flags |= fmtFlagDSDBig
	}
	switch f.Bits {
	case 16:
		flags |= 1 << fmtFlagWordSizePos
	case 24, 32:
		flags |= 2 << fmtFlagWordSizePos
	}
	code, _ := rateCode(f.Rate)
	id[0] = flags
	id[1] = byte(f.Bits)
	id[2] = byte(f.Channels)
	id[3] = code
	return id, nil
}

// FrameSize returns the bytes occupied by one time sample across all
// channels. For DSD this is the size of one packed word column.
func (f Format) FrameSize() int {
	if f.Family == FamilyDSD {
		return 4 * f.Channels
	}
	return f.Bits / 8 * f.Channels
}

// OneSecondBytes returns the payload size of one second of audio.
// For DSD the rate counts 1-bit samples, eight to the byte per channel.
func (f Format) OneSecondBytes() int {
	if f.Family == FamilyDSD {
		return f.Rate / 8 * f.Channels
	}
	return f.Rate * f.FrameSize()
}

// MuteByte returns the byte pattern representing silence. Signed and
// float PCM are silent at zero; DSD silence is the alternating 0x69
// bit pattern.
func (f Format) MuteByte() byte {
	if f.Family == FamilyDSD {
		return 0x69
	}
	return 0x00
}

// IsPCM reports whether the family is one of the PCM variants.
func (f Format) IsPCM() bool {
	return f.Family == FamilyPCMSigned || f.Family == FamilyPCMFloat
}
