package wav

import (
	"fmt"
	"math"

	"github.com/famish99/memoryplayctl/internal/memoryplay"
)

// openAIFF parses a FORM/AIFF header. The cursor sits right after the
// "FORM" magic. The COMM chunk must come first; samples in SSND are
// big-endian on disk and byte-swapped at read time.
func (w *File) openAIFF(normalizeFlag bool) error {
	w.mode = ModeAIFF

	if _, err := w.read4bytesBE(); err != nil { // form size
		return err
	}
	formType, err := w.read4bytesBE()
	if err != nil {
		return err
	}
	commonID, err := w.read4bytesBE()
	if err != nil {
		return err
	}
	commonSize, err := w.read4bytesBE()
	if err != nil {
		return err
	}
	if formType != 0x41494646 || commonID != 0x434F4D4D { // "AIFF", "COMM"
		return fmt.Errorf("missing AIFF common chunk")
	}
	if commonSize < 18 {
		return fmt.Errorf("short COMM chunk: %d", commonSize)
	}

	channels, err := w.read2bytesBE()
	if err != nil {
		return err
	}
	if _, err := w.read4bytesBE(); err != nil { // frame count
		return err
	}
	bits, err := w.read2bytesBE()
	if err != nil {
		return err
	}
	rateExp, err := w.read2bytesBE()
	if err != nil {
		return err
	}
	rateFrac, err := w.read8bytesBE()
	if err != nil {
		return err
	}
	if err := w.skip(int64(commonSize - 18)); err != nil {
		return err
	}

	switch bits {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported AIFF bit depth %d", bits)
	}
	if channels == 0 {
		return fmt.Errorf("zero channels")
	}

	w.format = memoryplay.Format{
		Family:   memoryplay.FamilyPCMSigned,
		Bits:     int(bits),
		Rate:     decodeExtendedRate(rateExp, rateFrac),
		Channels: int(channels),
	}
	w.setupNormalization(normalizeFlag)

	offset, err := w.tell()
	if err != nil {
		return err
	}
	w.scanAIFFMetadata()
	if _, err := w.f.Seek(offset, 0); err != nil {
		return err
	}
	return nil
}

// decodeExtendedRate converts the COMM 80-bit extended float sample
// rate (2-byte sign+exponent, 8-byte mantissa) to integer Hz.
func decodeExtendedRate(exp uint16, frac uint64) int {
	if frac == 0 {
		return 0
	}
	e := int(exp&0x7FFF) - 16383
	return int(math.Ldexp(float64(frac), e-63))
}

// scanAIFFMetadata walks the sibling chunks for an embedded ID3 tag.
func (w *File) scanAIFFMetadata() {
	for {
		id, size, ok := w.scanChunk(true)
		if !ok {
			return
		}
		if string(id[:]) != "ID3 " {
			if w.skip(int64(size)) != nil {
				return
			}
			continue
		}

		start, err := w.tell()
		if err != nil {
			return
		}
		w.parseID3AtCursor()
		pos, err := w.tell()
		if err != nil {
			return
		}
		if used := pos - start; used < int64(size) {
			if w.skip(int64(size)-used) != nil {
				return
			}
		}
	}
}

// readAIFF returns up to targetBytes of sample data, byte-swapped to
// little-endian. targetBytes is in output units when normalizing.
func (w *File) readAIFF(targetBytes int) ([]byte, error) {
	if w.normalize {
		targetBytes = targetBytes * w.format.FrameSize() / w.normFormat.FrameSize()
	}

	if w.pcmDataRemaining == 0 {
		found := false
		for {
			id, size, ok := w.scanChunk(true)
			if !ok {
				break
			}
			if string(id[:]) == "SSND" && size > 8 {
				// Skip the chunk's offset and block size fields.
				if err := w.skip(8); err != nil {
					break
				}
				w.pcmDataRemaining = size - 8
				found = true
				break
			}
			if err := w.skip(int64(size)); err != nil {
				break
			}
		}
		if !found {
			w.endOfStream = true
			return nil, nil
		}
	}

	if targetBytes > int(w.pcmDataRemaining) {
		targetBytes = int(w.pcmDataRemaining)
	}
	buf, err := w.readBytes(targetBytes)
	if err != nil {
		return nil, fmt.Errorf("short read in SSND chunk: %w", err)
	}
	w.pcmDataRemaining -= uint32(targetBytes)

	swapSampleBytes(buf, w.format.Bits/8)

	if w.normalize {
		buf = widenTo32Stereo(buf, w.format.Bits/8, w.format.Channels)
	}
	return buf, nil
}

// swapSampleBytes reverses each width-sized sample in place. Width 1
// needs no swap.
func swapSampleBytes(buf []byte, width int) {
	if width < 2 {
		return
	}
	for i := 0; i+width <= len(buf); i += width {
		for a, b := i, i+width-1; a < b; a, b = a+1, b-1 {
			buf[a], buf[b] = buf[b], buf[a]
		}
	}
}
