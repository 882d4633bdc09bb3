package wav

import (
	"encoding/binary"
	"fmt"
)

// openM4A detects and walks an ISO-BMFF (M4A/ALAC) file. The first
// four bytes, already consumed by the caller, are the leading box
// size; "ftyp" must follow. Only metadata is extracted — the audio
// payload of these containers is not decoded, so Read fails and the
// mode stays None.
func (w *File) openM4A(sizeBytes [4]byte) error {
	var boxType [4]byte
	if err := w.read4(&boxType); err != nil {
		return err
	}
	if string(boxType[:]) != "ftyp" {
		return fmt.Errorf("unrecognized container magic")
	}
	size := int64(binary.BigEndian.Uint32(sizeBytes[:]))
	if err := w.skip(size - 8); err != nil {
		return err
	}

	for {
		size, ok := w.readBoxSize()
		if !ok {
			return nil
		}
		if err := w.read4(&boxType); err != nil {
			return nil
		}
		size -= 4

		if string(boxType[:]) == "moov" {
			used, err := w.readChildM4A(size)
			if err != nil {
				return nil
			}
			size -= used
		}
		if err := w.skip(size); err != nil {
			return nil
		}
	}
}

// readBoxSize reads a box size, following the 64-bit largesize escape.
// The returned size excludes the size field itself.
func (w *File) readBoxSize() (int64, bool) {
	size32, err := w.read4bytesBE()
	if err != nil {
		return 0, false
	}
	if size32 == 1 {
		size64, err := w.read8bytesBE()
		if err != nil {
			return 0, false
		}
		return int64(size64) - 12, true
	}
	return int64(size32) - 4, true
}

// readChildM4A recursively walks container boxes down to the Apple
// item list, harvesting the title and track number. It returns how
// many bytes of the parent it consumed.
func (w *File) readChildM4A(remaining int64) (int64, error) {
	var read int64
	var kind [4]byte

	for read < remaining {
		childSize32, err := w.read4bytesBE()
		if err != nil {
			return read, err
		}
		read += 4
		childSize := int64(childSize32) - 4
		if err := w.read4(&kind); err != nil {
			return read, err
		}
		read += 4
		childSize -= 4

		switch string(kind[:]) {
		case "trak", "mdia", "minf", "stbl", "udta", "ilst":
			used, err := w.readChildM4A(childSize)
			if err != nil {
				return read, err
			}
			childSize -= used
			read += used

		case "meta":
			// Full box: a version/flags word precedes the children.
			version, err := w.read4bytesBE()
			if err != nil {
				return read, err
			}
			childSize -= 4
			read += 4
			if version == 0 {
				used, err := w.readChildM4A(childSize)
				if err != nil {
					return read, err
				}
				childSize -= used
				read += used
			}

		case "\xa9nam", "trkn":
			used, err := w.readM4AItem(string(kind[:]) == "\xa9nam", childSize)
			if err != nil {
				return read, err
			}
			childSize -= used
			read += used
		}

		if err := w.skip(childSize); err != nil {
			return read, err
		}
		read += childSize
	}
	return read, nil
}

// readM4AItem reads one ilst entry's data atom: UTF-8 text for the
// title, a 16-bit big-endian index inside the trkn payload.
func (w *File) readM4AItem(isTitle bool, itemSize int64) (int64, error) {
	var read int64
	dataSize, err := w.read4bytesBE()
	if err != nil {
		return read, err
	}
	read += 4
	var kind [4]byte
	if err := w.read4(&kind); err != nil {
		return read, err
	}
	read += 4
	if string(kind[:]) != "data" || int64(dataSize) > itemSize {
		return read, nil
	}
	payload := int64(dataSize) - 8

	// Type indicator and locale, unused.
	if _, err := w.read4bytesBE(); err != nil {
		return read, err
	}
	if _, err := w.read4bytesBE(); err != nil {
		return read, err
	}
	read += 8
	payload -= 8
	if payload < 0 {
		return read, nil
	}

	if isTitle {
		body, err := w.readBytes(int(payload))
		if err != nil {
			return read, err
		}
		read += payload
		w.title = string(body)
		return read, nil
	}

	if payload >= 4 {
		// trkn data: 2 reserved bytes, then the track number.
		trackNo, err := w.read4bytesBE()
		if err != nil {
			return read, err
		}
		read += 4
		payload -= 4
		w.trackIndex = int(trackNo & 0xFFFF)
	}
	if err := w.skip(payload); err != nil {
		return read, err
	}
	read += payload
	return read, nil
}
