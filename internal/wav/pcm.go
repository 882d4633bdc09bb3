package wav

import (
	"encoding/binary"
	"fmt"

	"github.com/famish99/memoryplayctl/internal/memoryplay"
)

// openRIFF parses a RIFF/WAVE header. The cursor sits right after the
// "RIFF" magic. The fmt chunk must come first; LIST/INFO metadata is
// harvested from the sibling chunks and the cursor restored, leaving
// the data chunk to be located lazily on the first read.
func (w *File) openRIFF(normalizeFlag bool) error {
	w.mode = ModePCM
	if _, err := w.read4bytes(); err != nil { // RIFF size
		return err
	}

	head, err := w.readBytes(8)
	if err != nil {
		return err
	}
	if string(head) != "WAVEfmt " {
		return fmt.Errorf("not a WAVEfmt stream")
	}

	fmtLen, err := w.read4bytes()
	if err != nil {
		return err
	}
	if fmtLen < 16 {
		return fmt.Errorf("fmt chunk too short: %d", fmtLen)
	}

	sampleType, err := w.read2bytes()
	if err != nil {
		return err
	}
	channels, err := w.read2bytes()
	if err != nil {
		return err
	}
	if channels == 0 {
		return fmt.Errorf("zero channels")
	}
	rate, err := w.read4bytes()
	if err != nil {
		return err
	}
	if _, err := w.read4bytes(); err != nil { // bytes per second
		return err
	}
	bytesPerFrame, err := w.read2bytes()
	if err != nil {
		return err
	}
	if _, err := w.read2bytes(); err != nil { // bits
		return err
	}

	w.format.Channels = int(channels)
	w.format.Rate = int(rate)
	switch int(bytesPerFrame) / int(channels) {
	case 1:
		w.format.Family, w.format.Bits = memoryplay.FamilyPCMSigned, 8
	case 2:
		w.format.Family, w.format.Bits = memoryplay.FamilyPCMSigned, 16
	case 3:
		w.format.Family, w.format.Bits = memoryplay.FamilyPCMSigned, 24
	case 4:
		if sampleType == 3 {
			w.format.Family, w.format.Bits = memoryplay.FamilyPCMFloat, 32
		} else {
			w.format.Family, w.format.Bits = memoryplay.FamilyPCMSigned, 32
		}
	default:
		return fmt.Errorf("unsupported sample width %d bytes", int(bytesPerFrame)/int(channels))
	}

	w.setupNormalization(normalizeFlag)

	// Anything the fmt chunk carries beyond the 16 base bytes.
	if err := w.skip(int64(fmtLen - 16)); err != nil {
		return err
	}

	offset, err := w.tell()
	if err != nil {
		return err
	}
	w.scanListInfo()
	if _, err := w.f.Seek(offset, 0); err != nil {
		return err
	}
	return nil
}

// scanListInfo walks the remaining RIFF chunks collecting LIST/INFO
// metadata (INAM title, ITRK 16-bit track index). Chunk payloads are
// word-aligned; odd sizes carry a pad byte.
func (w *File) scanListInfo() {
	for {
		id, size, ok := w.scanChunk(false)
		if !ok {
			return
		}
		advance := int64(size) + int64(size&1)
		if string(id[:]) != "LIST" || size < 4 {
			if w.skip(advance) != nil {
				return
			}
			continue
		}

		var listType [4]byte
		if w.read4(&listType) != nil {
			return
		}
		remaining := int64(size) - 4
		if string(listType[:]) != "INFO" {
			if w.skip(remaining+int64(size&1)) != nil {
				return
			}
			continue
		}

		for remaining >= 8 {
			subID, subSize, ok := w.scanChunk(false)
			if !ok {
				return
			}
			remaining -= 8
			payload := int64(subSize) + int64(subSize&1)
			if payload > remaining {
				break
			}
			switch string(subID[:]) {
			case "INAM":
				body, err := w.readBytes(int(subSize))
				if err != nil {
					return
				}
				if subSize&1 == 1 && w.skip(1) != nil {
					return
				}
				w.title = cString(body)
			case "ITRK":
				body, err := w.readBytes(int(subSize))
				if err != nil {
					return
				}
				if subSize&1 == 1 && w.skip(1) != nil {
					return
				}
				if len(body) == 2 {
					w.trackIndex = int(binary.LittleEndian.Uint16(body))
				}
			default:
				if w.skip(payload) != nil {
					return
				}
			}
			remaining -= payload
		}
		if w.skip(remaining+int64(size&1)) != nil {
			return
		}
	}
}

// cString trims a buffer at its first NUL.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// readPCM returns up to targetBytes of sample data, locating the next
// data chunk first when the current one is spent. targetBytes is in
// output units; normalization converts it to source bytes before I/O.
func (w *File) readPCM(targetBytes int) ([]byte, error) {
	if w.normalize {
		targetBytes = targetBytes * w.format.FrameSize() / w.normFormat.FrameSize()
	}

	if w.pcmDataRemaining == 0 {
		found := false
		for {
			id, size, ok := w.scanChunk(false)
			if !ok {
				break
			}
			if string(id[:]) == "data" && size > 0 {
				w.pcmDataRemaining = size
				found = true
				break
			}
			if err := w.skip(int64(size) + int64(size&1)); err != nil {
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
		return nil, fmt.Errorf("short read in data chunk: %w", err)
	}
	w.pcmDataRemaining -= uint32(targetBytes)

	if w.normalize {
		buf = widenTo32Stereo(buf, w.format.Bits/8, w.format.Channels)
	}
	return buf, nil
}
