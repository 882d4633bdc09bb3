package wav

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// ID3v2 text encodings found in TIT2/TRCK frames.
const (
	id3EncLatin1 = 0
	id3EncUTF16  = 1
	id3EncUTF8   = 3
)

func syncsafe(b []byte) uint32 {
	return uint32(b[0])<<21 | uint32(b[1])<<14 | uint32(b[2])<<7 | uint32(b[3])
}

// parseID3AtCursor consumes a complete ID3v2 tag starting at the
// current file position, harvesting the title (TIT2) and track number
// (TRCK). Versions 2.3 and 2.4 are understood; frame sizes are
// syncsafe only in 2.4. Extended headers are not supported.
func (w *File) parseID3AtCursor() error {
	hdr, err := w.readBytes(10)
	if err != nil {
		return err
	}
	if string(hdr[:3]) != "ID3" {
		return fmt.Errorf("not an ID3v2 tag")
	}
	version := int(hdr[3])
	if version != 3 && version != 4 {
		return fmt.Errorf("unsupported ID3 version 2.%d", version)
	}
	if hdr[5]&0x40 != 0 {
		return fmt.Errorf("ID3 extended header unsupported")
	}
	return w.parseID3Frames(syncsafe(hdr[6:10]), version)
}

// parseID3Frames walks tagLen bytes of ID3v2 frames at the cursor.
// Padding (a zero frame id) or anything malformed ends the walk with
// the remainder skipped; whatever was harvested before that stands.
func (w *File) parseID3Frames(tagLen uint32, version int) error {
	for tagLen >= 10 {
		head, err := w.readBytes(10)
		if err != nil {
			return err
		}
		tagLen -= 10

		id := string(head[:4])
		if head[0] == 0 || head[0]&0x80 != 0 || head[1]&0x80 != 0 ||
			head[2]&0x80 != 0 || head[3]&0x80 != 0 {
			// Padding or desynchronized garbage.
			return w.skip(int64(tagLen))
		}

		var frameLen uint32
		if version == 4 {
			frameLen = syncsafe(head[4:8])
		} else {
			frameLen = binary.BigEndian.Uint32(head[4:8])
		}
		if frameLen > tagLen {
			return w.skip(int64(tagLen))
		}

		if (id == "TIT2" || id == "TRCK") && frameLen >= 1 {
			enc, err := w.read1byte()
			if err != nil {
				return err
			}
			body, err := w.readBytes(int(frameLen - 1))
			if err != nil {
				return err
			}
			if text, ok := decodeTextFrame(enc, body); ok {
				if id == "TIT2" {
					w.title = text
				} else {
					w.trackIndex = parseTrackNumber(text)
				}
			}
		} else if err := w.skip(int64(frameLen)); err != nil {
			return err
		}
		tagLen -= frameLen
	}
	return w.skip(int64(tagLen))
}

// decodeTextFrame converts a text frame body to UTF-8. Latin-1 bytes
// in the supported files are plain ASCII, so encodings 0 and 3 pass
// through; encoding 1 is UTF-16 with an optional BOM and full
// surrogate-pair handling.
func decodeTextFrame(enc uint8, body []byte) (string, bool) {
	switch enc {
	case id3EncLatin1, id3EncUTF8:
		return strings.TrimRight(string(body), "\x00"), true
	case id3EncUTF16:
		return decodeUTF16(body), true
	default:
		return "", false
	}
}

func decodeUTF16(b []byte) string {
	order := binary.ByteOrder(binary.LittleEndian)
	if len(b) >= 2 {
		switch {
		case b[0] == 0xFF && b[1] == 0xFE:
			b = b[2:]
		case b[0] == 0xFE && b[1] == 0xFF:
			order = binary.BigEndian
			b = b[2:]
		}
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, order.Uint16(b[i:]))
	}
	return strings.TrimRight(string(utf16.Decode(units)), "\x00")
}

// parseTrackNumber reads the leading integer of a TRCK value, which
// may carry a "/total" suffix.
func parseTrackNumber(s string) int {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
