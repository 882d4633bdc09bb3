// Package wav decodes the audio containers the MemoryPlay upload path
// accepts: RIFF/WAV, DSF, DSDIFF, AIFF, and M4A/ALAC metadata. Sample
// bytes come out little-endian in the declared format, optionally
// normalized to stereo signed 32-bit; DSD containers come out as
// packed DSD-over-PCM words via the reassembler.
package wav

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/famish99/memoryplayctl/internal/memoryplay"
)

// Mode identifies the container the decoder is walking.
type Mode int

const (
	ModeNone Mode = iota
	ModePCM
	ModeDSF
	ModeDFF
	ModeAIFF
	ModeM4A
)

// dffState is the resumable DSDIFF walk position: bytes left in the
// outer form, bytes left in the chunk under the cursor, and the bytes
// of sound data still readable when the walk is parked inside the
// DSD chunk (zero during a metadata walk).
type dffState struct {
	chunkSize   uint64
	currentSize uint64
	readReset   uint64
}

// File is an open audio container.
type File struct {
	f    *os.File
	path string
	mode Mode

	format     memoryplay.Format
	normFormat memoryplay.Format
	normalize  bool

	title      string
	trackIndex int

	endOfStream bool

	// PCM / AIFF state: bytes left in the current data/SSND chunk.
	pcmDataRemaining uint32

	// DSF state.
	dsdDataRemaining    uint64
	dsdSamplesRemaining uint64
	dsdBlockSize        int
	dsdChannels         int
	dsdBuffer           []byte
	dsdBufferRemaining  int

	dff dffState
}

// Open parses the container header and metadata of the named file.
// With normalizeFlag set, signed PCM under 32 bits with at most two
// channels is widened to stereo signed 32-bit at read time. Containers
// that fail structural validation produce an InvalidParam error.
func Open(path string, normalizeFlag bool) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memoryplay.ErrInvalidParam, err)
	}
	w := &File{f: f, path: path}
	if err := w.parse(normalizeFlag); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", memoryplay.ErrInvalidParam, path, err)
	}
	return w, nil
}

func (w *File) parse(normalizeFlag bool) error {
	var magic [4]byte
	if err := w.read4(&magic); err != nil {
		return err
	}

	// A leading ID3v2 tag may precede the audio magic.
	if string(magic[:3]) == "ID3" && (magic[3] == 3 || magic[3] == 4) {
		if err := w.skip(-4); err != nil {
			return err
		}
		if err := w.parseID3AtCursor(); err != nil {
			return err
		}
		if err := w.read4(&magic); err != nil {
			return err
		}
	}

	var err error
	switch string(magic[:]) {
	case "RIFF":
		err = w.openRIFF(normalizeFlag)
	case "DSD ":
		err = w.openDSF()
	case "FRM8":
		err = w.openDFF()
	case "FORM":
		err = w.openAIFF(normalizeFlag)
	default:
		err = w.openM4A(magic)
	}
	if err != nil {
		return err
	}

	w.applyFallbacks()
	return nil
}

// applyFallbacks fills the track index from leading digits of the
// title, then of the filename stem, and the title from the stem.
func (w *File) applyFallbacks() {
	stem := strings.TrimSuffix(filepath.Base(w.path), filepath.Ext(w.path))
	if w.trackIndex == 0 {
		w.trackIndex = leadingDigits(w.title)
	}
	if w.trackIndex == 0 {
		w.trackIndex = leadingDigits(stem)
	}
	if w.title == "" {
		w.title = stem
	}
}

// leadingDigits reads a 1- or 2-digit prefix, zero if absent. Strings
// shorter than two characters always yield zero.
func leadingDigits(s string) int {
	if len(s) < 2 || s[0] < '0' || s[0] > '9' {
		return 0
	}
	n := int(s[0] - '0')
	if s[1] >= '0' && s[1] <= '9' {
		n = n*10 + int(s[1]-'0')
	}
	return n
}

// setupNormalization decides whether reads convert to stereo 32-bit.
// Only narrow signed PCM with one or two channels qualifies.
func (w *File) setupNormalization(requested bool) {
	w.normFormat = w.format
	w.normalize = false
	if !requested {
		return
	}
	f := w.format
	if f.Family == memoryplay.FamilyPCMSigned && f.Bits < 32 && f.Channels <= 2 {
		w.normalize = true
		w.normFormat.Bits = 32
		w.normFormat.Channels = 2
	}
}

// Format returns the stream format reads produce: the normalized
// format when normalization is active, the declared one otherwise.
func (w *File) Format() memoryplay.Format {
	if w.normalize {
		return w.normFormat
	}
	return w.format
}

// Title returns the track title, never empty after a successful Open.
func (w *File) Title() string { return w.title }

// Index returns the 1-based track number, 0 when unknown.
func (w *File) Index() int { return w.trackIndex }

// Empty reports whether the stream has been fully consumed.
func (w *File) Empty() bool { return w.endOfStream }

// Read produces up to targetBytes of host-ready sample bytes. The
// target is measured in output units; for normalized PCM it is
// converted to source bytes before any I/O happens. DSD containers
// feed the reassembler and emit whole 32-bit word columns only.
func (w *File) Read(targetBytes int, rest *memoryplay.ReadRest) ([]byte, error) {
	switch w.mode {
	case ModePCM:
		return w.readPCM(targetBytes)
	case ModeDSF:
		return w.readDSF(targetBytes, rest)
	case ModeDFF:
		return w.readDFF(targetBytes, rest)
	case ModeAIFF:
		return w.readAIFF(targetBytes)
	default:
		return nil, fmt.Errorf("%w: container carries no readable audio", memoryplay.ErrInvalidParam)
	}
}

// Close releases the underlying file. Safe to call more than once.
func (w *File) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	w.dsdBuffer = nil
	return err
}

// scanChunk reads the next 4-byte chunk id and 32-bit size. ok is
// false at end of file.
func (w *File) scanChunk(bigEndian bool) (id [4]byte, size uint32, ok bool) {
	if err := w.read4(&id); err != nil {
		return id, 0, false
	}
	var err error
	if bigEndian {
		size, err = w.read4bytesBE()
	} else {
		size, err = w.read4bytes()
	}
	if err != nil {
		return id, 0, false
	}
	return id, size, true
}
