package wav

import (
	"fmt"
	"io"

	"github.com/famish99/memoryplayctl/internal/memoryplay"
)

// openDSF parses a DSF header. The cursor sits right after the "DSD "
// magic. Sample data is stored per channel in block-interleaved
// regions: within one (blockSize * channels) read, channel c's byte i
// lives at blockSize*c + i. Bits within a byte are LSB-first on disk.
func (w *File) openDSF() error {
	w.mode = ModeDSF

	chunkSize, err := w.read8bytes()
	if err != nil {
		return err
	}
	if chunkSize != 28 {
		return fmt.Errorf("DSD chunk size must be 28, got %d", chunkSize)
	}
	if _, err := w.read8bytes(); err != nil { // file size
		return err
	}
	if _, err := w.read8bytes(); err != nil { // metadata pointer
		return err
	}

	var magic [4]byte
	if err := w.read4(&magic); err != nil {
		return err
	}
	if string(magic[:]) != "fmt " {
		return fmt.Errorf("missing DSF fmt chunk")
	}
	fmtSize, err := w.read8bytes()
	if err != nil {
		return err
	}
	if fmtSize != 52 {
		return fmt.Errorf("DSF fmt size must be 52, got %d", fmtSize)
	}

	if _, err := w.read4bytes(); err != nil { // version
		return err
	}
	if _, err := w.read4bytes(); err != nil { // format id
		return err
	}
	if _, err := w.read4bytes(); err != nil { // channel type
		return err
	}
	channels, err := w.read4bytes()
	if err != nil {
		return err
	}
	rate, err := w.read4bytes()
	if err != nil {
		return err
	}
	bits, err := w.read4bytes()
	if err != nil {
		return err
	}
	if bits != 1 {
		return fmt.Errorf("DSF bits per sample must be 1, got %d", bits)
	}
	samples, err := w.read8bytes()
	if err != nil {
		return err
	}
	block, err := w.read4bytes()
	if err != nil {
		return err
	}
	if _, err := w.read4bytes(); err != nil { // reserved
		return err
	}
	if channels == 0 || channels > memoryplay.MaxDSDChannels {
		return fmt.Errorf("unsupported DSF channel count %d", channels)
	}
	if block == 0 {
		return fmt.Errorf("zero DSF block size")
	}

	w.format = memoryplay.Format{
		Family:   memoryplay.FamilyDSD,
		Bits:     32,
		Rate:     int(rate),
		Channels: int(channels),
	}
	w.normFormat = w.format

	w.dsdSamplesRemaining = samples
	w.dsdBlockSize = int(block)
	w.dsdChannels = int(channels)
	w.dsdBuffer = make([]byte, int(block)*int(channels))
	w.dsdBufferRemaining = 0
	w.dsdDataRemaining = 0

	// Metadata lives in a trailing raw ID3v2.3 tag past the audio.
	offset, err := w.tell()
	if err != nil {
		return err
	}
	w.scanDSFMetadata()
	if _, err := w.f.Seek(offset, 0); err != nil {
		return err
	}
	return nil
}

// scanDSFMetadata walks the sibling chunks looking for the ID3 tag.
// DSF chunk sizes include their own 12-byte header; the ID3 area is a
// bare tag, not a sized chunk.
func (w *File) scanDSFMetadata() {
	var id [4]byte
	for {
		if w.read4(&id) != nil {
			return
		}
		if string(id[:3]) == "ID3" {
			if w.skip(-4) != nil {
				return
			}
			w.parseID3AtCursor()
			return
		}
		size, err := w.read8bytes()
		if err != nil || size < 12 {
			return
		}
		if w.skip(int64(size-12)) != nil {
			return
		}
	}
}

// readDSF assembles up to targetBytes of 32-bit DSD-over-PCM words.
// Only whole word columns are emitted; sub-word bits stay in the
// reassembler. A trailing partial byte (<8 samples) is pushed and the
// stream marked empty; rest.Final recovers those bits later.
func (w *File) readDSF(targetBytes int, rest *memoryplay.ReadRest) ([]byte, error) {
	if targetBytes%(4*w.dsdChannels) != 0 {
		return nil, fmt.Errorf("%w: read size not word-aligned", memoryplay.ErrInvalidParam)
	}
	out := make([]byte, 0, targetBytes)
	column := make([]byte, 4*w.dsdChannels)
	var tmp [memoryplay.MaxDSDChannels]byte

	for targetBytes > 0 && !w.endOfStream {
		if w.dsdDataRemaining == 0 {
			if !w.scanDSFData() {
				w.endOfStream = true
				break
			}
		}

		if w.dsdBufferRemaining == 0 {
			blockBytes := uint64(w.dsdBlockSize) * uint64(w.dsdChannels)
			if w.dsdDataRemaining < blockBytes {
				w.endOfStream = true
				return nil, fmt.Errorf("%w: truncated DSF data chunk", memoryplay.ErrInvalidParam)
			}
			if _, err := io.ReadFull(w.f, w.dsdBuffer); err != nil {
				w.endOfStream = true
				return nil, fmt.Errorf("%w: %v", memoryplay.ErrInvalidParam, err)
			}
			w.dsdDataRemaining -= blockBytes
			w.dsdBufferRemaining = len(w.dsdBuffer)
		}

		size := targetBytes
		if size > w.dsdBufferRemaining {
			size = w.dsdBufferRemaining
		}

		for a := 0; a < size/w.dsdChannels; a++ {
			offset := (len(w.dsdBuffer) - w.dsdBufferRemaining) / w.dsdChannels

			if w.dsdSamplesRemaining < 8 {
				if w.dsdSamplesRemaining != 0 {
					for c := 0; c < w.dsdChannels; c++ {
						tmp[c] = w.dsdBuffer[w.dsdBlockSize*c+offset]
					}
					rest.PushLSB(tmp[:], int(w.dsdSamplesRemaining))
					w.dsdSamplesRemaining = 0
				}
				w.dsdBufferRemaining = 0
				w.endOfStream = true
				break
			}

			for c := 0; c < w.dsdChannels; c++ {
				tmp[c] = w.dsdBuffer[w.dsdBlockSize*c+offset]
			}
			rest.PushLSB(tmp[:], 8)

			if rest.Full(column) {
				out = append(out, column...)
				targetBytes -= len(column)
			}

			w.dsdBufferRemaining -= w.dsdChannels
			w.dsdSamplesRemaining -= 8
		}

		if w.dsdSamplesRemaining == 0 && !w.endOfStream {
			w.endOfStream = true
		}
	}
	return out, nil
}

// scanDSFData advances to the next data chunk, skipping ID3 tag areas
// and unknown chunks. It reports whether audio data was found.
func (w *File) scanDSFData() bool {
	var id [4]byte
	for {
		if w.read4(&id) != nil {
			return false
		}
		if string(id[:3]) == "ID3" {
			// A raw tag, not a sized chunk: skip it wholesale.
			hdr, err := w.readBytes(6)
			if err != nil {
				return false
			}
			if w.skip(int64(syncsafe(hdr[2:6]))) != nil {
				return false
			}
			continue
		}
		size, err := w.read8bytes()
		if err != nil || size < 12 {
			return false
		}
		if string(id[:]) == "data" {
			w.dsdDataRemaining = size - 12
			return w.dsdDataRemaining > 0
		}
		if w.skip(int64(size-12)) != nil {
			return false
		}
	}
}
