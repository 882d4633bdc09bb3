package wav

import (
	"fmt"
	"io"

	"github.com/famish99/memoryplayctl/internal/memoryplay"
)

// openDFF parses a DSDIFF form. The cursor sits right after the
// "FRM8" magic. The whole form is walked once up front with a skipping
// reader to collect PROP (rate, channels) and ID3 metadata; the walk
// state is then rewound so reads stream the DSD chunk from the top.
func (w *File) openDFF() error {
	chunkSize, err := w.read8bytesBE()
	if err != nil {
		return err
	}
	var formType [4]byte
	if err := w.read4(&formType); err != nil {
		return err
	}
	if string(formType[:]) != "DSD " {
		return fmt.Errorf("DSDIFF form type %q not supported", formType)
	}

	w.dff = dffState{chunkSize: chunkSize - 4}
	backup := w.dff

	// Metadata pass: skip through the sound data, read everything else.
	finished := false
	skipAll := func(remaining *uint64) error {
		if *remaining == 0 {
			finished = true
			return nil
		}
		if err := w.skip(int64(*remaining)); err != nil {
			return err
		}
		*remaining = 0
		return nil
	}
	for !finished {
		if err := w.readDFFChunk(skipAll); err != nil {
			return err
		}
	}
	if w.format.Rate == 0 || w.format.Channels == 0 {
		return fmt.Errorf("DSDIFF form lacks FS/CHNL properties")
	}
	if w.format.Channels > memoryplay.MaxDSDChannels {
		return fmt.Errorf("unsupported DSDIFF channel count %d", w.format.Channels)
	}

	w.format.Family = memoryplay.FamilyDSD
	w.format.Bits = 32
	w.normFormat = w.format
	w.mode = ModeDFF

	// Back to the first chunk inside the form.
	if _, err := w.f.Seek(4+8+4, 0); err != nil {
		return err
	}
	w.dff = backup
	return nil
}

// processDFF hands the parked sound-data region to the consumer and
// accounts for whatever it took.
func (w *File) processDFF(consume func(remaining *uint64) error) error {
	original := w.dff.readReset
	if err := consume(&w.dff.readReset); err != nil {
		return err
	}
	used := original - w.dff.readReset
	w.dff.currentSize -= used
	w.dff.chunkSize -= used
	return nil
}

// readDFFChunk resumes the form walk. When the walk is parked inside
// the DSD chunk the consumer is fed directly; otherwise chunks are
// walked (collecting metadata on the open pass) until sound data or
// the end of the form is reached. At the end the consumer is invoked
// once with zero remaining so it can observe end of stream.
func (w *File) readDFFChunk(consume func(remaining *uint64) error) error {
	st := &w.dff
	if st.readReset != 0 {
		return w.processDFF(consume)
	}

	var id [4]byte
	for st.chunkSize > 0 {
		if err := w.read4(&id); err != nil {
			break
		}
		st.chunkSize -= 4
		if st.chunkSize < 8 {
			return fmt.Errorf("truncated DSDIFF chunk header")
		}
		size, err := w.read8bytesBE()
		if err != nil {
			return err
		}
		st.currentSize = size
		st.chunkSize -= 8
		if st.chunkSize < st.currentSize {
			return fmt.Errorf("DSDIFF chunk %q overruns form", id)
		}

		switch string(id[:]) {
		case "FVER":
			if st.currentSize < 4 {
				return fmt.Errorf("short FVER chunk")
			}
			if _, err := w.read4bytesBE(); err != nil { // version, discarded
				return err
			}
			st.currentSize -= 4
			st.chunkSize -= 4

		case "PROP":
			if err := w.readDFFProp(); err != nil {
				return err
			}

		case "DSD ":
			st.readReset = st.currentSize
			if st.readReset != 0 {
				return w.processDFF(consume)
			}

		case "ID3 ":
			w.readDFFID3()

		default:
			// COMT, DIIN, DST , MANF and anything unknown.
		}

		if err := w.skip(int64(st.currentSize)); err != nil {
			return err
		}
		st.chunkSize -= st.currentSize
		st.currentSize = 0
	}

	st.currentSize = 0
	return consume(&st.currentSize)
}

// readDFFProp walks a PROP container, picking up the sample rate
// (FS  ) and channel count (CHNL) and skipping the rest.
func (w *File) readDFFProp() error {
	st := &w.dff
	if st.currentSize < 4 {
		return fmt.Errorf("short PROP chunk")
	}
	var propType [4]byte
	if err := w.read4(&propType); err != nil { // "SND "
		return err
	}
	st.currentSize -= 4
	st.chunkSize -= 4

	var id [4]byte
	for st.currentSize > 0 {
		if err := w.read4(&id); err != nil {
			break
		}
		st.chunkSize -= 4
		st.currentSize -= 4
		if st.chunkSize < 8 || st.currentSize < 8 {
			return fmt.Errorf("truncated PROP sub-chunk")
		}
		size, err := w.read8bytesBE()
		if err != nil {
			return err
		}
		st.chunkSize -= 8
		st.currentSize -= 8
		if st.currentSize < size {
			return fmt.Errorf("PROP sub-chunk %q overruns container", id)
		}

		switch string(id[:]) {
		case "FS  ":
			if size < 4 {
				return fmt.Errorf("short FS chunk")
			}
			rate, err := w.read4bytesBE()
			if err != nil {
				return err
			}
			size -= 4
			st.currentSize -= 4
			st.chunkSize -= 4
			w.format.Rate = int(rate)

		case "CHNL":
			if size < 2 {
				return fmt.Errorf("short CHNL chunk")
			}
			ch, err := w.read2bytesBE()
			if err != nil {
				return err
			}
			size -= 2
			st.currentSize -= 2
			st.chunkSize -= 2
			w.format.Channels = int(ch)
		}

		if err := w.skip(int64(size)); err != nil {
			return err
		}
		st.chunkSize -= size
		st.currentSize -= size
	}
	return nil
}

// readDFFID3 parses an embedded ID3 chunk. Failures here lose
// metadata, never the stream; the caller skips whatever is left of
// the chunk either way.
func (w *File) readDFFID3() {
	st := &w.dff
	start, err := w.tell()
	if err != nil {
		return
	}
	if w.parseID3AtCursor() != nil {
		// Rewind so the caller's skip covers the whole chunk.
		if pos, err2 := w.tell(); err2 == nil {
			w.skip(start - pos)
		}
		return
	}
	pos, err := w.tell()
	if err != nil {
		return
	}
	used := uint64(pos - start)
	if used > st.currentSize {
		used = st.currentSize
	}
	st.currentSize -= used
	st.chunkSize -= used
}

// readDFF streams interleaved DSD bytes (one byte per channel per
// column) out of the DSD chunk through the reassembler, emitting
// whole 32-bit word columns.
func (w *File) readDFF(targetBytes int, rest *memoryplay.ReadRest) ([]byte, error) {
	ch := w.format.Channels
	var out []byte

	consume := func(remaining *uint64) error {
		if *remaining == 0 {
			w.endOfStream = true
			return nil
		}
		if *remaining%uint64(ch) != 0 {
			return fmt.Errorf("%w: DSDIFF sound data not channel-aligned", memoryplay.ErrInvalidParam)
		}
		if targetBytes%(ch*4) != 0 {
			return fmt.Errorf("%w: read size not word-aligned", memoryplay.ErrInvalidParam)
		}
		take := uint64(targetBytes)
		if *remaining < take {
			take = *remaining
		}

		raw := make([]byte, take)
		if _, err := io.ReadFull(w.f, raw); err != nil {
			return fmt.Errorf("%w: %v", memoryplay.ErrInvalidParam, err)
		}

		out = make([]byte, 0, take)
		column := make([]byte, 4*ch)
		for a := 0; a < int(take)/ch; a++ {
			rest.PushMSB(raw[a*ch:], 8)
			if rest.Full(column) {
				out = append(out, column...)
			}
		}
		*remaining -= take
		return nil
	}

	if err := w.readDFFChunk(consume); err != nil {
		return nil, err
	}
	return out, nil
}
