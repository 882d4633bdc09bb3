package wav

import (
	"encoding/binary"
	"io"
)

// Scalar readers over the open file. Containers here mix byte orders
// freely (RIFF and DSF are little-endian, DSDIFF and AIFF big-endian),
// so both flavors exist side by side.

func (w *File) readBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(w.f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (w *File) read4(dst *[4]byte) error {
	_, err := io.ReadFull(w.f, dst[:])
	return err
}

func (w *File) read1byte() (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(w.f, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (w *File) read2bytes() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(w.f, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func (w *File) read4bytes() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(w.f, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (w *File) read8bytes() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(w.f, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (w *File) read2bytesBE() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(w.f, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func (w *File) read4bytesBE() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(w.f, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (w *File) read8bytesBE() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(w.f, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func (w *File) skip(n int64) error {
	_, err := w.f.Seek(n, io.SeekCurrent)
	return err
}

func (w *File) tell() (int64, error) {
	return w.f.Seek(0, io.SeekCurrent)
}
