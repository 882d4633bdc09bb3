package memoryplay

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// ackWait is the per-acknowledgement patience of the upload engine.
const ackWait = 2 * time.Second

// Source is one decoded audio stream feeding an upload. All sources of
// a single upload must share the upload's Format.
type Source interface {
	// Title returns the track tag sent after the source's audio.
	Title() string
	// Empty reports whether the source has no more audio to give.
	Empty() bool
	// Read returns up to targetBytes of host-ready sample bytes.
	// DSD sources route their bits through rest and may return
	// fewer bytes while bits sit in the accumulator. An empty
	// result means the source is drained for now.
	Read(targetBytes int, rest *ReadRest) ([]byte, error)
}

// Uploader streams decoded audio to a host over its own transient
// connection, one second at a time, each chunk gated on the host's
// acknowledgement.
type Uploader struct {
	conn          net.Conn
	recv          ReceiveBuffer
	transferCount uint64
}

// UploadAudio connects to the host and pushes every source in order,
// follows with the per-track tags and the quit sentinel, and closes
// the connection. With loop set the loop sentinel precedes quit.
func UploadAudio(hostAddress string, interfaceNumber uint32, sources []Source, format Format, loop bool) error {
	if hostAddress == "" || len(sources) == 0 {
		return fmt.Errorf("%w: host address and at least one source required", ErrInvalidParam)
	}
	formatID, err := format.ID()
	if err != nil {
		return err
	}

	conn, err := dialHost(hostAddress, interfaceNumber)
	if err != nil {
		return err
	}
	defer conn.Close()

	up := &Uploader{conn: conn}

	// Format announcement. The host does not acknowledge this one.
	if err := up.send(EncodeData(formatID[:], false)); err != nil {
		return err
	}

	rest, err := NewReadRest(format)
	if err != nil {
		return err
	}
	oneSec := format.OneSecondBytes()
	buffer := make([]byte, 0, oneSec)

	for _, src := range sources {
		for !src.Empty() {
			chunk, err := src.Read(oneSec-len(buffer), rest)
			if err != nil {
				return fmt.Errorf("%w: reading %q: %v", ErrUnknown, src.Title(), err)
			}
			if len(chunk) == 0 {
				break
			}
			buffer = append(buffer, chunk...)
			if len(buffer) >= oneSec {
				if err := up.sendChunk(formatID, buffer); err != nil {
					return err
				}
				buffer = buffer[:0]
			}
		}

		if len(buffer) > 0 {
			if err := up.sendChunk(formatID, buffer); err != nil {
				return err
			}
			buffer = buffer[:0]
		}

		if err := up.sendTag(src.Title()); err != nil {
			return err
		}
		logrus.Debugf("uploaded %q, %d chunks so far", src.Title(), up.transferCount)
	}

	if tail := rest.Final(); len(tail) > 0 {
		if err := up.sendChunk(formatID, tail); err != nil {
			return err
		}
	}

	if loop {
		if err := up.sendTag(TagLoop); err != nil {
			return err
		}
	}
	return up.sendTag(TagQuit)
}

func (u *Uploader) send(frame []byte) error {
	if _, err := u.conn.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// sendChunk sends one FormatID-prefixed audio payload and waits for
// its acknowledgement before returning.
func (u *Uploader) sendChunk(formatID FormatID, audio []byte) error {
	payload := make([]byte, 0, len(formatID)+len(audio))
	payload = append(payload, formatID[:]...)
	payload = append(payload, audio...)
	if err := u.send(EncodeData(payload, false)); err != nil {
		return err
	}
	u.transferCount++
	return u.waitForAck()
}

// sendTag sends a tag payload. Tags share the chunk counter space but
// do not advance it; the host echoes the current count back.
func (u *Uploader) sendTag(tag string) error {
	if err := u.send(EncodeData([]byte(tag), true)); err != nil {
		return err
	}
	return u.waitForAck()
}

// waitForAck reads frames until a Command frame carries a DataStack or
// DataTag header matching the current transfer count. Anything else is
// ignored. Two seconds of transport silence fail the upload.
func (u *Uploader) waitForAck() error {
	chunk := make([]byte, receiveBufferBytes)
	lastData := time.Now()

	for {
		u.conn.SetReadDeadline(time.Now().Add(waitSlice))
		n, err := u.conn.Read(chunk)
		if n > 0 {
			lastData = time.Now()
			u.recv.Append(chunk[:n])
		}
		if err != nil {
			var netErr net.Error
			if !errors.As(err, &netErr) || !netErr.Timeout() {
				return fmt.Errorf("%w: %v", ErrConnection, err)
			}
		}

		acked := false
		pollErr := u.recv.Poll(func(f Frame) error {
			if f.Kind != MessageTypeCommand || acked {
				return nil
			}
			for _, h := range ParseHeaders(f.Body) {
				if h.Key != HeaderDataStack && h.Key != HeaderDataTag {
					continue
				}
				if v, err := strconv.ParseUint(h.Value, 10, 64); err == nil && v == u.transferCount {
					acked = true
					break
				}
			}
			return nil
		})
		if pollErr != nil {
			return pollErr
		}
		if acked {
			return nil
		}
		if time.Since(lastData) >= ackWait {
			return fmt.Errorf("%w: no acknowledgement for chunk %d", ErrTimeout, u.transferCount)
		}
	}
}
