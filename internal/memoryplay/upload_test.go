package memoryplay

import (
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memSource serves canned PCM bytes as an upload source.
type memSource struct {
	title string
	data  []byte
	pos   int
}

func (m *memSource) Title() string { return m.title }
func (m *memSource) Empty() bool   { return m.pos >= len(m.data) }

func (m *memSource) Read(targetBytes int, rest *ReadRest) ([]byte, error) {
	n := targetBytes
	if remaining := len(m.data) - m.pos; n > remaining {
		n = remaining
	}
	chunk := m.data[m.pos : m.pos+n]
	m.pos += n
	return chunk, nil
}

// uploadEvent is one frame the ack host observed.
type uploadEvent struct {
	kind uint8
	body []byte
}

// ackHost accepts one upload connection and acknowledges every data
// and tag frame after the initial format announcement, recording the
// frames it saw.
func ackHost(t *testing.T) (addr string, events <-chan uploadEvent, closeFn func()) {
	ln, err := net.Listen("tcp6", "[::1]:0")
	require.NoError(t, err)

	ch := make(chan uploadEvent, 64)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var rb ReceiveBuffer
		buf := make([]byte, 1<<16)
		sawAnnounce := false
		count := 0
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				rb.Append(buf[:n])
				rb.Poll(func(f Frame) error {
					body := make([]byte, len(f.Body))
					copy(body, f.Body)
					ch <- uploadEvent{kind: f.Kind, body: body}

					switch f.Kind {
					case MessageTypeData:
						if !sawAnnounce {
							// Format announcement: no ack.
							sawAnnounce = true
							return nil
						}
						count++
						conn.Write(EncodeHeader(HeaderDataStack, strconv.Itoa(count)))
					case MessageTypeTag:
						conn.Write(EncodeHeader(HeaderDataTag, strconv.Itoa(count)))
					}
					return nil
				})
			}
			if err != nil {
				return
			}
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("::1,%d", port), ch, func() { ln.Close() }
}

func collectEvents(t *testing.T, ch <-chan uploadEvent, n int) []uploadEvent {
	var events []uploadEvent
	for len(events) < n {
		select {
		case ev := <-ch:
			events = append(events, ev)
		case <-time.After(3 * time.Second):
			t.Fatalf("saw %d of %d expected frames", len(events), n)
		}
	}
	return events
}

func TestUploadAckPacing(t *testing.T) {
	addr, events, closeFn := ackHost(t)
	defer closeFn()

	format := Format{Family: FamilyPCMSigned, Bits: 16, Rate: 8000, Channels: 1}
	oneSec := format.OneSecondBytes()
	formatID, err := format.ID()
	require.NoError(t, err)

	// Two and a half seconds of audio: two full chunks and a flush.
	src := &memSource{title: "Test Track", data: make([]byte, oneSec*2+oneSec/2)}
	for i := range src.data {
		src.data[i] = byte(i)
	}

	err = UploadAudio(addr, 0, []Source{src}, format, false)
	require.NoError(t, err)

	// announce, chunk, chunk, flush, track tag, quit tag.
	seen := collectEvents(t, events, 6)

	require.Equal(t, uint8(MessageTypeData), seen[0].kind)
	require.Equal(t, formatID[:], seen[0].body, "announcement carries the bare format id")

	for i, want := range []int{oneSec, oneSec, oneSec / 2} {
		ev := seen[1+i]
		require.Equal(t, uint8(MessageTypeData), ev.kind)
		require.Equal(t, formatID[:], ev.body[:4], "chunk %d format prefix", i+1)
		require.Len(t, ev.body, 4+want, "chunk %d payload size", i+1)
	}

	require.Equal(t, uint8(MessageTypeTag), seen[4].kind)
	require.Equal(t, "Test Track", string(seen[4].body))
	require.Equal(t, uint8(MessageTypeTag), seen[5].kind)
	require.Equal(t, TagQuit, string(seen[5].body))
}

func TestUploadAudioBytesArriveIntact(t *testing.T) {
	addr, events, closeFn := ackHost(t)
	defer closeFn()

	format := Format{Family: FamilyPCMSigned, Bits: 16, Rate: 8000, Channels: 1}
	oneSec := format.OneSecondBytes()

	src := &memSource{title: "t", data: make([]byte, oneSec)}
	for i := range src.data {
		src.data[i] = byte(i * 7)
	}
	want := append([]byte(nil), src.data...)

	require.NoError(t, UploadAudio(addr, 0, []Source{src}, format, false))

	seen := collectEvents(t, events, 4)
	require.Equal(t, want, seen[1].body[4:])
}

func TestUploadLoopMode(t *testing.T) {
	addr, events, closeFn := ackHost(t)
	defer closeFn()

	format := Format{Family: FamilyPCMSigned, Bits: 16, Rate: 8000, Channels: 1}
	src := &memSource{title: "looped", data: make([]byte, format.OneSecondBytes())}

	require.NoError(t, UploadAudio(addr, 0, []Source{src}, format, true))

	// announce, chunk, track tag, loop tag, quit tag.
	seen := collectEvents(t, events, 5)
	require.Equal(t, TagLoop, string(seen[3].body))
	require.Equal(t, TagQuit, string(seen[4].body))
}

func TestUploadMultipleSourcesShareCounter(t *testing.T) {
	addr, events, closeFn := ackHost(t)
	defer closeFn()

	format := Format{Family: FamilyPCMSigned, Bits: 16, Rate: 8000, Channels: 1}
	oneSec := format.OneSecondBytes()

	a := &memSource{title: "A", data: make([]byte, oneSec)}
	b := &memSource{title: "B", data: make([]byte, oneSec/4)}

	require.NoError(t, UploadAudio(addr, 0, []Source{a, b}, format, false))

	// announce, chunk A, tag A, flush B, tag B, quit tag.
	seen := collectEvents(t, events, 6)
	require.Equal(t, "A", string(seen[2].body))
	require.Equal(t, uint8(MessageTypeData), seen[3].kind)
	require.Len(t, seen[3].body, 4+oneSec/4)
	require.Equal(t, "B", string(seen[4].body))
	require.Equal(t, TagQuit, string(seen[5].body))
}

func TestUploadTimesOutWithoutAcks(t *testing.T) {
	// A listener that accepts and stays silent.
	ln, err := net.Listen("tcp6", "[::1]:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1<<16)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	format := Format{Family: FamilyPCMSigned, Bits: 16, Rate: 8000, Channels: 1}
	src := &memSource{title: "t", data: make([]byte, format.OneSecondBytes())}

	port := ln.Addr().(*net.TCPAddr).Port
	err = UploadAudio(fmt.Sprintf("::1,%d", port), 0, []Source{src}, format, false)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestUploadRejectsEmptyInput(t *testing.T) {
	format := Format{Family: FamilyPCMSigned, Bits: 16, Rate: 8000, Channels: 1}
	err := UploadAudio("", 0, nil, format, false)
	require.ErrorIs(t, err, ErrInvalidParam)
}
