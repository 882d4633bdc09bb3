package memoryplay

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPort is the MemoryPlayHost control port used when an address
// carries no explicit port.
const DefaultPort = "19640"

const (
	dialTimeout        = 5 * time.Second
	waitSlice          = 100 * time.Millisecond
	defaultReplyWait   = 500 * time.Millisecond
	currentTimeWait    = 1250 * time.Millisecond
	receiveBufferBytes = 4096
)

// dialHost opens a tcp6 connection to "IP,PORT" (port optional) with
// the interface scope attached for link-local addresses.
func dialHost(hostAddress string, interfaceNumber uint32) (net.Conn, error) {
	ip := hostAddress
	port := DefaultPort
	if i := strings.LastIndex(hostAddress, ","); i >= 0 {
		ip = hostAddress[:i]
		port = hostAddress[i+1:]
	}
	if ip == "" {
		return nil, fmt.Errorf("%w: empty host address", ErrInvalidParam)
	}
	var addr string
	if interfaceNumber != 0 {
		addr = fmt.Sprintf("[%s%%%d]:%s", ip, interfaceNumber, port)
	} else {
		addr = fmt.Sprintf("[%s]:%s", ip, port)
	}
	conn, err := net.DialTimeout("tcp6", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnection, addr, err)
	}
	return conn, nil
}

// Session is a persistent control connection to a MemoryPlay host. It
// owns the transport for its lifetime; commands are serialized.
type Session struct {
	mu        sync.Mutex
	conn      net.Conn
	recv      ReceiveBuffer
	connected bool
}

// Dial opens a control session. hostAddress is "IP" or "IP,PORT";
// interfaceNumber scopes link-local IPv6 addresses (0 for none).
func Dial(hostAddress string, interfaceNumber uint32) (*Session, error) {
	conn, err := dialHost(hostAddress, interfaceNumber)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("control session open to %s", conn.RemoteAddr())
	return &Session{conn: conn, connected: true}, nil
}

// Close shuts the session down and releases the connection.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	s.connected = false
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// Connected reports whether the session still holds a live connection.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) sendLocked(frame []byte) error {
	if !s.connected {
		return fmt.Errorf("%w: session not connected", ErrConnection)
	}
	if _, err := s.conn.Write(frame); err != nil {
		s.closeLocked()
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// receiveLocked reads frames until handle returns true for some header
// or the reply window elapses. The window restarts whenever any header
// is observed; a host that keeps talking is alive even if the awaited
// header has not arrived yet.
func (s *Session) receiveLocked(handle func(key, value string) bool, wait time.Duration) error {
	if wait == 0 {
		wait = defaultReplyWait
	}
	lastRecv := time.Now()
	chunk := make([]byte, receiveBufferBytes)
	done := false

	for {
		s.conn.SetReadDeadline(time.Now().Add(waitSlice))
		n, err := s.conn.Read(chunk)
		if n > 0 {
			s.recv.Append(chunk[:n])
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if time.Since(lastRecv) >= wait {
					return fmt.Errorf("%w: no reply within %v", ErrTimeout, wait)
				}
			} else {
				s.closeLocked()
				return fmt.Errorf("%w: %v", ErrConnection, err)
			}
		}

		pollErr := s.recv.Poll(func(f Frame) error {
			if f.Kind != MessageTypeCommand || done {
				return nil
			}
			for _, h := range ParseHeaders(f.Body) {
				lastRecv = time.Now()
				if handle(h.Key, h.Value) {
					done = true
					break
				}
			}
			return nil
		})
		if pollErr != nil {
			s.closeLocked()
			return pollErr
		}
		if done {
			return nil
		}
		if time.Since(lastRecv) >= wait {
			return fmt.Errorf("%w: no reply within %v", ErrTimeout, wait)
		}
	}
}

// ConnectTarget asks the host to attach to an output target.
func (s *Session) ConnectTarget(targetAddress string, interfaceNumber uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	value := fmt.Sprintf("%s %d", targetAddress, interfaceNumber)
	return s.sendLocked(EncodeHeader(HeaderConnect, value))
}

// Play starts or resumes playback.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(EncodeHeader(HeaderPlay, ""))
}

// Pause pauses playback.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(EncodeHeader(HeaderPause, ""))
}

// Seek moves playback by offsetSeconds relative to the current
// position. Positive offsets are sent with an explicit '+'; zero takes
// the non-positive form "0".
func (s *Session) Seek(offsetSeconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var value string
	if offsetSeconds > 0 {
		value = fmt.Sprintf("+%d", offsetSeconds)
	} else {
		value = strconv.FormatInt(offsetSeconds, 10)
	}
	return s.sendLocked(EncodeHeader(HeaderSeek, value))
}

// SeekToStart rewinds to the beginning of the playlist.
func (s *Session) SeekToStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(EncodeHeader(HeaderSeek, SeekFront))
}

// SeekAbsolute jumps to an absolute position in seconds.
func (s *Session) SeekAbsolute(positionSeconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(EncodeHeader(HeaderSeek, strconv.FormatInt(positionSeconds, 10)))
}

// Quit stops playback and detaches the host from its target.
func (s *Session) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(EncodeHeader(HeaderSeek, SeekQuit))
}

// GetPlayStatus queries the host transport state.
func (s *Session) GetPlayStatus() (PlaybackStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sendLocked(EncodeHeader(HeaderRequest, RequestStatus)); err != nil {
		return StatusDisconnected, err
	}

	status := StatusDisconnected
	err := s.receiveLocked(func(key, value string) bool {
		if key != HeaderStatus {
			return false
		}
		switch value {
		case StatusPlay:
			status = StatusPlaying
		case StatusPause:
			status = StatusPaused
		case StatusDisconnect:
			status = StatusDisconnected
		}
		return true
	}, defaultReplyWait)
	// A silent host reads as disconnected; only transport failures
	// surface to the caller.
	if err != nil && !errors.Is(err, ErrTimeout) {
		return StatusDisconnected, err
	}
	return status, nil
}

// GetCurrentTime returns the playback position in seconds, or -1 when
// the host is paused or disconnected.
func (s *Session) GetCurrentTime() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sendLocked(EncodeHeader(HeaderRequest, RequestStatus)); err != nil {
		return -1, err
	}

	var seconds int64 = -1
	err := s.receiveLocked(func(key, value string) bool {
		if key == HeaderStatus && (value == StatusDisconnect || value == StatusPause) {
			return true
		}
		if key == HeaderLastTime {
			if t, err := strconv.ParseInt(value, 10, 64); err == nil {
				seconds = t
			}
			return true
		}
		return false
	}, currentTimeWait)
	if err != nil && !errors.Is(err, ErrTimeout) {
		return -1, err
	}
	return seconds, nil
}

// GetTagList collects the host's current tag list. Tags accumulate
// until any non-Tag header arrives.
func (s *Session) GetTagList() ([]TagInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sendLocked(EncodeHeader(HeaderRequest, RequestStatus)); err != nil {
		return nil, err
	}

	var tags []TagInfo
	err := s.receiveLocked(func(key, value string) bool {
		if key == HeaderTag {
			tags = append(tags, TagInfo{Tag: value})
			return false
		}
		return true
	}, defaultReplyWait)
	// The tag stream has no terminator of its own; running out the
	// reply window with tags in hand is the normal way it ends.
	if err != nil && !errors.Is(err, ErrTimeout) {
		return nil, err
	}
	return tags, nil
}
