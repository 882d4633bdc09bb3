package memoryplay

import (
	"encoding/binary"
	"fmt"
)

// Message types carried in the payload header.
const (
	MessageTypeData    = 0 // audio data
	MessageTypeCommand = 1 // key=value control headers
	MessageTypeTag     = 2 // UTF-8 tag string
)

// Wire header sizes.
const (
	PayloadHeaderSize = 9 // 3-byte length + type + flags + 4-byte identifier
	DataHeaderSize    = 1 // 1-byte pad
	HeadersHeaderSize = 6 // 1-byte pad + 4-byte dependency + 1-byte weight
)

// Control headers (client -> host).
const (
	HeaderRequest = "Request"
	HeaderConnect = "Connect"
	HeaderSeek    = "Seek"
	HeaderPlay    = "Play"
	HeaderPause   = "Pause"

	RequestTargetList = "TargetList"
	RequestStatus     = "Status"

	SeekFront = "Front"
	SeekQuit  = "Quit"
)

// Response headers (host -> client).
const (
	HeaderStatus     = "Status"
	HeaderTargetList = "TargetList"
	HeaderTag        = "Tag"
	HeaderLastTime   = "LastTime"
	HeaderDataStack  = "DataStack"
	HeaderDataTag    = "DataTag"

	StatusPlay       = "Play"
	StatusPause      = "Pause"
	StatusDisconnect = "Disconnect"
)

// Stream-control tag sentinels.
const (
	TagLoop = "@@Diretta-TAG-LOOP@@"
	TagQuit = "@@Diretta-TAG-QUIT@@"
)

// PayloadHeader is the 9-byte frame header. Length covers everything
// after the header up to the next frame. All fields big-endian.
type PayloadHeader struct {
	Length     uint32 // 24-bit on the wire
	Type       uint8
	Flags      uint8
	Identifier uint32
}

// Encode serializes the header into wire form.
func (h PayloadHeader) Encode() []byte {
	buf := make([]byte, PayloadHeaderSize)
	buf[0] = byte(h.Length >> 16)
	buf[1] = byte(h.Length >> 8)
	buf[2] = byte(h.Length)
	buf[3] = h.Type
	buf[4] = h.Flags
	binary.BigEndian.PutUint32(buf[5:9], h.Identifier)
	return buf
}

// DecodePayloadHeader reads a PayloadHeader from the front of data.
func DecodePayloadHeader(data []byte) (PayloadHeader, error) {
	if len(data) < PayloadHeaderSize {
		return PayloadHeader{}, fmt.Errorf("%w: short payload header", ErrConnection)
	}
	return PayloadHeader{
		Length:     uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2]),
		Type:       data[3],
		Flags:      data[4],
		Identifier: binary.BigEndian.Uint32(data[5:9]),
	}, nil
}

// EncodeData builds a complete Data (or Tag) frame: payload header,
// 1-byte pad sub-header, then the payload bytes.
func EncodeData(payload []byte, tag bool) []byte {
	msgType := uint8(MessageTypeData)
	if tag {
		msgType = MessageTypeTag
	}
	head := PayloadHeader{
		Length: uint32(DataHeaderSize + len(payload)),
		Type:   msgType,
	}
	out := make([]byte, 0, PayloadHeaderSize+DataHeaderSize+len(payload))
	out = append(out, head.Encode()...)
	out = append(out, 0) // pad
	out = append(out, payload...)
	return out
}

// Header is one key=value control pair. Order is significant and
// duplicate keys are legal, so frames carry a slice, never a map.
type Header struct {
	Key   string
	Value string
}

// EncodeHeaders builds a complete Command frame: payload header, 6-byte
// zeroed sub-header, then ASCII "key=value\r\n" lines. Keys and values
// must not contain '=', '\r' or '\n'; the protocol does not escape.
func EncodeHeaders(headers []Header) []byte {
	bodyLen := 0
	for _, h := range headers {
		bodyLen += len(h.Key) + len(h.Value) + 3
	}
	head := PayloadHeader{
		Length: uint32(HeadersHeaderSize + bodyLen),
		Type:   MessageTypeCommand,
	}
	out := make([]byte, 0, PayloadHeaderSize+HeadersHeaderSize+bodyLen)
	out = append(out, head.Encode()...)
	out = append(out, make([]byte, HeadersHeaderSize)...) // pad, dependency, weight all zero
	for _, h := range headers {
		out = append(out, h.Key...)
		out = append(out, '=')
		out = append(out, h.Value...)
		out = append(out, '\r', '\n')
	}
	return out
}

// EncodeHeader builds a Command frame carrying a single pair.
func EncodeHeader(key, value string) []byte {
	return EncodeHeaders([]Header{{Key: key, Value: value}})
}

// Frame is one peeled frame: its kind and the body after the kind's
// sub-header. The body aliases the receive buffer and is only valid
// until the buffer advances.
type Frame struct {
	Kind uint8
	Body []byte
}

// TryPeel attempts to extract one whole frame from the front of buf.
// It returns the frame, the number of bytes the caller must drop from
// the front, and ok=false when more bytes are needed. A frame kind
// outside 0..2 is a protocol violation and fails hard; the connection
// cannot be resynchronized after one.
func TryPeel(buf []byte) (Frame, int, bool, error) {
	if len(buf) < PayloadHeaderSize {
		return Frame{}, 0, false, nil
	}
	head, err := DecodePayloadHeader(buf)
	if err != nil {
		return Frame{}, 0, false, err
	}
	total := PayloadHeaderSize + int(head.Length)
	if len(buf) < total {
		return Frame{}, 0, false, nil
	}
	body := buf[PayloadHeaderSize:total]
	switch head.Type {
	case MessageTypeData, MessageTypeTag:
		if len(body) < DataHeaderSize {
			return Frame{}, 0, false, fmt.Errorf("%w: data frame shorter than sub-header", ErrConnection)
		}
		return Frame{Kind: head.Type, Body: body[DataHeaderSize:]}, total, true, nil
	case MessageTypeCommand:
		if len(body) < HeadersHeaderSize {
			return Frame{}, 0, false, fmt.Errorf("%w: command frame shorter than sub-header", ErrConnection)
		}
		return Frame{Kind: head.Type, Body: body[HeadersHeaderSize:]}, total, true, nil
	default:
		return Frame{}, 0, false, fmt.Errorf("%w: unknown frame type %d", ErrConnection, head.Type)
	}
}
