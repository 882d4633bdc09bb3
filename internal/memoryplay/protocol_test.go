package memoryplay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandFrameRoundTrip(t *testing.T) {
	frame := EncodeHeader("Play", "")
	require.Len(t, frame, PayloadHeaderSize+HeadersHeaderSize+len("Play=\r\n"))

	peeled, advance, ok, err := TryPeel(frame)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, len(frame), advance)
	require.Equal(t, uint8(MessageTypeCommand), peeled.Kind)
	require.Equal(t, "Play=\r\n", string(peeled.Body))
}

func TestDataFrameRoundTrip(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01}
	frame := EncodeData(payload, false)

	peeled, advance, ok, err := TryPeel(frame)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, len(frame), advance)
	require.Equal(t, uint8(MessageTypeData), peeled.Kind)
	require.Equal(t, payload, peeled.Body)
}

func TestTagFrameKind(t *testing.T) {
	frame := EncodeData([]byte("Some Title"), true)
	peeled, _, ok, err := TryPeel(frame)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint8(MessageTypeTag), peeled.Kind)
	require.Equal(t, "Some Title", string(peeled.Body))
}

func TestTryPeelShortBuffer(t *testing.T) {
	frame := EncodeHeader("Request", "Status")

	for cut := 0; cut < len(frame); cut++ {
		_, _, ok, err := TryPeel(frame[:cut])
		require.NoError(t, err, "cut=%d", cut)
		require.False(t, ok, "cut=%d", cut)
	}
}

func TestTryPeelUnknownKindFatal(t *testing.T) {
	head := PayloadHeader{Length: 1, Type: 7}
	frame := append(head.Encode(), 0)
	_, _, _, err := TryPeel(frame)
	require.ErrorIs(t, err, ErrConnection)
}

func TestPayloadHeaderEncoding(t *testing.T) {
	h := PayloadHeader{Length: 0x012345, Type: 2, Flags: 0x80, Identifier: 0xAABBCCDD}
	buf := h.Encode()
	require.Equal(t, []byte{0x01, 0x23, 0x45, 0x02, 0x80, 0xAA, 0xBB, 0xCC, 0xDD}, buf)

	back, err := DecodePayloadHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, back)
}

func TestReceiveBufferDrainsMultipleFrames(t *testing.T) {
	var stream []byte
	stream = append(stream, EncodeHeader("Status", "Play")...)
	stream = append(stream, EncodeData([]byte{1, 2, 3}, false)...)
	stream = append(stream, EncodeHeader("LastTime", "9")...)

	var rb ReceiveBuffer
	var kinds []uint8

	// Feed byte by byte; frames must come out whole and in order.
	for _, b := range stream {
		rb.Append([]byte{b})
		err := rb.Poll(func(f Frame) error {
			kinds = append(kinds, f.Kind)
			return nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, []uint8{MessageTypeCommand, MessageTypeData, MessageTypeCommand}, kinds)
	require.Zero(t, rb.Len())
}

func TestParseHeaders(t *testing.T) {
	body := []byte("Status=Play\r\nLastTime=42\nTag=01:00:First\rTag=02:30:Second")
	headers := ParseHeaders(body)
	require.Equal(t, []Header{
		{"Status", "Play"},
		{"LastTime", "42"},
		{"Tag", "01:00:First"},
		{"Tag", "02:30:Second"},
	}, headers)
}

func TestParseHeadersEdgeCases(t *testing.T) {
	// Empty keys are dropped, empty values kept, '=' optional.
	headers := ParseHeaders([]byte("=orphan\r\nPlay=\r\nBare\r\n\r\n"))
	require.Equal(t, []Header{
		{"Play", ""},
		{"Bare", ""},
	}, headers)

	require.Empty(t, ParseHeaders(nil))
}
