package memoryplay

// ReceiveBuffer assembles frames from a byte stream. Bytes are appended
// as they arrive; Poll peels as many complete frames as are present and
// drops them from the front.
type ReceiveBuffer struct {
	buf []byte
}

// Append adds raw bytes read from the transport.
func (r *ReceiveBuffer) Append(p []byte) {
	r.buf = append(r.buf, p...)
}

// Len returns the number of buffered, not yet consumed bytes.
func (r *ReceiveBuffer) Len() int { return len(r.buf) }

// Poll invokes handle for every complete frame in the buffer, in
// arrival order, consuming them. It stops early if the handler returns
// an error. Command frame bodies can be parsed with ParseHeaders.
func (r *ReceiveBuffer) Poll(handle func(Frame) error) error {
	for {
		frame, advance, ok, err := TryPeel(r.buf)
		if err != nil {
			return err
		}
		if !ok {
			// Keep leftover bytes for the next append.
			return nil
		}
		if err := handle(frame); err != nil {
			r.buf = r.buf[advance:]
			return err
		}
		r.buf = r.buf[advance:]
	}
}

// ParseHeaders splits a Command frame body into ordered key=value
// pairs. '\r' and '\n' both terminate a line; the first '=' separates
// key from value; pairs with empty keys are dropped; a trailing line
// without a terminator still yields its pair.
func ParseHeaders(body []byte) []Header {
	var headers []Header
	var key, value []byte
	inValue := false

	flush := func() {
		if len(key) > 0 {
			headers = append(headers, Header{Key: string(key), Value: string(value)})
		}
		key = key[:0]
		value = value[:0]
		inValue = false
	}

	for _, c := range body {
		switch {
		case c == '\r' || c == '\n':
			flush()
		case !inValue && c == '=':
			inValue = true
		case !inValue:
			key = append(key, c)
		default:
			value = append(value, c)
		}
	}
	flush()
	return headers
}
