package iotproto

// handleBufferSizeRequest applies the proposed size (0 restores the
// default) and echoes it back as a BUFFER_SIZE_RESPONSE. The proposed size
// is always carried as a 4-byte big-endian value in the body, independent
// of the method's own (1-byte) BODY_LEN field width.
func (c *Conn) handleBufferSizeRequest(req *Request) {
	size := DefaultBufferSize
	if len(req.Body) == 4 {
		if n := int(getBodyLen(req.Body, 4)); n != 0 {
			size = n
		}
	}
	c.bufferSize.Store(int64(size))
	if err := c.BufferSizeResponse(req); err != nil && c.logger != nil {
		c.logger.Debug("iotproto: buffer size response write failed", "addr", c.Addr(), "error", err)
	}
}

// BufferSizeRequest proposes a new outbound fragment size; 0 restores
// DefaultBufferSize. The sender only applies the new size to its own
// outbound fragmentation once the peer's BUFFER_SIZE_RESPONSE echo arrives,
// confirming it saw and applied the proposal; desc's own OnResponse/
// OnTimeout, if set, still fire exactly as requested.
func (c *Conn) BufferSizeRequest(size uint32, desc *ResponseDescriptor) error {
	applied := int(size)
	if applied == 0 {
		applied = DefaultBufferSize
	}

	body := make([]byte, 4)
	putBodyLen(body, uint64(size))
	req := &Request{Method: BufferSizeRequest, Body: body}

	var wrapped ResponseDescriptor
	if desc != nil {
		wrapped = *desc
	}
	userOnResponse := wrapped.OnResponse
	wrapped.OnResponse = func(resp *Request) {
		c.bufferSize.Store(int64(applied))
		if userOnResponse != nil {
			userOnResponse(resp)
		}
	}
	return c.sendBareWithResponse(req, &wrapped, bufferSizeTableKey)
}

// BufferSizeResponse echoes an inbound BUFFER_SIZE_REQUEST's body.
func (c *Conn) BufferSizeResponse(req *Request) error {
	return c.send(&Request{Method: BufferSizeResponse, Body: append([]byte(nil), req.Body...)})
}
