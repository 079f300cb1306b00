package iotproto

// Header is one key/value pair of a frame's header block. Headers are kept
// as an ordered slice, not a map, so that Encode(Decode(Encode(r))) == Encode(r)
// holds byte-for-byte even though Go map iteration order is randomized.
type Header struct {
	Key   string
	Value string
}

// Headers is an ordered collection of Header pairs.
type Headers []Header

// Get returns the value of the first header matching key (case-sensitive),
// and whether it was found.
func (h Headers) Get(key string) (string, bool) {
	for _, kv := range h {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Set appends a header pair. The protocol does not deduplicate by key.
func (h Headers) Set(key, value string) Headers {
	return append(h, Header{Key: key, Value: value})
}

// Request is one logical frame, complete or partially reassembled.
type Request struct {
	// Version is the protocol version in [1,63]. Zero means DefaultVersion.
	Version uint8
	// Method identifies the frame's purpose; see Method constants.
	Method Method
	// HasID reports whether ID is meaningful. Methods that never carry an
	// id on the wire (SIGNAL, ALIVE_*, BUFFER_SIZE_*) always report false here.
	HasID bool
	// ID is the 16-bit request identifier used to correlate a Response with
	// the Request/Streaming that solicited it.
	ID uint16
	// Path is the optional route, e.g. "/sensor/temperature".
	Path string
	// Headers is the ordered header block.
	Headers Headers
	// Body is the payload delivered with the current fragment.
	Body []byte
	// BodyLength is len(Body): bytes carried by the current fragment.
	BodyLength int
	// TotalBodyLength is the authoritative body length declared by the
	// first fragment of a multi-fragment message.
	TotalBodyLength int
	// Parts is the number of TCP writes used to send this frame (outbound)
	// or the number of fragments reassembled to build it (inbound).
	Parts int

	// Conn is a non-owning back-reference to the connection this request
	// arrived on or will be sent over. It is nil for requests built purely
	// for encode/decode testing.
	Conn *Conn
}

// version returns Version, defaulting to DefaultVersion when unset.
func (r *Request) version() uint8 {
	if r.Version == 0 {
		return DefaultVersion
	}
	return r.Version
}

// Complete reports whether every byte of the body has been delivered.
// A request with no body (BODY flag unset) is always complete.
func (r *Request) Complete() bool {
	return r.BodyLength >= r.TotalBodyLength
}

// clone returns a shallow copy suitable for storing as a pending-response
// snapshot: safe to read concurrently with further mutation of the original.
func (r *Request) clone() *Request {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Headers != nil {
		cp.Headers = append(Headers(nil), r.Headers...)
	}
	if r.Body != nil {
		cp.Body = append([]byte(nil), r.Body...)
	}
	return &cp
}
