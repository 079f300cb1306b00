// Package iotproto implements the binary request/response protocol used to
// talk to IoT-class devices over TCP or TLS: a two-byte-minimum framed
// format with optional id/path/headers/body, in-flight request tracking,
// keep-alive, and buffer-size negotiation.
package iotproto

import "time"

// Method identifies the purpose of a frame. Values occupy the top six bits
// of the LSCB (least significant control byte), so they range 1..63.
type Method uint8

const (
	// Signal is a one-shot frame with no expected response.
	Signal Method = 1
	// Request expects a matching Response frame.
	MethodRequest Method = 2
	// Response answers a Request or Streaming frame by id.
	Response Method = 3
	// Streaming is a Request variant whose body may be very large
	// (up to 2^32-1 bytes) and is sent across multiple fragments.
	Streaming Method = 4
	// AliveRequest is the keep-alive probe; carries no id, path, headers or body.
	AliveRequest Method = 5
	// AliveResponse answers an AliveRequest; carries no id, path, headers or body.
	AliveResponse Method = 6
	// BufferSizeRequest proposes a new outbound fragment size.
	BufferSizeRequest Method = 7
	// BufferSizeResponse echoes a BufferSizeRequest's body, confirming it.
	BufferSizeResponse Method = 8
)

func (m Method) String() string {
	switch m {
	case Signal:
		return "SIGNAL"
	case MethodRequest:
		return "REQUEST"
	case Response:
		return "RESPONSE"
	case Streaming:
		return "STREAMING"
	case AliveRequest:
		return "ALIVE_REQUEST"
	case AliveResponse:
		return "ALIVE_RESPONSE"
	case BufferSizeRequest:
		return "BUFFER_SIZE_REQUEST"
	case BufferSizeResponse:
		return "BUFFER_SIZE_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// hasID reports whether frames of this method carry a 16-bit id on the wire.
// Signal never expects a response, so it needs no id to correlate one; ALIVE_*
// and BUFFER_SIZE_* exchanges are matched by position instead.
func (m Method) hasID() bool {
	switch m {
	case MethodRequest, Response, Streaming:
		return true
	default:
		return false
	}
}

// bodyLenWidth returns the width, in bytes, of the BODY_LEN field for this
// method, or 0 if the method never carries a body (ALIVE_*).
func (m Method) bodyLenWidth() int {
	switch m {
	case Signal, BufferSizeRequest, BufferSizeResponse:
		return 1
	case MethodRequest, Response:
		return 2
	case Streaming:
		return 4
	default:
		return 0
	}
}

// maxBodyLen returns the largest body this method may carry.
func (m Method) maxBodyLen() int64 {
	switch m.bodyLenWidth() {
	case 1:
		return 1<<8 - 1
	case 2:
		return 1<<16 - 1
	case 4:
		return 1<<32 - 1
	default:
		return 0
	}
}

// Wire-level constants.
const (
	// ETX terminates a path or a header key/value on the wire.
	ETX byte = 0x03
	// RS separates a header key from its value on the wire.
	RS byte = 0x1E

	// MSCBFlagPath marks bit 0 of the MSCB: a path follows the optional id.
	MSCBFlagPath byte = 0x01
	// MSCBFlagID marks bit 1 of the MSCB: a 16-bit id follows the MSCB/LSCB pair.
	MSCBFlagID byte = 0x02

	// LSCBFlagBody marks bit 0 of the LSCB: a BODY_LEN + body follow.
	LSCBFlagBody byte = 0x01
	// LSCBFlagHeader marks bit 1 of the LSCB: a header count + pairs follow.
	LSCBFlagHeader byte = 0x02

	// DefaultVersion is the protocol version written when Request.Version is unset.
	DefaultVersion uint8 = 1

	// MaxHeaderCount is the largest number of headers a single frame may carry.
	MaxHeaderCount = 255

	// prefixReserve is the number of bytes reserved out of bufferSize for
	// the fixed part of the prefix: MSCB, LSCB, the 2-byte id and the widest
	// (4-byte) BODY_LEN field. The path's ETX and the header count byte are
	// not part of it.
	prefixReserve = 8

	// aliveTableKey and bufferSizeTableKey are the pendingTable keys used by
	// the id-less ALIVE_* and BUFFER_SIZE_* exchanges, which are matched by
	// position rather than by a wire id. They sit outside the id allocator's
	// 1..9999 range and differ from each other so a buffer-size negotiation
	// in flight can never overwrite an outstanding alive probe's entry, or
	// vice versa.
	aliveTableKey      = 0xFFFE
	bufferSizeTableKey = 0xFFFF
)

// Default tunables, overridable per Conn via ConnOption. MultipartInactivityTimeout
// has no per-connection override and is a var rather than a const solely so
// tests can shrink it instead of waiting out the real interval.
var (
	// DefaultAliveInterval is how often a Conn probes a silent peer. Zero disables it.
	DefaultAliveInterval = 60 * time.Second
	// DefaultBufferSize is the outbound fragment size used until negotiated otherwise.
	DefaultBufferSize = 1024
	// MultipartInactivityTimeout silently discards a reassembly in progress.
	MultipartInactivityTimeout = 5 * time.Second
	// DefaultResponseTimeout bounds how long a pending Request/Streaming/
	// BufferSizeRequest waits for its Response before onTimeout fires.
	DefaultResponseTimeout = 1 * time.Second
)
