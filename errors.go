package iotproto

import "errors"

// Sentinel errors returned by the codec and connection engine. Callers
// compare against these with errors.Is; richer context is layered on top
// with github.com/pkg/errors.Wrap at the call sites that have it.
var (
	// ErrHeadersTooLarge is returned by EncodeRequest when a frame carries
	// more than MaxHeaderCount headers.
	ErrHeadersTooLarge = errors.New("iotproto: header count exceeds 255")
	// ErrPrefixTooLarge is returned by EncodeRequest when path+headers would
	// not fit in bufferSize-8 bytes.
	ErrPrefixTooLarge = errors.New("iotproto: path and headers exceed buffer size")
	// ErrBodyTooLarge is returned by EncodeRequest when the body exceeds the
	// method's length-field capacity.
	ErrBodyTooLarge = errors.New("iotproto: body exceeds method's maximum length")
	// ErrInvalidHeader is returned when a header key or value contains a
	// reserved wire byte (RS or ETX).
	ErrInvalidHeader = errors.New("iotproto: header contains a reserved byte")
	// ErrInvalidVersion is returned by EncodeRequest for a version outside [1,63].
	ErrInvalidVersion = errors.New("iotproto: version out of range")
	// ErrUnknownMethod is returned by DecodeRequest for an LSCB method it
	// does not recognize.
	ErrUnknownMethod = errors.New("iotproto: unknown method")
	// ErrAliveFrameMalformed is returned when an ALIVE_REQUEST/ALIVE_RESPONSE
	// frame claims to carry an id, path, headers or body.
	ErrAliveFrameMalformed = errors.New("iotproto: alive frame must not carry id, path, headers or body")
	// ErrTruncatedPath is returned when a path is not terminated by ETX
	// within the bytes available; the frame is dropped, not retried.
	ErrTruncatedPath = errors.New("iotproto: path missing ETX terminator")
	// ErrTruncatedHeader is returned when a header key/value is not
	// terminated within the bytes available; the frame is dropped.
	ErrTruncatedHeader = errors.New("iotproto: header missing RS/ETX terminator")
	// ErrUnsupportedBody is returned for a body on a method with no BODY_LEN
	// field. For ALIVE_* frames the earlier checks report it first, as
	// ErrAliveFrameMalformed (decode) or ErrBodyTooLarge (encode).
	ErrUnsupportedBody = errors.New("iotproto: method does not support a body")
	// ErrIDAllocationExhausted is returned when no collision-free id could
	// be allocated after a bounded number of attempts.
	ErrIDAllocationExhausted = errors.New("iotproto: could not allocate a free request id")
	// ErrConnClosed is returned by send operations on a closed Conn.
	ErrConnClosed = errors.New("iotproto: connection closed")
)
