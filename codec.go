package iotproto

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"strings"

	"github.com/pkg/errors"
)

// IDReserver allocates a fresh, collision-free request id. *Conn supplies
// one backed by its idAllocator and in-flight pendingTable; EncodeRequest
// falls back to an uncoordinated random id when reserver is nil, which is
// only correct for standalone encode/decode tests with no live connection.
type IDReserver func() (uint16, error)

// EncodeRequest serializes req into a wire prefix (MSCB through BODY_LEN)
// and a body blob. It allocates req.ID via reserver when the
// method requires an id and none was set. bufferSize bounds the combined
// size of path and encoded headers; it does not itself cap the body, which
// the caller fragments separately when writing (see Conn.send).
func EncodeRequest(req *Request, bufferSize int, reserver IDReserver) (prefix, body []byte, err error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	version := req.version()
	if version < 1 || version > 63 {
		return nil, nil, errors.Wrapf(ErrInvalidVersion, "version %d", version)
	}

	if len(req.Headers) > MaxHeaderCount {
		return nil, nil, errors.Wrapf(ErrHeadersTooLarge, "got %d headers", len(req.Headers))
	}

	method := req.Method
	needsID := method.hasID()
	id := req.ID
	if needsID && id == 0 {
		id, err = reserveID(reserver)
		if err != nil {
			return nil, nil, err
		}
	}
	if !needsID {
		id = 0
	}

	pathBytes := []byte(req.Path)
	headerBytes, err := encodeHeaders(req.Headers)
	if err != nil {
		return nil, nil, err
	}
	if len(pathBytes)+len(headerBytes) > bufferSize-prefixReserve {
		return nil, nil, errors.Wrapf(ErrPrefixTooLarge,
			"path(%d)+headers(%d) > bufferSize(%d)-%d", len(pathBytes), len(headerBytes), bufferSize, prefixReserve)
	}

	width := method.bodyLenWidth()
	body = req.Body
	if int64(len(body)) > method.maxBodyLen() {
		return nil, nil, errors.Wrapf(ErrBodyTooLarge, "body %d exceeds %s cap %d", len(body), method, method.maxBodyLen())
	}
	if width == 0 && len(body) > 0 {
		return nil, nil, errors.Wrapf(ErrUnsupportedBody, "method %s", method)
	}

	hasPath := len(pathBytes) > 0
	hasHeaders := len(req.Headers) > 0
	hasBody := width > 0 && len(body) > 0

	mscb := version<<2
	if needsID {
		mscb |= MSCBFlagID
	}
	if hasPath {
		mscb |= MSCBFlagPath
	}

	lscb := byte(method)<<2
	if hasHeaders {
		lscb |= LSCBFlagHeader
	}
	if hasBody {
		lscb |= LSCBFlagBody
	}

	prefix = make([]byte, 0, 2+2+len(pathBytes)+1+1+len(headerBytes)+4)
	prefix = append(prefix, mscb, lscb)
	if needsID {
		prefix = append(prefix, byte(id>>8), byte(id))
	}
	if hasPath {
		prefix = append(prefix, pathBytes...)
		prefix = append(prefix, ETX)
	}
	if hasHeaders {
		prefix = append(prefix, byte(len(req.Headers)))
		prefix = append(prefix, headerBytes...)
	}
	if hasBody {
		lenField := make([]byte, width)
		putBodyLen(lenField, uint64(len(body)))
		prefix = append(prefix, lenField...)
	}

	req.ID = id
	req.HasID = needsID
	req.TotalBodyLength = len(body)
	return prefix, body, nil
}

func reserveID(reserver IDReserver) (uint16, error) {
	if reserver != nil {
		return reserver()
	}
	// No connection context: produce a best-effort id with no collision
	// check. Only safe for standalone encode/decode round-trip tests.
	for i := 0; i < maxAllocationAttempts; i++ {
		if id := uint16(idAllocMin + rand.Intn(idAllocMax-idAllocMin+1)); id != 0 {
			return id, nil
		}
	}
	return 0, ErrIDAllocationExhausted
}

func encodeHeaders(h Headers) ([]byte, error) {
	if len(h) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	for _, kv := range h {
		if strings.IndexByte(kv.Key, RS) >= 0 || strings.IndexByte(kv.Key, ETX) >= 0 {
			return nil, errors.Wrapf(ErrInvalidHeader, "key %q", kv.Key)
		}
		if strings.IndexByte(kv.Value, ETX) >= 0 {
			return nil, errors.Wrapf(ErrInvalidHeader, "value for key %q", kv.Key)
		}
		buf.WriteString(kv.Key)
		buf.WriteByte(RS)
		buf.WriteString(kv.Value)
		buf.WriteByte(ETX)
	}
	return buf.Bytes(), nil
}

func putBodyLen(dst []byte, n uint64) {
	switch len(dst) {
	case 1:
		dst[0] = byte(n)
	case 2:
		binary.BigEndian.PutUint16(dst, uint16(n))
	case 4:
		binary.BigEndian.PutUint32(dst, uint32(n))
	}
}

func getBodyLen(src []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(src))
	case 4:
		return uint64(binary.BigEndian.Uint32(src))
	default:
		return 0
	}
}

// DecodeRequest parses exactly one logical frame from the head of buf. It
// returns the parsed (possibly partial) request, the unconsumed
// remainder of buf, whether the frame's body is now fully received, and an
// error only for malformed input (an unknown method, truncated path/headers,
// an ALIVE_* frame claiming extra fields, or an unsupported body). A nil request with a nil
// error means buf does not yet contain a full prefix; the caller should
// leave buf untouched as the connection's remainder and wait for more bytes.
func DecodeRequest(buf []byte, r Reassembler) (req *Request, remainder []byte, completed bool, err error) {
	if len(buf) < 2 {
		return nil, buf, false, nil
	}

	mscb, lscb := buf[0], buf[1]
	pos := 2

	version := mscb >> 2
	hasIDFlag := mscb&MSCBFlagID != 0
	hasPathFlag := mscb&MSCBFlagPath != 0

	method := Method(lscb >> 2)
	hasHeaderFlag := lscb&LSCBFlagHeader != 0
	hasBodyFlag := lscb&LSCBFlagBody != 0

	if method < Signal || method > BufferSizeResponse {
		return nil, nil, false, errors.Wrapf(ErrUnknownMethod, "lscb 0x%02x", lscb)
	}

	req = &Request{Version: version, Method: method}

	if method == AliveRequest || method == AliveResponse {
		if hasIDFlag || hasPathFlag || hasHeaderFlag || hasBodyFlag {
			return nil, nil, false, ErrAliveFrameMalformed
		}
		return req, buf[pos:], true, nil
	}

	var id uint16
	if hasIDFlag {
		if len(buf) < pos+2 {
			return nil, buf, false, nil
		}
		id = uint16(buf[pos])<<8 | uint16(buf[pos+1])
		pos += 2
		req.HasID = true
		req.ID = id
	}

	if hasPathFlag {
		idx := bytes.IndexByte(buf[pos:], ETX)
		if idx < 0 {
			return nil, nil, false, ErrTruncatedPath
		}
		req.Path = string(buf[pos : pos+idx])
		pos += idx + 1
	}

	if hasHeaderFlag {
		if len(buf) < pos+1 {
			return nil, buf, false, nil
		}
		n := int(buf[pos])
		pos++
		headers := make(Headers, 0, n)
		for i := 0; i < n; i++ {
			kIdx := bytes.IndexByte(buf[pos:], RS)
			if kIdx < 0 {
				return nil, nil, false, ErrTruncatedHeader
			}
			key := string(buf[pos : pos+kIdx])
			pos += kIdx + 1

			vIdx := bytes.IndexByte(buf[pos:], ETX)
			if vIdx < 0 {
				return nil, nil, false, ErrTruncatedHeader
			}
			value := string(buf[pos : pos+vIdx])
			pos += vIdx + 1

			headers = append(headers, Header{Key: key, Value: value})
		}
		req.Headers = headers
	}

	if !hasBodyFlag {
		return req, buf[pos:], true, nil
	}

	width := method.bodyLenWidth()
	if width == 0 {
		return nil, nil, false, errors.Wrapf(ErrUnsupportedBody, "method %s", method)
	}
	if len(buf) < pos+width {
		return nil, buf, false, nil
	}
	total := int(getBodyLen(buf[pos:pos+width], width))
	pos += width

	already := 0
	if r != nil {
		if rec, ok := r.received(id); ok {
			already = rec
		}
	}
	remaining := total - already
	if remaining < 0 {
		remaining = 0
	}
	avail := len(buf) - pos
	take := remaining
	if take > avail {
		take = avail
	}

	req.Body = append([]byte(nil), buf[pos:pos+take]...)
	req.BodyLength = already + take
	req.TotalBodyLength = total
	pos += take

	if r != nil {
		r.accumulate(id, total, take)
	}
	req.Parts = 1

	completed = req.BodyLength >= total
	if completed && r != nil {
		r.finish(id)
	}

	return req, buf[pos:], completed, nil
}
