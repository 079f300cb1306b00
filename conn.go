package iotproto

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Conn is the protocol state for one peer: in-flight request table,
// multipart reassembly table, remainder buffer, write mutex, negotiated
// buffer size and keep-alive timer. Exactly one Conn exists per accepted or
// dialed socket, created by Engine.Listen/Engine.Dial and destroyed on
// socket end or alive timeout.
type Conn struct {
	engine *Engine
	raw    net.Conn
	key    string
	logger Logger

	writeMu sync.Mutex
	closed  atomic.Bool

	bufferSize atomic.Int64

	pending    *pendingTable
	reassembly *reassemblyTable
	ids        *idAllocator

	remain []byte // owned solely by the read loop goroutine

	aliveMu       sync.Mutex
	aliveInterval time.Duration
	aliveTimeout  time.Duration
	aliveTimer    *time.Timer

	onDisconnect func(*Conn)

	closeOnce sync.Once
}

func newConn(e *Engine, raw net.Conn, opts connOptions) *Conn {
	c := &Conn{
		engine:        e,
		raw:           raw,
		key:           registryKey(raw.RemoteAddr()),
		logger:        opts.logger,
		pending:       newPendingTable(),
		ids:           newIDAllocator(),
		aliveInterval: opts.aliveInterval,
		aliveTimeout:  opts.aliveTimeout,
		onDisconnect:  opts.onDisconnect,
	}
	c.bufferSize.Store(int64(opts.bufferSize))
	c.reassembly = newReassemblyTable(func(uint16) {
		// Inactivity timeout: silent drop, nothing further to surface.
	})
	return c
}

// Addr returns the peer's network address.
func (c *Conn) Addr() net.Addr { return c.raw.RemoteAddr() }

// Key returns the registry key ("remoteAddress_remotePort") for this Conn.
func (c *Conn) Key() string { return c.key }

// BufferSize returns the currently negotiated outbound fragment size.
func (c *Conn) BufferSize() int { return int(c.bufferSize.Load()) }

// IsClosed reports whether the connection has already been torn down.
func (c *Conn) IsClosed() bool { return c.closed.Load() }

// reserveID allocates a fresh id, rejecting any collision with the
// in-flight pending table.
func (c *Conn) reserveID() (uint16, error) {
	return c.ids.reserve(c.pending.has)
}

// run schedules the first alive probe and starts the blocking read loop; it
// returns when the socket ends or an unrecoverable read error occurs.
// Engine.Listen calls it directly and blocks on it; Engine.Dial runs it in a
// background goroutine.
func (c *Conn) run() error {
	c.resetAlive()
	buf := make([]byte, 64*1024)
	for {
		n, err := c.raw.Read(buf)
		if n > 0 {
			c.ingest(buf[:n])
		}
		if err != nil {
			c.teardown(err)
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// ingest prepends any leftover remainder, then decodes as many complete or
// partial frames as the buffer allows, dispatching each in turn.
func (c *Conn) ingest(chunk []byte) {
	data := chunk
	if len(c.remain) > 0 {
		data = append(append([]byte(nil), c.remain...), chunk...)
		c.remain = nil
	}

	for len(data) > 0 {
		req, rem, completed, err := DecodeRequest(data, c.reassembly)
		if err != nil {
			if c.logger != nil {
				c.logger.Debug("iotproto: dropping malformed frame", "addr", c.Addr(), "error", err)
			}
			return // protocol violation: drop the frame, clear the remainder
		}
		if req == nil {
			// Not enough bytes yet for a full prefix; keep waiting.
			c.remain = append([]byte(nil), rem...)
			return
		}
		req.Conn = c
		if completed {
			req.Parts = c.fragmentsFor(req)
		}
		data = rem
		c.resetAlive()
		c.dispatch(req, completed)
	}
}

// fragmentsFor reports how many inbound fragments contributed to req's body,
// defaulting to 1 for frames that never entered the reassembly table.
func (c *Conn) fragmentsFor(req *Request) int {
	if !req.HasID || req.TotalBodyLength == 0 {
		return 1
	}
	if p := c.reassembly.parts(req.ID); p > 0 {
		return p
	}
	return 1
}

// dispatch routes one decoded frame: ALIVE_REQUEST is answered inline,
// *_RESPONSE frames resolve or refresh the pending table, BUFFER_SIZE_REQUEST
// negotiates a new outbound fragment size, and SIGNAL/REQUEST/STREAMING run
// the middleware chain once the frame is complete.
func (c *Conn) dispatch(req *Request, completed bool) {
	switch req.Method {
	case AliveRequest:
		c.handleAliveRequest()
	case AliveResponse:
		c.resolvePending(aliveTableKey, req, completed)
	case BufferSizeRequest:
		c.handleBufferSizeRequest(req)
	case BufferSizeResponse:
		c.resolvePending(bufferSizeTableKey, req, completed)
	case Response:
		c.resolvePending(req.ID, req, completed)
	case Signal, MethodRequest, Streaming:
		if completed {
			c.runMiddleware(req)
		}
	}
}

// resolvePending matches an inbound response-bearing frame against the
// pending table. A match with a completed frame fires OnResponse and
// removes the entry; a match with a partial frame refreshes its timeout.
// No match is a silent drop.
func (c *Conn) resolvePending(id uint16, req *Request, completed bool) {
	if !completed {
		c.pending.refresh(id)
		return
	}
	if e, ok := c.pending.resolve(id); ok && e.desc.OnResponse != nil {
		e.desc.OnResponse(req)
	}
}

func (c *Conn) runMiddleware(req *Request) {
	defer func() {
		if r := recover(); r != nil && c.logger != nil {
			c.logger.Error("iotproto: middleware panic recovered", "addr", c.Addr(), "path", req.Path, "panic", r)
		}
	}()
	runChain(c.engine.middlewares(), req)
}

// send encodes req and writes it to the socket, fragmenting the body across
// multiple TCP writes if it exceeds the negotiated buffer size. Every
// fragment repeats the full prefix. Exactly one send is ever in flight per
// connection: the write mutex enforces it.
func (c *Conn) send(req *Request) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	prefix, body, err := EncodeRequest(req, c.BufferSize(), c.reserveID)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	parts, werr := c.writeFragments(prefix, body)
	c.writeMu.Unlock()

	req.Parts = parts
	if werr != nil {
		return errors.Wrap(werr, "iotproto: write failed")
	}
	c.resetAlive()
	return nil
}

// writeFragments writes prefix+body as one or more frames, repeating the
// prefix on every fragment. Callers hold writeMu.
func (c *Conn) writeFragments(prefix, body []byte) (int, error) {
	if len(body) == 0 {
		if _, err := c.raw.Write(prefix); err != nil {
			return 0, err
		}
		return 1, nil
	}

	chunkSize := c.BufferSize() - len(prefix)
	if chunkSize <= 0 {
		chunkSize = len(body)
	}

	parts := 0
	frame := make([]byte, 0, len(prefix)+chunkSize)
	for off := 0; off < len(body); off += chunkSize {
		end := off + chunkSize
		if end > len(body) {
			end = len(body)
		}
		frame = append(frame[:0], prefix...)
		frame = append(frame, body[off:end]...)
		if _, err := c.raw.Write(frame); err != nil {
			return parts, err
		}
		parts++
	}
	return parts, nil
}

// sendWithResponse is the shared path for sends that register a
// ResponseDescriptor. The pending entry is inserted before the bytes hit
// the wire, so a same-host loopback response can never race ahead of its
// own registration.
func (c *Conn) sendWithResponse(req *Request, desc *ResponseDescriptor) error {
	if desc == nil {
		return c.send(req)
	}
	if c.closed.Load() {
		return ErrConnClosed
	}

	prefix, body, err := EncodeRequest(req, c.BufferSize(), c.reserveID)
	if err != nil {
		return err
	}

	c.pending.insert(req.ID, *desc, req.clone())

	c.writeMu.Lock()
	parts, werr := c.writeFragments(prefix, body)
	c.writeMu.Unlock()

	req.Parts = parts
	if werr != nil {
		c.pending.resolve(req.ID) // never sent: nothing to wait for
		return errors.Wrap(werr, "iotproto: write failed")
	}
	c.resetAlive()
	return nil
}

// sendBareWithResponse is sendWithResponse for the id-less ALIVE_*/
// BUFFER_SIZE_* exchanges, which are matched by position (key aliveTableKey
// or bufferSizeTableKey) rather than by id.
func (c *Conn) sendBareWithResponse(req *Request, desc *ResponseDescriptor, key uint16) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	prefix, body, err := EncodeRequest(req, c.BufferSize(), c.reserveID)
	if err != nil {
		return err
	}

	c.pending.insert(key, *desc, req.clone())

	c.writeMu.Lock()
	parts, werr := c.writeFragments(prefix, body)
	c.writeMu.Unlock()

	req.Parts = parts
	if werr != nil {
		c.pending.resolve(key)
		return errors.Wrap(werr, "iotproto: write failed")
	}
	c.resetAlive()
	return nil
}

// Signal sends a one-shot frame with no expected response.
func (c *Conn) Signal(req *Request) error {
	req.Method = Signal
	return c.send(req)
}

// Request sends a frame expecting a Response, reporting its outcome through
// desc. desc may be nil for a fire-and-forget REQUEST (unusual, but legal).
func (c *Conn) Request(req *Request, desc *ResponseDescriptor) error {
	req.Method = MethodRequest
	return c.sendWithResponse(req, desc)
}

// Response answers a Request or Streaming frame by echoing its id.
func (c *Conn) Response(req *Request) error {
	req.Method = Response
	return c.send(req)
}

// Streaming sends a (possibly large) frame expecting a Response, reporting
// its outcome through desc.
func (c *Conn) Streaming(req *Request, desc *ResponseDescriptor) error {
	req.Method = Streaming
	return c.sendWithResponse(req, desc)
}

// Close tears the connection down: it cancels every timer, resolves every
// pending entry's OnTimeout, closes the socket, removes the registry entry
// and invokes onDisconnect if one was configured. Safe to call more than
// once; only the first call has any effect.
func (c *Conn) Close() error {
	return c.teardown(nil)
}

func (c *Conn) teardown(cause error) error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.aliveMu.Lock()
		if c.aliveTimer != nil {
			c.aliveTimer.Stop()
		}
		c.aliveMu.Unlock()

		c.reassembly.closeAll()
		c.pending.cancelAll()

		err = c.raw.Close()
		defaultRegistry.remove(c)

		if c.onDisconnect != nil {
			c.onDisconnect(c)
		}
		if c.logger != nil {
			if cause != nil && cause != io.EOF {
				c.logger.Info("iotproto: connection closed", "addr", c.Addr(), "cause", cause)
			} else {
				c.logger.Debug("iotproto: connection closed", "addr", c.Addr())
			}
		}
	})
	return err
}
