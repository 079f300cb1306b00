package iotproto

import (
	"context"
	"crypto/tls"
	"net"
	"sync"

	"github.com/mistvale-labs/iotproto/transport"
)

// Engine owns the middleware chain shared by every connection it accepts
// and is the entry point applications construct: one Engine per listening
// service, wired into a transport listener by whatever calls Listen.
type Engine struct {
	mu   sync.RWMutex
	mws  []Middleware
	opts []ConnOption
}

// NewEngine constructs an Engine. opts apply to every connection accepted
// through Listen, unless overridden per call.
func NewEngine(opts ...ConnOption) *Engine {
	return &Engine{opts: opts}
}

// Use appends middleware to the chain run against every completed inbound
// SIGNAL, REQUEST or STREAMING frame that isn't itself a response to a
// pending call. Order of registration is the order of execution.
func (e *Engine) Use(mw Middleware) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mws = append(e.mws, mw)
}

func (e *Engine) middlewares() []Middleware {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mws
}

// Listen wraps raw (already accepted by a transport listener) in a Conn,
// registers it, and runs its read loop until the socket ends. It blocks
// for the lifetime of the connection; callers typically invoke it in its
// own goroutine per accepted socket.
func (e *Engine) Listen(raw net.Conn, opts ...ConnOption) error {
	c := newConn(e, raw, e.mergeOptions(opts))
	defaultRegistry.add(c)
	return c.run()
}

// Dial opens an outbound TCP connection to addr via transport.Dial, wraps
// it in a Conn and starts its read loop in a background goroutine. Unlike
// Listen, Dial does not block: the returned Conn is ready for
// Signal/Request/Streaming as soon as the dial succeeds.
func (e *Engine) Dial(ctx context.Context, network, addr string, opts ...ConnOption) (*Conn, error) {
	raw, err := transport.Dial(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return e.wrapOutbound(raw, opts), nil
}

// DialTLS is Dial over a TLS handshake, using cfg for the client side of it.
func (e *Engine) DialTLS(ctx context.Context, network, addr string, cfg *tls.Config, opts ...ConnOption) (*Conn, error) {
	raw, err := transport.DialTLS(ctx, network, addr, cfg)
	if err != nil {
		return nil, err
	}
	return e.wrapOutbound(raw, opts), nil
}

func (e *Engine) wrapOutbound(raw net.Conn, opts []ConnOption) *Conn {
	c := newConn(e, raw, e.mergeOptions(opts))
	defaultRegistry.add(c)
	go func() {
		if err := c.run(); err != nil && c.logger != nil {
			c.logger.Debug("iotproto: dialed connection ended", "addr", c.Addr(), "error", err)
		}
	}()
	return c
}

func (e *Engine) mergeOptions(opts []ConnOption) connOptions {
	merged := defaultConnOptions()
	for _, opt := range e.opts {
		opt(&merged)
	}
	for _, opt := range opts {
		opt(&merged)
	}
	return merged
}
