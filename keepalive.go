package iotproto

import (
	"time"

	"github.com/pkg/errors"
)

// resetAlive restarts the keep-alive interval timer. Called after every
// successful inbound parse and every outbound write; a connection that is
// never silent for aliveInterval never probes at all.
func (c *Conn) resetAlive() {
	if c.aliveInterval <= 0 {
		return
	}
	c.aliveMu.Lock()
	defer c.aliveMu.Unlock()
	if c.closed.Load() {
		return
	}
	if c.aliveTimer != nil {
		c.aliveTimer.Stop()
	}
	c.aliveTimer = time.AfterFunc(c.aliveInterval, c.sendAliveProbe)
}

// sendAliveProbe fires when the connection has been silent for aliveInterval.
// Its pending response either gets cancelled by an inbound ALIVE_RESPONSE
// (which resetAlive then re-arms) or times out and tears the socket down.
func (c *Conn) sendAliveProbe() {
	if c.closed.Load() {
		return
	}
	desc := ResponseDescriptor{
		Timeout: c.aliveTimeout,
		OnTimeout: func(*Request) {
			c.teardown(errors.New("iotproto: alive timeout"))
		},
	}
	if err := c.AliveRequest(&desc); err != nil && c.logger != nil {
		c.logger.Debug("iotproto: alive probe write failed", "addr", c.Addr(), "error", err)
	}
}

// handleAliveRequest answers an inbound ALIVE_REQUEST inline, bypassing the
// middleware chain entirely: liveness is a connection-level concern, not an
// application one.
func (c *Conn) handleAliveRequest() {
	if err := c.AliveResponse(); err != nil && c.logger != nil {
		c.logger.Debug("iotproto: alive response write failed", "addr", c.Addr(), "error", err)
	}
}

// AliveRequest sends the two-byte keep-alive probe. desc is usually
// supplied only by sendAliveProbe itself; application code rarely needs it.
func (c *Conn) AliveRequest(desc *ResponseDescriptor) error {
	req := &Request{Method: AliveRequest}
	if desc == nil {
		return c.send(req)
	}
	return c.sendBareWithResponse(req, desc, aliveTableKey)
}

// AliveResponse answers an inbound ALIVE_REQUEST.
func (c *Conn) AliveResponse() error {
	return c.send(&Request{Method: AliveResponse})
}
