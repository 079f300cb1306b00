package transport

import (
	"context"
	"crypto/tls"
	"net"
)

// Dial opens an outbound connection to addr, honoring ctx for cancellation
// and deadlines. It is the client-side counterpart to Listen.
func Dial(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{}
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return conn, nil
}

// DialTLS opens an outbound TLS connection to addr using cfg for the
// handshake. It is the client-side counterpart to ListenTLS.
func DialTLS(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
	d := &tls.Dialer{Config: cfg}
	return d.DialContext(ctx, network, addr)
}
