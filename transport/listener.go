// Package transport listens for TCP or TLS connections and hands each
// accepted socket to a Handler, typically an *iotproto.Engine's Listen
// method. It accepts either a plain TCP listener or a TLS-wrapped one.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Handler handles one accepted connection. The implementation owns the
// connection for its entire lifetime, including closing it.
type Handler interface {
	Handle(conn net.Conn)
}

// HandlerFunc adapts a plain function to a Handler.
type HandlerFunc func(conn net.Conn)

// Handle calls f(conn).
func (f HandlerFunc) Handle(conn net.Conn) { f(conn) }

// Logger is the subset of iotproto.Logger the transport layer depends on,
// kept separate so this package never needs to import the protocol package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Listener accepts TCP or TLS connections and dispatches them to a Handler.
type Listener struct {
	listener        net.Listener
	logger          Logger
	shutdownTimeout time.Duration

	mu          sync.Mutex
	shutdown    bool
	shutdownNow chan struct{}
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// LoggerOption sets the logger used for accept/shutdown diagnostics.
func LoggerOption(logger Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// ShutdownTimeoutOption sets how long Serve waits after its context is
// canceled before closing the listener, giving in-flight Handle calls time
// to finish on their own. Default is 0 (immediate shutdown). Call Close to
// bypass the remaining timeout.
func ShutdownTimeoutOption(timeout time.Duration) ListenerOption {
	return func(l *Listener) {
		l.shutdownTimeout = timeout
	}
}

// Listen binds a plain TCP listener to addr.
func Listen(network, addr string, opts ...ListenerOption) (*Listener, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	return newListener(ln, opts...), nil
}

// ListenTLS binds a TLS listener to addr using cfg for the handshake.
func ListenTLS(network, addr string, cfg *tls.Config, opts ...ListenerOption) (*Listener, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	return newListener(tls.NewListener(ln, cfg), opts...), nil
}

func newListener(ln net.Listener, opts ...ListenerOption) *Listener {
	l := &Listener{
		listener:    ln,
		logger:      slog.Default(),
		shutdownNow: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Serve accepts connections and dispatches each to handler.Handle, tracking
// every accepted connection in an errgroup alongside the shutdown watcher so
// that Serve does not return until all in-flight handlers have finished. It
// blocks until ctx is canceled or an unrecoverable accept error occurs.
func (l *Listener) Serve(ctx context.Context, handler Handler) error {
	l.logger.Info("transport: listening", "addr", l.listener.Addr())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, _ := errgroup.WithContext(ctx)

	group.Go(func() error {
		<-ctx.Done()

		if l.shutdownTimeout > 0 {
			l.logger.Info("transport: graceful shutdown initiated", "timeout", l.shutdownTimeout)
			select {
			case <-time.After(l.shutdownTimeout):
			case <-l.shutdownNow:
				l.logger.Debug("transport: shutdown timeout bypassed via Close()")
			}
		}

		l.mu.Lock()
		l.shutdown = true
		l.mu.Unlock()

		return l.listener.Close()
	})

	acceptErr := l.acceptLoop(ctx, handler, group)
	cancel() // release the shutdown watcher when accepting stopped on its own

	if err := group.Wait(); err != nil && acceptErr == nil {
		return err
	}
	return acceptErr
}

// acceptLoop accepts connections until the listener closes, handing each one
// to group.Go so Serve's final group.Wait drains every handler before
// returning.
func (l *Listener) acceptLoop(ctx context.Context, handler Handler, group *errgroup.Group) error {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			l.mu.Lock()
			isShutdown := l.shutdown
			l.mu.Unlock()

			if isShutdown {
				l.logger.Info("transport: stopped", "addr", l.listener.Addr())
				return ctx.Err()
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			l.logger.Error("transport: accept error", "error", err)
			return err
		}

		l.logger.Debug("transport: accepted connection", "remote_addr", conn.RemoteAddr())
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}
		group.Go(func() error {
			handler.Handle(conn)
			return nil
		})
	}
}

// Close stops the listener immediately, bypassing any pending shutdown
// timeout. Any blocked Accept returns with an error.
func (l *Listener) Close() error {
	l.mu.Lock()
	l.shutdown = true
	l.mu.Unlock()

	select {
	case l.shutdownNow <- struct{}{}:
	default:
	}

	return l.listener.Close()
}

// Addr returns the listener's bound network address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}
