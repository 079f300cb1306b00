package iotproto

import "time"

// connOptions holds the per-connection configuration applied by Engine
// before a Conn's read loop starts.
type connOptions struct {
	logger        Logger
	bufferSize    int
	aliveInterval time.Duration
	aliveTimeout  time.Duration
	onDisconnect  func(*Conn)
}

func defaultConnOptions() connOptions {
	return connOptions{
		logger:        defaultLogger(),
		bufferSize:    DefaultBufferSize,
		aliveInterval: DefaultAliveInterval,
		aliveTimeout:  DefaultResponseTimeout,
	}
}

// ConnOption configures a single Conn at creation time.
type ConnOption func(*connOptions)

// BufferSizeOption sets the initial outbound fragment size, before any
// in-band BUFFER_SIZE_REQUEST renegotiation.
func BufferSizeOption(size int) ConnOption {
	return func(o *connOptions) {
		o.bufferSize = size
	}
}

// AliveIntervalOption sets how long a connection may stay silent before the
// engine sends an ALIVE_REQUEST probe. Zero disables keep-alive entirely.
func AliveIntervalOption(d time.Duration) ConnOption {
	return func(o *connOptions) {
		o.aliveInterval = d
	}
}

// AliveTimeoutOption bounds how long an ALIVE_REQUEST probe waits for its
// ALIVE_RESPONSE before the connection is torn down.
func AliveTimeoutOption(d time.Duration) ConnOption {
	return func(o *connOptions) {
		o.aliveTimeout = d
	}
}

// ConnLoggerOption sets the logger used by a connection's lifecycle events.
func ConnLoggerOption(logger Logger) ConnOption {
	return func(o *connOptions) {
		o.logger = logger
	}
}

// OnDisconnectOption registers a callback invoked once a connection has
// been fully torn down (socket closed, registry entry removed, pending
// table drained).
func OnDisconnectOption(cb func(*Conn)) ConnOption {
	return func(o *connOptions) {
		o.onDisconnect = cb
	}
}
