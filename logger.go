package iotproto

import "log/slog"

// Logger is what Conn, Engine and transport.Listener log through: malformed
// frames, write failures, alive timeouts and connection teardown (see
// conn.go, keepalive.go, buffersize.go). It takes a message plus loose
// key/value pairs rather than a structured record, so any of slog, zerolog
// or zap can sit behind it with a thin adapter — cmd/iotd's zerologAdapter
// is one such adapter. ConnLoggerOption installs one per connection;
// defaultLogger is used when no option overrides it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// defaultLogger falls back to the standard library's slog, at its own
// configured default level and output.
func defaultLogger() Logger {
	return slog.Default()
}
