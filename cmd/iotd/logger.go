package main

import (
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/mistvale-labs/iotproto"
)

// zerologAdapter makes a zerolog.Logger satisfy iotproto.Logger and
// transport.Logger, both of which take a message plus loose key/value pairs
// rather than zerolog's chained Event builder.
type zerologAdapter struct {
	log zerolog.Logger
}

var _ iotproto.Logger = zerologAdapter{}

func newLogger(level string) zerologAdapter {
	out := os.Stdout
	var writer interface {
		Write(p []byte) (int, error)
	}
	if isatty.IsTerminal(out.Fd()) {
		writer = zerolog.ConsoleWriter{Out: colorable.NewColorable(out), TimeFormat: time.RFC3339}
	} else {
		writer = out
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	return zerologAdapter{log: zerolog.New(writer).Level(lvl).With().Timestamp().Str("app", "iotd").Logger()}
}

func (a zerologAdapter) Debug(msg string, args ...any) { a.event(a.log.Debug(), msg, args) }
func (a zerologAdapter) Info(msg string, args ...any)  { a.event(a.log.Info(), msg, args) }
func (a zerologAdapter) Warn(msg string, args ...any)  { a.event(a.log.Warn(), msg, args) }
func (a zerologAdapter) Error(msg string, args ...any) { a.event(a.log.Error(), msg, args) }

// event appends args as alternating key/value pairs onto ev and fires it
// with msg. A trailing key with no value is logged as-is under "extra".
func (a zerologAdapter) event(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	if len(args)%2 == 1 {
		ev = ev.Interface("extra", args[len(args)-1])
	}
	ev.Msg(msg)
}
