// Package logging builds the console logger used by the command line tool.
//
// Levels follow the config file: "none" discards everything, "normal" prints
// info and warnings to the low-priority stream and errors to the
// high-priority stream, "debug" adds debug entries to the low-priority stream.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// ErrUnknownLevel is returned for a level other than none, normal or debug.
var ErrUnknownLevel = errors.New("unknown log level")

// Name is the root logger name.
const Name = "html2pdf"

// New returns a console logger writing to stdout and stderr, with colored
// levels when the stream is a terminal.
func New(level string) (*zap.Logger, error) {
	return build(level,
		zapcore.Lock(os.Stdout), EnableColorOutput(os.Stdout),
		zapcore.Lock(os.Stderr), EnableColorOutput(os.Stderr))
}

// NewWithWriters returns a console logger writing to arbitrary streams.
func NewWithWriters(level string, low, high io.Writer, color bool) (*zap.Logger, error) {
	return build(level,
		zapcore.AddSync(low), color,
		zapcore.AddSync(high), color)
}

// EnableColorOutput reports whether stream is attached to a terminal.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}

func build(level string, low zapcore.WriteSyncer, lowColor bool, high zapcore.WriteSyncer, highColor bool) (*zap.Logger, error) {
	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	var minLow zapcore.Level
	switch level {
	case "none":
		return zap.NewNop(), nil
	case "", "normal":
		minLow = zapcore.InfoLevel
	case "debug":
		minLow = zapcore.DebugLevel
	default:
		return nil, fmt.Errorf("%w: %q (must be none, normal or debug)", ErrUnknownLevel, level)
	}

	lowCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(lowColor)), low,
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return minLow <= lvl && lvl < zapcore.ErrorLevel
		}))
	highCore := zapcore.NewCore(newEncoder(encoderConfig(highColor)), high, highPriority)

	return zap.New(zapcore.NewTee(highCore, lowCore)).Named(Name), nil
}

func encoderConfig(color bool) zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if color {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return ec
}

// When logging error to console - do not output verbose message.

type consoleEnc struct {
	zapcore.Encoder
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return consoleEnc{zapcore.NewConsoleEncoder(cfg)}
}

func (c consoleEnc) Clone() zapcore.Encoder {
	return consoleEnc{c.Encoder.Clone()}
}

func (c consoleEnc) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	newFields := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			if e, ok := f.Interface.(error); ok {
				f.Interface = errors.New(e.Error())
			}
		}
		newFields = append(newFields, f)
	}
	return c.Encoder.EncodeEntry(ent, newFields)
}
