package main

import (
	"fmt"
	"io"
	"time"

	zaplogfmt "github.com/jsternberg/zap-logfmt"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logFormatConsole = "console"
	logFormatLogfmt  = "logfmt"
)

// newLogger returns a logger writing entries at or above level to w.
func newLogger(w io.Writer, format string, level zapcore.Level) *zap.Logger {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.UTC().Format(time.RFC3339))
	}
	config.EncodeDuration = func(d time.Duration, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(d.String())
	}

	var encoder zapcore.Encoder
	if format == logFormatLogfmt {
		encoder = zaplogfmt.NewEncoder(config)
	} else {
		encoder = zapcore.NewConsoleEncoder(config)
	}
	return zap.New(zapcore.NewCore(
		encoder,
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	))
}

type levelValue zapcore.Level

func newLevelValue(val zapcore.Level, p *zapcore.Level) *levelValue {
	*p = val
	return (*levelValue)(p)
}

func (l *levelValue) String() string {
	return zapcore.Level(*l).String()
}

func (l *levelValue) Set(s string) error {
	var level zapcore.Level
	if err := level.Set(s); err != nil {
		return fmt.Errorf("unknown log level %q; supported levels are debug, info, warn, error", s)
	}
	*l = levelValue(level)
	return nil
}

func (l *levelValue) Type() string {
	return "Log-Level"
}

// levelVarP defines a zapcore.Level flag.
func levelVarP(fs *pflag.FlagSet, p *zapcore.Level, name, shorthand string, value zapcore.Level, usage string) {
	fs.VarP(newLevelValue(value, p), name, shorthand, usage)
}
