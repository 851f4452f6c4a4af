// Package logging builds the process logger. Under systemd the records go to
// the journal socket so they keep their priority; everywhere else they are
// written to stderr.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = zapcore.WarnLevel

// Journald reports whether the process runs with its stderr connected to the
// systemd journal.
func Journald(getenv func(string) string) bool {
	return getenv("JOURNAL_STREAM") != ""
}

// ParseLevel accepts the zap level names; an empty string means DefaultLevel.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return DefaultLevel, nil
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return DefaultLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// New returns a logger at level writing to the journal or stderr.
func New(level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if Journald(os.Getenv) {
		core, err := newJournalCore(lvl)
		if err == nil {
			return zap.New(core), nil
		}
		// stderr is captured by the journal as well
		l := zap.New(consoleCore(lvl))
		l.Warn("journal unavailable, logging to stderr", zap.Error(err))
		return l, nil
	}
	return zap.New(consoleCore(lvl)), nil
}

func consoleCore(lvl zapcore.Level) zapcore.Core {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), lvl)
}

// journalEncoderConfig drops time and level: the journal stamps both.
func journalEncoderConfig() zapcore.EncoderConfig {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.LevelKey = ""
	enc.CallerKey = ""
	enc.StacktraceKey = "stacktrace"
	return enc
}
