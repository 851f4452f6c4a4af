package logging

import (
	"errors"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
	"go.uber.org/zap/zapcore"
)

const syslogIdentifier = "midi2mqtt"

// sendFunc matches journal.Send.
type sendFunc func(message string, priority journal.Priority, vars map[string]string) error

// journalCore writes entries to the systemd journal with a priority derived
// from the zap level. Fields are rendered into the message text.
type journalCore struct {
	zapcore.LevelEnabler
	enc  zapcore.Encoder
	send sendFunc
}

func newJournalCore(lvl zapcore.Level) (zapcore.Core, error) {
	if !journal.Enabled() {
		return nil, errors.New("systemd journal socket not available")
	}
	return newJournalCoreWithSender(lvl, journal.Send), nil
}

func newJournalCoreWithSender(lvl zapcore.LevelEnabler, send sendFunc) *journalCore {
	return &journalCore{
		LevelEnabler: lvl,
		enc:          zapcore.NewConsoleEncoder(journalEncoderConfig()),
		send:         send,
	}
}

func (c *journalCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &journalCore{LevelEnabler: c.LevelEnabler, enc: c.enc.Clone(), send: c.send}
	for _, f := range fields {
		f.AddTo(clone.enc)
	}
	return clone
}

func (c *journalCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *journalCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	msg := strings.TrimSuffix(buf.String(), "\n")
	buf.Free()

	vars := map[string]string{"SYSLOG_IDENTIFIER": syslogIdentifier}
	if ent.LoggerName != "" {
		vars["LOGGER"] = ent.LoggerName
	}
	return c.send(msg, priority(ent.Level), vars)
}

func (c *journalCore) Sync() error { return nil }

func priority(l zapcore.Level) journal.Priority {
	switch {
	case l >= zapcore.DPanicLevel:
		return journal.PriCrit
	case l == zapcore.ErrorLevel:
		return journal.PriErr
	case l == zapcore.WarnLevel:
		return journal.PriWarning
	case l == zapcore.InfoLevel:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}
