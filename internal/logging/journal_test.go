package logging

import (
	"testing"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type journalRecord struct {
	msg  string
	prio journal.Priority
	vars map[string]string
}

type fakeJournal struct {
	records []journalRecord
}

func (f *fakeJournal) send(msg string, p journal.Priority, vars map[string]string) error {
	f.records = append(f.records, journalRecord{msg: msg, prio: p, vars: vars})
	return nil
}

func TestJournalCorePriorities(t *testing.T) {
	j := &fakeJournal{}
	l := zap.New(newJournalCoreWithSender(zapcore.DebugLevel, j.send))

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")
	l.DPanic("c")

	require.Len(t, j.records, 5)
	got := make([]journal.Priority, len(j.records))
	for i, r := range j.records {
		got[i] = r.prio
	}
	assert.Equal(t, []journal.Priority{
		journal.PriDebug, journal.PriInfo, journal.PriWarning, journal.PriErr, journal.PriCrit,
	}, got)
	assert.Equal(t, "d", j.records[0].msg)
	assert.Equal(t, "midi2mqtt", j.records[0].vars["SYSLOG_IDENTIFIER"])
}

func TestJournalCoreLevelAndFields(t *testing.T) {
	j := &fakeJournal{}
	l := zap.New(newJournalCoreWithSender(zapcore.WarnLevel, j.send)).
		Named("router").
		With(zap.String("topic", "midi/chan/1/note/60"))

	l.Info("dropped")
	l.Warn("lost connection to MQTT broker")

	require.Len(t, j.records, 1)
	r := j.records[0]
	assert.Equal(t, "router", r.vars["LOGGER"])
	assert.Contains(t, r.msg, "lost connection to MQTT broker")
	assert.Contains(t, r.msg, `"topic": "midi/chan/1/note/60"`)
	assert.NotContains(t, r.msg, "\n")
}
