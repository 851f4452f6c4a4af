package bridge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/farouk15160/midi2mqtt/internal/midi"
)

// guard wraps h so a panic on the device's delivery goroutine becomes a
// bridge fault instead of killing the process without cleanup.
func (b *Bridge) guard(h midi.Handler) midi.Handler {
	return func(ev midi.Event) {
		defer func() {
			if r := recover(); r != nil {
				b.log.Error("panic while handling MIDI event",
					zap.Any("panic", r),
					zap.Int("channel", ev.Channel),
					zap.Int("note", ev.Identifier),
					zap.Stack("stack"))
				b.fault(fmt.Errorf("handling MIDI event on channel %d note %d: %v", ev.Channel, ev.Identifier, r))
			}
		}()
		h(ev)
	}
}

func (b *Bridge) fault(err error) {
	select {
	case b.faults <- err:
	default:
		// a fault is already pending; shutdown is under way
	}
}
