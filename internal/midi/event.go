package midi

// Event is a single control-surface event as delivered by a Listener.
type Event struct {
	// Channel is the first byte of the device message, as the device
	// reported it (status byte including the command nibble).
	Channel    int
	Identifier int // note or controller number
	Value      int // velocity, controller value or pressure
}

// Handler receives events on the listener's delivery goroutine.
type Handler func(Event)

// EventFromMessage maps a complete device message to an Event.
// Only three-byte messages carry a channel/identifier/value triple.
func EventFromMessage(msg []byte) (Event, bool) {
	if len(msg) != 3 {
		return Event{}, false
	}
	return Event{
		Channel:    int(msg[0]),
		Identifier: int(msg[1]),
		Value:      int(msg[2]),
	}, true
}
