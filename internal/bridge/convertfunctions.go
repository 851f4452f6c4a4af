package bridge

import (
	"encoding/json"
	"strconv"

	"github.com/farouk15160/midi2mqtt/internal/midi"
)

type payload struct {
	Value int `json:"value"`
}

// Topic returns "{prefix}/chan/{channel}/note/{identifier}".
func Topic(prefix string, ev midi.Event) string {
	return prefix + "/chan/" + strconv.Itoa(ev.Channel) + "/note/" + strconv.Itoa(ev.Identifier)
}

// Payload encodes the event value as {"value":N}.
func Payload(ev midi.Event) ([]byte, error) {
	return json.Marshal(payload{Value: ev.Value})
}
