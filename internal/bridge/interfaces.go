package bridge

import (
	"context"

	"github.com/farouk15160/midi2mqtt/internal/midi"
)

// Bus defines the MQTT publishing capabilities needed by the router.
type Bus interface {
	// Publish reports only whether the message was accepted locally.
	Publish(topic string, payload []byte) (uint16, error)
	OnConnect(func(code byte, err error))
	OnDisconnect(func(err error))
	OnPublishAck(func(mid uint16))
}

// Device is the inbound event source owned by the bridge.
type Device interface {
	SetCallback(fn midi.Handler)
	Faults() <-chan error
	Close() error
}

// Loop is the bus publisher's background delivery loop.
type Loop interface {
	Start(ctx context.Context) error
	Stop()
}
