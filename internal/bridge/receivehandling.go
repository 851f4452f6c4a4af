package bridge

import (
	"go.uber.org/zap"

	"github.com/farouk15160/midi2mqtt/internal/midi"
)

// Router translates device events into bus messages. It keeps no state
// besides its configuration, so HandleEvent may run concurrently.
type Router struct {
	prefix string
	bus    Bus
	log    *zap.Logger
}

// NewRouter builds a router and registers its connection hooks on bus.
func NewRouter(prefix string, bus Bus, log *zap.Logger) *Router {
	r := &Router{prefix: prefix, bus: bus, log: log.Named("router")}
	bus.OnConnect(r.onConnect)
	bus.OnDisconnect(r.onDisconnect)
	bus.OnPublishAck(r.onPublishAck)
	return r
}

// HandleEvent publishes one message for ev. Failures are logged, never retried.
func (r *Router) HandleEvent(ev midi.Event) {
	r.log.Info("MIDI event received",
		zap.Int("channel", ev.Channel),
		zap.Int("note", ev.Identifier),
		zap.Int("value", ev.Value))

	body, err := Payload(ev)
	if err != nil {
		r.log.Error("encoding payload", zap.Int("value", ev.Value), zap.Error(err))
		return
	}
	r.publish(Topic(r.prefix, ev), body)
}

func (r *Router) publish(topic string, payload []byte) {
	mid, err := r.bus.Publish(topic, payload)
	if err != nil {
		r.log.Error("failed to send payload", zap.String("topic", topic), zap.Error(err))
		return
	}
	r.log.Info("sent payload", zap.String("topic", topic), zap.Uint16("mid", mid))
}

func (r *Router) onConnect(code byte, err error) {
	if code == 0 {
		r.log.Info("connected to MQTT broker")
		return
	}
	r.log.Error("failed to connect to MQTT broker", zap.Uint8("code", code), zap.Error(err))
}

func (r *Router) onDisconnect(err error) {
	if err == nil {
		r.log.Info("disconnected from MQTT broker")
		return
	}
	r.log.Warn("lost connection to MQTT broker", zap.Error(err))
}

func (r *Router) onPublishAck(mid uint16) {
	r.log.Info("message published", zap.Uint16("mid", mid))
}
