//go:build darwin

package midi

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/youpy/go-coremidi"
	"go.uber.org/zap"
)

const coreMIDIClientName = "midi2mqtt"

type portConnection interface {
	Disconnect()
}

// coreMIDIListener receives packets from a CoreMIDI source.
type coreMIDIListener struct {
	name   string
	log    *zap.Logger
	cb     atomic.Pointer[Handler]
	faults chan error

	mu     sync.Mutex // guards parser and conn
	parser Parser
	conn   portConnection

	closeOnce sync.Once
}

func coreMIDIPorts() ([]Port, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI sources: %w", err)
	}
	return sourcePorts(sources), nil
}

func sourcePorts(sources []coremidi.Source) []Port {
	ports := make([]Port, len(sources))
	for i, source := range sources {
		name := source.Name()
		if entity := source.Entity(); entity.Manufacturer() != "" {
			name = entity.Manufacturer() + " " + name
		}
		ports[i] = Port{Index: i, Name: name}
	}
	return ports
}

// CoreMIDI clients cannot be disposed through go-coremidi, so one client
// is shared by every listener of the process.
var (
	clientMu sync.Mutex
	client   *coremidi.Client
)

func coreMIDIClient() (coremidi.Client, error) {
	clientMu.Lock()
	defer clientMu.Unlock()
	if client != nil {
		return *client, nil
	}
	c, err := coremidi.NewClient(coreMIDIClientName)
	if err != nil {
		return coremidi.Client{}, fmt.Errorf("creating CoreMIDI client: %w", err)
	}
	client = &c
	return c, nil
}

func openCoreMIDI(port int, log *zap.Logger) (Listener, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("retrieving MIDI sources: %w", err)
	}
	p, err := selectPort(sourcePorts(sources), port)
	if err != nil {
		return nil, err
	}

	c, err := coreMIDIClient()
	if err != nil {
		return nil, err
	}

	l := &coreMIDIListener{
		name:   p.Name,
		log:    log,
		faults: make(chan error, 1),
	}
	inputPort, err := coremidi.NewInputPort(c, "Input Port", l.handlePacket)
	if err != nil {
		return nil, fmt.Errorf("creating input port: %w", err)
	}
	conn, err := inputPort.Connect(sources[port])
	if err != nil {
		return nil, fmt.Errorf("connecting to MIDI source %q: %w", p.Name, err)
	}
	l.conn = conn

	log.Info("MIDI device connected", zap.Int("port", port), zap.String("device", p.Name))
	return l, nil
}

func (l *coreMIDIListener) handlePacket(_ coremidi.Source, packet coremidi.Packet) {
	fn := l.cb.Load()
	if fn == nil {
		return
	}

	l.mu.Lock()
	var events []Event
	for _, b := range packet.Data {
		msg, ok := l.parser.Feed(b)
		if !ok {
			continue
		}
		if ev, ok := EventFromMessage(msg); ok {
			events = append(events, ev)
		} else {
			l.log.Debug("ignoring MIDI message", zap.Binary("message", msg))
		}
	}
	l.mu.Unlock()

	for _, ev := range events {
		(*fn)(ev)
	}
}

func (l *coreMIDIListener) Name() string { return l.name }

func (l *coreMIDIListener) Faults() <-chan error { return l.faults }

func (l *coreMIDIListener) SetCallback(fn Handler) {
	if fn == nil {
		l.log.Warn("SetCallback called with nil handler")
		return
	}
	l.cb.Store(&fn)
}

func (l *coreMIDIListener) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		conn := l.conn
		l.conn = nil
		l.mu.Unlock()

		// Disconnect may wait for a packet callback that needs l.mu
		if conn != nil {
			conn.Disconnect()
		}
		l.log.Info("MIDI device closed", zap.String("device", l.name))
	})
	return nil
}
