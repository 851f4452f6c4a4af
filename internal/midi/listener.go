package midi

import (
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// Error definitions for opening MIDI inputs.
var (
	ErrNoPorts     = errors.New("no MIDI input ports found")
	ErrInvalidPort = errors.New("invalid MIDI input port")
	ErrUnsupported = errors.New("MIDI driver not available on this platform")
)

// Listener is an open MIDI input.
type Listener interface {
	// SetCallback registers fn and starts delivery. fn runs on the
	// listener's own goroutine, never on the caller's.
	SetCallback(fn Handler)
	// Faults reports device I/O errors raised while delivering events.
	Faults() <-chan error
	// Close releases the device. Only the first call has an effect.
	Close() error
	// Name is the resolved device name.
	Name() string
}

// Port describes one available MIDI input.
type Port struct {
	Index int
	Name  string
	Path  string
}

func (p Port) String() string {
	if p.Path == "" {
		return fmt.Sprintf("%d: %s", p.Index, p.Name)
	}
	return fmt.Sprintf("%d: %s (%s)", p.Index, p.Name, p.Path)
}

type driver struct {
	open  func(port int, log *zap.Logger) (Listener, error)
	ports func() ([]Port, error)
}

// drivers maps OS names to MIDI input drivers; anything else reads raw
// MIDI character devices.
var drivers = map[string]driver{
	"darwin": {open: openCoreMIDI, ports: coreMIDIPorts},
}

var rawDriver = driver{open: openRaw, ports: rawPorts}

func currentDriver() driver {
	if d, ok := drivers[runtime.GOOS]; ok {
		return d
	}
	return rawDriver
}

// Open opens MIDI input port and returns the listener with the resolved
// device name. Ports are numbered in ListPorts order.
func Open(port int, log *zap.Logger) (Listener, string, error) {
	l, err := currentDriver().open(port, log.Named("midi"))
	if err != nil {
		return nil, "", err
	}
	return l, l.Name(), nil
}

// ListPorts lists the MIDI inputs available to Open.
func ListPorts() ([]Port, error) {
	return currentDriver().ports()
}

func selectPort(ports []Port, port int) (Port, error) {
	if len(ports) == 0 {
		return Port{}, ErrNoPorts
	}
	if port < 0 || port >= len(ports) {
		return Port{}, fmt.Errorf("%w: %d (have %d)", ErrInvalidPort, port, len(ports))
	}
	return ports[port], nil
}
