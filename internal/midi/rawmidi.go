package midi

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Locations of raw MIDI devices; variables so tests can point them elsewhere.
var (
	alsaDeviceGlob = "/dev/snd/midiC*D*"
	ossDeviceGlob  = "/dev/midi*"
	procAsoundDir  = "/proc/asound"
)

type rawPort struct {
	Port
	card, dev int
}

// rawPorts lists ALSA raw MIDI devices ordered by card and device number,
// falling back to OSS style /dev/midiN nodes.
func rawPorts() ([]Port, error) {
	paths, err := filepath.Glob(alsaDeviceGlob)
	if err != nil {
		return nil, fmt.Errorf("listing raw MIDI devices: %w", err)
	}

	found := make([]rawPort, 0, len(paths))
	for _, path := range paths {
		var card, dev int
		if _, err := fmt.Sscanf(filepath.Base(path), "midiC%dD%d", &card, &dev); err != nil {
			continue
		}
		name := fmt.Sprintf("hw:%d,%d", card, dev)
		if id, err := os.ReadFile(filepath.Join(procAsoundDir, fmt.Sprintf("card%d", card), "id")); err == nil {
			name = fmt.Sprintf("%s %d:%d", strings.TrimSpace(string(id)), card, dev)
		}
		found = append(found, rawPort{Port: Port{Name: name, Path: path}, card: card, dev: dev})
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].card != found[j].card {
			return found[i].card < found[j].card
		}
		return found[i].dev < found[j].dev
	})

	if len(found) == 0 {
		oss, err := filepath.Glob(ossDeviceGlob)
		if err != nil {
			return nil, fmt.Errorf("listing raw MIDI devices: %w", err)
		}
		sort.Strings(oss)
		for _, path := range oss {
			found = append(found, rawPort{Port: Port{Name: filepath.Base(path), Path: path}})
		}
	}

	ports := make([]Port, len(found))
	for i, p := range found {
		p.Index = i
		ports[i] = p.Port
	}
	return ports, nil
}

func openRaw(port int, log *zap.Logger) (Listener, error) {
	ports, err := rawPorts()
	if err != nil {
		return nil, err
	}
	p, err := selectPort(ports, port)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("opening MIDI device %s: %w", p.Path, err)
	}
	log.Info("MIDI device opened", zap.String("device", p.Name), zap.String("path", p.Path))
	return newRawListener(p.Name, f, log), nil
}

// rawListener decodes a raw MIDI byte stream read from a device node.
type rawListener struct {
	name   string
	r      io.ReadCloser
	log    *zap.Logger
	cb     atomic.Pointer[Handler]
	faults chan error

	startOnce sync.Once
	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
	done      chan struct{}
}

func newRawListener(name string, r io.ReadCloser, log *zap.Logger) *rawListener {
	return &rawListener{
		name:   name,
		r:      r,
		log:    log,
		faults: make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (l *rawListener) Name() string { return l.name }

func (l *rawListener) Faults() <-chan error { return l.faults }

func (l *rawListener) SetCallback(fn Handler) {
	if fn == nil {
		l.log.Warn("SetCallback called with nil handler")
		return
	}
	l.cb.Store(&fn)
	l.startOnce.Do(func() { go l.readLoop() })
}

func (l *rawListener) readLoop() {
	defer close(l.done)

	var p Parser
	buf := make([]byte, 256)
	for {
		n, err := l.r.Read(buf)
		for _, b := range buf[:n] {
			msg, ok := p.Feed(b)
			if !ok {
				continue
			}
			ev, ok := EventFromMessage(msg)
			if !ok {
				l.log.Debug("ignoring MIDI message", zap.Binary("message", msg))
				continue
			}
			(*l.cb.Load())(ev)
		}
		if err != nil {
			if l.closed.Load() {
				return
			}
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			l.fault(fmt.Errorf("reading MIDI device %s: %w", l.name, err))
			return
		}
	}
}

func (l *rawListener) fault(err error) {
	select {
	case l.faults <- err:
	default:
		l.log.Error("dropping MIDI fault, one is already pending", zap.Error(err))
	}
}

func (l *rawListener) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.closeErr = l.r.Close()
		l.log.Info("MIDI device closed", zap.String("device", l.name))
	})
	return l.closeErr
}
