package bridge

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Options wire a Bridge.
type Options struct {
	Router *Router
	Device Device
	Loop   Loop
	Log    *zap.Logger
}

// Bridge owns the device and the bus loop for the lifetime of the process.
//
// Any fault while handling events (a device read error or a panic inside
// the router) stops the whole bridge: there is no per-event isolation.
type Bridge struct {
	router *Router
	device Device
	loop   Loop
	log    *zap.Logger

	faults    chan error
	stopOnce  sync.Once
	closeOnce sync.Once
}

// New returns a bridge ready to Run.
func New(opts Options) *Bridge {
	return &Bridge{
		router: opts.Router,
		device: opts.Device,
		loop:   opts.Loop,
		log:    opts.Log.Named("bridge"),
		faults: make(chan error, 1),
	}
}

// Run registers the router on the device, starts the bus loop and blocks
// until ctx is cancelled or a fault occurs. Both collaborators are released
// before Run returns: the bus loop is stopped first, then the device closed.
// The returned error is nil after a cancellation without shutdown errors.
func (b *Bridge) Run(ctx context.Context) error {
	b.device.SetCallback(b.guard(b.router.HandleEvent))

	if err := b.loop.Start(ctx); err != nil {
		err = fmt.Errorf("starting MQTT loop: %w", err)
		b.log.Error("startup failed", zap.Error(err))
		return multierr.Append(err, b.shutdown())
	}
	b.log.Info("bridge running, waiting for MIDI events")

	var cause error
	select {
	case <-ctx.Done():
		b.log.Info("exiting on user request")
	case cause = <-b.faults:
	case cause = <-b.device.Faults():
	}
	if cause != nil {
		b.log.Error("fault, shutting down", zap.Error(cause))
	}
	return multierr.Append(cause, b.shutdown())
}

func (b *Bridge) shutdown() error {
	b.stopOnce.Do(b.loop.Stop)

	var err error
	b.closeOnce.Do(func() {
		if cerr := b.device.Close(); cerr != nil {
			err = fmt.Errorf("closing MIDI device: %w", cerr)
			b.log.Error("closing MIDI device", zap.Error(cerr))
		}
	})
	return err
}
