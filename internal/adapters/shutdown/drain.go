package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/noderun/internal/ports"
)

const (
	DefaultDrainTimeout = 30 * time.Second

	CodeDraining = "DRAINING"
)

var ErrDraining = errors.New("runtime is draining")

// Drainer counts in-flight node invocations. Once draining starts it
// admits no new invocations and lets callers wait for the running ones.
type Drainer struct {
	logger       *slog.Logger
	drainTimeout time.Duration

	mu       sync.Mutex
	inFlight int
	draining bool
	idle     chan struct{}
}

func NewDrainer(drainTimeout time.Duration, logger *slog.Logger) *Drainer {
	if drainTimeout <= 0 {
		drainTimeout = DefaultDrainTimeout
	}
	return &Drainer{
		logger:       ports.ComponentLogger(logger, "graceful-shutdown"),
		drainTimeout: drainTimeout,
	}
}

// Begin admits one invocation. The returned func must be called when it
// finishes; it is safe to call more than once. ok is false while draining.
func (d *Drainer) Begin() (done func(), ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.draining {
		return func() {}, false
	}
	d.inFlight++
	return sync.OnceFunc(d.end), true
}

func (d *Drainer) end() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.inFlight--
	if d.inFlight == 0 && d.idle != nil {
		close(d.idle)
		d.idle = nil
	}
}

func (d *Drainer) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight
}

func (d *Drainer) IsDraining() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draining
}

func (d *Drainer) StartDraining() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.draining {
		d.draining = true
		d.logger.Info("draining started", "in_flight", d.inFlight)
	}
}

// WaitForDraining blocks until no invocation is in flight or ctx is done.
func (d *Drainer) WaitForDraining(ctx context.Context) error {
	d.mu.Lock()
	if d.inFlight == 0 {
		d.mu.Unlock()
		return nil
	}
	if d.idle == nil {
		d.idle = make(chan struct{})
	}
	idle := d.idle
	d.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InitiateGracefulShutdown stops admitting invocations and waits up to the
// drain timeout for running ones. A timeout is logged and returned.
func (d *Drainer) InitiateGracefulShutdown(ctx context.Context) error {
	d.logger.Info("initiating graceful shutdown")
	d.StartDraining()

	drainCtx, cancel := context.WithTimeout(ctx, d.drainTimeout)
	defer cancel()

	d.logger.Info("waiting for node invocations to complete", "timeout", d.drainTimeout)
	if err := d.WaitForDraining(drainCtx); err != nil {
		d.logger.Warn("drain incomplete, continuing with shutdown",
			"in_flight", d.InFlight(),
			ports.FieldError, err)
		return fmt.Errorf("drain %d node invocations: %w", d.InFlight(), err)
	}

	d.logger.Info("graceful shutdown preparation complete")
	return nil
}
