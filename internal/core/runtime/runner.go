package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/modstate/modstate/internal/core/blackboard"
	"github.com/modstate/modstate/internal/core/machine"
	"github.com/modstate/modstate/internal/core/observability/log"
)

// ErrNoStates is returned when a runner is started on a machine with no
// top-level states registered.
var ErrNoStates = errors.New("machine has no states registered")

const defaultInterval = 100 * time.Millisecond

// Runner drives one machine: sensors refresh the blackboard, then the
// machine gets exactly one Update, once per interval, until the context is
// canceled. Sensor failures are logged and skipped; a failing sensor must
// not stall the tree.
type Runner struct {
	m        *machine.Machine
	bb       *blackboard.Blackboard
	sensors  []Sensor
	interval time.Duration
	logger   *log.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithInterval overrides the default 100ms tick interval.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.interval = d }
}

// WithBlackboard shares an existing blackboard with the runner's sensors.
func WithBlackboard(bb *blackboard.Blackboard) RunnerOption {
	return func(r *Runner) { r.bb = bb }
}

// WithSensors appends sensors refreshed before every tick, in order.
func WithSensors(sensors ...Sensor) RunnerOption {
	return func(r *Runner) { r.sensors = append(r.sensors, sensors...) }
}

// WithLogger sets the runner's logger.
func WithLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner builds a runner for m.
func NewRunner(m *machine.Machine, opts ...RunnerOption) *Runner {
	r := &Runner{m: m, interval: defaultInterval}
	for _, opt := range opts {
		opt(r)
	}
	if r.bb == nil {
		r.bb = blackboard.New()
	}
	if r.logger == nil {
		r.logger = log.Nop()
	}
	return r
}

// Machine returns the driven machine.
func (r *Runner) Machine() *machine.Machine { return r.m }

// Blackboard returns the blackboard shared with sensors.
func (r *Runner) Blackboard() *blackboard.Blackboard { return r.bb }

// Step performs a single tick: sensor refresh, then one machine Update.
// Hosts that own their own loop call Step instead of Run.
func (r *Runner) Step(ctx context.Context) {
	for _, s := range r.sensors {
		if err := s.Update(ctx, r.bb); err != nil {
			r.logger.Warn("sensor update failed",
				log.String("machine", r.m.Name()),
				log.String("sensor", s.Name()),
				log.Err(err),
			)
		}
	}
	r.m.Update()
}

// Run ticks the machine on the configured interval until ctx is canceled.
// It returns ctx.Err() on cancellation, ErrNoStates if there is nothing to
// drive.
func (r *Runner) Run(ctx context.Context) error {
	if !r.m.IsRunning() {
		return ErrNoStates
	}
	r.logger.Info("runner started",
		log.String("machine", r.m.Name()),
		log.Duration("interval", r.interval),
	)
	r.m.Start()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopped", log.String("machine", r.m.Name()))
			return ctx.Err()
		case <-ticker.C:
			r.Step(ctx)
		}
	}
}
