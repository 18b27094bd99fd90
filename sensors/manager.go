package sensors

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/imusim/logging"
	"go.viam.com/imusim/physics"
)

// Manager owns the sensors of a world and updates them once per simulation step.
type Manager struct {
	world    physics.World
	stepSize time.Duration
	clock    clock.Clock
	logger   logging.Logger

	mu      sync.Mutex
	sensors []Sensor
	steps   atomic.Int64

	cancelBackgroundWorkers func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewManager returns a manager stepping world by stepSize on every tick of clk.
func NewManager(world physics.World, stepSize time.Duration, clk clock.Clock, logger logging.Logger) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{world: world, stepSize: stepSize, clock: clk, logger: logger}
}

// Add loads and initializes s and registers it for updates.
func (m *Manager) Add(ctx context.Context, s Sensor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := lo.Find(m.sensors, func(other Sensor) bool { return other.Name() == s.Name() }); dup {
		return errors.Errorf("sensor %q already exists", s.Name())
	}
	if err := s.Load(ctx); err != nil {
		return errors.Wrapf(err, "loading sensor %q", s.Name())
	}
	s.Init()
	m.sensors = append(m.sensors, s)
	m.logger.Infow("added sensor", "name", s.Name(), "type", s.Type(), "active", s.IsActive())
	return nil
}

// Sensors returns the registered sensors in registration order.
func (m *Manager) Sensors() []Sensor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sensor(nil), m.sensors...)
}

// SensorByName returns the sensor called name.
func (m *Manager) SensorByName(name string) (Sensor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Find(m.sensors, func(s Sensor) bool { return s.Name() == name })
}

// Step advances the world, if it can be stepped, and then updates every active sensor.
func (m *Manager) Step(ctx context.Context) error {
	if stepper, ok := m.world.(physics.Stepper); ok {
		if err := stepper.Step(ctx, m.stepSize); err != nil {
			return errors.Wrap(err, "stepping world")
		}
	}
	var errs error
	for _, s := range m.Sensors() {
		if !s.IsActive() {
			continue
		}
		if _, err := s.Update(ctx, false); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "updating sensor %q", s.Name()))
		}
	}
	m.steps.Inc()
	return errs
}

// Steps returns how many steps have completed.
func (m *Manager) Steps() int64 {
	return m.steps.Load()
}

// Start steps the world on every tick of the manager's clock until Close or ctx is done.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancelBackgroundWorkers = cancel
	m.mu.Unlock()

	ticker := m.clock.Ticker(m.stepSize)
	m.activeBackgroundWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer m.activeBackgroundWorkers.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Step(ctx); err != nil {
					m.logger.Warnw("step failed", "step", m.Steps(), "error", err)
				}
			}
		}
	})
}

// Close stops the step loop and closes every sensor.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	cancel := m.cancelBackgroundWorkers
	m.cancelBackgroundWorkers = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.activeBackgroundWorkers.Wait()

	var (
		g       errgroup.Group
		errsMu  sync.Mutex
		allErrs error
	)
	for _, s := range m.Sensors() {
		s := s
		g.Go(func() error {
			s.SetActive(false)
			if err := s.Close(ctx); err != nil {
				errsMu.Lock()
				allErrs = multierr.Append(allErrs, errors.Wrapf(err, "closing sensor %q", s.Name()))
				errsMu.Unlock()
			}
			return nil
		})
	}
	return multierr.Append(g.Wait(), allErrs)
}
