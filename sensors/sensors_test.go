package sensors

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/imusim/logging"
	"go.viam.com/imusim/physics/fake"
)

type countingSensor struct {
	*Base
	loadErr  error
	closeErr error
	updates  atomic.Int64
	closed  atomic.Bool
}

func (s *countingSensor) Load(ctx context.Context) error { return s.loadErr }

func (s *countingSensor) Update(ctx context.Context, force bool) (bool, error) {
	now := s.World().SimTime()
	if !force && !s.NeedsUpdate(now) {
		return false, nil
	}
	s.updates.Inc()
	s.MarkUpdated(now)
	return true, nil
}

func (s *countingSensor) Close(ctx context.Context) error {
	s.closed.Store(true)
	return s.closeErr
}

func TestConfigValidate(t *testing.T) {
	conf := Config{}
	err := conf.Validate("sensors.0")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "name")

	conf.Name = "imu"
	test.That(t, conf.Validate("sensors.0").Error(), test.ShouldContainSubstring, "type")
	conf.Type = "imu"
	test.That(t, conf.Validate("sensors.0").Error(), test.ShouldContainSubstring, "parent")
	conf.Parent = "box::link"
	conf.UpdateRate = -1
	test.That(t, conf.Validate("sensors.0"), test.ShouldNotBeNil)
	conf.UpdateRate = 100
	test.That(t, conf.Validate("sensors.0"), test.ShouldBeNil)
}

func TestTopic(t *testing.T) {
	for _, tc := range []struct {
		topic    string
		expected string
	}{
		{"", "~/box/link/imu_sensor/imu"},
		{DefaultTopic, "~/box/link/imu_sensor/imu"},
		{"~/custom::imu", "~/custom/imu"},
		{"/absolute", "/absolute"},
	} {
		b := NewBase(Config{Name: "imu_sensor", Type: "imu", Parent: "box::link", Topic: tc.topic}, nil)
		test.That(t, b.Topic(), test.ShouldEqual, tc.expected)
	}
}

func TestNeedsUpdate(t *testing.T) {
	b := NewBase(Config{Name: "s", Type: "imu", Parent: "p", UpdateRate: 10}, nil)
	test.That(t, b.UpdatePeriod(), test.ShouldEqual, 100*time.Millisecond)
	test.That(t, b.NeedsUpdate(0), test.ShouldBeTrue)
	b.MarkUpdated(50 * time.Millisecond)
	test.That(t, b.NeedsUpdate(100*time.Millisecond), test.ShouldBeFalse)
	test.That(t, b.NeedsUpdate(150*time.Millisecond), test.ShouldBeTrue)
	// reset world
	test.That(t, b.NeedsUpdate(0), test.ShouldBeTrue)

	last, ok := b.LastUpdateTime()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, last, test.ShouldEqual, 50*time.Millisecond)

	every := NewBase(Config{Name: "s", Type: "imu", Parent: "p"}, nil)
	every.MarkUpdated(time.Second)
	test.That(t, every.NeedsUpdate(time.Second), test.ShouldBeTrue)
}

func TestInit(t *testing.T) {
	b := NewBase(Config{Name: "s", Type: "imu", Parent: "p", AlwaysOn: true}, nil)
	test.That(t, b.IsActive(), test.ShouldBeFalse)
	b.Init()
	test.That(t, b.IsActive(), test.ShouldBeTrue)
	b.SetActive(false)
	test.That(t, b.IsActive(), test.ShouldBeFalse)
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	world := fake.NewWorld("default", logger)
	mockClock := clock.NewMock()
	m := NewManager(world, 10*time.Millisecond, mockClock, logger)

	on := &countingSensor{Base: NewBase(Config{Name: "on", Type: "imu", Parent: "p", AlwaysOn: true, UpdateRate: 50}, world)}
	off := &countingSensor{Base: NewBase(Config{Name: "off", Type: "imu", Parent: "p"}, world)}
	broken := &countingSensor{
		Base:    NewBase(Config{Name: "broken", Type: "imu", Parent: "p", AlwaysOn: true}, world),
		loadErr: errors.New("no parent"),
	}
	test.That(t, m.Add(ctx, on), test.ShouldBeNil)
	test.That(t, m.Add(ctx, off), test.ShouldBeNil)
	test.That(t, m.Add(ctx, on), test.ShouldNotBeNil)
	err := m.Add(ctx, broken)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no parent")
	test.That(t, broken.IsActive(), test.ShouldBeFalse)
	test.That(t, m.Sensors(), test.ShouldHaveLength, 2)

	s, ok := m.SensorByName("off")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, s.Name(), test.ShouldEqual, "off")

	for i := 0; i < 4; i++ {
		test.That(t, m.Step(ctx), test.ShouldBeNil)
	}
	test.That(t, m.Steps(), test.ShouldEqual, 4)
	test.That(t, world.SimTime(), test.ShouldEqual, 40*time.Millisecond)
	// 50Hz over 10ms steps: updates at 10ms and 30ms
	test.That(t, on.updates.Load(), test.ShouldEqual, 2)
	test.That(t, off.updates.Load(), test.ShouldEqual, 0)

	m.Start(ctx)
	mockClock.Add(10 * time.Millisecond)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, m.Steps(), test.ShouldEqual, 5)
	})

	test.That(t, m.Close(ctx), test.ShouldBeNil)
	test.That(t, on.closed.Load(), test.ShouldBeTrue)
	test.That(t, off.closed.Load(), test.ShouldBeTrue)
	test.That(t, on.IsActive(), test.ShouldBeFalse)
}

func TestManagerCloseCombinesErrors(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	world := fake.NewWorld("default", logger)
	m := NewManager(world, 10*time.Millisecond, clock.NewMock(), logger)

	for _, name := range []string{"a", "b", "c"} {
		s := &countingSensor{Base: NewBase(Config{Name: name, Type: "imu", Parent: "p"}, world)}
		if name != "b" {
			s.closeErr = errors.Errorf("%s is stuck", name)
		}
		test.That(t, m.Add(ctx, s), test.ShouldBeNil)
	}

	err := m.Close(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 2)
	test.That(t, err.Error(), test.ShouldContainSubstring, `closing sensor "a": a is stuck`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `closing sensor "c": c is stuck`)
	for _, s := range m.Sensors() {
		test.That(t, s.(*countingSensor).closed.Load(), test.ShouldBeTrue)
	}
}
