package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/imusim/config"
	"go.viam.com/imusim/logging"
	"go.viam.com/imusim/sensors"
	"go.viam.com/imusim/spatialmath"
)

func testConfig() *config.Config {
	return &config.Config{
		World: config.World{Name: "default", StepSizeSec: 0.01},
		Bodies: []config.Body{{
			Name:            "link",
			Model:           "box",
			Pose:            spatialmath.PoseConfig{Z: 0.5},
			AngularVelocity: r3.Vector{Z: 0.3},
		}},
		Sensors: []sensors.Config{{
			Name:     "imu_sensor",
			Type:     "imu",
			Parent:   "box::link",
			AlwaysOn: true,
		}},
	}
}

func TestSimulation(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	sim, err := newSimulation(ctx, testConfig(), clock.NewMock(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sim.imus, test.ShouldHaveLength, 1)
	test.That(t, sim.summary(), test.ShouldContainSubstring, "imu_sensor")

	for i := 0; i < 3; i++ {
		test.That(t, sim.manager.Step(ctx), test.ShouldBeNil)
	}
	imu := sim.imus[0]
	reading, ok := imu.Reading()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, reading.AngularVelocity.Z, test.ShouldAlmostEqual, 0.3)
	test.That(t, reading.LinearAcceleration.Z, test.ShouldAlmostEqual, 9.8)
	test.That(t, imu.InboxLen(), test.ShouldEqual, 3)

	summary := sim.summary()
	test.That(t, summary, test.ShouldContainSubstring, "box::link")
	test.That(t, summary, test.ShouldContainSubstring, "Z:9.800")

	test.That(t, sim.Close(ctx), test.ShouldBeNil)
	test.That(t, imu.IsActive(), test.ShouldBeFalse)
}

func TestSimulationInvalid(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	conf := testConfig()
	conf.Sensors[0].Type = "gps"
	_, err := newSimulation(ctx, conf, clock.NewMock(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unsupported type "gps"`)

	conf = testConfig()
	conf.Sensors[0].Parent = "box::missing"
	_, err = newSimulation(ctx, conf, clock.NewMock(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid parent")

	conf = testConfig()
	conf.Bodies = append(conf.Bodies, conf.Bodies[0])
	_, err = newSimulation(ctx, conf, clock.NewMock(), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRunStopsWithContext(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := run(ctx, testConfig(), clock.NewMock(), logger, true, &out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "imu_sensor")
}

func TestApp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imusim.json")
	test.That(t, os.WriteFile(path, []byte(`{
		"world": {"name": "default", "step_size_sec": 0.001},
		"bodies": [{"name": "link", "model": "box", "pose": {}}],
		"sensors": [{"name": "imu_sensor", "type": "imu", "parent": "box::link", "always_on": true}]
	}`), 0o600), test.ShouldBeNil)

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run([]string{"imusim", "-c", path, "--duration", (50 * time.Millisecond).String(), "--summary"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "imu_sensor")

	err = newApp().Run([]string{"imusim", "-c", filepath.Join(t.TempDir(), "missing.json")})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "reading config")
}

func TestSampleConfig(t *testing.T) {
	t.Setenv("IMUSIM_TRANSPORT", "local")
	conf, err := config.Read(context.Background(), filepath.Join("..", "..", "etc", "configs", "spinning_box.yaml"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Transport.Type, test.ShouldEqual, config.TransportLocal)
	test.That(t, conf.Sensors, test.ShouldHaveLength, 1)
	test.That(t, conf.Bodies[0].ScopedName(), test.ShouldEqual, conf.Sensors[0].Parent)
}
