package main

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/imusim/components/movementsensor/simimu"
	"go.viam.com/imusim/config"
	"go.viam.com/imusim/logging"
	"go.viam.com/imusim/physics/fake"
	"go.viam.com/imusim/sensors"
	"go.viam.com/imusim/transport"
	"go.viam.com/imusim/transport/mqtt"
	"go.viam.com/imusim/utils"
)

// simulation wires a kinematic world, a transport and the configured sensors together.
type simulation struct {
	bus     transport.Bus
	node    *transport.Node
	world   *fake.World
	manager *sensors.Manager
	imus    []*simimu.IMU
	logger  logging.Logger
}

func newBus(ctx context.Context, conf config.Transport, logger logging.Logger) (transport.Bus, error) {
	switch conf.Type {
	case config.TransportMQTT:
		clientID := conf.ClientID
		if clientID == "" {
			clientID = "imusim-" + uuid.NewString()
		}
		return mqtt.NewBus(ctx, mqtt.Config{Broker: conf.Broker, ClientID: clientID, QoS: conf.QoS}, logger.Sublogger("mqtt"))
	default:
		return transport.NewLocalBus(logger.Sublogger("bus")), nil
	}
}

func newSimulation(ctx context.Context, conf *config.Config, clk clock.Clock, logger logging.Logger) (_ *simulation, err error) {
	bus, err := newBus(ctx, conf.Transport, logger)
	if err != nil {
		return nil, err
	}
	sim := &simulation{
		bus:    bus,
		node:   transport.NewNode(bus, conf.World.Name, logger.Sublogger("transport")),
		world:  fake.NewWorld(conf.World.Name, logger.Sublogger("world")),
		logger: logger,
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, sim.Close(ctx))
		}
	}()

	if conf.World.Gravity != nil {
		sim.world.SetGravity(*conf.World.Gravity)
	}
	for _, body := range conf.Bodies {
		link := fake.NewLink(body.Model, body.Name, body.Pose.Pose())
		link.SetLinearVel(body.LinearVelocity)
		link.SetAngularVel(body.AngularVelocity)
		if err := sim.world.AddEntity(link); err != nil {
			return nil, err
		}
	}
	if err := sim.world.Serve(sim.node); err != nil {
		return nil, errors.Wrap(err, "serving world requests")
	}

	sim.manager = sensors.NewManager(sim.world, conf.World.StepSize(), clk, logger.Sublogger("sensors"))
	for _, sensorConf := range conf.Sensors {
		switch sensorConf.Type {
		case simimu.ModelName:
			imu, err := simimu.New(simimu.Dependencies{World: sim.world, Node: sim.node}, sensorConf, logger.Sublogger("imu"))
			if err != nil {
				return nil, err
			}
			if err := sim.manager.Add(ctx, imu); err != nil {
				return nil, err
			}
			sim.imus = append(sim.imus, imu)
		default:
			return nil, errors.Errorf("sensor %q has unsupported type %q", sensorConf.Name, sensorConf.Type)
		}
	}
	return sim, nil
}

// Close stops stepping and releases the transport.
func (sim *simulation) Close(ctx context.Context) error {
	var errs error
	if sim.manager != nil {
		errs = multierr.Append(errs, sim.manager.Close(ctx))
	}
	errs = multierr.Append(errs, sim.node.Close())
	return multierr.Append(errs, sim.bus.Close(ctx))
}

// summary renders the last reading of every IMU as a table.
func (sim *simulation) summary() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Name", "Parent", "Stamp", "Orientation", "Angular Velocity", "Linear Acceleration", "Inbox"})
	for i, imu := range sim.imus {
		reading, ok := imu.Reading()
		if !ok {
			t.AppendRow(table.Row{i + 1, imu.Name(), imu.ParentName(), "-", "-", "-", "-", "-"})
			continue
		}
		ori := reading.Orientation.Orientation().EulerAngles()
		av := reading.AngularVelocity
		la := reading.LinearAcceleration
		stats := imu.InboxStats()
		t.AppendRow(table.Row{
			i + 1,
			imu.Name(),
			imu.ParentName(),
			reading.Stamp.Round(time.Microsecond).String(),
			fmt.Sprintf("Roll:%.2f, Pitch:%.2f, Yaw:%.2f", utils.RadToDeg(ori.Roll), utils.RadToDeg(ori.Pitch), utils.RadToDeg(ori.Yaw)),
			fmt.Sprintf("X:%.3f, Y:%.3f, Z:%.3f", av.X, av.Y, av.Z),
			fmt.Sprintf("X:%.3f, Y:%.3f, Z:%.3f", la.X, la.Y, la.Z),
			fmt.Sprintf("%d (every %v)", stats.Count, stats.MeanInterval),
		})
	}
	return t.Render()
}
