// Package config defines the structures to configure a simulated world and the sensors in it.
package config

import (
	"fmt"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/imusim/physics"
	"go.viam.com/imusim/sensors"
	"go.viam.com/imusim/spatialmath"
)

// Transport types.
const (
	TransportLocal = "local"
	TransportMQTT  = "mqtt"
)

// DefaultStepSize is the simulation step used when none is configured.
const DefaultStepSize = time.Millisecond

// Config describes a world, the bodies moving in it and the sensors attached to them.
type Config struct {
	ConfigFilePath string `json:"-"`

	World     World            `json:"world"`
	Transport Transport        `json:"transport"`
	Bodies    []Body           `json:"bodies,omitempty"`
	Sensors   []sensors.Config `json:"sensors,omitempty"`
}

// Ensure ensures all parts of the config are valid and fills in defaults.
func (c *Config) Ensure() error {
	if err := c.World.Validate("world"); err != nil {
		return err
	}
	if err := c.Transport.Validate("transport"); err != nil {
		return err
	}

	seenBodies := make(map[string]struct{}, len(c.Bodies))
	for idx := range c.Bodies {
		body := &c.Bodies[idx]
		if err := body.Validate(fmt.Sprintf("%s.%d", "bodies", idx)); err != nil {
			return err
		}
		if _, ok := seenBodies[body.ScopedName()]; ok {
			return errors.Errorf("body name %q is not unique", body.ScopedName())
		}
		seenBodies[body.ScopedName()] = struct{}{}
	}

	seenSensors := make(map[string]struct{}, len(c.Sensors))
	for idx := range c.Sensors {
		conf := &c.Sensors[idx]
		if err := conf.Validate(fmt.Sprintf("%s.%d", "sensors", idx)); err != nil {
			return err
		}
		if _, ok := seenSensors[conf.Name]; ok {
			return errors.Errorf("sensor name %q is not unique", conf.Name)
		}
		seenSensors[conf.Name] = struct{}{}
	}
	return nil
}

// World configures the physics world.
type World struct {
	Name        string     `json:"name"`
	Gravity     *r3.Vector `json:"gravity,omitempty"`
	StepSizeSec float64    `json:"step_size_sec,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (w *World) Validate(path string) error {
	if w.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if w.StepSizeSec < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("step_size_sec cannot be negative, got %v", w.StepSizeSec))
	}
	return nil
}

// StepSize returns the configured step, or DefaultStepSize.
func (w *World) StepSize() time.Duration {
	if w.StepSizeSec == 0 {
		return DefaultStepSize
	}
	return time.Duration(w.StepSizeSec * float64(time.Second))
}

// Transport selects how messages move between the world and the sensors.
type Transport struct {
	Type     string `json:"type,omitempty"`
	Broker   string `json:"broker,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	QoS      byte   `json:"qos,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (t *Transport) Validate(path string) error {
	switch t.Type {
	case "", TransportLocal:
	case TransportMQTT:
		if t.Broker == "" {
			return utils.NewConfigValidationFieldRequiredError(path, "broker")
		}
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown transport type %q", t.Type))
	}
	return nil
}

// Body is a link moving with constant velocities.
type Body struct {
	Name            string                 `json:"name"`
	Model           string                 `json:"model,omitempty"`
	Pose            spatialmath.PoseConfig `json:"pose"`
	LinearVelocity  r3.Vector              `json:"linear_velocity"`
	AngularVelocity r3.Vector              `json:"angular_velocity"`
}

// Validate ensures all parts of the config are valid.
func (b *Body) Validate(path string) error {
	if b.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	return nil
}

// ScopedName is model::name, or name when there is no model.
func (b *Body) ScopedName() string {
	if b.Model == "" {
		return b.Name
	}
	return physics.ScopedName(b.Model, b.Name)
}
