// Package movementsensor defines the interfaces of a MovementSensor
package movementsensor

import (
	"context"
	"errors"

	"github.com/golang/geo/r3"

	"go.viam.com/imusim/spatialmath"
)

// Properties tells you what a MovementSensor supports.
type Properties struct {
	LinearVelocitySupported     bool `json:"linear_velocity_supported"`
	AngularVelocitySupported    bool `json:"angular_velocity_supported"`
	OrientationSupported        bool `json:"orientation_supported"`
	CompassHeadingSupported     bool `json:"compass_heading_supported"`
	LinearAccelerationSupported bool `json:"linear_acceleration_supported"`
}

// A MovementSensor reports information about the robot's direction, position and speed.
type MovementSensor interface {
	LinearVelocity(ctx context.Context, extra map[string]interface{}) (r3.Vector, error)                    // m / sec
	AngularVelocity(ctx context.Context, extra map[string]interface{}) (spatialmath.AngularVelocity, error) // radians / sec
	LinearAcceleration(ctx context.Context, extra map[string]interface{}) (r3.Vector, error)                // m / sec^2
	CompassHeading(ctx context.Context, extra map[string]interface{}) (float64, error)                     // [0->360)
	Orientation(ctx context.Context, extra map[string]interface{}) (spatialmath.Orientation, error)
	Properties(ctx context.Context, extra map[string]interface{}) (*Properties, error)
	Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error)
	DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error)
	Close(ctx context.Context) error
}

// Readings is a helper for getting all readings from a MovementSensor.
func Readings(ctx context.Context, g MovementSensor, extra map[string]interface{}) (map[string]interface{}, error) {
	readings := map[string]interface{}{}

	vel, err := g.LinearVelocity(ctx, extra)
	if err != nil {
		if !errors.Is(err, ErrMethodUnimplementedLinearVelocity) {
			return nil, err
		}
	} else {
		readings["linear_velocity"] = vel
	}

	la, err := g.LinearAcceleration(ctx, extra)
	if err != nil {
		if !errors.Is(err, ErrMethodUnimplementedLinearAcceleration) {
			return nil, err
		}
	} else {
		readings["linear_acceleration"] = la
	}

	avel, err := g.AngularVelocity(ctx, extra)
	if err != nil {
		if !errors.Is(err, ErrMethodUnimplementedAngularVelocity) {
			return nil, err
		}
	} else {
		readings["angular_velocity"] = avel
	}

	compass, err := g.CompassHeading(ctx, extra)
	if err != nil {
		if !errors.Is(err, ErrMethodUnimplementedCompassHeading) {
			return nil, err
		}
	} else {
		readings["compass"] = compass
	}

	ori, err := g.Orientation(ctx, extra)
	if err != nil {
		if !errors.Is(err, ErrMethodUnimplementedOrientation) {
			return nil, err
		}
	} else {
		readings["orientation"] = ori
	}

	return readings, nil
}
