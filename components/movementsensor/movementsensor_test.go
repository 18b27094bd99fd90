package movementsensor

import (
	"context"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/imusim/spatialmath"
)

type inertialOnly struct {
	orientationErr error
}

func (s *inertialOnly) LinearVelocity(ctx context.Context, extra map[string]interface{}) (r3.Vector, error) {
	return r3.Vector{}, ErrMethodUnimplementedLinearVelocity
}

func (s *inertialOnly) AngularVelocity(ctx context.Context, extra map[string]interface{}) (spatialmath.AngularVelocity, error) {
	return spatialmath.AngularVelocity{Z: 1}, nil
}

func (s *inertialOnly) LinearAcceleration(ctx context.Context, extra map[string]interface{}) (r3.Vector, error) {
	return r3.Vector{Z: 9.8}, nil
}

func (s *inertialOnly) CompassHeading(ctx context.Context, extra map[string]interface{}) (float64, error) {
	return 0, ErrMethodUnimplementedCompassHeading
}

func (s *inertialOnly) Orientation(ctx context.Context, extra map[string]interface{}) (spatialmath.Orientation, error) {
	if s.orientationErr != nil {
		return nil, s.orientationErr
	}
	return spatialmath.NewZeroOrientation(), nil
}

func (s *inertialOnly) Properties(ctx context.Context, extra map[string]interface{}) (*Properties, error) {
	return &Properties{AngularVelocitySupported: true, OrientationSupported: true, LinearAccelerationSupported: true}, nil
}

func (s *inertialOnly) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	return Readings(ctx, s, extra)
}

func (s *inertialOnly) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	return nil, nil
}

func (s *inertialOnly) Close(ctx context.Context) error { return nil }

func TestReadings(t *testing.T) {
	ctx := context.Background()
	readings, err := (&inertialOnly{}).Readings(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readings, test.ShouldHaveLength, 3)
	test.That(t, readings["linear_acceleration"], test.ShouldResemble, r3.Vector{Z: 9.8})
	test.That(t, readings["angular_velocity"], test.ShouldResemble, spatialmath.AngularVelocity{Z: 1})
	test.That(t, readings, test.ShouldContainKey, "orientation")
	test.That(t, readings, test.ShouldNotContainKey, "compass")

	_, err = (&inertialOnly{orientationErr: errors.New("not ready")}).Readings(ctx, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldEqual, "not ready")
}
