package spatialmath

import (
	"github.com/golang/geo/r3"
)

// AngularVelocity contains angular velocity in rad/s across x/y/z axes.
type AngularVelocity r3.Vector

// R3ToAngVel converts an r3.Vector to an AngularVelocity.
func R3ToAngVel(vec r3.Vector) AngularVelocity {
	return AngularVelocity{X: vec.X, Y: vec.Y, Z: vec.Z}
}

// Vector returns the angular velocity as an r3.Vector.
func (av AngularVelocity) Vector() r3.Vector {
	return r3.Vector(av)
}
