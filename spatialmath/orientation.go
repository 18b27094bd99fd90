// Package spatialmath defines spatial mathematical operations: orientations, poses and
// their composition.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Orientation is an interface used to express the different parameterizations of the orientation
// of a rigid object or a frame of reference in 3D Euclidean space.
type Orientation interface {
	Quaternion() quat.Number
	EulerAngles() *EulerAngles
}

// NewZeroOrientation returns an orientatation which signifies no rotation.
func NewZeroOrientation() Orientation {
	return &quaternion{1, 0, 0, 0}
}

// QuatToOrientation wraps a quaternion as an Orientation. The quaternion is normalized first; a zero
// quaternion becomes the identity.
func QuatToOrientation(q quat.Number) Orientation {
	n := quaternion(Normalize(q))
	return &n
}

// OrientationAlmostEqual will return a bool describing whether 2 poses have approximately the same orientation.
func OrientationAlmostEqual(o1, o2 Orientation) bool {
	return QuaternionAlmostEqual(o1.Quaternion(), o2.Quaternion(), 1e-5)
}

// OrientationBetween returns the orientation representing the difference between the two given Orientations.
func OrientationBetween(o1, o2 Orientation) Orientation {
	q := quaternion(quat.Mul(o2.Quaternion(), quat.Conj(o1.Quaternion())))
	return &q
}

// OrientationInverse returns the orientation representing the opposite rotation of the given one.
func OrientationInverse(o Orientation) Orientation {
	q := quaternion(quat.Conj(o.Quaternion()))
	return &q
}

// QuaternionAlmostEqual is an equality test for two quaternions. q and -q describe the same rotation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	same := withinTol(a.Real, b.Real, tol) && withinTol(a.Imag, b.Imag, tol) &&
		withinTol(a.Jmag, b.Jmag, tol) && withinTol(a.Kmag, b.Kmag, tol)
	if same {
		return true
	}
	b = Flip(b)
	return withinTol(a.Real, b.Real, tol) && withinTol(a.Imag, b.Imag, tol) &&
		withinTol(a.Jmag, b.Jmag, tol) && withinTol(a.Kmag, b.Kmag, tol)
}

// Normalize returns the unit quaternion pointing the same way as q. The zero quaternion maps to the identity.
func Normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// RotateVector rotates v by the unit quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// InverseRotateVector rotates v by the inverse of the unit quaternion q, i.e. expresses a vector given in
// the outer frame in the frame described by q.
func InverseRotateVector(q quat.Number, v r3.Vector) r3.Vector {
	return RotateVector(quat.Conj(q), v)
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}

func withinTol(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
