package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof pose, position and orientation, with respect to the origin.
// The Point() method returns the position in (x,y,z) and the Orientation() method returns the orientation.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

// dualQuaternion defines a rigid transform with the rotation in the real part and
// one half of the translation (rotated) in the dual part.
type dualQuaternion struct {
	dualquat.Number
}

// NewZeroPose returns a pose at (0,0,0) with same orientation as whatever frame it is placed in.
func NewZeroPose() Pose {
	return newDualQuaternion()
}

// NewPose takes in a position and orientation and returns a Pose. A nil orientation is the identity.
func NewPose(point r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(point)
	}
	q := newDualQuaternion()
	q.Real = Normalize(o.Quaternion())
	q.setTranslation(point)
	return q
}

// NewPoseFromOrientation takes in an orientation and returns a Pose at the origin.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	q := newDualQuaternion()
	q.setTranslation(point)
	return q
}

// Compose takes two poses and returns b expressed in the frame that a is expressed in:
// the rotation is a.rot*b.rot and the translation is a.pt + a.rot.rotate(b.pt).
func Compose(a, b Pose) Pose {
	result := &dualQuaternion{dualquat.Mul(dualQuaternionFromPose(a).Number, dualQuaternionFromPose(b).Number)}
	// Keep the rotation a unit quaternion across long chains of compositions.
	if vecLen := quat.Abs(result.Real); vecLen != 1 && vecLen != 0 {
		result.Real = quat.Scale(1/vecLen, result.Real)
		result.Dual = quat.Scale(1/vecLen, result.Dual)
	}
	return result
}

// PoseInverse returns a pose that, composed with p, yields the zero pose.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(p.Orientation().Quaternion())
	return NewPose(RotateVector(inv, p.Point()).Mul(-1), QuatToOrientation(inv))
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostCoincidentEps(a, b, 1e-6) && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// PoseAlmostCoincidentEps will return a bool describing whether 2 poses approximately are at the same 3D coordinate location.
// This uses a passed in epsilon value.
func PoseAlmostCoincidentEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon)
}

// PrettyPrint returns a formatted string of a pose: position in the units of the pose and
// roll/pitch/yaw in radians.
func PrettyPrint(p Pose) string {
	pt := p.Point()
	ea := p.Orientation().EulerAngles()
	return fmt.Sprintf("{X:%.3f Y:%.3f Z:%.3f Roll:%.3f Pitch:%.3f Yaw:%.3f}", pt.X, pt.Y, pt.Z, ea.Roll, ea.Pitch, ea.Yaw)
}

func newDualQuaternion() *dualQuaternion {
	return &dualQuaternion{dualquat.Number{
		Real: quat.Number{Real: 1},
		Dual: quat.Number{},
	}}
}

func dualQuaternionFromPose(p Pose) *dualQuaternion {
	if q, ok := p.(*dualQuaternion); ok {
		return q
	}
	return NewPose(p.Point(), p.Orientation()).(*dualQuaternion)
}

// Point multiplies the dual quaternion by its own conjugate to give a dq where the real is the identity quat,
// and the dual is representative of the translation.
func (q *dualQuaternion) Point() r3.Vector {
	tQuat := quat.Scale(2, quat.Mul(q.Dual, quat.Conj(q.Real)))
	return r3.Vector{X: tQuat.Imag, Y: tQuat.Jmag, Z: tQuat.Kmag}
}

// Orientation returns the rotation quaternion as an Orientation.
func (q *dualQuaternion) Orientation() Orientation {
	o := quaternion(q.Real)
	return &o
}

// setTranslation correctly sets the translation quaternion against the rotation.
func (q *dualQuaternion) setTranslation(pt r3.Vector) {
	q.Dual = quat.Mul(quat.Number{Imag: pt.X / 2, Jmag: pt.Y / 2, Kmag: pt.Z / 2}, q.Real)
}
