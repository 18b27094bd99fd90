package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

// represent a 45 degree rotation around the x axis in all the representations
var (
	th    = math.Pi / 4.
	q45x  = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.)} // in quaternion representation
	ea45x = &EulerAngles{Roll: th, Pitch: 0, Yaw: 0}                     // in euler angle representation
)

func TestZeroOrientation(t *testing.T) {
	zero := NewZeroOrientation()
	test.That(t, zero.Quaternion(), test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, zero.EulerAngles(), test.ShouldResemble, NewEulerAngles())
}

func TestQuaternions(t *testing.T) {
	qq45x := quaternion(q45x)
	test.That(t, qq45x.Quaternion().Real, test.ShouldAlmostEqual, q45x.Real)
	test.That(t, qq45x.Quaternion().Imag, test.ShouldAlmostEqual, q45x.Imag)
	test.That(t, qq45x.EulerAngles().Roll, test.ShouldAlmostEqual, ea45x.Roll)
	test.That(t, qq45x.EulerAngles().Pitch, test.ShouldAlmostEqual, ea45x.Pitch)
	test.That(t, qq45x.EulerAngles().Yaw, test.ShouldAlmostEqual, ea45x.Yaw)
}

func TestEulerAngles(t *testing.T) {
	test.That(t, ea45x.Quaternion().Real, test.ShouldAlmostEqual, q45x.Real)
	test.That(t, ea45x.Quaternion().Imag, test.ShouldAlmostEqual, q45x.Imag)
	test.That(t, ea45x.Quaternion().Jmag, test.ShouldAlmostEqual, q45x.Jmag)
	test.That(t, ea45x.Quaternion().Kmag, test.ShouldAlmostEqual, q45x.Kmag)

	t.Run("round trip", func(t *testing.T) {
		ea := &EulerAngles{Roll: 0.1, Pitch: -0.4, Yaw: 2.0}
		back := QuatToEulerAngles(ea.Quaternion())
		test.That(t, back.Roll, test.ShouldAlmostEqual, ea.Roll)
		test.That(t, back.Pitch, test.ShouldAlmostEqual, ea.Pitch)
		test.That(t, back.Yaw, test.ShouldAlmostEqual, ea.Yaw)
	})

	t.Run("yaw only", func(t *testing.T) {
		q := (&EulerAngles{Yaw: math.Pi / 2}).Quaternion()
		test.That(t, q.Real, test.ShouldAlmostEqual, math.Sqrt2/2)
		test.That(t, q.Kmag, test.ShouldAlmostEqual, math.Sqrt2/2)
	})
}

func TestRotateVector(t *testing.T) {
	yaw90 := (&EulerAngles{Yaw: math.Pi / 2}).Quaternion()

	rotated := RotateVector(yaw90, r3.Vector{X: 1})
	test.That(t, R3VectorAlmostEqual(rotated, r3.Vector{Y: 1}, 1e-9), test.ShouldBeTrue)

	back := InverseRotateVector(yaw90, rotated)
	test.That(t, R3VectorAlmostEqual(back, r3.Vector{X: 1}, 1e-9), test.ShouldBeTrue)

	// expressing world gravity in a body rolled upside down flips its sign
	roll180 := (&EulerAngles{Roll: math.Pi}).Quaternion()
	g := InverseRotateVector(roll180, r3.Vector{Z: -9.8})
	test.That(t, R3VectorAlmostEqual(g, r3.Vector{Z: 9.8}, 1e-9), test.ShouldBeTrue)
}

func TestOrientationBetween(t *testing.T) {
	o1 := &EulerAngles{Yaw: 0.3}
	o2 := &EulerAngles{Yaw: 1.0}

	between := OrientationBetween(o1, o2)
	test.That(t, between.EulerAngles().Yaw, test.ShouldAlmostEqual, 0.7)

	identity := OrientationBetween(o1, o1)
	test.That(t, OrientationAlmostEqual(identity, NewZeroOrientation()), test.ShouldBeTrue)

	inv := OrientationInverse(o2)
	test.That(t, inv.EulerAngles().Yaw, test.ShouldAlmostEqual, -1.0)
}

func TestQuaternionAlmostEqual(t *testing.T) {
	test.That(t, QuaternionAlmostEqual(q45x, Flip(q45x), 1e-9), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(q45x, quat.Number{Real: 1}, 1e-3), test.ShouldBeFalse)
}

func TestNormalize(t *testing.T) {
	test.That(t, Normalize(quat.Number{}), test.ShouldResemble, quat.Number{Real: 1})
	n := Normalize(quat.Number{Real: 2, Kmag: 2})
	test.That(t, quat.Abs(n), test.ShouldAlmostEqual, 1.)
	test.That(t, n.Real, test.ShouldAlmostEqual, math.Sqrt2/2)
}
