package simimu

import (
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/imusim/spatialmath"
)

// kinematics is everything the engine needs from the world for one step.
type kinematics struct {
	now      time.Duration
	linkPose spatialmath.Pose
	// angularVel is the world frame angular velocity of the link.
	angularVel r3.Vector
	// linearVel is the world frame linear velocity of the mount point.
	linearVel r3.Vector
	gravity   r3.Vector
}

type reading struct {
	stamp              time.Duration
	orientation        quat.Number
	angularVelocity    r3.Vector
	linearAcceleration r3.Vector

	// set when the acceleration was re-estimated this step
	differentiated bool
	dt             time.Duration
}

// engine turns world frame kinematics into body frame readings.
type engine struct {
	frame *referenceFrame
	// rawAcc is the last finite difference estimate, without gravity.
	rawAcc r3.Vector
}

func (e *engine) step(k kinematics) reading {
	imuPose := e.frame.sensorPose(k.linkPose)
	imuRot := imuPose.Orientation().Quaternion()
	refRot := e.frame.reference.Orientation().Quaternion()

	r := reading{
		stamp:           k.now,
		orientation:     spatialmath.Normalize(quat.Mul(imuRot, quat.Conj(refRot))),
		angularVelocity: spatialmath.InverseRotateVector(imuRot, k.angularVel),
	}

	switch {
	case !e.frame.hasMeasurement:
		// first sample: there is nothing to differentiate against yet
		e.frame.lastLinearVel = k.linearVel
		e.frame.lastMeasurement = k.now
		e.frame.hasMeasurement = true
	case k.now > e.frame.lastMeasurement:
		dt := k.now - e.frame.lastMeasurement
		dv := k.linearVel.Sub(e.frame.lastLinearVel).Mul(1 / dt.Seconds())
		e.rawAcc = spatialmath.InverseRotateVector(imuRot, dv)
		e.frame.lastLinearVel = k.linearVel
		e.frame.lastMeasurement = k.now
		r.differentiated = true
		r.dt = dt
	}

	// gravity is removed from the retained estimate on every step, in the current frame
	gravityComp := spatialmath.InverseRotateVector(imuRot, k.gravity)
	r.linearAcceleration = e.rawAcc.Sub(gravityComp)
	return r
}
