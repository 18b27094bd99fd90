package simimu

import (
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/imusim/spatialmath"
)

// referenceFrame is the state readings are computed against: the orientation baseline and
// the last velocity sample used for differentiation.
type referenceFrame struct {
	// mount is the pose of the sensor in its parent link frame.
	mount     spatialmath.Pose
	reference spatialmath.Pose

	lastLinearVel   r3.Vector
	lastMeasurement time.Duration
	// hasMeasurement is false until lastLinearVel and lastMeasurement describe a real sample.
	hasMeasurement bool
}

func newReferenceFrame(mount spatialmath.Pose) *referenceFrame {
	if mount == nil {
		mount = spatialmath.NewZeroPose()
	}
	return &referenceFrame{mount: mount, reference: mount}
}

// sensorPose is the world pose of the sensor mounted on a link at linkPose.
func (rf *referenceFrame) sensorPose(linkPose spatialmath.Pose) spatialmath.Pose {
	return spatialmath.Compose(linkPose, rf.mount)
}

// establish makes the current sensor orientation the zero of all reported orientations.
func (rf *referenceFrame) establish(linkPose spatialmath.Pose) {
	rf.reference = rf.sensorPose(linkPose)
}

// resetVelocityBaseline forgets the last velocity sample so the next step seeds it instead of
// differentiating.
func (rf *referenceFrame) resetVelocityBaseline() {
	rf.lastLinearVel = r3.Vector{}
	rf.lastMeasurement = 0
	rf.hasMeasurement = false
}
