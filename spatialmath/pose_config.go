package spatialmath

import (
	"github.com/golang/geo/r3"
)

// PoseConfig is the serializable form of a pose: a translation plus roll/pitch/yaw in radians.
type PoseConfig struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Pose converts the config into a Pose.
func (pc PoseConfig) Pose() Pose {
	return NewPose(r3.Vector{X: pc.X, Y: pc.Y, Z: pc.Z}, &EulerAngles{Roll: pc.Roll, Pitch: pc.Pitch, Yaw: pc.Yaw})
}

// NewPoseConfig converts a Pose back into its serializable form.
func NewPoseConfig(p Pose) PoseConfig {
	pt := p.Point()
	ea := p.Orientation().EulerAngles()
	return PoseConfig{X: pt.X, Y: pt.Y, Z: pt.Z, Roll: ea.Roll, Pitch: ea.Pitch, Yaw: ea.Yaw}
}
