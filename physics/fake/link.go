// Package fake implements a kinematic physics world: links move with constant linear and
// angular velocity and gravity is a constant vector. It answers link_publish requests the
// way a physics server does and publishes link kinematics on every step.
package fake

import (
	"sync"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/imusim/physics"
	"go.viam.com/imusim/spatialmath"
)

// Link is a rigid body moving with constant world frame velocities.
type Link struct {
	name  string
	model string

	mu     sync.Mutex
	pose   spatialmath.Pose
	linVel r3.Vector
	angVel r3.Vector
}

// NewLink returns a link named model::name at pose.
func NewLink(model, name string, pose spatialmath.Pose) *Link {
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	return &Link{name: name, model: model, pose: pose}
}

// Name implements physics.Entity.
func (l *Link) Name() string {
	return l.name
}

// ScopedName implements physics.Entity.
func (l *Link) ScopedName() string {
	if l.model == "" {
		return l.name
	}
	return physics.ScopedName(l.model, l.name)
}

// WorldPose implements physics.Entity.
func (l *Link) WorldPose() spatialmath.Pose {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pose
}

// WorldLinearVel is the velocity of the point at offset from the link origin: v + ω × R·offset.
func (l *Link) WorldLinearVel(offset r3.Vector) r3.Vector {
	l.mu.Lock()
	defer l.mu.Unlock()
	arm := spatialmath.RotateVector(l.pose.Orientation().Quaternion(), offset)
	return l.linVel.Add(l.angVel.Cross(arm))
}

// WorldAngularVel implements physics.Link.
func (l *Link) WorldAngularVel() r3.Vector {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.angVel
}

// SetWorldPose teleports the link.
func (l *Link) SetWorldPose(pose spatialmath.Pose) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pose = pose
}

// SetLinearVel sets the world frame linear velocity of the link origin.
func (l *Link) SetLinearVel(v r3.Vector) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.linVel = v
}

// SetAngularVel sets the world frame angular velocity.
func (l *Link) SetAngularVel(w r3.Vector) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.angVel = w
}

// integrate advances the pose by seconds.
func (l *Link) integrate(seconds float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pt := l.pose.Point().Add(l.linVel.Mul(seconds))
	q := l.pose.Orientation().Quaternion()
	half := l.angVel.Mul(seconds / 2)
	dq := quat.Exp(quat.Number{Imag: half.X, Jmag: half.Y, Kmag: half.Z})
	l.pose = spatialmath.NewPose(pt, spatialmath.QuatToOrientation(quat.Mul(dq, q)))
}

// Model is an entity that is not a link, e.g. a model frame or a light.
type Model struct {
	name string
	pose spatialmath.Pose
}

// NewModel returns a model named name at pose.
func NewModel(name string, pose spatialmath.Pose) *Model {
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	return &Model{name: name, pose: pose}
}

// Name implements physics.Entity.
func (m *Model) Name() string { return m.name }

// ScopedName implements physics.Entity.
func (m *Model) ScopedName() string { return m.name }

// WorldPose implements physics.Entity.
func (m *Model) WorldPose() spatialmath.Pose { return m.pose }
