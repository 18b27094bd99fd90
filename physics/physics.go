// Package physics defines the view of the physics engine that sensors depend on: a world
// with gravity and simulation time, and the entities (links) inside it.
package physics

import (
	"context"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/imusim/spatialmath"
)

// ScopeDelimiter separates the parts of a scoped entity name, e.g. "model::link".
const ScopeDelimiter = "::"

// An Entity is anything in the world with a name and a pose.
type Entity interface {
	// Name is the unscoped name, e.g. "link".
	Name() string
	// ScopedName is the fully qualified name, e.g. "model::link".
	ScopedName() string
	WorldPose() spatialmath.Pose
}

// A Link is a rigid body whose velocities can be sampled.
type Link interface {
	Entity
	// WorldLinearVel returns the world frame linear velocity of the point at offset, expressed
	// in the link frame.
	WorldLinearVel(offset r3.Vector) r3.Vector
	WorldAngularVel() r3.Vector
}

// A World holds entities and the global simulation state.
type World interface {
	Name() string
	// EntityByName resolves scoped or unscoped names.
	EntityByName(name string) (Entity, bool)
	Gravity() r3.Vector
	// SimTime is the simulation time elapsed since the world started.
	SimTime() time.Duration
}

// A Stepper is a world that can be advanced by the simulation loop.
type Stepper interface {
	Step(ctx context.Context, dt time.Duration) error
}

// ErrEntityNotFound is returned when a name does not resolve to any entity.
var ErrEntityNotFound = errors.New("entity not found")

// NewNotALinkError is returned when a name resolves to an entity that is not a link.
func NewNotALinkError(name string, actual Entity) error {
	return errors.Errorf("entity %q is a %T, expected a link", name, actual)
}

// LinkByName resolves name in w and checks that it is a Link.
func LinkByName(w World, name string) (Link, error) {
	ent, ok := w.EntityByName(name)
	if !ok {
		return nil, errors.Wrapf(ErrEntityNotFound, "%q in world %q", name, w.Name())
	}
	link, ok := ent.(Link)
	if !ok {
		return nil, NewNotALinkError(name, ent)
	}
	return link, nil
}

// ScopedName joins name parts with the scope delimiter.
func ScopedName(parts ...string) string {
	return strings.Join(parts, ScopeDelimiter)
}
