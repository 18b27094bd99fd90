package fake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/imusim/logging"
	"go.viam.com/imusim/msgs"
	"go.viam.com/imusim/physics"
	"go.viam.com/imusim/transport"
)

// DefaultGravity is standard gravity along -z.
var DefaultGravity = r3.Vector{Z: -9.8}

// World is a kinematic physics.World.
type World struct {
	name   string
	logger logging.Logger

	mu         sync.Mutex
	gravity    r3.Vector
	simTime    time.Duration
	entities   map[string]physics.Entity
	publishing bool
	node       *transport.Node
	pubs       map[string]*transport.Publisher
}

// NewWorld returns an empty world with DefaultGravity.
func NewWorld(name string, logger logging.Logger) *World {
	return &World{
		name:     name,
		logger:   logger,
		gravity:  DefaultGravity,
		entities: make(map[string]physics.Entity),
		pubs:     make(map[string]*transport.Publisher),
	}
}

// Name implements physics.World.
func (w *World) Name() string {
	return w.name
}

// Gravity implements physics.World.
func (w *World) Gravity() r3.Vector {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gravity
}

// SetGravity changes the gravity vector.
func (w *World) SetGravity(g r3.Vector) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gravity = g
}

// SimTime implements physics.World.
func (w *World) SimTime() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.simTime
}

// SetSimTime moves the clock without moving any link.
func (w *World) SetSimTime(t time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.simTime = t
}

// AddEntity adds ent under its scoped name.
func (w *World) AddEntity(ent physics.Entity) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[ent.ScopedName()]; ok {
		return errors.Errorf("entity %q already exists in world %q", ent.ScopedName(), w.name)
	}
	w.entities[ent.ScopedName()] = ent
	return nil
}

// EntityByName looks up a scoped name first, then a unique unscoped name.
func (w *World) EntityByName(name string) (physics.Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ent, ok := w.entities[name]; ok {
		return ent, true
	}
	matches := lo.Filter(lo.Values(w.entities), func(ent physics.Entity, _ int) bool {
		return ent.Name() == name
	})
	if len(matches) != 1 {
		return nil, false
	}
	return matches[0], true
}

// Links returns every link sorted by scoped name.
func (w *World) Links() []*Link {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.links()
}

func (w *World) links() []*Link {
	links := make([]*Link, 0, len(w.entities))
	for _, ent := range w.entities {
		if link, ok := ent.(*Link); ok {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ScopedName() < links[j].ScopedName() })
	return links
}

// Step advances simulation time and every link by dt, then publishes link data if a
// link_publish request has been served.
func (w *World) Step(ctx context.Context, dt time.Duration) error {
	if dt <= 0 {
		return errors.Errorf("step size must be positive, got %v", dt)
	}
	w.mu.Lock()
	w.simTime += dt
	now := w.simTime
	links := w.links()
	for _, link := range links {
		link.integrate(dt.Seconds())
	}
	publishing := w.publishing
	pubs := w.pubs
	w.mu.Unlock()

	if !publishing {
		return nil
	}
	var errs error
	for _, link := range links {
		pub, ok := pubs[link.ScopedName()]
		if !ok {
			continue
		}
		data := msgs.LinkData{
			Name:            link.ScopedName(),
			Time:            now,
			LinearVelocity:  msgs.NewVector3d(link.WorldLinearVel(r3.Vector{})),
			AngularVelocity: msgs.NewVector3d(link.WorldAngularVel()),
		}
		errs = multierr.Append(errs, pub.Publish(ctx, &data))
	}
	return errs
}

// Serve answers requests on node's "~/request" topic.
func (w *World) Serve(node *transport.Node) error {
	w.mu.Lock()
	w.node = node
	w.mu.Unlock()

	reply := node.Advertise("~/response")
	_, err := transport.Subscribe(node, "~/request", func(ctx context.Context, req *msgs.Request) {
		resp := w.handleRequest(req)
		if resp == nil {
			return
		}
		if err := reply.Publish(ctx, resp); err != nil {
			w.logger.Warnw("failed to send response", "request", req.Request, "id", req.ID, "error", err)
		}
	})
	return err
}

func (w *World) handleRequest(req *msgs.Request) *msgs.Response {
	switch req.Request {
	case msgs.RequestLinkPublish:
		w.mu.Lock()
		if !w.publishing {
			w.publishing = true
			pubs := make(map[string]*transport.Publisher, len(w.entities))
			for _, link := range w.links() {
				pubs[link.ScopedName()] = w.node.Advertise("~/" + link.ScopedName())
			}
			w.pubs = pubs
		}
		w.mu.Unlock()
		w.logger.Debugw("publishing link data", "id", req.ID)
		return msgs.CreateResponse(req, "success")
	default:
		w.logger.Debugw("ignoring request", "request", req.Request, "id", req.ID)
		return nil
	}
}
