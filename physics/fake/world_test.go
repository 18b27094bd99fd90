package fake

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/imusim/logging"
	"go.viam.com/imusim/msgs"
	"go.viam.com/imusim/physics"
	"go.viam.com/imusim/spatialmath"
	"go.viam.com/imusim/transport"
)

func TestEntityLookup(t *testing.T) {
	w := NewWorld("default", logging.NewTestLogger(t))
	test.That(t, w.AddEntity(NewLink("box", "link", nil)), test.ShouldBeNil)
	test.That(t, w.AddEntity(NewModel("box", nil)), test.ShouldBeNil)
	test.That(t, w.AddEntity(NewLink("box", "link", nil)), test.ShouldNotBeNil)

	ent, ok := w.EntityByName("box::link")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ent.Name(), test.ShouldEqual, "link")

	ent, ok = w.EntityByName("link")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ent.ScopedName(), test.ShouldEqual, "box::link")

	_, ok = w.EntityByName("missing")
	test.That(t, ok, test.ShouldBeFalse)

	_, err := physics.LinkByName(w, "box")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected a link")

	link, err := physics.LinkByName(w, "box::link")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, link.ScopedName(), test.ShouldEqual, "box::link")
}

func TestLinkVelocity(t *testing.T) {
	link := NewLink("m", "l", nil)
	link.SetLinearVel(r3.Vector{X: 1})
	link.SetAngularVel(r3.Vector{Z: 2})

	test.That(t, link.WorldLinearVel(r3.Vector{}), test.ShouldResemble, r3.Vector{X: 1})
	// a point one meter along +x spinning about z moves along +y
	v := link.WorldLinearVel(r3.Vector{X: 1})
	test.That(t, spatialmath.R3VectorAlmostEqual(v, r3.Vector{X: 1, Y: 2}, 1e-9), test.ShouldBeTrue)
}

func TestStep(t *testing.T) {
	ctx := context.Background()
	w := NewWorld("default", logging.NewTestLogger(t))
	link := NewLink("box", "link", nil)
	link.SetLinearVel(r3.Vector{X: 2})
	link.SetAngularVel(r3.Vector{Z: math.Pi})
	test.That(t, w.AddEntity(link), test.ShouldBeNil)

	test.That(t, w.Step(ctx, 0), test.ShouldNotBeNil)
	for i := 0; i < 10; i++ {
		test.That(t, w.Step(ctx, 50*time.Millisecond), test.ShouldBeNil)
	}
	test.That(t, w.SimTime(), test.ShouldEqual, 500*time.Millisecond)

	pose := link.WorldPose()
	test.That(t, pose.Point().X, test.ShouldAlmostEqual, 1.0)
	// half a second at pi rad/s is a quarter turn
	test.That(t, pose.Orientation().EulerAngles().Yaw, test.ShouldAlmostEqual, math.Pi/2)
}

func TestServeLinkPublish(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	bus := transport.NewLocalBus(logger)
	node := transport.NewNode(bus, "default", logger)

	w := NewWorld("default", logger)
	link := NewLink("box", "link", nil)
	link.SetLinearVel(r3.Vector{Y: 3})
	test.That(t, w.AddEntity(link), test.ShouldBeNil)
	test.That(t, w.Serve(node), test.ShouldBeNil)

	var data []*msgs.LinkData
	_, err := transport.Subscribe(node, "~/box::link", func(ctx context.Context, msg *msgs.LinkData) {
		data = append(data, msg)
	})
	test.That(t, err, test.ShouldBeNil)

	// nothing is published before the request
	test.That(t, w.Step(ctx, time.Millisecond), test.ShouldBeNil)
	test.That(t, data, test.ShouldBeEmpty)

	var responses []*msgs.Response
	_, err = transport.Subscribe(node, "~/response", func(ctx context.Context, msg *msgs.Response) {
		responses = append(responses, msg)
	})
	test.That(t, err, test.ShouldBeNil)

	unknown := msgs.CreateRequest("entity_delete")
	test.That(t, node.Advertise("~/request").Publish(ctx, unknown), test.ShouldBeNil)
	test.That(t, responses, test.ShouldBeEmpty)

	req := msgs.CreateRequest(msgs.RequestLinkPublish)
	test.That(t, node.Advertise("~/request").Publish(ctx, req), test.ShouldBeNil)
	test.That(t, responses, test.ShouldHaveLength, 1)
	test.That(t, responses[0].ID, test.ShouldEqual, req.ID)
	test.That(t, responses[0].Response, test.ShouldEqual, "success")

	test.That(t, w.Step(ctx, time.Millisecond), test.ShouldBeNil)
	test.That(t, data, test.ShouldHaveLength, 1)
	test.That(t, data[0].Name, test.ShouldEqual, "box::link")
	test.That(t, data[0].Time, test.ShouldEqual, 2*time.Millisecond)
	test.That(t, data[0].LinearVelocity.R3(), test.ShouldResemble, r3.Vector{Y: 3})
}
