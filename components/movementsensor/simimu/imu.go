// Package simimu implements a simulated inertial measurement unit. It is attached to a link of
// a physics world and reports orientation relative to a reference pose, body frame angular
// velocity, and body frame linear acceleration including the reaction to gravity.
package simimu

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"go.viam.com/imusim/components/movementsensor"
	"go.viam.com/imusim/logging"
	"go.viam.com/imusim/msgs"
	"go.viam.com/imusim/physics"
	"go.viam.com/imusim/sensors"
	"go.viam.com/imusim/spatialmath"
	"go.viam.com/imusim/transport"
)

// Dependencies are the collaborators an IMU needs.
type Dependencies struct {
	World physics.World
	Node  *transport.Node
}

// IMU is a simulated inertial measurement unit.
type IMU struct {
	*sensors.Base
	node   *transport.Node
	logger logging.Logger
	attrs  *Attributes

	// mu guards the inbox, the reference frame, the engine and the current reading. It is
	// never held while publishing.
	mu         sync.Mutex
	link       physics.Link
	inbox      *inbox
	engine     engine
	reading    msgs.IMU
	hasReading bool

	pub        *transport.Publisher
	handshake  *handshake
	subsMu     sync.Mutex
	subs       []transport.Subscription
	trace      rate.Sometimes
	publishErr *movementsensor.LastError
}

var _ = movementsensor.MovementSensor(&IMU{})

var _ = sensors.Sensor(&IMU{})

// New returns an inactive IMU. It does not touch the world until Load.
func New(deps Dependencies, conf sensors.Config, logger logging.Logger) (*IMU, error) {
	if deps.World == nil || deps.Node == nil {
		return nil, errors.New("imu needs a world and a transport node")
	}
	if err := conf.Validate(conf.Name); err != nil {
		return nil, err
	}
	if conf.Type != ModelName {
		return nil, errors.Errorf("sensor %q has type %q, expected %q", conf.Name, conf.Type, ModelName)
	}
	attrs, err := attributesFromConfig(conf)
	if err != nil {
		return nil, err
	}
	window, threshold := attrs.errorWindow()
	return &IMU{
		Base:       sensors.NewBase(conf, deps.World),
		node:       deps.Node,
		logger:     logger.Sublogger(conf.Name),
		attrs:      attrs,
		inbox:      newInbox(inboxCapacity),
		engine:     engine{frame: newReferenceFrame(conf.Pose.Pose())},
		handshake:  newHandshake(),
		trace:      rate.Sometimes{First: 1, Interval: attrs.traceInterval()},
		publishErr: movementsensor.NewLastError(window, threshold),
	}, nil
}

// Load resolves the parent link, takes the reference pose and asks the world to publish the
// link's kinematics. A parent that is not a link is an error and leaves the IMU unusable.
func (imu *IMU) Load(ctx context.Context) error {
	link, err := physics.LinkByName(imu.World(), imu.ParentName())
	if err != nil {
		return errors.Wrapf(err, "imu %q has invalid parent", imu.Name())
	}

	imu.mu.Lock()
	imu.link = link
	imu.engine.frame.establish(link.WorldPose())
	imu.engine.frame.resetVelocityBaseline()
	imu.mu.Unlock()

	imu.pub = imu.node.Advertise(imu.Topic())

	sub, err := transport.Subscribe(imu.node, "~/response", imu.onResponse)
	if err != nil {
		return err
	}
	imu.track(sub)

	req := msgs.CreateRequest(msgs.RequestLinkPublish)
	imu.handshake.begin(req.ID)
	if err := imu.node.Advertise("~/request").Publish(ctx, req); err != nil {
		return errors.Wrap(err, "requesting link data")
	}
	imu.logger.Debugw("loaded", "parent", link.ScopedName(), "topic", imu.pub.Topic(), "request", req.ID)
	return nil
}

func (imu *IMU) onResponse(ctx context.Context, resp *msgs.Response) {
	if !imu.handshake.resolve(resp.ID) {
		return
	}
	imu.mu.Lock()
	link := imu.link
	imu.mu.Unlock()

	topic := "~/" + link.ScopedName()
	sub, err := transport.Subscribe(imu.node, topic, imu.onLinkData)
	if err != nil {
		imu.logger.Errorw("cannot subscribe to link data", "topic", topic, "error", err)
		return
	}
	imu.track(sub)
	imu.logger.Debugw("subscribed to link data", "topic", sub.Topic())
}

func (imu *IMU) onLinkData(ctx context.Context, data *msgs.LinkData) {
	imu.pushLinkData(data)
}

// pushLinkData stores data in the inbox. It is dropped while the sensor is inactive.
func (imu *IMU) pushLinkData(data *msgs.LinkData) {
	imu.mu.Lock()
	defer imu.mu.Unlock()
	if !imu.IsActive() {
		return
	}
	imu.inbox.push(data)
}

func (imu *IMU) track(sub transport.Subscription) {
	imu.subsMu.Lock()
	defer imu.subsMu.Unlock()
	imu.subs = append(imu.subs, sub)
}

// Update computes and publishes a reading when one is due, or always when force is set.
func (imu *IMU) Update(ctx context.Context, force bool) (bool, error) {
	if !imu.IsActive() {
		return false, nil
	}
	now := imu.World().SimTime()
	if !force && !imu.NeedsUpdate(now) {
		return false, nil
	}

	imu.mu.Lock()
	if imu.link == nil {
		imu.mu.Unlock()
		return false, errors.Errorf("imu %q is not loaded", imu.Name())
	}
	k := kinematics{
		now:        now,
		linkPose:   imu.link.WorldPose(),
		angularVel: imu.link.WorldAngularVel(),
		linearVel:  imu.link.WorldLinearVel(imu.engine.frame.mount.Point()),
		gravity:    imu.World().Gravity(),
	}
	r := imu.engine.step(k)
	imu.reading = msgs.IMU{
		EntityName:         imu.ParentName(),
		Stamp:              r.stamp,
		Orientation:        msgs.NewQuaternion(r.orientation),
		AngularVelocity:    msgs.NewVector3d(r.angularVelocity),
		LinearAcceleration: msgs.NewVector3d(r.linearAcceleration),
	}
	imu.hasReading = true
	out := imu.reading
	imu.mu.Unlock()

	imu.MarkUpdated(now)
	if r.differentiated {
		imu.trace.Do(func() {
			imu.logger.Debugw("acceleration estimate",
				"dt", r.dt,
				"linear_acceleration", r.linearAcceleration,
				"velocity", k.linearVel)
		})
	}

	err := imu.pub.Publish(ctx, &out)
	imu.publishErr.Set(err)
	return true, err
}

// SetReferencePose makes the current orientation the zero orientation.
func (imu *IMU) SetReferencePose() error {
	imu.mu.Lock()
	defer imu.mu.Unlock()
	if imu.link == nil {
		return errors.Errorf("imu %q is not loaded", imu.Name())
	}
	imu.engine.frame.establish(imu.link.WorldPose())
	return nil
}

// ReferencePose returns the world pose orientations are reported against.
func (imu *IMU) ReferencePose() spatialmath.Pose {
	imu.mu.Lock()
	defer imu.mu.Unlock()
	return imu.engine.frame.reference
}

// Reading returns the last computed reading and whether there is one.
func (imu *IMU) Reading() (msgs.IMU, bool) {
	imu.mu.Lock()
	defer imu.mu.Unlock()
	return imu.reading, imu.hasReading
}

// InboxLen returns the number of link data messages waiting in the inbox.
func (imu *IMU) InboxLen() int {
	imu.mu.Lock()
	defer imu.mu.Unlock()
	return imu.inbox.len()
}

// InboxSnapshots returns the inbox contents, oldest first.
func (imu *IMU) InboxSnapshots() []*msgs.LinkData {
	imu.mu.Lock()
	defer imu.mu.Unlock()
	return imu.inbox.snapshots()
}

// InboxStats summarizes the link data received.
func (imu *IMU) InboxStats() InboxStats {
	imu.mu.Lock()
	defer imu.mu.Unlock()
	return imu.inbox.stats()
}

// Orientation returns the orientation relative to the reference pose.
func (imu *IMU) Orientation(ctx context.Context, extra map[string]interface{}) (spatialmath.Orientation, error) {
	imu.mu.Lock()
	defer imu.mu.Unlock()
	if !imu.hasReading {
		return spatialmath.NewZeroOrientation(), imu.publishErr.Get()
	}
	return imu.reading.Orientation.Orientation(), imu.publishErr.Get()
}

// AngularVelocity returns the body frame angular velocity in radians per second.
func (imu *IMU) AngularVelocity(ctx context.Context, extra map[string]interface{}) (spatialmath.AngularVelocity, error) {
	imu.mu.Lock()
	defer imu.mu.Unlock()
	return spatialmath.R3ToAngVel(imu.reading.AngularVelocity.R3()), imu.publishErr.Get()
}

// LinearAcceleration returns the body frame acceleration in m/s^2, gravity included.
func (imu *IMU) LinearAcceleration(ctx context.Context, extra map[string]interface{}) (r3.Vector, error) {
	imu.mu.Lock()
	defer imu.mu.Unlock()
	return imu.reading.LinearAcceleration.R3(), imu.publishErr.Get()
}

// LinearVelocity is not measured by an IMU.
func (imu *IMU) LinearVelocity(ctx context.Context, extra map[string]interface{}) (r3.Vector, error) {
	return r3.Vector{}, movementsensor.ErrMethodUnimplementedLinearVelocity
}

// CompassHeading is not measured by an IMU.
func (imu *IMU) CompassHeading(ctx context.Context, extra map[string]interface{}) (float64, error) {
	return 0, movementsensor.ErrMethodUnimplementedCompassHeading
}

// Properties returns what the IMU measures.
func (imu *IMU) Properties(ctx context.Context, extra map[string]interface{}) (*movementsensor.Properties, error) {
	return &movementsensor.Properties{
		AngularVelocitySupported:    true,
		OrientationSupported:        true,
		LinearAccelerationSupported: true,
	}, nil
}

// Readings returns every supported measurement.
func (imu *IMU) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	return movementsensor.Readings(ctx, imu, extra)
}

// DoCommand supports "set_reference_pose" and "inbox_stats".
func (imu *IMU) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	name, _ := cmd["command"].(string)
	switch name {
	case "set_reference_pose":
		if err := imu.SetReferencePose(); err != nil {
			return nil, err
		}
		return map[string]interface{}{"reference_pose": spatialmath.NewPoseConfig(imu.ReferencePose())}, nil
	case "inbox_stats":
		s := imu.InboxStats()
		return map[string]interface{}{
			"count":            s.Count,
			"dropped":          s.Dropped,
			"newest":           s.Newest.String(),
			"mean_interval":    s.MeanInterval.String(),
			"interval_std_dev": s.IntervalStdDev.String(),
		}, nil
	default:
		return nil, errors.Errorf("unknown command %q", name)
	}
}

// Close deactivates the IMU and drops its subscriptions.
func (imu *IMU) Close(ctx context.Context) error {
	imu.SetActive(false)
	imu.subsMu.Lock()
	subs := imu.subs
	imu.subs = nil
	imu.subsMu.Unlock()

	var errs error
	for _, sub := range subs {
		errs = multierr.Append(errs, sub.Unsubscribe())
	}
	return errs
}
