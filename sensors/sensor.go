// Package sensors contains the pieces shared by every simulated sensor: configuration, the
// active/update-rate bookkeeping, and the manager that steps sensors with the world.
package sensors

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"go.viam.com/imusim/physics"
	"go.viam.com/imusim/spatialmath"
)

// DefaultTopic is the topic value that selects the default output topic name.
const DefaultTopic = "__default_topic__"

// Config describes one sensor attached to an entity of the world.
type Config struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Parent string `json:"parent"`
	// Pose is the mounting offset of the sensor in the parent frame.
	Pose       spatialmath.PoseConfig `json:"pose"`
	Topic      string                 `json:"topic,omitempty"`
	UpdateRate float64                `json:"update_rate,omitempty"`
	AlwaysOn   bool                   `json:"always_on,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if conf.Type == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "type")
	}
	if conf.Parent == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "parent")
	}
	if conf.UpdateRate < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("update_rate cannot be negative, got %v", conf.UpdateRate))
	}
	return nil
}

// A Sensor is stepped by the Manager once per simulation step.
type Sensor interface {
	Name() string
	Type() string
	// Load resolves the parent entity and sets up communication. A sensor that fails to load
	// must not be activated.
	Load(ctx context.Context) error
	Init()
	// Update computes a new reading if the update period has elapsed, or unconditionally when
	// force is set. It reports whether a reading was produced.
	Update(ctx context.Context, force bool) (bool, error)
	SetActive(active bool)
	IsActive() bool
	Close(ctx context.Context) error
}

// Base holds the state every sensor shares. Embed it in sensor implementations.
type Base struct {
	conf  Config
	world physics.World

	active atomic.Bool

	mu         sync.Mutex
	lastUpdate time.Duration
	updated    bool
}

// NewBase returns an inactive sensor base.
func NewBase(conf Config, world physics.World) *Base {
	return &Base{conf: conf, world: world}
}

// Name returns the sensor name.
func (b *Base) Name() string { return b.conf.Name }

// Type returns the sensor type, e.g. "imu".
func (b *Base) Type() string { return b.conf.Type }

// ParentName returns the name of the entity the sensor is attached to.
func (b *Base) ParentName() string { return b.conf.Parent }

// World returns the world the sensor lives in.
func (b *Base) World() physics.World { return b.world }

// Config returns the sensor configuration.
func (b *Base) Config() Config { return b.conf }

// Pose returns the mounting offset of the sensor relative to its parent.
func (b *Base) Pose() spatialmath.Pose {
	return b.conf.Pose.Pose()
}

// Topic returns the output topic. Unless configured it is "~/<parent>/<name>/<type>" with
// scope delimiters replaced by "/".
func (b *Base) Topic() string {
	topic := b.conf.Topic
	if topic == "" || topic == DefaultTopic {
		topic = fmt.Sprintf("~/%s/%s/%s", b.conf.Parent, b.conf.Name, b.conf.Type)
	}
	return strings.ReplaceAll(topic, physics.ScopeDelimiter, "/")
}

// Init activates the sensor when it is configured as always on.
func (b *Base) Init() {
	b.SetActive(b.conf.AlwaysOn)
}

// SetActive turns the sensor on or off.
func (b *Base) SetActive(active bool) {
	b.active.Store(active)
}

// IsActive reports whether the sensor is on.
func (b *Base) IsActive() bool {
	return b.active.Load()
}

// UpdatePeriod is the minimum simulation time between two readings, zero meaning every step.
func (b *Base) UpdatePeriod() time.Duration {
	if b.conf.UpdateRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / b.conf.UpdateRate)
}

// NeedsUpdate reports whether a reading is due at simulation time now.
func (b *Base) NeedsUpdate(now time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.updated {
		return true
	}
	// the world was reset
	if now < b.lastUpdate {
		return true
	}
	return now-b.lastUpdate >= b.UpdatePeriod()
}

// MarkUpdated records a reading at simulation time now.
func (b *Base) MarkUpdated(now time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastUpdate = now
	b.updated = true
}

// LastUpdateTime returns the simulation time of the last reading.
func (b *Base) LastUpdateTime() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUpdate, b.updated
}
