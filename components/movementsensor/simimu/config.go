package simimu

import (
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/imusim/config"
	"go.viam.com/imusim/sensors"
)

// ModelName is the sensor type handled by this package.
const ModelName = "imu"

const (
	defaultTraceInterval  = time.Second
	defaultErrorWindow    = 10
	defaultErrorThreshold = 3
	inboxCapacity         = 100
)

// Attributes are the imu specific sensor attributes.
type Attributes struct {
	// TraceIntervalSec is the minimum time between two debug traces of the acceleration estimate.
	TraceIntervalSec float64 `json:"trace_interval_sec,omitempty"`
	// ErrorWindow and ErrorThreshold control when publish failures surface from the getters:
	// once ErrorThreshold of the last ErrorWindow publishes failed.
	ErrorWindow    int `json:"error_window,omitempty"`
	ErrorThreshold int `json:"error_threshold,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (a *Attributes) Validate(path string) error {
	if a.TraceIntervalSec < 0 {
		return goutils.NewConfigValidationError(path, errors.New("trace_interval_sec cannot be negative"))
	}
	if a.ErrorWindow < 0 || a.ErrorThreshold < 0 {
		return goutils.NewConfigValidationError(path, errors.New("error_window and error_threshold cannot be negative"))
	}
	if a.ErrorThreshold > a.ErrorWindow && a.ErrorWindow != 0 {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("error_threshold (%d) cannot exceed error_window (%d)", a.ErrorThreshold, a.ErrorWindow))
	}
	return nil
}

func (a *Attributes) traceInterval() time.Duration {
	if a.TraceIntervalSec == 0 {
		return defaultTraceInterval
	}
	return time.Duration(a.TraceIntervalSec * float64(time.Second))
}

func (a *Attributes) errorWindow() (int, int) {
	window, threshold := a.ErrorWindow, a.ErrorThreshold
	if window == 0 {
		window = defaultErrorWindow
	}
	if threshold == 0 {
		threshold = defaultErrorThreshold
	}
	if threshold > window {
		threshold = window
	}
	return window, threshold
}

func attributesFromConfig(conf sensors.Config) (*Attributes, error) {
	var attrs Attributes
	if err := config.TransformAttributeMapToStruct(&attrs, conf.Attributes); err != nil {
		return nil, errors.Wrapf(err, "sensor %q", conf.Name)
	}
	if err := attrs.Validate(conf.Name); err != nil {
		return nil, err
	}
	return &attrs, nil
}
