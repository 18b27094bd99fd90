package movementsensor

import (
	"errors"
	"sync"
)

var (
	// ErrMethodUnimplementedOrientation returns error if the Orientation method is unimplemented.
	ErrMethodUnimplementedOrientation = errors.New("Orientation Unimplemented")
	// ErrMethodUnimplementedLinearVelocity returns error if the LinearVelocity method is unimplemented.
	ErrMethodUnimplementedLinearVelocity = errors.New("LinearVelocity Unimplemented")
	// ErrMethodUnimplementedAngularVelocity returns error if the AngularVelocity method is unimplemented.
	ErrMethodUnimplementedAngularVelocity = errors.New("AngularVelocity Unimplemented")
	// ErrMethodUnimplementedCompassHeading returns error if the CompassHeading method is unimplemented.
	ErrMethodUnimplementedCompassHeading = errors.New("CompassHeading Unimplemented")
	// ErrMethodUnimplementedLinearAcceleration returns error if Linear Acceleration is unimplemented.
	ErrMethodUnimplementedLinearAcceleration = errors.New("linear acceleration unimplemented")
)

// LastError is an object that stores recent errors. If there have been sufficiently many recent
// errors, you can retrieve the most recent one.
type LastError struct {
	// These values are immutable
	size      int // The length of errs, below
	threshold int // How many items in errs must be non-nil for us to give back errors when asked

	// These values are mutable
	mu    sync.Mutex
	errs  []error // A list of recent errors, oldest to newest
	count int     // How many items in errs are non-nil
}

// NewLastError creates a LastError object which will let you retrieve the most recent error if at
// least `threshold` of the most recent `size` items put into it are non-nil.
func NewLastError(size, threshold int) *LastError {
	return &LastError{size: size, errs: make([]error, size), threshold: threshold}
}

// Set stores an error to be retrieved later. Store nil after a success so that old errors age out.
func (le *LastError) Set(err error) {
	le.mu.Lock()
	defer le.mu.Unlock()
	if le.size == 0 {
		return
	}

	// Remove the oldest error, and add the newest one.
	if le.errs[0] != nil {
		le.count--
	}
	if err != nil {
		le.count++
	}
	le.errs = append(le.errs[1:], err)
}

// Get returns the most-recently-stored non-nil error if we've had enough recent errors. If we're
// going to return a non-nil error, we also wipe out all other data so we don't return the same
// error again next time.
func (le *LastError) Get() error {
	le.mu.Lock()
	defer le.mu.Unlock()

	if le.count == 0 || le.count < le.threshold {
		// Keep our data, in case we're close to the threshold and will return an error next time.
		return nil
	}

	var errToReturn error
	for i := len(le.errs) - 1; i >= 0; i-- {
		if le.errs[i] != nil {
			errToReturn = le.errs[i]
			break
		}
	}

	// Wipe everything out
	le.errs = make([]error, le.size)
	le.count = 0
	return errToReturn
}
