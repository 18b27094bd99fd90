// Package msgs contains the messages exchanged over the transport between the physics world
// and its sensors. Messages are encoded as JSON.
package msgs

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/imusim/spatialmath"
)

// RequestLinkPublish asks the world to start publishing link kinematics.
const RequestLinkPublish = "link_publish"

// Vector3d is a 3 component vector on the wire.
type Vector3d struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewVector3d converts an r3.Vector.
func NewVector3d(v r3.Vector) Vector3d {
	return Vector3d{X: v.X, Y: v.Y, Z: v.Z}
}

// R3 converts back to an r3.Vector.
func (v Vector3d) R3() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// Quaternion is a rotation on the wire.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewQuaternion converts a gonum quaternion.
func NewQuaternion(q quat.Number) Quaternion {
	return Quaternion{W: q.Real, X: q.Imag, Y: q.Jmag, Z: q.Kmag}
}

// Quat converts back to a gonum quaternion.
func (q Quaternion) Quat() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// Orientation converts back to a spatialmath.Orientation.
func (q Quaternion) Orientation() spatialmath.Orientation {
	return spatialmath.QuatToOrientation(q.Quat())
}

// Request is a correlated request to whoever serves "~/request".
type Request struct {
	ID      string `json:"id"`
	Request string `json:"request"`
	Data    string `json:"data,omitempty"`
}

// CreateRequest returns a request with a fresh unique ID.
func CreateRequest(request string) *Request {
	return &Request{ID: uuid.NewString(), Request: request}
}

// Response answers the Request with the same ID.
type Response struct {
	ID             string `json:"id"`
	Request        string `json:"request"`
	Response       string `json:"response"`
	Type           string `json:"type,omitempty"`
	SerializedData []byte `json:"serialized_data,omitempty"`
}

// CreateResponse returns a response correlated with req.
func CreateResponse(req *Request, response string) *Response {
	return &Response{ID: req.ID, Request: req.Request, Response: response}
}

// LinkData is one kinematic snapshot of a link.
type LinkData struct {
	Name            string        `json:"name"`
	Time            time.Duration `json:"time"`
	LinearVelocity  Vector3d      `json:"linear_velocity"`
	AngularVelocity Vector3d      `json:"angular_velocity"`
}

// IMU is a body frame inertial reading.
type IMU struct {
	EntityName         string        `json:"entity_name"`
	Stamp              time.Duration `json:"stamp"`
	Orientation        Quaternion    `json:"orientation"`
	AngularVelocity    Vector3d      `json:"angular_velocity"`
	LinearAcceleration Vector3d      `json:"linear_acceleration"`
}
