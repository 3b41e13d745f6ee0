// Package spatialmath defines the spatial mathematical operations needed by the
// collision core: poses, rotations, and the small vector helpers built on them.
package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof pose: a position in 3D space and an orientation about that position.
type Pose interface {
	// Point returns the position component of the pose.
	Point() r3.Vector

	// Orientation returns the rotation component of the pose as a unit quaternion.
	Orientation() quat.Number
}

// NewZeroPose returns a pose with no translation or orientation change.
func NewZeroPose() Pose {
	return newDualQuaternion()
}

// NewPoseFromPoint takes a point and returns a Pose with that point as its position and an
// identity orientation.
func NewPoseFromPoint(point r3.Vector) Pose {
	q := newDualQuaternion()
	q.setTranslation(point)
	return q
}

// NewPose creates a new pose from a point and an orientation quaternion. The quaternion is
// normalized before use.
func NewPose(point r3.Vector, o quat.Number) Pose {
	q := newDualQuaternion()
	q.Real = normalizeQuat(o)
	q.setTranslation(point)
	return q
}

// NewPoseFromAxisAngle creates a new pose from a point and a rotation of theta radians about
// the given axis, following the right-hand rule.
func NewPoseFromAxisAngle(point, axis r3.Vector, theta float64) Pose {
	return NewPose(point, QuatFromAxisAngle(axis, theta))
}

// Compose returns the pose that is the result of applying b within the frame of a. Composition
// is not commutative.
func Compose(a, b Pose) Pose {
	return dualQuaternionFromPose(a).mulPose(dualQuaternionFromPose(b))
}

// PoseInverse returns the pose which, when composed with the given pose, yields the zero pose.
func PoseInverse(p Pose) Pose {
	return dualQuaternionFromPose(p).invert()
}

// TransformPoint applies a pose to a point, rotating and then translating it.
func TransformPoint(p Pose, point r3.Vector) r3.Vector {
	return Compose(p, NewPoseFromPoint(point)).Point()
}

// PoseAlmostEqual returns whether both the positions and the orientations of the two poses
// are within floating-point tolerance of each other.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostCoincident(a, b) && QuatAlmostEqual(a.Orientation(), b.Orientation(), defaultEpsilon)
}

// PoseAlmostCoincident returns whether the positions of two poses are within floating-point
// tolerance of each other, ignoring orientation.
func PoseAlmostCoincident(a, b Pose) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), defaultEpsilon)
}
