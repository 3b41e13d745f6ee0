package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// QuatFromAxisAngle returns the unit quaternion representing a rotation of theta radians about
// the given axis, following the right-hand rule. A zero axis yields the identity rotation.
func QuatFromAxisAngle(axis r3.Vector, theta float64) quat.Number {
	if R3VectorAlmostEqual(axis, r3.Vector{}, defaultEpsilon) {
		return quat.Number{Real: 1}
	}
	axis = axis.Normalize()
	mq := mgl64.QuatRotate(theta, mgl64.Vec3{axis.X, axis.Y, axis.Z})
	return mglQuatToQuat(mq)
}

// QuatFromRPY returns the unit quaternion for fixed-axis roll (about X), pitch (about Y), and
// yaw (about Z) angles in radians, the convention used by URDF origin elements.
func QuatFromRPY(roll, pitch, yaw float64) quat.Number {
	// Fixed-axis XYZ is equivalent to intrinsic ZYX.
	return mglQuatToQuat(mgl64.AnglesToQuat(yaw, pitch, roll, mgl64.ZYX))
}

// QuatToRPY extracts fixed-axis roll, pitch, yaw angles in radians from a unit quaternion.
func QuatToRPY(q quat.Number) (roll, pitch, yaw float64) {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	sinp := 2 * (w*y - z*x)
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}

// QuatAlmostEqual compares two unit quaternions, treating q and -q as the same rotation.
func QuatAlmostEqual(a, b quat.Number, epsilon float64) bool {
	diff := quat.Abs(quat.Sub(a, b))
	sum := quat.Abs(quat.Add(a, b))
	return diff < epsilon || sum < epsilon
}

func mglQuatToQuat(q mgl64.Quat) quat.Number {
	return quat.Number{Real: q.W, Imag: q.X(), Jmag: q.Y(), Kmag: q.Z()}
}
