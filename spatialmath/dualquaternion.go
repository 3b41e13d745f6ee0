package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// dualQuaternion performs rigid transformations in 3D. The real part encodes the rotation and
// the dual part encodes the translation; the real part is kept a unit quaternion.
type dualQuaternion struct {
	dualquat.Number
}

// newDualQuaternion returns a dualQuaternion representing an identity transformation. Since
// the real part of a dual quaternion should be a unit quaternion, not all zeroes, this should
// be used rather than a bare &dualQuaternion{}.
func newDualQuaternion() *dualQuaternion {
	return &dualQuaternion{dualquat.Number{
		Real: quat.Number{Real: 1},
		Dual: quat.Number{},
	}}
}

// dualQuaternionFromPose returns a dual quaternion with the same rotation and translation as
// the given pose, without copying if the pose is already one.
func dualQuaternionFromPose(p Pose) *dualQuaternion {
	if q, ok := p.(*dualQuaternion); ok {
		return q
	}
	q := newDualQuaternion()
	q.Real = normalizeQuat(p.Orientation())
	q.setTranslation(p.Point())
	return q
}

// Point returns the translation component of the transformation.
func (q *dualQuaternion) Point() r3.Vector {
	// t = 2 * dual * conj(real)
	t := quat.Scale(2, quat.Mul(q.Dual, quat.Conj(q.Real)))
	return r3.Vector{X: t.Imag, Y: t.Jmag, Z: t.Kmag}
}

// Orientation returns the rotation component of the transformation.
func (q *dualQuaternion) Orientation() quat.Number {
	return q.Real
}

// setTranslation sets the dual part so that the transformation translates by the given vector,
// leaving the rotation untouched.
func (q *dualQuaternion) setTranslation(point r3.Vector) {
	t := quat.Number{Imag: point.X, Jmag: point.Y, Kmag: point.Z}
	q.Dual = quat.Scale(0.5, quat.Mul(t, q.Real))
}

// mulPose composes two transformations, applying other within the frame of q.
func (q *dualQuaternion) mulPose(other *dualQuaternion) *dualQuaternion {
	result := &dualQuaternion{dualquat.Mul(q.Number, other.Number)}
	// Products of unit quaternions drift from unit length over long chains of composition.
	if norm := quat.Abs(result.Real); !Float64AlmostEqual(norm, 1, 1e-10) {
		result.Real = quat.Scale(1/norm, result.Real)
		result.Dual = quat.Scale(1/norm, result.Dual)
	}
	return result
}

// invert returns the inverse transformation. For a unit dual quaternion this is the
// quaternion conjugate of both parts.
func (q *dualQuaternion) invert() *dualQuaternion {
	return &dualQuaternion{dualquat.ConjQuat(q.Number)}
}

// normalizeQuat scales a quaternion to unit length, substituting identity for a zero input.
func normalizeQuat(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 || math.IsNaN(norm) {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}
