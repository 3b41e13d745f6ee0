package referenceframe

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/roboplan/spherecheck/spatialmath"
)

func twoJointArm(t *testing.T) *Model {
	t.Helper()
	shoulder, err := NewRotationalFrame("shoulder", r3.Vector{Z: 1}, Limit{Min: -math.Pi, Max: math.Pi})
	test.That(t, err, test.ShouldBeNil)
	elbow, err := NewRotationalFrame("elbow", r3.Vector{Z: 1}, Limit{Min: -math.Pi, Max: math.Pi})
	test.That(t, err, test.ShouldBeNil)
	m, err := NewModel("arm", []LinkConfig{
		{Name: "base"},
		{Name: "upper", Parent: "base", Joint: shoulder},
		{Name: "fore", Parent: "upper", Origin: spatialmath.NewPoseFromPoint(r3.Vector{X: 1}), Joint: elbow},
		{Name: "tool", Parent: "fore", Origin: spatialmath.NewPoseFromPoint(r3.Vector{X: 1})},
	})
	test.That(t, err, test.ShouldBeNil)
	return m
}

func TestModelStructure(t *testing.T) {
	m := twoJointArm(t)
	test.That(t, m.NumLinks(), test.ShouldEqual, 4)
	test.That(t, len(m.DoF()), test.ShouldEqual, 2)

	base, err := m.LinkIndex("base")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Root(), test.ShouldEqual, base)
	test.That(t, m.Parent(base), test.ShouldEqual, -1)

	fore, err := m.LinkIndex("fore")
	test.That(t, err, test.ShouldBeNil)
	upper, err := m.LinkIndex("upper")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.AdjacentLinks(fore, upper), test.ShouldBeTrue)
	test.That(t, m.AdjacentLinks(base, fore), test.ShouldBeFalse)

	_, err = m.LinkIndex("missing")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLinkTransform(t *testing.T) {
	m := twoJointArm(t)
	fore, err := m.LinkIndex("fore")
	test.That(t, err, test.ShouldBeNil)

	pose, err := m.LinkTransform(fore, FloatsToInputs([]float64{0, math.Pi / 2}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 1}, 1e-10), test.ShouldBeTrue)
	// A point one unit along the rotated X axis lands on +Y of the parent frame, offset by
	// the link origin.
	pt := spatialmath.TransformPoint(pose, r3.Vector{X: 1})
	test.That(t, spatialmath.R3VectorAlmostEqual(pt, r3.Vector{X: 1, Y: 1}, 1e-10), test.ShouldBeTrue)
}

func TestLinkTransformInputMismatch(t *testing.T) {
	m := twoJointArm(t)
	_, err := m.LinkTransform(0, FloatsToInputs([]float64{0}))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, m.ValidateInputs(FloatsToInputs([]float64{0, 0, 0})), test.ShouldNotBeNil)
	test.That(t, m.ValidateInputs(FloatsToInputs([]float64{0, 0})), test.ShouldBeNil)
}

func TestOutOfBoundsJoint(t *testing.T) {
	m := twoJointArm(t)
	upper, err := m.LinkIndex("upper")
	test.That(t, err, test.ShouldBeNil)
	pose, err := m.LinkTransform(upper, FloatsToInputs([]float64{2 * math.Pi, 0}))
	test.That(t, pose, test.ShouldNotBeNil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, OOBErrString)
}

func TestModelConfigErrors(t *testing.T) {
	_, err := NewModel("bad", []LinkConfig{
		{Name: "a", Parent: "ghost"},
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown parent")

	_, err = NewModel("bad", []LinkConfig{
		{Name: "a"},
		{Name: "a", Parent: "a"},
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate link name")

	_, err = NewModel("bad", []LinkConfig{
		{Name: "a", Parent: "b"},
		{Name: "b", Parent: "a"},
	})
	test.That(t, err, test.ShouldNotBeNil)
}
