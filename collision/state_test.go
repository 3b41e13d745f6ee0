package collision

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/roboplan/spherecheck/spatialmath"
)

func chainModel(t *testing.T) *Model {
	t.Helper()
	kin := chainKinematics(t)
	cfg := &ModelConfig{Spheres: []SphereConfig{
		{Name: "base_s", Link: "base", Radius: 0.2},
		{Name: "s1", Link: "link_1", X: 0.5, Radius: 0.1},
		{Name: "s2", Link: "link_2", X: 0.5, Radius: 0.1},
		{Name: "s3", Link: "link_3", X: 0.5, Radius: 0.1},
	}}
	m, err := NewModel(kin, cfg)
	test.That(t, err, test.ShouldBeNil)
	return m
}

// updateAll brings every sphere of the state up to date.
func updateAll(t *testing.T, s *State) {
	t.Helper()
	for i := 0; i < s.NumSpheres(); i++ {
		test.That(t, s.UpdateSphereState(i), test.ShouldBeNil)
	}
}

func TestQueryBeforeConfigurationFails(t *testing.T) {
	s := NewState(chainModel(t))
	err := s.UpdateSphereState(0)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no joint configuration")
}

func TestJointLengthMismatch(t *testing.T) {
	s := NewState(chainModel(t))
	err := s.SetJointPositions([]float64{0, 0})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "does not match model DoF")
	// State unchanged: still no configuration.
	test.That(t, s.UpdateSphereState(0), test.ShouldNotBeNil)
}

func TestSphereIndexOutOfRange(t *testing.T) {
	s := NewState(chainModel(t))
	test.That(t, s.SetJointPositions([]float64{0, 0, 0}), test.ShouldBeNil)
	err := s.UpdateSphereState(99)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "out of range")
}

func TestForwardKinematicsZeroConfiguration(t *testing.T) {
	s := NewState(chainModel(t))
	test.That(t, s.SetJointPositions([]float64{0, 0, 0}), test.ShouldBeNil)
	updateAll(t, s)

	test.That(t, spatialmath.R3VectorAlmostEqual(s.SphereState(0).Pos, r3.Vector{}, 1e-10), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(s.SphereState(1).Pos, r3.Vector{X: 1.5}, 1e-10), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(s.SphereState(2).Pos, r3.Vector{X: 2.5}, 1e-10), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(s.SphereState(3).Pos, r3.Vector{X: 3.5}, 1e-10), test.ShouldBeTrue)
}

func TestForwardKinematicsElbowBend(t *testing.T) {
	s := NewState(chainModel(t))
	test.That(t, s.SetJointPositions([]float64{0, math.Pi / 2, 0}), test.ShouldBeNil)
	updateAll(t, s)

	// The bend happens at link_2's joint: link_1 spheres are untouched, downstream spheres
	// rotate about (2,0,0).
	test.That(t, spatialmath.R3VectorAlmostEqual(s.SphereState(1).Pos, r3.Vector{X: 1.5}, 1e-10), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(s.SphereState(2).Pos, r3.Vector{X: 2, Y: 0.5}, 1e-10), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(s.SphereState(3).Pos, r3.Vector{X: 2, Y: 1.5}, 1e-10), test.ShouldBeTrue)
}

func TestLazyStateMatchesFromScratch(t *testing.T) {
	// After a sequence of incremental joint updates, every sphere position equals
	// forward kinematics evaluated from scratch on the final configuration.
	model := chainModel(t)
	lazy := NewState(model)

	sequences := [][]float64{
		{0, 0, 0},
		{0.3, 0, 0},
		{0.3, -1.1, 0},
		{0.3, -1.1, 2.0},
		{-0.5, -1.1, 2.0},
		{-0.5, -1.1, 2.0}, // no-op update
	}
	for _, q := range sequences {
		test.That(t, lazy.SetJointPositions(q), test.ShouldBeNil)
		updateAll(t, lazy)

		scratch := NewState(model)
		test.That(t, scratch.SetJointPositions(q), test.ShouldBeNil)
		updateAll(t, scratch)

		for i := 0; i < lazy.NumSpheres(); i++ {
			test.That(t, spatialmath.R3VectorAlmostEqual(
				lazy.SphereState(i).Pos, scratch.SphereState(i).Pos, 1e-10), test.ShouldBeTrue)
		}
	}
}

func TestVersionsOnlyBumpDownstream(t *testing.T) {
	s := NewState(chainModel(t))
	test.That(t, s.SetJointPositions([]float64{0, 0, 0}), test.ShouldBeNil)
	updateAll(t, s)

	baseVersion := s.SphereState(0).version
	s1Version := s.SphereState(1).version

	// Moving the last joint leaves base and link_1 spheres current.
	test.That(t, s.SetJointPositions([]float64{0, 0, 1.0}), test.ShouldBeNil)
	updateAll(t, s)
	test.That(t, s.SphereState(0).version, test.ShouldEqual, baseVersion)
	test.That(t, s.SphereState(1).version, test.ShouldEqual, s1Version)
	test.That(t, s.SphereState(3).version, test.ShouldNotEqual, s1Version)
}

func TestWorldToModelTransform(t *testing.T) {
	s := NewState(chainModel(t))
	test.That(t, s.SetJointPositions([]float64{0, 0, 0}), test.ShouldBeNil)
	updateAll(t, s)

	s.SetWorldToModelTransform(spatialmath.NewPoseFromPoint(r3.Vector{X: 10, Y: 10, Z: 10}))
	updateAll(t, s)
	test.That(t, spatialmath.R3VectorAlmostEqual(s.SphereState(0).Pos, r3.Vector{X: 10, Y: 10, Z: 10}, 1e-10), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(s.SphereState(1).Pos, r3.Vector{X: 11.5, Y: 10, Z: 10}, 1e-10), test.ShouldBeTrue)
}

func TestAttachDetach(t *testing.T) {
	model := chainModel(t)
	s := NewState(model)
	test.That(t, s.SetJointPositions([]float64{0, 0, 0}), test.ShouldBeNil)

	link3, err := model.Kinematics().LinkIndex("link_3")
	test.That(t, err, test.ShouldBeNil)
	nBase := s.NumSpheres()
	nBasePairs := len(s.CandidatePairs())

	err = s.Attach("payload", link3, []SphereModel{
		{Name: "payload_0", Radius: 0.05, Offset: r3.Vector{X: 0.7}},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.NumSpheres(), test.ShouldEqual, nBase+1)
	test.That(t, len(s.CandidatePairs()), test.ShouldBeGreaterThan, nBasePairs)

	// The attached sphere follows the link.
	updateAll(t, s)
	test.That(t, spatialmath.R3VectorAlmostEqual(
		s.SphereState(nBase).Pos, r3.Vector{X: 3.7}, 1e-10), test.ShouldBeTrue)

	err = s.Attach("payload", link3, []SphereModel{{Name: "dup", Radius: 0.05}})
	test.That(t, err, test.ShouldNotBeNil)

	link, err := s.Detach("payload")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, link, test.ShouldEqual, link3)
	test.That(t, s.NumSpheres(), test.ShouldEqual, nBase)
	test.That(t, len(s.CandidatePairs()), test.ShouldEqual, nBasePairs)

	_, err = s.Detach("payload")
	test.That(t, err, test.ShouldNotBeNil)
}
