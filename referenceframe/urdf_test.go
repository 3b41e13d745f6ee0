package referenceframe

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/roboplan/spherecheck/spatialmath"
)

const testURDF = `<?xml version="1.0"?>
<robot name="two_link">
  <link name="base_link"/>
  <link name="link_1"/>
  <link name="link_2"/>
  <link name="tool"/>
  <joint name="joint_1" type="revolute">
    <parent link="base_link"/>
    <child link="link_1"/>
    <origin xyz="0 0 0.1" rpy="0 0 0"/>
    <axis xyz="0 0 1"/>
    <limit lower="-3.14" upper="3.14"/>
  </joint>
  <joint name="joint_2" type="prismatic">
    <parent link="link_1"/>
    <child link="link_2"/>
    <origin xyz="0.5 0 0" rpy="0 0 1.5707963267948966"/>
    <axis xyz="1 0 0"/>
    <limit lower="0" upper="0.2"/>
  </joint>
  <joint name="mount" type="fixed">
    <parent link="link_2"/>
    <child link="tool"/>
    <origin xyz="0 0 0.05"/>
  </joint>
</robot>`

func TestParseURDF(t *testing.T) {
	m, err := ParseURDF([]byte(testURDF), "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, "two_link")
	test.That(t, m.NumLinks(), test.ShouldEqual, 4)
	test.That(t, len(m.DoF()), test.ShouldEqual, 2)
	test.That(t, m.DoF()[0], test.ShouldResemble, Limit{Min: -3.14, Max: 3.14})
	test.That(t, m.DoF()[1], test.ShouldResemble, Limit{Min: 0, Max: 0.2})

	link1, err := m.LinkIndex("link_1")
	test.That(t, err, test.ShouldBeNil)
	pose, err := m.LinkTransform(link1, FloatsToInputs([]float64{0, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{Z: 0.1}, 1e-10), test.ShouldBeTrue)

	// The joint_2 origin carries a 90 degree yaw, so prismatic motion along local X moves
	// the link along the parent's Y.
	link2, err := m.LinkIndex("link_2")
	test.That(t, err, test.ShouldBeNil)
	pose, err = m.LinkTransform(link2, FloatsToInputs([]float64{0, 0.2}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 0.5, Y: 0.2}, 1e-10), test.ShouldBeTrue)

	tool, err := m.LinkIndex("tool")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.LinkJoint(tool), test.ShouldEqual, -1)
}

func TestParseURDFRoundTripRotation(t *testing.T) {
	m, err := ParseURDF([]byte(testURDF), "renamed")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, "renamed")

	link1, err := m.LinkIndex("link_1")
	test.That(t, err, test.ShouldBeNil)
	pose, err := m.LinkTransform(link1, FloatsToInputs([]float64{math.Pi / 2, 0}))
	test.That(t, err, test.ShouldBeNil)
	pt := spatialmath.TransformPoint(pose, r3.Vector{X: 1})
	test.That(t, spatialmath.R3VectorAlmostEqual(pt, r3.Vector{Y: 1, Z: 0.1}, 1e-10), test.ShouldBeTrue)
}

func TestParseURDFErrors(t *testing.T) {
	_, err := ParseURDF(nil, "")
	test.That(t, err, test.ShouldEqual, ErrNoModelInformation)

	_, err = ParseURDF([]byte("<robot name=\"empty\"></robot>"), "")
	test.That(t, err, test.ShouldEqual, ErrNoModelInformation)

	noLimit := `<robot name="r"><link name="a"/><link name="b"/>
	<joint name="j" type="revolute"><parent link="a"/><child link="b"/></joint></robot>`
	_, err = ParseURDF([]byte(noLimit), "")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no limit")

	badType := `<robot name="r"><link name="a"/><link name="b"/>
	<joint name="j" type="floating"><parent link="a"/><child link="b"/></joint></robot>`
	_, err = ParseURDF([]byte(badType), "")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported joint type")
}
