// Package referenceframe models the kinematic structure of a robot: the frames attached to
// its links, the joints connecting them, and the forward-kinematic transforms between them.
package referenceframe

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/roboplan/spherecheck/spatialmath"
)

// OOBErrString is contained in all out-of-bounds errors so they can be distinguished from
// other Transform errors; a pose is still returned alongside them.
const OOBErrString = "input out of bounds"

// Limit represents the limits of motion for one degree of freedom.
type Limit struct {
	Min float64
	Max float64
}

// Input wraps the input to a frame: a joint position in radians for revolute joints or world
// units for prismatic ones.
type Input struct {
	Value float64
}

// FloatsToInputs wraps a slice of floats in Inputs.
func FloatsToInputs(floats []float64) []Input {
	inputs := make([]Input, len(floats))
	for i, f := range floats {
		inputs[i] = Input{f}
	}
	return inputs
}

// InputsToFloats unwraps a slice of Inputs to floats.
func InputsToFloats(inputs []Input) []float64 {
	floats := make([]float64, len(inputs))
	for i, input := range inputs {
		floats[i] = input.Value
	}
	return floats
}

// Frame represents a single reference frame, e.g. a joint or a fixed attachment.
type Frame interface {
	// Name returns the name of the frame.
	Name() string

	// Transform is the pose that goes from this frame to its parent frame, given the
	// frame's inputs.
	Transform([]Input) (spatialmath.Pose, error)

	// DoF returns a slice describing the min and max of each degree of freedom of the
	// frame. Frames that do not move return an empty slice.
	DoF() []Limit
}

// staticFrame encodes a fixed translation and rotation from the current frame to its parent.
type staticFrame struct {
	name      string
	transform spatialmath.Pose
}

// NewStaticFrame creates a frame with a fixed pose relative to its parent. Pose is not
// allowed to be nil.
func NewStaticFrame(name string, pose spatialmath.Pose) (Frame, error) {
	if pose == nil {
		return nil, errors.New("pose is not allowed to be nil")
	}
	return &staticFrame{name, pose}, nil
}

// NewZeroStaticFrame creates a frame with no translation or orientation changes.
func NewZeroStaticFrame(name string) Frame {
	return &staticFrame{name, spatialmath.NewZeroPose()}
}

func (sf *staticFrame) Name() string {
	return sf.name
}

func (sf *staticFrame) Transform(input []Input) (spatialmath.Pose, error) {
	if len(input) != 0 {
		return nil, fmt.Errorf("given input length %d does not match frame DoF 0", len(input))
	}
	return sf.transform, nil
}

func (sf *staticFrame) DoF() []Limit {
	return []Limit{}
}

// rotationalFrame rotates about a fixed axis by the amount given in its input.
type rotationalFrame struct {
	name    string
	rotAxis r3.Vector
	limit   []Limit
}

// NewRotationalFrame creates a frame that rotates about the given axis, e.g. a revolute joint.
func NewRotationalFrame(name string, axis r3.Vector, limit Limit) (Frame, error) {
	if spatialmath.R3VectorAlmostEqual(r3.Vector{}, axis, 1e-8) {
		return nil, errors.New("cannot use zero vector as rotation axis")
	}
	return &rotationalFrame{name: name, rotAxis: axis.Normalize(), limit: []Limit{limit}}, nil
}

func (rf *rotationalFrame) Name() string {
	return rf.name
}

// Transform returns a pose rotated about the frame axis by the single input, in radians.
// Out-of-bounds inputs still yield a pose, alongside a non-nil error.
func (rf *rotationalFrame) Transform(input []Input) (spatialmath.Pose, error) {
	var err error
	if len(input) != 1 {
		return nil, fmt.Errorf("given input length %d does not match frame DoF 1", len(input))
	}
	if input[0].Value < rf.limit[0].Min || input[0].Value > rf.limit[0].Max {
		err = fmt.Errorf("%.5f %s %v", input[0].Value, OOBErrString, rf.limit[0])
	}
	return spatialmath.NewPoseFromAxisAngle(r3.Vector{}, rf.rotAxis, input[0].Value), err
}

func (rf *rotationalFrame) DoF() []Limit {
	return rf.limit
}

// translationalFrame translates along a fixed axis by the amount given in its input.
type translationalFrame struct {
	name      string
	transAxis r3.Vector
	limit     []Limit
}

// NewTranslationalFrame creates a frame that translates along the given axis, e.g. a
// prismatic joint.
func NewTranslationalFrame(name string, axis r3.Vector, limit Limit) (Frame, error) {
	if spatialmath.R3VectorAlmostEqual(r3.Vector{}, axis, 1e-8) {
		return nil, errors.New("cannot use zero vector as translation axis")
	}
	return &translationalFrame{name: name, transAxis: axis.Normalize(), limit: []Limit{limit}}, nil
}

func (pf *translationalFrame) Name() string {
	return pf.name
}

// Transform returns a pose translated along the frame axis by the single input.
// Out-of-bounds inputs still yield a pose, alongside a non-nil error.
func (pf *translationalFrame) Transform(input []Input) (spatialmath.Pose, error) {
	var err error
	if len(input) != 1 {
		return nil, fmt.Errorf("given input length %d does not match frame DoF 1", len(input))
	}
	if input[0].Value < pf.limit[0].Min || input[0].Value > pf.limit[0].Max {
		err = fmt.Errorf("%.5f %s %v", input[0].Value, OOBErrString, pf.limit[0])
	}
	return spatialmath.NewPoseFromPoint(pf.transAxis.Mul(input[0].Value)), err
}

func (pf *translationalFrame) DoF() []Limit {
	return pf.limit
}
