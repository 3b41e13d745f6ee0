package referenceframe

import (
	"encoding/xml"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/roboplan/spherecheck/spatialmath"
)

// URDFConfig represents the supported fields of a Universal Robot Description Format file.
type URDFConfig struct {
	XMLName xml.Name    `xml:"robot"`
	Name    string      `xml:"name,attr"`
	Links   []URDFLink  `xml:"link"`
	Joints  []URDFJoint `xml:"joint"`
}

// URDFLink details the XML used in a URDF link element.
type URDFLink struct {
	XMLName xml.Name `xml:"link"`
	Name    string   `xml:"name,attr"`
}

// URDFJoint details the XML used in a URDF joint element.
type URDFJoint struct {
	XMLName xml.Name   `xml:"joint"`
	Name    string     `xml:"name,attr"`
	Type    string     `xml:"type,attr"`
	Parent  URDFFrame  `xml:"parent"`
	Child   URDFFrame  `xml:"child"`
	Origin  *URDFPose  `xml:"origin,omitempty"`
	Axis    *URDFAxis  `xml:"axis,omitempty"`
	Limit   *URDFLimit `xml:"limit,omitempty"`
}

// URDFFrame refers to a link by name from within a joint element.
type URDFFrame struct {
	Link string `xml:"link,attr"`
}

// URDFPose is a URDF origin element: a space-delimited translation and fixed-axis RPY rotation.
type URDFPose struct {
	XYZ string `xml:"xyz,attr"`
	RPY string `xml:"rpy,attr"`
}

// URDFAxis is a joint axis as a space-delimited unit vector.
type URDFAxis struct {
	XYZ string `xml:"xyz,attr"`
}

// URDFLimit holds joint limits; translation limits are in meters, revolute limits in radians.
type URDFLimit struct {
	Lower float64 `xml:"lower,attr"`
	Upper float64 `xml:"upper,attr"`
}

// ErrNoModelInformation is returned when a robot description contains nothing to build from.
var ErrNoModelInformation = errors.New("no model information found in robot description")

// ParseURDFFile reads a URDF file and parses it into a Model. If modelName is empty the name
// from the URDF itself is used.
func ParseURDFFile(filename, modelName string) (*Model, error) {
	//nolint:gosec
	xmlData, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read URDF file")
	}
	return ParseURDF(xmlData, modelName)
}

// ParseURDF parses URDF XML data into a Model. Fixed, revolute, continuous, and prismatic
// joints are supported; configuration problems are aggregated and fail the whole parse.
func ParseURDF(xmlData []byte, modelName string) (*Model, error) {
	if len(xmlData) == 0 {
		return nil, ErrNoModelInformation
	}
	urdf := &URDFConfig{}
	if err := xml.Unmarshal(xmlData, urdf); err != nil {
		return nil, errors.Wrap(err, "failed to parse URDF XML")
	}
	if modelName == "" {
		modelName = urdf.Name
	}
	if len(urdf.Links) == 0 {
		return nil, ErrNoModelInformation
	}

	var err error
	childJoint := make(map[string]*URDFJoint, len(urdf.Joints))
	for i := range urdf.Joints {
		joint := &urdf.Joints[i]
		if prev, ok := childJoint[joint.Child.Link]; ok {
			err = multierr.Append(err, errors.Errorf("link %q is the child of joints %q and %q", joint.Child.Link, prev.Name, joint.Name))
			continue
		}
		childJoint[joint.Child.Link] = joint
	}

	configs := make([]LinkConfig, 0, len(urdf.Links))
	for _, urdfLink := range urdf.Links {
		cfg := LinkConfig{Name: urdfLink.Name}
		if joint, ok := childJoint[urdfLink.Name]; ok {
			cfg.Parent = joint.Parent.Link
			cfg.Origin = urdfPoseToPose(joint.Origin)
			frame, frameErr := urdfJointFrame(joint)
			if frameErr != nil {
				err = multierr.Append(err, frameErr)
				continue
			}
			cfg.Joint = frame
		}
		configs = append(configs, cfg)
	}
	if err != nil {
		return nil, err
	}
	return NewModel(modelName, configs)
}

func urdfJointFrame(joint *URDFJoint) (Frame, error) {
	axis := r3.Vector{X: 1}
	if joint.Axis != nil {
		fields := spaceDelimitedFloats(joint.Axis.XYZ)
		if len(fields) == 3 {
			axis = r3.Vector{X: fields[0], Y: fields[1], Z: fields[2]}
		}
	}
	switch joint.Type {
	case "fixed":
		return nil, nil
	case "revolute", "prismatic":
		if joint.Limit == nil {
			return nil, errors.Errorf("joint %q of type %q has no limit element", joint.Name, joint.Type)
		}
		limit := Limit{Min: joint.Limit.Lower, Max: joint.Limit.Upper}
		if joint.Type == "revolute" {
			return NewRotationalFrame(joint.Name, axis, limit)
		}
		return NewTranslationalFrame(joint.Name, axis, limit)
	case "continuous":
		return NewRotationalFrame(joint.Name, axis, Limit{Min: -2 * math.Pi, Max: 2 * math.Pi})
	default:
		return nil, errors.Errorf("unsupported joint type %q on joint %q", joint.Type, joint.Name)
	}
}

func urdfPoseToPose(origin *URDFPose) spatialmath.Pose {
	if origin == nil {
		return spatialmath.NewZeroPose()
	}
	point := r3.Vector{}
	if fields := spaceDelimitedFloats(origin.XYZ); len(fields) == 3 {
		point = r3.Vector{X: fields[0], Y: fields[1], Z: fields[2]}
	}
	rot := spatialmath.QuatFromRPY(0, 0, 0)
	if fields := spaceDelimitedFloats(origin.RPY); len(fields) == 3 {
		rot = spatialmath.QuatFromRPY(fields[0], fields[1], fields[2])
	}
	return spatialmath.NewPose(point, rot)
}

// spaceDelimitedFloats splits up space-delimited fields in URDFs, such as xyz or rpy
// attributes. Unparseable fields become NaN.
func spaceDelimitedFloats(s string) []float64 {
	var converted []float64
	for _, value := range strings.Fields(s) {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			parsed = math.NaN()
		}
		converted = append(converted, parsed)
	}
	return converted
}
