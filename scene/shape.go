package scene

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ShapeKind enumerates the supported obstacle geometries.
type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	ShapeSphere
	ShapeCylinder
	ShapeMesh
)

// Shape is an obstacle geometry in its own local frame, centered at the origin. Dims is
// interpreted per kind: full box extents, sphere radius in X, cylinder radius in X and
// length in Z. Mesh shapes carry their vertices instead.
type Shape struct {
	Kind     ShapeKind
	Dims     r3.Vector
	Vertices []r3.Vector
}

// NewBox returns a box shape with the given full extents.
func NewBox(dims r3.Vector) Shape {
	return Shape{Kind: ShapeBox, Dims: dims}
}

// NewSphere returns a sphere shape with the given radius.
func NewSphere(radius float64) Shape {
	return Shape{Kind: ShapeSphere, Dims: r3.Vector{X: radius}}
}

// NewCylinder returns a Z-aligned cylinder shape with the given radius and length.
func NewCylinder(radius, length float64) Shape {
	return Shape{Kind: ShapeCylinder, Dims: r3.Vector{X: radius, Z: length}}
}

// NewMesh returns a mesh shape over the given local-frame vertices.
func NewMesh(vertices []r3.Vector) Shape {
	return Shape{Kind: ShapeMesh, Vertices: vertices}
}

// contains reports whether a local-frame point lies inside the shape. Meshes are handled by
// vertex voxelization and never reach here.
func (sh Shape) contains(p r3.Vector) bool {
	switch sh.Kind {
	case ShapeBox:
		return math.Abs(p.X) <= sh.Dims.X/2 && math.Abs(p.Y) <= sh.Dims.Y/2 && math.Abs(p.Z) <= sh.Dims.Z/2
	case ShapeSphere:
		return p.Norm() <= sh.Dims.X
	case ShapeCylinder:
		return math.Hypot(p.X, p.Y) <= sh.Dims.X && math.Abs(p.Z) <= sh.Dims.Z/2
	default:
		return false
	}
}

// boundingRadius returns the radius of the smallest origin-centered sphere containing the
// shape.
func (sh Shape) boundingRadius() (float64, error) {
	switch sh.Kind {
	case ShapeBox:
		return sh.Dims.Norm() / 2, nil
	case ShapeSphere:
		return sh.Dims.X, nil
	case ShapeCylinder:
		return math.Hypot(sh.Dims.X, sh.Dims.Z/2), nil
	case ShapeMesh:
		if len(sh.Vertices) == 0 {
			return 0, errors.New("mesh shape has no vertices")
		}
		var radius float64
		for _, v := range sh.Vertices {
			radius = math.Max(radius, v.Norm())
		}
		return radius, nil
	default:
		return 0, errors.Errorf("unknown shape kind %d", sh.Kind)
	}
}
