// Package voxelgrid implements a uniform 3D voxel grid storing the Euclidean distance from
// each cell to the nearest occupied cell, saturated at a configured maximum. It is the static
// world representation queried by the collision checker.
package voxelgrid

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Cell identifies a single voxel by its integer grid coordinates.
type Cell struct {
	X, Y, Z int
}

// DistanceField is a dense Euclidean distance field over a uniform voxel grid. A field is
// owned by a single checker instance; callers serialize access externally.
type DistanceField struct {
	origin     r3.Vector
	nx, ny, nz int
	resolution float64
	maxDist    float64

	// dist holds the distance to the nearest occupied cell, in world units, clamped to
	// maxDist. anchor holds the flat index of that cell, or -1 where dist is saturated.
	// occ counts how many obstacles occupy each cell, so overlapping objects remove cleanly.
	dist   []float64
	anchor []int32
	occ    []uint16
}

// NewDistanceField creates an empty field with the given origin, world-unit size along each
// axis, cell resolution, and saturation distance.
func NewDistanceField(origin, size r3.Vector, resolution, maxDistance float64) (*DistanceField, error) {
	if resolution <= 0 {
		return nil, errors.Errorf("resolution must be positive, got %f", resolution)
	}
	if maxDistance <= 0 {
		return nil, errors.Errorf("max distance must be positive, got %f", maxDistance)
	}
	nx := int(math.Ceil(size.X / resolution))
	ny := int(math.Ceil(size.Y / resolution))
	nz := int(math.Ceil(size.Z / resolution))
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, errors.Errorf("grid size %v too small for resolution %f", size, resolution)
	}
	n := nx * ny * nz
	df := &DistanceField{
		origin:     origin,
		nx:         nx,
		ny:         ny,
		nz:         nz,
		resolution: resolution,
		maxDist:    maxDistance,
		dist:       make([]float64, n),
		anchor:     make([]int32, n),
		occ:        make([]uint16, n),
	}
	for i := range df.dist {
		df.dist[i] = maxDistance
		df.anchor[i] = -1
	}
	return df, nil
}

// Origin returns the world coordinates of the grid corner at cell (0,0,0).
func (df *DistanceField) Origin() r3.Vector { return df.origin }

// Resolution returns the cell edge length in world units.
func (df *DistanceField) Resolution() float64 { return df.resolution }

// MaxDistance returns the saturation distance of the field.
func (df *DistanceField) MaxDistance() float64 { return df.maxDist }

// Dimensions returns the cell counts along each axis.
func (df *DistanceField) Dimensions() (int, int, int) { return df.nx, df.ny, df.nz }

// WorldToGrid maps a world point to the cell containing it. The result is not clamped and may
// be out of bounds; callers must check with InBounds before querying.
func (df *DistanceField) WorldToGrid(p r3.Vector) Cell {
	return Cell{
		X: int(math.Floor((p.X - df.origin.X) / df.resolution)),
		Y: int(math.Floor((p.Y - df.origin.Y) / df.resolution)),
		Z: int(math.Floor((p.Z - df.origin.Z) / df.resolution)),
	}
}

// GridToWorld returns the world coordinates of the center of a cell.
func (df *DistanceField) GridToWorld(c Cell) r3.Vector {
	return r3.Vector{
		X: df.origin.X + (float64(c.X)+0.5)*df.resolution,
		Y: df.origin.Y + (float64(c.Y)+0.5)*df.resolution,
		Z: df.origin.Z + (float64(c.Z)+0.5)*df.resolution,
	}
}

// InBounds reports whether a cell lies strictly within the grid extents.
func (df *DistanceField) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < df.nx && c.Y >= 0 && c.Y < df.ny && c.Z >= 0 && c.Z < df.nz
}

// Distance returns the stored distance for a cell. The cell must be in bounds; callers are
// required to pre-check with InBounds.
func (df *DistanceField) Distance(c Cell) float64 {
	return df.dist[df.index(c)]
}

// Occupied reports whether any obstacle occupies the cell.
func (df *DistanceField) Occupied(c Cell) bool {
	return df.occ[df.index(c)] > 0
}

// OccupiedCells returns every occupied cell in deterministic scan order.
func (df *DistanceField) OccupiedCells() []Cell {
	var cells []Cell
	for i, n := range df.occ {
		if n > 0 {
			cells = append(cells, df.cell(i))
		}
	}
	return cells
}

func (df *DistanceField) index(c Cell) int {
	return (c.Z*df.ny+c.Y)*df.nx + c.X
}

func (df *DistanceField) cell(i int) Cell {
	x := i % df.nx
	i /= df.nx
	return Cell{X: x, Y: i % df.ny, Z: i / df.ny}
}
