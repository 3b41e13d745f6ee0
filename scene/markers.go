package scene

import (
	"github.com/golang/geo/r3"

	"github.com/roboplan/spherecheck/voxelgrid"
)

// Markers are advisory visualization data; whether they are rendered has no effect on the
// geometric contract.

// SphereMarker is a collision sphere at its current world position.
type SphereMarker struct {
	Name   string
	Center r3.Vector
	Radius float64
}

// VoxelMarker is one occupied grid cell.
type VoxelMarker struct {
	Cell   voxelgrid.Cell
	Center r3.Vector
	Size   float64
}

// BoundsMarker is the axis-aligned bounding box of the grid.
type BoundsMarker struct {
	Origin r3.Vector
	Size   r3.Vector
}

// SphereMarkers returns a marker for every collision sphere, attached bodies included,
// resolved at the current joint configuration.
func (s *Scene) SphereMarkers() ([]SphereMarker, error) {
	state := s.checker.State()
	markers := make([]SphereMarker, 0, state.NumSpheres())
	for i := 0; i < state.NumSpheres(); i++ {
		if err := state.UpdateSphereState(i); err != nil {
			return nil, err
		}
		ss := state.SphereState(i)
		markers = append(markers, SphereMarker{
			Name:   ss.Model.Name,
			Center: ss.Pos,
			Radius: ss.Model.Radius,
		})
	}
	return markers, nil
}

// VoxelMarkers returns a marker for every occupied cell, in deterministic scan order.
func (s *Scene) VoxelMarkers() []VoxelMarker {
	cells := s.grid.OccupiedCells()
	markers := make([]VoxelMarker, 0, len(cells))
	for _, c := range cells {
		markers = append(markers, VoxelMarker{
			Cell:   c,
			Center: s.grid.GridToWorld(c),
			Size:   s.grid.Resolution(),
		})
	}
	return markers
}

// BoundsMarker returns the grid's bounding box.
func (s *Scene) BoundsMarker() BoundsMarker {
	nx, ny, nz := s.grid.Dimensions()
	res := s.grid.Resolution()
	return BoundsMarker{
		Origin: s.grid.Origin(),
		Size:   r3.Vector{X: float64(nx) * res, Y: float64(ny) * res, Z: float64(nz) * res},
	}
}
