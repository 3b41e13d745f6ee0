package voxelgrid

import (
	"math"

	"github.com/pkg/errors"
)

// neighborOffsets enumerates the 26-connected neighborhood used for distance propagation.
var neighborOffsets = func() [][3]int {
	offsets := make([][3]int, 0, 26)
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				offsets = append(offsets, [3]int{dx, dy, dz})
			}
		}
	}
	return offsets
}()

// AddObstacle marks the given cells occupied and relaxes the distance field around them. If
// any cell is out of bounds the whole call fails and the field is left untouched.
func (df *DistanceField) AddObstacle(cells []Cell) error {
	for _, c := range cells {
		if !df.InBounds(c) {
			return errors.Errorf("obstacle cell (%d,%d,%d) out of grid bounds", c.X, c.Y, c.Z)
		}
	}
	frontier := make([]int, 0, len(cells))
	for _, c := range cells {
		i := df.index(c)
		df.occ[i]++
		if df.occ[i] == 1 {
			df.dist[i] = 0
			df.anchor[i] = int32(i)
			frontier = append(frontier, i)
		}
	}
	df.propagate(frontier)
	return nil
}

// RemoveObstacle unmarks the given cells and re-propagates distances within the affected
// radius. Each cell must be in bounds and currently occupied or the whole call fails with the
// field left untouched.
func (df *DistanceField) RemoveObstacle(cells []Cell) error {
	counts := make(map[int]uint16, len(cells))
	for _, c := range cells {
		if !df.InBounds(c) {
			return errors.Errorf("obstacle cell (%d,%d,%d) out of grid bounds", c.X, c.Y, c.Z)
		}
		i := df.index(c)
		counts[i]++
		if counts[i] > df.occ[i] {
			return errors.Errorf("cell (%d,%d,%d) is not occupied", c.X, c.Y, c.Z)
		}
	}

	cleared := make(map[int32]struct{})
	lo := Cell{X: df.nx, Y: df.ny, Z: df.nz}
	hi := Cell{X: -1, Y: -1, Z: -1}
	for i, n := range counts {
		df.occ[i] -= n
		if df.occ[i] == 0 {
			cleared[int32(i)] = struct{}{}
			c := df.cell(i)
			lo = Cell{X: min(lo.X, c.X), Y: min(lo.Y, c.Y), Z: min(lo.Z, c.Z)}
			hi = Cell{X: max(hi.X, c.X), Y: max(hi.Y, c.Y), Z: max(hi.Z, c.Z)}
		}
	}
	if len(cleared) == 0 {
		return nil
	}

	// Only cells anchored to a cleared obstacle can change, and those all lie within the
	// saturation radius of the cleared region. Reset them, then re-seed from every surviving
	// anchor in the expanded region and relax.
	reach := int(math.Ceil(df.maxDist/df.resolution)) + 1
	lo = Cell{X: max(lo.X-reach, 0), Y: max(lo.Y-reach, 0), Z: max(lo.Z-reach, 0)}
	hi = Cell{X: min(hi.X+reach, df.nx-1), Y: min(hi.Y+reach, df.ny-1), Z: min(hi.Z+reach, df.nz-1)}

	var frontier []int
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				i := df.index(Cell{X: x, Y: y, Z: z})
				if df.anchor[i] < 0 {
					continue
				}
				if _, gone := cleared[df.anchor[i]]; gone {
					df.dist[i] = df.maxDist
					df.anchor[i] = -1
				}
			}
		}
	}
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				i := df.index(Cell{X: x, Y: y, Z: z})
				if df.anchor[i] >= 0 {
					frontier = append(frontier, i)
				}
			}
		}
	}
	df.propagate(frontier)
	return nil
}

// propagate relaxes the field outward from the frontier cells, each of which must already
// carry a valid anchor. Distances beyond the saturation radius are left at maxDist.
func (df *DistanceField) propagate(frontier []int) {
	for len(frontier) > 0 {
		i := frontier[0]
		frontier = frontier[1:]
		c := df.cell(i)
		a := df.cell(int(df.anchor[i]))
		for _, off := range neighborOffsets {
			n := Cell{X: c.X + off[0], Y: c.Y + off[1], Z: c.Z + off[2]}
			if !df.InBounds(n) {
				continue
			}
			cand := df.cellDistance(n, a)
			if cand >= df.maxDist {
				continue
			}
			j := df.index(n)
			if cand < df.dist[j]-1e-12 {
				df.dist[j] = cand
				df.anchor[j] = df.anchor[i]
				frontier = append(frontier, j)
			}
		}
	}
}

// cellDistance returns the Euclidean distance between two cell centers in world units.
func (df *DistanceField) cellDistance(a, b Cell) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	return math.Sqrt(dx*dx+dy*dy+dz*dz) * df.resolution
}
