package collision

import (
	"math"

	"github.com/edaniels/golog"

	"github.com/roboplan/spherecheck/voxelgrid"
)

// checkSphereWorld checks a single sphere against the distance field. It returns whether the
// sphere collides with the world and the raw obstacle distance at the sphere's cell. A sphere
// whose center lies outside the grid is treated as a collision at distance zero, so that
// out-of-envelope configurations are pruned rather than crashing the planner; a diagnostic is
// emitted for it.
func checkSphereWorld(
	grid *voxelgrid.DistanceField,
	state *State,
	padding float64,
	idx int,
	logger golog.Logger,
) (bool, float64, error) {
	if err := state.UpdateSphereState(idx); err != nil {
		return false, 0, err
	}
	ss := state.SphereState(idx)

	cell := grid.WorldToGrid(ss.Pos)
	if !grid.InBounds(cell) {
		logger.Debugf("sphere %q with center at (%.3f, %.3f, %.3f) (%d, %d, %d) is out of bounds",
			ss.Model.Name, ss.Pos.X, ss.Pos.Y, ss.Pos.Z, cell.X, cell.Y, cell.Z)
		return true, 0, nil
	}

	obs := grid.Distance(cell)
	// The half-resolution term covers the worst-case error of the nearest-cell lookup.
	effectiveRadius := ss.Model.Radius + 0.5*grid.Resolution() + padding
	return obs <= effectiveRadius, obs, nil
}

// checkSphereSphere checks two spheres against each other, honoring the allowed collision
// matrix. It returns whether they collide and the distance between their surfaces, which is
// negative when they interpenetrate and +Inf when the pair is allowed.
func checkSphereSphere(state *State, acm *AllowedCollisionMatrix, a, b int) (bool, float64, error) {
	sa, sb := state.SphereState(a), state.SphereState(b)
	if acm != nil && acm.Allowed(state.LinkName(sa.Model.Link), state.LinkName(sb.Model.Link)) {
		return false, math.Inf(1), nil
	}
	if err := state.UpdateSphereState(a); err != nil {
		return false, 0, err
	}
	if err := state.UpdateSphereState(b); err != nil {
		return false, 0, err
	}
	d := sa.Pos.Sub(sb.Pos).Norm() - (sa.Model.Radius + sb.Model.Radius)
	return d <= 0, d, nil
}
