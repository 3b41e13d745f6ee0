package collision

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/roboplan/spherecheck/voxelgrid"
)

// checkMode selects what a query is for: pruning search states or shaping costs.
type checkMode int

const (
	// modePredicate returns eagerly on the first collision found.
	modePredicate checkMode = iota
	// modeClearance keeps going to gather the minimum clearance.
	modeClearance
)

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithPadding sets the padding added to every sphere radius by DistanceToNearest; zero by
// default. CollisionCheck takes padding per call.
func WithPadding(padding float64) CheckerOption {
	return func(c *Checker) { c.padding = padding }
}

// WithClearanceThreshold enables eager return from clearance queries once the running minimum
// falls below the threshold. A threshold of zero or below disables it.
func WithClearanceThreshold(threshold float64) CheckerOption {
	return func(c *Checker) { c.clearanceThreshold = threshold }
}

// Checker orchestrates the sphere hierarchy over the distance field and the self-collision
// pairs. A Checker owns its grid and state and must not be shared between goroutines; the
// Model and a frozen AllowedCollisionMatrix may be shared across instances.
type Checker struct {
	grid   *voxelgrid.DistanceField
	model  *Model
	state  *State
	acm    *AllowedCollisionMatrix
	logger golog.Logger

	padding            float64
	clearanceThreshold float64

	// worldQueries counts distance-field lookups per query, for verifying hierarchy pruning.
	worldQueries int
}

// NewChecker creates a collision checker for a robot model over a distance field.
func NewChecker(
	grid *voxelgrid.DistanceField,
	model *Model,
	acm *AllowedCollisionMatrix,
	logger golog.Logger,
	opts ...CheckerOption,
) (*Checker, error) {
	if grid == nil {
		return nil, errors.New("distance field is required")
	}
	if model == nil {
		return nil, errors.New("collision model is required")
	}
	if acm == nil {
		acm = NewAllowedCollisionMatrix()
	}
	c := &Checker{
		grid:   grid,
		model:  model,
		state:  NewState(model),
		acm:    acm,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Grid returns the distance field the checker queries.
func (c *Checker) Grid() *voxelgrid.DistanceField { return c.grid }

// State returns the dynamic robot state the checker owns.
func (c *Checker) State() *State { return c.state }

// ACM returns the allowed collision matrix consulted by self-collision checks.
func (c *Checker) ACM() *AllowedCollisionMatrix { return c.acm }

// CollisionCheck reports whether the configuration is in collision, applying the given world
// padding. On collision it returns (true, 0); otherwise (false, minimum clearance), where the
// clearance is the smallest obstacle distance observed across all leaf spheres and the
// smallest surface distance across self-collision pairs.
func (c *Checker) CollisionCheck(q []float64, padding float64) (bool, float64, error) {
	return c.check(q, padding, modePredicate)
}

// DistanceToNearest returns the minimum clearance of the configuration, continuing through
// collisions to gather the true minimum; interpenetrating self pairs yield negative values.
func (c *Checker) DistanceToNearest(q []float64) (float64, error) {
	_, dist, err := c.check(q, c.padding, modeClearance)
	return dist, err
}

func (c *Checker) check(q []float64, padding float64, mode checkMode) (bool, float64, error) {
	if err := c.state.SetJointPositions(q); err != nil {
		return false, 0, err
	}
	c.worldQueries = 0
	collided := false
	minClearance := math.Inf(1)

	halfRes := 0.5 * c.grid.Resolution()
	var stack []int
	for _, root := range c.state.Roots() {
		stack = append(stack[:0], root)
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			c.worldQueries++
			collides, obs, err := checkSphereWorld(c.grid, c.state, padding, n, c.logger)
			if err != nil {
				return false, 0, err
			}
			sm := c.state.SphereState(n).Model

			if !sm.IsLeaf() {
				span := c.state.SubtreeSpan(n)
				if !collides && obs-(sm.Radius+halfRes+padding) > span {
					// No descendant can reach the nearest obstacle; obs-span bounds
					// every descendant's own obstacle distance from below.
					if obs-span < minClearance {
						minClearance = obs - span
					}
					continue
				}
				// Children are pre-sorted by priority; push in reverse so the
				// highest-priority child pops first.
				for i := len(sm.Children) - 1; i >= 0; i-- {
					stack = append(stack, sm.Children[i])
				}
				continue
			}

			if obs < minClearance {
				minClearance = obs
			}
			if collides {
				collided = true
				if mode == modePredicate {
					return true, 0, nil
				}
			}
			if mode == modeClearance && c.clearanceThreshold > 0 && minClearance < c.clearanceThreshold {
				return collided, minClearance, nil
			}
		}
	}

	for _, pair := range c.state.CandidatePairs() {
		collides, d, err := checkSphereSphere(c.state, c.acm, pair[0], pair[1])
		if err != nil {
			return false, 0, err
		}
		if d < minClearance {
			minClearance = d
		}
		if collides {
			collided = true
			if mode == modePredicate {
				return true, 0, nil
			}
		}
		if mode == modeClearance && c.clearanceThreshold > 0 && minClearance < c.clearanceThreshold {
			return collided, minClearance, nil
		}
	}
	return collided, minClearance, nil
}
