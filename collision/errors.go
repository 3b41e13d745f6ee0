package collision

import "github.com/pkg/errors"

// errNoJointConfiguration is returned by queries made before any joint configuration has been
// installed; the query fails and the state is unchanged.
var errNoJointConfiguration = errors.New("no joint configuration set")

// NewJointLengthMismatchError returns the domain error for a joint vector whose length does
// not match the planning-joint ordering established at initialization.
func NewJointLengthMismatchError(want, got int) error {
	return errors.Errorf("joint vector length %d does not match model DoF %d", got, want)
}

// NewSphereIndexError returns the domain error for a sphere index outside the state.
func NewSphereIndexError(idx, n int) error {
	return errors.Errorf("sphere index %d out of range [0,%d)", idx, n)
}
