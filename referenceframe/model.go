package referenceframe

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/roboplan/spherecheck/spatialmath"
)

// LinkConfig describes one link of a kinematic tree: its name, the name of its parent link
// (empty for the root), a fixed origin pose relative to the parent, and an optional moving
// frame for the joint connecting it to the parent.
type LinkConfig struct {
	Name   string
	Parent string
	Origin spatialmath.Pose
	Joint  Frame
}

type link struct {
	name   string
	parent int
	origin spatialmath.Pose
	joint  Frame
	// jointIndex is the index of this link's joint in the planning-joint ordering, or -1
	// for fixed links.
	jointIndex int
}

// Model is an immutable kinematic tree. The ordering of its planning joints is fixed at
// construction, following link declaration order, and is never permuted. A Model may be
// shared freely between checker instances.
type Model struct {
	name        string
	links       []link
	nameToIndex map[string]int
	root        int
	dof         []Limit
}

// NewModel builds a kinematic tree from link configurations. Exactly one link must be a root
// (empty parent); all parents must name declared links and the tree must be acyclic.
// Configuration errors are aggregated so that all problems surface at once.
func NewModel(name string, configs []LinkConfig) (*Model, error) {
	m := &Model{
		name:        name,
		links:       make([]link, 0, len(configs)),
		nameToIndex: make(map[string]int, len(configs)),
		root:        -1,
	}
	var err error
	for i, cfg := range configs {
		if cfg.Name == "" {
			err = multierr.Append(err, errors.Errorf("link %d has no name", i))
			continue
		}
		if _, ok := m.nameToIndex[cfg.Name]; ok {
			err = multierr.Append(err, errors.Errorf("duplicate link name %q", cfg.Name))
			continue
		}
		origin := cfg.Origin
		if origin == nil {
			origin = spatialmath.NewZeroPose()
		}
		jointIndex := -1
		if cfg.Joint != nil && len(cfg.Joint.DoF()) > 0 {
			if len(cfg.Joint.DoF()) > 1 {
				err = multierr.Append(err, errors.Errorf("link %q has a joint with %d DoF, at most 1 supported", cfg.Name, len(cfg.Joint.DoF())))
				continue
			}
			jointIndex = len(m.dof)
			m.dof = append(m.dof, cfg.Joint.DoF()[0])
		}
		m.nameToIndex[cfg.Name] = len(m.links)
		m.links = append(m.links, link{
			name:       cfg.Name,
			parent:     -1,
			origin:     origin,
			joint:      cfg.Joint,
			jointIndex: jointIndex,
		})
	}
	for _, cfg := range configs {
		idx, ok := m.nameToIndex[cfg.Name]
		if !ok {
			continue
		}
		if cfg.Parent == "" {
			if m.root >= 0 && idx != m.root {
				err = multierr.Append(err, errors.Errorf("multiple root links: %q and %q", m.links[m.root].name, cfg.Name))
			}
			m.root = idx
			continue
		}
		parent, ok := m.nameToIndex[cfg.Parent]
		if !ok {
			err = multierr.Append(err, errors.Errorf("link %q references unknown parent %q", cfg.Name, cfg.Parent))
			continue
		}
		m.links[idx].parent = parent
	}
	if err != nil {
		return nil, err
	}
	if m.root < 0 {
		return nil, errors.New("kinematic tree has no root link")
	}
	for i := range m.links {
		steps := 0
		for at := i; at >= 0; at = m.links[at].parent {
			if steps++; steps > len(m.links) {
				return nil, errors.Errorf("kinematic tree has a cycle through link %q", m.links[i].name)
			}
		}
	}
	return m, nil
}

// Name returns the name of the model.
func (m *Model) Name() string { return m.name }

// NumLinks returns the number of links in the tree.
func (m *Model) NumLinks() int { return len(m.links) }

// Root returns the index of the root link.
func (m *Model) Root() int { return m.root }

// LinkName returns the name of the link at the given index.
func (m *Model) LinkName(i int) string { return m.links[i].name }

// LinkIndex returns the index of the named link.
func (m *Model) LinkIndex(name string) (int, error) {
	if i, ok := m.nameToIndex[name]; ok {
		return i, nil
	}
	return -1, errors.Errorf("no link named %q in model %q", name, m.name)
}

// Parent returns the index of a link's parent, or -1 for the root.
func (m *Model) Parent(i int) int { return m.links[i].parent }

// LinkJoint returns the planning-joint index of the joint moving the given link, or -1 if the
// link is fixed to its parent.
func (m *Model) LinkJoint(i int) int { return m.links[i].jointIndex }

// DoF returns the motion limits of each planning joint, in planning-joint order.
func (m *Model) DoF() []Limit { return m.dof }

// AdjacentLinks reports whether two links are directly connected in the kinematic tree.
func (m *Model) AdjacentLinks(a, b int) bool {
	return m.links[a].parent == b || m.links[b].parent == a
}

// ValidateInputs checks that the input vector matches the planning-joint ordering in length.
func (m *Model) ValidateInputs(q []Input) error {
	if len(q) != len(m.dof) {
		return errors.Errorf("joint vector length %d does not match model DoF %d", len(q), len(m.dof))
	}
	return nil
}

// LinkTransform returns the pose from a link to its parent link given the full planning input
// vector; the link's own joint input is extracted by index. Out-of-bounds joint values yield
// a pose alongside a non-nil error containing OOBErrString, matching Frame.Transform.
func (m *Model) LinkTransform(i int, q []Input) (spatialmath.Pose, error) {
	if err := m.ValidateInputs(q); err != nil {
		return nil, err
	}
	l := &m.links[i]
	if l.joint == nil || l.jointIndex < 0 {
		return l.origin, nil
	}
	jointPose, err := l.joint.Transform(q[l.jointIndex : l.jointIndex+1])
	if jointPose == nil {
		return nil, err
	}
	return spatialmath.Compose(l.origin, jointPose), err
}
