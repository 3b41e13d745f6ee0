// Package collision implements the sphere-hierarchy collision query: a robot approximated by
// a forest of spheres attached to kinematic links, checked against a voxelized distance field
// and against itself.
package collision

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/roboplan/spherecheck/referenceframe"
)

// SphereConfig describes one collision sphere in a model configuration: its link-local center,
// radius, test priority (lower is tested earlier), and optionally the names of child spheres
// it bounds, which makes it a meta-sphere.
type SphereConfig struct {
	Name     string   `json:"name"`
	Link     string   `json:"link"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Z        float64  `json:"z"`
	Radius   float64  `json:"radius"`
	Priority int      `json:"priority"`
	Children []string `json:"children,omitempty"`
}

// ModelConfig is the sphere layout of a robot, mapping links to collision spheres.
type ModelConfig struct {
	Spheres []SphereConfig `json:"spheres"`
}

// ParseModelConfigFile reads a JSON sphere layout from a file.
func ParseModelConfigFile(path string) (*ModelConfig, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read collision model config")
	}
	cfg := &ModelConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse collision model config")
	}
	return cfg, nil
}

// SphereModel is the immutable description of one collision sphere. A sphere with children is
// a meta-sphere whose radius bounds the union of its descendants under all reachable link
// transforms; a sphere without children is a leaf.
type SphereModel struct {
	Name     string
	Radius   float64
	Priority int
	Link     int
	Offset   r3.Vector
	Children []int
}

// IsLeaf reports whether the sphere has no children.
func (sm *SphereModel) IsLeaf() bool { return len(sm.Children) == 0 }

// Model is the static collision description of a robot: its spheres, the bounding forest over
// them, and the precomputed self-collision candidate pairs. After construction a Model is
// immutable and may be shared freely between checker instances.
type Model struct {
	kin     *referenceframe.Model
	spheres []SphereModel
	roots   []int
	leaves  []int
	spans   []float64
	pairs   [][2]int
}

// NewModel builds a collision model from a kinematic model and a sphere layout. All
// configuration problems are aggregated into one error and nothing is constructed on failure.
func NewModel(kin *referenceframe.Model, cfg *ModelConfig) (*Model, error) {
	if kin == nil {
		return nil, errors.New("kinematic model is required")
	}
	if cfg == nil || len(cfg.Spheres) == 0 {
		return nil, errors.New("collision model config has no spheres")
	}

	var err error
	nameToIndex := make(map[string]int, len(cfg.Spheres))
	spheres := make([]SphereModel, 0, len(cfg.Spheres))
	for i, sc := range cfg.Spheres {
		if sc.Name == "" {
			err = multierr.Append(err, errors.Errorf("sphere %d has no name", i))
			continue
		}
		if _, ok := nameToIndex[sc.Name]; ok {
			err = multierr.Append(err, errors.Errorf("duplicate sphere name %q", sc.Name))
			continue
		}
		if sc.Radius <= 0 {
			err = multierr.Append(err, errors.Errorf("sphere %q has non-positive radius %f", sc.Name, sc.Radius))
			continue
		}
		linkIndex, linkErr := kin.LinkIndex(sc.Link)
		if linkErr != nil {
			err = multierr.Append(err, errors.Wrapf(linkErr, "sphere %q", sc.Name))
			continue
		}
		nameToIndex[sc.Name] = len(spheres)
		spheres = append(spheres, SphereModel{
			Name:     sc.Name,
			Radius:   sc.Radius,
			Priority: sc.Priority,
			Link:     linkIndex,
			Offset:   r3.Vector{X: sc.X, Y: sc.Y, Z: sc.Z},
		})
	}

	parent := make([]int, len(spheres))
	for i := range parent {
		parent[i] = -1
	}
	for _, sc := range cfg.Spheres {
		idx, ok := nameToIndex[sc.Name]
		if !ok {
			continue
		}
		for _, childName := range sc.Children {
			child, ok := nameToIndex[childName]
			if !ok {
				err = multierr.Append(err, errors.Errorf("sphere %q references unknown child %q", sc.Name, childName))
				continue
			}
			if child == idx {
				err = multierr.Append(err, errors.Errorf("sphere %q lists itself as a child", sc.Name))
				continue
			}
			if parent[child] >= 0 {
				err = multierr.Append(err, errors.Errorf("sphere %q is a child of both %q and %q",
					childName, spheres[parent[child]].Name, sc.Name))
				continue
			}
			parent[child] = idx
			spheres[idx].Children = append(spheres[idx].Children, child)
		}
	}
	if err != nil {
		return nil, err
	}

	m := &Model{kin: kin, spheres: spheres}
	for i := range spheres {
		if parent[i] < 0 {
			m.roots = append(m.roots, i)
		}
	}
	m.sortByPriority(m.roots)
	for i := range m.spheres {
		m.sortByPriority(m.spheres[i].Children)
	}

	// The sphere forest must be acyclic for spans and traversal to be well defined.
	m.spans = make([]float64, len(spheres))
	visited := make([]bool, len(spheres))
	for _, root := range m.roots {
		if spanErr := m.computeSpans(root, visited, 0); spanErr != nil {
			return nil, spanErr
		}
	}
	for i, seen := range visited {
		if !seen {
			return nil, errors.Errorf("sphere grouping has a cycle through %q", m.spheres[i].Name)
		}
	}

	for _, root := range m.roots {
		m.collectLeaves(root)
	}
	m.pairs = candidatePairs(kin, m.spheres, m.leaves)
	return m, nil
}

// computeSpans fills in the subtree span of each sphere: the precomputed upper bound on the
// farthest descendant-leaf extent, taken as the sum of all descendant leaf radii.
func (m *Model) computeSpans(i int, visited []bool, depth int) error {
	if depth > len(m.spheres) {
		return errors.Errorf("sphere grouping has a cycle through %q", m.spheres[i].Name)
	}
	visited[i] = true
	sm := &m.spheres[i]
	if sm.IsLeaf() {
		m.spans[i] = sm.Radius
		return nil
	}
	total := 0.0
	for _, child := range sm.Children {
		if err := m.computeSpans(child, visited, depth+1); err != nil {
			return err
		}
		total += m.spans[child]
	}
	m.spans[i] = total
	return nil
}

func (m *Model) collectLeaves(i int) {
	sm := &m.spheres[i]
	if sm.IsLeaf() {
		m.leaves = append(m.leaves, i)
		return
	}
	for _, child := range sm.Children {
		m.collectLeaves(child)
	}
}

// sortByPriority orders sphere indices by priority, ties broken by model index, so traversal
// is deterministic.
func (m *Model) sortByPriority(indices []int) {
	sort.SliceStable(indices, func(a, b int) bool {
		pa, pb := m.spheres[indices[a]].Priority, m.spheres[indices[b]].Priority
		if pa != pb {
			return pa < pb
		}
		return indices[a] < indices[b]
	})
}

// candidatePairs enumerates the self-collision pairs worth testing: leaf spheres on distinct,
// non-adjacent links. Adjacent links share a joint and overlap by construction; the allowed
// collision matrix is consulted at query time on top of this.
func candidatePairs(kin *referenceframe.Model, spheres []SphereModel, leaves []int) [][2]int {
	var pairs [][2]int
	for i := 0; i < len(leaves); i++ {
		for j := i + 1; j < len(leaves); j++ {
			a, b := leaves[i], leaves[j]
			la, lb := spheres[a].Link, spheres[b].Link
			if la == lb || kin.AdjacentLinks(la, lb) {
				continue
			}
			pairs = append(pairs, [2]int{a, b})
		}
	}
	return pairs
}

// Kinematics returns the kinematic model the spheres are attached to.
func (m *Model) Kinematics() *referenceframe.Model { return m.kin }

// NumSpheres returns the number of spheres in the model.
func (m *Model) NumSpheres() int { return len(m.spheres) }

// Sphere returns the sphere at the given model index.
func (m *Model) Sphere(i int) *SphereModel { return &m.spheres[i] }

// Roots returns the root spheres of the bounding forest in traversal order.
func (m *Model) Roots() []int { return m.roots }

// Leaves returns the leaf spheres in traversal order.
func (m *Model) Leaves() []int { return m.leaves }

// SubtreeSpan returns the precomputed span of the subtree rooted at the given sphere.
func (m *Model) SubtreeSpan(i int) float64 { return m.spans[i] }

// CandidatePairs returns the precomputed self-collision pairs of the model's own spheres.
func (m *Model) CandidatePairs() [][2]int { return m.pairs }
