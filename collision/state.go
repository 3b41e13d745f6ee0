package collision

import (
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/roboplan/spherecheck/referenceframe"
	"github.com/roboplan/spherecheck/spatialmath"
)

// SphereState is the dynamic world-frame state of one collision sphere. Pos is only current
// after UpdateSphereState has been called since the last joint change; references are valid
// until the next attach or detach.
type SphereState struct {
	Pos     r3.Vector
	Model   *SphereModel
	version uint64
}

// attachedBody is a set of dynamic spheres parented to a link, transferred into the robot
// state by the scene façade.
type attachedBody struct {
	id      string
	link    int
	spheres []SphereModel
}

// State holds the dynamic collision state of a robot: per-link world poses and per-sphere
// world positions, recomputed lazily under version counters bumped when joints change.
// A State is owned by one checker instance; callers serialize access externally.
type State struct {
	model *Model
	kin   *referenceframe.Model

	joints       []referenceframe.Input
	hasJoints    bool
	worldToModel spatialmath.Pose

	// linkVersion is bumped for a link and all its descendants whenever an upstream joint
	// changes; linkPoses[i] is current iff linkComputed[i] == linkVersion[i].
	linkVersion  []uint64
	linkComputed []uint64
	linkPoses    []spatialmath.Pose
	jointLink    []int
	linkChildren [][]int

	spheres  []SphereState
	attached []attachedBody
	roots    []int
	pairs    [][2]int
}

// NewState creates the dynamic state for a collision model. No sphere positions are valid
// until SetJointPositions has been called.
func NewState(model *Model) *State {
	kin := model.Kinematics()
	n := kin.NumLinks()
	s := &State{
		model:        model,
		kin:          kin,
		worldToModel: spatialmath.NewZeroPose(),
		linkVersion:  make([]uint64, n),
		linkComputed: make([]uint64, n),
		linkPoses:    make([]spatialmath.Pose, n),
		jointLink:    make([]int, len(kin.DoF())),
		linkChildren: make([][]int, n),
	}
	for i := 0; i < n; i++ {
		s.linkVersion[i] = 1
		if j := kin.LinkJoint(i); j >= 0 {
			s.jointLink[j] = i
		}
		if p := kin.Parent(i); p >= 0 {
			s.linkChildren[p] = append(s.linkChildren[p], i)
		}
	}
	s.rebuildSpheres()
	return s
}

// SetJointPositions installs a new joint configuration, marking only the link frames moved by
// changed joints (and their descendants) as stale. A length mismatch fails the call with the
// state unchanged.
func (s *State) SetJointPositions(q []float64) error {
	if len(q) != len(s.jointLink) {
		return NewJointLengthMismatchError(len(s.jointLink), len(q))
	}
	if !s.hasJoints {
		s.joints = referenceframe.FloatsToInputs(q)
		s.hasJoints = true
		for i := range s.linkVersion {
			s.linkVersion[i]++
		}
		return nil
	}
	for j, v := range q {
		if s.joints[j].Value != v {
			s.joints[j].Value = v
			s.bumpSubtree(s.jointLink[j])
		}
	}
	return nil
}

// SetWorldToModelTransform installs the transform from the world frame to the robot base,
// invalidating every link frame.
func (s *State) SetWorldToModelTransform(pose spatialmath.Pose) {
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	s.worldToModel = pose
	for i := range s.linkVersion {
		s.linkVersion[i]++
	}
}

// bumpSubtree invalidates a link frame and every frame below it.
func (s *State) bumpSubtree(link int) {
	s.linkVersion[link]++
	for _, child := range s.linkChildren[link] {
		s.bumpSubtree(child)
	}
}

// LinkPose returns the current world pose of a link, lazily recomputing it and any stale
// ancestors from the current joint configuration.
func (s *State) LinkPose(link int) (spatialmath.Pose, error) {
	if !s.hasJoints {
		return nil, errNoJointConfiguration
	}
	if link < 0 || link >= len(s.linkPoses) {
		return nil, errors.Errorf("link index %d out of range [0,%d)", link, len(s.linkPoses))
	}
	return s.linkPose(link)
}

func (s *State) linkPose(link int) (spatialmath.Pose, error) {
	if s.linkComputed[link] == s.linkVersion[link] {
		return s.linkPoses[link], nil
	}
	parentPose := s.worldToModel
	if p := s.kin.Parent(link); p >= 0 {
		var err error
		if parentPose, err = s.linkPose(p); err != nil {
			return nil, err
		}
	}
	local, err := s.kin.LinkTransform(link, s.joints)
	if local == nil {
		return nil, err
	}
	// Out-of-bounds joint values still produce a usable pose; the planner is allowed to
	// query them and prune on the result.
	s.linkPoses[link] = spatialmath.Compose(parentPose, local)
	s.linkComputed[link] = s.linkVersion[link]
	return s.linkPoses[link], nil
}

// UpdateSphereState brings one sphere's world position up to date with the current joint
// configuration, doing nothing if it is already current.
func (s *State) UpdateSphereState(i int) error {
	if !s.hasJoints {
		return errNoJointConfiguration
	}
	if i < 0 || i >= len(s.spheres) {
		return NewSphereIndexError(i, len(s.spheres))
	}
	ss := &s.spheres[i]
	link := ss.Model.Link
	if ss.version == s.linkVersion[link] {
		return nil
	}
	pose, err := s.linkPose(link)
	if pose == nil {
		return err
	}
	ss.Pos = spatialmath.TransformPoint(pose, ss.Model.Offset)
	ss.version = s.linkVersion[link]
	return nil
}

// SphereState returns the state record for a sphere. The position is undefined unless
// UpdateSphereState has been called since the last joint change.
func (s *State) SphereState(i int) *SphereState {
	return &s.spheres[i]
}

// NumSpheres returns the number of spheres in the state, including attached bodies.
func (s *State) NumSpheres() int { return len(s.spheres) }

// LinkName returns the name of a link in the underlying kinematic model.
func (s *State) LinkName(i int) string { return s.kin.LinkName(i) }

// Kinematics returns the kinematic model the state evaluates.
func (s *State) Kinematics() *referenceframe.Model { return s.kin }

// Roots returns the traversal roots in deterministic priority order: the model's bounding
// forest plus any attached-body spheres.
func (s *State) Roots() []int { return s.roots }

// CandidatePairs returns the self-collision pairs to test, including pairs contributed by
// attached bodies.
func (s *State) CandidatePairs() [][2]int { return s.pairs }

// Attach transfers a body into the robot state as additional dynamic spheres parented to the
// given link. Sphere offsets are link-local. The id must not already be attached.
func (s *State) Attach(id string, link int, spheres []SphereModel) error {
	if link < 0 || link >= s.kin.NumLinks() {
		return errors.Errorf("link index %d out of range [0,%d)", link, s.kin.NumLinks())
	}
	if len(spheres) == 0 {
		return errors.Errorf("attached body %q has no spheres", id)
	}
	for _, body := range s.attached {
		if body.id == id {
			return errors.Errorf("body %q is already attached", id)
		}
	}
	body := attachedBody{id: id, link: link, spheres: make([]SphereModel, len(spheres))}
	copy(body.spheres, spheres)
	for i := range body.spheres {
		body.spheres[i].Link = link
		body.spheres[i].Children = nil
		if body.spheres[i].Radius <= 0 {
			return errors.Errorf("attached body %q sphere %d has non-positive radius", id, i)
		}
	}
	s.attached = append(s.attached, body)
	s.rebuildSpheres()
	return nil
}

// Detach removes a previously attached body and returns the link it was attached to.
func (s *State) Detach(id string) (int, error) {
	for i, body := range s.attached {
		if body.id == id {
			s.attached = append(s.attached[:i], s.attached[i+1:]...)
			s.rebuildSpheres()
			return body.link, nil
		}
	}
	return -1, errors.Errorf("no body %q is attached", id)
}

// SubtreeSpan returns the span of the subtree rooted at a sphere; attached spheres are always
// leaves, so their span is their radius.
func (s *State) SubtreeSpan(i int) float64 {
	if i < s.model.NumSpheres() {
		return s.model.SubtreeSpan(i)
	}
	return s.spheres[i].Model.Radius
}

// rebuildSpheres reassembles the sphere state array as model spheres followed by attached
// spheres, preserving the cached positions of the model spheres, and recomputes the traversal
// roots and candidate pairs.
func (s *State) rebuildSpheres() {
	base := s.model.NumSpheres()
	old := s.spheres
	s.spheres = make([]SphereState, 0, base+8)
	if len(old) >= base {
		s.spheres = append(s.spheres, old[:base]...)
	} else {
		for i := 0; i < base; i++ {
			s.spheres = append(s.spheres, SphereState{Model: s.model.Sphere(i)})
		}
	}

	attachedIdx := make([]int, 0, 8)
	for bi := range s.attached {
		body := &s.attached[bi]
		for si := range body.spheres {
			attachedIdx = append(attachedIdx, len(s.spheres))
			s.spheres = append(s.spheres, SphereState{Model: &body.spheres[si]})
		}
	}

	s.roots = make([]int, 0, len(s.model.Roots())+len(attachedIdx))
	s.roots = append(s.roots, s.model.Roots()...)
	s.roots = append(s.roots, attachedIdx...)
	sort.SliceStable(s.roots, func(a, b int) bool {
		pa, pb := s.spheres[s.roots[a]].Model.Priority, s.spheres[s.roots[b]].Model.Priority
		if pa != pb {
			return pa < pb
		}
		return s.roots[a] < s.roots[b]
	})

	s.pairs = s.pairs[:0]
	s.pairs = append(s.pairs, s.model.CandidatePairs()...)
	appendPair := func(a, b int) {
		la, lb := s.spheres[a].Model.Link, s.spheres[b].Model.Link
		if la == lb || s.kin.AdjacentLinks(la, lb) {
			return
		}
		s.pairs = append(s.pairs, [2]int{a, b})
	}
	for _, ai := range attachedIdx {
		for _, leaf := range s.model.Leaves() {
			appendPair(leaf, ai)
		}
	}
	for x := 0; x < len(attachedIdx); x++ {
		for y := x + 1; y < len(attachedIdx); y++ {
			appendPair(attachedIdx[x], attachedIdx[y])
		}
	}
}
