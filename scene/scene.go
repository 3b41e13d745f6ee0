// Package scene ties the distance field and the robot collision state together behind a
// single mutation surface: world objects come in as shapes, robot state comes in as joint
// configurations, and both are dispatched to the underlying structures.
package scene

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/roboplan/spherecheck/collision"
	"github.com/roboplan/spherecheck/spatialmath"
	"github.com/roboplan/spherecheck/voxelgrid"
)

// Operation names a world mutation.
type Operation string

const (
	OperationAdd    Operation = "add"
	OperationRemove Operation = "remove"
	OperationMove   Operation = "move"
	OperationAttach Operation = "attach"
	OperationDetach Operation = "detach"
)

// ObjectOption tunes a single ProcessObject call.
type ObjectOption func(*objectOptions)

type objectOptions struct {
	link          string
	detachToWorld bool
}

// WithLink names the robot link an attach operation parents the object to.
func WithLink(name string) ObjectOption {
	return func(o *objectOptions) { o.link = name }
}

// WithDetachToWorld makes a detach operation place the object back into the world at its
// current pose instead of discarding it.
func WithDetachToWorld() ObjectOption {
	return func(o *objectOptions) { o.detachToWorld = true }
}

type worldObject struct {
	shape Shape
	pose  spatialmath.Pose
	cells []voxelgrid.Cell
}

type attachedObject struct {
	shape Shape
	local spatialmath.Pose
	link  int
}

// Scene owns a distance field and a collision checker and routes object and robot-state
// updates to them. Like the structures it owns, a Scene is confined to a single goroutine.
type Scene struct {
	grid     *voxelgrid.DistanceField
	checker  *collision.Checker
	logger   golog.Logger
	objects  map[string]*worldObject
	attached map[string]*attachedObject
}

// NewScene wraps a checker and its grid into a scene.
func NewScene(checker *collision.Checker, logger golog.Logger) *Scene {
	return &Scene{
		grid:     checker.Grid(),
		checker:  checker,
		logger:   logger,
		objects:  map[string]*worldObject{},
		attached: map[string]*attachedObject{},
	}
}

// Checker returns the collision checker the scene drives.
func (s *Scene) Checker() *collision.Checker { return s.checker }

// SetRobotState sets the robot joint configuration.
func (s *Scene) SetRobotState(q []float64) error {
	return s.checker.State().SetJointPositions(q)
}

// SetWorldToModelTransform sets the pose of the robot model in the world frame.
func (s *Scene) SetWorldToModelTransform(pose spatialmath.Pose) {
	s.checker.State().SetWorldToModelTransform(pose)
}

// CollisionCheck reports whether the configuration collides with the current scene.
func (s *Scene) CollisionCheck(q []float64, padding float64) (bool, float64, error) {
	return s.checker.CollisionCheck(q, padding)
}

// DistanceToNearest returns the minimum clearance of the configuration in the current scene.
func (s *Scene) DistanceToNearest(q []float64) (float64, error) {
	return s.checker.DistanceToNearest(q)
}

// ProcessObject applies a world mutation. Failed mutations leave both the field and the robot
// state exactly as they were.
func (s *Scene) ProcessObject(op Operation, shape Shape, pose spatialmath.Pose, id string, opts ...ObjectOption) error {
	var options objectOptions
	for _, opt := range opts {
		opt(&options)
	}
	switch op {
	case OperationAdd:
		return s.addObject(shape, pose, id)
	case OperationRemove:
		return s.removeObject(id)
	case OperationMove:
		return s.moveObject(pose, id)
	case OperationAttach:
		return s.attachObject(shape, pose, id, options.link)
	case OperationDetach:
		return s.detachObject(id, options.detachToWorld)
	default:
		return errors.Errorf("unknown object operation %q", op)
	}
}

func (s *Scene) addObject(shape Shape, pose spatialmath.Pose, id string) error {
	if _, ok := s.objects[id]; ok {
		return errors.Errorf("object %q already in the scene", id)
	}
	cells, err := s.voxelize(shape, pose)
	if err != nil {
		return errors.Wrapf(err, "cannot add object %q", id)
	}
	if err := s.grid.AddObstacle(cells); err != nil {
		return errors.Wrapf(err, "cannot add object %q", id)
	}
	s.objects[id] = &worldObject{shape: shape, pose: pose, cells: cells}
	return nil
}

func (s *Scene) removeObject(id string) error {
	obj, ok := s.objects[id]
	if !ok {
		return errors.Errorf("no object %q in the scene", id)
	}
	if err := s.grid.RemoveObstacle(obj.cells); err != nil {
		return errors.Wrapf(err, "cannot remove object %q", id)
	}
	delete(s.objects, id)
	return nil
}

func (s *Scene) moveObject(pose spatialmath.Pose, id string) error {
	obj, ok := s.objects[id]
	if !ok {
		return errors.Errorf("no object %q in the scene", id)
	}
	// Voxelize at the new pose before touching the field, so a bad destination leaves the
	// object where it was.
	cells, err := s.voxelize(obj.shape, pose)
	if err != nil {
		return errors.Wrapf(err, "cannot move object %q", id)
	}
	if err := s.grid.RemoveObstacle(obj.cells); err != nil {
		return errors.Wrapf(err, "cannot move object %q", id)
	}
	if err := s.grid.AddObstacle(cells); err != nil {
		// Put the object back; the old cells were valid a moment ago.
		if restoreErr := s.grid.AddObstacle(obj.cells); restoreErr != nil {
			return errors.Wrapf(restoreErr, "cannot restore object %q after failed move", id)
		}
		return errors.Wrapf(err, "cannot move object %q", id)
	}
	obj.pose = pose
	obj.cells = cells
	return nil
}

func (s *Scene) attachObject(shape Shape, local spatialmath.Pose, id, linkName string) error {
	if linkName == "" {
		return errors.Errorf("attaching object %q requires a link", id)
	}
	// Checked before the world transfer below so a duplicate id cannot half-apply.
	if _, ok := s.attached[id]; ok {
		return errors.Errorf("object %q already attached", id)
	}
	link, err := s.checker.State().Kinematics().LinkIndex(linkName)
	if err != nil {
		return errors.Wrapf(err, "cannot attach object %q", id)
	}
	spheres, err := coverSpheres(shape, local, id)
	if err != nil {
		return errors.Wrapf(err, "cannot attach object %q", id)
	}
	// An object already in the world transfers onto the robot.
	if obj, ok := s.objects[id]; ok {
		if err := s.grid.RemoveObstacle(obj.cells); err != nil {
			return errors.Wrapf(err, "cannot attach object %q", id)
		}
		delete(s.objects, id)
	}
	if err := s.checker.State().Attach(id, link, spheres); err != nil {
		return errors.Wrapf(err, "cannot attach object %q", id)
	}
	s.attached[id] = &attachedObject{shape: shape, local: local, link: link}
	return nil
}

func (s *Scene) detachObject(id string, toWorld bool) error {
	att, ok := s.attached[id]
	if !ok {
		return errors.Errorf("no object %q attached", id)
	}
	if toWorld {
		linkPose, err := s.checker.State().LinkPose(att.link)
		if err != nil {
			return errors.Wrapf(err, "cannot detach object %q to the world", id)
		}
		worldPose := spatialmath.Compose(linkPose, att.local)
		if err := s.addObject(att.shape, worldPose, id); err != nil {
			return errors.Wrapf(err, "cannot detach object %q to the world", id)
		}
	}
	if _, err := s.checker.State().Detach(id); err != nil {
		if toWorld {
			if removeErr := s.removeObject(id); removeErr != nil {
				return errors.Wrapf(removeErr, "cannot undo detach of object %q", id)
			}
		}
		return errors.Wrapf(err, "cannot detach object %q", id)
	}
	delete(s.attached, id)
	return nil
}

// voxelize returns the in-bounds grid cells whose centers lie inside the shape at the given
// world pose. A shape entirely outside the grid is an error, a shape partially outside is
// clipped.
func (s *Scene) voxelize(shape Shape, pose spatialmath.Pose) ([]voxelgrid.Cell, error) {
	if shape.Kind == ShapeMesh {
		return s.voxelizeMesh(shape, pose)
	}
	bound, err := shape.boundingRadius()
	if err != nil {
		return nil, err
	}
	center := pose.Point()
	lo := s.grid.WorldToGrid(center.Sub(r3.Vector{X: bound, Y: bound, Z: bound}))
	hi := s.grid.WorldToGrid(center.Add(r3.Vector{X: bound, Y: bound, Z: bound}))
	nx, ny, nz := s.grid.Dimensions()
	lo.X, lo.Y, lo.Z = max(lo.X, 0), max(lo.Y, 0), max(lo.Z, 0)
	hi.X, hi.Y, hi.Z = min(hi.X, nx-1), min(hi.Y, ny-1), min(hi.Z, nz-1)

	inverse := spatialmath.PoseInverse(pose)
	var cells []voxelgrid.Cell
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				c := voxelgrid.Cell{X: x, Y: y, Z: z}
				local := spatialmath.TransformPoint(inverse, s.grid.GridToWorld(c))
				if shape.contains(local) {
					cells = append(cells, c)
				}
			}
		}
	}
	if len(cells) == 0 {
		// A shape smaller than a voxel can sit between cell centers; it still occupies the
		// cell containing its own center.
		c := s.grid.WorldToGrid(center)
		if !s.grid.InBounds(c) {
			return nil, errors.New("shape lies outside the grid")
		}
		cells = append(cells, c)
	}
	return cells, nil
}

// voxelizeMesh marks the cell under each transformed vertex.
func (s *Scene) voxelizeMesh(shape Shape, pose spatialmath.Pose) ([]voxelgrid.Cell, error) {
	if len(shape.Vertices) == 0 {
		return nil, errors.New("mesh shape has no vertices")
	}
	seen := map[voxelgrid.Cell]bool{}
	var cells []voxelgrid.Cell
	for _, v := range shape.Vertices {
		c := s.grid.WorldToGrid(spatialmath.TransformPoint(pose, v))
		if !s.grid.InBounds(c) || seen[c] {
			continue
		}
		seen[c] = true
		cells = append(cells, c)
	}
	if len(cells) == 0 {
		return nil, errors.New("mesh lies outside the grid")
	}
	return cells, nil
}

// coverSpheres converts a shape into dynamic collision spheres in the link frame. Each shape
// is covered by a single bounding sphere; tight multi-sphere covers belong in the static
// model config.
func coverSpheres(shape Shape, local spatialmath.Pose, id string) ([]collision.SphereModel, error) {
	radius, err := shape.boundingRadius()
	if err != nil {
		return nil, err
	}
	return []collision.SphereModel{{
		Name:   id + "_0",
		Radius: radius,
		Offset: local.Point(),
	}}, nil
}
