// Command spherecheck loads a robot description, a sphere layout, and an obstacle scenario,
// then runs a collision query for a joint configuration.
//
// The config file is INI-style:
//
//	[robot]
//	urdf = arm.urdf
//	spheres = spheres.json
//
//	[grid]
//	origin = -0.75 -1.5 0.0
//	size = 3.0 3.0 3.0
//	resolution = 0.02
//	max-distance = 1.8
//
//	[check]
//	scenario = obstacles.txt
//	joints = 0.0 0.5 -0.2
//	padding = 0.0
package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gopkg.in/gcfg.v1"

	"github.com/roboplan/spherecheck/collision"
	"github.com/roboplan/spherecheck/referenceframe"
	"github.com/roboplan/spherecheck/scene"
	"github.com/roboplan/spherecheck/voxelgrid"
)

type appConfig struct {
	Robot struct {
		URDF    string
		Spheres string
	}
	Grid struct {
		Origin      string
		Size        string
		Resolution  float64
		MaxDistance float64 `gcfg:"max-distance"`
	}
	Check struct {
		Scenario string
		Joints   string
		Padding  float64
	}
}

func main() {
	utils.ContextualMain(mainWithArgs, golog.NewDevelopmentLogger("spherecheck"))
}

func mainWithArgs(_ context.Context, args []string, logger golog.Logger) error {
	if len(args) != 2 {
		return errors.Errorf("usage: %s <config-file>", args[0])
	}
	var cfg appConfig
	if err := gcfg.ReadFileInto(&cfg, args[1]); err != nil {
		return errors.Wrap(err, "cannot read config")
	}

	kin, err := referenceframe.ParseURDFFile(cfg.Robot.URDF, "")
	if err != nil {
		return err
	}
	logger.Infow("loaded robot", "name", kin.Name(), "links", kin.NumLinks(), "dof", len(kin.DoF()))

	sphereCfg, err := collision.ParseModelConfigFile(cfg.Robot.Spheres)
	if err != nil {
		return err
	}
	model, err := collision.NewModel(kin, sphereCfg)
	if err != nil {
		return err
	}
	logger.Infow("loaded sphere model", "spheres", model.NumSpheres())

	origin, err := parseVector(cfg.Grid.Origin)
	if err != nil {
		return errors.Wrap(err, "grid origin")
	}
	size, err := parseVector(cfg.Grid.Size)
	if err != nil {
		return errors.Wrap(err, "grid size")
	}
	grid, err := voxelgrid.NewDistanceField(origin, size, cfg.Grid.Resolution, cfg.Grid.MaxDistance)
	if err != nil {
		return err
	}

	checker, err := collision.NewChecker(grid, model, nil, logger)
	if err != nil {
		return err
	}
	sc := scene.NewScene(checker, logger)
	if cfg.Check.Scenario != "" {
		if err := sc.AddScenario(cfg.Check.Scenario); err != nil {
			return err
		}
		logger.Infow("loaded scenario", "occupied voxels", len(sc.VoxelMarkers()))
	}

	q, err := parseFloats(cfg.Check.Joints)
	if err != nil {
		return errors.Wrap(err, "joint configuration")
	}
	collides, dist, err := sc.CollisionCheck(q, cfg.Check.Padding)
	if err != nil {
		return err
	}
	if collides {
		logger.Infow("configuration collides", "joints", q)
	} else {
		logger.Infow("configuration is clear", "joints", q, "clearance", dist)
	}
	return nil
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Errorf("%q is not a number", f)
		}
		values = append(values, v)
	}
	return values, nil
}

func parseVector(s string) (r3.Vector, error) {
	values, err := parseFloats(s)
	if err != nil {
		return r3.Vector{}, err
	}
	if len(values) != 3 {
		return r3.Vector{}, errors.Errorf("expected 3 values, got %d", len(values))
	}
	return r3.Vector{X: values[0], Y: values[1], Z: values[2]}, nil
}
