package scene

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/roboplan/spherecheck/spatialmath"
)

// Object is one obstacle record from a scenario file: an axis-aligned box named by id,
// centered at Center, with full extents Dims.
type Object struct {
	ID     string
	Center r3.Vector
	Dims   r3.Vector
}

// LoadScenario reads a plain-text obstacle list: one integer count, then that many records of
// `id x y z dx dy dz` separated by whitespace. On any IO or parse failure it returns an empty
// set together with the failure, leaving the abort decision to the caller.
func LoadScenario(path string) ([]Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open scenario file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	objects, err := parseScenario(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse scenario file %q", path)
	}
	return objects, nil
}

func parseScenario(r io.Reader) ([]Object, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	countWord, err := nextWord(sc)
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(countWord)
	if err != nil {
		return nil, errors.Errorf("object count %q is not an integer", countWord)
	}
	if count < 0 {
		return nil, errors.Errorf("object count %d is negative", count)
	}

	objects := make([]Object, 0, count)
	for i := 0; i < count; i++ {
		id, err := nextWord(sc)
		if err != nil {
			return nil, errors.Wrapf(err, "object %d", i)
		}
		var fields [6]float64
		for j := range fields {
			if fields[j], err = nextFloat(sc); err != nil {
				return nil, errors.Wrapf(err, "object %q", id)
			}
		}
		objects = append(objects, Object{
			ID:     id,
			Center: r3.Vector{X: fields[0], Y: fields[1], Z: fields[2]},
			Dims:   r3.Vector{X: fields[3], Y: fields[4], Z: fields[5]},
		})
	}
	return objects, sc.Err()
}

func nextWord(sc *bufio.Scanner) (string, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("scenario file ended early")
	}
	return sc.Text(), nil
}

func nextFloat(sc *bufio.Scanner) (float64, error) {
	word, err := nextWord(sc)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(word, 64)
	if err != nil {
		return 0, errors.Errorf("%q is not a number", word)
	}
	return v, nil
}

// AddScenario loads a scenario file and adds each record to the scene as a box obstacle. A
// load failure adds nothing.
func (s *Scene) AddScenario(path string) error {
	objects, err := LoadScenario(path)
	if err != nil {
		s.logger.Warnw("scenario load failed", "path", path, "error", err)
		return err
	}
	for i, obj := range objects {
		pose := spatialmath.NewPoseFromPoint(obj.Center)
		if err := s.ProcessObject(OperationAdd, NewBox(obj.Dims), pose, obj.ID); err != nil {
			// Unwind the objects added so far; the scene stays as it was.
			for _, added := range objects[:i] {
				if removeErr := s.removeObject(added.ID); removeErr != nil {
					return errors.Wrap(removeErr, "cannot unwind scenario after failure")
				}
			}
			return errors.Wrapf(err, "cannot apply scenario file %q", path)
		}
	}
	return nil
}
