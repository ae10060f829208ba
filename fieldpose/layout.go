package fieldpose

import (
	"encoding/json"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/spatialmath"
)

// FieldLayout resolves a tag id to that tag's known pose in the field frame.
// An absent id is an expected outcome, not an error.
type FieldLayout interface {
	TagPose(id int) (spatialmath.Pose, bool)
}

// StaticLayout is an in-memory FieldLayout backed by a plain map.
type StaticLayout map[int]spatialmath.Pose

// TagPose implements FieldLayout.
func (l StaticLayout) TagPose(id int) (spatialmath.Pose, bool) {
	pose, ok := l[id]
	return pose, ok
}

type vectorRecord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type quaternionRecord struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// poseRecord is the on-disk pose representation shared by field layouts and
// detection logs: translation in meters, rotation as a unit quaternion.
type poseRecord struct {
	Translation vectorRecord     `json:"translation"`
	Rotation    quaternionRecord `json:"rotation"`
}

func (r poseRecord) pose() (spatialmath.Pose, error) {
	norm := math.Sqrt(r.Rotation.W*r.Rotation.W + r.Rotation.X*r.Rotation.X +
		r.Rotation.Y*r.Rotation.Y + r.Rotation.Z*r.Rotation.Z)
	if norm == 0 {
		return nil, errors.New("rotation quaternion has zero norm")
	}
	orientation := &spatialmath.Quaternion{
		Real: r.Rotation.W / norm,
		Imag: r.Rotation.X / norm,
		Jmag: r.Rotation.Y / norm,
		Kmag: r.Rotation.Z / norm,
	}
	translation := r3.Vector{X: r.Translation.X, Y: r.Translation.Y, Z: r.Translation.Z}
	return spatialmath.NewPose(translation, orientation), nil
}

type tagRecord struct {
	ID   int        `json:"id"`
	Pose poseRecord `json:"pose"`
}

type layoutFile struct {
	Tags []tagRecord `json:"tags"`
}

// LoadLayout reads a field layout from a JSON file with entries
// {"id": N, "pose": {"translation": {...}, "rotation": {...}}}.
// Duplicate and negative tag ids are rejected at load time so that lookups
// never have to fail.
func LoadLayout(path string) (StaticLayout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read field layout %s", path)
	}
	var file layoutFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "can't parse field layout %s", path)
	}
	layout := make(StaticLayout, len(file.Tags))
	for _, tag := range file.Tags {
		if tag.ID < 0 {
			return nil, errors.Errorf("invalid tag id %d in %s", tag.ID, path)
		}
		if _, ok := layout[tag.ID]; ok {
			return nil, errors.Errorf("duplicate tag id %d in %s", tag.ID, path)
		}
		pose, err := tag.Pose.pose()
		if err != nil {
			return nil, errors.Wrapf(err, "tag %d in %s", tag.ID, path)
		}
		layout[tag.ID] = pose
	}
	return layout, nil
}
