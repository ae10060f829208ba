package fieldpose

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Source is a camera handle the estimator pulls detection results from.
// The camera may buffer or capture asynchronously behind this interface;
// the estimator only ever performs a single non-blocking pull per update.
type Source interface {
	// LatestResult returns the newest detection result not yet handed out.
	// The second return is false when there is nothing new.
	LatestResult() (DetectionResult, bool)
}

// ReplaySource is a Source over a prerecorded sequence of detection results,
// handing out one frame per pull. It backs the replay CLI and tests.
type ReplaySource struct {
	frames []DetectionResult
	next   int
}

// NewReplaySource creates a ReplaySource over the given frames.
func NewReplaySource(frames []DetectionResult) *ReplaySource {
	return &ReplaySource{frames: frames}
}

// LatestResult implements Source. Returns false once the recording is exhausted.
func (s *ReplaySource) LatestResult() (DetectionResult, bool) {
	if s.next >= len(s.frames) {
		return DetectionResult{}, false
	}
	result := s.frames[s.next]
	s.next++
	return result, true
}

// Rewind restarts the replay from the first frame.
func (s *ReplaySource) Rewind() {
	s.next = 0
}

type targetRecord struct {
	ID                 int         `json:"id"`
	Ambiguity          float64     `json:"ambiguity"`
	BestCameraToTarget poseRecord  `json:"best_camera_to_target"`
	AltCameraToTarget  *poseRecord `json:"alt_camera_to_target,omitempty"`
}

type frameRecord struct {
	TimestampMS int64          `json:"timestamp_ms"`
	Targets     []targetRecord `json:"targets"`
}

type detectionLogFile struct {
	Frames []frameRecord `json:"frames"`
}

// LoadDetectionLog reads a recorded detection sequence from a JSON file.
// Ambiguity scores outside [0, 1] are rejected at load time.
func LoadDetectionLog(path string) ([]DetectionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read detection log %s", path)
	}
	var file detectionLogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "can't parse detection log %s", path)
	}
	frames := make([]DetectionResult, 0, len(file.Frames))
	for i, frame := range file.Frames {
		result := DetectionResult{
			Timestamp: time.UnixMilli(frame.TimestampMS),
			Targets:   make([]DetectedTarget, 0, len(frame.Targets)),
		}
		for _, record := range frame.Targets {
			if record.Ambiguity < 0 || record.Ambiguity > 1 {
				return nil, errors.Errorf("frame %d tag %d: ambiguity %f out of [0, 1]", i, record.ID, record.Ambiguity)
			}
			best, err := record.BestCameraToTarget.pose()
			if err != nil {
				return nil, errors.Wrapf(err, "frame %d tag %d", i, record.ID)
			}
			target := DetectedTarget{
				TagID:              record.ID,
				Ambiguity:          record.Ambiguity,
				BestCameraToTarget: best,
			}
			if record.AltCameraToTarget != nil {
				alt, err := record.AltCameraToTarget.pose()
				if err != nil {
					return nil, errors.Wrapf(err, "frame %d tag %d alternate", i, record.ID)
				}
				target.AltCameraToTarget = alt
			}
			result.Targets = append(result.Targets, target)
		}
		frames = append(frames, result)
	}
	return frames, nil
}
