package fieldpose

import (
	"time"

	"go.viam.com/rdk/spatialmath"
)

// DetectedTarget is a single fiducial marker seen on one camera frame.
type DetectedTarget struct {
	// TagID is the marker identifier reported by the detector.
	TagID int
	// Ambiguity scores the pose solution in [0, 1], lower is more certain.
	// It is the ratio between the reprojection errors of the two PnP
	// solutions; values near 1 mean the solver could not tell them apart.
	Ambiguity float64
	// BestCameraToTarget is the lower-error camera-to-tag transform.
	BestCameraToTarget spatialmath.Pose
	// AltCameraToTarget is the second PnP solution. Nil when the solver
	// returned a single unambiguous solution.
	AltCameraToTarget spatialmath.Pose
}

// DetectionResult is everything a camera saw on a single frame.
// It may contain zero targets. The estimator never retains a result
// between updates.
type DetectionResult struct {
	Targets []DetectedTarget
	// Timestamp is the capture time of the frame in the robot's shared
	// monotonic timebase.
	Timestamp time.Time
}

// EstimatedRobotPose is a fused robot pose in the field frame together with
// the capture timestamp of the frame it was derived from.
type EstimatedRobotPose struct {
	Pose      spatialmath.Pose
	Timestamp time.Time
}
