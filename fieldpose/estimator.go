package fieldpose

import (
	"math"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/spatialmath"
)

// Strategy selects how the estimator turns a multi-target detection result
// into a single robot pose. The set is closed; there is no plug-in point.
type Strategy uint16

const (
	// StrategyLowestAmbiguity uses the single target with the smallest
	// ambiguity score.
	StrategyLowestAmbiguity Strategy = iota
	// StrategyClosestToCameraHeight uses the target whose implied camera
	// pose best matches the camera's known mounting height.
	StrategyClosestToCameraHeight
	// StrategyClosestToReferencePose uses the target whose candidate robot
	// pose is nearest to a caller-provided reference pose.
	StrategyClosestToReferencePose
	// StrategyClosestToLastPose uses the target whose candidate robot pose
	// is nearest to the previous successful estimate.
	StrategyClosestToLastPose
	// StrategyAverageBestTargets fuses all targets into an ambiguity-weighted
	// average pose.
	StrategyAverageBestTargets
)

// String returns the canonical name, usable with ParseStrategy.
func (s Strategy) String() string {
	switch s {
	case StrategyLowestAmbiguity:
		return "lowest-ambiguity"
	case StrategyClosestToCameraHeight:
		return "closest-to-camera-height"
	case StrategyClosestToReferencePose:
		return "closest-to-reference-pose"
	case StrategyClosestToLastPose:
		return "closest-to-last-pose"
	case StrategyAverageBestTargets:
		return "average-best-targets"
	}
	return "unknown"
}

// ParseStrategy maps a canonical strategy name back to its Strategy value.
func ParseStrategy(name string) (Strategy, error) {
	for s := StrategyLowestAmbiguity; s <= StrategyAverageBestTargets; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, errors.Errorf("unknown strategy %q", name)
}

// ambiguityWeightFloor keeps AverageBestTargets weights positive when a
// target is maximally ambiguous. When every target sits at ambiguity 1 all
// weights land on the floor, which degrades to equal weighting.
const ambiguityWeightFloor = 1e-6

// Estimator fuses the fiducials visible on a single camera frame into one
// robot pose in the field frame, according to the configured Strategy.
//
// An Estimator is not safe for concurrent use: it is meant to be owned and
// driven by a single control-loop goroutine. All configuration setters take
// effect on the next update.
type Estimator struct {
	layout        FieldLayout
	strategy      Strategy
	camera        Source
	robotToCamera spatialmath.Pose

	referencePose spatialmath.Pose
	lastPose      spatialmath.Pose

	logger logging.Logger
}

// NewEstimator creates an Estimator over a field layout and a camera.
//
// robotToCamera is the mount transform from the robot's reference point to
// the camera's optical frame; nil means the camera sits at the robot origin.
// camera may be nil for callers that only ever feed results through
// UpdateResult.
func NewEstimator(
	layout FieldLayout,
	strategy Strategy,
	camera Source,
	robotToCamera spatialmath.Pose,
	logger logging.Logger,
) (*Estimator, error) {
	if layout == nil {
		return nil, errors.New("field layout is required")
	}
	if strategy > StrategyAverageBestTargets {
		return nil, errors.Errorf("unknown strategy %d", strategy)
	}
	if robotToCamera == nil {
		robotToCamera = spatialmath.NewZeroPose()
	}
	if logger == nil {
		logger = logging.NewLogger("fieldpose")
	}
	return &Estimator{
		layout:        layout,
		strategy:      strategy,
		camera:        camera,
		robotToCamera: robotToCamera,
		referencePose: spatialmath.NewZeroPose(),
		lastPose:      spatialmath.NewZeroPose(),
		logger:        logger,
	}, nil
}

// FieldLayout returns the layout the estimator resolves tag poses against.
func (pe *Estimator) FieldLayout() FieldLayout {
	return pe.layout
}

// Camera returns the camera handle, possibly nil.
func (pe *Estimator) Camera() Source {
	return pe.camera
}

// Strategy returns the active strategy.
func (pe *Estimator) Strategy() Strategy {
	return pe.strategy
}

// SetStrategy switches the active strategy with immediate effect.
func (pe *Estimator) SetStrategy(strategy Strategy) {
	pe.strategy = strategy
}

// ReferencePose returns the comparison pose used by
// StrategyClosestToReferencePose.
func (pe *Estimator) ReferencePose() spatialmath.Pose {
	return pe.referencePose
}

// SetReferencePose sets the comparison pose used by
// StrategyClosestToReferencePose.
func (pe *Estimator) SetReferencePose(pose spatialmath.Pose) {
	pe.referencePose = pose
}

// RobotToCamera returns the current mount transform.
func (pe *Estimator) RobotToCamera() spatialmath.Pose {
	return pe.robotToCamera
}

// SetRobotToCamera replaces the mount transform. Intended for pan/tilt or
// turret mounts whose geometry changes at runtime.
func (pe *Estimator) SetRobotToCamera(pose spatialmath.Pose) {
	pe.robotToCamera = pose
}

// SetLastPose seeds the comparison pose for StrategyClosestToLastPose before
// any real estimate exists. After every successful update the estimator
// overwrites it with the newest estimate.
func (pe *Estimator) SetLastPose(pose spatialmath.Pose) {
	pe.lastPose = pose
}

// Update pulls one detection result from the camera and fuses it. Returns
// nil when there is no camera, nothing new from it, or the result yields no
// estimate.
func (pe *Estimator) Update() *EstimatedRobotPose {
	if pe.camera == nil {
		return nil
	}
	result, ok := pe.camera.LatestResult()
	if !ok {
		return nil
	}
	return pe.UpdateResult(result)
}

// UpdateResult fuses a caller-supplied detection result with the active
// strategy. Returns nil when the result is empty or no target in it resolves
// against the field layout. On success lastPose is updated to the returned
// estimate, so StrategyClosestToLastPose always compares against the most
// recent successful estimate.
func (pe *Estimator) UpdateResult(result DetectionResult) *EstimatedRobotPose {
	if len(result.Targets) == 0 {
		return nil
	}
	var estimate *EstimatedRobotPose
	switch pe.strategy {
	case StrategyLowestAmbiguity:
		estimate = pe.lowestAmbiguity(result)
	case StrategyClosestToCameraHeight:
		estimate = pe.closestToCameraHeight(result)
	case StrategyClosestToReferencePose:
		estimate = pe.closestTo(result, pe.referencePose)
	case StrategyClosestToLastPose:
		estimate = pe.closestTo(result, pe.lastPose)
	case StrategyAverageBestTargets:
		estimate = pe.averageBestTargets(result)
	default:
		pe.logger.Warnf("unknown strategy %d, skipping update", pe.strategy)
		return nil
	}
	if estimate != nil {
		pe.lastPose = estimate.Pose
	}
	return estimate
}

// robotPoseFromTarget recovers the robot's field pose from a single tag
// sighting: the tag's field pose, back through the camera-to-tag transform,
// back through the mount transform.
func (pe *Estimator) robotPoseFromTarget(tagPose, cameraToTarget spatialmath.Pose) spatialmath.Pose {
	cameraPose := spatialmath.Compose(tagPose, spatialmath.PoseInverse(cameraToTarget))
	return spatialmath.Compose(cameraPose, spatialmath.PoseInverse(pe.robotToCamera))
}

// resolveTagPose looks the target up in the field layout. Unknown tags are
// skipped, never an error.
func (pe *Estimator) resolveTagPose(target DetectedTarget) (spatialmath.Pose, bool) {
	tagPose, ok := pe.layout.TagPose(target.TagID)
	if !ok {
		pe.logger.Debugf("tag %d not in field layout, skipping", target.TagID)
	}
	return tagPose, ok
}

// lowestAmbiguity selects the single resolvable target with the smallest
// ambiguity score. Ties keep the first-encountered target in result order.
func (pe *Estimator) lowestAmbiguity(result DetectionResult) *EstimatedRobotPose {
	var bestTagPose, bestCameraToTarget spatialmath.Pose
	bestAmbiguity := math.MaxFloat64
	for _, target := range result.Targets {
		tagPose, ok := pe.resolveTagPose(target)
		if !ok {
			continue
		}
		if target.Ambiguity < bestAmbiguity {
			bestAmbiguity = target.Ambiguity
			bestTagPose = tagPose
			bestCameraToTarget = target.BestCameraToTarget
		}
	}
	if bestTagPose == nil {
		return nil
	}
	return &EstimatedRobotPose{
		Pose:      pe.robotPoseFromTarget(bestTagPose, bestCameraToTarget),
		Timestamp: result.Timestamp,
	}
}

// closestToCameraHeight selects the candidate camera pose whose height above
// the field best matches the camera's mounting height (the mount transform's
// Z, i.e. the camera's height with the robot on the floor). Both PnP
// solutions of every target compete; ties keep the first-encountered
// candidate.
func (pe *Estimator) closestToCameraHeight(result DetectionResult) *EstimatedRobotPose {
	mountHeight := pe.robotToCamera.Point().Z
	var best spatialmath.Pose
	bestDelta := math.MaxFloat64
	for _, target := range result.Targets {
		tagPose, ok := pe.resolveTagPose(target)
		if !ok {
			continue
		}
		for _, cameraToTarget := range []spatialmath.Pose{target.BestCameraToTarget, target.AltCameraToTarget} {
			if cameraToTarget == nil {
				continue
			}
			cameraPose := spatialmath.Compose(tagPose, spatialmath.PoseInverse(cameraToTarget))
			delta := math.Abs(cameraPose.Point().Z - mountHeight)
			if delta < bestDelta {
				bestDelta = delta
				best = spatialmath.Compose(cameraPose, spatialmath.PoseInverse(pe.robotToCamera))
			}
		}
	}
	if best == nil {
		return nil
	}
	return &EstimatedRobotPose{Pose: best, Timestamp: result.Timestamp}
}

// closestTo selects the target whose single-target candidate robot pose has
// the smallest translation distance to the given pose. The metric is the
// Euclidean norm of the 3D translation difference; rotation is not weighted.
// Both "closest to" strategies route through here, so they never share or
// mutate each other's comparison pose. Ties keep the first-encountered
// target in result order.
func (pe *Estimator) closestTo(result DetectionResult, to spatialmath.Pose) *EstimatedRobotPose {
	var best spatialmath.Pose
	bestDistance := math.MaxFloat64
	for _, target := range result.Targets {
		tagPose, ok := pe.resolveTagPose(target)
		if !ok {
			continue
		}
		candidate := pe.robotPoseFromTarget(tagPose, target.BestCameraToTarget)
		distance := candidate.Point().Sub(to.Point()).Norm()
		if distance < bestDistance {
			bestDistance = distance
			best = candidate
		}
	}
	if best == nil {
		return nil
	}
	return &EstimatedRobotPose{Pose: best, Timestamp: result.Timestamp}
}

// averageBestTargets fuses every resolvable target into a weighted average
// pose. Weights are 1-ambiguity, clamped to ambiguityWeightFloor.
func (pe *Estimator) averageBestTargets(result DetectionResult) *EstimatedRobotPose {
	candidates := make([]weightedPose, 0, len(result.Targets))
	for _, target := range result.Targets {
		tagPose, ok := pe.resolveTagPose(target)
		if !ok {
			continue
		}
		weight := 1.0 - target.Ambiguity
		if weight < ambiguityWeightFloor {
			weight = ambiguityWeightFloor
		}
		candidates = append(candidates, weightedPose{
			pose:   pe.robotPoseFromTarget(tagPose, target.BestCameraToTarget),
			weight: weight,
			tagID:  target.TagID,
		})
	}
	if len(candidates) == 0 {
		return nil
	}
	return &EstimatedRobotPose{Pose: blendPoses(candidates), Timestamp: result.Timestamp}
}
