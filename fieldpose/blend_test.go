package fieldpose

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
	"go.viam.com/test"
)

func TestBlendSingleCandidateUntouched(t *testing.T) {
	pose := spatialmath.NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, yawQuat(42))
	blended := blendPoses([]weightedPose{{pose: pose, weight: 0.7, tagID: 1}})
	test.That(t, spatialmath.PoseAlmostEqual(blended, pose), test.ShouldBeTrue)
}

func TestBlendHalfwayRotation(t *testing.T) {
	a := weightedPose{pose: spatialmath.NewPose(r3.Vector{}, yawQuat(0)), weight: 0.5, tagID: 1}
	b := weightedPose{pose: spatialmath.NewPose(r3.Vector{X: 2}, yawQuat(90)), weight: 0.5, tagID: 2}
	blended := blendPoses([]weightedPose{a, b})
	want := spatialmath.NewPose(r3.Vector{X: 1}, yawQuat(45))
	test.That(t, spatialmath.PoseAlmostEqualEps(blended, want, 1e-9), test.ShouldBeTrue)
}

func TestBlendHandlesDoubleCover(t *testing.T) {
	// q and -q describe the same rotation; the blend must not cancel them.
	q := yawQuat(60)
	negated := &spatialmath.Quaternion{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
	a := weightedPose{pose: spatialmath.NewPose(r3.Vector{}, q), weight: 0.5, tagID: 1}
	b := weightedPose{pose: spatialmath.NewPose(r3.Vector{}, negated), weight: 0.5, tagID: 2}
	blended := blendPoses([]weightedPose{a, b})
	test.That(t, spatialmath.OrientationAlmostEqual(blended.Orientation(), q), test.ShouldBeTrue)
}
