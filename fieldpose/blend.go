package fieldpose

import (
	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
	"gonum.org/v1/gonum/num/quat"
)

// weightedPose is a single-target robot pose candidate with its fusion weight.
type weightedPose struct {
	pose   spatialmath.Pose
	weight float64
	tagID  int
}

// blendPoses fuses candidates into one pose: a weighted arithmetic mean of
// the translations and a weighted normalized quaternion sum of the
// orientations. A single candidate is returned untouched.
func blendPoses(candidates []weightedPose) spatialmath.Pose {
	if len(candidates) == 1 {
		return candidates[0].pose
	}
	var totalWeight float64
	var point r3.Vector
	for _, c := range candidates {
		totalWeight += c.weight
		point = point.Add(c.pose.Point().Mul(c.weight))
	}
	point = point.Mul(1.0 / totalWeight)
	orientation := spatialmath.Quaternion(blendOrientations(candidates))
	return spatialmath.NewPose(point, &orientation)
}

// blendOrientations computes a weighted quaternion mean. Quaternions live on
// a double cover (q and -q are the same rotation), so every candidate is
// sign-aligned against a reference before summing. The reference is the
// highest-weight candidate, ties broken by lowest tag id, which keeps the
// result independent of the order targets were listed in.
func blendOrientations(candidates []weightedPose) quat.Number {
	ref := candidates[0]
	for _, c := range candidates[1:] {
		if c.weight > ref.weight || (c.weight == ref.weight && c.tagID < ref.tagID) {
			ref = c
		}
	}
	refQ := ref.pose.Orientation().Quaternion()

	var sum quat.Number
	for _, c := range candidates {
		q := c.pose.Orientation().Quaternion()
		if quatDot(q, refQ) < 0 {
			q = quat.Scale(-1, q)
		}
		sum = quat.Add(sum, quat.Scale(c.weight, q))
	}
	norm := quat.Abs(sum)
	if norm == 0 {
		// Candidates cancelled out exactly; fall back to the reference.
		return refQ
	}
	return quat.Scale(1.0/norm, sum)
}

func quatDot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}
