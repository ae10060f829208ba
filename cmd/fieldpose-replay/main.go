package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/spatialmath"

	"github.com/field-vision/fieldpose-go/fieldpose"
)

// fieldpose-replay runs a recorded detection log through the pose estimator
// and prints one estimate per frame. Useful for comparing strategies offline
// against the same footage.
func main() {
	var layoutPath string
	var logPath string
	var strategyName string
	var mountSpec string
	flag.StringVar(&layoutPath, "layout", "", "Path to field layout JSON.")
	flag.StringVar(&logPath, "log", "", "Path to detection log JSON.")
	flag.StringVar(&strategyName, "strategy", fieldpose.StrategyLowestAmbiguity.String(), "Pose selection strategy.")
	flag.StringVar(&mountSpec, "mount", "0,0,0", "Robot-to-camera translation in meters (x,y,z).")
	flag.Parse()

	if layoutPath == "" || logPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	layout, err := fieldpose.LoadLayout(layoutPath)
	if err != nil {
		log.Fatalf("load layout: %v", err)
	}
	frames, err := fieldpose.LoadDetectionLog(logPath)
	if err != nil {
		log.Fatalf("load detection log: %v", err)
	}
	strategy, err := fieldpose.ParseStrategy(strategyName)
	if err != nil {
		log.Fatalf("invalid strategy %q: %v", strategyName, err)
	}
	mount, err := parseMount(mountSpec)
	if err != nil {
		log.Fatalf("invalid mount %q: %v", mountSpec, err)
	}

	logger := logging.NewLogger("fieldpose-replay")
	estimator, err := fieldpose.NewEstimator(layout, strategy, fieldpose.NewReplaySource(frames), mount, logger)
	if err != nil {
		log.Fatalf("create estimator: %v", err)
	}

	for i := range frames {
		estimate := estimator.Update()
		if estimate == nil {
			fmt.Printf("frame %4d: no estimate\n", i)
			continue
		}
		point := estimate.Pose.Point()
		yaw := estimate.Pose.Orientation().EulerAngles().Yaw
		fmt.Printf("frame %4d @ %dms: x=%.3f y=%.3f z=%.3f yaw=%.1fdeg\n",
			i, estimate.Timestamp.UnixMilli(), point.X, point.Y, point.Z, yaw*180/math.Pi)
	}
}

func parseMount(spec string) (spatialmath.Pose, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 3 {
		return nil, errors.Errorf("want 3 comma-separated values, got %d", len(parts))
	}
	values := make([]float64, 3)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "component %d", i)
		}
		values[i] = v
	}
	return spatialmath.NewPoseFromPoint(r3.Vector{X: values[0], Y: values[1], Z: values[2]}), nil
}
