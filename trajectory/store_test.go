package trajectory

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/odometry/spatialmath"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "trajectory.db"))
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, store.Close(), test.ShouldBeNil)
	}()

	runID, err := store.BeginRun(map[string]interface{}{"keyframe_threshold": 0.3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, runID, test.ShouldNotBeEmpty)

	stamp := time.Unix(1700000000, 500)
	pose := spatialmath.NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, &spatialmath.R4AA{Theta: 0.4, RZ: 1})
	step := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.1})

	test.That(t, store.Append(runID, Cycle{
		Seq:            1,
		Stamp:          stamp.Add(time.Second),
		Pose:           pose,
		Lost:           true,
		TimeEstimation: 3 * time.Millisecond,
	}), test.ShouldBeNil)
	test.That(t, store.Append(runID, Cycle{
		Seq:           0,
		Stamp:         stamp,
		Pose:          spatialmath.NewZeroPose(),
		Transform:     step,
		KeyFrameAdded: true,
		Inliers:       42,
		Features:      300,
	}), test.ShouldBeNil)

	// duplicate sequence numbers are rejected
	test.That(t, store.Append(runID, Cycle{Seq: 0, Pose: pose}), test.ShouldNotBeNil)
	test.That(t, store.Append(runID, Cycle{Seq: 3}), test.ShouldNotBeNil)

	cycles, err := store.Cycles(runID)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(cycles), test.ShouldEqual, 2)

	first := cycles[0]
	test.That(t, first.Seq, test.ShouldEqual, 0)
	test.That(t, first.Stamp.Equal(stamp), test.ShouldBeTrue)
	test.That(t, first.KeyFrameAdded, test.ShouldBeTrue)
	test.That(t, first.Lost, test.ShouldBeFalse)
	test.That(t, first.Inliers, test.ShouldEqual, 42)
	test.That(t, first.Features, test.ShouldEqual, 300)
	test.That(t, spatialmath.PoseAlmostEqual(first.Transform, step), test.ShouldBeTrue)

	second := cycles[1]
	test.That(t, second.Lost, test.ShouldBeTrue)
	test.That(t, second.Transform, test.ShouldBeNil)
	test.That(t, second.TimeEstimation, test.ShouldEqual, 3*time.Millisecond)
	test.That(t, spatialmath.PoseAlmostEqual(second.Pose, pose), test.ShouldBeTrue)

	other, err := store.Cycles("missing")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, other, test.ShouldBeEmpty)
}

func TestStoreRuns(t *testing.T) {
	store, err := Open(":memory:")
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, store.Close(), test.ShouldBeNil)
	}()

	runs, err := store.Runs()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, runs, test.ShouldBeEmpty)

	first, err := store.BeginRun(struct {
		Thr float64 `json:"thr"`
	}{Thr: 0.5})
	test.That(t, err, test.ShouldBeNil)
	second, err := store.BeginRun(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first, test.ShouldNotEqual, second)

	runs, err = store.Runs()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(runs), test.ShouldEqual, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	test.That(t, ids, test.ShouldContain, first)
	test.That(t, ids, test.ShouldContain, second)

	_, err = store.BeginRun(make(chan int))
	test.That(t, err, test.ShouldNotBeNil)

	// cycles must belong to a known run
	test.That(t, store.Append("unknown", Cycle{Pose: spatialmath.NewZeroPose()}), test.ShouldNotBeNil)
}
