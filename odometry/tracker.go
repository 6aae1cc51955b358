package odometry

import (
	"go.viam.com/odometry/spatialmath"
)

// Tracker is the pose tracking the estimator reads from. The estimator only resets it once, to
// align the initial pose with gravity.
type Tracker interface {
	// Pose is the current tracked pose. It is never nil.
	Pose() spatialmath.Pose
	// Reset sets the tracked pose and forgets the processed frames. A nil pose is identity.
	Reset(initial spatialmath.Pose)
	// FramesProcessed is the number of cycles integrated since the last reset.
	FramesProcessed() int
}

// PoseTracker integrates incremental transforms into an absolute pose.
type PoseTracker struct {
	pose            spatialmath.Pose
	framesProcessed int
}

// NewPoseTracker returns a tracker starting at initial, or at identity when initial is nil.
func NewPoseTracker(initial spatialmath.Pose) *PoseTracker {
	pt := &PoseTracker{}
	pt.Reset(initial)
	return pt
}

// Pose returns the tracked pose.
func (pt *PoseTracker) Pose() spatialmath.Pose {
	return pt.pose
}

// Reset moves the tracker to initial and zeroes the processed frame count.
func (pt *PoseTracker) Reset(initial spatialmath.Pose) {
	if initial == nil {
		initial = spatialmath.NewZeroPose()
	}
	pt.pose = initial
	pt.framesProcessed = 0
}

// FramesProcessed returns the number of cycles integrated since the last reset.
func (pt *PoseTracker) FramesProcessed() int {
	return pt.framesProcessed
}

// Integrate counts a cycle and, when t is not nil, moves the tracked pose by it.
func (pt *PoseTracker) Integrate(t spatialmath.Pose) {
	if t != nil {
		pt.pose = spatialmath.Compose(pt.pose, t)
	}
	pt.framesProcessed++
}
