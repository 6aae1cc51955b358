package inject

import (
	"go.viam.com/odometry/spatialmath"
)

// PoseSource is the read and reset surface of a pose tracker.
type PoseSource interface {
	Pose() spatialmath.Pose
	Reset(initial spatialmath.Pose)
	FramesProcessed() int
}

// Tracker is an injected pose tracker.
type Tracker struct {
	PoseSource
	PoseFunc            func() spatialmath.Pose
	ResetFunc           func(initial spatialmath.Pose)
	FramesProcessedFunc func() int
}

// Pose calls the injected Pose or the real version.
func (t *Tracker) Pose() spatialmath.Pose {
	if t.PoseFunc == nil {
		return t.PoseSource.Pose()
	}
	return t.PoseFunc()
}

// Reset calls the injected Reset or the real version.
func (t *Tracker) Reset(initial spatialmath.Pose) {
	if t.ResetFunc == nil {
		t.PoseSource.Reset(initial)
		return
	}
	t.ResetFunc(initial)
}

// FramesProcessed calls the injected FramesProcessed or the real version.
func (t *Tracker) FramesProcessed() int {
	if t.FramesProcessedFunc == nil {
		return t.PoseSource.FramesProcessed()
	}
	return t.FramesProcessedFunc()
}
