package odometry

import (
	"go.viam.com/odometry/sensordata"
	"go.viam.com/odometry/spatialmath"
)

// KeyframeStore holds the single keyframe frames are registered against and the tracked pose
// at the time it was established.
type KeyframeStore struct {
	frame *sensordata.Frame
	pose  spatialmath.Pose
}

// Frame returns the keyframe, or nil before the first one is accepted.
func (ks *KeyframeStore) Frame() *sensordata.Frame {
	return ks.frame
}

// HasKeyframe returns whether a keyframe with usable data has been accepted.
func (ks *KeyframeStore) HasKeyframe() bool {
	return ks.frame.IsValid()
}

// Pose returns the tracked pose of the keyframe, or nil while it is pending.
func (ks *KeyframeStore) Pose() spatialmath.Pose {
	return ks.pose
}

// Pending returns whether the keyframe pose still has to be captured.
func (ks *KeyframeStore) Pending() bool {
	return ks.pose == nil
}

// SetPose captures the tracked pose of the keyframe.
func (ks *KeyframeStore) SetPose(pose spatialmath.Pose) {
	ks.pose = pose
}

// Replace makes frame the keyframe. Its words are dropped and its pose becomes pending, so the
// motion since the keyframe starts again from identity on the next cycle.
func (ks *KeyframeStore) Replace(frame *sensordata.Frame) {
	frame.ClearWords()
	ks.frame = frame
	ks.pose = nil
}

// Clear forgets the keyframe and its pose.
func (ks *KeyframeStore) Clear() {
	ks.frame = nil
	ks.pose = nil
}

// MotionSince returns the motion from the keyframe pose to pose.
func (ks *KeyframeStore) MotionSince(pose spatialmath.Pose) spatialmath.Pose {
	return spatialmath.PoseBetween(ks.pose, pose)
}
