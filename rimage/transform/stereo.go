package transform

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// StereoCameraModel is a rectified stereo pair: two pinhole models sharing an image plane,
// separated horizontally by Baseline (in the units of the scan and depth data).
type StereoCameraModel struct {
	Left     CameraModel `json:"left"`
	Right    CameraModel `json:"right"`
	Baseline float64     `json:"baseline"`
}

// CheckValid returns every reason the stereo model can not be used for projection.
func (sm *StereoCameraModel) CheckValid() error {
	if sm == nil {
		return NewNoIntrinsicsError("stereo model does not exist")
	}
	var errs error
	if err := sm.Left.PinholeCameraIntrinsics.CheckValid(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "left camera"))
	}
	if err := sm.Right.PinholeCameraIntrinsics.CheckValid(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "right camera"))
	}
	if sm.Baseline <= 0 {
		errs = multierr.Append(errs, errors.Errorf("invalid stereo baseline %v", sm.Baseline))
	}
	return errs
}

// IsValidForProjection returns whether both cameras are calibrated and the baseline is positive.
func (sm *StereoCameraModel) IsValidForProjection() bool {
	return sm.CheckValid() == nil
}

// DisparityToDepth converts a disparity in pixels to a depth using the left focal length.
func (sm *StereoCameraModel) DisparityToDepth(disparity float64) float64 {
	if disparity <= 0 || sm.Left.PinholeCameraIntrinsics == nil {
		return 0
	}
	return sm.Baseline * sm.Left.Fx / disparity
}
