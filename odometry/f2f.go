// Package odometry implements frame to frame (F2F) visual and scan odometry: every frame is
// registered against a single keyframe that is renewed as the overlap with it degrades.
package odometry

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/odometry/logging"
	"go.viam.com/odometry/registration"
	"go.viam.com/odometry/sensordata"
	"go.viam.com/odometry/spatialmath"
)

// ErrCalibration is returned when a sample carries imagery its camera models can not project.
var ErrCalibration = errors.New("calibration required")

const (
	initialSearchRadiusFactor = 3.0
	initialOutlierRatio       = 0.95
)

// F2F estimates the motion of the rig between consecutive samples by registering each one
// against a keyframe. It is not safe for concurrent use.
type F2F struct {
	conf     Config
	pipeline registration.Pipeline
	tracker  Tracker
	keyframe KeyframeStore
	logger   logging.Logger
}

// NewF2F returns an estimator registering with pipeline. A nil tracker starts a PoseTracker at
// identity.
func NewF2F(conf Config, pipeline registration.Pipeline, tracker Tracker, logger logging.Logger) (*F2F, error) {
	if err := conf.Validate("odometry"); err != nil {
		return nil, err
	}
	if pipeline == nil {
		return nil, errors.New("registration pipeline is required")
	}
	if tracker == nil {
		tracker = NewPoseTracker(nil)
	}
	return &F2F{
		conf:     conf,
		pipeline: pipeline,
		tracker:  tracker,
		logger:   logger,
	}, nil
}

// Tracker returns the pose tracker the estimator reads from.
func (f *F2F) Tracker() Tracker {
	return f.tracker
}

// Keyframe returns the current keyframe, or nil before the first one is accepted.
func (f *F2F) Keyframe() *sensordata.Frame {
	return f.keyframe.Frame()
}

// Reset moves the tracker to initial and forgets the keyframe.
func (f *F2F) Reset(initial spatialmath.Pose) {
	f.tracker.Reset(initial)
	f.keyframe.Clear()
}

// Process runs a cycle and integrates its transform into the tracker. The tracker must be able
// to integrate motion, as a PoseTracker does.
func (f *F2F) Process(data *sensordata.SensorData, guess spatialmath.Pose, info *Info) (spatialmath.Pose, error) {
	integrator, ok := f.tracker.(interface{ Integrate(t spatialmath.Pose) })
	if !ok {
		return nil, errors.Errorf("tracker %T can not integrate motion", f.tracker)
	}
	t, err := f.ComputeTransform(data, guess, info)
	if err != nil {
		return nil, err
	}
	integrator.Integrate(t)
	return t, nil
}

// ComputeTransform returns the motion of the rig since the previous cycle, or nil when it could
// not be estimated. The features extracted from data are stored back into it.
func (f *F2F) ComputeTransform(
	data *sensordata.SensorData,
	guess spatialmath.Pose,
	info *Info,
) (spatialmath.Pose, error) {
	start := time.Now()
	if err := checkCalibration(data); err != nil {
		return nil, err
	}

	var (
		output        spatialmath.Pose
		reg           registration.Info
		keyFrameAdded bool
	)

	if f.keyframe.Pending() {
		if !f.keyframe.HasKeyframe() {
			f.alignWithGravity(data.IMU)
		}
		f.keyframe.SetPose(f.tracker.Pose())
	}
	motion := f.keyframe.MotionSince(f.tracker.Pose())

	candidate := sensordata.NewFrame(data)
	if f.keyframe.HasKeyframe() {
		var reference *sensordata.Frame
		output, reg, reference = f.register(candidate, guess, motion)
		if info != nil && f.conf.FillInfoData {
			fillInfoData(info, reference, candidate, reg, f.tracker.Pose(), motion)
		}
	} else {
		output = spatialmath.NewZeroPose()
		reg.Covariance = registration.NewDiagonalCovariance(registration.DefaultVariance)
	}

	if output != nil {
		output = spatialmath.Compose(spatialmath.PoseInverse(motion), output)

		if f.shouldRenew(reg) {
			f.logger.Debug("Update key frame")
			candidate, keyFrameAdded = f.renew(data, candidate)
			if !keyFrameAdded && !f.keyframe.HasKeyframe() {
				output = nil
			}
		}
	} else if reg.RejectedMsg != "" {
		f.logger.Warnf("Registration failed: %q", reg.RejectedMsg)
	}

	features := candidate.Data.Features
	data.SetFeatures(features.Keypoints, features.Keypoints3D, features.Descriptors)

	elapsed := time.Since(start)
	if info != nil {
		info.Type = TypeF2F
		info.Features = len(features.Keypoints)
		info.KeyFrameAdded = keyFrameAdded
		if f.conf.FillInfoData {
			info.Reg = reg
		} else {
			info.Reg = reg.CopyWithoutData()
		}
		info.TimeEstimation = elapsed
		info.Lost = output == nil
		info.Inliers = reg.Inliers
	}

	f.logger.Infof("Odom update time = %fs lost=%t inliers=%d, ref frame corners=%d, transform accepted=%t",
		elapsed.Seconds(), output == nil, reg.Inliers, len(features.Keypoints), output != nil)

	return output, nil
}

func checkCalibration(data *sensordata.SensorData) error {
	if data == nil {
		return errors.New("sensor data is required")
	}
	if data.HasRightImage() && !data.StereoModel.IsValidForProjection() {
		return errors.Wrap(ErrCalibration, "calibrated stereo camera required")
	}
	if data.HasDepth() && (len(data.CameraModels) != 1 || !data.CameraModels[0].IsValidForProjection()) {
		return errors.Wrap(ErrCalibration, "calibrated camera required (multi-cameras not supported)")
	}
	return nil
}

// alignWithGravity resets the tracker so that the measured gravity points down, when the
// tracker has not been given an orientation yet.
func (f *F2F) alignWithGravity(imu *sensordata.IMU) {
	if !spatialmath.IsIdentityOrientation(f.tracker.Pose().Orientation()) ||
		!imu.HasLinearAcceleration() || imu.LocalTransform == nil {
		return
	}
	n := spatialmath.RotateVector(imu.LocalTransform.Orientation(), imu.LinearAcceleration).Normalize().Mul(-1)
	rotation := spatialmath.RotationBetween(n, r3.Vector{Z: 1})
	f.logger.Debugw("aligning initial pose with gravity", "gravity", n)
	f.tracker.Reset(spatialmath.NewPoseFromOrientation(rotation))
}

// register registers candidate against a copy of the keyframe and returns the registration
// output, its info and the keyframe copy the output was computed against.
func (f *F2F) register(
	candidate *sensordata.Frame,
	guess, motion spatialmath.Pose,
) (spatialmath.Pose, registration.Info, *sensordata.Frame) {
	firstCycles := f.tracker.FramesProcessed() < 2

	var params registration.Params
	if guess == nil && !f.pipeline.RequiresImage() && f.pipeline.RequiresScan() && firstCycles {
		// the robot may already be moving when the first frames come in
		params.MaxCorrespondenceDistance = f.pipeline.Parameters().MaxCorrespondenceDistance * initialSearchRadiusFactor
		params.OutlierRatio = initialOutlierRatio
	}

	var regGuess spatialmath.Pose
	switch {
	case guess != nil:
		regGuess = spatialmath.Compose(motion, guess)
	case !f.pipeline.RequiresImage() && firstCycles:
		regGuess = motion
	}

	reference := f.keyframe.Frame().Clone()
	res := f.pipeline.Register(reference, candidate, regGuess, params)
	if res.OK() || guess == nil || !f.pipeline.RequiresImage() {
		return res.Transform, res.Info, reference
	}

	reference = f.keyframe.Frame().Clone()
	candidate.ClearWords()
	f.logger.Warnf("Failed to find a transformation with the provided guess (%s), trying again without a guess.",
		spatialmath.PoseString(guess))

	var retryParams registration.Params
	if f.pipeline.Parameters().CorrespondenceType == registration.Flow {
		features := registration.Features
		retryParams.CorrespondenceType = &features
	}
	res = f.pipeline.Register(reference, candidate, nil, retryParams)
	if res.OK() {
		f.logger.Warn("Trial with no guess succeeded.")
	} else {
		f.logger.Warn("Trial with no guess still fail.")
	}
	return res.Transform, res.Info, reference
}

func (f *F2F) shouldRenew(reg registration.Info) bool {
	if f.pipeline.RequiresImage() {
		var refKeypoints int
		if kf := f.keyframe.Frame(); kf != nil {
			refKeypoints = len(kf.Data.Features.Keypoints)
		}
		if f.conf.KeyFrameThr == 0 ||
			f.conf.VisKeyFrameThr == 0 ||
			float64(reg.Inliers) <= f.conf.KeyFrameThr*float64(refKeypoints) ||
			reg.Inliers <= f.conf.VisKeyFrameThr {
			return true
		}
	}
	return f.pipeline.RequiresScan() && (f.conf.ScanKeyFrameThr == 0 || reg.ICPInliersRatio <= f.conf.ScanKeyFrameThr)
}

// renew makes candidate the keyframe if it has enough features and scan points. It returns the
// candidate, rebuilt from data when its features had to be extracted again, and whether it was
// accepted.
func (f *F2F) renew(data *sensordata.SensorData, candidate *sensordata.Frame) (*sensordata.Frame, bool) {
	features := candidate.FeatureCount()
	if f.pipeline.RequiresImage() && features == 0 {
		candidate = sensordata.NewFrame(data)
		f.pipeline.Register(sensordata.NewFrame(nil), candidate, nil, registration.Params{})
		features = len(candidate.Data.Features.Keypoints)
	}

	minVisual := f.pipeline.MinVisualCorrespondences()
	minRatio := f.pipeline.MinGeometryRatio()
	scan := candidate.Data.Scan
	var scanRatio float64
	if scan.MaxPoints() != 0 {
		scanRatio = float64(scan.Size()) / float64(scan.MaxPoints())
	}
	enoughGeometry := minRatio == 0 || (!scan.IsEmpty() && (scan.MaxPoints() == 0 || scanRatio >= minRatio))

	if features >= minVisual && enoughGeometry {
		f.keyframe.Replace(candidate.Clone())
		return candidate, true
	}

	if features < minVisual {
		f.logger.Warnf("Too low 2D features (%d), keeping last key frame...", features)
	}
	if minRatio > 0 && scan.IsEmpty() {
		f.logger.Warnf("Too low scan points (%d), keeping last key frame...", scan.Size())
	} else if minRatio > 0 && scan.MaxPoints() != 0 && scanRatio < minRatio {
		f.logger.Warnf("Too low scan points ratio (%.3f < %.3f), keeping last key frame...", scanRatio, minRatio)
	}
	return candidate, false
}
