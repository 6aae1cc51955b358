// Package sensordata defines one synchronized sample of the sensor rig and the frame built from
// it for registration.
package sensordata

import (
	"image"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/odometry/pointcloud"
	"go.viam.com/odometry/rimage/transform"
	"go.viam.com/odometry/spatialmath"
)

// KeyPoint is a 2D image feature.
type KeyPoint struct {
	Pt       r2.Point `json:"pt"`
	Size     float64  `json:"size"`
	Angle    float64  `json:"angle"`
	Response float64  `json:"response"`
	Octave   int      `json:"octave"`
}

// Features are the features extracted from a sample: 2D keypoints, their 3D positions when
// depth is available, and one descriptor per keypoint.
type Features struct {
	Keypoints   []KeyPoint
	Keypoints3D []r3.Vector
	Descriptors [][]byte
}

// Clone returns a copy of the features that does not share backing arrays.
func (f Features) Clone() Features {
	out := Features{
		Keypoints:   append([]KeyPoint(nil), f.Keypoints...),
		Keypoints3D: append([]r3.Vector(nil), f.Keypoints3D...),
	}
	if f.Descriptors != nil {
		out.Descriptors = make([][]byte, len(f.Descriptors))
		for i, d := range f.Descriptors {
			out.Descriptors[i] = append([]byte(nil), d...)
		}
	}
	return out
}

// IMU is an inertial reading. LinearAcceleration is the specific force measured in the sensor
// frame and LocalTransform is the sensor mounting pose on the robot base (nil when unknown).
type IMU struct {
	LinearAcceleration r3.Vector
	AngularVelocity    r3.Vector
	Orientation        spatialmath.Orientation
	LocalTransform     spatialmath.Pose
}

// HasLinearAcceleration reports whether the reading carries a usable acceleration, meaning
// every axis is non-zero.
func (imu *IMU) HasLinearAcceleration() bool {
	return imu != nil &&
		imu.LinearAcceleration.X != 0 &&
		imu.LinearAcceleration.Y != 0 &&
		imu.LinearAcceleration.Z != 0
}

// SensorData is one sample of the rig. Images are optional: a stereo sample sets Image and
// RightImage, an RGB-D sample sets Image and Depth.
type SensorData struct {
	Stamp time.Time

	Image      image.Image
	RightImage image.Image
	Depth      image.Image

	CameraModels []transform.CameraModel
	StereoModel  *transform.StereoCameraModel

	Scan *pointcloud.LaserScan
	IMU  *IMU

	Features Features
}

func hasPixels(img image.Image) bool {
	return img != nil && !img.Bounds().Empty()
}

// HasImage returns whether the sample carries a (left) image.
func (d *SensorData) HasImage() bool {
	return hasPixels(d.Image)
}

// HasRightImage returns whether the sample carries a right stereo image.
func (d *SensorData) HasRightImage() bool {
	return hasPixels(d.RightImage)
}

// HasDepth returns whether the sample carries a depth image.
func (d *SensorData) HasDepth() bool {
	return hasPixels(d.Depth)
}

// IsValid returns whether the sample carries anything a registration could use.
func (d *SensorData) IsValid() bool {
	return d != nil && (d.HasImage() || d.HasRightImage() || d.HasDepth() ||
		!d.Scan.IsEmpty() || len(d.Features.Keypoints) > 0)
}

// SetFeatures replaces the extracted features of the sample.
func (d *SensorData) SetFeatures(keypoints []KeyPoint, keypoints3D []r3.Vector, descriptors [][]byte) {
	d.Features = Features{Keypoints: keypoints, Keypoints3D: keypoints3D, Descriptors: descriptors}
}

// Clone returns a copy of the sample. Images, camera models, the scan and the IMU reading are
// immutable once captured and are shared; features are copied.
func (d *SensorData) Clone() *SensorData {
	if d == nil {
		return nil
	}
	out := *d
	out.CameraModels = append([]transform.CameraModel(nil), d.CameraModels...)
	out.Features = d.Features.Clone()
	return &out
}
