package sensordata

import (
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/odometry/pointcloud"
)

func TestIMUHasLinearAcceleration(t *testing.T) {
	var nilIMU *IMU
	test.That(t, nilIMU.HasLinearAcceleration(), test.ShouldBeFalse)
	test.That(t, (&IMU{LinearAcceleration: r3.Vector{X: 0.1, Y: 0.2, Z: 9.8}}).HasLinearAcceleration(), test.ShouldBeTrue)
	test.That(t, (&IMU{LinearAcceleration: r3.Vector{X: 0, Y: 0.2, Z: 9.8}}).HasLinearAcceleration(), test.ShouldBeFalse)
	test.That(t, (&IMU{LinearAcceleration: r3.Vector{Z: 9.8}}).HasLinearAcceleration(), test.ShouldBeFalse)
}

func TestSensorDataValidity(t *testing.T) {
	var nilData *SensorData
	test.That(t, nilData.IsValid(), test.ShouldBeFalse)
	test.That(t, (&SensorData{}).IsValid(), test.ShouldBeFalse)

	d := &SensorData{Image: image.NewGray(image.Rect(0, 0, 4, 4))}
	test.That(t, d.HasImage(), test.ShouldBeTrue)
	test.That(t, d.HasDepth(), test.ShouldBeFalse)
	test.That(t, d.IsValid(), test.ShouldBeTrue)

	d = &SensorData{Depth: image.NewGray16(image.Rectangle{})}
	test.That(t, d.HasDepth(), test.ShouldBeFalse)

	d = &SensorData{Scan: pointcloud.NewLaserScan([]r3.Vector{{X: 1}}, 0, nil)}
	test.That(t, d.IsValid(), test.ShouldBeTrue)
}

func TestSensorDataClone(t *testing.T) {
	d := &SensorData{}
	d.SetFeatures(
		[]KeyPoint{{Pt: r2.Point{X: 1, Y: 2}}},
		[]r3.Vector{{X: 1, Y: 2, Z: 3}},
		[][]byte{{1, 2, 3}},
	)
	c := d.Clone()
	c.Features.Keypoints[0].Pt.X = 10
	c.Features.Descriptors[0][0] = 9
	test.That(t, d.Features.Keypoints[0].Pt.X, test.ShouldEqual, 1)
	test.That(t, d.Features.Descriptors[0][0], test.ShouldEqual, 1)
}

func TestFrameWords(t *testing.T) {
	f := NewFrame(&SensorData{Scan: pointcloud.NewLaserScan([]r3.Vector{{X: 1}}, 0, nil)})
	test.That(t, f.IsValid(), test.ShouldBeTrue)
	test.That(t, f.FeatureCount(), test.ShouldEqual, 0)

	f.Words = []Word{{ID: 1}, {ID: 2}}
	f.Words3 = []Word3{{ID: 1, Point: r3.Vector{X: 1}}}
	f.WordsDescriptors = []WordDescriptor{{ID: 1, Descriptor: []byte{7}}, {ID: 2, Descriptor: []byte{8}}}
	test.That(t, f.FeatureCount(), test.ShouldEqual, 2)

	c := f.Clone()
	c.WordsDescriptors[0].Descriptor[0] = 0
	c.Words3[0].Point.X = 5
	test.That(t, f.WordsDescriptors[0].Descriptor[0], test.ShouldEqual, 7)
	test.That(t, f.Words3[0].Point.X, test.ShouldEqual, 1)

	c.ClearWords()
	test.That(t, c.FeatureCount(), test.ShouldEqual, 0)
	test.That(t, c.Words, test.ShouldBeEmpty)
	test.That(t, f.FeatureCount(), test.ShouldEqual, 2)
	test.That(t, c.IsValid(), test.ShouldBeTrue)

	var nilFrame *Frame
	test.That(t, nilFrame.IsValid(), test.ShouldBeFalse)
}

func TestFindUniquePairs(t *testing.T) {
	kp := func(x float64) KeyPoint { return KeyPoint{Pt: r2.Point{X: x}} }
	from := []Word{{ID: 5, Keypoint: kp(5)}, {ID: 1, Keypoint: kp(1)}, {ID: 3, Keypoint: kp(3)}, {ID: 3, Keypoint: kp(33)}, {ID: 7, Keypoint: kp(7)}}
	to := []Word{{ID: 1, Keypoint: kp(-1)}, {ID: 5, Keypoint: kp(-5)}, {ID: 3, Keypoint: kp(-3)}, {ID: 9, Keypoint: kp(-9)}}

	pairs := FindUniquePairs(from, to)
	test.That(t, len(pairs), test.ShouldEqual, 2)
	test.That(t, pairs[0].ID, test.ShouldEqual, 1)
	test.That(t, pairs[0].From.Pt.X, test.ShouldEqual, 1)
	test.That(t, pairs[0].To.Pt.X, test.ShouldEqual, -1)
	test.That(t, pairs[1].ID, test.ShouldEqual, 5)

	test.That(t, FindUniquePairs(nil, to), test.ShouldBeEmpty)
}
