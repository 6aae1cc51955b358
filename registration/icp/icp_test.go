package icp

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/odometry/logging"
	"go.viam.com/odometry/pointcloud"
	"go.viam.com/odometry/registration"
	"go.viam.com/odometry/sensordata"
	"go.viam.com/odometry/spatialmath"
)

func grid(spacing float64) []r3.Vector {
	var pts []r3.Vector
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			for z := 0; z < 3; z++ {
				pts = append(pts, r3.Vector{X: float64(x) * spacing, Y: float64(y) * spacing, Z: float64(z) * spacing})
			}
		}
	}
	return pts
}

func frameOf(points []r3.Vector) *sensordata.Frame {
	return sensordata.NewFrame(&sensordata.SensorData{Scan: pointcloud.NewLaserScan(points, 0, nil)})
}

func moved(points []r3.Vector, pose spatialmath.Pose) []r3.Vector {
	out := make([]r3.Vector, 0, len(points))
	for _, p := range points {
		out = append(out, spatialmath.TransformPoint(pose, p))
	}
	return out
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(DefaultConfig(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return p
}

func TestCapabilities(t *testing.T) {
	p := newTestPipeline(t)
	test.That(t, p.RequiresImage(), test.ShouldBeFalse)
	test.That(t, p.RequiresScan(), test.ShouldBeTrue)
	test.That(t, p.MinVisualCorrespondences(), test.ShouldEqual, 0)
	test.That(t, p.MinGeometryRatio(), test.ShouldAlmostEqual, 0.1)
	test.That(t, p.Parameters(), test.ShouldResemble, registration.Parameters{
		MaxCorrespondenceDistance: 0.1,
		OutlierRatio:              0.85,
		CorrespondenceType:        registration.Features,
	})
}

func TestRegisterRecoversMotion(t *testing.T) {
	p := newTestPipeline(t)
	ref := grid(0.1)
	expected := spatialmath.NewPose(
		r3.Vector{X: 0.03, Y: -0.02, Z: 0.01},
		&spatialmath.R4AA{Theta: 0.02, RZ: 1},
	)
	cur := moved(ref, spatialmath.PoseInverse(expected))

	res := p.Register(frameOf(ref), frameOf(cur), nil, registration.Params{})
	test.That(t, res.OK(), test.ShouldBeTrue)
	test.That(t, spatialmath.PoseAlmostEqualEps(res.Transform, expected, 1e-3), test.ShouldBeTrue)
	test.That(t, res.Info.ICPInliersRatio, test.ShouldAlmostEqual, 1)
	test.That(t, res.Info.ICPCorrespondences, test.ShouldEqual, len(ref))
	test.That(t, res.Info.ICPRMS, test.ShouldBeLessThan, 1e-3)
	test.That(t, res.Info.Covariance, test.ShouldNotBeNil)
	test.That(t, res.Info.Covariance.At(0, 0), test.ShouldAlmostEqual, minVariance)
}

func TestRegisterUsesGuess(t *testing.T) {
	p := newTestPipeline(t)
	ref := grid(1)
	expected := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.4})
	cur := moved(ref, spatialmath.PoseInverse(expected))

	res := p.Register(frameOf(ref), frameOf(cur), nil, registration.Params{})
	test.That(t, res.OK(), test.ShouldBeFalse)
	test.That(t, res.Info.RejectedMsg, test.ShouldNotBeEmpty)

	res = p.Register(frameOf(ref), frameOf(cur), spatialmath.NewPoseFromPoint(r3.Vector{X: 0.38}), registration.Params{})
	test.That(t, res.OK(), test.ShouldBeTrue)
	test.That(t, spatialmath.PoseAlmostEqualEps(res.Transform, expected, 1e-6), test.ShouldBeTrue)
}

func TestRegisterParamsOverride(t *testing.T) {
	p := newTestPipeline(t)
	ref := grid(1)
	expected := spatialmath.NewPoseFromPoint(r3.Vector{X: 0.2})
	cur := moved(ref, spatialmath.PoseInverse(expected))

	res := p.Register(frameOf(ref), frameOf(cur), nil, registration.Params{})
	test.That(t, res.OK(), test.ShouldBeFalse)

	res = p.Register(frameOf(ref), frameOf(cur), nil, registration.Params{MaxCorrespondenceDistance: 0.3, OutlierRatio: 0.95})
	test.That(t, res.OK(), test.ShouldBeTrue)
	test.That(t, spatialmath.PoseAlmostEqualEps(res.Transform, expected, 1e-6), test.ShouldBeTrue)
	test.That(t, p.Parameters().MaxCorrespondenceDistance, test.ShouldAlmostEqual, 0.1)
}

func TestRegisterEmptyScans(t *testing.T) {
	p := newTestPipeline(t)
	res := p.Register(frameOf(grid(1)), frameOf(nil), nil, registration.Params{})
	test.That(t, res.OK(), test.ShouldBeFalse)
	test.That(t, res.Info.RejectedMsg, test.ShouldContainSubstring, "current scan")

	res = p.Register(sensordata.NewFrame(nil), frameOf(grid(1)), nil, registration.Params{})
	test.That(t, res.OK(), test.ShouldBeFalse)
	test.That(t, res.Info.RejectedMsg, test.ShouldContainSubstring, "reference scan")
}

func TestRegisterLowCorrespondenceRatio(t *testing.T) {
	p := newTestPipeline(t)
	ref := grid(0.1)
	res := p.Register(
		sensordata.NewFrame(&sensordata.SensorData{Scan: pointcloud.NewLaserScan(ref, 10000, nil)}),
		frameOf(ref), nil, registration.Params{},
	)
	test.That(t, res.OK(), test.ShouldBeFalse)
	test.That(t, res.Info.ICPInliersRatio, test.ShouldAlmostEqual, float64(len(ref))/10000)
	test.That(t, res.Info.RejectedMsg, test.ShouldContainSubstring, "cannot compute transform")
}

func TestConfig(t *testing.T) {
	conf := DefaultConfig()
	test.That(t, conf.Validate("path"), test.ShouldBeNil)

	bad := Config{OutlierRatio: 2, MinCorrespondenceRatio: -1, Epsilon: -1}
	err := bad.Validate("path")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "path")
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_correspondence_distance")
	test.That(t, err.Error(), test.ShouldContainSubstring, "outlier_ratio")
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_iterations")
	test.That(t, err.Error(), test.ShouldContainSubstring, "min_correspondence_ratio")

	_, err = NewPipeline(bad, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)

	conf, err = NewConfigFromAttributes(map[string]interface{}{
		"max_correspondence_distance": 0.5,
		"max_iterations":              "10",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.MaxCorrespondenceDistance, test.ShouldAlmostEqual, 0.5)
	test.That(t, conf.MaxIterations, test.ShouldEqual, 10)
	test.That(t, conf.OutlierRatio, test.ShouldAlmostEqual, 0.85)

	_, err = NewConfigFromAttributes(map[string]interface{}{"max_iterations": "ten"})
	test.That(t, err, test.ShouldNotBeNil)
}
