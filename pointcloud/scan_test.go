package pointcloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/odometry/spatialmath"
)

func TestLaserScan(t *testing.T) {
	var nilScan *LaserScan
	test.That(t, nilScan.Size(), test.ShouldEqual, 0)
	test.That(t, nilScan.IsEmpty(), test.ShouldBeTrue)
	test.That(t, nilScan.MaxPoints(), test.ShouldEqual, 0)
	test.That(t, spatialmath.IsIdentityPose(nilScan.LocalTransform()), test.ShouldBeTrue)
	test.That(t, nilScan.Transform(spatialmath.NewZeroPose()), test.ShouldBeNil)

	mount := spatialmath.NewPoseFromPoint(r3.Vector{Z: 0.5})
	scan := NewLaserScan([]r3.Vector{NewVector(1, 0, 0), NewVector(0, 2, 0)}, 360, mount)
	test.That(t, scan.Size(), test.ShouldEqual, 2)
	test.That(t, scan.MaxPoints(), test.ShouldEqual, 360)

	base := scan.InBaseFrame()
	test.That(t, base[0], test.ShouldResemble, r3.Vector{X: 1, Z: 0.5})
	test.That(t, base[1], test.ShouldResemble, r3.Vector{Y: 2, Z: 0.5})

	rotated := scan.Transform(spatialmath.NewPoseFromOrientation(&spatialmath.EulerAngles{Yaw: math.Pi / 2}))
	pts := rotated.Points()
	test.That(t, pts[0].X, test.ShouldAlmostEqual, 0)
	test.That(t, pts[0].Y, test.ShouldAlmostEqual, 1)
	test.That(t, rotated.MaxPoints(), test.ShouldEqual, 360)
	// the source scan is untouched
	test.That(t, scan.Points()[0], test.ShouldResemble, NewVector(1, 0, 0))

	count := 0
	scan.Iterate(func(i int, p r3.Vector) bool {
		count++
		return false
	})
	test.That(t, count, test.ShouldEqual, 1)
	test.That(t, Centroid(scan.Points()), test.ShouldResemble, r3.Vector{X: 0.5, Y: 1})
	test.That(t, Centroid(nil), test.ShouldResemble, r3.Vector{})
}

func TestKDTree(t *testing.T) {
	empty := NewKDTree(nil)
	_, _, ok := empty.NearestNeighbor(r3.Vector{})
	test.That(t, ok, test.ShouldBeFalse)

	points := []r3.Vector{{X: 0}, {X: 1}, {X: 2, Y: 2}, {Z: -3}}
	kd := NewKDTree(points)
	test.That(t, kd.Size(), test.ShouldEqual, 4)
	// building the index does not reorder the caller's slice
	test.That(t, points[2], test.ShouldResemble, r3.Vector{X: 2, Y: 2})

	nearest, dist, ok := kd.NearestNeighbor(r3.Vector{X: 1.9, Y: 1.8})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, nearest, test.ShouldResemble, r3.Vector{X: 2, Y: 2})
	test.That(t, dist, test.ShouldAlmostEqual, math.Sqrt(0.01+0.04))
}
