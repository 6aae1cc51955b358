// Package pointcloud defines the laser scan carried by a sensor sample and the spatial index
// used to register scans against each other.
package pointcloud

import (
	"github.com/golang/geo/r3"

	"go.viam.com/odometry/spatialmath"
)

// NewVector convenience method for creating a vector.
func NewVector(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}

// LaserScan is a set of points expressed in the scanner frame, along with the scanner mounting
// pose relative to the robot base and the number of points the scanner can produce in one sweep.
// A MaxPoints of zero means the scanner declared no point budget.
type LaserScan struct {
	points         []r3.Vector
	maxPoints      int
	localTransform spatialmath.Pose
}

// NewLaserScan returns a scan over the given points. A nil local transform is treated as identity.
func NewLaserScan(points []r3.Vector, maxPoints int, localTransform spatialmath.Pose) *LaserScan {
	if localTransform == nil {
		localTransform = spatialmath.NewZeroPose()
	}
	return &LaserScan{
		points:         append([]r3.Vector{}, points...),
		maxPoints:      maxPoints,
		localTransform: localTransform,
	}
}

// Size returns the number of points in the scan. A nil scan has size zero.
func (s *LaserScan) Size() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// IsEmpty returns whether the scan has no points.
func (s *LaserScan) IsEmpty() bool {
	return s.Size() == 0
}

// MaxPoints returns the declared point budget of the scanner, or zero if none was declared.
func (s *LaserScan) MaxPoints() int {
	if s == nil {
		return 0
	}
	return s.maxPoints
}

// LocalTransform returns the pose of the scanner relative to the robot base.
func (s *LaserScan) LocalTransform() spatialmath.Pose {
	if s == nil || s.localTransform == nil {
		return spatialmath.NewZeroPose()
	}
	return s.localTransform
}

// Points returns a copy of the points in the scanner frame.
func (s *LaserScan) Points() []r3.Vector {
	if s == nil {
		return nil
	}
	return append([]r3.Vector{}, s.points...)
}

// Iterate calls fn for each point until it returns false.
func (s *LaserScan) Iterate(fn func(i int, p r3.Vector) bool) {
	if s == nil {
		return
	}
	for i, p := range s.points {
		if !fn(i, p) {
			return
		}
	}
}

// Transform returns a new scan whose points have been moved by the given pose. The point budget
// and mounting pose are preserved.
func (s *LaserScan) Transform(pose spatialmath.Pose) *LaserScan {
	if s == nil {
		return nil
	}
	out := make([]r3.Vector, len(s.points))
	for i, p := range s.points {
		out[i] = spatialmath.TransformPoint(pose, p)
	}
	return &LaserScan{points: out, maxPoints: s.maxPoints, localTransform: s.localTransform}
}

// InBaseFrame returns the points expressed in the robot base frame.
func (s *LaserScan) InBaseFrame() []r3.Vector {
	if s.IsEmpty() {
		return nil
	}
	return s.Transform(s.LocalTransform()).points
}

// Centroid returns the mean of the given points.
func Centroid(points []r3.Vector) r3.Vector {
	var sum r3.Vector
	if len(points) == 0 {
		return sum
	}
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(points)))
}
