package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof rigid transform: a translation followed by an orientation.
// Throughout the odometry packages a nil Pose is the "null" transform, meaning "unknown".
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type basicPose struct {
	point r3.Vector
	q     quat.Number
}

// NewZeroPose returns a pose at (0,0,0) with the same orientation as the base frame.
func NewZeroPose() Pose {
	return &basicPose{q: quat.Number{Real: 1}}
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return &basicPose{point: p, q: Normalize(o.Quaternion())}
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &basicPose{point: point, q: quat.Number{Real: 1}}
}

// NewPoseFromOrientation takes in an orientation and returns a pose with no translation.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

// NewPoseFromMatrix builds a pose from a row-major 3x4 matrix [R|t], the layout used to log and
// serialize transforms.
func NewPoseFromMatrix(m [12]float64) Pose {
	rm := &RotationMatrix{[9]float64{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	}}
	return NewPose(r3.Vector{X: m[3], Y: m[7], Z: m[11]}, rm)
}

// Point returns the position of the pose.
func (p *basicPose) Point() r3.Vector {
	return p.point
}

// Orientation returns the orientation of the pose.
func (p *basicPose) Orientation() Orientation {
	q := Quaternion(p.q)
	return &q
}

// String prints the pose as "xyz=x,y,z rpy=roll,pitch,yaw" with angles in radians.
func (p *basicPose) String() string {
	ea := QuatToEulerAngles(p.q)
	return fmt.Sprintf("xyz=%f,%f,%f rpy=%f,%f,%f",
		p.point.X, p.point.Y, p.point.Z, ea.Roll, ea.Pitch, ea.Yaw)
}

// PoseString formats any pose the way basicPose does. A nil pose prints as "null".
func PoseString(p Pose) string {
	if p == nil {
		return "null"
	}
	return (&basicPose{point: p.Point(), q: p.Orientation().Quaternion()}).String()
}

// Compose treats Poses as functions A(x) and B(x) and produces a new function C(x) = A(B(x)).
// It applies B first and then A.
func Compose(a, b Pose) Pose {
	qa := Normalize(a.Orientation().Quaternion())
	qb := Normalize(b.Orientation().Quaternion())
	qaOrient := Quaternion(qa)
	return &basicPose{
		point: a.Point().Add(RotateVector(&qaOrient, b.Point())),
		q:     Normalize(quat.Mul(qa, qb)),
	}
}

// PoseInverse will return the inverse of a pose. So if a given pose p is the pose of A relative to B, PoseInverse(p) will give
// the pose of B relative to A.
func PoseInverse(p Pose) Pose {
	inv := Quaternion(quat.Conj(Normalize(p.Orientation().Quaternion())))
	return &basicPose{
		point: RotateVector(&inv, p.Point()).Mul(-1),
		q:     quat.Number(inv),
	}
}

// PoseBetween returns the difference between two spatialmath.Poses, i.e. the pose which,
// composed after a, yields b: Compose(a, PoseBetween(a, b)) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// TransformPoint applies the pose to a point.
func TransformPoint(p Pose, v r3.Vector) r3.Vector {
	return RotateVector(p.Orientation(), v).Add(p.Point())
}

// IsIdentityPose returns whether the pose is (almost exactly) the identity transform.
func IsIdentityPose(p Pose) bool {
	return PoseAlmostEqual(p, NewZeroPose())
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-6)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon) &&
		OrientationAlmostEqualEps(a.Orientation(), b.Orientation(), epsilon)
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}
