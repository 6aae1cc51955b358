package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

// represent a 45 degree rotation around the x axis in all the representations
var (
	th    = math.Pi / 4.
	q45x  = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.)}
	aa45x = &R4AA{th, 1., 0., 0.}
	ea45x = &EulerAngles{Roll: th, Pitch: 0, Yaw: 0}
)

func TestZeroOrientation(t *testing.T) {
	zero := NewZeroOrientation()
	test.That(t, zero.AxisAngles(), test.ShouldResemble, NewR4AA())
	test.That(t, zero.Quaternion(), test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, zero.EulerAngles(), test.ShouldResemble, NewEulerAngles())
	test.That(t, IsIdentityOrientation(zero), test.ShouldBeTrue)
	test.That(t, IsIdentityOrientation(aa45x), test.ShouldBeFalse)
}

func TestOrientationRepresentations(t *testing.T) {
	for _, o := range []Orientation{aa45x, ea45x, QuatToRotationMatrix(q45x)} {
		q := o.Quaternion()
		test.That(t, q.Real, test.ShouldAlmostEqual, q45x.Real)
		test.That(t, q.Imag, test.ShouldAlmostEqual, q45x.Imag)
		test.That(t, q.Jmag, test.ShouldAlmostEqual, q45x.Jmag)
		test.That(t, q.Kmag, test.ShouldAlmostEqual, q45x.Kmag)

		ea := o.EulerAngles()
		test.That(t, ea.Roll, test.ShouldAlmostEqual, ea45x.Roll)
		test.That(t, ea.Pitch, test.ShouldAlmostEqual, ea45x.Pitch)
		test.That(t, ea.Yaw, test.ShouldAlmostEqual, ea45x.Yaw)

		aa := o.AxisAngles()
		test.That(t, aa.Theta, test.ShouldAlmostEqual, aa45x.Theta)
		test.That(t, aa.RX, test.ShouldAlmostEqual, aa45x.RX)
	}
	test.That(t, R3ToR4(aa45x.ToR3()).Theta, test.ShouldAlmostEqual, th)
}

func TestComposeInverse(t *testing.T) {
	p1 := NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, &EulerAngles{Roll: 0.1, Pitch: -0.4, Yaw: 1.2})
	p2 := NewPose(r3.Vector{X: -4, Y: 0.5, Z: 2}, &R4AA{Theta: 2.1, RX: 0.3, RY: 0.3, RZ: 0.9})

	test.That(t, PoseAlmostEqual(Compose(p1, PoseInverse(p1)), NewZeroPose()), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(Compose(PoseInverse(p1), p1), NewZeroPose()), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(Compose(p1, PoseBetween(p1, p2)), p2), test.ShouldBeTrue)

	// composition applies the right hand side first
	pt := r3.Vector{X: 1, Y: 1, Z: 1}
	viaCompose := TransformPoint(Compose(p1, p2), pt)
	viaSteps := TransformPoint(p1, TransformPoint(p2, pt))
	test.That(t, R3VectorAlmostEqual(viaCompose, viaSteps, 1e-9), test.ShouldBeTrue)
}

func TestTranslationOnly(t *testing.T) {
	p := NewPoseFromPoint(r3.Vector{X: 1})
	rot := NewPoseFromOrientation(&EulerAngles{Yaw: math.Pi / 2})
	composed := Compose(rot, p)
	test.That(t, composed.Point().X, test.ShouldAlmostEqual, 0)
	test.That(t, composed.Point().Y, test.ShouldAlmostEqual, 1)
	test.That(t, IsIdentityPose(NewPoseFromMatrix([12]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0})), test.ShouldBeTrue)
}

func TestRotationBetween(t *testing.T) {
	up := r3.Vector{Z: 1}
	for _, from := range []r3.Vector{
		{X: 0.1, Y: 0.2, Z: 9.7},
		{X: 9.8},
		{X: 0.3, Y: -0.2, Z: -9.8},
		{Z: 4},
	} {
		rot := RotationBetween(from, up)
		rotated := RotateVector(rot, from.Normalize())
		test.That(t, R3VectorAlmostEqual(rotated, up, 1e-6), test.ShouldBeTrue)
	}
	test.That(t, IsIdentityOrientation(RotationBetween(r3.Vector{}, up)), test.ShouldBeTrue)
}

func TestRotationMatrix(t *testing.T) {
	_, err := NewRotationMatrix([]float64{1, 2})
	test.That(t, err, test.ShouldNotBeNil)

	rm, err := NewRotationMatrix([]float64{0, -1, 0, 1, 0, 0, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rm.EulerAngles().Yaw, test.ShouldAlmostEqual, math.Pi/2)
	v := rm.Mul(r3.Vector{X: 1})
	test.That(t, R3VectorAlmostEqual(v, r3.Vector{Y: 1}, 1e-9), test.ShouldBeTrue)

	back, err := NewRotationMatrixFromDense(rm.Dense())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, OrientationAlmostEqual(back, rm), test.ShouldBeTrue)
}

func TestPoseString(t *testing.T) {
	test.That(t, PoseString(nil), test.ShouldEqual, "null")
	test.That(t, PoseString(NewPoseFromPoint(r3.Vector{X: 1})), test.ShouldStartWith, "xyz=1.000000,0.000000,0.000000")
}
