// Package icp implements a scan-only point-to-point ICP registration pipeline.
package icp

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/odometry/logging"
	"go.viam.com/odometry/pointcloud"
	"go.viam.com/odometry/registration"
	"go.viam.com/odometry/sensordata"
	"go.viam.com/odometry/spatialmath"
)

// minVariance bounds the reported covariance away from zero on a perfect fit.
const minVariance = 1e-4

// Pipeline aligns the scan of a frame onto the scan of a reference frame. The returned
// transform maps points of the current frame into the reference frame.
type Pipeline struct {
	conf   Config
	logger logging.Logger
}

// NewPipeline returns an ICP pipeline with the given configuration.
func NewPipeline(conf Config, logger logging.Logger) (*Pipeline, error) {
	if err := conf.Validate("icp"); err != nil {
		return nil, err
	}
	return &Pipeline{conf: conf, logger: logger}, nil
}

// RequiresImage is always false.
func (p *Pipeline) RequiresImage() bool {
	return false
}

// RequiresScan is always true.
func (p *Pipeline) RequiresScan() bool {
	return true
}

// MinVisualCorrespondences is always zero.
func (p *Pipeline) MinVisualCorrespondences() int {
	return 0
}

// MinGeometryRatio is the configured minimum correspondence ratio.
func (p *Pipeline) MinGeometryRatio() float64 {
	return p.conf.MinCorrespondenceRatio
}

// Parameters returns the configured defaults.
func (p *Pipeline) Parameters() registration.Parameters {
	return registration.Parameters{
		MaxCorrespondenceDistance: p.conf.MaxCorrespondenceDistance,
		OutlierRatio:              p.conf.OutlierRatio,
		CorrespondenceType:        registration.Features,
	}
}

type correspondence struct {
	source r3.Vector
	target r3.Vector
	dist   float64
}

// Register runs ICP from guess, or from identity when guess is nil.
func (p *Pipeline) Register(
	reference, current *sensordata.Frame, guess spatialmath.Pose, params registration.Params,
) registration.Result {
	if current == nil || current.Data.Scan.IsEmpty() {
		return registration.Failure("current scan is empty", registration.Info{})
	}
	if reference == nil || reference.Data.Scan.IsEmpty() {
		return registration.Failure("reference scan is empty", registration.Info{})
	}
	eff := params.Apply(p.Parameters())

	refPts := reference.Data.Scan.InBaseFrame()
	curPts := current.Data.Scan.InBaseFrame()
	tree := pointcloud.NewKDTree(refPts)

	transform := guess
	if transform == nil {
		transform = spatialmath.NewZeroPose()
	}

	for i := 0; i < p.conf.MaxIterations; i++ {
		pairs := matchPoints(tree, curPts, transform, eff.MaxCorrespondenceDistance)
		pairs = trim(pairs, eff.OutlierRatio)
		if len(pairs) < 3 {
			return registration.Failure(
				fmt.Sprintf("not enough correspondences (%d) after %d iterations", len(pairs), i),
				registration.Info{ICPCorrespondences: len(pairs)},
			)
		}
		delta, err := align(pairs)
		if err != nil {
			return registration.Failure(err.Error(), registration.Info{ICPCorrespondences: len(pairs)})
		}
		transform = spatialmath.Compose(delta, transform)
		if converged(delta, p.conf.Epsilon) {
			p.logger.Debugf("icp converged after %d iterations", i+1)
			break
		}
	}

	pairs := matchPoints(tree, curPts, transform, eff.MaxCorrespondenceDistance)
	var sqSum float64
	for _, c := range pairs {
		sqSum += c.dist * c.dist
	}
	maxPoints := max(len(refPts), len(curPts),
		reference.Data.Scan.MaxPoints(), current.Data.Scan.MaxPoints())
	ratio := float64(len(pairs)) / float64(maxPoints)

	info := registration.Info{
		Inliers:            len(pairs),
		ICPCorrespondences: len(pairs),
		ICPInliersRatio:    ratio,
	}
	if len(pairs) > 0 {
		info.ICPRMS = math.Sqrt(sqSum / float64(len(pairs)))
	}
	if ratio < p.conf.MinCorrespondenceRatio {
		return registration.Failure(fmt.Sprintf(
			"cannot compute transform (cor=%d corrRatio=%f/%f maxPoints=%d)",
			len(pairs), ratio, p.conf.MinCorrespondenceRatio, maxPoints), info)
	}
	info.Covariance = registration.NewDiagonalCovariance(math.Max(info.ICPRMS*info.ICPRMS, minVariance))
	return registration.Success(transform, info)
}

func matchPoints(tree *pointcloud.KDTree, points []r3.Vector, transform spatialmath.Pose, maxDist float64) []correspondence {
	pairs := make([]correspondence, 0, len(points))
	for _, pt := range points {
		src := spatialmath.TransformPoint(transform, pt)
		nn, dist, ok := tree.NearestNeighbor(src)
		if !ok || dist > maxDist {
			continue
		}
		pairs = append(pairs, correspondence{source: src, target: nn, dist: dist})
	}
	return pairs
}

// trim keeps the closest ratio of the correspondences.
func trim(pairs []correspondence, ratio float64) []correspondence {
	if ratio >= 1 || len(pairs) == 0 {
		return pairs
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].dist < pairs[j].dist })
	keep := int(math.Ceil(ratio * float64(len(pairs))))
	return pairs[:keep]
}

// align returns the rigid transform taking the sources onto the targets in the least squares
// sense.
func align(pairs []correspondence) (spatialmath.Pose, error) {
	var srcCentroid, dstCentroid r3.Vector
	for _, c := range pairs {
		srcCentroid = srcCentroid.Add(c.source)
		dstCentroid = dstCentroid.Add(c.target)
	}
	n := float64(len(pairs))
	srcCentroid = srcCentroid.Mul(1 / n)
	dstCentroid = dstCentroid.Mul(1 / n)

	h := mat.NewDense(3, 3, nil)
	for _, c := range pairs {
		s := c.source.Sub(srcCentroid)
		d := c.target.Sub(dstCentroid)
		sv := [3]float64{s.X, s.Y, s.Z}
		dv := [3]float64{d.X, d.Y, d.Z}
		for r := 0; r < 3; r++ {
			for col := 0; col < 3; col++ {
				h.Set(r, col, h.At(r, col)+sv[r]*dv[col])
			}
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		return nil, errors.New("svd factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var rot mat.Dense
	rot.Mul(&v, u.T())
	if mat.Det(&rot) < 0 {
		for r := 0; r < 3; r++ {
			v.Set(r, 2, -v.At(r, 2))
		}
		rot.Mul(&v, u.T())
	}

	rm, err := spatialmath.NewRotationMatrixFromDense(&rot)
	if err != nil {
		return nil, err
	}
	translation := dstCentroid.Sub(rm.Mul(srcCentroid))
	return spatialmath.NewPose(translation, rm), nil
}

func converged(delta spatialmath.Pose, epsilon float64) bool {
	return delta.Point().Norm() <= epsilon &&
		spatialmath.OrientationAlmostEqualEps(delta.Orientation(), spatialmath.NewZeroOrientation(), epsilon)
}
