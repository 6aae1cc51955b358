// Package registration defines the two-frame registration capability the odometry estimator
// is built on, and the per-call parameters and result it exchanges with it.
package registration

import (
	"gonum.org/v1/gonum/mat"

	"go.viam.com/odometry/sensordata"
	"go.viam.com/odometry/spatialmath"
)

// CorrespondenceType selects how visual correspondences are found.
type CorrespondenceType int

const (
	// Features matches descriptors between the two frames.
	Features CorrespondenceType = iota
	// Flow tracks keypoints of the reference frame with optical flow.
	Flow
)

func (ct CorrespondenceType) String() string {
	switch ct {
	case Features:
		return "features"
	case Flow:
		return "flow"
	default:
		return "unknown"
	}
}

// Parameters are the defaults a pipeline registers with.
type Parameters struct {
	MaxCorrespondenceDistance float64
	OutlierRatio              float64
	CorrespondenceType        CorrespondenceType
}

// Params overrides a pipeline's defaults for a single Register call. Zero fields leave the
// default in place.
type Params struct {
	MaxCorrespondenceDistance float64
	OutlierRatio              float64
	CorrespondenceType        *CorrespondenceType
}

// Apply returns the defaults with the overrides of p applied.
func (p Params) Apply(defaults Parameters) Parameters {
	out := defaults
	if p.MaxCorrespondenceDistance > 0 {
		out.MaxCorrespondenceDistance = p.MaxCorrespondenceDistance
	}
	if p.OutlierRatio > 0 {
		out.OutlierRatio = p.OutlierRatio
	}
	if p.CorrespondenceType != nil {
		out.CorrespondenceType = *p.CorrespondenceType
	}
	return out
}

// IsZero returns whether p overrides nothing.
func (p Params) IsZero() bool {
	return p.MaxCorrespondenceDistance == 0 && p.OutlierRatio == 0 && p.CorrespondenceType == nil
}

// Pipeline registers a frame against a reference frame.
//
// Register annotates both frames with the words it matched and current with the features it
// extracted, so callers pass a copy of any frame they keep. A nil reference or a reference with
// no data asks the pipeline only to extract the features of current.
type Pipeline interface {
	RequiresImage() bool
	RequiresScan() bool
	MinVisualCorrespondences() int
	MinGeometryRatio() float64
	Parameters() Parameters
	Register(reference, current *sensordata.Frame, guess spatialmath.Pose, params Params) Result
}

// Info describes a registration attempt.
type Info struct {
	// Covariance is the 6x6 uncertainty of the transform, translation first.
	Covariance *mat.SymDense

	Inliers    int
	InliersIDs []int
	Matches    int
	MatchesIDs []int

	ICPInliersRatio    float64
	ICPRMS             float64
	ICPCorrespondences int

	RejectedMsg string
}

// CopyWithoutData returns the summary of info with the id lists dropped.
func (info Info) CopyWithoutData() Info {
	out := info
	out.InliersIDs = nil
	out.MatchesIDs = nil
	if info.Covariance != nil {
		out.Covariance = mat.NewSymDense(info.Covariance.SymmetricDim(), nil)
		out.Covariance.CopySym(info.Covariance)
	}
	return out
}

// DefaultVariance is the diagonal of the covariance reported for a transform nothing is known about.
const DefaultVariance = 9999.0

// NewDiagonalCovariance returns a 6x6 covariance with v on its diagonal.
func NewDiagonalCovariance(v float64) *mat.SymDense {
	cov := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		cov.SetSym(i, i, v)
	}
	return cov
}

// Result is the outcome of a Register call. A successful result carries a transform; a failed
// one carries the reason in Info.RejectedMsg.
type Result struct {
	Transform spatialmath.Pose
	Info      Info
}

// Success returns a successful result.
func Success(transform spatialmath.Pose, info Info) Result {
	return Result{Transform: transform, Info: info}
}

// Failure returns a failed result with the given reason.
func Failure(reason string, info Info) Result {
	info.RejectedMsg = reason
	return Result{Info: info}
}

// OK returns whether registration found a transform.
func (r Result) OK() bool {
	return r.Transform != nil
}
