// Package inject provides test doubles whose behavior is injected per test.
package inject

import (
	"sync"

	"go.viam.com/odometry/registration"
	"go.viam.com/odometry/sensordata"
	"go.viam.com/odometry/spatialmath"
)

// RegisterCall is one recorded call to Pipeline.Register.
type RegisterCall struct {
	Reference *sensordata.Frame
	Current   *sensordata.Frame
	Guess     spatialmath.Pose
	Params    registration.Params
	// Effective are the parameters the call ran with once Params was applied to the defaults.
	Effective registration.Parameters
}

// Pipeline is an injected registration pipeline.
type Pipeline struct {
	registration.Pipeline
	RequiresImageFunc            func() bool
	RequiresScanFunc             func() bool
	MinVisualCorrespondencesFunc func() int
	MinGeometryRatioFunc         func() float64
	ParametersFunc               func() registration.Parameters
	RegisterFunc                 func(
		reference, current *sensordata.Frame, guess spatialmath.Pose, params registration.Params,
	) registration.Result

	mu    sync.Mutex
	calls []RegisterCall
}

// RequiresImage calls the injected RequiresImage or the real version.
func (p *Pipeline) RequiresImage() bool {
	if p.RequiresImageFunc == nil {
		return p.Pipeline.RequiresImage()
	}
	return p.RequiresImageFunc()
}

// RequiresScan calls the injected RequiresScan or the real version.
func (p *Pipeline) RequiresScan() bool {
	if p.RequiresScanFunc == nil {
		return p.Pipeline.RequiresScan()
	}
	return p.RequiresScanFunc()
}

// MinVisualCorrespondences calls the injected MinVisualCorrespondences or the real version.
func (p *Pipeline) MinVisualCorrespondences() int {
	if p.MinVisualCorrespondencesFunc == nil {
		return p.Pipeline.MinVisualCorrespondences()
	}
	return p.MinVisualCorrespondencesFunc()
}

// MinGeometryRatio calls the injected MinGeometryRatio or the real version.
func (p *Pipeline) MinGeometryRatio() float64 {
	if p.MinGeometryRatioFunc == nil {
		return p.Pipeline.MinGeometryRatio()
	}
	return p.MinGeometryRatioFunc()
}

// Parameters calls the injected Parameters or the real version.
func (p *Pipeline) Parameters() registration.Parameters {
	if p.ParametersFunc == nil {
		return p.Pipeline.Parameters()
	}
	return p.ParametersFunc()
}

// Register records the call and then calls the injected Register or the real version.
func (p *Pipeline) Register(
	reference, current *sensordata.Frame, guess spatialmath.Pose, params registration.Params,
) registration.Result {
	p.mu.Lock()
	p.calls = append(p.calls, RegisterCall{
		Reference: reference,
		Current:   current,
		Guess:     guess,
		Params:    params,
		Effective: params.Apply(p.Parameters()),
	})
	p.mu.Unlock()

	if p.RegisterFunc == nil {
		return p.Pipeline.Register(reference, current, guess, params)
	}
	return p.RegisterFunc(reference, current, guess, params)
}

// RegisterCalls returns the calls made to Register so far.
func (p *Pipeline) RegisterCalls() []RegisterCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RegisterCall(nil), p.calls...)
}

// ResetCalls forgets the recorded calls.
func (p *Pipeline) ResetCalls() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}
