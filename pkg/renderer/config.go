package renderer

import "github.com/df07/adaptive-tracer/pkg/tracer"

// AdaptiveParams configures the adaptive scheduler. Sensible defaults
// live in DefaultAdaptiveParams, and callers override only what they
// need.
type AdaptiveParams struct {
	// Resolution is the length, in pixels, of the longer film axis; the
	// shorter axis is derived from the camera's aspect ratio.
	Resolution int

	DesiredQ       float64 // target minimum per-pixel quality (commonly 3-6)
	DesiredSPP     int     // hard sample-per-pixel ceiling; exclusive with DesiredSeconds
	DesiredSeconds float64 // hard wall-clock ceiling

	MinSamples int // floor for the uniform phase
	MaxSamples int // absolute per-pixel sample cap; pins q=10 once reached

	SampleStep int     // kernel batch size
	StepQ      float64 // outer-loop quality increment
	BatchStep  float64 // quality delta between host batch callbacks

	TraceParams tracer.TraceParams // passed through to the external tracer untouched
}

// DefaultAdaptiveParams returns reasonable defaults: a 32-sample floor,
// batches of 8, and a 0.25 quality step.
func DefaultAdaptiveParams() AdaptiveParams {
	return AdaptiveParams{
		Resolution:     720,
		DesiredQ:       5,
		MinSamples:     32,
		MaxSamples:     4096,
		SampleStep:     8,
		StepQ:          0.25,
		BatchStep:      0.5,
		TraceParams: tracer.TraceParams{
			Clamp:      10,
			TentFilter: true,
		},
	}
}

// imageSize computes the (width, height) pair for a given aspect ratio,
// keeping the longer axis pinned to Resolution.
func (p AdaptiveParams) imageSize(aspectRatio float64) (width, height int) {
	if aspectRatio >= 1 {
		width = p.Resolution
		height = roundInt(float64(p.Resolution) / aspectRatio)
	} else {
		height = p.Resolution
		width = roundInt(float64(p.Resolution) * aspectRatio)
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

func roundInt(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}
