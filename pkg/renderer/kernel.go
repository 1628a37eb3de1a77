package renderer

import (
	"image"
	"sync/atomic"
	"time"

	"github.com/df07/adaptive-tracer/pkg/core"
)

// sampleKernel drives up to n samples through the external tracer for
// pixel (x, y). It returns early if the global stop flag fires, and
// always leaves the pixel's render/quality state consistent with
// whatever samples it did manage to take.
func (s *State) sampleKernel(x, y, n int) {
	pixel := s.pixels.at(x, y)

	// Clip n so the pixel never exceeds max_samples.
	if pixel.actual.samples+n > s.params.MaxSamples {
		n = s.params.MaxSamples - pixel.actual.samples
	}
	if n <= 0 {
		return
	}

	imageSize := image.Point{X: s.Width, Y: s.Height}

	for i := 0; i < n; i++ {
		if s.stop.Load() {
			if i > 0 {
				s.finishSampleBatch(x, y, pixel)
			}
			return
		}

		filmSample := core.NewVec2(pixel.rng.Float64(), pixel.rng.Float64())
		lensSample := core.NewVec2(pixel.rng.Float64(), pixel.rng.Float64())
		ray := s.camera.SampleRay(image.Point{X: x, Y: y}, imageSize, filmSample, lensSample, s.params.TraceParams.TentFilter)

		start := time.Now()
		radiance, hit := s.sampler.Sample(s.scene, ray, pixel.rng, s.params.TraceParams)
		pixel.timeInSample += time.Since(start)
		atomic.AddInt64(&s.sampleCount, 1)

		if !hit {
			if s.params.TraceParams.EnvHidden || !s.scene.HasEnvironments() {
				radiance = core.Vec3{}
				hit = false
			} else {
				hit = true
			}
		}

		if !radiance.IsFinite() {
			radiance = core.Vec3{}
		}
		if s.params.TraceParams.Clamp > 0 {
			radiance = radiance.ClampMax(s.params.TraceParams.Clamp)
		}

		pixel.actual.radiance = pixel.actual.radiance.Add(radiance)
		if hit {
			pixel.actual.hits++
		}
		pixel.actual.samples++

		if pixel.actual.samples%2 == 1 {
			pixel.odd.radiance = pixel.odd.radiance.Add(radiance)
			if hit {
				pixel.odd.hits++
			}
			pixel.odd.samples++
		}

		if s.checkEnd() {
			s.finishSampleBatch(x, y, pixel)
			return
		}
	}

	s.finishSampleBatch(x, y, pixel)
}

// finishSampleBatch writes the pixel's current means into the render
// buffers and recomputes its quality estimate.
func (s *State) finishSampleBatch(x, y int, pixel *PixelState) {
	full := s.render.at(x, y)
	odd := s.oddRender.at(x, y)

	full.RGB, full.HitRate = pixel.actual.mean()
	odd.RGB, odd.HitRate = pixel.odd.mean()

	if pixel.actual.samples >= s.params.MaxSamples {
		pixel.q = qualityCeiling
	} else {
		pixel.q = estimateQuality(*full, *odd)
	}
}
