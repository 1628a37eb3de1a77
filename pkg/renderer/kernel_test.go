package renderer

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/df07/adaptive-tracer/pkg/core"
	"github.com/df07/adaptive-tracer/pkg/tracer"
)

// mockScene is a minimal tracer.Scene for kernel/scheduler tests.
type mockScene struct {
	hasEnv bool
}

func (m *mockScene) HasEnvironments() bool { return m.hasEnv }

// mockCamera returns a fixed ray regardless of pixel or jitter.
type mockCamera struct{}

func (mockCamera) SampleRay(px image.Point, imageSize image.Point, filmSample, lensSample core.Vec2, tent bool) core.Ray {
	return core.NewRay(core.Vec3{}, core.NewVec3(0, 0, -1))
}

// mockSampler returns a fixed radiance and hit result on every call;
// sanitization tests set that fixed radiance to a non-finite value.
type mockSampler struct {
	radiance  core.Vec3
	hit       bool
	callCount int
}

func (m *mockSampler) Sample(scene tracer.Scene, ray core.Ray, rng *rand.Rand, params tracer.TraceParams) (core.Vec3, bool) {
	m.callCount++
	return m.radiance, m.hit
}

func newTestState(width, height int, scene tracer.Scene, sampler tracer.Sampler, configure func(*AdaptiveParams)) *State {
	params := DefaultAdaptiveParams()
	params.Resolution = width
	if configure != nil {
		configure(&params)
	}
	state := InitState(scene, mockCamera{}, float64(width)/float64(height), sampler, params, NewDefaultLogger())
	return state
}

func TestSampleKernel_AccumulatesRadianceAndHits(t *testing.T) {
	sampler := &mockSampler{radiance: core.NewVec3(1, 1, 1), hit: true}
	state := newTestState(4, 4, &mockScene{hasEnv: true}, sampler, nil)
	defer state.Close()

	state.sampleKernel(0, 0, 8)

	pixel := state.Pixel(0, 0)
	if pixel.Samples() != 8 {
		t.Errorf("Samples() = %d, want 8", pixel.Samples())
	}
	if pixel.actual.hits != 8 {
		t.Errorf("hits = %d, want 8", pixel.actual.hits)
	}
	rgb, _ := pixel.actual.mean()
	if !rgb.Equal(core.NewVec3(1, 1, 1)) {
		t.Errorf("mean radiance = %v, want (1,1,1)", rgb)
	}
}

func TestSampleKernel_ClipsToMaxSamples(t *testing.T) {
	sampler := &mockSampler{radiance: core.NewVec3(1, 1, 1), hit: true}
	state := newTestState(4, 4, &mockScene{hasEnv: true}, sampler, func(p *AdaptiveParams) {
		p.MaxSamples = 5
	})
	defer state.Close()

	state.sampleKernel(0, 0, 20)

	if got := state.Pixel(0, 0).Samples(); got != 5 {
		t.Errorf("Samples() = %d, want clipped to MaxSamples 5", got)
	}
}

func TestSampleKernel_SanitizesNonFiniteRadiance(t *testing.T) {
	nan := core.NewVec3(math.NaN(), 0, 0)
	sampler := &mockSampler{radiance: nan, hit: true}
	state := newTestState(2, 2, &mockScene{hasEnv: true}, sampler, nil)
	defer state.Close()

	state.sampleKernel(0, 0, 4)

	rgb, _ := state.Pixel(0, 0).actual.mean()
	if !rgb.Equal(core.Vec3{}) {
		t.Errorf("mean radiance = %v after NaN sanitization, want zero", rgb)
	}
}

func TestSampleKernel_ClampRescalesFireflyRadiance(t *testing.T) {
	sampler := &mockSampler{radiance: core.NewVec3(10, 0, 0), hit: true}
	state := newTestState(2, 2, &mockScene{hasEnv: true}, sampler, func(p *AdaptiveParams) {
		p.TraceParams.Clamp = 2.0
	})
	defer state.Close()

	state.sampleKernel(0, 0, 4)

	rgb, _ := state.Pixel(0, 0).actual.mean()
	want := core.NewVec3(2, 0, 0)
	if !rgb.Equal(want) {
		t.Errorf("mean radiance = %v, want %v after clamping every sample to max component %v", rgb, want, 2.0)
	}
}

func TestSampleKernel_MissWithoutEnvironmentZeroesRadiance(t *testing.T) {
	sampler := &mockSampler{radiance: core.NewVec3(5, 5, 5), hit: false}
	state := newTestState(2, 2, &mockScene{hasEnv: false}, sampler, nil)
	defer state.Close()

	state.sampleKernel(0, 0, 1)

	rgb, hitRate := state.Pixel(0, 0).actual.mean()
	if !rgb.Equal(core.Vec3{}) {
		t.Errorf("mean radiance = %v, want zero for a miss without an environment", rgb)
	}
	if hitRate != 0 {
		t.Errorf("hitRate = %v, want 0", hitRate)
	}
}

func TestSampleKernel_MaxSamplesPinsQualityToCeiling(t *testing.T) {
	sampler := &mockSampler{radiance: core.NewVec3(1, 1, 1), hit: true}
	state := newTestState(2, 2, &mockScene{hasEnv: true}, sampler, func(p *AdaptiveParams) {
		p.MaxSamples = 4
	})
	defer state.Close()

	state.sampleKernel(0, 0, 4)

	if q := state.Pixel(0, 0).Q(); q != qualityCeiling {
		t.Errorf("Q() = %v, want %v once max samples reached", q, qualityCeiling)
	}
}
