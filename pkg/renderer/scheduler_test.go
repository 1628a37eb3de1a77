package renderer

import (
	"image"
	"testing"

	"github.com/df07/adaptive-tracer/pkg/core"
)

func TestSampleSpread_RadiusShrinksWithStepQ(t *testing.T) {
	tests := []struct {
		stepQ      float64
		wantRadius int
	}{
		{0, 8},
		{0.49, 8},
		{0.5, 4},
		{1.99, 4},
		{2.0, 2},
		{3.99, 2},
		{4.0, 1},
		{100, 1},
	}

	for _, tt := range tests {
		spread := sampleSpread(tt.stepQ)
		for _, e := range spread {
			if e.dx < -tt.wantRadius || e.dx > tt.wantRadius || e.dy < -tt.wantRadius || e.dy > tt.wantRadius {
				t.Errorf("stepQ=%v: offset (%d,%d) exceeds radius %d", tt.stepQ, e.dx, e.dy, tt.wantRadius)
			}
		}
		if len(spread) == 0 {
			t.Errorf("stepQ=%v: expected a non-empty spread template", tt.stepQ)
		}
	}
}

func TestSampleSpread_Radius1IncludesEveryOffset(t *testing.T) {
	spread := sampleSpread(100)
	if len(spread) != 8 {
		t.Errorf("radius-1 spread has %d entries, want 8 (every neighbor unconditionally)", len(spread))
	}
}

func TestCheckEnd_StopFlagWins(t *testing.T) {
	state := newTestState(2, 2, &mockScene{hasEnv: true}, &mockSampler{}, func(p *AdaptiveParams) {
		p.DesiredQ = 0 // minQ starts at -1, so only the stop flag can end the render here
	})
	defer state.Close()

	state.stop.Store(true)
	if !state.checkEnd() {
		t.Error("checkEnd() = false, want true once stop flag is set")
	}
}

func TestCheckEnd_DesiredSPPBeatsQuality(t *testing.T) {
	state := newTestState(1, 1, &mockScene{hasEnv: true}, &mockSampler{}, func(p *AdaptiveParams) {
		p.DesiredSPP = 4
		p.DesiredQ = 0 // would already satisfy minQ, but SPP governs since it is set
	})
	defer state.Close()

	state.minQ = 100 // clearly above target
	if state.checkEnd() {
		t.Error("checkEnd() = true before reaching DesiredSPP, want false")
	}

	state.sampleKernel(0, 0, 4)
	if !state.checkEnd() {
		t.Error("checkEnd() = false after reaching DesiredSPP, want true")
	}
}

func TestCheckEnd_QualityGovernsOnlyWithNoBudget(t *testing.T) {
	state := newTestState(1, 1, &mockScene{hasEnv: true}, &mockSampler{}, func(p *AdaptiveParams) {
		p.DesiredQ = 2
		p.DesiredSPP = 0
		p.DesiredSeconds = 0
	})
	defer state.Close()

	state.minQ = 1
	if state.checkEnd() {
		t.Error("checkEnd() = true below DesiredQ, want false")
	}
	state.minQ = 3
	if !state.checkEnd() {
		t.Error("checkEnd() = false at/above DesiredQ with no budget set, want true")
	}
}

func TestPropagateBudgets_RaisesNeighborButNeverLowers(t *testing.T) {
	state := newTestState(3, 3, &mockScene{hasEnv: true}, &mockSampler{}, nil)
	defer state.Close()

	source := state.pixels.at(1, 1)
	neighbor := state.pixels.at(1, 0)
	spread := []spreadEntry{{dx: 0, dy: -1, div: 2}}

	source.actual.samples = 100
	state.propagateBudgets([]image.Point{{X: 1, Y: 1}}, spread)
	if neighbor.sampleBudget != 50 {
		t.Fatalf("sampleBudget = %d, want 50 (source samples 100 / div 2)", neighbor.sampleBudget)
	}

	source.actual.samples = 10
	state.propagateBudgets([]image.Point{{X: 1, Y: 1}}, spread)
	if neighbor.sampleBudget != 50 {
		t.Fatalf("sampleBudget = %d after a smaller second pass, want unchanged 50 (max-wins)", neighbor.sampleBudget)
	}
}

func TestTraceImage_UniformFloorGivesEveryPixelMinSamples(t *testing.T) {
	sampler := &mockSampler{radiance: core.NewVec3(0.5, 0.5, 0.5), hit: true}
	state := newTestState(4, 4, &mockScene{hasEnv: true}, sampler, func(p *AdaptiveParams) {
		p.MinSamples = 8
		p.SampleStep = 4
		p.DesiredSPP = 8 // stop right after the uniform floor for a fast, deterministic test
	})
	defer state.Close()

	img := TraceImage(state, nil, nil)
	if img == nil {
		t.Fatal("TraceImage returned nil image")
	}

	for y := 0; y < state.Height; y++ {
		for x := 0; x < state.Width; x++ {
			if got := state.Pixel(x, y).Samples(); got < state.params.MinSamples {
				t.Errorf("pixel (%d,%d) has %d samples, want at least MinSamples", x, y, got)
			}
		}
	}
}

func TestTraceStartAndStop_Cancellation(t *testing.T) {
	sampler := &mockSampler{radiance: core.NewVec3(0.2, 0.2, 0.2), hit: true}
	state := newTestState(32, 32, &mockScene{hasEnv: true}, sampler, func(p *AdaptiveParams) {
		p.MinSamples = 4096
		p.MaxSamples = 1 << 20
		p.SampleStep = 8
	})
	defer state.Close()

	TraceStart(state, nil, nil)
	TraceStop(state)

	if !state.Stopped() {
		t.Error("Stopped() = false after TraceStop, want true")
	}
}

func TestTraceStop_NilStateIsNoop(t *testing.T) {
	TraceStop(nil)
}
