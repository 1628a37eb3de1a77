package renderer

import (
	"math/rand"
	"time"

	"github.com/df07/adaptive-tracer/pkg/core"
)

// accumulator sums radiance across a run of samples. actual accumulates
// every sample; odd accumulates only the odd-numbered ones (1st, 3rd,
// 5th, ...), giving the quality estimator a zero-overhead half-sample
// twin to compare against.
type accumulator struct {
	radiance core.Vec3
	hits     int
	samples  int
}

func (a *accumulator) mean() (rgb core.Vec3, hitRate float64) {
	if a.hits == 0 {
		rgb = core.Vec3{}
	} else {
		rgb = a.radiance.Multiply(1.0 / float64(a.hits))
	}
	if a.samples == 0 {
		return rgb, 0
	}
	return rgb, float64(a.hits) / float64(a.samples)
}

// PixelState is the per-pixel accumulator, RNG, and scheduling state.
type PixelState struct {
	rng *rand.Rand

	actual accumulator
	odd    accumulator

	q            float64
	sampleBudget int
	timeInSample time.Duration
}

// Q returns the pixel's current quality estimate.
func (p *PixelState) Q() float64 { return p.q }

// Samples returns the number of samples this pixel has accumulated.
func (p *PixelState) Samples() int { return p.actual.samples }

// SampleBudget returns the samples queued for this pixel by the
// neighborhood pass, pending execution.
func (p *PixelState) SampleBudget() int { return p.sampleBudget }

// TimeInSample returns the accumulated wall-time spent tracing this pixel.
func (p *PixelState) TimeInSample() time.Duration { return p.timeInSample }

// RenderPixel is one cell of the image buffers: mean radiance plus the
// fraction of samples that counted as hits (geometry, or a visible
// environment for rays that missed).
type RenderPixel struct {
	RGB     core.Vec3
	HitRate float64
}

// pixelGrid is a fixed W x H array of T, addressed [y][x].
type pixelGrid[T any] struct {
	width, height int
	cells         [][]T
}

func newPixelGrid[T any](width, height int) pixelGrid[T] {
	cells := make([][]T, height)
	for y := range cells {
		cells[y] = make([]T, width)
	}
	return pixelGrid[T]{width: width, height: height, cells: cells}
}

func (g *pixelGrid[T]) at(x, y int) *T {
	return &g.cells[y][x]
}

func (g *pixelGrid[T]) inBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}
