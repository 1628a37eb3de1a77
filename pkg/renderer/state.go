package renderer

import (
	"image"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/df07/adaptive-tracer/pkg/core"
	"github.com/df07/adaptive-tracer/pkg/tracer"
)

// bootstrapSeed seeds the single bootstrap generator that per-pixel
// salts are drawn from, so a given seed reproduces the same image.
const bootstrapSeed = 1301081

// State is the adaptive allocator's handle: image buffers, per-pixel
// records, and the bookkeeping needed to run and cancel an adaptive
// render.
type State struct {
	Width, Height int

	pixels    pixelGrid[PixelState]
	render    pixelGrid[RenderPixel]
	oddRender pixelGrid[RenderPixel]

	startTime   time.Time
	sampleCount int64 // atomic, kept equal to the exact sum of actual.samples
	minQ        float64
	currQ       float64
	stop        atomic.Bool

	scene   tracer.Scene
	camera  tracer.Camera
	sampler tracer.Sampler
	params  AdaptiveParams
	logger  core.Logger

	dispatcher *Dispatcher

	workerWG sync.WaitGroup
	running  atomic.Bool
}

// InitState allocates and seeds the render state for a scene/camera
// pair. aspectRatio is the camera's film aspect (width/height); it
// decides how params.Resolution splits into the two image axes.
func InitState(scene tracer.Scene, camera tracer.Camera, aspectRatio float64, sampler tracer.Sampler, params AdaptiveParams, logger core.Logger) *State {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	width, height := params.imageSize(aspectRatio)

	s := &State{
		Width:      width,
		Height:     height,
		pixels:     newPixelGrid[PixelState](width, height),
		render:     newPixelGrid[RenderPixel](width, height),
		oddRender:  newPixelGrid[RenderPixel](width, height),
		startTime:  time.Now(),
		minQ:       -1,
		currQ:      -2,
		scene:      scene,
		camera:     camera,
		sampler:    sampler,
		params:     params,
		logger:     logger,
		dispatcher: NewDispatcher(0),
	}

	boot := rand.New(rand.NewSource(bootstrapSeed))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			salt := boot.Int63n(1<<31)/2 + 1
			pixel := s.pixels.at(x, y)
			*pixel = PixelState{rng: rand.New(rand.NewSource(mixSeed(params.TraceParams.Seed, salt)))}
		}
	}

	return s
}

// mixSeed combines the caller's seed with a per-pixel salt into a single
// 64-bit source seed (splitmix64-style avalanche), since math/rand's
// single-int64 source has no notion of independent streams the way the
// original two-argument RNG constructor does.
func mixSeed(seed, salt int64) int64 {
	z := uint64(seed) + uint64(salt)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z = z ^ (z >> 31)
	return int64(z)
}

// SampleCount returns the total number of samples shot across the image
// so far. Safe to call from any goroutine.
func (s *State) SampleCount() int64 {
	return atomic.LoadInt64(&s.sampleCount)
}

// MinQ returns the lowest per-pixel quality observed at the end of the
// last completed scheduling round; -1 during the uniform floor phase.
func (s *State) MinQ() float64 {
	return s.minQ
}

// CurrQ returns the quality step the scheduler has most recently
// promoted the whole image past.
func (s *State) CurrQ() float64 {
	return s.currQ
}

// Stopped reports whether the cooperative cancellation flag is set.
func (s *State) Stopped() bool {
	return s.stop.Load()
}

// Pixel returns the pixel record at (x, y). Out-of-bounds access is a
// programmer error and panics.
func (s *State) Pixel(x, y int) *PixelState {
	if !s.pixels.inBounds(x, y) {
		panic("renderer: pixel index out of bounds")
	}
	return s.pixels.at(x, y)
}

// Render returns the current mean-radiance image. The returned image is
// always valid, even mid-render or after cancellation: the core
// surfaces no error codes from a render, it always returns the current
// buffer.
func (s *State) Render() *image.RGBA {
	return renderPixelsToImage(&s.render)
}

// Close releases the worker pool backing this state. Call it once the
// state is no longer needed (after TraceStop returns).
func (s *State) Close() {
	s.dispatcher.Close()
}
