package renderer

import (
	"image"
	"math"
	"time"
)

// ProgressCallback is invoked between scheduling phases so a host can
// report render progress. current/max are in units of samples-per-pixel.
type ProgressCallback func(state *State, phase string, current, max int)

// BatchCallback is invoked whenever the scheduler promotes curr_q past
// the next batch_step boundary, letting a host pull an intermediate
// image without polling on every outer iteration.
type BatchCallback func(state *State, currQ, desiredQ float64)

// spreadEntry is one offset in the neighborhood propagation template
// used to spread sample budget out from a converged pixel.
type spreadEntry struct {
	dx, dy int
	div    float64
}

// sampleSpread builds the neighborhood template for a given step_q. The
// radius shrinks as step_q rises (wide smoothing early, tight
// nearest-neighbor propagation once the image is mostly converged).
//
// The radius-1 case appends every offset unconditionally, while larger
// radii apply a euclidean distance cutoff against the disk. This
// asymmetry is intentional and preserved as-is rather than unified into
// one rule.
func sampleSpread(stepQ float64) []spreadEntry {
	var radius int
	switch {
	case stepQ <= 0.49:
		radius = 8
	case stepQ <= 1.99:
		radius = 4
	case stepQ <= 3.99:
		radius = 2
	default:
		radius = 1
	}

	var spread []spreadEntry
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if radius == 1 {
				spread = append(spread, spreadEntry{dx: dx, dy: dy, div: 2})
				continue
			}
			dist := math.Sqrt(float64(dx*dx + dy*dy))
			if dist <= float64(radius) {
				spread = append(spread, spreadEntry{dx: dx, dy: dy, div: 2})
			}
		}
	}
	return spread
}

// checkEnd is the render's stop predicate. Only the first matching rule
// fires: the atomic stop flag, then a budget cap (samples or seconds,
// mutually favored over quality), and only once neither budget is set
// does the running minimum quality govern.
func (s *State) checkEnd() bool {
	if s.stop.Load() {
		return true
	}

	if s.params.DesiredSPP > 0 {
		imgSize := s.Width * s.Height
		imageSPP := int(s.SampleCount()) / imgSize
		if imageSPP >= s.params.DesiredSPP {
			return true
		}
	}

	if s.params.DesiredSeconds > 0 {
		elapsed := time.Since(s.startTime).Seconds()
		if elapsed >= s.params.DesiredSeconds {
			return true
		}
	}

	if s.params.DesiredSPP == 0 && s.params.DesiredSeconds == 0 && s.minQ >= s.params.DesiredQ {
		return true
	}

	return false
}

// traceUntilQuality repeatedly calls the sample kernel in batches of
// SampleStep until the pixel reaches q or limitTrace extra samples have
// been spent on it, whichever comes first. The limit keeps one
// intractable pixel from dominating a scheduling round.
func (s *State) traceUntilQuality(x, y int, q float64, limitTrace int) {
	pixel := s.pixels.at(x, y)
	step := s.params.SampleStep

	s.sampleKernel(x, y, step)
	if s.checkEnd() {
		return
	}

	samplesShot := step
	for pixel.q < q && samplesShot < limitTrace {
		s.sampleKernel(x, y, step)
		if s.checkEnd() {
			return
		}
		samplesShot += step
	}
}

// propagateBudgets grants every neighbor of a below-step pixel up to
// half its sample count, per the spread template. Assignment is
// deliberately sequential (not dispatched to workers): the
// overwrite-if-larger rule is order-dependent, and a parallel version
// making the same guarantee would need its own per-pixel
// synchronization. Doing it on one goroutine keeps the max-wins
// semantics exact without extra locking.
func (s *State) propagateBudgets(ijByQ []image.Point, spread []spreadEntry) {
	for _, ijSampled := range ijByQ {
		pixel := s.pixels.at(ijSampled.X, ijSampled.Y)
		for _, entry := range spread {
			k, l := ijSampled.X+entry.dx, ijSampled.Y+entry.dy
			if !s.pixels.inBounds(k, l) {
				continue
			}
			neighbor := s.pixels.at(k, l)
			n := float64(pixel.actual.samples) / entry.div
			if float64(neighbor.actual.samples+neighbor.sampleBudget) < n {
				neighbor.sampleBudget = int(n) - neighbor.actual.samples
			}
		}
	}
}

// traceByBudget spends a pixel's entire queued sample budget in one
// kernel call and clears it.
func (s *State) traceByBudget(x, y int) {
	pixel := s.pixels.at(x, y)
	budget := pixel.sampleBudget
	s.sampleKernel(x, y, budget)
	pixel.sampleBudget = 0
}

// allImagePoints returns every pixel coordinate in the image, used for
// the uniform floor pass.
func (s *State) allImagePoints() []image.Point {
	points := make([]image.Point, 0, s.Width*s.Height)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			points = append(points, image.Point{X: x, Y: y})
		}
	}
	return points
}

// TraceImage runs the adaptive scheduler to completion, synchronously,
// and returns the current render buffer. It never returns an error:
// cancellation and budget exhaustion are both ordinary termination, not
// failure.
func TraceImage(state *State, progressCb ProgressCallback, batchCb BatchCallback) *image.RGBA {
	all := state.allImagePoints()
	stepQ := 0.0
	state.currQ = -2.0

	state.logger.Printf("adaptive render started: %dx%d, min %d samples, target q=%.2f\n",
		state.Width, state.Height, state.params.MinSamples, state.params.DesiredQ)

	spread := sampleSpread(stepQ)

	if progressCb != nil {
		progressCb(state, "initial samples", int(state.SampleCount())/max1(state.Width*state.Height), state.params.MaxSamples)
	}
	state.currQ = -1.0

	// Phase A: uniform floor. Every pixel gets at least MinSamples before
	// the quality estimator is trusted.
	for sampled := 0; sampled < state.params.MinSamples; sampled += state.params.SampleStep {
		if state.checkEnd() {
			break
		}
		state.dispatcher.Run(all, func(p image.Point) {
			state.sampleKernel(p.X, p.Y, state.params.SampleStep)
		}, state.checkEnd)
	}

	minSampleInAPixel := state.params.MinSamples
	oldMinSample := 0

	if batchCb != nil {
		batchCb(state, state.currQ, state.params.DesiredQ)
	}
	nextBatch := state.currQ + state.params.BatchStep

	// Phase B: adaptive loop.
	for !state.checkEnd() {
		ijByQ := make([]image.Point, 0)
		for y := 0; y < state.Height; y++ {
			for x := 0; x < state.Width; x++ {
				pixel := state.pixels.at(x, y)
				pixel.sampleBudget = 0
				if pixel.q < stepQ {
					ijByQ = append(ijByQ, image.Point{X: x, Y: y})
				}
			}
		}

		limitTrace := minSampleInAPixel - oldMinSample

		if progressCb != nil {
			progressCb(state, "samples by quality", int(state.SampleCount())/max1(state.Width*state.Height), state.params.MaxSamples)
		}
		state.dispatcher.Run(ijByQ, func(p image.Point) {
			state.traceUntilQuality(p.X, p.Y, stepQ, limitTrace)
		}, state.checkEnd)

		state.propagateBudgets(ijByQ, spread)

		ijByProximity := make([]image.Point, 0)
		for y := 0; y < state.Height; y++ {
			for x := 0; x < state.Width; x++ {
				if state.pixels.at(x, y).sampleBudget > 0 {
					ijByProximity = append(ijByProximity, image.Point{X: x, Y: y})
				}
			}
		}

		if progressCb != nil {
			progressCb(state, "samples by proximity", int(state.SampleCount())/max1(state.Width*state.Height), state.params.MaxSamples)
		}
		state.dispatcher.Run(ijByProximity, func(p image.Point) {
			state.traceByBudget(p.X, p.Y)
		}, state.checkEnd)

		oldMinSample = minSampleInAPixel
		tmpMinQ := math.MaxFloat64
		minSampleInAPixel = math.MaxInt32
		for y := 0; y < state.Height; y++ {
			for x := 0; x < state.Width; x++ {
				pixel := state.pixels.at(x, y)
				tmpMinQ = math.Min(tmpMinQ, pixel.q)
				if pixel.actual.samples < minSampleInAPixel {
					minSampleInAPixel = pixel.actual.samples
				}
			}
		}

		state.minQ = tmpMinQ
		if state.minQ >= stepQ {
			state.currQ = stepQ
			state.logger.Printf("quality step %.2f reached, min q=%.2f\n", state.currQ, state.minQ)

			if state.currQ >= nextBatch {
				if batchCb != nil {
					batchCb(state, state.currQ, state.params.DesiredQ)
				}
				nextBatch = state.currQ + state.params.BatchStep
			}
			stepQ += state.params.StepQ
			spread = sampleSpread(stepQ)

			// Clamp the running step to the target once no hard
			// sample/time budget is set, so it never overshoots desired_q.
			if state.params.DesiredSeconds == 0 && state.params.DesiredSPP == 0 && stepQ > state.params.DesiredQ {
				stepQ = state.params.DesiredQ
			}
		}
	}

	if !state.stop.Load() && progressCb != nil {
		progressCb(state, "samples by proximity", state.params.MaxSamples, state.params.MaxSamples)
	}
	if !state.stop.Load() && batchCb != nil {
		batchCb(state, state.params.DesiredQ, state.params.DesiredQ)
	}

	state.logger.Printf("adaptive render finished: %s\n", CollectStatistics(state).String())

	return state.Render()
}

// TraceStart runs the scheduler asynchronously, returning immediately.
func TraceStart(state *State, progressCb ProgressCallback, batchCb BatchCallback) {
	state.stop.Store(false)
	state.running.Store(true)
	state.workerWG.Add(1)
	go func() {
		defer state.workerWG.Done()
		defer state.running.Store(false)
		TraceImage(state, progressCb, batchCb)
	}()
}

// TraceStop cooperatively cancels a background render and joins it. It
// is idempotent: calling it after the worker has already finished, or
// calling it twice, is a no-op.
func TraceStop(state *State) {
	if state == nil {
		return
	}
	state.stop.Store(true)
	state.workerWG.Wait()
}

// RenderUniform is the non-adaptive fallback: it runs only the uniform
// floor (Phase A) to a fixed sample count, with no quality tracking,
// for callers that pass no quality target.
func RenderUniform(state *State, spp int, progressCb ProgressCallback) *image.RGBA {
	state.logger.Printf("uniform render started: %dx%d, %d spp\n", state.Width, state.Height, spp)
	all := state.allImagePoints()
	for sampled := 0; sampled < spp; sampled += state.params.SampleStep {
		if state.stop.Load() {
			break
		}
		step := min(state.params.SampleStep, spp-sampled)
		state.dispatcher.Run(all, func(p image.Point) {
			state.sampleKernel(p.X, p.Y, step)
		}, func() bool { return state.stop.Load() })
		if progressCb != nil {
			progressCb(state, "uniform", sampled+step, spp)
		}
	}
	return state.Render()
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
