// Package tracer defines the boundary between the adaptive sample
// allocator and the underlying path tracer it drives. Everything in this
// package is an external collaborator: scene loading, camera models, BVH
// construction and material evaluation all live on the other side of
// these interfaces and are never implemented here.
package tracer

import (
	"image"
	"math/rand"

	"github.com/df07/adaptive-tracer/pkg/core"
)

// SamplerKind selects which underlying sampling algorithm a Sampler
// should run. The allocator never inspects this value; it is passed
// through to the tracer untouched.
type SamplerKind int

const (
	SamplerPath SamplerKind = iota
	SamplerNaive
	SamplerEyelight
)

// TraceParams configures a single call into the underlying tracer.
type TraceParams struct {
	Clamp      float64     // firefly clamp ceiling for a single sample's radiance
	EnvHidden  bool        // if true, a camera ray that misses geometry never counts as a hit
	TentFilter bool        // whether the camera should apply a tent reconstruction filter
	Seed       int64       // seed for the per-pixel RNG bootstrap
	Kind       SamplerKind // which sampling algorithm to run
}

// Scene is the minimal view of a scene the allocator needs: whether an
// environment exists to light rays that miss all geometry.
type Scene interface {
	HasEnvironments() bool
}

// Camera generates a camera ray for a pixel, given jittered film and lens
// samples. imageSize is the resolution of the image being rendered.
type Camera interface {
	SampleRay(px image.Point, imageSize image.Point, filmSample, lensSample core.Vec2, tent bool) core.Ray
}

// Sampler is the underlying path tracer: given a ray, it returns a
// radiance estimate and whether the ray hit anything.
type Sampler interface {
	Sample(scene Scene, ray core.Ray, rng *rand.Rand, params TraceParams) (radiance core.Vec3, hit bool)
}
