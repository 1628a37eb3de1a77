package reftracer

import (
	"math/rand"

	"github.com/df07/adaptive-tracer/pkg/core"
	"github.com/df07/adaptive-tracer/pkg/tracer"
)

// PathSampler is a plain Lambertian-only recursive path tracer: no
// dielectrics, no metals, no next-event estimation. It exists to give
// the adaptive allocator a realistic, noisy radiance source to
// converge on.
type PathSampler struct {
	MaxDepth int
}

// NewPathSampler creates a sampler with the given maximum bounce depth.
func NewPathSampler(maxDepth int) *PathSampler {
	return &PathSampler{MaxDepth: maxDepth}
}

// Sample implements tracer.Sampler.
func (p *PathSampler) Sample(scene tracer.Scene, ray core.Ray, rng *rand.Rand, params tracer.TraceParams) (core.Vec3, bool) {
	s, ok := scene.(*Scene)
	if !ok {
		return core.Vec3{}, false
	}
	return p.rayColor(s, ray, rng, p.MaxDepth)
}

func (p *PathSampler) rayColor(scene *Scene, ray core.Ray, rng *rand.Rand, depth int) (core.Vec3, bool) {
	if depth <= 0 {
		return core.Vec3{}, false
	}

	hit, ok := scene.intersect(ray, 0.001, 1e8)
	if !ok {
		return scene.Background(ray.Direction), false
	}

	if !hit.emission.Equal(core.Vec3{}) {
		return hit.emission, true
	}

	scatterDir := core.SampleCosineHemisphere(hit.normal, core.NewVec2(rng.Float64(), rng.Float64()))
	scattered := core.NewRay(hit.point, scatterDir)

	incoming, _ := p.rayColor(scene, scattered, rng, depth-1)
	// Cosine-weighted hemisphere sampling makes the Lambertian Monte
	// Carlo estimator reduce to albedo * incoming.
	return hit.albedo.MultiplyVec(incoming), true
}
