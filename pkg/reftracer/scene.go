// Package reftracer is a small, deliberately minimal implementation of
// the pkg/tracer contracts: a handful of spheres, a Lambertian-only
// material, and a gradient background. It exists so the adaptive
// allocator core has something concrete to drive in tests and in the
// demo command; it is not a renderer in its own right and intentionally
// carries none of a real path tracer's BVH, material library, or scene
// loaders (out of scope per the allocator's own spec).
package reftracer

import (
	"math"

	"github.com/df07/adaptive-tracer/pkg/core"
)

// Sphere is the only primitive this reference tracer supports.
type Sphere struct {
	Center   core.Vec3
	Radius   float64
	Albedo   core.Vec3 // Lambertian reflectance
	Emission core.Vec3 // non-zero makes the sphere an area light
}

// hit intersects the sphere with a ray, returning the closest root in (tMin, tMax).
func (s Sphere) hit(ray core.Ray, tMin, tMax float64) (t float64, ok bool) {
	oc := ray.Origin.Subtract(s.Center)
	a := ray.Direction.LengthSquared()
	halfB := oc.Dot(ray.Direction)
	c := oc.LengthSquared() - s.Radius*s.Radius
	disc := halfB*halfB - a*c
	if disc < 0 {
		return 0, false
	}
	sqrtDisc := math.Sqrt(disc)

	root := (-halfB - sqrtDisc) / a
	if root <= tMin || root >= tMax {
		root = (-halfB + sqrtDisc) / a
		if root <= tMin || root >= tMax {
			return 0, false
		}
	}
	return root, true
}

// Scene is a flat list of spheres lit by a vertical gradient
// environment (used as the background for rays that hit nothing).
type Scene struct {
	Spheres         []Sphere
	Top, Bottom     core.Vec3 // background gradient colors
	HasEnvironment_ bool      // whether an environment light exists (see HasEnvironments)
}

// HasEnvironments implements tracer.Scene.
func (s *Scene) HasEnvironments() bool {
	return s.HasEnvironment_
}

// Background evaluates the gradient environment for a ray that hit nothing.
func (s *Scene) Background(dir core.Vec3) core.Vec3 {
	unit := dir.Normalize()
	t := 0.5 * (unit.Y + 1.0)
	return s.Bottom.Multiply(1 - t).Add(s.Top.Multiply(t))
}

type hitRecord struct {
	t        float64
	point    core.Vec3
	normal   core.Vec3
	albedo   core.Vec3
	emission core.Vec3
}

// intersect finds the closest sphere hit along the ray, if any.
func (s *Scene) intersect(ray core.Ray, tMin, tMax float64) (hitRecord, bool) {
	var closest hitRecord
	hitAnything := false
	closestSoFar := tMax

	for _, sphere := range s.Spheres {
		if t, ok := sphere.hit(ray, tMin, closestSoFar); ok {
			hitAnything = true
			closestSoFar = t
			point := ray.At(t)
			closest = hitRecord{
				t:        t,
				point:    point,
				normal:   point.Subtract(sphere.Center).Multiply(1 / sphere.Radius),
				albedo:   sphere.Albedo,
				emission: sphere.Emission,
			}
		}
	}
	return closest, hitAnything
}

// NewDefaultScene builds a small demo scene: a diffuse ground sphere, a
// couple of colored spheres, and one emissive sphere acting as a light.
func NewDefaultScene() *Scene {
	return &Scene{
		Top:             core.NewVec3(0.5, 0.7, 1.0),
		Bottom:          core.NewVec3(1.0, 1.0, 1.0),
		HasEnvironment_: true,
		Spheres: []Sphere{
			{Center: core.NewVec3(0, -100.5, -1), Radius: 100, Albedo: core.NewVec3(0.6, 0.6, 0.6)},
			{Center: core.NewVec3(0, 0, -1), Radius: 0.5, Albedo: core.NewVec3(0.7, 0.3, 0.3)},
			{Center: core.NewVec3(-1, 0, -1), Radius: 0.5, Albedo: core.NewVec3(0.3, 0.5, 0.7)},
			{Center: core.NewVec3(1, 0.6, -1), Radius: 0.4, Emission: core.NewVec3(6, 6, 5)},
		},
	}
}
