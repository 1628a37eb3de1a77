package reftracer

import (
	"image"
	"testing"

	"github.com/df07/adaptive-tracer/pkg/core"
)

func TestCamera_SampleRay_CenterPixelPointsForward(t *testing.T) {
	cam := NewCamera(1.0)
	imageSize := image.Point{X: 100, Y: 100}
	ray := cam.SampleRay(image.Point{X: 50, Y: 50}, imageSize, core.NewVec2(0.5, 0.5), core.Vec2{}, false)

	if ray.Direction.X > 0.1 || ray.Direction.X < -0.1 {
		t.Errorf("center pixel ray direction.X = %v, want near 0", ray.Direction.X)
	}
	if ray.Direction.Z >= 0 {
		t.Errorf("expected camera to look down -Z, got direction.Z = %v", ray.Direction.Z)
	}
}

func TestCamera_SampleRay_EdgesDivergeInOppositeDirections(t *testing.T) {
	cam := NewCamera(1.0)
	imageSize := image.Point{X: 100, Y: 100}

	left := cam.SampleRay(image.Point{X: 0, Y: 50}, imageSize, core.NewVec2(0, 0.5), core.Vec2{}, false)
	right := cam.SampleRay(image.Point{X: 99, Y: 50}, imageSize, core.NewVec2(0.999, 0.5), core.Vec2{}, false)

	if left.Direction.X >= right.Direction.X {
		t.Errorf("expected left-edge ray.X (%v) < right-edge ray.X (%v)", left.Direction.X, right.Direction.X)
	}
}

func TestCamera_SampleRay_LensSampleJittersOrigin(t *testing.T) {
	cam := NewCamera(1.0)
	imageSize := image.Point{X: 100, Y: 100}

	a := cam.SampleRay(image.Point{X: 50, Y: 50}, imageSize, core.NewVec2(0.5, 0.5), core.NewVec2(0.1, 0.9), false)
	b := cam.SampleRay(image.Point{X: 50, Y: 50}, imageSize, core.NewVec2(0.5, 0.5), core.NewVec2(0.9, 0.1), false)

	if a.Origin.Equal(b.Origin) {
		t.Error("expected different lens samples to produce different ray origins")
	}
	if d := a.Origin.Subtract(cam.origin).LengthSquared(); d > cam.LensRadius*cam.LensRadius+1e-9 {
		t.Errorf("lens-jittered origin %v strayed outside the aperture radius %v", a.Origin, cam.LensRadius)
	}
}

func TestCamera_SampleRay_ZeroLensRadiusIsPinhole(t *testing.T) {
	cam := NewCamera(1.0)
	cam.LensRadius = 0
	imageSize := image.Point{X: 100, Y: 100}

	ray := cam.SampleRay(image.Point{X: 20, Y: 80}, imageSize, core.NewVec2(0.3, 0.7), core.NewVec2(0.9, 0.9), false)
	if !ray.Origin.Equal(cam.origin) {
		t.Errorf("expected a zero-radius lens to keep every ray at the camera origin, got %v", ray.Origin)
	}
}
