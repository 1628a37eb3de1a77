package reftracer

import (
	"image"

	"github.com/df07/adaptive-tracer/pkg/core"
)

// Camera is a thin-lens camera implementing tracer.Camera: it takes
// pixel coordinates and jittered film/lens samples directly instead of
// pre-normalized screen coordinates. A non-zero LensRadius produces
// depth-of-field blur for anything off the focus plane.
type Camera struct {
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	uAxis, vAxis    core.Vec3 // unit basis spanning the lens

	LensRadius float64
	FocusDist  float64
}

// NewCamera creates a thin-lens camera looking down -Z from the origin,
// with a small aperture so the allocator sees genuine per-sample
// variance from lens jitter, not just film jitter.
func NewCamera(aspectRatio float64) *Camera {
	viewportHeight := 2.0
	viewportWidth := aspectRatio * viewportHeight
	focalLength := 1.0

	origin := core.NewVec3(0, 0, 0)
	horizontal := core.NewVec3(viewportWidth, 0, 0)
	vertical := core.NewVec3(0, viewportHeight, 0)
	lowerLeftCorner := origin.
		Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(core.NewVec3(0, 0, focalLength))

	return &Camera{
		origin:          origin,
		horizontal:      horizontal,
		vertical:        vertical,
		lowerLeftCorner: lowerLeftCorner,
		uAxis:           horizontal.Normalize(),
		vAxis:           vertical.Normalize(),
		LensRadius:      0.02,
		FocusDist:       focalLength,
	}
}

// SampleRay implements tracer.Camera. lensSample jitters the ray's
// origin across the aperture disk and re-aims it at the corresponding
// point on the focus plane; the tent flag is accepted for interface
// compatibility but this camera always uses a box filter.
func (c *Camera) SampleRay(px image.Point, imageSize image.Point, filmSample, lensSample core.Vec2, _ bool) core.Ray {
	s := (float64(px.X) + filmSample.X) / float64(imageSize.X)
	t := 1.0 - (float64(px.Y)+filmSample.Y)/float64(imageSize.Y)

	direction := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t)).
		Subtract(c.origin)

	if c.LensRadius <= 0 {
		return core.NewRay(c.origin, direction)
	}

	focusPoint := c.origin.Add(direction.Multiply(c.FocusDist))

	rd := core.SamplePointInUnitDisk(lensSample).Multiply(c.LensRadius)
	lensOffset := c.uAxis.Multiply(rd.X).Add(c.vAxis.Multiply(rd.Y))
	rayOrigin := c.origin.Add(lensOffset)

	return core.NewRay(rayOrigin, focusPoint.Subtract(rayOrigin))
}
