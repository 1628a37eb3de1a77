package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/df07/adaptive-tracer/pkg/core"
)

// Stats summarizes a render at the point it was collected. All fields
// are computed by CollectStatistics from the live pixel grid, so a
// stale Stats value never drifts from the state it was taken from;
// it's just a snapshot.
type Stats struct {
	Width, Height int
	TotalSamples  int64
	MinSamples    int
	MaxSamples    int
	MeanSamples   float64
	MinQ          float64
	MaxQ          float64
	MeanQ         float64
	Elapsed       float64
}

// String renders a human-readable summary line: sample range, mean
// quality, and an elapsed time formatted as mm:ss.mmm.
func (s Stats) String() string {
	elapsed := time.Duration(s.Elapsed * float64(time.Second))
	minutes := int(elapsed / time.Minute)
	seconds := elapsed - time.Duration(minutes)*time.Minute
	return fmt.Sprintf("%dx%d px, %d samples (range %d-%d, mean %.1f), mean q %.2f, %02d:%06.3f",
		s.Width, s.Height, s.TotalSamples, s.MinSamples, s.MaxSamples, s.MeanSamples, s.MeanQ,
		minutes, seconds.Seconds())
}

// CollectStatistics walks the pixel grid once and summarizes sample
// counts and quality scores.
func CollectStatistics(s *State) Stats {
	stats := Stats{
		Width:      s.Width,
		Height:     s.Height,
		MinSamples: math.MaxInt32,
		MinQ:       math.MaxFloat64,
	}

	total := 0
	qSum := 0.0
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			p := s.pixels.at(x, y)
			n := p.actual.samples
			total += n
			if n < stats.MinSamples {
				stats.MinSamples = n
			}
			if n > stats.MaxSamples {
				stats.MaxSamples = n
			}
			qSum += p.q
			if p.q < stats.MinQ {
				stats.MinQ = p.q
			}
			if p.q > stats.MaxQ {
				stats.MaxQ = p.q
			}
		}
	}

	count := s.Width * s.Height
	stats.TotalSamples = s.SampleCount()
	if count > 0 {
		stats.MeanSamples = float64(total) / float64(count)
		stats.MeanQ = qSum / float64(count)
	}
	stats.Elapsed = time.Since(s.startTime).Seconds()
	return stats
}

// vec3ToColor converts a linear radiance value into a display-ready
// sRGB color, clamping to [0, 255] so fireflies that slip past the
// per-sample clamp don't wrap around uint8.
func vec3ToColor(v core.Vec3) color.RGBA {
	srgb := v.Clamp(0, 1).LinearToSRGB()
	return color.RGBA{
		R: to8(srgb.X),
		G: to8(srgb.Y),
		B: to8(srgb.Z),
		A: 255,
	}
}

func to8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(255*v + 0.5)
}

// renderPixelsToImage converts a grid of RenderPixel means into a
// displayable image.RGBA.
func renderPixelsToImage(grid *pixelGrid[RenderPixel]) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, grid.width, grid.height))
	for y := 0; y < grid.height; y++ {
		for x := 0; x < grid.width; x++ {
			img.SetRGBA(x, y, vec3ToColor(grid.at(x, y).RGB))
		}
	}
	return img
}

// scaledDensityImage renders a scalar-per-pixel field as a grayscale
// image using square-root scaling from the observed min/max range to
// 0-255. Square-root scaling keeps a small number of extreme outlier pixels
// (a single very-high-sample-count pixel, say) from crushing every
// other pixel's contrast toward zero.
func scaledDensityImage(width, height int, value func(x, y int) float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))

	min, max := math.MaxFloat64, -math.MaxFloat64
	values := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := value(x, y)
			values[y*width+x] = v
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}

	span := max - min
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := values[y*width+x]
			var norm float64
			if span > 1e-9 {
				norm = (v - min) / span
			}
			scaled := math.Sqrt(math.Max(0, norm))
			img.SetGray(x, y, color.Gray{Y: to8(scaled)})
		}
	}
	return img
}

// SampleDensityImage visualizes how many samples the scheduler spent
// on each pixel.
func (s *State) SampleDensityImage() *image.Gray {
	return scaledDensityImage(s.Width, s.Height, func(x, y int) float64 {
		return float64(s.pixels.at(x, y).actual.samples)
	})
}

// TimeDensityImage visualizes how much wall-clock time the tracer spent
// per pixel.
func (s *State) TimeDensityImage() *image.Gray {
	return scaledDensityImage(s.Width, s.Height, func(x, y int) float64 {
		return s.pixels.at(x, y).timeInSample.Seconds()
	})
}

// QImage visualizes the per-pixel quality estimate.
func (s *State) QImage() *image.Gray {
	return scaledDensityImage(s.Width, s.Height, func(x, y int) float64 {
		return s.pixels.at(x, y).q
	})
}
