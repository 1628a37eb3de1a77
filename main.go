package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/df07/adaptive-tracer/pkg/reftracer"
	"github.com/df07/adaptive-tracer/pkg/renderer"
)

func main() {
	quality := flag.Float64("quality", 0, "target minimum per-pixel quality (0 disables the adaptive scheduler)")
	spp := flag.Int("spp", 64, "samples per pixel for the uniform render used when -quality is 0; ignored when -quality is set")
	seconds := flag.Float64("seconds", 0, "hard wall-clock budget in seconds for the adaptive render (0 disables; the uniform render ignores it)")
	resolution := flag.Int("resolution", 400, "length, in pixels, of the image's longer axis")
	seed := flag.Int64("seed", 0, "seed for the per-pixel RNG bootstrap")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *help {
		fmt.Println("Adaptive Path Tracer")
		fmt.Println("Usage: adaptive-tracer [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Output will be saved to output/render_<timestamp>.png")
		return
	}

	fmt.Println("Starting Adaptive Path Tracer...")

	scene := reftracer.NewDefaultScene()
	aspectRatio := 16.0 / 9.0
	camera := reftracer.NewCamera(aspectRatio)
	sampler := reftracer.NewPathSampler(25)

	params := renderer.DefaultAdaptiveParams()
	params.Resolution = *resolution
	params.DesiredSPP = *spp
	params.DesiredSeconds = *seconds
	params.TraceParams.Seed = *seed
	if *quality > 0 {
		params.DesiredQ = *quality
		params.DesiredSPP = 0
	}

	outputDir := "output"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		return
	}

	state := renderer.InitState(scene, camera, aspectRatio, sampler, params, nil)
	defer state.Close()

	startTime := time.Now()
	var img *image.RGBA
	if *quality > 0 {
		img = renderer.TraceImage(state, nil, nil)
	} else {
		img = renderer.RenderUniform(state, *spp, nil)
	}
	renderTime := time.Since(startTime)

	stats := renderer.CollectStatistics(state)
	fmt.Printf("Render completed in %v\n", renderTime)
	fmt.Printf("Samples per pixel: %.1f (range %d - %d), min q %.2f\n",
		stats.MeanSamples, stats.MinSamples, stats.MaxSamples, stats.MinQ)

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("render_%s.png", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Error creating file: %v\n", err)
		return
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		fmt.Printf("Error saving PNG: %v\n", err)
		return
	}

	fmt.Printf("Render saved as %s\n", filename)
}
