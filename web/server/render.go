package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/df07/adaptive-tracer/pkg/reftracer"
	"github.com/df07/adaptive-tracer/pkg/renderer"
)

// RenderRequest represents a render request from the client.
type RenderRequest struct {
	Resolution int     `json:"resolution"`
	Quality    float64 `json:"quality"`    // target min quality; 0 keeps the default target and lets SPP/Seconds end the render
	SPP        int     `json:"spp"`        // hard sample ceiling; ignored when Quality is set
	Seconds    float64 `json:"seconds"`    // hard wall-clock ceiling, 0 disables
	Seed       int64   `json:"seed"`
}

// BatchUpdate is one intermediate image pushed to the client as the
// scheduler promotes curr_q past a batch boundary.
type BatchUpdate struct {
	CurrQ      float64 `json:"currQ"`
	DesiredQ   float64 `json:"desiredQ"`
	ImageData  string  `json:"imageData"` // base64 encoded PNG
	Stats      Stats   `json:"stats"`
	ElapsedMs  int64   `json:"elapsedMs"`
	IsComplete bool    `json:"isComplete"`
}

// ProgressUpdate reports coarse-grained scheduling phase progress
// between batches, for a progress bar that isn't tied to image frames.
type ProgressUpdate struct {
	Phase   string `json:"phase"`
	Current int    `json:"current"`
	Max     int    `json:"max"`
}

// Stats mirrors renderer.Stats for the wire format.
type Stats struct {
	TotalSamples int64   `json:"totalSamples"`
	MeanSamples  float64 `json:"meanSamples"`
	MinSamples   int     `json:"minSamples"`
	MaxSamples   int     `json:"maxSamples"`
	MinQ         float64 `json:"minQ"`
	MeanQ        float64 `json:"meanQ"`
}

// SSEEvent is a unified SSE event for thread-safe writing.
type SSEEvent struct {
	Type string `json:"type"` // "console", "progress", "batch", "error", "complete"
	Data string `json:"data"` // JSON-encoded payload
}

// handleRender drives an adaptive render and streams progress and
// intermediate images to the client over SSE. The client's request
// context cancels the render cooperatively if it disconnects.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.setSSEHeaders(w)
	ctx := r.Context()

	sseEventChan := make(chan SSEEvent, 100)
	go s.writeSSEEvents(w, ctx, sseEventChan)

	req, err := parseRenderRequest(r)
	if err != nil {
		s.handleError(ctx, sseEventChan, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	consoleChan, logger := s.setupConsoleLogging(renderID)
	go s.streamConsoleMessages(ctx, consoleChan, sseEventChan)

	scene := reftracer.NewDefaultScene()
	aspectRatio := 16.0 / 9.0
	camera := reftracer.NewCamera(aspectRatio)
	sampler := reftracer.NewPathSampler(25)

	params := renderer.DefaultAdaptiveParams()
	params.Resolution = req.Resolution
	params.TraceParams.Seed = req.Seed
	params.DesiredSPP = req.SPP
	params.DesiredSeconds = req.Seconds
	if req.Quality > 0 {
		params.DesiredQ = req.Quality
		params.DesiredSPP = 0
	}

	state := renderer.InitState(scene, camera, aspectRatio, sampler, params, logger)
	defer state.Close()

	startTime := time.Now()
	done := make(chan *image.RGBA, 1)

	progressCb := func(state *renderer.State, phase string, current, max int) {
		logger.SetPhase(phase, state.CurrQ())
		s.sendProgress(ctx, sseEventChan, phase, current, max)
	}
	batchCb := func(state *renderer.State, currQ, desiredQ float64) {
		logger.SetPhase("batch", currQ)
		s.sendBatch(ctx, sseEventChan, state, currQ, desiredQ, startTime, false)
	}

	go func() {
		done <- renderer.TraceImage(state, progressCb, batchCb)
	}()

	select {
	case <-ctx.Done():
		renderer.TraceStop(state)
		<-done
		return
	case <-done:
	}

	s.sendBatch(ctx, sseEventChan, state, params.DesiredQ, params.DesiredQ, startTime, true)
	s.sendSSEEvent(ctx, sseEventChan, "complete", "Rendering completed")
}

func (s *Server) sendProgress(ctx context.Context, sseEventChan chan SSEEvent, phase string, current, max int) {
	data, err := json.Marshal(ProgressUpdate{Phase: phase, Current: current, Max: max})
	if err != nil {
		return
	}
	s.sendSSEEvent(ctx, sseEventChan, "progress", string(data))
}

func (s *Server) sendBatch(ctx context.Context, sseEventChan chan SSEEvent, state *renderer.State, currQ, desiredQ float64, startTime time.Time, isComplete bool) {
	imageData, err := s.imageToBase64PNG(state.Render())
	if err != nil {
		s.handleError(ctx, sseEventChan, fmt.Sprintf("failed to encode image: %v", err))
		return
	}

	stats := renderer.CollectStatistics(state)
	update := BatchUpdate{
		CurrQ:    currQ,
		DesiredQ: desiredQ,
		ImageData: imageData,
		Stats: Stats{
			TotalSamples: stats.TotalSamples,
			MeanSamples:  stats.MeanSamples,
			MinSamples:   stats.MinSamples,
			MaxSamples:   stats.MaxSamples,
			MinQ:         stats.MinQ,
			MeanQ:        stats.MeanQ,
		},
		ElapsedMs:  time.Since(startTime).Milliseconds(),
		IsComplete: isComplete,
	}

	data, err := json.Marshal(update)
	if err != nil {
		return
	}
	s.sendSSEEvent(ctx, sseEventChan, "batch", string(data))
}

func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

func (s *Server) setupConsoleLogging(renderID string) (chan ConsoleMessage, *WebLogger) {
	consoleChan := make(chan ConsoleMessage, 100)
	logger := NewWebLogger(renderID, consoleChan)
	return consoleChan, logger
}

// writeSSEEvents is the single writer goroutine for a request's SSE
// stream; every other goroutine posts to sseEventChan instead of writing
// to w directly, since http.ResponseWriter isn't safe for concurrent use.
func (s *Server) writeSSEEvents(w http.ResponseWriter, ctx context.Context, sseEventChan chan SSEEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}
	for {
		select {
		case event, ok := <-sseEventChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data)
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) streamConsoleMessages(ctx context.Context, consoleChan chan ConsoleMessage, sseEventChan chan SSEEvent) {
	for {
		select {
		case msg, ok := <-consoleChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			s.sendSSEEvent(ctx, sseEventChan, "console", string(data))
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) sendSSEEvent(ctx context.Context, sseEventChan chan SSEEvent, eventType, data string) {
	select {
	case sseEventChan <- SSEEvent{Type: eventType, Data: data}:
	case <-ctx.Done():
	}
}

func (s *Server) handleError(ctx context.Context, sseEventChan chan SSEEvent, message string) {
	s.sendSSEEvent(ctx, sseEventChan, "error", message)
}

func (s *Server) imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	req := &RenderRequest{}

	var err error
	if req.Resolution, err = parseIntParam(r.URL.Query(), "resolution", 400, 32, 2000); err != nil {
		return nil, err
	}
	if req.SPP, err = parseIntParam(r.URL.Query(), "spp", 64, 1, 10000); err != nil {
		return nil, err
	}
	if req.Quality, err = parseFloatParam(r.URL.Query(), "quality", 0, 0, 10); err != nil {
		return nil, err
	}
	if req.Seconds, err = parseFloatParam(r.URL.Query(), "seconds", 0, 0, 3600); err != nil {
		return nil, err
	}
	seed, err := parseIntParam(r.URL.Query(), "seed", 0, 0, 1<<30)
	if err != nil {
		return nil, err
	}
	req.Seed = int64(seed)

	return req, nil
}

func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %f and %f, got: %f", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}
