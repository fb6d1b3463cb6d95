package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/df07/go-restir-di/pkg/frame"
	"github.com/df07/go-restir-di/pkg/renderer"
	"github.com/df07/go-restir-di/pkg/restir"
)

// FrameUpdate represents a single frame sent via SSE
type FrameUpdate struct {
	Frame       int    `json:"frame"`
	TotalFrames int    `json:"totalFrames"`
	ImageData   string `json:"imageData"` // Base64 encoded PNG
	Stats       Stats  `json:"stats"`
	IsComplete  bool   `json:"isComplete"`
	ElapsedMs   int64  `json:"elapsedMs"`
}

// Stats represents the statistics of one frame
type Stats struct {
	TotalPixels       int     `json:"totalPixels"`
	ValidPixels       int     `json:"validPixels"`
	LitPixels         int     `json:"litPixels"`
	AverageM          float64 `json:"averageM"`
	MaxM              int     `json:"maxM"`
	AccumulatedFrames int     `json:"accumulatedFrames"`
	AverageLuminance  float64 `json:"averageLuminance"`
	Enabled           bool    `json:"enabled"`
	FrameMs           int64   `json:"frameMs"`
}

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "frame", "warning", "error", "complete"
	Data string `json:"data"` // JSON-encoded data
}

// handleRender streams the frames of a ReSTIR sequence via SSE
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	setSSEHeaders(w)
	ctx := r.Context()

	// Single writer goroutine; the handler waits for it so nothing touches w
	// after the handler returns
	sseEventChan := make(chan SSEEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeSSEEvents(ctx, w, sseEventChan)
	}()
	defer func() {
		close(sseEventChan)
		<-writerDone
	}()

	req, err := parseRenderRequest(r.URL.Query())
	if err != nil {
		sendEvent(ctx, sseEventChan, "error", fmt.Sprintf("Invalid request: %v", err))
		return
	}

	// Console messages of this render are streamed alongside the frames
	consoleChan := make(chan ConsoleMessage, 50)
	stopConsole := make(chan struct{})
	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		streamConsoleMessages(ctx, consoleChan, stopConsole, sseEventChan)
	}()
	defer func() {
		close(stopConsole)
		<-consoleDone
	}()
	logger := NewWebLogger(uuid.NewString(), consoleChan, s.log.Handler())

	sceneObj, err := createScene(req.Scene)
	if err != nil {
		sendEvent(ctx, sseEventChan, "error", err.Error())
		return
	}

	config := renderer.DefaultConfig()
	config.Width = req.Width
	config.Height = req.Height
	config.Frames = req.Frames
	config.OrbitDegrees = req.Orbit
	config.Properties = req.Properties
	config.Logger = logger

	rend, err := renderer.New(sceneObj, config)
	if err != nil {
		sendEvent(ctx, sseEventChan, "error", err.Error())
		return
	}
	defer rend.Close()

	tm := frame.DefaultToneMap()
	tm.Exposure = req.Exposure
	startTime := time.Now()

	frames, errs := rend.RenderSequence(ctx)
	for result := range frames {
		handleFrame(ctx, sseEventChan, result, req, tm, startTime)
	}

	var renderErr error
	for err := range errs {
		renderErr = err
	}
	switch {
	case errors.Is(renderErr, context.Canceled):
		// Client disconnected
		return
	case errors.Is(renderErr, restir.ErrKernelSpecialization):
		// Frames were still produced with the passes that compiled
		sendEvent(ctx, sseEventChan, "warning", renderErr.Error())
	case renderErr != nil:
		sendEvent(ctx, sseEventChan, "error", fmt.Sprintf("Rendering failed: %v", renderErr))
		return
	}

	sendEvent(ctx, sseEventChan, "complete", "Rendering completed")
}

// setSSEHeaders sets the required headers for Server-Sent Events
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// writeSSEEvents writes all SSE events in a single goroutine until the
// channel closes or the client goes away
func writeSSEEvents(ctx context.Context, w http.ResponseWriter, sseEventChan <-chan SSEEvent) {
	flusher, _ := w.(http.Flusher)
	for {
		select {
		case event, ok := <-sseEventChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
				// Client disconnected during write
				return
			}
			if flusher != nil {
				flusher.Flush()
			}

		case <-ctx.Done():
			return
		}
	}
}

// streamConsoleMessages forwards console messages until stop closes, then
// drains what is already queued
func streamConsoleMessages(ctx context.Context, consoleChan <-chan ConsoleMessage, stop <-chan struct{}, sseEventChan chan<- SSEEvent) {
	forward := func(msg ConsoleMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			return
		}
		select {
		case sseEventChan <- SSEEvent{Type: "console", Data: string(data)}:
		case <-ctx.Done():
		default:
			// Channel full, skip message to avoid blocking
		}
	}

	for {
		select {
		case msg := <-consoleChan:
			forward(msg)
		case <-stop:
			for {
				select {
				case msg := <-consoleChan:
					forward(msg)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleFrame encodes a frame and queues it
func handleFrame(ctx context.Context, sseEventChan chan<- SSEEvent, result renderer.FrameResult, req *RenderRequest, tm frame.ToneMap, startTime time.Time) {
	imageData, err := imageToBase64PNG(frame.ToImage(result.Color, tm))
	if err != nil {
		sendEvent(ctx, sseEventChan, "error", fmt.Sprintf("Failed to encode frame %d: %v", result.Frame, err))
		return
	}

	update := FrameUpdate{
		Frame:       result.Frame,
		TotalFrames: req.Frames,
		ImageData:   imageData,
		Stats: Stats{
			TotalPixels:       result.Stats.TotalPixels,
			ValidPixels:       result.Stats.ValidPixels,
			LitPixels:         result.Stats.LitPixels,
			AverageM:          result.Stats.AverageM,
			MaxM:              result.Stats.MaxM,
			AccumulatedFrames: result.Stats.AccumulatedFrames,
			AverageLuminance:  result.Stats.AverageLuminance,
			Enabled:           result.Stats.Enabled,
			FrameMs:           result.Stats.Duration.Milliseconds(),
		},
		IsComplete: result.IsLast,
		ElapsedMs:  time.Since(startTime).Milliseconds(),
	}

	data, err := json.Marshal(update)
	if err != nil {
		sendEvent(ctx, sseEventChan, "error", fmt.Sprintf("Failed to marshal frame %d: %v", result.Frame, err))
		return
	}
	sendEvent(ctx, sseEventChan, "frame", string(data))
}

// sendEvent queues an event unless the client has gone away
func sendEvent(ctx context.Context, sseEventChan chan<- SSEEvent, eventType, data string) {
	select {
	case sseEventChan <- SSEEvent{Type: eventType, Data: data}:
	case <-ctx.Done():
	}
}
