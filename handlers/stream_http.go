package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"detection-stream/frame"
	"detection-stream/logger"
	"detection-stream/mjpeg"
	"detection-stream/store"
	"detection-stream/stream"
)

const msgNoVideo = "No uploaded video found"

type openFunc func(ctx context.Context) (frame.Source, error)

// Streamer serves one MJPEG response per request over a frame source.
type Streamer struct {
	registry *stream.Registry
	encoder  mjpeg.Encoder
	logger   logger.Logger
}

func NewStreamer(registry *stream.Registry, encoder mjpeg.Encoder, logger logger.Logger) *Streamer {
	return &Streamer{
		registry: registry,
		encoder:  encoder,
		logger:   logger,
	}
}

// Serve commits a 200 multipart response before opening the source. A source
// that cannot be opened yields a stream with no parts.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request, name string, open openFunc) {
	client := stream.NewClient(w, r)
	ctx, done := s.registry.Register(r.Context(), client)
	defer done()

	client.Start(mjpeg.ContentType)

	src, err := open(ctx)
	if err != nil {
		if errors.Is(err, frame.ErrDeviceUnavailable) {
			s.logger.Warnf("Stream %s for %s: %v", name, r.RemoteAddr, err)
		} else {
			s.logger.Errorf("Error opening %s for %s: %v", name, r.RemoteAddr, err)
		}
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			s.logger.Warnf("Error closing %s: %v", name, err)
		}
	}()

	s.logger.Logf("Streaming %s to %s (stream %s)", name, client.Request.RemoteAddr, client.ID)
	parts, err := mjpeg.Stream(ctx, client, src, s.encoder)
	elapsed := time.Since(client.StartedAt).Round(time.Millisecond)
	switch {
	case err == nil:
		s.logger.Logf("Finished streaming %s to %s: %d frames, %d bytes in %s", name, r.RemoteAddr, parts, client.BytesWritten(), elapsed)
	case errors.Is(err, mjpeg.ErrEncode):
		s.logger.Errorf("Stopped streaming %s after %d frames: %v", name, parts, err)
	case errors.Is(err, frame.ErrDetect):
		s.logger.Errorf("Stopped streaming %s after %d frames, detector failed: %v", name, parts, err)
	case errors.Is(err, mjpeg.ErrSource):
		s.logger.Errorf("Stopped streaming %s after %d frames, source failed: %v", name, parts, err)
	case errors.Is(err, context.Canceled):
		s.logger.Logf("Client %s stopped streaming %s after %d frames", r.RemoteAddr, name, parts)
	default:
		s.logger.Logf("Unable to write to client. Assuming stream has been closed: %s (%v)", r.RemoteAddr, err)
	}
}

type VideoHTTPHandler struct {
	sessions *store.Manager
	provider FrameProvider
	streamer *Streamer
	logger   logger.Logger
}

func NewVideoHTTPHandler(sessions *store.Manager, provider FrameProvider, streamer *Streamer, logger logger.Logger) *VideoHTTPHandler {
	return &VideoHTTPHandler{
		sessions: sessions,
		provider: provider,
		streamer: streamer,
		logger:   logger,
	}
}

func (h *VideoHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Session(w, r)
	path, ok := sess.Get(store.KeyVideoPath)
	if !ok || path == "" {
		h.logger.Debugf("No video in session %s", sess.ID())
		writeJSONError(w, http.StatusNotFound, msgNoVideo)
		return
	}
	if _, err := os.Stat(path); err != nil {
		h.logger.Warnf("Video for session %s is gone: %v", sess.ID(), err)
		writeJSONError(w, http.StatusNotFound, msgNoVideo)
		return
	}

	h.streamer.Serve(w, r, "video", func(ctx context.Context) (frame.Source, error) {
		return h.provider.OpenVideo(ctx, path)
	})
}

type WebcamHTTPHandler struct {
	enabled  bool
	provider FrameProvider
	streamer *Streamer
}

func NewWebcamHTTPHandler(enabled bool, provider FrameProvider, streamer *Streamer) *WebcamHTTPHandler {
	return &WebcamHTTPHandler{
		enabled:  enabled,
		provider: provider,
		streamer: streamer,
	}
}

func (h *WebcamHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		http.NotFound(w, r)
		return
	}

	index := cameraIndex(r)
	h.streamer.Serve(w, r, "webcam", func(ctx context.Context) (frame.Source, error) {
		return h.provider.OpenCamera(ctx, index)
	})
}
