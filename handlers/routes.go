package handlers

import (
	"net/http"
	"time"

	"detection-stream/config"
	"detection-stream/logger"
	"detection-stream/mjpeg"
	"detection-stream/store"
	"detection-stream/stream"
	"detection-stream/uploads"
)

// Deps are the collaborators shared by every route.
type Deps struct {
	Config   *config.Config
	Sessions *store.Manager
	Provider FrameProvider
	Registry *stream.Registry
	Encoder  mjpeg.Encoder
	Logger   logger.Logger
}

// NewMux registers every route on a fresh ServeMux.
func NewMux(d Deps) http.Handler {
	cfg := d.Config
	streamer := NewStreamer(d.Registry, d.Encoder, d.Logger)

	home := NewHomeHTTPHandler(d.Sessions, cfg.EnableWebcam, d.Logger)
	upload := NewUploadHTTPHandler(d.Sessions, uploads.NewSaver(cfg.UploadFolder), cfg.CSRFEnabled, cfg.EnableWebcam, d.Logger)

	mux := http.NewServeMux()
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		mux.Handle(method+" /{$}", home)
		mux.Handle(method+" /home", home)
		mux.Handle(method+" /FrontPage", upload)
	}
	mux.Handle("GET /video", NewVideoHTTPHandler(d.Sessions, d.Provider, streamer, d.Logger))
	mux.Handle("GET /webcam", NewWebcamPageHTTPHandler(cfg.EnableWebcam, d.Logger))
	mux.Handle("GET /webapp", NewWebcamHTTPHandler(cfg.EnableWebcam, d.Provider, streamer))
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, cfg.FaviconPath())
	})
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticFolder))))

	return logRequests(mux, d.Logger)
}

func logRequests(next http.Handler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Debugf("Received %s request from %s for URL: %s", r.Method, r.RemoteAddr, r.URL.Path)
		next.ServeHTTP(w, r)
		log.Debugf("Handled %s %s in %s", r.Method, r.URL.Path, time.Since(start))
	})
}
