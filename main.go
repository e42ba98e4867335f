package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"detection-stream/config"
	"detection-stream/handlers"
	"detection-stream/janitor"
	"detection-stream/logger"
	"detection-stream/mjpeg"
	"detection-stream/store"
	"detection-stream/stream"
	"detection-stream/vision"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Default.Fatalf("Error loading configuration: %v", err)
	}

	log := logger.New(os.Stdout, logger.WithDebug(cfg.Debug), logger.WithSafeLogs(cfg.SafeLogs))

	// manually set time zone
	if tz := os.Getenv("TZ"); tz != "" {
		time.Local, err = time.LoadLocation(tz)
		if err != nil {
			log.Errorf("error loading location '%s': %v", tz, err)
		}
	}

	if err := os.MkdirAll(cfg.UploadFolder, 0o755); err != nil {
		log.Fatalf("Error creating upload folder: %v", err)
	}

	backend, closeBackend := sessionBackend(ctx, cfg, log)
	defer closeBackend()

	detector, err := vision.NewDetector(cfg.Model, log)
	if err != nil {
		log.Fatalf("Error loading detection model: %v", err)
	}
	provider := vision.NewProvider(detector, log)
	defer func() {
		if err := provider.Close(); err != nil {
			log.Errorf("Error closing detector: %v", err)
		}
	}()

	registry := stream.NewRegistry(log)
	mux := handlers.NewMux(handlers.Deps{
		Config:   cfg,
		Sessions: store.NewManager(backend, cfg.SecretKey, log),
		Provider: provider,
		Registry: registry,
		Encoder:  mjpeg.NewJPEGEncoder(cfg.JPEGQuality),
		Logger:   log,
	})

	if cfg.CleanupCron != "" {
		j := janitor.New(cfg.UploadFolder, cfg.UploadMaxAge, log)
		if err := j.Start(cfg.CleanupCron); err != nil {
			log.Fatalf("Error initializing upload cleanup: %v", err)
		}
		defer j.Stop()
	}

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: mux,
	}
	server.RegisterOnShutdown(registry.CancelAll)

	idle := make(chan struct{})
	go func() {
		defer close(idle)
		<-ctx.Done()
		log.Log("Shutting down server...")
		for _, c := range registry.Clients() {
			log.Logf("Closing stream %s to %s after %s", c.ID, c.Request.RemoteAddr, time.Since(c.StartedAt).Round(time.Second))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Error shutting down server: %v", err)
		}
	}()

	log.Logf("Server is running on %s...", cfg.Addr())
	log.Log("Upload page is running (`/FrontPage`)")
	log.Log("Video stream endpoint is running (`/video`)")
	if cfg.EnableWebcam {
		log.Log("Webcam stream endpoint is running (`/webapp?index={camera}`)")
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("HTTP server error: %v", err)
		return
	}
	<-idle
}

// sessionBackend picks the configured session store. An unreachable redis is
// fatal since sessions would otherwise silently reset.
func sessionBackend(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Backend, func()) {
	if cfg.SessionBackend != config.SessionBackendRedis {
		log.Debugf("Using in-memory sessions (ttl %s)", cfg.SessionTTL)
		return store.NewMemoryBackend(cfg.SessionTTL), func() {}
	}

	rb := store.NewRedisBackend(store.NewRedisClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB), cfg.SessionTTL)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rb.Ping(pingCtx); err != nil {
		log.Fatalf("Error connecting to redis at %s: %v", cfg.RedisAddr, err)
	}
	log.Logf("Using redis sessions at %s", cfg.RedisAddr)

	return rb, func() {
		if err := rb.Close(); err != nil {
			log.Errorf("Error closing redis client: %v", err)
		}
	}
}
