// Package vision reads frames with OpenCV and runs them through an object
// detector before they are handed to the MJPEG writer.
package vision

import (
	"detection-stream/config"
	"detection-stream/logger"

	"gocv.io/x/gocv"
)

// Detector annotates one raw frame. It returns a finite, usually single
// element, list of frames with the same geometry as the input. The caller
// owns the returned mats and must close them.
type Detector interface {
	Detect(img gocv.Mat) ([]gocv.Mat, error)
	Close() error
}

// Passthrough returns frames unchanged. It is used when no model is
// configured.
type Passthrough struct{}

func (Passthrough) Detect(img gocv.Mat) ([]gocv.Mat, error) {
	return []gocv.Mat{img.Clone()}, nil
}

func (Passthrough) Close() error { return nil }

// NewDetector loads the configured model, or falls back to Passthrough when no
// weights are set.
func NewDetector(cfg config.ModelConfig, log logger.Logger) (Detector, error) {
	if cfg.Weights == "" {
		log.Warn("MODEL_WEIGHTS not set. Frames will be streamed without detection overlays.")
		return Passthrough{}, nil
	}
	return NewYOLO(cfg, log)
}
