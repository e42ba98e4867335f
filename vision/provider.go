package vision

import (
	"context"

	"detection-stream/frame"
	"detection-stream/logger"
)

// Provider opens detection-annotated frame sources for the HTTP handlers.
type Provider struct {
	det    Detector
	logger logger.Logger
}

func NewProvider(det Detector, log logger.Logger) *Provider {
	if log == nil {
		log = logger.Default
	}
	return &Provider{det: det, logger: log}
}

func (p *Provider) OpenVideo(_ context.Context, path string) (frame.Source, error) {
	return OpenFile(path, p.det, p.logger)
}

func (p *Provider) OpenCamera(_ context.Context, index int) (frame.Source, error) {
	return OpenCamera(index, p.det, p.logger)
}

func (p *Provider) Close() error {
	return p.det.Close()
}
