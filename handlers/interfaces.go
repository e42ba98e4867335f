package handlers

import (
	"context"

	"detection-stream/frame"
)

// FrameProvider opens detection-annotated frame sources.
type FrameProvider interface {
	OpenVideo(ctx context.Context, path string) (frame.Source, error)
	OpenCamera(ctx context.Context, index int) (frame.Source, error)
}
