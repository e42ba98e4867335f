// Package frame defines the pull-based frame iterator shared by capture
// backends and the MJPEG writer.
package frame

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
)

// ErrDeviceUnavailable is returned when a capture device cannot be opened.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// ErrDetect is returned by Next when the detector rejects a frame.
var ErrDetect = errors.New("detection failed")

// Source yields frames one at a time.
//
// Next blocks until a frame is ready and returns io.EOF once the sequence is
// exhausted. The returned release func must be called exactly once after the
// frame has been consumed. Close releases the underlying handle and may be
// called at any point, including before the sequence ends.
type Source interface {
	Next(ctx context.Context) (image.Image, func(), error)
	Close() error
}

func noop() {}

// SliceSource replays a fixed list of frames.
type SliceSource struct {
	mu     sync.Mutex
	frames []image.Image
	pos    int
	closed bool
}

func NewSliceSource(frames ...image.Image) *SliceSource {
	return &SliceSource{frames: frames}
}

// Empty returns a source that is already exhausted.
func Empty() Source {
	return NewSliceSource()
}

func (s *SliceSource) Next(ctx context.Context) (image.Image, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, noop, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.pos >= len(s.frames) {
		return nil, noop, io.EOF
	}
	img := s.frames[s.pos]
	s.pos++
	return img, noop, nil
}

func (s *SliceSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
