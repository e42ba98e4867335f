package vision

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"

	"detection-stream/frame"
	"detection-stream/logger"

	"gocv.io/x/gocv"
)

// captureSource reads raw frames from an OpenCV capture, runs each through
// the detector and yields the annotated results in order.
type captureSource struct {
	mu      sync.Mutex
	name    string
	vc      *gocv.VideoCapture
	det     Detector
	raw     gocv.Mat
	pending []gocv.Mat
	done    bool
	closed  bool
	read    int
	logger  logger.Logger
}

func newCaptureSource(name string, vc *gocv.VideoCapture, det Detector, log logger.Logger) *captureSource {
	return &captureSource{
		name:   name,
		vc:     vc,
		det:    det,
		raw:    gocv.NewMat(),
		logger: log,
	}
}

// OpenFile returns a source over a video file.
func OpenFile(path string, det Detector, log logger.Logger) (frame.Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open video %s: capture not opened", path)
	}
	return newCaptureSource(path, vc, det, log), nil
}

// OpenCamera returns a source over a local camera. It fails with
// frame.ErrDeviceUnavailable when the device cannot be opened.
func OpenCamera(index int, det Detector, log logger.Logger) (frame.Source, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("%w: camera %d: %v", frame.ErrDeviceUnavailable, index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: camera %d", frame.ErrDeviceUnavailable, index)
	}
	log.Logf("Opened camera on device index %d", index)
	return newCaptureSource(fmt.Sprintf("camera %d", index), vc, det, log), nil
}

func (s *captureSource) Next(ctx context.Context) (image.Image, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.pending) == 0 {
		if s.closed || s.done {
			return nil, func() {}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return nil, func() {}, err
		}

		// a failed or empty read is the end of the stream
		if ok := s.vc.Read(&s.raw); !ok || s.raw.Empty() {
			s.done = true
			s.logger.Debugf("%s: end of stream after %d frame(s)", s.name, s.read)
			return nil, func() {}, io.EOF
		}
		s.read++

		annotated, err := s.det.Detect(s.raw)
		if err != nil {
			return nil, func() {}, fmt.Errorf("%w: frame %d: %w", frame.ErrDetect, s.read, err)
		}
		s.pending = append(s.pending, annotated...)
	}

	m := s.pending[0]
	s.pending = s.pending[1:]
	img := newMatImage(m)
	return img, img.release, nil
}

func (s *captureSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for i := range s.pending {
		s.pending[i].Close()
	}
	s.pending = nil
	s.raw.Close()

	if err := s.vc.Close(); err != nil {
		return fmt.Errorf("release %s: %w", s.name, err)
	}
	s.logger.Debugf("%s: released", s.name)
	return nil
}
