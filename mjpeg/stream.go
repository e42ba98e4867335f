// Package mjpeg writes frame sequences as multipart/x-mixed-replace streams.
package mjpeg

import (
	"context"
	"errors"
	"fmt"
	"io"

	"detection-stream/frame"

	"github.com/valyala/bytebufferpool"
)

const (
	Boundary        = "frame"
	ContentType     = "multipart/x-mixed-replace; boundary=" + Boundary
	PartContentType = "image/jpeg"

	partHeader  = "--" + Boundary + "\r\n" + "Content-Type: " + PartContentType + "\r\n\r\n"
	partTrailer = "\r\n"
)

type flusher interface {
	Flush()
}

// ErrSource wraps any failure of the frame source other than io.EOF.
var ErrSource = errors.New("frame source failed")

// WritePart writes one already-encoded JPEG as a single multipart chunk.
func WritePart(w io.Writer, jpegBytes []byte) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(partHeader)
	_, _ = buf.Write(jpegBytes)
	_, _ = buf.WriteString(partTrailer)

	if err := writeChunk(w, buf.B); err != nil {
		return fmt.Errorf("write part: %w", err)
	}
	return nil
}

func writeChunk(w io.Writer, chunk []byte) error {
	if _, err := w.Write(chunk); err != nil {
		return err
	}
	if f, ok := w.(flusher); ok {
		f.Flush()
	}
	return nil
}

// Stream pulls frames from src in order and writes one part per frame until
// the source ends, a frame fails to encode, the writer fails, or ctx is done.
// It returns the number of parts written. A source that ends normally yields
// a nil error. src is not closed.
func Stream(ctx context.Context, w io.Writer, src frame.Source, enc Encoder) (int, error) {
	parts := 0
	jpg := bytebufferpool.Get()
	defer bytebufferpool.Put(jpg)

	for {
		if err := ctx.Err(); err != nil {
			return parts, err
		}

		img, release, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return parts, nil
			}
			return parts, fmt.Errorf("%w: %w", ErrSource, err)
		}

		jpg.Reset()
		err = enc.Encode(jpg, img)
		release()
		if err != nil {
			if !errors.Is(err, ErrEncode) {
				err = fmt.Errorf("%w: %w", ErrEncode, err)
			}
			return parts, err
		}

		if err := WritePart(w, jpg.B); err != nil {
			return parts, err
		}
		parts++
	}
}
