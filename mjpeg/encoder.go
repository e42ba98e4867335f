package mjpeg

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
)

// ErrEncode signals that a frame produced no JPEG output. Streams stop on it.
var ErrEncode = errors.New("jpeg encoding failed")

const DefaultQuality = 95

// Encoder compresses a single frame into w.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// NativeEncoder is implemented by frames that can produce JPEG bytes without
// going through image.Image, such as OpenCV-backed frames.
type NativeEncoder interface {
	EncodeJPEG(quality int) ([]byte, error)
}

type JPEGEncoder struct {
	Quality int
}

func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &JPEGEncoder{Quality: quality}
}

func (e *JPEGEncoder) Encode(w io.Writer, img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil frame", ErrEncode)
	}

	if native, ok := img.(NativeEncoder); ok {
		b, err := native.EncodeJPEG(e.Quality)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEncode, err)
		}
		if len(b) == 0 {
			return fmt.Errorf("%w: empty output", ErrEncode)
		}
		_, err = w.Write(b)
		return err
	}

	if img.Bounds().Empty() {
		return fmt.Errorf("%w: empty frame", ErrEncode)
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: e.Quality}); err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return nil
}
