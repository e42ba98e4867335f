package vision

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

// matImage exposes an OpenCV frame as an image.Image. Pixel access converts
// the mat once on first use; JPEG encoding goes straight through OpenCV.
type matImage struct {
	mat gocv.Mat

	once sync.Once
	img  image.Image
	err  error
}

func newMatImage(m gocv.Mat) *matImage {
	return &matImage{mat: m}
}

func (m *matImage) converted() image.Image {
	m.once.Do(func() {
		m.img, m.err = m.mat.ToImage()
		if m.err != nil || m.img == nil {
			m.img = image.NewRGBA(image.Rect(0, 0, m.mat.Cols(), m.mat.Rows()))
		}
	})
	return m.img
}

func (m *matImage) ColorModel() color.Model {
	return m.converted().ColorModel()
}

func (m *matImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.mat.Cols(), m.mat.Rows())
}

func (m *matImage) At(x, y int) color.Color {
	return m.converted().At(x, y)
}

// EncodeJPEG implements mjpeg.NativeEncoder.
func (m *matImage) EncodeJPEG(quality int) ([]byte, error) {
	if m.mat.Empty() {
		return nil, fmt.Errorf("empty mat")
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, m.mat, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	// the native buffer is freed by Close
	return append([]byte(nil), buf.GetBytes()...), nil
}

func (m *matImage) release() {
	m.mat.Close()
}
