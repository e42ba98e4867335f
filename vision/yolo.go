package vision

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"sync"

	"detection-stream/config"
	"detection-stream/logger"

	"gocv.io/x/gocv"
)

var (
	boxColor  = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	textColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// YOLO runs a darknet YOLO model through OpenCV's dnn module and draws the
// surviving boxes with their class label and confidence.
type YOLO struct {
	mu           sync.Mutex
	net          gocv.Net
	outputs      []string
	classes      []string
	inputSize    int
	confidence   float32
	nmsThreshold float32
	logger       logger.Logger
}

func NewYOLO(cfg config.ModelConfig, log logger.Logger) (*YOLO, error) {
	net := gocv.ReadNet(cfg.Weights, cfg.Config)
	if net.Empty() {
		return nil, fmt.Errorf("load model %s: empty network", cfg.Weights)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	var classes []string
	if cfg.Names != "" {
		var err error
		classes, err = readClassNames(cfg.Names)
		if err != nil {
			net.Close()
			return nil, err
		}
	}

	y := &YOLO{
		net:          net,
		outputs:      outputNames(&net),
		classes:      classes,
		inputSize:    cfg.InputSize,
		confidence:   cfg.Confidence,
		nmsThreshold: cfg.NMSThreshold,
		logger:       log,
	}
	log.Logf("Loaded detection model %s (%d classes, outputs %v)", cfg.Weights, len(classes), y.outputs)
	return y, nil
}

func outputNames(net *gocv.Net) []string {
	var names []string
	for _, id := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(id)
		names = append(names, layer.GetName())
		layer.Close()
	}
	return names
}

func readClassNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	return names, scanner.Err()
}

type detection struct {
	box        image.Rectangle
	classID    int
	confidence float32
}

func (y *YOLO) Detect(img gocv.Mat) ([]gocv.Mat, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	detections := y.infer(img)

	out := img.Clone()
	for _, d := range detections {
		gocv.Rectangle(&out, d.box, boxColor, 2)

		label := fmt.Sprintf("%s %.2f", y.className(d.classID), d.confidence)
		origin := image.Pt(d.box.Min.X, d.box.Min.Y-4)
		if origin.Y < 12 {
			origin.Y = d.box.Min.Y + 12
		}
		gocv.PutText(&out, label, origin, gocv.FontHersheySimplex, 0.5, textColor, 1)
	}
	return []gocv.Mat{out}, nil
}

func (y *YOLO) infer(img gocv.Mat) []detection {
	// one network, so forward passes are serialised
	y.mu.Lock()
	defer y.mu.Unlock()

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(y.inputSize, y.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	y.net.SetInput(blob, "")
	outs := y.net.ForwardLayers(y.outputs)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()

	width, height := float32(img.Cols()), float32(img.Rows())
	var candidates []detection
	for _, out := range outs {
		for row := 0; row < out.Rows(); row++ {
			classID, score := -1, float32(0)
			for col := 5; col < out.Cols(); col++ {
				if s := out.GetFloatAt(row, col); s > score {
					classID, score = col-5, s
				}
			}
			if classID < 0 || score < y.confidence {
				continue
			}

			cx := out.GetFloatAt(row, 0) * width
			cy := out.GetFloatAt(row, 1) * height
			w := out.GetFloatAt(row, 2) * width
			h := out.GetFloatAt(row, 3) * height
			box := image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)).
				Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
			if box.Empty() {
				continue
			}
			candidates = append(candidates, detection{box: box, classID: classID, confidence: score})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.box
		scores[i] = c.confidence
	}

	keep := gocv.NMSBoxes(boxes, scores, y.confidence, y.nmsThreshold)
	result := make([]detection, 0, len(keep))
	for _, i := range keep {
		result = append(result, candidates[i])
	}
	y.logger.Debugf("Detected %d object(s) (%d before NMS)", len(result), len(candidates))
	return result
}

func (y *YOLO) className(id int) string {
	if id >= 0 && id < len(y.classes) {
		return y.classes[id]
	}
	return fmt.Sprintf("class %d", id)
}

func (y *YOLO) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.net.Close()
}
