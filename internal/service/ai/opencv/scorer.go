// Package opencv runs a YOLOv5 ONNX model through the OpenCV DNN module.
package opencv

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"peoplecounter/internal/logger"
	"peoplecounter/internal/service/detection"
)

// Scorer holds one loaded network. gocv.Net is not safe for concurrent use.
type Scorer struct {
	net       gocv.Net
	modelPath string
	mu        sync.Mutex
	logger    *logger.Logger
}

// NewScorer loads the network once. Any failure is a DependencyError.
func NewScorer(modelPath string, logger *logger.Logger) (*Scorer, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, &detection.DependencyError{Component: "opencv scorer", Err: fmt.Errorf("model file not found: %s", modelPath)}
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, &detection.DependencyError{Component: "opencv scorer", Err: fmt.Errorf("failed to load network from %s", modelPath)}
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, &detection.DependencyError{Component: "opencv scorer", Err: fmt.Errorf("failed to set preferable backend or target")}
	}

	logger.Info("Detection network loaded from %s", modelPath)
	return &Scorer{
		net:       net,
		modelPath: modelPath,
		logger:    logger,
	}, nil
}

// Score runs the network at inputSize x inputSize and returns raw candidates.
func (s *Scorer) Score(img image.Image, inputSize int) ([]detection.Detection, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, &detection.InputError{Reason: "failed to convert image", Err: err}
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, &detection.InputError{Reason: "converted image is empty"}
	}

	// pad to a square so the model sees the original aspect ratio
	width, height := mat.Cols(), mat.Rows()
	side := max(width, height)
	square := gocv.NewMatWithSize(side, side, gocv.MatTypeCV8UC3)
	defer square.Close()
	roi := square.Region(image.Rect(0, 0, width, height))
	mat.CopyTo(&roi)
	roi.Close()

	blob := gocv.BlobFromImage(square, 1.0/255.0, image.Pt(inputSize, inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.mu.Lock()
	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	s.mu.Unlock()
	defer output.Close()

	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("unexpected network output shape %v", sizes)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	scale := float64(side) / float64(inputSize)
	dets, err := detection.DecodeYOLO(data, sizes[1], sizes[2], scale, image.Rect(0, 0, width, height))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Scored %dx%d image at %d: %d candidates", width, height, inputSize, len(dets))
	return dets, nil
}

// Close releases the network.
func (s *Scorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}
