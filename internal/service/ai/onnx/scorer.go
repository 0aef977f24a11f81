// Package onnx runs a YOLOv5 ONNX model through ONNX Runtime.
package onnx

import (
	"fmt"
	"image"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"peoplecounter/internal/logger"
	"peoplecounter/internal/service/detection"
)

// NumClasses is the number of COCO classes in the YOLOv5 head.
const NumClasses = 80

// Options locates the model and the runtime library.
type Options struct {
	ModelPath   string
	LibraryPath string
	InputName   string
	OutputName  string
	InputSize   int
}

// Scorer owns a fixed-shape session. Tensors are reused between calls, so
// Score is serialized.
type Scorer struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputSize    int
	rows         int
	cols         int
	mu           sync.Mutex
	logger       *logger.Logger
}

// NewScorer initializes ONNX Runtime and creates the session. Any failure is a
// DependencyError.
func NewScorer(opts Options, logger *logger.Logger) (*Scorer, error) {
	fail := func(err error) (*Scorer, error) {
		return nil, &detection.DependencyError{Component: "onnx scorer", Err: err}
	}

	if _, err := os.Stat(opts.ModelPath); os.IsNotExist(err) {
		return fail(fmt.Errorf("model file not found: %s", opts.ModelPath))
	}
	if opts.InputSize <= 0 {
		opts.InputSize = detection.DefaultInputSize
	}

	if !ort.IsInitialized() {
		if opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(opts.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fail(fmt.Errorf("failed to initialize ONNX environment: %w", err))
		}
	}

	size := int64(opts.InputSize)
	rows := detection.YOLOCandidates(opts.InputSize)
	cols := NumClasses + 5

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return fail(fmt.Errorf("failed to create input tensor: %w", err))
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(rows), int64(cols)))
	if err != nil {
		inputTensor.Destroy()
		return fail(fmt.Errorf("failed to create output tensor: %w", err))
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{opts.InputName}, []string{opts.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return fail(fmt.Errorf("failed to create ONNX session: %w", err))
	}

	logger.Info("ONNX session created for %s at %dx%d", opts.ModelPath, opts.InputSize, opts.InputSize)
	return &Scorer{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputSize:    opts.InputSize,
		rows:         rows,
		cols:         cols,
		logger:       logger,
	}, nil
}

// Score runs the session. The session shape is fixed, so inputSize must match
// the size the scorer was created with.
func (s *Scorer) Score(img image.Image, inputSize int) ([]detection.Detection, error) {
	if inputSize != s.inputSize {
		return nil, fmt.Errorf("onnx scorer built for input size %d, asked for %d", s.inputSize, inputSize)
	}

	tensor, scale := Tensorize(img, s.inputSize)
	bounds := image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy())

	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.inputTensor.GetData(), tensor)
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return detection.DecodeYOLO(s.outputTensor.GetData(), s.rows, s.cols, scale, bounds)
}

// Close releases the session and tensors.
func (s *Scorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
