package detection

import "image"

const (
	// PersonClassID is the COCO class index the model uses for "person".
	PersonClassID = 0
	// DefaultInputSize is the square resolution the scorer runs at.
	DefaultInputSize = 1280
	// DefaultConfidenceThreshold is the minimum confidence a person must have to be counted.
	DefaultConfidenceThreshold = 0.25
	// DefaultIoUThreshold is the overlap above which two boxes count as the same person.
	DefaultIoUThreshold = 0.4
)

// Box is an axis-aligned bounding box in pixels, relative to the image's top-left corner.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Area returns the box area, zero for degenerate boxes.
func (b Box) Area() float64 {
	w := b.X2 - b.X1
	h := b.Y2 - b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Rect rounds the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.X1+0.5), int(b.Y1+0.5), int(b.X2+0.5), int(b.Y2+0.5))
}

// Detection is one candidate produced by a Scorer.
type Detection struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
}

// Scorer maps an image to raw candidate detections. Implementations are loaded
// once and must be safe to call repeatedly.
type Scorer interface {
	Score(img image.Image, inputSize int) ([]Detection, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(img image.Image, inputSize int) ([]Detection, error)

// Score calls f.
func (f ScorerFunc) Score(img image.Image, inputSize int) ([]Detection, error) {
	return f(img, inputSize)
}

// Result is the outcome of one pipeline run.
type Result struct {
	Count      int         `json:"count"`
	Detections []Detection `json:"detections"`
}
