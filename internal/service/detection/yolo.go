package detection

import (
	"fmt"
	"image"
	"math"
)

// CandidateFloor drops rows the model itself considers noise before they reach
// the pipeline filters. It sits well below any usable confidence threshold.
const CandidateFloor = 0.01

// YOLOCandidates returns the number of output rows a YOLOv5 model produces for a
// square input of the given size (three anchors on strides 8, 16 and 32).
func YOLOCandidates(inputSize int) int {
	total := 0
	for _, stride := range []int{8, 16, 32} {
		cells := inputSize / stride
		total += 3 * cells * cells
	}
	return total
}

// DecodeYOLO converts a flattened YOLOv5 output of rows x cols values
// (cx, cy, w, h, objectness, class scores...) into detections in source-image
// pixels. scale maps model coordinates back to the source image and bounds clamps
// the result.
func DecodeYOLO(output []float32, rows, cols int, scale float64, bounds image.Rectangle) ([]Detection, error) {
	if cols < 6 {
		return nil, fmt.Errorf("unexpected YOLO output width %d", cols)
	}
	if len(output) < rows*cols {
		return nil, fmt.Errorf("YOLO output too short: have %d values, want %d", len(output), rows*cols)
	}

	var results []Detection
	for r := 0; r < rows; r++ {
		row := output[r*cols : (r+1)*cols]
		objectness := float64(row[4])
		if objectness < CandidateFloor {
			continue
		}

		classID := 0
		best := row[5]
		for c := 6; c < cols; c++ {
			if row[c] > best {
				best = row[c]
				classID = c - 5
			}
		}

		confidence := objectness * float64(best)
		if confidence < CandidateFloor {
			continue
		}

		cx, cy := float64(row[0]), float64(row[1])
		w, h := float64(row[2]), float64(row[3])
		box := Box{
			X1: clamp((cx-w/2)*scale, bounds.Min.X, bounds.Max.X),
			Y1: clamp((cy-h/2)*scale, bounds.Min.Y, bounds.Max.Y),
			X2: clamp((cx+w/2)*scale, bounds.Min.X, bounds.Max.X),
			Y2: clamp((cy+h/2)*scale, bounds.Min.Y, bounds.Max.Y),
		}
		if box.Area() == 0 {
			continue
		}

		results = append(results, Detection{
			Box:        box,
			Confidence: math.Min(confidence, 1),
			ClassID:    classID,
		})
	}
	return results, nil
}

func clamp(v float64, lo, hi int) float64 {
	return math.Max(float64(lo), math.Min(float64(hi), v))
}
