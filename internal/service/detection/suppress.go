package detection

import (
	"math"
	"sort"
)

// FilterClass keeps detections of the given class.
func FilterClass(in []Detection, classID int) []Detection {
	out := make([]Detection, 0, len(in))
	for _, d := range in {
		if d.ClassID == classID {
			out = append(out, d)
		}
	}
	return out
}

// FilterConfidence keeps detections scoring at or above threshold.
func FilterConfidence(in []Detection, threshold float64) []Detection {
	out := make([]Detection, 0, len(in))
	for _, d := range in {
		if d.Confidence >= threshold {
			out = append(out, d)
		}
	}
	return out
}

// Suppress performs greedy non-maximum suppression. Detections are ranked by
// confidence (ties keep input order) and any detection whose IoU with an already
// kept one is strictly greater than iouThreshold is dropped. The input is not modified.
func Suppress(in []Detection, iouThreshold float64) []Detection {
	if len(in) == 0 {
		return []Detection{}
	}

	sorted := make([]Detection, len(in))
	copy(sorted, in)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	keep := make([]bool, len(sorted))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(sorted); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			if !keep[j] {
				continue
			}
			if IoU(sorted[i].Box, sorted[j].Box) > iouThreshold {
				keep[j] = false
			}
		}
	}

	out := make([]Detection, 0, len(sorted))
	for i, d := range sorted {
		if keep[i] {
			out = append(out, d)
		}
	}
	return out
}

// IoU returns the intersection-over-union of two boxes, 0 when they do not overlap.
func IoU(a, b Box) float64 {
	x1 := math.Max(a.X1, b.X1)
	y1 := math.Max(a.Y1, b.Y1)
	x2 := math.Min(a.X2, b.X2)
	y2 := math.Min(a.Y2, b.Y2)

	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
