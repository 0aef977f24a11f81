package detection

import (
	"errors"
	"image"
	"math"
	"math/rand"
	"testing"
)

// ========================================
// Helpers
// ========================================

func fixedScorer(dets []Detection) Scorer {
	return ScorerFunc(func(img image.Image, inputSize int) ([]Detection, error) {
		out := make([]Detection, len(dets))
		copy(out, dets)
		return out, nil
	})
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 640, 480))
}

func randomDetections(rng *rand.Rand, n int) []Detection {
	dets := make([]Detection, 0, n)
	for i := 0; i < n; i++ {
		x := rng.Float64() * 500
		y := rng.Float64() * 350
		w := 20 + rng.Float64()*120
		h := 20 + rng.Float64()*120
		dets = append(dets, Detection{
			Box:        Box{X1: x, Y1: y, X2: x + w, Y2: y + h},
			Confidence: rng.Float64(),
			ClassID:    rng.Intn(3),
		})
	}
	return dets
}

func mustPipeline(t *testing.T, scorer Scorer, opts Options) *Pipeline {
	t.Helper()
	p, err := NewPipeline(scorer, opts)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p
}

// ========================================
// Construction
// ========================================

func TestNewPipeline_NilScorer(t *testing.T) {
	_, err := NewPipeline(nil, DefaultOptions())
	var depErr *DependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("Expected DependencyError, got %v", err)
	}
}

func TestNewPipeline_Defaults(t *testing.T) {
	p := mustPipeline(t, fixedScorer(nil), Options{
		InputSize:           -1,
		ConfidenceThreshold: -0.5,
		IoUThreshold:        math.NaN(),
	})
	opts := p.Options()

	if opts.InputSize != DefaultInputSize {
		t.Errorf("Expected input size %d, got %d", DefaultInputSize, opts.InputSize)
	}
	if opts.ConfidenceThreshold != DefaultConfidenceThreshold {
		t.Errorf("Expected confidence %.2f, got %.2f", DefaultConfidenceThreshold, opts.ConfidenceThreshold)
	}
	if opts.IoUThreshold != DefaultIoUThreshold {
		t.Errorf("Expected IoU %.2f, got %.2f", DefaultIoUThreshold, opts.IoUThreshold)
	}
	if opts.ClassID != PersonClassID {
		t.Errorf("Expected class %d, got %d", PersonClassID, opts.ClassID)
	}
}

func TestNewPipeline_ZeroThresholdsKept(t *testing.T) {
	p := mustPipeline(t, fixedScorer(nil), Options{ConfidenceThreshold: 0, IoUThreshold: 0})
	opts := p.Options()

	if opts.ConfidenceThreshold != 0 {
		t.Errorf("Expected confidence 0 to be kept, got %.2f", opts.ConfidenceThreshold)
	}
	if opts.IoUThreshold != 0 {
		t.Errorf("Expected IoU 0 to be kept, got %.2f", opts.IoUThreshold)
	}
}

// ========================================
// Run
// ========================================

func TestRun_PassesInputSize(t *testing.T) {
	var got int
	scorer := ScorerFunc(func(img image.Image, inputSize int) ([]Detection, error) {
		got = inputSize
		return nil, nil
	})
	p := mustPipeline(t, scorer, Options{InputSize: 640})

	if _, err := p.Run(testImage()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != 640 {
		t.Errorf("Expected scorer to receive 640, got %d", got)
	}
}

func TestRun_NilImage(t *testing.T) {
	p := mustPipeline(t, fixedScorer(nil), DefaultOptions())

	_, err := p.Run(nil)
	var inErr *InputError
	if !errors.As(err, &inErr) {
		t.Fatalf("Expected InputError, got %v", err)
	}
}

func TestRun_EmptyImage(t *testing.T) {
	p := mustPipeline(t, fixedScorer(nil), DefaultOptions())

	_, err := p.Run(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	var inErr *InputError
	if !errors.As(err, &inErr) {
		t.Fatalf("Expected InputError, got %v", err)
	}
}

func TestRun_ScorerError(t *testing.T) {
	boom := errors.New("model crashed")
	scorer := ScorerFunc(func(img image.Image, inputSize int) ([]Detection, error) {
		return nil, boom
	})
	p := mustPipeline(t, scorer, DefaultOptions())

	_, err := p.Run(testImage())
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped scorer error, got %v", err)
	}
}

func TestRun_NoPeople(t *testing.T) {
	dets := []Detection{
		{Box: Box{10, 10, 50, 50}, Confidence: 0.9, ClassID: 2},
		{Box: Box{100, 100, 150, 150}, Confidence: 0.8, ClassID: 16},
	}
	p := mustPipeline(t, fixedScorer(dets), DefaultOptions())

	res, err := p.Run(testImage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Count != 0 {
		t.Errorf("Expected count 0, got %d", res.Count)
	}
	if len(res.Detections) != 0 {
		t.Errorf("Expected no detections, got %d", len(res.Detections))
	}
}

func TestRun_TwoSeparatePeople(t *testing.T) {
	dets := []Detection{
		{Box: Box{10, 10, 100, 200}, Confidence: 0.8, ClassID: PersonClassID},
		{Box: Box{300, 10, 400, 200}, Confidence: 0.7, ClassID: PersonClassID},
	}
	p := mustPipeline(t, fixedScorer(dets), DefaultOptions())

	res, err := p.Run(testImage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Count != 2 {
		t.Errorf("Expected count 2, got %d", res.Count)
	}
}

func TestRun_DuplicateOfSamePerson(t *testing.T) {
	dets := []Detection{
		{Box: Box{0, 0, 100, 90}, Confidence: 0.6, ClassID: PersonClassID},
		{Box: Box{0, 0, 100, 100}, Confidence: 0.9, ClassID: PersonClassID},
	}
	if iou := IoU(dets[0].Box, dets[1].Box); iou < 0.899 || iou > 0.901 {
		t.Fatalf("Fixture IoU should be 0.9, got %f", iou)
	}
	p := mustPipeline(t, fixedScorer(dets), DefaultOptions())

	res, err := p.Run(testImage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("Expected count 1, got %d", res.Count)
	}
	if res.Detections[0].Confidence != 0.9 {
		t.Errorf("Expected the 0.9 detection to survive, got %.2f", res.Detections[0].Confidence)
	}
}

func TestRun_BelowThresholdDropped(t *testing.T) {
	dets := []Detection{
		{Box: Box{10, 10, 100, 200}, Confidence: 0.24, ClassID: PersonClassID},
		{Box: Box{300, 10, 400, 200}, Confidence: 0.25, ClassID: PersonClassID},
	}
	p := mustPipeline(t, fixedScorer(dets), DefaultOptions())

	res, err := p.Run(testImage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("Expected count 1, got %d", res.Count)
	}
	if res.Detections[0].Confidence != 0.25 {
		t.Errorf("Expected the detection at exactly the threshold to survive")
	}
}

func TestRun_ZeroConfidenceKeepsEveryPerson(t *testing.T) {
	dets := []Detection{
		{Box: Box{10, 10, 100, 200}, Confidence: 0.8, ClassID: PersonClassID},
		{Box: Box{300, 10, 400, 200}, Confidence: 0.6, ClassID: PersonClassID},
		{Box: Box{500, 10, 600, 200}, Confidence: 0.05, ClassID: PersonClassID},
		{Box: Box{200, 250, 250, 300}, Confidence: 0.9, ClassID: 2},
	}
	opts := DefaultOptions()
	opts.ConfidenceThreshold = 0

	zero, err := mustPipeline(t, fixedScorer(dets), opts).Run(testImage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if zero.Count != 3 {
		t.Errorf("Expected all 3 people at threshold 0, got %d", zero.Count)
	}

	opts.ConfidenceThreshold = 0.01
	low, err := mustPipeline(t, fixedScorer(dets), opts).Run(testImage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if zero.Count < low.Count {
		t.Errorf("Count at 0 (%d) is below count at 0.01 (%d)", zero.Count, low.Count)
	}
}

func TestRun_ZeroIoUSuppressesAnyOverlap(t *testing.T) {
	dets := []Detection{
		{Box: Box{0, 0, 100, 100}, Confidence: 0.9, ClassID: PersonClassID},
		{Box: Box{95, 0, 195, 100}, Confidence: 0.8, ClassID: PersonClassID},
		{Box: Box{300, 0, 400, 100}, Confidence: 0.7, ClassID: PersonClassID},
	}
	opts := DefaultOptions()
	opts.IoUThreshold = 0

	res, err := mustPipeline(t, fixedScorer(dets), opts).Run(testImage())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Count != 2 {
		t.Errorf("Expected the slightly overlapping box to be suppressed, got count %d", res.Count)
	}
}

// ========================================
// Properties
// ========================================

func TestRun_HigherThresholdNeverCountsMore(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		dets := randomDetections(rng, 40)
		lowOpts, highOpts := DefaultOptions(), DefaultOptions()
		lowOpts.ConfidenceThreshold = 0.1
		highOpts.ConfidenceThreshold = 0.6
		low := mustPipeline(t, fixedScorer(dets), lowOpts)
		high := mustPipeline(t, fixedScorer(dets), highOpts)

		lowRes, err := low.Run(testImage())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		highRes, err := high.Run(testImage())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if highRes.Count > lowRes.Count {
			t.Errorf("Round %d: count at 0.6 (%d) exceeds count at 0.1 (%d)", round, highRes.Count, lowRes.Count)
		}
	}
}

func TestRun_OutputInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	opts := DefaultOptions()
	for round := 0; round < 50; round++ {
		dets := randomDetections(rng, 60)
		p := mustPipeline(t, fixedScorer(dets), opts)

		res, err := p.Run(testImage())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if res.Count != len(res.Detections) {
			t.Fatalf("Count %d does not match %d detections", res.Count, len(res.Detections))
		}

		for i, d := range res.Detections {
			if d.ClassID != PersonClassID {
				t.Errorf("Round %d: detection %d has class %d", round, i, d.ClassID)
			}
			if d.Confidence < opts.ConfidenceThreshold {
				t.Errorf("Round %d: detection %d below threshold: %.3f", round, i, d.Confidence)
			}
			if !containsDetection(dets, d) {
				t.Errorf("Round %d: detection %d was not produced by the scorer", round, i)
			}
			for j := i + 1; j < len(res.Detections); j++ {
				if iou := IoU(d.Box, res.Detections[j].Box); iou > opts.IoUThreshold {
					t.Errorf("Round %d: detections %d and %d overlap with IoU %.3f", round, i, j, iou)
				}
			}
		}
	}
}

func containsDetection(haystack []Detection, d Detection) bool {
	for _, h := range haystack {
		if h == d {
			return true
		}
	}
	return false
}
