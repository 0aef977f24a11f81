// Package detection counts people in an image: it asks a Scorer for candidates,
// keeps confident person detections and removes duplicate boxes.
package detection

import (
	"fmt"
	"image"
	"math"
)

// Options tunes a Pipeline. Start from DefaultOptions. A threshold of 0 is a
// real value (keep everything / suppress any overlap); only negative or NaN
// thresholds and a non-positive InputSize fall back to the defaults.
type Options struct {
	InputSize           int
	ConfidenceThreshold float64
	IoUThreshold        float64
	ClassID             int
}

// DefaultOptions returns the thresholds used in production.
func DefaultOptions() Options {
	return Options{
		InputSize:           DefaultInputSize,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		IoUThreshold:        DefaultIoUThreshold,
		ClassID:             PersonClassID,
	}
}

// Pipeline holds one initialized scorer and the filter settings.
type Pipeline struct {
	scorer Scorer
	opts   Options
}

// NewPipeline binds a scorer to the pipeline. A nil scorer is a DependencyError.
func NewPipeline(scorer Scorer, opts Options) (*Pipeline, error) {
	if scorer == nil {
		return nil, &DependencyError{Component: "scorer"}
	}
	if opts.InputSize <= 0 {
		opts.InputSize = DefaultInputSize
	}
	if opts.ConfidenceThreshold < 0 || math.IsNaN(opts.ConfidenceThreshold) {
		opts.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if opts.IoUThreshold < 0 || math.IsNaN(opts.IoUThreshold) {
		opts.IoUThreshold = DefaultIoUThreshold
	}
	return &Pipeline{scorer: scorer, opts: opts}, nil
}

// Options returns the effective settings.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Run scores img and returns the surviving person detections.
func (p *Pipeline) Run(img image.Image) (*Result, error) {
	if img == nil {
		return nil, &InputError{Reason: "no image"}
	}
	if img.Bounds().Empty() {
		return nil, &InputError{Reason: "image has no pixels"}
	}

	raw, err := p.scorer.Score(img, p.opts.InputSize)
	if err != nil {
		return nil, fmt.Errorf("failed to score image: %w", err)
	}

	people := FilterClass(raw, p.opts.ClassID)
	confident := FilterConfidence(people, p.opts.ConfidenceThreshold)
	final := Suppress(confident, p.opts.IoUThreshold)

	return &Result{
		Count:      len(final),
		Detections: final,
	}, nil
}
