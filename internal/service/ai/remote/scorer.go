// Package remote delegates scoring to an HTTP inference service.
package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"peoplecounter/internal/logger"
	"peoplecounter/internal/service/detection"
)

// DefaultTimeout bounds one inference round trip.
const DefaultTimeout = 60 * time.Second

// Scorer posts images to <baseURL>/predict. The service replies with rows of
// [x1, y1, x2, y2, confidence, class] in source pixel coordinates.
type Scorer struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

type predictResponse struct {
	Detections [][]float64 `json:"detections"`
}

// NewScorer checks the service health before returning.
func NewScorer(baseURL string, timeout time.Duration, logger *logger.Logger) (*Scorer, error) {
	if baseURL == "" {
		return nil, &detection.DependencyError{Component: "remote scorer", Err: fmt.Errorf("inference URL is not set")}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	s := &Scorer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
	if err := s.CheckHealth(); err != nil {
		return nil, &detection.DependencyError{Component: "remote scorer", Err: err}
	}

	logger.Info("Remote inference service available at %s", s.baseURL)
	return s, nil
}

// CheckHealth reports whether the inference service answers /health.
func (s *Scorer) CheckHealth() error {
	resp, err := s.client.Get(s.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

// Score sends img as PNG together with the requested input size.
func (s *Scorer) Score(img image.Image, inputSize int) ([]detection.Detection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := png.Encode(part, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := writer.WriteField("size", strconv.Itoa(inputSize)); err != nil {
		return nil, fmt.Errorf("write size field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	dets := make([]detection.Detection, 0, len(result.Detections))
	for i, row := range result.Detections {
		if len(row) < 6 {
			return nil, fmt.Errorf("detection %d has %d fields, want 6", i, len(row))
		}
		dets = append(dets, detection.Detection{
			Box:        detection.Box{X1: row[0], Y1: row[1], X2: row[2], Y2: row[3]},
			Confidence: row[4],
			ClassID:    int(row[5]),
		})
	}
	return dets, nil
}
