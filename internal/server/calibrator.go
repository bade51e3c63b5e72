package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPCalibrator asks the telemetry source to calibrate by POSTing to its URL.
type HTTPCalibrator struct {
	url    string
	client *http.Client
}

// NewHTTPCalibrator returns a calibrator for url.
func NewHTTPCalibrator(url string) *HTTPCalibrator {
	return &HTTPCalibrator{url: url, client: &http.Client{Timeout: 5 * time.Second}}
}

// RequestCalibration implements session.Calibrator.
func (c *HTTPCalibrator) RequestCalibration(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build calibration request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request calibration: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("calibration request returned %s", resp.Status)
	}
	return nil
}
