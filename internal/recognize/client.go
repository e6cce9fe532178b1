// Package recognize wraps the external detection and text-recognition
// engines behind a single adapter producing a normalized plate reading.
package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Region is one candidate plate region reported by the detection engine,
// ordered best-first by the engine itself. Crop carries the region pixels
// so no image decoding happens on this side.
type Region struct {
	Confidence float64 `json:"confidence"`
	Crop       []byte  `json:"crop_b64"`
}

// Span is one recognized text fragment with its own confidence.
type Span struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Client talks to the inference service over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient builds a client for the inference service at baseURL.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// Detect asks the detection engine for candidate plate regions in the image.
func (c *Client) Detect(ctx context.Context, imagePath string) ([]Region, error) {
	var out struct {
		Regions []Region `json:"regions"`
	}
	if err := c.post(ctx, "/detect", map[string]string{"image_path": imagePath}, &out); err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	return out.Regions, nil
}

// Read asks the recognition engine for text spans in the cropped region.
func (c *Client) Read(ctx context.Context, crop []byte) ([]Span, error) {
	var out struct {
		Spans []Span `json:"spans"`
	}
	if err := c.post(ctx, "/read", map[string][]byte{"crop_b64": crop}, &out); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return out.Spans, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request inference service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
