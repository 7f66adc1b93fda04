// Package faceservice talks to the external face detection and embedding server.
package faceservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

const (
	defaultURL     = "http://localhost:8000"
	defaultTimeout = 10 * time.Second
	jpegQuality    = 90
)

// Client detects faces and computes embeddings over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new face service client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type detectedFace struct {
	BBox     []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore float64   `json:"det_score"`
}

type detectResponse struct {
	Faces []detectedFace `json:"faces"`
}

type embedResponse struct {
	Dim        int         `json:"dim"`
	Embeddings [][]float64 `json:"embeddings"`
	Model      string      `json:"model"`
}

// postImage encodes img as JPEG and posts it with extra form fields.
func (c *Client) postImage(ctx context.Context, endpoint string, img image.Image, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if err := jpeg.Encode(part, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Detect returns face regions in img's coordinate space. Malformed boxes are dropped.
func (c *Client) Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	body, err := c.postImage(ctx, "/detect/face", img, nil)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	origin := img.Bounds().Min
	boxes := make([]image.Rectangle, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if r, ok := facematch.BoxFromCorners(f.BBox); ok {
			boxes = append(boxes, r.Add(origin))
		}
	}
	return boxes, nil
}

// Embed computes one embedding per box, in box order.
func (c *Client) Embed(ctx context.Context, img image.Image, boxes []image.Rectangle) ([][]float64, error) {
	if len(boxes) == 0 {
		return nil, nil
	}

	origin := img.Bounds().Min
	corners := make([][]float64, len(boxes))
	for i, b := range boxes {
		corners[i] = facematch.Corners(b.Sub(origin))
	}
	encoded, err := json.Marshal(corners)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal boxes: %w", err)
	}

	body, err := c.postImage(ctx, "/embed/face", img, map[string]string{"boxes": string(encoded)})
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Embeddings) != len(boxes) {
		return nil, fmt.Errorf("face service returned %d embeddings for %d boxes", len(resp.Embeddings), len(boxes))
	}
	for i, e := range resp.Embeddings {
		if len(e) == 0 {
			return nil, fmt.Errorf("empty embedding returned for box %d", i)
		}
	}
	return resp.Embeddings, nil
}
