package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ModelFunc adapts a plain function to the model runtime port.
type ModelFunc func(ctx context.Context, tensor []int8) ([]float64, error)

func (f ModelFunc) Infer(ctx context.Context, tensor []int8) ([]float64, error) {
	return f(ctx, tensor)
}

// HTTPModel calls a sidecar inference server that hosts the quantized model.
// The sidecar owns the model format; this adapter only moves tensors.
type HTTPModel struct {
	url    string
	client *http.Client
}

func NewHTTPModel(url string, timeout time.Duration) *HTTPModel {
	return &HTTPModel{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type inferRequest struct {
	Tensor []int8 `json:"tensor"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type inferResponse struct {
	Output []float64 `json:"output"`
	Error  string    `json:"error,omitempty"`
}

func (m *HTTPModel) Infer(ctx context.Context, tensor []int8) ([]float64, error) {
	body, err := json.Marshal(inferRequest{Tensor: tensor})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tensor: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference server returned status %d", resp.StatusCode)
	}

	var out inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("inference server error: %s", out.Error)
	}
	return out.Output, nil
}
