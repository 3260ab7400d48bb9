// Package ollama implements domain.Inferrer against an Ollama-compatible
// generate endpoint serving a vision model.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Client sends single prompt+image generation requests to the inference
// service. Calls are synchronous with a bounded timeout; a circuit breaker
// keeps a dead service from stalling every reading of a long batch for the
// full timeout.
type Client struct {
	url        string
	model      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates an inference client for the given generate endpoint and
// model name.
func NewClient(url, model string, timeout time.Duration, logger *slog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ollama",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		url:        url,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		logger:     logger,
	}
}

// generateRequest is the Ollama generate API payload. Streaming is disabled:
// the caller wants one complete free-text reply to parse.
type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Infer sends the prompt with one embedded PNG and returns the model's raw
// free-text reply.
func (c *Client) Infer(ctx context.Context, prompt string, imagePNG []byte) (string, error) {
	payload := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(imagePNG)},
		Stream: false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal inference request: %w", err)
	}

	reply, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, body)
	})
	if err != nil {
		return "", err
	}
	return reply.(string), nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("inference service error: status %d: %s", resp.StatusCode, snippet)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode inference response: %w", err)
	}
	return out.Response, nil
}
