// Package ollama is a client for the non-streaming /api/generate endpoint.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"InferenceMeter/pkg/metrics"

	"github.com/go-resty/resty/v2"
)

// ErrStatus is matched by every *StatusError.
var ErrStatus = errors.New("ollama: unexpected status")

// StatusError reports a non-200 reply from the model server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("LLM API Error: %d", e.Code)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// GenerateRequest is the body posted to the generate endpoint.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GenerateResponse holds the fields read from the reply. Absent counters
// decode as zero.
type GenerateResponse struct {
	Model              string `json:"model"`
	Response           string `json:"response"`
	Done               bool   `json:"done"`
	TotalDuration      int64  `json:"total_duration"`
	LoadDuration       int64  `json:"load_duration"`
	PromptEvalDuration int64  `json:"prompt_eval_duration"`
	EvalDuration       int64  `json:"eval_duration"`
	EvalCount          int64  `json:"eval_count"`
	PromptEvalCount    int64  `json:"prompt_eval_count"`
}

// Counters extracts the timing counters.
func (r *GenerateResponse) Counters() metrics.Counters {
	return metrics.Counters{
		TotalDurationNs:      r.TotalDuration,
		LoadDurationNs:       r.LoadDuration,
		PromptEvalDurationNs: r.PromptEvalDuration,
		EvalDurationNs:       r.EvalDuration,
		EvalCount:            r.EvalCount,
		PromptEvalCount:      r.PromptEvalCount,
	}
}

// Config represents client configuration.
type Config struct {
	Endpoint      string
	Model         string
	Timeout       time.Duration
	RetryCount    int
	RetryWaitTime time.Duration
}

// Client posts prompts to a single generate endpoint.
type Client struct {
	client   *resty.Client
	endpoint string
	model    string
}

// NewClient creates a client. A zero Timeout waits for the model as long as
// it takes.
func NewClient(cfg Config) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.RetryWaitTime > 0 {
		client.SetRetryWaitTime(cfg.RetryWaitTime)
	}

	return &Client{
		client:   client,
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
	}
}

// Model returns the model name sent with every request.
func (c *Client) Model() string { return c.model }

// Generate sends prompt and blocks until the full reply arrives.
func (c *Client) Generate(ctx context.Context, prompt string) (*GenerateResponse, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(GenerateRequest{Model: c.model, Prompt: prompt, Stream: false}).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("generate request: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, &StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}

	var out GenerateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}
	return &out, nil
}
