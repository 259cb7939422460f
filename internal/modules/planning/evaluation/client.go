package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/evaluation/models"
)

// DefaultClientTimeout bounds one remote batch evaluation.
const DefaultClientTimeout = 120 * time.Second

// Client communicates with the remote evaluation service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new evaluation service client.
// A zero timeout uses DefaultClientTimeout.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("component", "evaluation_client").Logger(),
	}
}

// BaseURL returns the evaluator address this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BatchEvaluate sends a batch of sequences to the evaluation service.
// Results come back in request order; a response with a different number of
// results is an error.
func (c *Client) BatchEvaluate(ctx context.Context, req models.BatchEvaluationRequest) (*models.BatchEvaluationResponse, error) {
	if len(req.Sequences) == 0 {
		return nil, fmt.Errorf("no sequences to evaluate")
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/evaluate/batch", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.log.Debug().
		Int("sequence_count", len(req.Sequences)).
		Str("url", url).
		Msg("Sending batch evaluation request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("evaluation service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response models.BatchEvaluationResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(response.Results) != len(req.Sequences) {
		return nil, fmt.Errorf("evaluation service returned %d results for %d sequences",
			len(response.Results), len(req.Sequences))
	}

	c.log.Info().
		Int("sequence_count", len(req.Sequences)).
		Float64("elapsed_seconds", time.Since(startTime).Seconds()).
		Msg("Remote batch evaluation complete")

	return &response, nil
}

// HealthCheck checks if the evaluation service is available.
func (c *Client) HealthCheck(ctx context.Context) (*models.HealthResponse, error) {
	url := fmt.Sprintf("%s/api/v1/health", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	var health models.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}

	c.log.Debug().
		Str("status", health.Status).
		Str("version", health.Version).
		Msg("Evaluation service health check passed")
	return &health, nil
}
