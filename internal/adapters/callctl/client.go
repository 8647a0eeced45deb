// Package callctl implements the remote call-control API client.
package callctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kaverel/callbridge/internal/adapters/circuitbreaker"
	"github.com/kaverel/callbridge/internal/adapters/retry"
	"github.com/kaverel/callbridge/internal/domain"
	"github.com/kaverel/callbridge/internal/ports"
)

const requestTimeout = 15 * time.Second

// Client talks to the call-control REST API. Mutating requests go through
// the circuit breaker but are never retried (a repeated hold or source
// switch is not safe); only the idempotent stats poll uses backoff.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	retryConfig retry.BackoffConfig
	breaker     *circuitbreaker.CircuitBreaker
}

var _ ports.CallControl = (*Client)(nil)

// NewClient creates a call-control client for the given base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		retryConfig: retry.DefaultConfig(),
		breaker:     circuitbreaker.New(5, 30*time.Second),
	}
}

type holdBody struct {
	Message        string `json:"message,omitempty"`
	PauseRecording bool   `json:"pause_recording,omitempty"`
}

type switchSourceBody struct {
	Target    string `json:"target"`
	HumanName string `json:"human_name,omitempty"`
}

type playToAllBody struct {
	PlayToAll bool `json:"play_to_all"`
}

type playAudioBody struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Loop      bool   `json:"loop,omitempty"`
	Immediate bool   `json:"immediate,omitempty"`
}

type errorBody struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// APIError carries the server-provided failure message when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("call-control request failed (status %d)", e.Status)
}

func (c *Client) HoldCall(ctx context.Context, req ports.HoldRequest) error {
	return c.mutate(ctx, http.MethodPost, "/calls/"+req.CallID+"/hold", holdBody{
		Message:        req.Message,
		PauseRecording: req.PauseRecording,
	})
}

func (c *Client) UnholdCall(ctx context.Context, callID string) error {
	return c.mutate(ctx, http.MethodPost, "/calls/"+callID+"/unhold", nil)
}

func (c *Client) SwitchSource(ctx context.Context, req ports.SwitchSourceRequest) error {
	return c.mutate(ctx, http.MethodPost, "/calls/"+req.CallID+"/source", switchSourceBody{
		Target:    req.Target,
		HumanName: req.HumanName,
	})
}

func (c *Client) StartAgent(ctx context.Context, callID string) error {
	return c.mutate(ctx, http.MethodPost, "/calls/"+callID+"/agent/start", nil)
}

func (c *Client) StopAgent(ctx context.Context, callID string) error {
	return c.mutate(ctx, http.MethodPost, "/calls/"+callID+"/agent/stop", nil)
}

func (c *Client) UpdatePlayToAll(ctx context.Context, callID string, playToAll bool) error {
	return c.mutate(ctx, http.MethodPut, "/calls/"+callID+"/play-to-all", playToAllBody{PlayToAll: playToAll})
}

func (c *Client) PlayAudio(ctx context.Context, req ports.PlayAudioRequest) error {
	return c.mutate(ctx, http.MethodPost, "/calls/"+req.CallID+"/audio", playAudioBody{
		Type:      req.Type,
		Value:     req.Value,
		Loop:      req.Loop,
		Immediate: req.Immediate,
	})
}

func (c *Client) GetCallStats(ctx context.Context) (*ports.CallStats, error) {
	var stats ports.CallStats
	err := c.breaker.Execute(func() error {
		return retry.WithBackoff(ctx, c.retryConfig, func() error {
			return c.doJSON(ctx, http.MethodGet, "/calls/current/stats", nil, &stats)
		})
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return &stats, nil
}

func (c *Client) mutate(ctx context.Context, method, path string, body any) error {
	return mapBreakerErr(c.breaker.Execute(func() error {
		return c.doJSON(ctx, method, path, body, nil)
	}))
}

// mapBreakerErr surfaces an open circuit as a domain-level outage.
func mapBreakerErr(err error) error {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return fmt.Errorf("%w: %v", domain.ErrControlUnavailable, err)
	}
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call-control request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// apiError extracts the server-provided message from an error response.
func (c *Client) apiError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return apiErr
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			apiErr.Message = body.Error
		} else if body.Message != "" {
			apiErr.Message = body.Message
		}
	}
	return apiErr
}
