package tableau

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// defaultAPIVersion is the REST API version requested on every call.
	// 3.4+ is required for PAT sign-in; anything modern accepts this.
	defaultAPIVersion = "3.22"

	userAgent = "tableau-refresh-go/0.1"
)

// Client is an HTTP client for the Tableau REST API (JSON wire format).
//
// Requests are single-shot: a failed sign-in, listing, or trigger call is
// fatal to the invocation and never retried here. The only retry in this
// package is the bounded transient-failure budget inside WaitForJob.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger

	// sleepFunc waits between job polls and nowFunc reads the wall clock.
	// Tests override both to run the poll loop without real timers.
	sleepFunc func(ctx context.Context, d time.Duration) error
	nowFunc   func() time.Time
}

// NewClient creates a client for the Tableau server at serverURL
// (scheme + host, no /api suffix).
func NewClient(serverURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(serverURL, "/"),
		apiVersion: defaultAPIVersion,
		httpClient: httpClient,
		logger:     logger,
		sleepFunc:  timeSleep,
		nowFunc:    time.Now,
	}
}

// WithClock overrides the sleep and wall-clock functions and returns the
// client. Tests use it to drive the poll loop without real timers.
func (c *Client) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *Client {
	if now != nil {
		c.nowFunc = now
	}

	if sleep != nil {
		c.sleepFunc = sleep
	}

	return c
}

// errorResponse mirrors the REST API error envelope.
type errorResponse struct {
	Error struct {
		Summary string `json:"summary"`
		Detail  string `json:"detail"`
		Code    string `json:"code"`
	} `json:"error"`
}

// do executes a single authenticated request against the REST API.
// path is relative to /api/{version}. authToken is empty for sign-in.
// Non-2xx responses become an *APIError with the parsed error envelope.
func (c *Client) do(ctx context.Context, method, path, authToken string, payload any) ([]byte, error) {
	url := fmt.Sprintf("%s/api/%s%s", c.baseURL, c.apiVersion, path)

	var bodyReader io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}

		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authToken != "" {
		req.Header.Set("X-Tableau-Auth", authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode}

		var envelope errorResponse
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Summary = envelope.Error.Summary
			apiErr.Detail = envelope.Error.Detail
		} else {
			apiErr.Detail = truncate(string(body), 200)
		}

		c.logger.Debug("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("code", apiErr.Code),
		)

		return nil, apiErr
	}

	c.logger.Debug("request succeeded",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	return body, nil
}

// get executes a GET and unmarshals the response into dest.
func (c *Client) get(ctx context.Context, path, authToken string, dest any) error {
	body, err := c.do(ctx, http.MethodGet, path, authToken, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("GET %s: parsing response: %w", path, err)
	}

	return nil
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	return s[:maxLen] + "..."
}
