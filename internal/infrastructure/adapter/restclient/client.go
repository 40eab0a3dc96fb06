// Package restclient implements the directory, ledger and unit of work on top
// of the remote REST store (users, transactions and banks collections). Reads
// are retried on transient failures; writes are sent once and undone through
// the saga journal on rollback.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/retry"
)

// Config holds the remote store settings
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retry   retry.Config
}

// StatusError is a non-2xx answer from the remote store
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote store %s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

// Unwrap makes every remote failure match ErrStoreUnavailable
func (e *StatusError) Unwrap() error {
	return errs.ErrStoreUnavailable
}

// Client talks JSON to the remote store
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      retry.Config
	logger     coreport.Logger
}

// NewClient creates a remote store client
func NewClient(config Config, logger coreport.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("remote store base url is empty")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid remote store base url: %w", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		retry:      config.Retry,
		logger:     logger,
	}, nil
}

// get fetches path into out, retrying transient failures
func (c *Client) get(ctx context.Context, path string, out any) error {
	return retry.Do(ctx, c.retry, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, path, nil, out)
	}, isTransient, c.logger)
}

// send performs a single write; it is never retried
func (c *Client) send(ctx context.Context, method, path string, payload, out any) error {
	return c.do(ctx, method, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := coreport.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Remote store request failed", map[string]any{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return fmt.Errorf("%w: %s %s: %w", errs.ErrStoreUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Remote store request", map[string]any{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// isNotFound reports a 404 from the store
func isNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// isTransient classifies errors worth another read attempt
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return retry.IsTransientError(err)
}
