// Package backend is the HTTP client for the CRM backend. Every call
// forwards the caller's bearer token; nothing is retried automatically.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"contract-sender/pkg/logger"
	"contract-sender/pkg/metrics"
)

// APIError is a non-2xx response. Message is the server's own error text
// when it sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (%d): %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type tokenKey struct{}

// WithToken attaches the bearer token forwarded on every request made
// with the returned context.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey{}).(string); ok {
		return v
	}
	return ""
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Token is used when the request context carries none (CLI use).
	Token string

	// CallLogLimit is sent as ?limit= when listing call logs.
	CallLogLimit int
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		HTTPClient:   &http.Client{Timeout: timeout},
		CallLogLimit: 10000,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := tokenFrom(ctx)
	if token == "" {
		token = c.Token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.BackendRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.BackendRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	logger.From(ctx).Debug("backend request",
		"method", method, "path", path, "status", resp.StatusCode,
		"duration_ms", float64(time.Since(start).Milliseconds()))

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if raw, ok := result.(*json.RawMessage); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		*raw = b
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage pulls the human-readable message out of an error body.
func errorMessage(raw []byte, fallback string) string {
	var body map[string]any
	if json.Unmarshal(raw, &body) == nil {
		for _, k := range []string{"message", "error", "detail"} {
			if s, ok := body[k].(string); ok && s != "" {
				return s
			}
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return fallback
}

// listKeys are the envelope keys the backend wraps collections in.
var listKeys = []string{"data", "records", "items", "results"}

// decodeList accepts a bare array or an object envelope. extra names
// resource-specific keys tried after the common ones.
func decodeList[T any](raw json.RawMessage, extra ...string) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}
	if raw[0] == '[' {
		var out []T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("failed to decode list: %w", err)
		}
		return out, nil
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode list envelope: %w", err)
	}
	for _, k := range append(listKeys, extra...) {
		v, ok := env[k]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) > 0 && v[0] == '{' {
			// Nested envelope, e.g. {"data": {"items": [...]}}.
			return decodeList[T](v, extra...)
		}
		var out []T
		if err := json.Unmarshal(v, &out); err != nil {
			return nil, fmt.Errorf("failed to decode %q: %w", k, err)
		}
		if out == nil {
			out = []T{}
		}
		return out, nil
	}
	return nil, errors.New("invalid response format for list")
}

// decodeOne accepts a bare object or one wrapped in "data".
func decodeOne[T any](raw json.RawMessage, extra ...string) (T, error) {
	var out T
	raw = bytes.TrimSpace(raw)
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err == nil {
		for _, k := range append([]string{"data"}, extra...) {
			if v, ok := env[k]; ok && len(bytes.TrimSpace(v)) > 0 && bytes.TrimSpace(v)[0] == '{' {
				raw = v
				break
			}
		}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

func escape(s string) string { return url.PathEscape(s) }
