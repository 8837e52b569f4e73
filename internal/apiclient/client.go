package apiclient

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

	"go.uber.org/zap"
)

var (
	// ErrTransport wraps failures where no response was received
	ErrTransport = errors.New("backend unreachable")
	// ErrContractViolation is returned when a request does not match the backend contract
	ErrContractViolation = errors.New("request violates backend contract")
)

// APIError is a non-2xx response from the backend
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an APIError
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns the server-provided message in err, or fallback
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// TokenSource supplies the bearer token for outbound calls. An empty token means the
// request is sent without an Authorization header.
type TokenSource interface {
	Token() string
}

// Options configures a Client
type Options struct {
	Timeout    time.Duration
	HTTPClient *http.Client
	Validator  *ContractValidator
}

// Client calls the HealthMate REST backend. Every call is sent once: no retry, no caching.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	validator  *ContractValidator
	logger     *zap.Logger

	Auth     *AuthAPI
	Files    *FileAPI
	Insights *InsightAPI
	Vitals   *VitalsAPI
}

// New creates a Client for the backend at baseURL
func New(baseURL string, tokens TokenSource, opts Options, logger *zap.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		validator:  opts.Validator,
		logger:     logger,
	}
	c.Auth = &AuthAPI{c: c}
	c.Files = &FileAPI{c: c}
	c.Insights = &InsightAPI{c: c}
	c.Vitals = &VitalsAPI{c: c}
	return c
}

// envelope is the response body shape shared by all backend endpoints
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// request describes one outbound call
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	req := request{method: method, path: path}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return req, fmt.Errorf("failed to encode request body: %w", err)
		}
		req.body = body
		req.contentType = "application/json"
	}
	return req, nil
}

// do sends r and decodes the envelope data into out when out is non-nil
func (c *Client) do(ctx context.Context, r request, out any) error {
	if c.validator != nil {
		if err := c.validator.Validate(ctx, r.method, r.path, r.contentType, r.body); err != nil {
			c.logger.Warn("request rejected by contract validation",
				zap.String("method", r.method),
				zap.String("path", r.path),
				zap.Error(err),
			)
			return err
		}
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, r.method, r.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	c.logger.Debug("backend request completed",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(startTime)),
	)

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := env.Message
		if decodeErr != nil || message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func() string

// Token implements TokenSource
func (f TokenFunc) Token() string {
	return f()
}
