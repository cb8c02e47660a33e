package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"laptop-checkpoint/internal/cloud/models"
	"laptop-checkpoint/internal/config"
	"laptop-checkpoint/internal/store"

	"github.com/sirupsen/logrus"
)

// HTTPClient provides authenticated HTTP communication with the checkpoint service.
// It is constructed explicitly and passed to its users; the token refresh state
// belongs to the instance.
type HTTPClient struct {
	httpClient *http.Client
	tokens     TokenStore
	baseURL    string
	logger     *logrus.Logger

	mu          sync.Mutex
	refreshing  bool
	subscribers []chan refreshResult
}

type refreshResult struct {
	accessToken string
	err         error
}

// NewHTTPClient creates a new HTTP client with a fixed read timeout
func NewHTTPClient(cfg *config.Config, tokens TokenStore, logger *logrus.Logger) (*HTTPClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
	}

	return &HTTPClient{
		httpClient: httpClient,
		tokens:     tokens,
		baseURL:    strings.TrimSuffix(cfg.ServerURL, "/"),
		logger:     logger,
	}, nil
}

// Request represents an HTTP request to be made
type Request struct {
	Method      string
	Path        string
	Query       map[string]string
	Body        interface{}
	RequireAuth bool
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// APIError is returned for every failed remote call. StatusCode is zero when
// the request never produced a response.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote request failed: %s", e.Message)
	}
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is makes every APIError match store.ErrRemoteUnavailable and 404s match
// store.ErrNotFound. Stores that can tell a refused write apart convert it to
// store.ErrValidation before it reaches the coordinator.
func (e *APIError) Is(target error) bool {
	switch target {
	case store.ErrRemoteUnavailable:
		return true
	case store.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// Do executes an HTTP request. A 401 on an authenticated request triggers one
// token refresh and one replay; nothing else is retried.
func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	token := ""
	if req.RequireAuth {
		tokens, err := c.tokens.Load(ctx)
		if err != nil {
			c.logger.WithError(err).Warn("Failed to load auth tokens")
		} else if tokens != nil {
			token = tokens.AccessToken
		}
	}

	resp, err := c.doRequest(ctx, req, token)
	if err != nil {
		return resp, err
	}

	if resp.StatusCode == http.StatusUnauthorized && req.RequireAuth {
		c.logger.WithField("path", req.Path).Debug("Access token rejected, refreshing")

		newToken, refreshErr := c.refreshAccessToken(ctx)
		if refreshErr != nil {
			return resp, &APIError{StatusCode: http.StatusUnauthorized, Message: "token refresh failed", Err: refreshErr}
		}

		resp, err = c.doRequest(ctx, req, newToken)
		if err != nil {
			return resp, err
		}
	}

	if resp.StatusCode >= 400 {
		return resp, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	return resp, nil
}

// doRequest performs a single HTTP request
func (c *HTTPClient) doRequest(ctx context.Context, req *Request, token string) (*Response, error) {
	fullURL := c.baseURL + req.Path

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for key, value := range req.Query {
			q.Set(key, value)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.WithFields(logrus.Fields{
		"method":        req.Method,
		"url":           fullURL,
		"authenticated": token != "",
	}).Debug("Making HTTP request")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &APIError{Message: err.Error(), Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Message: "failed to read response body", Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"status_code": httpResp.StatusCode,
		"body_length": len(respBody),
	}).Debug("HTTP response received")

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
	}, nil
}

// refreshAccessToken exchanges the stored refresh token for a new pair.
// Callers arriving while a refresh is in flight subscribe to its result
// instead of starting another.
func (c *HTTPClient) refreshAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan refreshResult, 1)
		c.subscribers = append(c.subscribers, ch)
		c.mu.Unlock()

		select {
		case res := <-ch:
			return res.accessToken, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	token, err := c.doRefresh(ctx)

	c.mu.Lock()
	subscribers := c.subscribers
	c.subscribers = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range subscribers {
		ch <- refreshResult{accessToken: token, err: err}
	}

	return token, err
}

func (c *HTTPClient) doRefresh(ctx context.Context) (string, error) {
	tokens, err := c.tokens.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load auth tokens: %w", err)
	}
	if tokens == nil || tokens.RefreshToken == "" {
		return "", fmt.Errorf("no refresh token available")
	}

	resp, err := c.doRequest(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Body:   &models.RefreshRequest{RefreshToken: tokens.RefreshToken},
	}, "")
	if err == nil && resp.StatusCode >= 400 {
		err = &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	var pair models.TokenResponse
	if err == nil {
		err = parseJSONResponse(resp, &pair)
	}
	if err == nil && pair.AccessToken == "" {
		err = fmt.Errorf("refresh response carried no access token")
	}

	if err != nil {
		if clearErr := c.tokens.Clear(ctx); clearErr != nil {
			c.logger.WithError(clearErr).Warn("Failed to clear auth tokens")
		}
		return "", err
	}

	if pair.RefreshToken == "" {
		pair.RefreshToken = tokens.RefreshToken
	}
	if err := c.tokens.Save(ctx, Tokens{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}); err != nil {
		c.logger.WithError(err).Warn("Failed to store refreshed auth tokens")
	}

	c.logger.Info("Access token refreshed")
	return pair.AccessToken, nil
}

// Close closes the HTTP client and cleans up resources
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// IsNetworkError reports whether err is a transport failure rather than an
// HTTP error response
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	networkErrors := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"no such host",
		"network is unreachable",
		"i/o timeout",
	}

	for _, netErr := range networkErrors {
		if strings.Contains(errStr, netErr) {
			return true
		}
	}

	return false
}

// parseJSONResponse parses a JSON response into the provided interface
func parseJSONResponse(resp *Response, v interface{}) error {
	if resp == nil {
		return fmt.Errorf("response is nil")
	}

	if len(resp.Body) == 0 {
		return fmt.Errorf("response body is empty")
	}

	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON response: %w", err)
	}

	return nil
}

// errorMessage extracts the message of a service error body
func errorMessage(body []byte) string {
	var errResp models.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return errResp.Message
	}
	return strings.TrimSpace(string(body))
}
