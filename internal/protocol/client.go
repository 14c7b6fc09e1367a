// Package protocol implements the REST client for the storytelling backend.
// Every failure leaves this package as an *errors.APIError carrying a machine
// code the error classifier understands.
package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
)

// Client implements interfaces.StoryBackend over HTTP
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	tokens     interfaces.TokenSource
	logger     *logging.Logger
	userAgent  string
	sessionID  string

	refreshGroup singleflight.Group

	mutex sync.RWMutex
	stats RequestStatistics
}

var _ interfaces.StoryBackend = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a client for the API rooted at apiURL
// (e.g. http://localhost:8000/api/v1). tokens may be nil for
// unauthenticated use.
func NewClient(apiURL string, tokens interfaces.TokenSource, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("api url cannot be empty")
	}
	if !strings.HasPrefix(apiURL, "http://") && !strings.HasPrefix(apiURL, "https://") {
		apiURL = "http://" + apiURL
	}
	baseURL, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", apiURL, err)
	}

	client := &Client{
		httpClient: &http.Client{
			Timeout: DefaultRequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
		baseURL:   baseURL,
		tokens:    tokens,
		logger:    logging.GetProtocolLogger(),
		userAgent: fmt.Sprintf("StoryConsole/%s", ClientVersion),
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SessionID returns the identifier sent with every request of this process
func (c *Client) SessionID() string {
	return c.sessionID
}

// Statistics returns a copy of the request statistics
func (c *Client) Statistics() RequestStatistics {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.stats
}

// Close releases idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// call describes one request to the backend
type call struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	out    interface{}
	auth   authMode

	// root resolves path against the server root instead of the API prefix
	root bool
}

// do executes a call. A 401 on an access-token request triggers one token
// refresh followed by a single replay.
func (c *Client) do(ctx context.Context, cl call) error {
	if cl.auth == authAccess && c.accessTokenExpiring() {
		if err := c.refreshShared(ctx); err != nil {
			c.logger.Debug("Refresh ahead of expiry failed", "path", cl.path, "error", err)
		}
	}

	err := c.execute(ctx, cl)
	if cl.auth != authAccess || !isUnauthorized(err) || c.tokens == nil || c.tokens.RefreshToken() == "" {
		return err
	}

	if refreshErr := c.refreshShared(ctx); refreshErr != nil {
		c.logger.Warn("Token refresh after 401 failed", "path", cl.path, "error", refreshErr)
		return err
	}
	return c.execute(ctx, cl)
}

func (c *Client) execute(ctx context.Context, cl call) error {
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		apiErr := transportError(ctx, err)
		apiErr.Method, apiErr.Path = cl.method, cl.path
		c.record(duration, apiErr)
		return apiErr
	}
	defer resp.Body.Close()

	c.logger.LogHTTPRequest(cl.method, req.URL.Path, resp.StatusCode, duration)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := apperrors.NewRequestFailedError("failed to read response body", err)
		apiErr.Method, apiErr.Path = cl.method, cl.path
		c.record(duration, apiErr)
		return apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := apperrors.NewHTTPError(resp.StatusCode, errorDetail(resp, body))
		apiErr.Method, apiErr.Path = cl.method, cl.path
		c.record(duration, apiErr)
		return apiErr
	}

	if cl.out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, cl.out); err != nil {
			apiErr := apperrors.NewRequestFailedError("invalid response body", err)
			apiErr.Method, apiErr.Path = cl.method, cl.path
			c.record(duration, apiErr)
			return apiErr
		}
	}

	c.record(duration, nil)
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, apperrors.NewRequestFailedError("failed to encode request body", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.buildURL(cl), body)
	if err != nil {
		return nil, apperrors.NewRequestFailedError("failed to create request", err)
	}

	c.setStandardHeaders(req)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.setAuthenticationHeader(req, cl.auth); err != nil {
		return nil, err
	}
	return req, nil
}

// buildURL joins the base URL and the endpoint path
func (c *Client) buildURL(cl call) string {
	u := *c.baseURL
	if cl.root {
		u.Path = cl.path
	} else {
		u.Path = strings.TrimRight(c.baseURL.Path, "/") + cl.path
	}
	u.RawQuery = ""
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}
	return u.String()
}

// setStandardHeaders sets common headers for all requests
func (c *Client) setStandardHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Session-ID", c.sessionID)
	req.Header.Set("X-Request-ID", uuid.NewString())
}

func (c *Client) setAuthenticationHeader(req *http.Request, mode authMode) error {
	if c.tokens == nil {
		return nil
	}

	var token string
	switch mode {
	case authAccess:
		token = c.tokens.AccessToken()
	case authRefresh:
		token = c.tokens.RefreshToken()
	default:
		return nil
	}
	if token == "" {
		return nil
	}

	if m, ok := c.tokens.(interfaces.AuthManager); ok {
		header, err := m.CreateAuthHeader(token)
		if err != nil {
			return apperrors.NewRequestFailedError("failed to create authorization header", err)
		}
		req.Header.Set("Authorization", header)
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// accessTokenExpiring reports whether the access token expires within
// RefreshSkew and a refresh token is there to replace it
func (c *Client) accessTokenExpiring() bool {
	m, ok := c.tokens.(interfaces.AuthManager)
	if !ok || m.RefreshToken() == "" {
		return false
	}
	return m.AccessTokenExpired(RefreshSkew)
}

// refreshShared coalesces concurrent refreshes triggered by parallel 401s
func (c *Client) refreshShared(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		return c.Refresh(ctx)
	})
	return err
}

func (c *Client) record(duration time.Duration, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := &c.stats
	stats.TotalRequests++
	stats.LastRequestTime = time.Now()
	if err == nil {
		stats.SuccessfulRequests++
	} else {
		stats.FailedRequests++
		stats.LastError = err.Error()
	}

	if stats.TotalRequests == 1 {
		stats.AverageResponseTime = duration
	} else {
		total := stats.AverageResponseTime * time.Duration(stats.TotalRequests-1)
		stats.AverageResponseTime = (total + duration) / time.Duration(stats.TotalRequests)
	}
}

// transportError maps a failed round trip onto a transport code
func transportError(ctx context.Context, err error) *apperrors.APIError {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewTimeoutError(err)
	}
	if stderrors.Is(err, context.Canceled) {
		return apperrors.NewRequestFailedError("request cancelled", err)
	}
	return apperrors.NewNetworkError(err)
}

// errorDetail extracts the human-readable detail of an error response
func errorDetail(resp *http.Response, body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != nil {
		switch detail := parsed.Detail.(type) {
		case string:
			return detail
		case []interface{}:
			messages := make([]string, 0, len(detail))
			for _, item := range detail {
				if field, ok := item.(map[string]interface{}); ok {
					if msg, ok := field["msg"].(string); ok {
						messages = append(messages, msg)
					}
				}
			}
			if len(messages) > 0 {
				return strings.Join(messages, "; ")
			}
		}
	}
	return resp.Status
}

func isUnauthorized(err error) bool {
	var apiErr *apperrors.APIError
	return stderrors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
