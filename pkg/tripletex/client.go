package tripletex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ClientConfig represents the configuration for the Tripletex API client.
type ClientConfig struct {
	APIURL        string
	ConsumerToken string
	EmployeeToken string
	CompanyID     int64         // 0 means the employee's own company
	TokenLifetime time.Duration // Default: 3 days
	Timeout       time.Duration // Default: 30 seconds
	Retries       int           // Default: 3 attempts for read-only calls
	RetryDelay    time.Duration // Default: 5 seconds
	PageSize      int           // Default: 1000
	MaxPages      int           // Default: 100
}

// Client is a Tripletex API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	companyID  int64
	tokens     oauth2.TokenSource

	retries    int
	retryDelay time.Duration
	pageSize   int
	maxPages   int
}

// NewClient creates a new Tripletex API client. No request is made until the
// first call needs a session token.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	lifetime := config.TokenLifetime
	if lifetime == 0 {
		lifetime = 3 * 24 * time.Hour
	}
	retries := config.Retries
	if retries <= 0 {
		retries = 3
	}
	retryDelay := config.RetryDelay
	if retryDelay == 0 {
		retryDelay = 5 * time.Second
	}
	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	maxPages := config.MaxPages
	if maxPages <= 0 {
		maxPages = 100
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:    strings.TrimRight(config.APIURL, "/"),
		companyID:  config.CompanyID,
		retries:    retries,
		retryDelay: retryDelay,
		pageSize:   pageSize,
		maxPages:   maxPages,
	}
	c.tokens = oauth2.ReuseTokenSource(nil, &sessionTokenSource{
		client:        c,
		consumerToken: config.ConsumerToken,
		employeeToken: config.EmployeeToken,
		lifetime:      lifetime,
		now:           time.Now,
	})
	return c
}

// request describes one API call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

// do sends an authenticated request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("failed to get session token: %w", err)
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}
	httpReq.SetBasicAuth(strconv.FormatInt(c.companyID, 10), token.AccessToken)

	return c.send(httpReq, req, out)
}

func (c *Client) newRequest(ctx context.Context, req request) (*http.Request, error) {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, req.body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	return httpReq, nil
}

func (c *Client) send(httpReq *http.Request, req request, out interface{}) error {
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	slog.Debug("tripletex request", "method", req.method, "path", req.path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(resp, req)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// get performs a read-only call, retried on timeouts and 504 responses.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.withRetry(ctx, path, func() error {
		return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, out)
	})
}

// postJSON performs a write call. Writes are never retried.
func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		body:        bytes.NewReader(body),
		contentType: "application/json",
	}, out)
}

// parseError parses an error response from the Tripletex API.
func (c *Client) parseError(resp *http.Response, req request) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Method:     req.method,
		Path:       req.path,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	apiErr.Body = string(body)

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		apiErr.Message = errResp.Message
		for _, vm := range errResp.ValidationMessages {
			apiErr.Message += fmt.Sprintf("; %s: %s", vm.Field, vm.Message)
		}
	}
	return apiErr
}
