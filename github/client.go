package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"contribstats/logger"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 360 * time.Second

	rateLimitRemainingHeader = "X-RateLimit-Remaining"
)

// Client represents a GitHub API client. A single client holds the
// credential and connection pool shared by all concurrent fetches of a
// collection run.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    *url.URL
	timeout    time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout bound
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBaseURL overrides the API base URL
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if parsed, err := url.Parse(raw); err == nil {
			c.baseURL = parsed
		}
	}
}

// NewClient creates a new GitHub API client
func NewClient(token string, opts ...Option) *Client {
	baseURL, _ := url.Parse(defaultBaseURL)
	client := &Client{
		token:      token,
		httpClient: &http.Client{},
		baseURL:    baseURL,
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(client)
	}
	logger.Info("Initializing GitHub client",
		zap.String("base_url", client.baseURL.String()),
		zap.Duration("timeout", client.timeout))
	return client
}

// apiURL resolves a path against the API base URL
func (c *Client) apiURL(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

// page is a fetched response with its body fully read
type page struct {
	status int
	header http.Header
	body   []byte
}

// get performs a single authenticated GET bounded by the client
// timeout. A 403 response with an exhausted rate-limit header fails
// with ErrRateLimitExceeded; a missing header is no determination.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values) (*page, error) {
	reqURL, err := mergeParams(rawURL, params)
	if err != nil {
		return nil, fmt.Errorf("invalid request URL %q: %w", rawURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("token %s", c.token))
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: GET %s exceeded %s", ErrRequestTimeout, reqURL, c.timeout)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := raiseForLimit(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: GET %s exceeded %s", ErrRequestTimeout, reqURL, c.timeout)
		}
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &page{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// raiseForLimit detects an exhausted rate budget from a response.
func raiseForLimit(resp *http.Response) error {
	if resp.StatusCode != http.StatusForbidden {
		return nil
	}
	remaining := resp.Header.Get(rateLimitRemainingHeader)
	if remaining == "0" {
		return ErrRateLimitExceeded
	}
	return nil
}

// mergeParams appends query parameters to a URL, keeping any already
// encoded in it.
func mergeParams(rawURL string, params url.Values) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if len(params) == 0 {
		return parsed.String(), nil
	}
	q := parsed.Query()
	for key, values := range params {
		for _, v := range values {
			q.Set(key, v)
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// fetchOne fetches and decodes a single entity
func fetchOne[T Record](ctx context.Context, c *Client, rawURL string, params url.Values) (T, error) {
	var zero T

	logger.Debug("Fetching entity", zap.String("url", rawURL))

	p, err := c.get(ctx, rawURL, params)
	if err != nil {
		return zero, err
	}
	if p.status != http.StatusOK {
		return zero, fmt.Errorf("GET %s: unexpected status code %d", rawURL, p.status)
	}
	return decodeRecord[T](p.body)
}

// FetchUser fetches the authenticated user
func (c *Client) FetchUser(ctx context.Context) (User, error) {
	return fetchOne[User](ctx, c, c.apiURL("/user"), nil)
}

// FetchAPILimit fetches the current rate-limit budget
func (c *Client) FetchAPILimit(ctx context.Context) (APILimit, error) {
	return fetchOne[APILimit](ctx, c, c.apiURL("/rate_limit"), nil)
}

// FetchRepos fetches the full paginated repository list behind the
// given URL. An empty URL means the authenticated user's repo listing
// endpoint.
func (c *Client) FetchRepos(ctx context.Context, rawURL string, params url.Values) ([]Repo, error) {
	if rawURL == "" {
		rawURL = c.apiURL("/user/repos")
	}
	return FetchList[Repo](ctx, c, rawURL, params)
}
