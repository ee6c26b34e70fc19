// Package resolve looks up Xbox gamertags with the PlayerDB API.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kardianos/gatelist"
)

// DefaultBaseURL is the PlayerDB Xbox lookup endpoint. The gamertag is
// appended as the last path element.
const DefaultBaseURL = "https://playerdb.co/api/player/xbox/"

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "gatelist (+https://github.com/kardianos/gatelist)"
	maxBodySize      = 1 << 20
)

var _ gatelist.Resolver = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit paces outbound lookups. The lookup waits for a token; it is
// never retried.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// Client resolves gamertags to XUIDs.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// APIError is returned when the service answers with an unexpected status.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("playerdb returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("playerdb returned status %d: %s", e.StatusCode, e.Message)
}

// NewClient returns a client for baseURL. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, options ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL must include scheme and host")
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		userAgent:  defaultUserAgent,
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

type playerResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Success bool   `json:"success"`
	Data    struct {
		Player struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"player"`
	} `json:"data"`
}

// Resolve returns the XUID of gamertag. It makes one request.
func (c *Client) Resolve(ctx context.Context, gamertag string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("resolve %q: %w", gamertag, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.JoinPath(gamertag).String(), nil)
	if err != nil {
		return "", fmt.Errorf("resolve %q: create request: %w", gamertag, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", gamertag, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("resolve %q: read response: %w", gamertag, err)
	}

	var pr playerResponse
	decodeErr := json.Unmarshal(body, &pr)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusBadRequest && decodeErr == nil && !pr.Success:
		return "", fmt.Errorf("resolve %q: %w", gamertag, gatelist.ErrPlayerNotFound)
	default:
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = pr.Code
			apiErr.Message = pr.Message
		}
		return "", fmt.Errorf("resolve %q: %w", gamertag, apiErr)
	}

	if decodeErr != nil {
		return "", fmt.Errorf("resolve %q: decode response: %w", gamertag, decodeErr)
	}
	if !pr.Success {
		return "", fmt.Errorf("resolve %q: %w", gamertag, gatelist.ErrPlayerNotFound)
	}
	if pr.Data.Player.ID == "" {
		return "", fmt.Errorf("resolve %q: response has no player id", gamertag)
	}
	return pr.Data.Player.ID, nil
}
