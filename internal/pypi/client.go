// Package pypi reads published versions from the PyPI JSON API.
package pypi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the public index.
	DefaultBaseURL = "https://pypi.org"

	maxJSONResponseBytes = 10 << 20
)

// Client queries a PyPI-compatible index.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Client) {
		p.httpClient = c
	}
}

// WithBaseURL overrides the index URL.
func WithBaseURL(base string) Option {
	return func(p *Client) {
		p.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(p *Client) {
		p.userAgent = ua
	}
}

// NewClient creates a client for the public index unless overridden.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		userAgent:  "celine-regorus-builder",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type projectResponse struct {
	Info struct {
		Version string `json:"version"`
	} `json:"info"`
}

// LatestVersion returns the current version of pkg. A package that was never
// published yields "" and no error.
func (c *Client) LatestVersion(ctx context.Context, pkg string) (string, error) {
	reqURL := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, url.PathEscape(pkg))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s from PyPI: %w", pkg, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", nil
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("fetching %s from PyPI: unexpected status %d", pkg, resp.StatusCode)
	}

	var pr projectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&pr); err != nil {
		return "", fmt.Errorf("fetching %s from PyPI: decoding response: %w", pkg, err)
	}
	return pr.Info.Version, nil
}
