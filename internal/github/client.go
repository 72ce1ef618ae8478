// Package github is a read-only client for the upstream repository's
// releases and tags.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/celine/regorus-builder/internal/versions"
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com"

	// DefaultUserAgent identifies the builder to GitHub.
	DefaultUserAgent = "celine-regorus-builder"

	tagsPerPage = 100

	// maxPages caps tag pagination.
	maxPages = 20

	maxJSONResponseBytes = 10 << 20
)

// ErrNotFound is returned when the repository has no published release.
var ErrNotFound = errors.New("not found")

// RateLimitError is returned when the API quota is exhausted.
type RateLimitError struct {
	Limit   int
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (limit %d, resets at %s)",
		e.Limit, e.ResetAt.UTC().Format("15:04 UTC"))
}

// Client queries one repository.
type Client struct {
	httpClient *http.Client
	repo       string
	baseURL    string
	token      string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) {
		g.httpClient = c
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) Option {
	return func(g *Client) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken authenticates requests with a bearer token.
func WithToken(token string) Option {
	return func(g *Client) {
		g.token = token
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(g *Client) {
		g.userAgent = ua
	}
}

// NewClient creates a client for repo, given as "owner/name".
func NewClient(repo string, opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		repo:       repo,
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type releaseResponse struct {
	TagName string `json:"tag_name"`
}

type tagResponse struct {
	Name string `json:"name"`
}

// LatestReleaseTag returns the tag of the latest published release.
// It returns ErrNotFound when the repository has no releases.
func (c *Client) LatestReleaseTag(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, c.repo)

	var rel releaseResponse
	if err := c.getJSON(ctx, url, &rel); err != nil {
		return "", fmt.Errorf("latest release of %s: %w", c.repo, err)
	}
	if rel.TagName == "" {
		return "", fmt.Errorf("latest release of %s: %w", c.repo, ErrNotFound)
	}
	return rel.TagName, nil
}

// ListTags returns every tag carrying a semver triple, newest first.
// Pages are fetched until an empty page comes back.
func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	var names []string
	for page := 1; page <= maxPages; page++ {
		url := fmt.Sprintf("%s/repos/%s/tags?per_page=%d&page=%d", c.baseURL, c.repo, tagsPerPage, page)

		var tags []tagResponse
		if err := c.getJSON(ctx, url, &tags); err != nil {
			return nil, fmt.Errorf("listing tags of %s: %w", c.repo, err)
		}
		if len(tags) == 0 {
			break
		}
		for _, t := range tags {
			if t.Name != "" {
				names = append(names, t.Name)
			}
		}
	}
	return versions.SortTagsDesc(names), nil
}

// LatestTag prefers the latest release and falls back to the highest
// semver tag when the repository publishes no releases.
func (c *Client) LatestTag(ctx context.Context) (string, error) {
	tag, err := c.LatestReleaseTag(ctx)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	tags, err := c.ListTags(ctx)
	if err != nil {
		return "", err
	}
	if len(tags) == 0 {
		return "", fmt.Errorf("no semver tags in %s: %w", c.repo, ErrNotFound)
	}
	return tags[0], nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkRateLimit(resp); err != nil {
		return err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// checkRateLimit only looks at X-RateLimit-Remaining; a zero quota is an error
// whatever the status code.
func checkRateLimit(resp *http.Response) error {
	rem, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil || rem > 0 {
		return nil //nolint:nilerr // absent or malformed header is not a limit
	}
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	return &RateLimitError{Limit: limit, ResetAt: time.Unix(reset, 0)}
}
