package cli

import (
	"context"
	"net/http"

	"github.com/celine/regorus-builder/internal/config"
	"github.com/celine/regorus-builder/internal/github"
	"github.com/celine/regorus-builder/internal/pypi"
)

// tagResolver finds the newest upstream tag.
type tagResolver interface {
	LatestTag(ctx context.Context) (string, error)
}

// versionLookup finds the newest published version of a package.
type versionLookup interface {
	LatestVersion(ctx context.Context, pkg string) (string, error)
}

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTP.Timeout}
}

func newGitHubClient(cfg *config.Config) *github.Client {
	opts := []github.Option{
		github.WithHTTPClient(newHTTPClient(cfg)),
		github.WithBaseURL(cfg.GitHub.APIURL),
	}
	if cfg.GitHub.Token != "" {
		opts = append(opts, github.WithToken(cfg.GitHub.Token))
	}
	return github.NewClient(cfg.Upstream.Repo, opts...)
}

func newPyPIClient(cfg *config.Config) *pypi.Client {
	return pypi.NewClient(
		pypi.WithHTTPClient(newHTTPClient(cfg)),
		pypi.WithBaseURL(cfg.PyPI.BaseURL),
	)
}

// resolveTag returns tag when set, otherwise the newest upstream tag.
func resolveTag(ctx context.Context, tags tagResolver, tag string) (string, error) {
	if tag != "" {
		return tag, nil
	}
	return tags.LatestTag(ctx)
}
