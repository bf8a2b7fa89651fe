// Package release checks GitHub for a newer published version.
package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	defaultOwner   = "ksuda"
	defaultRepo    = "kiroku"
	defaultAPIBase = "https://api.github.com"
	defaultTimeout = 10 * time.Second
)

// ErrDevBuild is returned when the running binary has no release
// version to compare against.
var ErrDevBuild = errors.New("cannot check a development build")

// Checker queries the GitHub releases API.
type Checker struct {
	owner   string
	repo    string
	apiBase string
	client  *http.Client
}

// Option configures a Checker.
type Option func(*Checker)

// WithBaseURL points the checker at a different API host (tests).
func WithBaseURL(base string) Option {
	return func(c *Checker) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithTimeout bounds the API request.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) { c.client = &http.Client{Timeout: d} }
}

// NewChecker creates a Checker for the project's release repository.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		owner:   defaultOwner,
		repo:    defaultRepo,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckResult reports the latest published version relative to the
// running one.
type CheckResult struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
}

// Check fetches the latest release tag and compares it to current
// using semantic version ordering.
func (c *Checker) Check(ctx context.Context, current string) (*CheckResult, error) {
	if current == "" || current == "(devel)" {
		return nil, ErrDevBuild
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.apiBase, c.owner, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch latest release: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}
	if payload.TagName == "" {
		return nil, errors.New("release has no tag name")
	}

	latest := canonical(payload.TagName)
	cur := canonical(current)
	if !semver.IsValid(latest) {
		return nil, fmt.Errorf("latest tag %q is not a semantic version", payload.TagName)
	}
	if !semver.IsValid(cur) {
		return nil, fmt.Errorf("current version %q is not a semantic version", current)
	}

	return &CheckResult{
		CurrentVersion:  current,
		LatestVersion:   payload.TagName,
		UpdateAvailable: semver.Compare(latest, cur) > 0,
	}, nil
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
