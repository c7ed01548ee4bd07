// Package selfupdate checks whether a newer release is available, a
// fire-and-forget background check the CLI kicks off at startup and reads
// back just before exit, mirroring the original tool's version-fetch
// behavior without blocking any encode job on network access.
package selfupdate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
)

// CurrentVersion is this build's version string.
const CurrentVersion = "1.0.0"

// VersionChecker fetches the latest published version string.
type VersionChecker interface {
	Latest(ctx context.Context) (string, error)
}

// manifestURL points at the raw source file carrying the canonical
// version string, the same convention the original tool scraped.
const manifestURL = "https://raw.githubusercontent.com/mlsmithjr/wandarr/master/wandarr/__init__.py"

var versionRe = regexp.MustCompile(`__version__\s*=\s*['"](\d+\.\d+\.\d+)['"]`)

// HTTPChecker fetches and parses the version manifest over HTTP.
type HTTPChecker struct {
	URL    string
	Client *http.Client
}

// NewHTTPChecker constructs an HTTPChecker pointed at the default manifest
// URL using http.DefaultClient.
func NewHTTPChecker() *HTTPChecker {
	return &HTTPChecker{URL: manifestURL, Client: http.DefaultClient}
}

// Latest implements VersionChecker.
func (c *HTTPChecker) Latest(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}

	m := versionRe.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("selfupdate: version string not found in manifest")
	}
	return string(m[1]), nil
}

// CheckAsync starts a background version check and returns a channel that
// receives the latest version string once, or is closed without a value
// if the check failed. The caller is expected to read from it (with a
// short timeout) right before exit, never blocking job dispatch on it.
func CheckAsync(ctx context.Context, checker VersionChecker) <-chan string {
	out := make(chan string, 1)
	go func() {
		defer close(out)
		v, err := checker.Latest(ctx)
		if err != nil || v == "" {
			return
		}
		out <- v
	}()
	return out
}

// NotifyIfNewer formats the user-facing notice when latest differs from
// CurrentVersion, or "" when up to date.
func NotifyIfNewer(latest string) string {
	if latest == "" || latest == CurrentVersion {
		return ""
	}
	return fmt.Sprintf("Version %s of wandarr is available. See https://pypi.org/project/wandarr/", latest)
}
