// Package update checks for newer releases of the CLI.
package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/restclient/restclient/internal/api"
)

const (
	// DefaultReleasesURL is the GitHub endpoint for the latest release.
	DefaultReleasesURL = "https://api.github.com/repos/restclient/restclient/releases/latest"
	CheckTimeout       = 5 * time.Second
)

// ReleasesURL is the URL to check for releases. Can be overridden in tests.
var ReleasesURL = DefaultReleasesURL

// Release is the subset of the GitHub release payload the check reads.
type Release struct {
	TagName    string `json:"tag_name"`
	HTMLURL    string `json:"html_url"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

type CheckResult struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateURL       string
	UpdateAvailable bool
}

// WriteNotice prints the upgrade hint when a newer release exists.
func (r *CheckResult) WriteNotice(w io.Writer) {
	if r == nil || !r.UpdateAvailable {
		return
	}
	_, _ = fmt.Fprintf(w, "\nUpdate available: %s -> %s\n", r.CurrentVersion, r.LatestVersion)
	if r.UpdateURL != "" {
		_, _ = fmt.Fprintf(w, "Download: %s\n", r.UpdateURL)
	}
}

// CheckForUpdate asks the releases endpoint for the latest version through
// d. It returns nil whenever the answer is unusable: development builds,
// failed or non-200 requests, undecodable payloads, drafts and prereleases.
// The request is excluded from request counters.
func CheckForUpdate(ctx context.Context, d api.Dispatcher, currentVersion string) *CheckResult {
	if currentVersion == "dev" || currentVersion == "" || d == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	res := api.GetAs[Release](ctx, d, api.Request{
		URL:       ReleasesURL,
		Headers:   map[string]string{"Accept": "application/vnd.github.v3+json"},
		Uncounted: true,
	})
	if res.IsError() || res.ResponseCode != http.StatusOK || res.DecodeErr != nil {
		return nil
	}
	release := res.Content
	if release.TagName == "" || release.Draft || release.Prerelease {
		return nil
	}

	result := &CheckResult{
		CurrentVersion: currentVersion,
		LatestVersion:  strings.TrimPrefix(release.TagName, "v"),
		UpdateURL:      release.HTMLURL,
	}
	current, latest := normalizeVersion(currentVersion), normalizeVersion(release.TagName)
	if semver.IsValid(current) && semver.IsValid(latest) {
		result.UpdateAvailable = semver.Compare(latest, current) > 0
	}
	return result
}

func normalizeVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
