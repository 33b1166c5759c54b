// Package updater tells the CLI whether a newer release has been tagged.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	CurrentVersion = "v0.4.0"
	RepoOwner      = "craftcloud"
	RepoName       = "craftcloud-cli"

	defaultAPIBase = "https://api.github.com"
	tagsPerPage    = 100
)

type Tag struct {
	Name string `json:"name"`
}

type UpdateInfo struct {
	CurrentVersion  string `json:"current_version"`
	LatestVersion   string `json:"latest_version"`
	UpdateAvailable bool   `json:"update_available"`
	ReleaseURL      string `json:"release_url"`
}

// Checker compares Current against the tags published for the CLI
// repository.
type Checker struct {
	APIBase    string
	HTTPClient *http.Client
	Current    string
}

func NewChecker() *Checker {
	return &Checker{
		APIBase:    defaultAPIBase,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Current:    CurrentVersion,
	}
}

func (c *Checker) CheckForUpdates(ctx context.Context) (*UpdateInfo, error) {
	tags, err := c.listTags(ctx)
	if err != nil {
		return nil, err
	}

	info := &UpdateInfo{CurrentVersion: c.Current, LatestVersion: c.Current}
	latest, ok := LatestStable(tags)
	if !ok {
		return info, nil
	}
	info.LatestVersion = latest
	info.ReleaseURL = fmt.Sprintf("https://github.com/%s/%s/releases/tag/%s", RepoOwner, RepoName, latest)
	info.UpdateAvailable = CompareVersions(latest, c.Current) > 0
	return info, nil
}

func (c *Checker) listTags(ctx context.Context) ([]Tag, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/tags?per_page=%d",
		strings.TrimRight(c.APIBase, "/"), RepoOwner, RepoName, tagsPerPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "craftcloud-updater")
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tags: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch tags: %s", resp.Status)
	}

	var tags []Tag
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	return tags, nil
}

// LatestStable returns the highest tag that is a valid release version.
// Pre-releases and tags that are not versions at all are ignored; the
// API's ordering is not trusted.
func LatestStable(tags []Tag) (string, bool) {
	var best string
	for _, tag := range tags {
		v := canonical(tag.Name)
		if !semver.IsValid(v) || semver.Prerelease(v) != "" {
			continue
		}
		if best == "" || semver.Compare(v, canonical(best)) > 0 {
			best = tag.Name
		}
	}
	return best, best != ""
}

// CompareVersions returns 1, 0 or -1 as v1 is newer, equal or older than v2.
// The leading "v" is optional and missing components are zero, so v1.2
// equals v1.2.0. An invalid version is older than any valid one.
func CompareVersions(v1, v2 string) int {
	return semver.Compare(canonical(v1), canonical(v2))
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
