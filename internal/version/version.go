// Package version carries the build version and compares it with the
// latest published release.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	goversion "github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

// Version is stamped at build time with -ldflags "-X ...version.Version=v1.2.3".
var Version = "v0.0.0"

const Name = "model-relay"

// Release is the subset of a GitHub release document we read.
type Release struct {
	TagName string `json:"tag_name"`
}

// Result is the outcome of a successful check.
type Result struct {
	Current  string
	Latest   string
	Outdated bool
}

// Check fetches the release document at url and compares its tag with
// current.
func Check(ctx context.Context, client *http.Client, url, current string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("release lookup returned %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return Result{}, fmt.Errorf("decoding release: %w", err)
	}

	cur, err := goversion.NewVersion(current)
	if err != nil {
		return Result{}, fmt.Errorf("current version %q: %w", current, err)
	}
	latest, err := goversion.NewVersion(release.TagName)
	if err != nil {
		return Result{}, fmt.Errorf("release tag %q: %w", release.TagName, err)
	}

	return Result{
		Current:  current,
		Latest:   release.TagName,
		Outdated: cur.LessThan(latest),
	}, nil
}

// CheckInBackground runs Check without blocking startup and warns when a
// newer release exists. Failures are logged at debug.
func CheckInBackground(ctx context.Context, url string, logger *zap.Logger) {
	if url == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		res, err := Check(ctx, &http.Client{Timeout: 2 * time.Second}, url, Version)
		if err != nil {
			logger.Debug("Update check failed", zap.Error(err))
			return
		}
		if res.Outdated {
			logger.Warn("A newer release is available",
				zap.String("current", res.Current),
				zap.String("latest", res.Latest),
			)
		}
	}()
}
