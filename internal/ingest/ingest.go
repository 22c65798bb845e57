// Package ingest pulls items from the external event and paper sources
// and normalizes them into the single feed-item shape. Each source is an
// independent adapter; a malformed record is skipped and counted, a dead
// source is reported without touching the others.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"deptbot/internal/model"
)

const (
	userAgent    = "DeptBot/1.0"
	maxBodyBytes = 5 * 1024 * 1024
	fetchTimeout = 30 * time.Second
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source is one external feed. A fetch is one full pull: lazy, finite,
// not restartable within a run.
type Source interface {
	// Name identifies the source; it is also the seen-set partition key.
	Name() string
	// Fetch pulls and normalizes all current items. skipped counts
	// malformed records dropped from the batch.
	Fetch(ctx context.Context) (items []model.FeedItem, skipped int, err error)
}

// Result is the outcome of fetching one source. Err set means the whole
// source failed this run; its items are simply absent.
type Result struct {
	Source  string
	Items   []model.FeedItem
	Skipped int
	Err     error
}

// FetchAll fetches every source concurrently and joins before returning,
// so callers see one complete, consistent snapshot of the run's items.
// A failing source never fails the batch.
func FetchAll(ctx context.Context, sources []Source) []Result {
	results := make([]Result, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			items, skipped, err := src.Fetch(ctx)
			results[i] = Result{Source: src.Name(), Items: items, Skipped: skipped, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// getBody performs a bounded GET and returns the response body.
func getBody(ctx context.Context, client HTTPClient, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
