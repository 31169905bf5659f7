// Package linkcheck verifies the outbound proposal links in the roster.
// Proposals live in third-party document hosts that rot over time, so
// each URL (current and prior-year) is fetched with a bounded worker
// group and the target page title is captured for the report.
package linkcheck

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/progsite/roster-api/internal/types"
)

const (
	requestTimeout = 15 * time.Second
	userAgent      = "roster-api/1.0 (+link checker)"
)

// Result is the outcome for one URL.
type Result struct {
	Subject    string `json:"subject"` // e.g. "student/3" or "student/3/past"
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Title      string `json:"title,omitempty"` // <title> of the target page, when HTML
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}

// Checker fetches links concurrently. The zero value is not usable;
// call New.
type Checker struct {
	client *http.Client
	limit  int
}

// New returns a Checker that runs at most limit fetches at once.
// A nil client falls back to a default with the request timeout set.
func New(client *http.Client, limit int) *Checker {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	if limit <= 0 {
		limit = 4
	}
	return &Checker{client: client, limit: limit}
}

// Check fetches every proposal URL found in entries and returns one
// Result per URL, in no particular order. Fetch failures are recorded
// in the result, never returned as an error — a dead link is a finding,
// not a fault.
func (c *Checker) Check(ctx context.Context, entries []types.StudentEntry) []Result {
	type target struct {
		subject string
		url     string
	}

	targets := make([]target, 0, len(entries))
	for _, entry := range entries {
		subject := fmt.Sprintf("student/%d", entry.ID)
		if entry.ProposalURL != "" {
			targets = append(targets, target{subject, entry.ProposalURL})
		}
		if entry.Past != nil && entry.Past.ProposalURL != "" {
			targets = append(targets, target{subject + "/past", entry.Past.ProposalURL})
		}
	}

	results := make([]Result, 0, len(targets))
	var mu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(c.limit)

	for _, t := range targets {
		t := t
		group.Go(func() error {
			res := c.fetch(gctx, t.subject, t.url)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; Wait only joins them.
	_ = group.Wait()

	return results
}

func (c *Checker) fetch(ctx context.Context, subject, url string) Result {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res := Result{Subject: subject, URL: url}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Debug("link fetch failed",
			slog.String("url", url), slog.String("error", err.Error()))
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	res.OK = resp.StatusCode >= 200 && resp.StatusCode < 300

	if res.OK && strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		// Best effort: a parse failure leaves Title empty, nothing more.
		if doc, err := goquery.NewDocumentFromReader(resp.Body); err == nil {
			res.Title = strings.TrimSpace(doc.Find("title").First().Text())
		}
	}

	return res
}
