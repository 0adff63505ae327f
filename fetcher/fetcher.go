// Package fetcher retrieves and parses RSS/Atom feed documents.
package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	log "github.com/sirupsen/logrus"

	"lector/models"
)

const feedAcceptHeader = "application/atom+xml, application/rss+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"

const defaultUserAgent = "Lector/1.0"

type acceptTransport struct {
	base http.RoundTripper
}

func (t acceptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	if clone.Header.Get("Accept") == "" {
		clone.Header.Set("Accept", feedAcceptHeader)
	}
	return base.RoundTrip(clone)
}

// ParserFunc is exposed for testing.
// It allows mocking the feed parsing logic.
var ParserFunc = defaultParser

func defaultParser(ctx context.Context, rawURL string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = defaultUserAgent
	fp.Client = &http.Client{Transport: acceptTransport{base: http.DefaultTransport}}
	return fp.ParseURLWithContext(rawURL, ctx)
}

// Fetcher retrieves feed documents over HTTP with a per-request timeout.
type Fetcher struct {
	timeout time.Duration
}

func New(timeout time.Duration) *Fetcher {
	return &Fetcher{timeout: timeout}
}

// Fetch retrieves the document at rawURL and normalizes it. Transport
// failures surface as FetchUnavailableKind and parse failures as
// MalformedFeedKind; both mean the feed is unusable this cycle and feed
// the same retry path.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*models.ParsedFeed, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, models.NewError(models.FetchUnavailableKind, "feed url is empty")
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	parsed, err := ParserFunc(ctx, rawURL)
	if err != nil {
		return nil, classify(rawURL, err)
	}

	feed := &models.ParsedFeed{
		Title:       parsed.Title,
		Link:        parsed.Link,
		Description: parsed.Description,
		Entries:     make([]models.ParsedEntry, len(parsed.Items)),
	}
	for i, item := range parsed.Items {
		published := item.Published
		if published == "" {
			published = item.Updated
		}
		feed.Entries[i] = models.ParsedEntry{
			Title:     item.Title,
			Link:      item.Link,
			Summary:   item.Description,
			Published: published,
		}
	}
	return feed, nil
}

func classify(rawURL string, err error) error {
	var httpErr gofeed.HTTPError
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.As(err, &urlErr) ||
		errors.As(err, &httpErr) {
		return models.WrapError(models.FetchUnavailableKind, err, "could not retrieve feed %q", rawURL)
	}

	log.WithFields(log.Fields{
		"url":   rawURL,
		"error": err,
	}).Warnf("Found malformed feed, %q: %v", rawURL, err)
	return models.WrapError(models.MalformedFeedKind, err, "malformed feed %q: %v", rawURL, err)
}
