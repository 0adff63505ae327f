package feed

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"lector/models"
)

// Date formats seen in the wild beyond what RFC1123 covers. Tried in
// order after the common layouts.
var dateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 UT",
	"2 Jan 2006 15:04:05 MST",
	"January 2, 2006",
}

// ParseEntryTime parses an entry's published string. Returns nil when the
// string is empty or matches no known layout; such entries are stored with
// a NULL published time rather than rejected.
func ParseEntryTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return &t
		}
	}
	return nil
}

// Reconciler maps parsed entries onto stored posts.
type Reconciler struct {
	feeds FeedStore
	posts PostStore
	now   func() time.Time
}

func NewReconciler(feeds FeedStore, posts PostStore, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{feeds: feeds, posts: posts, now: now}
}

// Reconcile applies the parsed feed-level fields to the feed row, then
// upserts every entry in parse order, keyed by (feed, link). Returns the
// number of newly created posts; updated posts do not count. An empty
// entry list is valid and yields zero.
func (r *Reconciler) Reconcile(ctx context.Context, feed *models.Feed, parsed *models.ParsedFeed) (int, error) {
	feed.Title = parsed.Title
	feed.Link = parsed.Link
	feed.Description = parsed.Description
	feed.LastRefreshAt = r.now()
	if err := r.feeds.Save(ctx, feed); err != nil {
		return 0, err
	}

	created := 0
	for _, entry := range parsed.Entries {
		fields := models.PostFields{
			Title:         entry.Title,
			Description:   entry.Summary,
			PublishedTime: ParseEntryTime(entry.Published),
			LastUpdate:    r.now(),
		}
		isNew, err := r.posts.UpsertByFeedAndLink(ctx, feed.ID, entry.Link, fields)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}

	log.WithFields(log.Fields{
		"feed":    feed.ID,
		"entries": len(parsed.Entries),
		"created": created,
	}).Info("Reconciled feed")
	return created, nil
}
