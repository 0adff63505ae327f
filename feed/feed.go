// Package feed implements the refresh pipeline: discovery of due feeds,
// fetch and reconciliation per feed, bounded retry with backoff, and
// terminal-failure handling.
package feed

import (
	"context"

	"lector/models"
)

// FeedStore is the feed repository the pipeline consumes.
type FeedStore interface {
	FindDue(ctx context.Context) ([]int64, error)
	Get(ctx context.Context, id int64) (*models.Feed, error)
	Save(ctx context.Context, feed *models.Feed) error
	SetAutoRefresh(ctx context.Context, id int64, enabled bool) error
}

// PostStore is the post repository the pipeline consumes.
type PostStore interface {
	UpsertByFeedAndLink(ctx context.Context, feedID int64, link string, fields models.PostFields) (bool, error)
}

// Fetcher retrieves and parses one feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*models.ParsedFeed, error)
}

// Notifier delivers a terminal-failure alert to a feed owner.
type Notifier interface {
	Notify(ctx context.Context, ownerID int64, subject, message string) error
}

// ReadStateRepo is the read-set repository behind the ReadState service.
type ReadStateRepo interface {
	Relation(ctx context.Context, userID, feedID int64) (int64, error)
	Add(ctx context.Context, userFeedID, postID int64) error
	Remove(ctx context.Context, userFeedID, postID int64) error
	Fill(ctx context.Context, userFeedID, feedID int64) error
	Clear(ctx context.Context, userFeedID int64) error
}
