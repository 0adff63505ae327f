package models

import "time"

// Feed is a subscribed RSS/Atom source owned by a user. Posts belong to
// exactly one feed and live as long as the feed does.
type Feed struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"ownerId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Link          string    `json:"link"`
	XMLURL        string    `json:"xmlUrl"`
	AutoRefresh   bool      `json:"autoRefresh"`
	LastRefreshAt time.Time `json:"lastRefreshAt"`
}

// Post is a single entry derived from a feed. The link is unique within
// the owning feed and is the upsert key during reconciliation.
type Post struct {
	ID            int64      `json:"id"`
	FeedID        int64      `json:"feedId"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Link          string     `json:"link"`
	PublishedTime *time.Time `json:"publishedTime,omitempty"`
	LastUpdate    *time.Time `json:"lastUpdate,omitempty"`
}

// UserFeed is the follow relation between a user and a feed. The read-set
// hangs off this relation so an unfollow drops exactly one user's state.
type UserFeed struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"userId"`
	FeedID int64 `json:"feedId"`
}

// User carries the minimum needed to deliver owner notifications.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// PostFields is the caller-supplied field set applied by an upsert.
type PostFields struct {
	Title         string
	Description   string
	PublishedTime *time.Time
	LastUpdate    time.Time
}

// ParsedFeed is the normalized result of fetching one feed document.
// Transient, never persisted as-is.
type ParsedFeed struct {
	Title       string
	Link        string
	Description string
	Entries     []ParsedEntry
}

// ParsedEntry is one entry of a parsed document. Published carries the raw
// date string from the document; reconciliation parses it and stores NULL
// when it cannot be parsed.
type ParsedEntry struct {
	Title     string
	Link      string
	Summary   string
	Published string
}
