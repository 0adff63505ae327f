package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"

	"lector/models"
)

// Feeds is the feed repository.
type Feeds struct {
	db *sql.DB
}

// FindDue returns the ids of every feed with auto refresh enabled and at
// least one follower. Feeds without followers are never refreshed.
func (f *Feeds) FindDue(ctx context.Context) ([]int64, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("DISTINCT feeds.id").From("feeds")
	sb.Join("user_feeds", "user_feeds.feed_id = feeds.id")
	sb.Where(sb.Equal("feeds.auto_refresh", 1))
	sb.OrderBy("feeds.id").Asc()

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	rows, err := f.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Get returns the feed with the given id, or a FeedNotFoundKind error.
func (f *Feeds) Get(ctx context.Context, id int64) (*models.Feed, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "owner_id", "title", "description", "link", "xml_url", "auto_refresh", "last_refresh_at")
	sb.From("feeds")
	sb.Where(sb.Equal("id", id))

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	var feed models.Feed
	var lastRefresh sql.NullTime
	err := f.db.QueryRowContext(ctx, query, args...).Scan(
		&feed.ID,
		&feed.OwnerID,
		&feed.Title,
		&feed.Description,
		&feed.Link,
		&feed.XMLURL,
		&feed.AutoRefresh,
		&lastRefresh,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewError(models.FeedNotFoundKind, "feed with id %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	if lastRefresh.Valid {
		feed.LastRefreshAt = lastRefresh.Time
	}
	return &feed, nil
}

// Save persists the mutable feed fields written during reconciliation.
func (f *Feeds) Save(ctx context.Context, feed *models.Feed) error {
	ub := sqlbuilder.NewUpdateBuilder()
	ub.Update("feeds").Set(
		ub.Assign("title", feed.Title),
		ub.Assign("description", feed.Description),
		ub.Assign("link", feed.Link),
		ub.Assign("auto_refresh", feed.AutoRefresh),
		ub.Assign("last_refresh_at", feed.LastRefreshAt),
	)
	ub.Where(ub.Equal("id", feed.ID))

	query, args := ub.BuildWithFlavor(sqlbuilder.SQLite)

	if _, err := f.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	return nil
}

// SetAutoRefresh flips the auto_refresh flag as a single atomic write so a
// concurrent owner action cannot leave the row half updated.
func (f *Feeds) SetAutoRefresh(ctx context.Context, id int64, enabled bool) error {
	ub := sqlbuilder.NewUpdateBuilder()
	ub.Update("feeds").Set(ub.Assign("auto_refresh", enabled)).Where(ub.Equal("id", id))

	query, args := ub.BuildWithFlavor(sqlbuilder.SQLite)

	log.WithFields(log.Fields{
		"feed":    id,
		"enabled": enabled,
	}).Info("Setting auto refresh")

	if _, err := f.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	return nil
}

// Create inserts a new feed and returns its id. Feed creation is otherwise
// owned by the CRUD layer; this exists for fixtures and the CLI.
func (f *Feeds) Create(ctx context.Context, feed *models.Feed) (int64, error) {
	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto("feeds").Cols("owner_id", "title", "description", "link", "xml_url", "auto_refresh", "last_refresh_at")
	ib.Values(feed.OwnerID, feed.Title, feed.Description, feed.Link, feed.XMLURL, feed.AutoRefresh, time.Now())

	query, args := ib.BuildWithFlavor(sqlbuilder.SQLite)

	res, err := f.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert error: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert error: %w", err)
	}
	feed.ID = id
	return id, nil
}

// Follow creates the (user, feed) relation. AlreadyFollowingKind is
// returned when the relation exists.
func (f *Feeds) Follow(ctx context.Context, userID, feedID int64) error {
	res, err := f.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_feeds (user_id, feed_id) VALUES (?, ?)",
		userID, feedID,
	)
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	if affected == 0 {
		return models.NewError(models.AlreadyFollowingKind, "user %d already follows feed %d", userID, feedID)
	}

	log.WithFields(log.Fields{
		"user": userID,
		"feed": feedID,
	}).Info("User followed feed")
	return nil
}

// Unfollow removes the relation. The read-set for this relation cascades
// away with it; other followers keep theirs.
func (f *Feeds) Unfollow(ctx context.Context, userID, feedID int64) error {
	res, err := f.db.ExecContext(ctx,
		"DELETE FROM user_feeds WHERE user_id = ? AND feed_id = ?",
		userID, feedID,
	)
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	if affected == 0 {
		return models.NewError(models.NotFollowingKind, "user %d does not follow feed %d", userID, feedID)
	}

	log.WithFields(log.Fields{
		"user": userID,
		"feed": feedID,
	}).Info("User unfollowed feed")
	return nil
}
