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

// Posts is the post repository.
type Posts struct {
	db *sql.DB
}

// UpsertByFeedAndLink matches on (feed_id, link) and either creates a new
// post or updates the mutable fields of the existing one. The created flag
// is true only for a fresh insert; reconciliation counts those.
func (p *Posts) UpsertByFeedAndLink(ctx context.Context, feedID int64, link string, fields models.PostFields) (bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin error: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM posts WHERE feed_id = ? AND link = ?",
		feedID, link,
	).Scan(&id)

	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		ib := sqlbuilder.NewInsertBuilder()
		ib.InsertInto("posts").Cols("feed_id", "title", "description", "link", "published_time", "last_update")
		ib.Values(feedID, fields.Title, fields.Description, link, nullTime(fields.PublishedTime), fields.LastUpdate)

		query, args := ib.BuildWithFlavor(sqlbuilder.SQLite)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("insert error: %w", err)
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("query error: %w", err)
	default:
		ub := sqlbuilder.NewUpdateBuilder()
		ub.Update("posts").Set(
			ub.Assign("title", fields.Title),
			ub.Assign("description", fields.Description),
			ub.Assign("published_time", nullTime(fields.PublishedTime)),
			ub.Assign("last_update", fields.LastUpdate),
		)
		ub.Where(ub.Equal("id", id))

		query, args := ub.BuildWithFlavor(sqlbuilder.SQLite)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("update error: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit error: %w", err)
	}

	log.WithFields(log.Fields{
		"feed":    feedID,
		"link":    link,
		"created": created,
	}).Debug("Upserted post")
	return created, nil
}

// ListByFeed returns the posts of a feed, newest published first.
func (p *Posts) ListByFeed(ctx context.Context, feedID int64) ([]models.Post, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "feed_id", "title", "description", "link", "published_time", "last_update")
	sb.From("posts")
	sb.Where(sb.Equal("feed_id", feedID))
	sb.OrderBy("published_time").Desc()

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		var published, updated sql.NullTime
		if err := rows.Scan(&post.ID, &post.FeedID, &post.Title, &post.Description, &post.Link, &published, &updated); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if published.Valid {
			t := published.Time
			post.PublishedTime = &t
		}
		if updated.Valid {
			t := updated.Time
			post.LastUpdate = &t
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// Get returns one post by id.
func (p *Posts) Get(ctx context.Context, id int64) (*models.Post, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "feed_id", "title", "description", "link", "published_time", "last_update")
	sb.From("posts")
	sb.Where(sb.Equal("id", id))

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	var post models.Post
	var published, updated sql.NullTime
	err := p.db.QueryRowContext(ctx, query, args...).Scan(
		&post.ID, &post.FeedID, &post.Title, &post.Description, &post.Link, &published, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	if published.Valid {
		t := published.Time
		post.PublishedTime = &t
	}
	if updated.Valid {
		t := updated.Time
		post.LastUpdate = &t
	}
	return &post, nil
}

// CountByFeed returns the number of posts under a feed.
func (p *Posts) CountByFeed(ctx context.Context, feedID int64) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, "SELECT count(*) FROM posts WHERE feed_id = ?", feedID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("query error: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes posts whose last update is before the cutoff.
// Keeps the database size down for long running deployments.
func (p *Posts) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	deletePosts := sqlbuilder.NewDeleteBuilder()
	deletePosts.DeleteFrom("posts").Where(deletePosts.LessThan("last_update", cutoff))

	query, args := deletePosts.BuildWithFlavor(sqlbuilder.SQLite)

	log.WithFields(log.Fields{
		"cutoff": cutoff,
	}).Info("Tidying posts")

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete error: %w", err)
	}
	return res.RowsAffected()
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
