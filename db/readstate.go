package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"lector/models"
)

// ReadStates is the read-set repository. Rows are keyed by the follow
// relation, not the user, so an unfollow cascades exactly one user's
// read state for that feed.
type ReadStates struct {
	db *sql.DB
}

// Relation returns the user_feeds row id for (user, feed), or a
// NotFollowingKind error when the user does not follow the feed.
func (r *ReadStates) Relation(ctx context.Context, userID, feedID int64) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM user_feeds WHERE user_id = ? AND feed_id = ?",
		userID, feedID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.NewError(models.NotFollowingKind, "user %d does not follow feed %d", userID, feedID)
	}
	if err != nil {
		return 0, fmt.Errorf("query error: %w", err)
	}
	return id, nil
}

// Add puts one post into the relation's read-set. AlreadyMarkedKind is
// returned when the post is already present.
func (r *ReadStates) Add(ctx context.Context, userFeedID, postID int64) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO read_posts (user_feed_id, post_id) VALUES (?, ?)",
		userFeedID, postID,
	)
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	if affected == 0 {
		return models.NewError(models.AlreadyMarkedKind, "post %d is already marked as read", postID)
	}
	return nil
}

// Remove takes one post out of the relation's read-set. NotMarkedKind is
// returned when the post was not in it.
func (r *ReadStates) Remove(ctx context.Context, userFeedID, postID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM read_posts WHERE user_feed_id = ? AND post_id = ?",
		userFeedID, postID,
	)
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	if affected == 0 {
		return models.NewError(models.NotMarkedKind, "post %d is not marked as read", postID)
	}
	return nil
}

// Fill marks every post of the feed read for this relation. Idempotent:
// posts already in the read-set are left alone.
func (r *ReadStates) Fill(ctx context.Context, userFeedID, feedID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO read_posts (user_feed_id, post_id)
		 SELECT ?, id FROM posts WHERE feed_id = ?`,
		userFeedID, feedID,
	)
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}

	log.WithFields(log.Fields{
		"relation": userFeedID,
		"feed":     feedID,
	}).Debug("Marked all posts read")
	return nil
}

// Clear empties the relation's read-set. Idempotent.
func (r *ReadStates) Clear(ctx context.Context, userFeedID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM read_posts WHERE user_feed_id = ?", userFeedID); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

// Count returns the size of the relation's read-set.
func (r *ReadStates) Count(ctx context.Context, userFeedID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM read_posts WHERE user_feed_id = ?", userFeedID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("query error: %w", err)
	}
	return count, nil
}

// Contains reports whether the post is in the relation's read-set.
func (r *ReadStates) Contains(ctx context.Context, userFeedID, postID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM read_posts WHERE user_feed_id = ? AND post_id = ?",
		userFeedID, postID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query error: %w", err)
	}
	return true, nil
}
