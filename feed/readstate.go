package feed

import (
	"context"

	"lector/models"
)

// ReadState tracks which posts a user has read, scoped to that user's
// follow relation. These are the only mutation paths for read state;
// nothing here touches other followers' read-sets on shared posts.
type ReadState struct {
	repo ReadStateRepo
}

func NewReadState(repo ReadStateRepo) *ReadState {
	return &ReadState{repo: repo}
}

// MarkRead adds the post to the user's read-set for the post's feed.
// Fails with NotFollowingKind when the user does not follow the feed and
// AlreadyMarkedKind when the post is already read.
func (s *ReadState) MarkRead(ctx context.Context, userID int64, post *models.Post) error {
	relation, err := s.repo.Relation(ctx, userID, post.FeedID)
	if err != nil {
		return err
	}
	return s.repo.Add(ctx, relation, post.ID)
}

// MarkUnread removes the post from the read-set. Fails with NotMarkedKind
// when the post was never marked read.
func (s *ReadState) MarkUnread(ctx context.Context, userID int64, post *models.Post) error {
	relation, err := s.repo.Relation(ctx, userID, post.FeedID)
	if err != nil {
		return err
	}
	return s.repo.Remove(ctx, relation, post.ID)
}

// MarkAllRead puts every post of the feed into the read-set. Idempotent.
func (s *ReadState) MarkAllRead(ctx context.Context, userID, feedID int64) error {
	relation, err := s.repo.Relation(ctx, userID, feedID)
	if err != nil {
		return err
	}
	return s.repo.Fill(ctx, relation, feedID)
}

// MarkAllUnread clears the read-set. Idempotent.
func (s *ReadState) MarkAllUnread(ctx context.Context, userID, feedID int64) error {
	relation, err := s.repo.Relation(ctx, userID, feedID)
	if err != nil {
		return err
	}
	return s.repo.Clear(ctx, relation)
}
