package feed

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"lector/models"
)

// Subject line of the terminal-failure notification, kept word for word
// from the notification the original deployment sent.
const maxRetriesSubject = "Feed has exceeded the max number of retries"

// BackoffPolicy maps a 1-based attempt number to the delay before the
// next attempt.
type BackoffPolicy func(attempt int) time.Duration

// LinearBackoff grows the delay by one base per failed attempt, capped
// at max. Delays are non-decreasing.
func LinearBackoff(base, max time.Duration) BackoffPolicy {
	return func(attempt int) time.Duration {
		delay := base * time.Duration(attempt)
		if delay > max {
			return max
		}
		return delay
	}
}

// RefreshStatus is the terminal state of one refresh invocation.
type RefreshStatus int

const (
	// StatusSucceeded: fetched, reconciled and persisted.
	StatusSucceeded RefreshStatus = iota
	// StatusDisabled: retry budget spent, auto refresh turned off and the
	// owner notified.
	StatusDisabled
	// StatusMissing: the feed no longer existed when the worker started.
	// No fetch, retry or notification happened.
	StatusMissing
	// StatusAborted: a persistence error stopped the invocation. Nothing
	// was disabled; the next cycle tries again.
	StatusAborted
)

func (s RefreshStatus) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusDisabled:
		return "disabled"
	case StatusMissing:
		return "missing"
	case StatusAborted:
		return "aborted"
	}
	return "unknown"
}

// RefreshResult is the observable outcome of refreshing one feed.
type RefreshResult struct {
	FeedID  int64
	Status  RefreshStatus
	Created int
}

// Refresher runs the fetch/reconcile pipeline for a single feed with
// bounded retry. Retryable fetch failures never escape it.
type Refresher struct {
	feeds      FeedStore
	fetcher    Fetcher
	reconciler *Reconciler
	notifier   Notifier
	maxRetries int
	backoff    BackoffPolicy
	sleep      func(time.Duration)
}

func NewRefresher(feeds FeedStore, fetcher Fetcher, reconciler *Reconciler, notifier Notifier, maxRetries int, backoff BackoffPolicy) *Refresher {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Refresher{
		feeds:      feeds,
		fetcher:    fetcher,
		reconciler: reconciler,
		notifier:   notifier,
		maxRetries: maxRetries,
		backoff:    backoff,
		sleep:      time.Sleep,
	}
}

// Refresh drives one feed through fetch, reconcile and persist. Each
// retryable fetch failure increments the attempt counter; when it reaches
// the retry budget the feed is disabled, the owner notified and an error
// logged, exactly once. A feed deleted before the worker starts aborts
// with no side effects.
func (r *Refresher) Refresh(ctx context.Context, feedID int64) RefreshResult {
	feed, err := r.feeds.Get(ctx, feedID)
	if err != nil {
		if models.IsKind(err, models.FeedNotFoundKind) {
			log.WithFields(log.Fields{
				"feed": feedID,
			}).Warn("Feed no longer exists, skipping refresh")
			return RefreshResult{FeedID: feedID, Status: StatusMissing}
		}
		log.WithFields(log.Fields{
			"feed":  feedID,
			"error": err,
		}).Error("Could not load feed")
		return RefreshResult{FeedID: feedID, Status: StatusAborted}
	}

	for attempt := 1; ; attempt++ {
		refreshAttempts.Inc()

		parsed, err := r.fetcher.Fetch(ctx, feed.XMLURL)
		if err == nil {
			created, err := r.reconciler.Reconcile(ctx, feed, parsed)
			if err != nil {
				log.WithFields(log.Fields{
					"feed":  feed.ID,
					"error": err,
				}).Error("Could not persist reconciled feed")
				return RefreshResult{FeedID: feed.ID, Status: StatusAborted, Created: created}
			}
			postsCreated.Add(float64(created))
			return RefreshResult{FeedID: feed.ID, Status: StatusSucceeded, Created: created}
		}

		refreshFailures.Inc()
		if kind, ok := models.KindOf(err); !ok || !kind.Retryable() {
			log.WithFields(log.Fields{
				"feed":  feed.ID,
				"error": err,
			}).Error("Unexpected refresh error")
			return RefreshResult{FeedID: feed.ID, Status: StatusAborted}
		}

		if attempt >= r.maxRetries {
			r.disable(ctx, feed)
			return RefreshResult{FeedID: feed.ID, Status: StatusDisabled}
		}

		delay := r.backoff(attempt)
		log.WithFields(log.Fields{
			"feed":    feed.ID,
			"attempt": attempt,
			"delay":   delay,
			"error":   err,
		}).Warn("Feed refresh failed, retrying")
		r.sleep(delay)
	}
}

// Force re-enables auto refresh when the owner requested an update on a
// disabled feed, then runs the same pipeline entered at fetching.
func (r *Refresher) Force(ctx context.Context, feedID int64) RefreshResult {
	feed, err := r.feeds.Get(ctx, feedID)
	if err != nil {
		if models.IsKind(err, models.FeedNotFoundKind) {
			return RefreshResult{FeedID: feedID, Status: StatusMissing}
		}
		return RefreshResult{FeedID: feedID, Status: StatusAborted}
	}
	if !feed.AutoRefresh {
		if err := r.feeds.SetAutoRefresh(ctx, feedID, true); err != nil {
			log.WithFields(log.Fields{
				"feed":  feedID,
				"error": err,
			}).Error("Could not re-enable auto refresh")
			return RefreshResult{FeedID: feedID, Status: StatusAborted}
		}
	}
	return r.Refresh(ctx, feedID)
}

// disable is the terminal-failure path: flip auto_refresh off, notify the
// owner, log at error level. Runs once per invocation, never retried.
func (r *Refresher) disable(ctx context.Context, feed *models.Feed) {
	feedsDisabled.Inc()

	if err := r.feeds.SetAutoRefresh(ctx, feed.ID, false); err != nil {
		log.WithFields(log.Fields{
			"feed":  feed.ID,
			"error": err,
		}).Error("Could not disable auto refresh")
	}

	message := fmt.Sprintf("Feed with id: %d has exceeded the max number of retries.", feed.ID)
	if err := r.notifier.Notify(ctx, feed.OwnerID, maxRetriesSubject, message); err != nil {
		// Delivery failure does not re-fail the refresh; the outcome is
		// already terminal.
		log.WithFields(log.Fields{
			"feed":  feed.ID,
			"owner": feed.OwnerID,
			"error": err,
		}).Error("Could not deliver owner notification")
	}

	log.Errorf("Updating feed with id: %d has exceeded the max number of retries.", feed.ID)
}
