package feed

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Outcome summarizes one scheduler tick for batch reporting.
type Outcome struct {
	Updated []int64
	Failed  int
	Missing []int64
}

// Scheduler periodically enumerates due feeds and dispatches one refresh
// per feed, concurrently. One feed's failure never blocks another's.
type Scheduler struct {
	feeds     FeedStore
	refresher *Refresher
	interval  time.Duration
}

func NewScheduler(feeds FeedStore, refresher *Refresher, interval time.Duration) *Scheduler {
	return &Scheduler{feeds: feeds, refresher: refresher, interval: interval}
}

// Tick selects every feed with auto refresh enabled and at least one
// follower and refreshes them in parallel. Feed ids are captured at
// selection time; a feed disabled mid-cycle is excluded by the next
// tick's selection, not this one.
func (s *Scheduler) Tick(ctx context.Context) Outcome {
	ids, err := s.feeds.FindDue(ctx)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Error("Could not select due feeds")
		return Outcome{}
	}
	if len(ids) == 0 {
		log.Info("No feeds to update")
		return Outcome{}
	}

	results := make([]RefreshResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			results[i] = s.refresher.Refresh(ctx, id)
		}(i, id)
	}
	wg.Wait()

	outcome := Outcome{
		Updated: lo.FilterMap(results, func(r RefreshResult, _ int) (int64, bool) {
			return r.FeedID, r.Status == StatusSucceeded
		}),
		Failed: lo.CountBy(results, func(r RefreshResult) bool {
			return r.Status == StatusDisabled
		}),
		Missing: lo.FilterMap(results, func(r RefreshResult, _ int) (int64, bool) {
			return r.FeedID, r.Status == StatusMissing
		}),
	}

	log.WithFields(log.Fields{
		"updated": outcome.Updated,
		"failed":  outcome.Failed,
		"missing": outcome.Missing,
	}).Info("Refresh cycle complete")
	return outcome
}

// Run ticks immediately and then on the configured interval until the
// context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("Scheduler shutting down")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
