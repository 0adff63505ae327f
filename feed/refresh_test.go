package feed_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lector/feed"
	"lector/models"
)

// recordingBackoff captures the attempt numbers the refresher backs off
// for, returning zero delay so tests run instantly.
type recordingBackoff struct {
	mu       sync.Mutex
	attempts []int
}

func (b *recordingBackoff) policy(attempt int) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = append(b.attempts, attempt)
	return 0
}

func newTestRefresher(feeds *fakeFeedStore, fetcher *fakeFetcher, notifier *fakeNotifier, maxRetries int) (*feed.Refresher, *recordingBackoff) {
	posts := newFakePostStore()
	reconciler := feed.NewReconciler(feeds, posts, nil)
	backoff := &recordingBackoff{}
	return feed.NewRefresher(feeds, fetcher, reconciler, notifier, maxRetries, backoff.policy), backoff
}

func TestRefreshSucceeds(t *testing.T) {
	ctx := context.Background()
	feeds := newFakeFeedStore(&models.Feed{ID: 7, OwnerID: 3, XMLURL: "https://example.com/feed.xml", AutoRefresh: true})
	fetcher := newFakeFetcher()
	fetcher.results["https://example.com/feed.xml"] = &models.ParsedFeed{
		Title: "Example Feed",
		Entries: []models.ParsedEntry{
			{Title: "Post 1", Link: "https://example.com/post1"},
			{Title: "Post 2", Link: "https://example.com/post2"},
		},
	}
	notifier := &fakeNotifier{}
	refresher, backoff := newTestRefresher(feeds, fetcher, notifier, 3)

	result := refresher.Refresh(ctx, 7)

	assert.Equal(t, feed.StatusSucceeded, result.Status)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, fetcher.calls)
	assert.Empty(t, backoff.attempts)
	assert.Empty(t, notifier.sent)
}

func TestRefreshDisablesAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	feeds := newFakeFeedStore(&models.Feed{ID: 7, OwnerID: 3, XMLURL: "https://example.com/feed.xml", AutoRefresh: true})
	fetcher := newFakeFetcher()
	fetcher.errs["https://example.com/feed.xml"] = models.NewError(models.FetchUnavailableKind, "connection refused")
	notifier := &fakeNotifier{}
	refresher, backoff := newTestRefresher(feeds, fetcher, notifier, 3)

	result := refresher.Refresh(ctx, 7)

	assert.Equal(t, feed.StatusDisabled, result.Status)
	// The retry budget bounds total fetch attempts; backoff runs between
	// attempts only.
	assert.Equal(t, 3, fetcher.calls)
	assert.Equal(t, []int{1, 2}, backoff.attempts)

	// Auto refresh flipped off exactly once.
	assert.Equal(t, []int64{7}, feeds.disabled)
	saved, err := feeds.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, saved.AutoRefresh)

	// The owner was notified exactly once, naming the feed.
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(3), notifier.sent[0].ownerID)
	assert.Equal(t, "Feed has exceeded the max number of retries", notifier.sent[0].subject)
	assert.Equal(t, "Feed with id: 7 has exceeded the max number of retries.", notifier.sent[0].message)
}

// flakyFetcher fails a fixed number of times before succeeding.
type flakyFetcher struct {
	failures int
	calls    int
	result   *models.ParsedFeed
}

func (f *flakyFetcher) Fetch(ctx context.Context, url string) (*models.ParsedFeed, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, models.NewError(models.FetchUnavailableKind, "connection refused")
	}
	return f.result, nil
}

func TestRefreshRecoversBeforeBudgetSpent(t *testing.T) {
	ctx := context.Background()
	feeds := newFakeFeedStore(&models.Feed{ID: 7, OwnerID: 3, XMLURL: "https://example.com/feed.xml", AutoRefresh: true})
	fetcher := &flakyFetcher{failures: 2, result: &models.ParsedFeed{Title: "Example Feed"}}
	posts := newFakePostStore()
	reconciler := feed.NewReconciler(feeds, posts, nil)
	backoff := &recordingBackoff{}
	notifier := &fakeNotifier{}
	refresher := feed.NewRefresher(feeds, fetcher, reconciler, notifier, 3, backoff.policy)

	result := refresher.Refresh(ctx, 7)

	assert.Equal(t, feed.StatusSucceeded, result.Status)
	assert.Equal(t, 3, fetcher.calls)
	assert.Equal(t, []int{1, 2}, backoff.attempts)
	assert.Empty(t, notifier.sent)
	saved, err := feeds.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, saved.AutoRefresh)
}

func TestRefreshMissingFeed(t *testing.T) {
	ctx := context.Background()
	feeds := newFakeFeedStore()
	fetcher := newFakeFetcher()
	notifier := &fakeNotifier{}
	refresher, _ := newTestRefresher(feeds, fetcher, notifier, 3)

	result := refresher.Refresh(ctx, 42)

	assert.Equal(t, feed.StatusMissing, result.Status)
	assert.Equal(t, int64(42), result.FeedID)
	assert.Zero(t, fetcher.calls)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, feeds.disabled)
}

func TestRefreshMalformedFeedRetriesThenDisables(t *testing.T) {
	ctx := context.Background()
	feeds := newFakeFeedStore(&models.Feed{ID: 7, OwnerID: 3, XMLURL: "https://example.com/feed.xml", AutoRefresh: true})
	fetcher := newFakeFetcher()
	fetcher.errs["https://example.com/feed.xml"] = models.NewError(models.MalformedFeedKind, "not a feed document")
	notifier := &fakeNotifier{}
	refresher, _ := newTestRefresher(feeds, fetcher, notifier, 2)

	result := refresher.Refresh(ctx, 7)

	assert.Equal(t, feed.StatusDisabled, result.Status)
	assert.Equal(t, 2, fetcher.calls)
	require.Len(t, notifier.sent, 1)
}

func TestRefreshNonRetryableErrorAborts(t *testing.T) {
	ctx := context.Background()
	feeds := newFakeFeedStore(&models.Feed{ID: 7, OwnerID: 3, XMLURL: "https://example.com/feed.xml", AutoRefresh: true})
	fetcher := newFakeFetcher()
	fetcher.errs["https://example.com/feed.xml"] = context.Canceled
	notifier := &fakeNotifier{}
	refresher, backoff := newTestRefresher(feeds, fetcher, notifier, 3)

	result := refresher.Refresh(ctx, 7)

	assert.Equal(t, feed.StatusAborted, result.Status)
	assert.Equal(t, 1, fetcher.calls)
	assert.Empty(t, backoff.attempts)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, feeds.disabled)
}

func TestRefreshNotifierFailureStillDisables(t *testing.T) {
	ctx := context.Background()
	feeds := newFakeFeedStore(&models.Feed{ID: 7, OwnerID: 3, XMLURL: "https://example.com/feed.xml", AutoRefresh: true})
	fetcher := newFakeFetcher()
	fetcher.errs["https://example.com/feed.xml"] = models.NewError(models.FetchUnavailableKind, "connection refused")
	notifier := &fakeNotifier{fail: assert.AnError}
	refresher, _ := newTestRefresher(feeds, fetcher, notifier, 1)

	result := refresher.Refresh(ctx, 7)

	assert.Equal(t, feed.StatusDisabled, result.Status)
	assert.Equal(t, []int64{7}, feeds.disabled)
	require.Len(t, notifier.sent, 1)
}

func TestForceReenablesDisabledFeed(t *testing.T) {
	ctx := context.Background()
	feeds := newFakeFeedStore(&models.Feed{ID: 7, OwnerID: 3, XMLURL: "https://example.com/feed.xml", AutoRefresh: false})
	fetcher := newFakeFetcher()
	fetcher.results["https://example.com/feed.xml"] = &models.ParsedFeed{
		Title: "Example Feed",
		Entries: []models.ParsedEntry{
			{Title: "Post 1", Link: "https://example.com/post1"},
		},
	}
	notifier := &fakeNotifier{}
	refresher, _ := newTestRefresher(feeds, fetcher, notifier, 3)

	result := refresher.Force(ctx, 7)

	assert.Equal(t, feed.StatusSucceeded, result.Status)
	assert.Equal(t, 1, result.Created)
	saved, err := feeds.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, saved.AutoRefresh)
}

func TestForceMissingFeed(t *testing.T) {
	ctx := context.Background()
	refresher, _ := newTestRefresher(newFakeFeedStore(), newFakeFetcher(), &fakeNotifier{}, 3)

	result := refresher.Force(ctx, 42)

	assert.Equal(t, feed.StatusMissing, result.Status)
}

func TestLinearBackoffNonDecreasing(t *testing.T) {
	policy := feed.LinearBackoff(30*time.Second, 10*time.Minute)

	var prev time.Duration
	for attempt := 1; attempt <= 30; attempt++ {
		delay := policy(attempt)
		assert.GreaterOrEqual(t, delay, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, delay, 10*time.Minute)
		prev = delay
	}

	assert.Equal(t, 30*time.Second, policy(1))
	assert.Equal(t, time.Minute, policy(2))
	assert.Equal(t, 10*time.Minute, policy(30))
}
