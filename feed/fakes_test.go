package feed_test

import (
	"context"
	"sync"

	"lector/models"
)

// In-memory stand-ins for the repositories. They implement the same
// contracts as the db package including the precondition errors.

type fakeFeedStore struct {
	mu       sync.Mutex
	feeds    map[int64]*models.Feed
	due      []int64
	disabled []int64
	saves    int
}

func newFakeFeedStore(feeds ...*models.Feed) *fakeFeedStore {
	s := &fakeFeedStore{feeds: make(map[int64]*models.Feed)}
	for _, f := range feeds {
		copied := *f
		s.feeds[f.ID] = &copied
	}
	return s
}

func (s *fakeFeedStore) FindDue(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.due...), nil
}

func (s *fakeFeedStore) Get(ctx context.Context, id int64) (*models.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[id]
	if !ok {
		return nil, models.NewError(models.FeedNotFoundKind, "feed with id %d does not exist", id)
	}
	copied := *f
	return &copied, nil
}

func (s *fakeFeedStore) Save(ctx context.Context, feed *models.Feed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *feed
	s.feeds[feed.ID] = &copied
	s.saves++
	return nil
}

func (s *fakeFeedStore) SetAutoRefresh(ctx context.Context, id int64, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.feeds[id]; ok {
		f.AutoRefresh = enabled
	}
	if !enabled {
		s.disabled = append(s.disabled, id)
	}
	return nil
}

type fakePostStore struct {
	mu    sync.Mutex
	posts map[int64]map[string]models.PostFields
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: make(map[int64]map[string]models.PostFields)}
}

func (s *fakePostStore) UpsertByFeedAndLink(ctx context.Context, feedID int64, link string, fields models.PostFields) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byLink, ok := s.posts[feedID]
	if !ok {
		byLink = make(map[string]models.PostFields)
		s.posts[feedID] = byLink
	}
	_, exists := byLink[link]
	byLink[link] = fields
	return !exists, nil
}

func (s *fakePostStore) count(feedID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts[feedID])
}

func (s *fakePostStore) get(feedID int64, link string) (models.PostFields, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.posts[feedID][link]
	return fields, ok
}

type fakeFetcher struct {
	mu      sync.Mutex
	results map[string]*models.ParsedFeed
	errs    map[string]error
	calls   int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		results: make(map[string]*models.ParsedFeed),
		errs:    make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*models.ParsedFeed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if parsed, ok := f.results[url]; ok {
		return parsed, nil
	}
	return &models.ParsedFeed{}, nil
}

type notification struct {
	ownerID int64
	subject string
	message string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
	fail error
}

func (n *fakeNotifier) Notify(ctx context.Context, ownerID int64, subject, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{ownerID: ownerID, subject: subject, message: message})
	return n.fail
}

type fakeReadStateRepo struct {
	relations   map[[2]int64]int64
	sets        map[int64]map[int64]bool
	postsByFeed map[int64][]int64
}

func newFakeReadStateRepo() *fakeReadStateRepo {
	return &fakeReadStateRepo{
		relations:   make(map[[2]int64]int64),
		sets:        make(map[int64]map[int64]bool),
		postsByFeed: make(map[int64][]int64),
	}
}

func (r *fakeReadStateRepo) follow(userID, feedID, relationID int64) {
	r.relations[[2]int64{userID, feedID}] = relationID
	r.sets[relationID] = make(map[int64]bool)
}

func (r *fakeReadStateRepo) Relation(ctx context.Context, userID, feedID int64) (int64, error) {
	id, ok := r.relations[[2]int64{userID, feedID}]
	if !ok {
		return 0, models.NewError(models.NotFollowingKind, "user %d does not follow feed %d", userID, feedID)
	}
	return id, nil
}

func (r *fakeReadStateRepo) Add(ctx context.Context, userFeedID, postID int64) error {
	if r.sets[userFeedID][postID] {
		return models.NewError(models.AlreadyMarkedKind, "post %d is already marked as read", postID)
	}
	r.sets[userFeedID][postID] = true
	return nil
}

func (r *fakeReadStateRepo) Remove(ctx context.Context, userFeedID, postID int64) error {
	if !r.sets[userFeedID][postID] {
		return models.NewError(models.NotMarkedKind, "post %d is not marked as read", postID)
	}
	delete(r.sets[userFeedID], postID)
	return nil
}

func (r *fakeReadStateRepo) Fill(ctx context.Context, userFeedID, feedID int64) error {
	for _, postID := range r.postsByFeed[feedID] {
		r.sets[userFeedID][postID] = true
	}
	return nil
}

func (r *fakeReadStateRepo) Clear(ctx context.Context, userFeedID int64) error {
	r.sets[userFeedID] = make(map[int64]bool)
	return nil
}
