package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-feed-sync/internal/cache"
	"go-feed-sync/internal/coordinator"
	"go-feed-sync/internal/lifecycle"
	"go-feed-sync/internal/models"
	"go-feed-sync/internal/ranking"
)

// FeedClient fetches pages of the personalized feed
type FeedClient interface {
	PersonalizedFeed(ctx context.Context, page, pageSize int) (models.FeedPage, error)
}

// MarketContexts supplies the market context used by the market signal
type MarketContexts interface {
	Contexts() map[string]*ranking.MarketContext
}

// FeedState is the render state of the feed
type FeedState struct {
	Status
	Strategy string           `json:"strategy"`
	Page     int              `json:"page"`
	HasNext  bool             `json:"has_next"`
	Total    int              `json:"total"`
	Posts    []ranking.Ranked `json:"posts"`
}

// Feed is the paginated personalized feed. Page 1 replaces the list, later
// pages append to it. Client scores are computed at read time.
type Feed struct {
	base
	client   FeedClient
	engine   *ranking.Engine
	markets  MarketContexts
	ttl      time.Duration
	pageSize int

	posts   []models.Post
	page    int
	hasNext bool
	total   int
}

var _ View = (*Feed)(nil)

// NewFeed creates the feed view. markets may be nil.
func NewFeed(coord *coordinator.Coordinator, client FeedClient, engine *ranking.Engine, markets MarketContexts, ttl time.Duration, pageSize int, logger *zap.Logger) *Feed {
	return &Feed{
		base:     newBase("feed", coord, logger),
		client:   client,
		engine:   engine,
		markets:  markets,
		ttl:      ttl,
		pageSize: pageSize,
	}
}

// Mount loads the first page
func (f *Feed) Mount(ctx context.Context) {
	life := f.mount(ctx)
	go func() { _ = f.loadPage(life.Context(), life, 1, initial(f.ttl)) }()
}

// Retry reloads the first page with a visible loading transition
func (f *Feed) Retry(ctx context.Context) error {
	life, err := f.current()
	if err != nil {
		return err
	}
	return f.loadPage(ctx, life, 1, retry(f.ttl))
}

// LoadMore appends the next page. It is a no-op at the end of the feed.
func (f *Feed) LoadMore(ctx context.Context) error {
	life, err := f.current()
	if err != nil {
		return err
	}

	f.mu.Lock()
	next, hasNext := f.page+1, f.hasNext
	f.mu.Unlock()

	if !hasNext {
		return nil
	}
	return f.loadPage(ctx, life, next, coordinator.Options{ShowLoading: true, TTL: f.ttl})
}

func (f *Feed) loadPage(ctx context.Context, life *lifecycle.Lifetime, page int, opts coordinator.Options) error {
	fetch := func(ctx context.Context) (models.FeedPage, error) {
		return f.client.PersonalizedFeed(ctx, page, f.pageSize)
	}
	err := load(ctx, &f.base, life, cache.FeedPageKey(page), fetch, opts, func(value models.FeedPage) {
		if page == 1 {
			f.posts = append([]models.Post(nil), value.Posts...)
		} else {
			if page != f.page+1 {
				// A reload of page 1 raced this page; drop it.
				return
			}
			f.posts = append(f.posts, value.Posts...)
		}
		f.page = page
		f.hasNext = value.HasNext
		f.total = value.Total
	})
	if err != nil {
		return fmt.Errorf("failed to load feed page %d: %w", page, err)
	}
	return nil
}

// Posts returns the loaded posts in server order
func (f *Feed) Posts() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Post(nil), f.posts...)
}

// Scores ranks the loaded posts under the active strategy
func (f *Feed) Scores() []ranking.Ranked {
	var markets map[string]*ranking.MarketContext
	if f.markets != nil {
		markets = f.markets.Contexts()
	}
	return f.engine.Rank(f.Posts(), markets)
}

// Explain breaks the client score of a loaded post down per factor
func (f *Feed) Explain(postID int64) (ranking.Explanation, bool) {
	for _, post := range f.Posts() {
		if post.ID != postID {
			continue
		}
		var market *ranking.MarketContext
		if f.markets != nil {
			market = f.markets.Contexts()[strings.ToUpper(post.Ticker)]
		}
		return f.engine.Explain(post, market), true
	}
	return ranking.Explanation{}, false
}

// Snapshot implements View
func (f *Feed) Snapshot() any {
	scores := f.Scores()

	f.mu.Lock()
	defer f.mu.Unlock()
	return FeedState{
		Status:   f.statusLocked(),
		Strategy: f.engine.Strategy().ID,
		Page:     f.page,
		HasNext:  f.hasNext,
		Total:    f.total,
		Posts:    scores,
	}
}
