package services

import (
	"context"
	"errors"
	"slices"
	"time"

	"tweetcompare/internal/cache"
	"tweetcompare/internal/core"
	"tweetcompare/internal/log"
	"tweetcompare/internal/metrics"
)

// DefaultKeywords are the terms charted when none are configured.
var DefaultKeywords = []string{"tesla", "spacex", "starlink", "doge", "trump", "twitter"}

type (
	// Panel is one side of the comparison.
	Panel struct {
		Year       int                 `json:"year"`
		Summary    core.YearSummary    `json:"summary"`
		Series     []core.MonthlyLikes `json:"series"`
		MonthPosts int                 `json:"monthPosts"`
		TopPost    *core.Post          `json:"topPost,omitempty"`
		Keywords   []core.KeywordShare `json:"keywords"`
	}

	// Comparison is the view model for one ComparisonRequest. It is shared
	// between callers through the cache and must not be modified.
	Comparison struct {
		Request        core.ComparisonRequest `json:"request"`
		Keywords       []string               `json:"keywords"`
		SharedMaxLikes int64                  `json:"sharedMaxLikes"`
		Left           Panel                  `json:"left"`
		Right          Panel                  `json:"right"`
	}

	// EventPublisher is notified of every freshly computed comparison.
	EventPublisher interface {
		PublishComparisonViewed(ctx context.Context, req core.ComparisonRequest, leftPosts, rightPosts int) error
	}
)

// ComparisonOptions configures a ComparisonService. Zero values select the
// defaults.
type ComparisonOptions struct {
	Keywords  []string
	Defaults  core.ComparisonRequest
	CacheSize int
	CacheTTL  time.Duration
	Publisher EventPublisher
	Metrics   *metrics.Metrics
	Logger    *log.Logger
}

// ComparisonService builds comparisons from the loaded post set.
type ComparisonService struct {
	agg       *Aggregator
	posts     *core.PostSet
	keywords  []string
	defaults  core.ComparisonRequest
	lru       *cache.LRUCache[Comparison]
	cache     *cache.Loading[Comparison]
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *log.Logger
	sl        *log.StructuredLogger
}

func NewComparisonService(ps *core.PostSet, opts ComparisonOptions) *ComparisonService {
	if ps == nil {
		ps = core.NewPostSet(nil)
	}
	keywords := opts.Keywords
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	defaults := opts.Defaults
	if defaults == (core.ComparisonRequest{}) {
		defaults = core.ComparisonRequest{YearA: 2020, YearB: 2022, Month: 1}
	}
	size := opts.CacheSize
	if size <= 0 {
		size = 128
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentComparison)

	lru := cache.NewLRUCache[Comparison](size, ttl)
	return &ComparisonService{
		agg:       NewAggregator(ps),
		posts:     ps,
		keywords:  slices.Clone(keywords),
		defaults:  defaults,
		lru:       lru,
		cache:     cache.NewLoading[Comparison](lru),
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    logger,
		sl:        log.NewStructuredLogger(logger),
	}
}

// Compare returns the comparison for req. Requests with an invalid month
// fail with core.ErrInvalidMonth; an empty month is not an error.
func (s *ComparisonService) Compare(ctx context.Context, req core.ComparisonRequest) (Comparison, error) {
	if err := req.Validate(); err != nil {
		s.metrics.ObserveComparison(metrics.ResultInvalid)
		return Comparison{}, err
	}

	c, cached, err := s.cache.Get(ctx, req.Key(), func(ctx context.Context) (Comparison, error) {
		return s.build(req), nil
	})
	if err != nil {
		return Comparison{}, err
	}

	s.sl.LogComparison(ctx, req.YearA, req.YearB, req.Month, cached)
	if cached {
		s.metrics.ObserveComparison(metrics.ResultCached)
		return c, nil
	}
	s.metrics.ObserveComparison(metrics.ResultComputed)
	s.publish(ctx, c)
	return c, nil
}

func (s *ComparisonService) build(req core.ComparisonRequest) Comparison {
	left := s.panel(req.YearA, req.Month)
	right := s.panel(req.YearB, req.Month)
	return Comparison{
		Request:        req,
		Keywords:       slices.Clone(s.keywords),
		SharedMaxLikes: SharedMax(left.Series, right.Series),
		Left:           left,
		Right:          right,
	}
}

func (s *ComparisonService) panel(year, month int) Panel {
	p := Panel{
		Year:       year,
		Summary:    s.agg.Summary(year),
		Series:     s.agg.MonthlySeries(year),
		MonthPosts: len(s.posts.InMonth(year, month)),
		Keywords:   s.agg.KeywordShares(year, month, s.keywords),
	}
	if p.Series == nil {
		p.Series = []core.MonthlyLikes{}
	}
	top, err := s.agg.TopPost(year, month)
	switch {
	case err == nil:
		p.TopPost = &top
	case errors.Is(err, core.ErrNoPostsInRange):
		// rendered as a placeholder
	default:
		s.logger.Error("Unexpected top post error", log.FieldYear, year, log.FieldMonth, month, log.FieldError, err.Error())
	}
	return p
}

func (s *ComparisonService) publish(ctx context.Context, c Comparison) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishComparisonViewed(ctx, c.Request, c.Left.MonthPosts, c.Right.MonthPosts)
	s.metrics.ObservePublish(err)
	if err != nil {
		s.sl.LogError(ctx, "Failed to publish comparison event", err, log.ComponentComparison, log.OpPublish,
			log.NewFields().WithComparison(c.Request.YearA, c.Request.YearB, c.Request.Month))
	}
}

// Years lists the years present in the post set, ascending.
func (s *ComparisonService) Years() []int {
	return s.posts.Years()
}

// Keywords returns the charted keywords in display order.
func (s *ComparisonService) Keywords() []string {
	return slices.Clone(s.keywords)
}

// PostCount is the number of loaded posts.
func (s *ComparisonService) PostCount() int {
	return s.posts.Len()
}

// DefaultRequest is the initial selection. A configured year missing from
// the data falls back to the first (A) or last (B) available year.
func (s *ComparisonService) DefaultRequest() core.ComparisonRequest {
	req := s.defaults
	years := s.posts.Years()
	if len(years) == 0 {
		return req
	}
	if !s.posts.HasYear(req.YearA) {
		req.YearA = years[0]
	}
	if !s.posts.HasYear(req.YearB) {
		req.YearB = years[len(years)-1]
	}
	if req.Month < 1 || req.Month > 12 {
		req.Month = 1
	}
	return req
}

// CacheCleaner exposes the comparison cache for periodic expiry.
func (s *ComparisonService) CacheCleaner() cache.Cleaner {
	return s.lru
}

// CacheStats reports the comparison cache counters.
func (s *ComparisonService) CacheStats() cache.Stats {
	return s.lru.Stats()
}
