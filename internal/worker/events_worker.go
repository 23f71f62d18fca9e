// Package worker aggregates the comparison events published by the
// dashboard.
package worker

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"tweetcompare/internal/amqp"
	"tweetcompare/internal/core"
	"tweetcompare/internal/log"
)

// SelectionCount is how often one selection was viewed.
type SelectionCount struct {
	Request core.ComparisonRequest
	Views   int
}

// EventsWorker tallies comparison views per selection.
type EventsWorker struct {
	mu     sync.Mutex
	views  map[core.ComparisonRequest]int
	total  int
	last   time.Time
	logger *log.Logger
}

func NewEventsWorker(logger *log.Logger) *EventsWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &EventsWorker{
		views:  make(map[core.ComparisonRequest]int),
		logger: logger.WithComponent(log.ComponentAMQP),
	}
}

// HandleComparisonViewed records one event. It matches the handler
// signature of amqp.Client.ConsumeComparisonViewed.
func (w *EventsWorker) HandleComparisonViewed(ctx context.Context, msg *amqp.ComparisonViewedMessage) error {
	if msg == nil {
		return errors.New("nil comparison event")
	}
	req := msg.Request()
	if err := req.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	w.views[req]++
	w.total++
	if msg.Timestamp.After(w.last) {
		w.last = msg.Timestamp
	}
	w.mu.Unlock()

	w.logger.DebugContext(ctx, "Comparison event recorded",
		log.FieldYearA, req.YearA,
		log.FieldYearB, req.YearB,
		log.FieldMonth, req.Month,
		"left_posts", msg.LeftPosts,
		"right_posts", msg.RightPosts)
	return nil
}

// Total is the number of events recorded.
func (w *EventsWorker) Total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}

// Top returns up to n selections, most viewed first. Ties are ordered by
// year A, year B, then month.
func (w *EventsWorker) Top(n int) []SelectionCount {
	w.mu.Lock()
	out := make([]SelectionCount, 0, len(w.views))
	for req, v := range w.views {
		out = append(out, SelectionCount{Request: req, Views: v})
	}
	w.mu.Unlock()

	slices.SortFunc(out, func(a, b SelectionCount) int {
		return cmp.Or(
			cmp.Compare(b.Views, a.Views),
			cmp.Compare(a.Request.YearA, b.Request.YearA),
			cmp.Compare(a.Request.YearB, b.Request.YearB),
			cmp.Compare(a.Request.Month, b.Request.Month),
		)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Report logs the most viewed selections every interval until ctx is done.
func (w *EventsWorker) Report(ctx context.Context, interval time.Duration, n int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.logSummary(ctx, n)
		}
	}
}

func (w *EventsWorker) logSummary(ctx context.Context, n int) {
	w.mu.Lock()
	total, last := w.total, w.last
	w.mu.Unlock()
	if total == 0 {
		return
	}

	top := make([]string, 0, n)
	for _, sc := range w.Top(n) {
		top = append(top, sc.Request.Key())
	}
	w.logger.InfoContext(ctx, "Comparison views",
		"total", total,
		"top", top,
		"last_event", last.Format(time.RFC3339))
}
