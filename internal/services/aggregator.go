package services

import (
	"fmt"
	"math"
	"strings"

	"tweetcompare/internal/core"
)

// Aggregator computes per-year statistics over an immutable post set.
type Aggregator struct {
	posts *core.PostSet
}

func NewAggregator(ps *core.PostSet) *Aggregator {
	if ps == nil {
		ps = core.NewPostSet(nil)
	}
	return &Aggregator{posts: ps}
}

// Summary totals every post of year. The month selection does not apply.
func (a *Aggregator) Summary(year int) core.YearSummary {
	s := core.YearSummary{Year: year}
	for _, p := range a.posts.InYear(year) {
		s.TweetCount++
		s.TotalLikes += p.LikeCount
		s.TotalRetweets += p.RetweetCount
	}
	return s
}

// MonthlySeries sums likes per calendar month of year. The series runs
// without gaps from the first to the last month that has posts; months in
// between with no posts are 0. A year without posts yields nil.
func (a *Aggregator) MonthlySeries(year int) []core.MonthlyLikes {
	var (
		byMonth     [13]int64
		first, last int
	)
	for _, p := range a.posts.InYear(year) {
		m := p.Month()
		byMonth[m] += p.LikeCount
		if first == 0 || m < first {
			first = m
		}
		if m > last {
			last = m
		}
	}
	if first == 0 {
		return nil
	}

	out := make([]core.MonthlyLikes, 0, last-first+1)
	for m := first; m <= last; m++ {
		out = append(out, core.MonthlyLikes{MonthEnd: core.MonthEnd(year, m), Likes: byMonth[m]})
	}
	return out
}

// SharedMax is the largest monthly total across all series, 0 when they are
// all empty. Both charts use it as their y-axis upper bound.
func SharedMax(series ...[]core.MonthlyLikes) int64 {
	var peak int64
	for _, s := range series {
		for _, point := range s {
			peak = max(peak, point.Likes)
		}
	}
	return peak
}

// TopPost returns the most liked post of year and month. Ties go to the
// earliest post in load order.
func (a *Aggregator) TopPost(year, month int) (core.Post, error) {
	posts := a.posts.InMonth(year, month)
	if len(posts) == 0 {
		return core.Post{}, fmt.Errorf("%w: %d-%02d", core.ErrNoPostsInRange, year, month)
	}
	top := posts[0]
	for _, p := range posts[1:] {
		if p.LikeCount > top.LikeCount {
			top = p
		}
	}
	return top, nil
}

// KeywordFrequencies counts each keyword as a raw substring of the cleaned
// text of the month's posts, joined with single spaces, and divides by the
// number of posts in the whole year. Percentages are rounded to two
// decimals. A year without posts yields 0 for every keyword.
func (a *Aggregator) KeywordFrequencies(year, month int, keywords []string) map[string]float64 {
	shares := a.KeywordShares(year, month, keywords)
	out := make(map[string]float64, len(shares))
	for _, s := range shares {
		out[s.Keyword] = s.Percent
	}
	return out
}

// KeywordShares is KeywordFrequencies in keyword order.
func (a *Aggregator) KeywordShares(year, month int, keywords []string) []core.KeywordShare {
	yearTotal := len(a.posts.InYear(year))
	monthPosts := a.posts.InMonth(year, month)

	texts := make([]string, len(monthPosts))
	for i, p := range monthPosts {
		texts[i] = p.CleanText
	}
	joined := strings.Join(texts, " ")

	out := make([]core.KeywordShare, 0, len(keywords))
	for _, kw := range keywords {
		share := core.KeywordShare{Keyword: kw}
		if yearTotal > 0 && kw != "" {
			n := strings.Count(joined, kw)
			share.Percent = round2(float64(n) / float64(yearTotal) * 100)
		}
		out = append(out, share)
	}
	return out
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
