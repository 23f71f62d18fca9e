package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Source column names every record table must provide.
const (
	ColCreatedAt    = "createdAt"
	ColFullText     = "fullText"
	ColLikeCount    = "likeCount"
	ColRetweetCount = "retweetCount"
	ColIsRetweet    = "isRetweet"
	ColIsReply      = "isReply"
)

// RequiredColumns lists the columns in the order sources emit them.
var RequiredColumns = []string{
	ColCreatedAt,
	ColFullText,
	ColLikeCount,
	ColRetweetCount,
	ColIsRetweet,
	ColIsReply,
}

type (
	// Post is one social-media record after cleaning.
	Post struct {
		Timestamp    time.Time `json:"timestamp"`
		Text         string    `json:"text"`
		LikeCount    int64     `json:"likeCount"`
		RetweetCount int64     `json:"retweetCount"`
		IsRetweet    bool      `json:"isRetweet"`
		IsReply      bool      `json:"isReply"`

		// Derived at load time.
		Year      int    `json:"year"`
		CleanText string `json:"-"`
	}

	// Table is the raw record set produced by a source. An empty cell is a
	// missing value.
	Table struct {
		Header []string
		Rows   [][]string
	}

	// ComparisonRequest selects the two years and the month to compare.
	ComparisonRequest struct {
		YearA int `json:"yearA"`
		YearB int `json:"yearB"`
		Month int `json:"month"` // 1-12
	}
)

var (
	ErrDataUnavailable    = errors.New("data unavailable")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrNoPostsInRange     = errors.New("no posts in range")
	ErrInvalidMonth       = errors.New("invalid month")
)

// RowError locates a load failure in the source table. Row is 1-based and
// does not count the header.
type RowError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %s (%q): %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Month returns the calendar month of the post timestamp.
func (p Post) Month() int {
	return int(p.Timestamp.Month())
}

// Engagement is likes plus retweets.
func (p Post) Engagement() int64 {
	return p.LikeCount + p.RetweetCount
}

// Index returns the position of each named column in the header, or -1.
func (t Table) Index(names ...string) map[string]int {
	idx := make(map[string]int, len(names))
	for _, n := range names {
		idx[n] = -1
	}
	for i, h := range t.Header {
		h = normalizeHeader(h)
		if _, ok := idx[h]; ok && idx[h] == -1 {
			idx[h] = i
		}
	}
	return idx
}

func normalizeHeader(h string) string {
	// Spreadsheet exports often prefix the first header with a BOM.
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

func (r ComparisonRequest) Validate() error {
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, r.Month)
	}
	return nil
}

// Key identifies the request in caches and logs.
func (r ComparisonRequest) Key() string {
	return fmt.Sprintf("%d-%d-%d", r.YearA, r.YearB, r.Month)
}
