// Package loader turns a raw post table into the immutable PostSet.
package loader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tweetcompare/internal/core"
	"tweetcompare/internal/log"
	"tweetcompare/internal/sources"
)

// MalformedPolicy selects what happens to rows with unparseable values.
type MalformedPolicy string

const (
	PolicyFail MalformedPolicy = "fail"
	PolicyDrop MalformedPolicy = "drop"
)

// ParsePolicy validates a policy name. Empty means PolicyFail.
func ParsePolicy(s string) (MalformedPolicy, error) {
	switch p := MalformedPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyFail:
		return PolicyFail, nil
	case PolicyDrop:
		return PolicyDrop, nil
	default:
		return "", fmt.Errorf("unknown malformed policy %q (want fail or drop)", s)
	}
}

type Options struct {
	Policy MalformedPolicy
}

// Report describes what a load kept and dropped.
type Report struct {
	RowsRead            int
	PostsKept           int
	DroppedMissingFlags int
	DroppedMalformed    int
	Years               []int
}

// Load reads the table from src and builds the post set.
func Load(ctx context.Context, src sources.TableReader, opts Options) (*core.PostSet, Report, error) {
	t, err := src.ReadTable(ctx)
	if err != nil {
		if errors.Is(err, core.ErrDataUnavailable) {
			return nil, Report{}, err
		}
		return nil, Report{}, fmt.Errorf("%w: %w", core.ErrDataUnavailable, err)
	}
	return FromTable(ctx, t, opts)
}

// FromTable cleans every row of t. Rows missing either flag are dropped;
// rows with unparseable values fail the load or are dropped per
// opts.Policy.
func FromTable(ctx context.Context, t core.Table, opts Options) (*core.PostSet, Report, error) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentLoader)
	start := time.Now()

	idx := t.Index(core.RequiredColumns...)
	var missing []string
	for _, c := range core.RequiredColumns {
		if idx[c] < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, Report{}, fmt.Errorf("%w: missing columns %s", core.ErrDataUnavailable, strings.Join(missing, ", "))
	}

	rep := Report{RowsRead: len(t.Rows)}
	posts := make([]core.Post, 0, len(t.Rows))
	for i, row := range t.Rows {
		if err := ctx.Err(); err != nil {
			return nil, Report{}, err
		}
		cell := func(col string) string {
			if j := idx[col]; j < len(row) {
				return strings.TrimSpace(row[j])
			}
			return ""
		}

		if cell(core.ColIsRetweet) == "" || cell(core.ColIsReply) == "" {
			rep.DroppedMissingFlags++
			continue
		}

		p, err := parseRow(i+1, cell)
		if err != nil {
			if opts.Policy == PolicyDrop {
				rep.DroppedMalformed++
				logger.DebugContext(ctx, "Dropping malformed row", log.FieldRow, i+1, log.FieldError, err.Error())
				continue
			}
			logger.ErrorContext(ctx, "Malformed row", log.FieldRow, i+1, log.FieldError, err.Error())
			return nil, Report{}, err
		}
		posts = append(posts, p)
	}

	ps := core.NewPostSet(posts)
	rep.PostsKept = ps.Len()
	rep.Years = ps.Years()

	logger.InfoContext(ctx, "Posts loaded",
		"rows", rep.RowsRead,
		log.FieldPostCount, rep.PostsKept,
		"dropped_missing_flags", rep.DroppedMissingFlags,
		"dropped_malformed", rep.DroppedMalformed,
		"years", rep.Years,
		log.FieldDuration, time.Since(start).Milliseconds())

	return ps, rep, nil
}

func parseRow(n int, cell func(string) string) (core.Post, error) {
	ts, err := core.ParseTimestamp(cell(core.ColCreatedAt))
	if err != nil {
		return core.Post{}, rowErr(n, core.ColCreatedAt, cell, err)
	}
	likes, err := parseCount(cell(core.ColLikeCount))
	if err != nil {
		return core.Post{}, rowErr(n, core.ColLikeCount, cell, err)
	}
	retweets, err := parseCount(cell(core.ColRetweetCount))
	if err != nil {
		return core.Post{}, rowErr(n, core.ColRetweetCount, cell, err)
	}
	isRetweet, err := parseFlag(cell(core.ColIsRetweet))
	if err != nil {
		return core.Post{}, rowErr(n, core.ColIsRetweet, cell, err)
	}
	isReply, err := parseFlag(cell(core.ColIsReply))
	if err != nil {
		return core.Post{}, rowErr(n, core.ColIsReply, cell, err)
	}

	text := cell(core.ColFullText)
	return core.Post{
		Timestamp:    ts,
		Text:         text,
		LikeCount:    likes,
		RetweetCount: retweets,
		IsRetweet:    isRetweet,
		IsReply:      isReply,
		Year:         ts.Year(),
		CleanText:    core.CleanText(text),
	}, nil
}

func rowErr(n int, col string, cell func(string) string, err error) error {
	return &core.RowError{Row: n, Column: col, Value: cell(col), Err: err}
}

// parseCount accepts integers and whole floats ("12.0"). Empty is 0.
func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("%w: negative count", core.ErrMalformedRecord)
		}
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: not a count", core.ErrMalformedRecord)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f < 0 || f >= 1<<63 {
		return 0, fmt.Errorf("%w: count out of range", core.ErrMalformedRecord)
	}
	return int64(f), nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1.0":
		return true, nil
	case "0.0":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: not a boolean", core.ErrMalformedRecord)
	}
	return b, nil
}
