package core

import "time"

// YearSummary is the year-wide engagement total for one year.
type YearSummary struct {
	Year          int   `json:"year"`
	TweetCount    int   `json:"tweetCount"`
	TotalLikes    int64 `json:"totalLikes"`
	TotalRetweets int64 `json:"totalRetweets"`
}

// MonthlyLikes is one point of the likes-by-month series.
type MonthlyLikes struct {
	MonthEnd time.Time `json:"monthEnd"` // last day of the month, UTC
	Likes    int64     `json:"likes"`
}

// KeywordShare is one keyword's mention percentage.
type KeywordShare struct {
	Keyword string  `json:"keyword"`
	Percent float64 `json:"percent"`
}

// MonthEnd returns the last day of the given month at midnight UTC.
func MonthEnd(year, month int) time.Time {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
}
