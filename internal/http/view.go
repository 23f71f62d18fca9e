package http

import (
	"encoding/json"
	"strconv"

	"tweetcompare/internal/core"
	"tweetcompare/internal/services"
)

// chartData is read by static/app.js from a canvas data-chart attribute.
type chartData struct {
	Kind   string   `json:"kind"` // "line" or "bar"
	Label  string   `json:"label"`
	Labels []string `json:"labels"`
	Values []any    `json:"values"`
	Max    int64    `json:"max,omitempty"`
}

type keywordRow struct {
	Keyword string
	Percent string
}

type topPostView struct {
	Text     string
	Date     string
	Likes    string
	Retweets string
}

type panelView struct {
	Year          int
	Tweets        string
	TotalLikes    string
	TotalRetweets string
	LikesTitle    string
	LikesChart    string
	MonthPosts    int
	Top           *topPostView
	KeywordsTitle string
	KeywordsChart string
	Keywords      []keywordRow
}

type comparisonView struct {
	Request   core.ComparisonRequest
	MonthName string
	Panels    []panelView
}

type monthOption struct {
	Value    int
	Label    string
	Selected bool
}

type indexView struct {
	Title      string
	Years      []int
	Months     []monthOption
	Request    core.ComparisonRequest
	Comparison comparisonView
}

func newComparisonView(c services.Comparison) comparisonView {
	return comparisonView{
		Request:   c.Request,
		MonthName: monthName(c.Request.Month),
		Panels: []panelView{
			newPanelView(c.Left, c.Request.Month, c.SharedMaxLikes),
			newPanelView(c.Right, c.Request.Month, c.SharedMaxLikes),
		},
	}
}

func newPanelView(p services.Panel, month int, sharedMax int64) panelView {
	v := panelView{
		Year:          p.Year,
		Tweets:        formatCount(int64(p.Summary.TweetCount)),
		TotalLikes:    formatCount(p.Summary.TotalLikes),
		TotalRetweets: formatCount(p.Summary.TotalRetweets),
		LikesTitle:    "Likes by Month (" + strconv.Itoa(p.Year) + ")",
		MonthPosts:    p.MonthPosts,
		KeywordsTitle: "Keyword Mentions in " + strconv.Itoa(month) + "/" + strconv.Itoa(p.Year),
	}

	likes := chartData{Kind: "line", Label: "Likes", Labels: []string{}, Values: []any{}, Max: sharedMax}
	for _, pt := range p.Series {
		likes.Labels = append(likes.Labels, monthInitial(int(pt.MonthEnd.Month())))
		likes.Values = append(likes.Values, pt.Likes)
	}
	v.LikesChart = mustJSON(likes)

	keywords := chartData{Kind: "bar", Label: "Mentions (%)", Labels: []string{}, Values: []any{}}
	for _, k := range p.Keywords {
		keywords.Labels = append(keywords.Labels, k.Keyword)
		keywords.Values = append(keywords.Values, k.Percent)
		v.Keywords = append(v.Keywords, keywordRow{Keyword: k.Keyword, Percent: formatPercent(k.Percent)})
	}
	v.KeywordsChart = mustJSON(keywords)

	if p.TopPost != nil {
		v.Top = &topPostView{
			Text:     p.TopPost.Text,
			Date:     p.TopPost.Timestamp.Format("2 Jan 2006"),
			Likes:    formatCount(p.TopPost.LikeCount),
			Retweets: formatCount(p.TopPost.RetweetCount),
		}
	}
	return v
}

func monthOptions(selected int) []monthOption {
	opts := make([]monthOption, 0, 12)
	for m := 1; m <= 12; m++ {
		opts = append(opts, monthOption{Value: m, Label: monthAbbrev(m), Selected: m == selected})
	}
	return opts
}

// mustJSON marshals chart data, which holds only strings and numbers.
func mustJSON(v chartData) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
