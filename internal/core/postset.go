package core

import (
	"slices"
	"sort"
)

// PostSet is the loaded post collection. It is built once and never mutated;
// every accessor returns a fresh slice.
type PostSet struct {
	posts  []Post
	byYear map[int][]int
	years  []int
}

// NewPostSet indexes posts by year. Load order is preserved within each year.
func NewPostSet(posts []Post) *PostSet {
	ps := &PostSet{
		posts:  slices.Clone(posts),
		byYear: make(map[int][]int),
	}
	for i, p := range ps.posts {
		if _, ok := ps.byYear[p.Year]; !ok {
			ps.years = append(ps.years, p.Year)
		}
		ps.byYear[p.Year] = append(ps.byYear[p.Year], i)
	}
	sort.Ints(ps.years)
	return ps
}

// Len returns the number of posts.
func (ps *PostSet) Len() int {
	return len(ps.posts)
}

// Years returns the distinct post years in ascending order.
func (ps *PostSet) Years() []int {
	return slices.Clone(ps.years)
}

// HasYear reports whether at least one post falls in year.
func (ps *PostSet) HasYear(year int) bool {
	_, ok := ps.byYear[year]
	return ok
}

// All returns every post in load order.
func (ps *PostSet) All() []Post {
	return slices.Clone(ps.posts)
}

// InYear returns the posts of year in load order.
func (ps *PostSet) InYear(year int) []Post {
	idx := ps.byYear[year]
	out := make([]Post, 0, len(idx))
	for _, i := range idx {
		out = append(out, ps.posts[i])
	}
	return out
}

// InMonth returns the posts of year and month in load order.
func (ps *PostSet) InMonth(year, month int) []Post {
	var out []Post
	for _, i := range ps.byYear[year] {
		if ps.posts[i].Month() == month {
			out = append(out, ps.posts[i])
		}
	}
	return out
}
