package search

import (
	"strings"

	"github.com/gvfbla/jobboard/internal/listing"
)

// CategoryAll matches every posting, including ones with no category.
const CategoryAll = "all"

// Categories are the filter tags offered to visitors, CategoryAll first.
var Categories = []string{CategoryAll, "technology", "marketing", "business"}

// Filter is the active query state of a listing view. The zero value shows
// everything.
type Filter struct {
	Query    string
	Category string
	JobType  string
}

func (f Filter) Match(p listing.Posting) bool {
	return matchQuery(p, f.Query) && matchCategory(p, f.Category) && matchJobType(p, f.JobType)
}

// Visible derives the subset of postings passing every active filter, in
// input order. The input is never modified.
func Visible(postings []listing.Posting, f Filter) []listing.Posting {
	out := make([]listing.Posting, 0, len(postings))
	for _, p := range postings {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

func matchQuery(p listing.Posting, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, field := range []string{p.JobTitle, p.CompanyName, p.JobDescription, p.Skills} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func matchCategory(p listing.Posting, category string) bool {
	if category == "" || strings.EqualFold(category, CategoryAll) {
		return true
	}
	return strings.EqualFold(p.Category, category)
}

func matchJobType(p listing.Posting, jobType string) bool {
	if jobType == "" {
		return true
	}
	return strings.EqualFold(p.JobType, jobType)
}
