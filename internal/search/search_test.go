package search

import (
	"testing"

	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/stretchr/testify/assert"
)

func postings() []listing.Posting {
	return []listing.Posting{
		{ID: "1", JobTitle: "Software Developer Intern", CompanyName: "Acme", Category: "Technology", JobType: "Internship", Skills: "Go, SQL"},
		{ID: "2", JobTitle: "Marketing Assistant", CompanyName: "Brandly", Category: "marketing", JobType: "Part-time", JobDescription: "Social media campaigns"},
		{ID: "3", JobTitle: "Cashier", CompanyName: "Corner Shop"},
		{ID: "4", JobTitle: "Backend Engineer", CompanyName: "Acme", Category: "technology", JobType: "Full-time", JobDescription: "Build the API, paid internship path"},
	}
}

func ids(ps []listing.Posting) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestVisibleIdentity(t *testing.T) {
	all := postings()
	assert.Equal(t, all, Visible(all, Filter{Query: "", Category: CategoryAll}))
	assert.Equal(t, all, Visible(all, Filter{}))
}

func TestInternScenario(t *testing.T) {
	ps := []listing.Posting{
		{ID: "a", JobTitle: "Software Developer Intern"},
		{ID: "b", JobTitle: "Marketing Assistant"},
	}
	assert.Equal(t, []string{"a"}, ids(Visible(ps, Filter{Query: "intern", Category: CategoryAll})))
}

func TestQueryMatchesAnyField(t *testing.T) {
	all := postings()
	assert.Equal(t, []string{"1", "4"}, ids(Visible(all, Filter{Query: "ACME"})))
	assert.Equal(t, []string{"1"}, ids(Visible(all, Filter{Query: "sql"})))
	assert.Equal(t, []string{"2"}, ids(Visible(all, Filter{Query: "social"})))
	assert.Equal(t, []string{"1", "4"}, ids(Visible(all, Filter{Query: "intern"})))
	assert.Empty(t, Visible(all, Filter{Query: "astronaut"}))
}

func TestCategory(t *testing.T) {
	all := postings()
	assert.Equal(t, []string{"1", "4"}, ids(Visible(all, Filter{Category: "technology"})))
	assert.Equal(t, []string{"2"}, ids(Visible(all, Filter{Category: "Marketing"})))
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(Visible(all, Filter{Category: "ALL"})))
	assert.Empty(t, Visible(all, Filter{Category: "business"}))
}

func TestFiltersCompose(t *testing.T) {
	all := postings()
	assert.Equal(t, []string{"4"}, ids(Visible(all, Filter{Query: "api", Category: "technology"})))
	assert.Empty(t, Visible(all, Filter{Query: "social", Category: "technology"}))
	assert.Equal(t, []string{"1"}, ids(Visible(all, Filter{Category: "technology", JobType: "internship"})))
}

func TestFilteringOnlyNarrows(t *testing.T) {
	all := postings()
	for _, c := range []string{CategoryAll, "technology", "marketing", "business", ""} {
		base := Visible(all, Filter{Category: c})
		assert.Subset(t, ids(all), ids(base))
		for _, q := range []string{"", "a", "intern", "acme", "zzz"} {
			assert.Subset(t, ids(base), ids(Visible(all, Filter{Query: q, Category: c})))
		}
	}
}

func TestVisibleDoesNotMutate(t *testing.T) {
	all := postings()
	before := postings()
	Visible(all, Filter{Query: "intern", Category: "technology"})
	assert.Equal(t, before, all)
}
