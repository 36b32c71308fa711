package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed() []Posting {
	return []Posting{
		{ID: "1", JobTitle: "Software Developer Intern", Status: StatusPending},
		{ID: "2", JobTitle: "Marketing Assistant", Status: StatusApproved},
		{ID: "3", JobTitle: "Data Analyst", Status: "pending"},
	}
}

func ids(ps []Posting) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestReplaceAllKeepsOrderAndCopies(t *testing.T) {
	in := seed()
	c := NewCache()
	c.ReplaceAll(in)
	in[0].JobTitle = "mutated"

	assert.Equal(t, []string{"1", "2", "3"}, ids(c.All()))
	p, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Software Developer Intern", p.JobTitle)

	c.ReplaceAll(nil)
	assert.Equal(t, 0, c.Len())
}

func TestPrepend(t *testing.T) {
	c := NewCache()
	c.ReplaceAll(seed())
	before := c.All()

	c.Prepend(Posting{ID: "9", JobTitle: "Barista", Status: StatusPending})
	after := c.All()

	require.Len(t, after, len(before)+1)
	assert.Equal(t, "9", after[0].ID)
	assert.Equal(t, before, after[1:])
}

func TestPrependNeverDuplicatesID(t *testing.T) {
	c := NewCache()
	c.ReplaceAll(seed())
	c.Prepend(Posting{ID: "2", JobTitle: "Marketing Lead"})

	assert.Equal(t, []string{"2", "1", "3"}, ids(c.All()))
	p, _ := c.Get("2")
	assert.Equal(t, "Marketing Lead", p.JobTitle)
}

func TestUpdateStatusMissIsNoop(t *testing.T) {
	c := NewCache()
	c.ReplaceAll(seed())
	before := c.All()

	assert.False(t, c.UpdateStatus("404", StatusApproved, ""))
	assert.Equal(t, before, c.All())
}

func TestRejectScenario(t *testing.T) {
	c := NewCache()
	c.ReplaceAll([]Posting{{ID: "1", Status: StatusPending}})

	assert.True(t, c.UpdateStatus("1", StatusRejected, "bad fit"))
	assert.Empty(t, c.Pending())
	p, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, StatusRejected, p.Status)
	assert.Equal(t, "bad fit", p.RejectionReason)
}

func TestPendingIsCaseInsensitive(t *testing.T) {
	c := NewCache()
	c.ReplaceAll(seed())
	assert.Equal(t, []string{"1", "3"}, ids(c.Pending()))

	c.UpdateStatus("1", StatusApproved, "")
	assert.Equal(t, []string{"3"}, ids(c.Pending()))
}

func TestSnapshotLoad(t *testing.T) {
	c := NewCache()
	c.ReplaceAll(seed())
	buf, err := c.Snapshot()
	require.NoError(t, err)

	other := NewCache()
	require.NoError(t, other.Load(buf))
	assert.Equal(t, c.All(), other.All())

	assert.Error(t, other.Load([]byte("nope")))
	assert.Equal(t, 3, other.Len())
}

func TestSkillList(t *testing.T) {
	p := Posting{Skills: "Go, SQL,, docker "}
	assert.Equal(t, []string{"Go", "SQL", "docker"}, p.SkillList())
	assert.Empty(t, Posting{}.SkillList())
}

func TestHumanSalary(t *testing.T) {
	assert.Equal(t, "1,200,000", HumanSalary("1200000"))
	assert.Equal(t, "45,000", HumanSalary("45,000"))
	assert.Equal(t, "$20/hr", HumanSalary(" $20/hr "))
}
