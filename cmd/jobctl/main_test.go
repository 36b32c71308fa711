package main

import (
	"bytes"
	"io/ioutil"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gvfbla/jobboard/internal/api/apitest"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t       *testing.T
	backend *apitest.Backend
	file    string
}

func newCLI(t *testing.T) *cli {
	b := apitest.New()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	file := filepath.Join(t.TempDir(), "session.json")
	for k, v := range map[string]string{"JOBBOARD_API_BASE_URL": srv.URL, "JOBBOARD_SESSION_FILE": file} {
		os.Setenv(k, v)
		k := k
		t.Cleanup(func() { os.Unsetenv(k) })
	}
	return &cli{t: t, backend: b, file: file}
}

func (c *cli) run(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	err := run(args, &out, &errOut)
	return out.String(), err
}

func (c *cli) must(args ...string) string {
	out, err := c.run(args...)
	require.NoError(c.t, err, strings.Join(args, " "))
	return out
}

func TestSessionSurvivesInvocations(t *testing.T) {
	c := newCLI(t)
	out := c.must("whoami")
	assert.Equal(t, "not logged in\n", out)

	out = c.must("login", "--username", "admin", "--password", "admin")
	assert.Equal(t, "Login successful!\n", out)

	out = c.must("whoami")
	assert.True(t, strings.HasPrefix(out, "admin (admin)"), out)

	c.must("logout")
	assert.Equal(t, "not logged in\n", c.must("whoami"))
}

func TestCorruptSessionFileIsHealed(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, ioutil.WriteFile(c.file, []byte("{not json"), 0600))

	assert.Equal(t, "not logged in\n", c.must("whoami"))
	_, err := os.Stat(c.file)
	assert.True(t, os.IsNotExist(err))
}

func TestEmployerToAdminFlow(t *testing.T) {
	c := newCLI(t)
	c.backend.AddPosting(listing.Posting{JobTitle: "Cashier", CompanyName: "Shop", Location: "Town", JobDescription: "Till", Status: listing.StatusApproved})

	_, err := c.run("create", "--title", "Intern", "--company", "Acme", "--location", "Remote", "--description", "Go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "please log in to post a job")
	assert.Equal(t, 0, c.backend.Calls("create"))

	c.must("register-employer", "-u", "acme", "-p", "pw", "--email", "hr@acme.io", "--company", "Acme")
	out := c.must("create", "--title", "Intern", "--company", "Acme", "--location", "Remote", "--description", "Go", "--salary", "30000")
	assert.Contains(t, out, "It will be reviewed by admin.")
	c.must("logout")

	c.must("login", "-u", "admin", "-p", "admin")
	out = c.must("pending")
	assert.Contains(t, out, "Intern")
	assert.Contains(t, out, "30,000")
	assert.NotContains(t, out, "Cashier")

	var id string
	for _, p := range c.backend.Postings() {
		if p.JobTitle == "Intern" {
			id = p.ID
		}
	}
	_, err = c.run("reject", id)
	assert.Error(t, err)
	assert.Equal(t, 0, c.backend.Calls("reject"))

	assert.Equal(t, "Posting approved!\n", c.must("approve", id))
	assert.Equal(t, "no postings\n", c.must("pending"))

	out = c.must("list", "--query", "intern")
	assert.Contains(t, out, "Intern")
	assert.NotContains(t, out, "Cashier")
	assert.Contains(t, out, "1 postings")
}

func TestStudentApplies(t *testing.T) {
	c := newCLI(t)
	p := c.backend.AddPosting(listing.Posting{JobTitle: "Tutor", CompanyName: "Library", Location: "Campus", JobDescription: "Help", Status: listing.StatusApproved})

	c.must("register-student", "-u", "ana", "-p", "pw", "--email", "ana@uni.edu", "--name", "Ana Li")
	_, err := c.run("apply", "missing", "--first", "Ana", "--last", "Li", "--email", "ana@uni.edu")
	assert.Error(t, err)

	out := c.must("apply", p.ID, "--first", "Ana", "--last", "Li", "--email", "ana@uni.edu")
	assert.Equal(t, "Application submitted successfully!\n", out)
	require.Len(t, c.backend.Applications(), 1)
}

func TestVerboseTracesTransitions(t *testing.T) {
	c := newCLI(t)
	var out, errOut bytes.Buffer
	require.NoError(t, run([]string{"-v", "login", "-u", "admin", "-p", "admin"}, &out, &errOut))
	assert.Equal(t, "login idle\nlogin validating\nlogin in-flight\nlogin succeeded: Login successful!\n", errOut.String())

	errOut.Reset()
	require.Error(t, run([]string{"-v", "reject", "nope"}, &out, &errOut))
	assert.Contains(t, errOut.String(), "refresh succeeded: \n")
	assert.Contains(t, errOut.String(), "reject failed: reason is required\n")
	assert.Equal(t, 0, c.backend.Calls("reject"))
}

func TestUnknownCommand(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("fly")
	assert.EqualError(t, err, `unknown command "fly"`)
	_, err = c.run()
	assert.Error(t, err)
}
