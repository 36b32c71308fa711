package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gvfbla/jobboard/internal/api"
	"github.com/gvfbla/jobboard/internal/api/apitest"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/gvfbla/jobboard/internal/role"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stub(t *testing.T) (*apitest.Backend, *api.Client) {
	b := apitest.New()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, api.NewClient(srv.URL, 5*time.Second)
}

func TestLoginNestedShape(t *testing.T) {
	_, c := stub(t)
	res, err := c.Login(context.Background(), api.Credentials{Username: "admin", Password: "admin"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "admin", res.Identity.Username)
	assert.Equal(t, role.Admin, res.Identity.Role)
}

func TestLoginFlatShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"7","username":"ana","role":"STUDENT","token":"t0k"}`))
	}))
	defer srv.Close()

	res, err := api.NewClient(srv.URL, time.Second).Login(context.Background(), api.Credentials{Username: "ana", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "t0k", res.Token)
	assert.Equal(t, "7", res.Identity.ID)
	assert.Equal(t, role.Student, res.Identity.Role)
}

func TestErrorMessageFromBody(t *testing.T) {
	_, c := stub(t)
	_, err := c.Login(context.Background(), api.Credentials{Username: "admin", Password: "wrong"})
	require.Error(t, err)

	var netErr *api.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusUnauthorized, netErr.Status)
	assert.Equal(t, "Invalid credentials or inactive account", netErr.Message)
	assert.True(t, api.IsUnauthorized(err))
}

func TestErrorFallbackMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream down</html>"))
	}))
	defer srv.Close()

	_, err := api.NewClient(srv.URL, time.Second).Stats(context.Background())
	require.Error(t, err)
	assert.Equal(t, "HTTP error: 502", err.Error())
	assert.False(t, api.IsUnauthorized(err))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := api.NewClient(url, time.Second).ListPostings(context.Background(), "")
	require.Error(t, err)
	var netErr *api.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Zero(t, netErr.Status)
	assert.Contains(t, netErr.Message, "unable to reach server")
}

func TestBearerHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := api.NewClient(srv.URL+"/", time.Second)
	_, err := c.ListPostings(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got)

	_, err = c.ListPostings(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmployerFlow(t *testing.T) {
	b, c := stub(t)
	ctx := context.Background()

	reg, err := c.RegisterEmployer(ctx, api.EmployerRegistration{Username: "acme", Password: "pw", Email: "hr@acme.io", CompanyName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, role.Employer, reg.Role)
	require.NotEmpty(t, reg.Token)

	p, err := c.CreatePosting(ctx, reg.Token, listing.Draft{JobTitle: "Intern", CompanyName: "Acme", JobDescription: "Help", Location: "Remote"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, listing.StatusPending, p.Status)

	admin, err := b.Token("admin")
	require.NoError(t, err)
	require.NoError(t, c.Reject(ctx, admin, p.ID, "vague"))

	all, err := c.ListPostings(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, listing.StatusRejected, all[0].Status)
	assert.Equal(t, "vague", all[0].RejectionReason)
}

func TestRoleEnforcedByBackend(t *testing.T) {
	_, c := stub(t)
	ctx := context.Background()
	reg, err := c.RegisterStudent(ctx, api.StudentRegistration{Username: "ana", Password: "pw", Email: "ana@uni.edu", FirstName: "Ana", LastName: "Li"})
	require.NoError(t, err)

	err = c.Approve(ctx, reg.Token, "whatever")
	var netErr *api.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusForbidden, netErr.Status)
}

func TestMe(t *testing.T) {
	b, c := stub(t)
	tok, err := b.Token("admin")
	require.NoError(t, err)

	identity, err := c.Me(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", identity.Username)

	_, err = c.Me(context.Background(), "garbage")
	assert.True(t, api.IsUnauthorized(err))
}

func TestStats(t *testing.T) {
	b, c := stub(t)
	b.AddPosting(listing.Posting{JobTitle: "A", CompanyName: "Acme", Status: listing.StatusApproved})
	b.AddPosting(listing.Posting{JobTitle: "B", CompanyName: "acme", Status: listing.StatusApproved})
	b.AddPosting(listing.Posting{JobTitle: "C", CompanyName: "Brandly", Status: listing.StatusPending})
	b.SetStudentsPlaced(4)

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, listing.Stats{ActiveJobs: 2, Companies: 1, StudentsPlaced: 4}, stats)
	assert.Equal(t, 1, b.Calls("stats"))
}
