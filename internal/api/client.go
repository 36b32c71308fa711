package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/gvfbla/jobboard/internal/role"
	"github.com/gvfbla/jobboard/internal/session"
	"github.com/pkg/errors"
)

const (
	PathLogin            = "/api/auth/login"
	PathRegisterStudent  = "/api/auth/register/student"
	PathRegisterEmployer = "/api/auth/register/employer"
	PathLogout           = "/api/auth/logout"
	PathMe               = "/api/auth/me"
	PathPostings         = "/api/postings"
	PathSubmit           = "/api/applications/submit"
	PathApprove          = "/api/admin/approve/"
	PathReject           = "/api/admin/reject/"
	PathStats            = "/api/stats"
)

// NetworkError is a transport failure or a non-2xx answer. Status is zero
// when no response was received.
type NetworkError struct {
	Status  int
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	return e.Message
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr) && netErr.Status == http.StatusUnauthorized
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token    string
	Identity session.Identity
}

type StudentRegistration struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type EmployerRegistration struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	CompanyName string `json:"companyName"`
}

type RegisterResult struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Role     role.Role `json:"role"`
	Token    string    `json:"token"`
}

// Application is submitted once and not kept by the client.
type Application struct {
	PostingID   string `json:"postingId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Education   string `json:"education"`
	Experience  string `json:"experience"`
	References  string `json:"references"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	// the backend answers either {token, user} or a flat {id, username, role, token}
	res := struct {
		Token    string            `json:"token"`
		User     *session.Identity `json:"user"`
		ID       string            `json:"id"`
		Username string            `json:"username"`
		Role     role.Role         `json:"role"`
		Email    string            `json:"email"`
	}{}
	if err := c.do(ctx, http.MethodPost, PathLogin, "", creds, &res); err != nil {
		return LoginResult{}, err
	}
	identity := session.Identity{ID: res.ID, Username: res.Username, Role: res.Role, Email: res.Email}
	if res.User != nil {
		identity = *res.User
	}
	return LoginResult{Token: res.Token, Identity: identity}, nil
}

func (c *Client) RegisterStudent(ctx context.Context, rq StudentRegistration) (RegisterResult, error) {
	var res RegisterResult
	err := c.do(ctx, http.MethodPost, PathRegisterStudent, "", rq, &res)
	return res, err
}

func (c *Client) RegisterEmployer(ctx context.Context, rq EmployerRegistration) (RegisterResult, error) {
	var res RegisterResult
	err := c.do(ctx, http.MethodPost, PathRegisterEmployer, "", rq, &res)
	return res, err
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, PathLogout, token, nil, nil)
}

func (c *Client) Me(ctx context.Context, token string) (session.Identity, error) {
	var identity session.Identity
	err := c.do(ctx, http.MethodGet, PathMe, token, nil, &identity)
	return identity, err
}

func (c *Client) ListPostings(ctx context.Context, token string) ([]listing.Posting, error) {
	postings := []listing.Posting{}
	err := c.do(ctx, http.MethodGet, PathPostings, token, nil, &postings)
	return postings, err
}

func (c *Client) CreatePosting(ctx context.Context, token string, draft listing.Draft) (listing.Posting, error) {
	var p listing.Posting
	err := c.do(ctx, http.MethodPost, PathPostings, token, draft, &p)
	return p, err
}

func (c *Client) SubmitApplication(ctx context.Context, token string, app Application) error {
	return c.do(ctx, http.MethodPost, PathSubmit, token, app, nil)
}

func (c *Client) Approve(ctx context.Context, token, postingID string) error {
	body := map[string]string{"postingId": postingID}
	return c.do(ctx, http.MethodPost, PathApprove+url.PathEscape(postingID), token, body, nil)
}

func (c *Client) Reject(ctx context.Context, token, postingID, reason string) error {
	body := map[string]string{"postingId": postingID, "reason": reason}
	return c.do(ctx, http.MethodPost, PathReject+url.PathEscape(postingID), token, body, nil)
}

func (c *Client) Stats(ctx context.Context) (listing.Stats, error) {
	var stats listing.Stats
	err := c.do(ctx, http.MethodGet, PathStats, "", nil, &stats)
	return stats, err
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "unable to encode request for %s", path)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return errors.Wrapf(err, "unable to build request for %s", path)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Message: fmt.Sprintf("unable to reach server: %v", err), Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return errorFromResponse(res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		io.Copy(ioutil.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &NetworkError{Status: res.StatusCode, Message: "unable to read server response", Err: err}
	}
	return nil
}

func errorFromResponse(res *http.Response) error {
	e := &NetworkError{Status: res.StatusCode, Message: fmt.Sprintf("HTTP error: %d", res.StatusCode)}
	buf, err := ioutil.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return e
	}
	payload := struct {
		Error string `json:"error"`
	}{}
	if json.Unmarshal(buf, &payload) == nil && payload.Error != "" {
		e.Message = payload.Error
	}
	return e
}
