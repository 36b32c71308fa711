// Package apitest is an in-memory job board backend speaking the REST
// contract the client consumes. It backs the client and handler tests and
// cmd/stubapi for local development.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gorilla/mux"
	"github.com/gvfbla/jobboard/internal/api"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/gvfbla/jobboard/internal/role"
	"github.com/gvfbla/jobboard/internal/session"
	"github.com/segmentio/ksuid"
)

const issuer = "jobboard-stub"

type claims struct {
	UserID string    `json:"user_id"`
	Role   role.Role `json:"role"`
	jwt.StandardClaims
}

type account struct {
	identity session.Identity
	password string
}

type failure struct {
	status  int
	message string
}

type Backend struct {
	mu           sync.Mutex
	key          []byte
	accounts     map[string]*account
	postings     []listing.Posting
	applications []api.Application
	placed       int
	calls        map[string]int
	failures     map[string]failure
	router       *mux.Router
}

// New returns a backend seeded with an admin account (admin / admin).
func New() *Backend {
	b := &Backend{
		key:      []byte(ksuid.New().String()),
		accounts: make(map[string]*account),
		calls:    make(map[string]int),
		failures: make(map[string]failure),
		router:   mux.NewRouter(),
	}
	b.AddAccount(session.Identity{ID: ksuid.New().String(), Username: "admin", Role: role.Admin, Email: "admin@jobboard.local"}, "admin")

	b.route("login", api.PathLogin, http.MethodPost, b.login)
	b.route("register-student", api.PathRegisterStudent, http.MethodPost, b.registerStudent)
	b.route("register-employer", api.PathRegisterEmployer, http.MethodPost, b.registerEmployer)
	b.route("logout", api.PathLogout, http.MethodPost, b.logout)
	b.route("me", api.PathMe, http.MethodGet, b.me)
	b.route("list", api.PathPostings, http.MethodGet, b.list)
	b.route("create", api.PathPostings, http.MethodPost, b.create)
	b.route("submit", api.PathSubmit, http.MethodPost, b.submit)
	b.route("approve", api.PathApprove+"{id}", http.MethodPost, b.approve)
	b.route("reject", api.PathReject+"{id}", http.MethodPost, b.reject)
	b.route("stats", api.PathStats, http.MethodGet, b.stats)
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func (b *Backend) route(name, path, method string, h http.HandlerFunc) {
	b.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[name]++
		f, fail := b.failures[name]
		delete(b.failures, name)
		b.mu.Unlock()
		if fail {
			writeError(w, f.status, f.message)
			return
		}
		h(w, r)
	}).Methods(method)
}

// Calls returns how many times the named route was hit.
func (b *Backend) Calls(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// FailNext makes the next call to the named route answer with status and
// message instead of being served.
func (b *Backend) FailNext(name string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[name] = failure{status: status, message: message}
}

func (b *Backend) AddAccount(identity session.Identity, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[identity.Username] = &account{identity: identity, password: password}
}

// AddPosting appends a posting, assigning an id when it has none.
func (b *Backend) AddPosting(p listing.Posting) listing.Posting {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == "" {
		p.ID = ksuid.New().String()
	}
	if p.Status == "" {
		p.Status = listing.StatusPending
	}
	b.postings = append(b.postings, p)
	return p
}

func (b *Backend) Postings() []listing.Posting {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]listing.Posting, len(b.postings))
	copy(out, b.postings)
	return out
}

func (b *Backend) Applications() []api.Application {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]api.Application, len(b.applications))
	copy(out, b.applications)
	return out
}

func (b *Backend) SetStudentsPlaced(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.placed = n
}

// Token mints a bearer credential for an existing username.
func (b *Backend) Token(username string) (string, error) {
	b.mu.Lock()
	acc, ok := b.accounts[username]
	b.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown account %s", username)
	}
	return b.sign(acc.identity)
}

func (b *Backend) sign(identity session.Identity) (string, error) {
	now := time.Now().UTC()
	c := claims{
		UserID: identity.ID,
		Role:   identity.Role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(24 * time.Hour).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(b.key)
}

func (b *Backend) authenticate(r *http.Request) (session.Identity, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return session.Identity{}, false
	}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return b.key, nil
	})
	if err != nil || !token.Valid {
		return session.Identity{}, false
	}
	c, ok := token.Claims.(*claims)
	if !ok {
		return session.Identity{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acc := range b.accounts {
		if acc.identity.ID == c.UserID && acc.identity.Role == c.Role {
			return acc.identity, true
		}
	}
	return session.Identity{}, false
}

func (b *Backend) require(w http.ResponseWriter, r *http.Request, want role.Role) (session.Identity, bool) {
	identity, ok := b.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return identity, false
	}
	if identity.Role != want {
		writeError(w, http.StatusForbidden, fmt.Sprintf("%s account required", strings.ToLower(string(want))))
		return identity, false
	}
	return identity, true
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var rq api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&rq); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b.mu.Lock()
	acc, ok := b.accounts[rq.Username]
	b.mu.Unlock()
	if !ok || acc.password != rq.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials or inactive account")
		return
	}
	token, err := b.sign(acc.identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token, "user": acc.identity})
}

func (b *Backend) register(w http.ResponseWriter, identity session.Identity, password string) {
	if identity.Username == "" || password == "" || identity.Email == "" {
		writeError(w, http.StatusBadRequest, "Registration failed: missing fields")
		return
	}
	b.mu.Lock()
	if _, taken := b.accounts[identity.Username]; taken {
		b.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Registration failed: username already exists")
		return
	}
	identity.ID = ksuid.New().String()
	b.accounts[identity.Username] = &account{identity: identity, password: password}
	b.mu.Unlock()
	token, err := b.sign(identity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to issue token")
		return
	}
	writeJSON(w, http.StatusOK, api.RegisterResult{ID: identity.ID, Username: identity.Username, Role: identity.Role, Token: token})
}

func (b *Backend) registerStudent(w http.ResponseWriter, r *http.Request) {
	var rq api.StudentRegistration
	if err := json.NewDecoder(r.Body).Decode(&rq); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b.register(w, session.Identity{Username: rq.Username, Role: role.Student, Email: rq.Email}, rq.Password)
}

func (b *Backend) registerEmployer(w http.ResponseWriter, r *http.Request) {
	var rq api.EmployerRegistration
	if err := json.NewDecoder(r.Body).Decode(&rq); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b.register(w, session.Identity{Username: rq.Username, Role: role.Employer, Email: rq.Email}, rq.Password)
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	identity, ok := b.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (b *Backend) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.Postings())
}

func (b *Backend) create(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.require(w, r, role.Employer); !ok {
		return
	}
	var d listing.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if d.JobTitle == "" || d.CompanyName == "" || d.JobDescription == "" || d.Location == "" {
		writeError(w, http.StatusBadRequest, "Invalid posting data: All fields are required")
		return
	}
	p := b.AddPosting(listing.Posting{
		JobTitle:       d.JobTitle,
		CompanyName:    d.CompanyName,
		JobDescription: d.JobDescription,
		JobType:        d.JobType,
		StartingSalary: d.StartingSalary,
		Location:       d.Location,
		Skills:         d.Skills,
		Category:       d.Category,
		Status:         listing.StatusPending,
	})
	writeJSON(w, http.StatusCreated, p)
}

func (b *Backend) submit(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.require(w, r, role.Student); !ok {
		return
	}
	var app api.Application
	if err := json.NewDecoder(r.Body).Decode(&app); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.postings {
		if p.ID == app.PostingID {
			b.applications = append(b.applications, app)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Application submitted successfully"})
			return
		}
	}
	writeError(w, http.StatusBadRequest, "Failed to submit application: posting not found")
}

func (b *Backend) moderate(w http.ResponseWriter, r *http.Request, status listing.Status) {
	if _, ok := b.require(w, r, role.Admin); !ok {
		return
	}
	rq := struct {
		Reason string `json:"reason"`
	}{}
	json.NewDecoder(r.Body).Decode(&rq)
	id := mux.Vars(r)["id"]
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.postings {
		if b.postings[i].ID == id {
			b.postings[i].Status = status
			b.postings[i].RejectionReason = rq.Reason
			writeJSON(w, http.StatusOK, map[string]interface{}{"message": "ok", "posting": b.postings[i]})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Posting not found")
}

func (b *Backend) approve(w http.ResponseWriter, r *http.Request) {
	b.moderate(w, r, listing.StatusApproved)
}

func (b *Backend) reject(w http.ResponseWriter, r *http.Request) {
	b.moderate(w, r, listing.StatusRejected)
}

func (b *Backend) stats(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	companies := make(map[string]struct{})
	active := 0
	for _, p := range b.postings {
		if p.Status.Is(listing.StatusApproved) {
			active++
			companies[strings.ToLower(p.CompanyName)] = struct{}{}
		}
	}
	writeJSON(w, http.StatusOK, listing.Stats{ActiveJobs: active, Companies: len(companies), StudentsPlaced: b.placed})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
