// Package dispatch runs user-triggered actions against the backend. Every
// action is validated locally, performs at most one API call and only then
// mutates the session or the listing cache.
package dispatch

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/gvfbla/jobboard/internal/api"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/gvfbla/jobboard/internal/role"
	"github.com/gvfbla/jobboard/internal/session"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
)

var emailRe = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

// API is the slice of the REST backend the dispatcher drives. *api.Client
// implements it.
type API interface {
	Login(ctx context.Context, creds api.Credentials) (api.LoginResult, error)
	RegisterStudent(ctx context.Context, rq api.StudentRegistration) (api.RegisterResult, error)
	RegisterEmployer(ctx context.Context, rq api.EmployerRegistration) (api.RegisterResult, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (session.Identity, error)
	ListPostings(ctx context.Context, token string) ([]listing.Posting, error)
	CreatePosting(ctx context.Context, token string, draft listing.Draft) (listing.Posting, error)
	SubmitApplication(ctx context.Context, token string, app api.Application) error
	Approve(ctx context.Context, token, postingID string) error
	Reject(ctx context.Context, token, postingID, reason string) error
}

type Dispatcher struct {
	api      API
	session  *session.Store
	cache    *listing.Cache
	log      zerolog.Logger
	observer func(Outcome)

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(client API, store *session.Store, cache *listing.Cache, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		api:      client,
		session:  store,
		cache:    cache,
		log:      log,
		inflight: make(map[string]struct{}),
	}
}

// Observe registers fn to receive every transition of every action.
func (d *Dispatcher) Observe(fn func(Outcome)) {
	d.observer = fn
}

// commit is run only after the API call succeeded.
type commit func(o *Outcome)

type action struct {
	kind     Kind
	target   string
	validate func() error
	call     func(ctx context.Context) (commit, error)
}

func (d *Dispatcher) run(ctx context.Context, a action) Outcome {
	o := Outcome{ID: ksuid.New().String(), Kind: a.kind, Target: a.target}
	d.transition(&o, Idle)
	d.transition(&o, Validating)
	if a.validate != nil {
		if err := a.validate(); err != nil {
			return d.fail(&o, err)
		}
	}
	key := string(a.kind) + ":" + a.target
	if !d.acquire(key) {
		return d.fail(&o, ErrInFlight)
	}
	d.transition(&o, InFlight)
	apply, err := a.call(ctx)
	d.release(key)
	if err != nil {
		return d.fail(&o, err)
	}
	if apply != nil {
		apply(&o)
	}
	d.transition(&o, Succeeded)
	return o
}

func (d *Dispatcher) fail(o *Outcome, err error) Outcome {
	o.Err = err
	o.Message = err.Error()
	d.transition(o, Failed)
	return *o
}

func (d *Dispatcher) transition(o *Outcome, s State) {
	o.State = s
	ev := d.log.Debug()
	if s == Failed {
		ev = d.log.Warn().Err(o.Err)
	}
	ev.Str("action_id", o.ID).
		Str("kind", string(o.Kind)).
		Str("target", o.Target).
		Str("state", s.String()).
		Msg("dispatch")
	if d.observer != nil {
		d.observer(*o)
	}
}

func (d *Dispatcher) acquire(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inflight[key]; busy {
		return false
	}
	d.inflight[key] = struct{}{}
	return true
}

func (d *Dispatcher) release(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, key)
}

func (d *Dispatcher) authorize(kind Kind, allowed func(role.Capabilities) bool) error {
	current := d.session.Current()
	if allowed(current.Capabilities()) {
		return nil
	}
	return &AuthorizationError{Kind: kind, Role: current.Role}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: field + " is required"}
	}
	return nil
}

func requireAll(fields ...string) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if err := required(fields[i], fields[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func validEmail(value string) error {
	if !emailRe.MatchString(strings.TrimSpace(value)) {
		return &ValidationError{Field: "email", Message: "email is not valid"}
	}
	return nil
}

func missing(what string) error {
	return &api.NetworkError{Message: "server response is missing " + what}
}

func (d *Dispatcher) Login(ctx context.Context, username, password string) Outcome {
	username = strings.TrimSpace(username)
	return d.run(ctx, action{
		kind:   KindLogin,
		target: username,
		validate: func() error {
			return requireAll("username", username, "password", password)
		},
		call: func(ctx context.Context) (commit, error) {
			res, err := d.api.Login(ctx, api.Credentials{Username: username, Password: password})
			if err != nil {
				return nil, err
			}
			if res.Token == "" || !res.Identity.Authenticated() {
				return nil, missing("credential or identity")
			}
			return func(o *Outcome) {
				d.session.Establish(res.Identity, res.Token)
				o.Message = "Login successful!"
			}, nil
		},
	})
}

// Registration is the sign-up form. Role selects which of FullName or
// CompanyName is required.
type Registration struct {
	Role        role.Role
	Username    string
	Password    string
	Email       string
	FullName    string
	CompanyName string
}

// SplitName takes the first word of full as the first name and the rest as the last name.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func (d *Dispatcher) Register(ctx context.Context, form Registration) Outcome {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	return d.run(ctx, action{
		kind:   KindRegister,
		target: form.Username,
		validate: func() error {
			if err := requireAll("username", form.Username, "email", form.Email, "password", form.Password); err != nil {
				return err
			}
			if err := validEmail(form.Email); err != nil {
				return err
			}
			switch form.Role {
			case role.Student:
				return required("full name", form.FullName)
			case role.Employer:
				return required("company name", form.CompanyName)
			}
			return &ValidationError{Field: "role", Message: "choose a student or employer account"}
		},
		call: func(ctx context.Context) (commit, error) {
			var (
				res api.RegisterResult
				err error
			)
			if form.Role == role.Student {
				first, last := SplitName(form.FullName)
				res, err = d.api.RegisterStudent(ctx, api.StudentRegistration{
					Username:  form.Username,
					Password:  form.Password,
					Email:     form.Email,
					FirstName: first,
					LastName:  last,
				})
			} else {
				res, err = d.api.RegisterEmployer(ctx, api.EmployerRegistration{
					Username:    form.Username,
					Password:    form.Password,
					Email:       form.Email,
					CompanyName: strings.TrimSpace(form.CompanyName),
				})
			}
			if err != nil {
				return nil, err
			}
			identity := session.Identity{ID: res.ID, Username: res.Username, Role: res.Role, Email: form.Email}
			if identity.Role == role.Unauthenticated {
				identity.Role = form.Role
			}
			if res.Token == "" || !identity.Authenticated() {
				return nil, missing("credential or identity")
			}
			return func(o *Outcome) {
				d.session.Establish(identity, res.Token)
				o.Message = "Registration successful!"
			}, nil
		},
	})
}

// Logout clears the session once the backend confirms. Without a credential
// there is nothing to revoke, and a 401 means the credential is already dead;
// both clear locally.
func (d *Dispatcher) Logout(ctx context.Context) Outcome {
	return d.run(ctx, action{
		kind: KindLogout,
		call: func(ctx context.Context) (commit, error) {
			done := func(o *Outcome) {
				d.session.Clear()
				o.Message = "Logged out successfully!"
			}
			token := d.session.Credential()
			if token == "" {
				return done, nil
			}
			if err := d.api.Logout(ctx, token); err != nil && !api.IsUnauthorized(err) {
				return nil, err
			}
			return done, nil
		},
	})
}

func (d *Dispatcher) CreateListing(ctx context.Context, draft listing.Draft) Outcome {
	draft = draft.Trimmed()
	return d.run(ctx, action{
		kind:   KindCreateListing,
		target: draft.JobTitle,
		validate: func() error {
			if err := d.authorize(KindCreateListing, func(c role.Capabilities) bool { return c.CanCreateListing }); err != nil {
				return err
			}
			return requireAll(
				"job title", draft.JobTitle,
				"company name", draft.CompanyName,
				"location", draft.Location,
				"job description", draft.JobDescription,
			)
		},
		call: func(ctx context.Context) (commit, error) {
			p, err := d.api.CreatePosting(ctx, d.session.Credential(), draft)
			if err != nil {
				return nil, err
			}
			if p.ID == "" {
				return nil, missing("posting id")
			}
			return func(o *Outcome) {
				d.cache.Prepend(p)
				o.Posting = &p
				o.Message = "Job posting created successfully! It will be reviewed by admin."
			}, nil
		},
	})
}

func (d *Dispatcher) Apply(ctx context.Context, app api.Application) Outcome {
	app.PostingID = strings.TrimSpace(app.PostingID)
	app.Email = strings.TrimSpace(app.Email)
	return d.run(ctx, action{
		kind:   KindApply,
		target: app.PostingID,
		validate: func() error {
			if err := d.authorize(KindApply, func(c role.Capabilities) bool { return c.CanApply }); err != nil {
				return err
			}
			if err := requireAll(
				"posting", app.PostingID,
				"first name", app.FirstName,
				"last name", app.LastName,
				"email", app.Email,
			); err != nil {
				return err
			}
			return validEmail(app.Email)
		},
		call: func(ctx context.Context) (commit, error) {
			if err := d.api.SubmitApplication(ctx, d.session.Credential(), app); err != nil {
				return nil, err
			}
			return func(o *Outcome) {
				o.Message = "Application submitted successfully!"
			}, nil
		},
	})
}

func (d *Dispatcher) Approve(ctx context.Context, postingID string) Outcome {
	postingID = strings.TrimSpace(postingID)
	return d.run(ctx, action{
		kind:   KindApprove,
		target: postingID,
		validate: func() error {
			if err := d.authorize(KindApprove, func(c role.Capabilities) bool { return c.CanModerate }); err != nil {
				return err
			}
			return required("posting", postingID)
		},
		call: func(ctx context.Context) (commit, error) {
			if err := d.api.Approve(ctx, d.session.Credential(), postingID); err != nil {
				return nil, err
			}
			return func(o *Outcome) {
				d.cache.UpdateStatus(postingID, listing.StatusApproved, "")
				o.Message = "Posting approved!"
			}, nil
		},
	})
}

func (d *Dispatcher) Reject(ctx context.Context, postingID, reason string) Outcome {
	postingID = strings.TrimSpace(postingID)
	reason = strings.TrimSpace(reason)
	return d.run(ctx, action{
		kind:   KindReject,
		target: postingID,
		validate: func() error {
			if err := d.authorize(KindReject, func(c role.Capabilities) bool { return c.CanModerate }); err != nil {
				return err
			}
			return requireAll("posting", postingID, "reason", reason)
		},
		call: func(ctx context.Context) (commit, error) {
			if err := d.api.Reject(ctx, d.session.Credential(), postingID, reason); err != nil {
				return nil, err
			}
			return func(o *Outcome) {
				d.cache.UpdateStatus(postingID, listing.StatusRejected, reason)
				o.Message = "Posting rejected"
			}, nil
		},
	})
}

// Refresh replaces the cache with the backend's current postings.
func (d *Dispatcher) Refresh(ctx context.Context) Outcome {
	return d.run(ctx, action{
		kind: KindRefresh,
		call: func(ctx context.Context) (commit, error) {
			postings, err := d.api.ListPostings(ctx, d.session.Credential())
			if err != nil {
				return nil, err
			}
			return func(o *Outcome) {
				d.cache.ReplaceAll(postings)
			}, nil
		},
	})
}

// Verify asks the backend who the credential belongs to. A rejected
// credential clears the session; an answer replaces the identity wholesale.
func (d *Dispatcher) Verify(ctx context.Context) Outcome {
	token := d.session.Credential()
	return d.run(ctx, action{
		kind: KindVerify,
		validate: func() error {
			if token == "" {
				return &ValidationError{Message: "not logged in"}
			}
			return nil
		},
		call: func(ctx context.Context) (commit, error) {
			identity, err := d.api.Me(ctx, token)
			if api.IsUnauthorized(err) {
				return func(o *Outcome) {
					d.session.Clear()
					o.Message = "Your session has expired. Please log in again."
				}, nil
			}
			if err != nil {
				return nil, err
			}
			if !identity.Authenticated() {
				return nil, missing("identity")
			}
			return func(o *Outcome) {
				d.session.Establish(identity, token)
				o.Message = "Logged in as " + identity.Username
			}, nil
		},
	})
}
