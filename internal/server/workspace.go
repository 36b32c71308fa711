package server

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/gvfbla/jobboard/internal/dispatch"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/gvfbla/jobboard/internal/role"
	"github.com/gvfbla/jobboard/internal/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
)

const (
	visitorKey      = "visitor"
	workspacePrefix = "workspace:"
	FlashSuccess    = "success"
	FlashError      = "error"
)

// Workspace is one visitor's client state for the duration of a request:
// the restored session, the listing cache parked between requests and a
// dispatcher bound to both.
type Workspace struct {
	VisitorID  string
	Session    *session.Store
	Listings   *listing.Cache
	Dispatcher *dispatch.Dispatcher

	svr  Server
	sess *sessions.Session
	r    *http.Request
	w    http.ResponseWriter
}

func (s Server) Workspace(w http.ResponseWriter, r *http.Request) (*Workspace, error) {
	sess, err := s.SessionStore.Get(r, SessionName)
	if err != nil {
		// an undecodable cookie yields a fresh session, which Restore treats
		// as logged out
		s.logger.Warn().Err(err).Msg("discarding unreadable session cookie")
	}
	visitor, _ := sess.Values[visitorKey].(string)
	if visitor == "" {
		visitor = ksuid.New().String()
		sess.Values[visitorKey] = visitor
		if err := sess.Save(r, w); err != nil {
			return nil, errors.Wrap(err, "unable to save visitor session")
		}
	}
	logger := s.logger.With().Str("visitor", visitor).Logger()
	store := session.NewStore(session.NewCookieStorage(sess, r, w), logger)
	store.Restore()

	ws := &Workspace{
		VisitorID: visitor,
		Session:   store,
		Listings:  listing.NewCache(),
		svr:       s,
		sess:      sess,
		r:         r,
		w:         w,
	}
	ws.Dispatcher = dispatch.New(s.api, store, ws.Listings, logger)

	buf, ok := s.CacheGet(workspacePrefix + visitor)
	if ok {
		if err := ws.Listings.Load(buf); err != nil {
			logger.Warn().Err(err).Msg("dropping unreadable listing snapshot")
			ok = false
		}
	}
	if !ok {
		if o := ws.Refresh(); o.State == dispatch.Failed {
			logger.Warn().Err(o.Err).Msg("unable to load listings")
		}
	}
	return ws, nil
}

// Refresh reloads listings from the backend and parks them.
func (ws *Workspace) Refresh() dispatch.Outcome {
	o := ws.Dispatcher.Refresh(ws.r.Context())
	if o.State == dispatch.Succeeded {
		ws.Save()
	}
	return o
}

// Save parks the listing cache until the next request of this visitor.
func (ws *Workspace) Save() {
	buf, err := ws.Listings.Snapshot()
	if err != nil {
		ws.svr.Log(err, "unable to snapshot listings")
		return
	}
	if err := ws.svr.CacheSet(workspacePrefix+ws.VisitorID, buf); err != nil {
		ws.svr.Log(err, "unable to park listings")
	}
}

// Forget drops the parked listings, e.g. after logout so the next visitor
// state is fetched with the new credential.
func (ws *Workspace) Forget() {
	if err := ws.svr.CacheDelete(workspacePrefix + ws.VisitorID); err != nil {
		ws.svr.Log(err, "unable to drop parked listings")
	}
}

func (ws *Workspace) Capabilities() role.Capabilities {
	return ws.Session.Capabilities()
}

// Flash queues a message for the next rendered page.
func (ws *Workspace) Flash(kind, msg string) {
	ws.sess.AddFlash(msg, kind)
	if err := ws.sess.Save(ws.r, ws.w); err != nil {
		ws.svr.Log(err, "unable to save flash")
	}
}

// FlashOutcome queues the user facing message of a finished action.
func (ws *Workspace) FlashOutcome(o dispatch.Outcome) {
	if o.Message == "" {
		return
	}
	kind := FlashSuccess
	if o.State == dispatch.Failed {
		kind = FlashError
	}
	ws.Flash(kind, o.Message)
}

func (ws *Workspace) flashes(kind string) []string {
	var out []string
	for _, f := range ws.sess.Flashes(kind) {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Page decorates template data with who is acting, what they may do and any
// pending flash messages.
func (ws *Workspace) Page(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		data = make(map[string]interface{})
	}
	current := ws.Session.Current()
	data["User"] = current
	data["Can"] = current.Affordances()
	success, failure := ws.flashes(FlashSuccess), ws.flashes(FlashError)
	if len(success) > 0 || len(failure) > 0 {
		if err := ws.sess.Save(ws.r, ws.w); err != nil {
			ws.svr.Log(err, "unable to clear flashes")
		}
	}
	data["FlashSuccess"] = success
	data["FlashError"] = failure
	return data
}

// Capabilities reads the acting role from the request cookie without
// touching the response. Damaged state reads as logged out.
func (s Server) Capabilities(r *http.Request) role.Capabilities {
	sess, err := s.SessionStore.Get(r, SessionName)
	if err != nil {
		return role.Capabilities{}
	}
	values := make(map[string]string)
	for _, k := range []string{session.KeyToken, session.KeyUser} {
		if v, ok := sess.Values[k].(string); ok {
			values[k] = v
		}
	}
	mem := session.NewMemoryStorage()
	mem.Put(values)
	store := session.NewStore(mem, zerolog.Nop())
	store.Restore()
	return store.Capabilities()
}
