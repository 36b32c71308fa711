package server

import (
	"encoding/json"
	"fmt"
	stdtemplate "html/template"
	"net/http"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/getsentry/raven-go"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/gvfbla/jobboard/internal/api"
	"github.com/gvfbla/jobboard/internal/config"
	"github.com/gvfbla/jobboard/internal/middleware"
	"github.com/gvfbla/jobboard/internal/template"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	SessionName   = "____jb"
	CacheKeyStats = "stats"
)

type Server struct {
	cfg          config.Config
	router       *mux.Router
	tmpl         *template.Template
	api          *api.Client
	SessionStore *sessions.CookieStore
	workspaces   *bigcache.BigCache
	stats        *bigcache.BigCache
	logger       zerolog.Logger
}

func NewServer(
	cfg config.Config,
	r *mux.Router,
	t *template.Template,
	client *api.Client,
	sessionStore *sessions.CookieStore,
	logger zerolog.Logger,
) (Server, error) {
	if cfg.SentryDSN != "" {
		if err := raven.SetDSN(cfg.SentryDSN); err != nil {
			return Server{}, errors.Wrap(err, "unable to configure sentry")
		}
	}
	workspaces, err := bigcache.NewBigCache(cacheConfig(cfg.WorkspaceTTL))
	if err != nil {
		return Server{}, errors.Wrap(err, "unable to initialise workspace cache")
	}
	stats, err := bigcache.NewBigCache(cacheConfig(cfg.StatsTTL))
	if err != nil {
		return Server{}, errors.Wrap(err, "unable to initialise stats cache")
	}
	return Server{
		cfg:          cfg,
		router:       r,
		tmpl:         t,
		api:          client,
		SessionStore: sessionStore,
		workspaces:   workspaces,
		stats:        stats,
		logger:       logger,
	}, nil
}

func cacheConfig(ttl time.Duration) bigcache.Config {
	c := bigcache.DefaultConfig(ttl)
	c.Shards = 64
	c.MaxEntriesInWindow = 10000
	c.CleanWindow = ttl / 2
	c.Verbose = false
	return c
}

func (s Server) RegisterRoute(path string, handler func(w http.ResponseWriter, r *http.Request), methods []string) {
	s.router.HandleFunc(path, handler).Methods(methods...)
}

func (s Server) MarkdownToHTML(str string) stdtemplate.HTML {
	return s.tmpl.MarkdownToHTML(str)
}

func (s Server) GetConfig() config.Config {
	return s.cfg
}

func (s Server) API() *api.Client {
	return s.api
}

func (s Server) Logger() zerolog.Logger {
	return s.logger
}

// URL returns an absolute link on the public site.
func (s Server) URL(path string) string {
	return s.cfg.URLProtocol + s.cfg.SiteHost + path
}

func (s Server) Render(w http.ResponseWriter, status int, htmlView string, data map[string]interface{}) error {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["SiteName"] = s.cfg.SiteName
	data["SiteHost"] = s.cfg.SiteHost

	return s.tmpl.Render(w, status, htmlView, data)
}

func (s Server) XML(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	w.Write(data)
}

func (s Server) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (s Server) TEXT(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	w.Write([]byte(text))
}

func (s Server) MEDIA(w http.ResponseWriter, status int, media []byte, mediaType string) {
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(status)
	w.Write(media)
}

func (s Server) Log(err error, msg string) {
	if s.cfg.SentryDSN != "" {
		raven.CaptureErrorAndWait(err, map[string]string{"ctx": msg})
	}
	s.logger.Error().Err(err).Msg(msg)
}

func (s Server) Redirect(w http.ResponseWriter, r *http.Request, status int, dst string) {
	http.Redirect(w, r, dst, status)
}

// Handler is the router wrapped in the middleware chain.
func (s Server) Handler() http.Handler {
	return middleware.HTTPSMiddleware(
		middleware.GzipMiddleware(
			middleware.LoggingMiddleware(middleware.HeadersMiddleware(s.router, s.cfg.Env), s.logger),
		),
		s.cfg.Env,
	)
}

func (s Server) Run() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	if s.cfg.Env == "dev" {
		s.logger.Info().Msgf("local env http://localhost:%s", s.cfg.Port)
		addr = fmt.Sprintf("localhost:%s", s.cfg.Port)
	}
	return http.ListenAndServe(addr, s.Handler())
}

func (s Server) CacheGet(key string) ([]byte, bool) {
	out, err := s.workspaces.Get(key)
	if err != nil {
		return []byte{}, false
	}
	return out, true
}

func (s Server) CacheSet(key string, val []byte) error {
	return s.workspaces.Set(key, val)
}

func (s Server) CacheDelete(key string) error {
	err := s.workspaces.Delete(key)
	if err == bigcache.ErrEntryNotFound {
		return nil
	}
	return err
}
