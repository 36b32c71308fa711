package main

import (
	"embed"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/gvfbla/jobboard/internal/api"
	"github.com/gvfbla/jobboard/internal/config"
	"github.com/gvfbla/jobboard/internal/handler"
	"github.com/gvfbla/jobboard/internal/server"
	"github.com/gvfbla/jobboard/internal/template"
	"github.com/rs/zerolog"
)

//go:embed static/views/*.html
var views embed.FS

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to load config")
	}
	if cfg.Env == "dev" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
	tmpl, err := template.NewTemplate(views, "static/views/*.html")
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to load templates")
	}
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.Env != "dev"

	svr, err := server.NewServer(
		cfg,
		mux.NewRouter(),
		tmpl,
		api.NewClient(cfg.APIBaseURL, cfg.APITimeout),
		sessionStore,
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create server")
	}

	handler.RegisterRoutes(svr)

	logger.Fatal().Err(svr.Run()).Msg("server stopped")
}
