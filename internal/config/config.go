package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	Port           string
	APIBaseURL     string        // REST backend the front end talks to
	APITimeout     time.Duration // per call timeout of the backend client
	SessionKey     []byte
	Env            string // either prod or dev, dev disables https and strict headers
	SiteName       string
	SiteHost       string
	URLProtocol    string
	SentryDSN      string
	WorkspaceTTL   time.Duration // how long a visitor listing cache is kept
	StatsTTL       time.Duration // how long dashboard stats are kept
	PostingsPerRSS int
}

// CLIConfig configures cmd/jobctl.
type CLIConfig struct {
	APIBaseURL  string
	APITimeout  time.Duration
	SessionFile string
}

func LoadConfig() (Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		return Config{}, fmt.Errorf("PORT cannot be empty")
	}
	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		return Config{}, fmt.Errorf("API_BASE_URL cannot be empty")
	}
	env := strings.ToLower(os.Getenv("ENV"))
	if env == "" {
		return Config{}, fmt.Errorf("ENV cannot be empty")
	}
	sessionKeyString := os.Getenv("SESSION_KEY")
	if sessionKeyString == "" {
		return Config{}, fmt.Errorf("SESSION_KEY cannot be empty")
	}
	sessionKeyBytes, err := base64.StdEncoding.DecodeString(sessionKeyString)
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to decode session key to bytes")
	}
	siteName := os.Getenv("SITE_NAME")
	if siteName == "" {
		siteName = "School Job Board"
	}
	siteHost := os.Getenv("SITE_HOST")
	if siteHost == "" {
		siteHost = "localhost:" + port
	}
	apiTimeout, err := intFromEnv("API_TIMEOUT_SECONDS", 10)
	if err != nil {
		return Config{}, err
	}
	workspaceHours, err := intFromEnv("WORKSPACE_CACHE_HOURS", 12)
	if err != nil {
		return Config{}, err
	}
	statsMinutes, err := intFromEnv("STATS_CACHE_MINUTES", 5)
	if err != nil {
		return Config{}, err
	}
	postingsPerRSS, err := intFromEnv("POSTINGS_PER_RSS", 50)
	if err != nil {
		return Config{}, err
	}
	urlProtocol := "http://"
	if env != "dev" {
		urlProtocol = "https://"
	}

	return Config{
		Port:           port,
		APIBaseURL:     apiBaseURL,
		APITimeout:     time.Duration(apiTimeout) * time.Second,
		SessionKey:     sessionKeyBytes,
		Env:            env,
		SiteName:       siteName,
		SiteHost:       siteHost,
		URLProtocol:    urlProtocol,
		SentryDSN:      os.Getenv("SENTRY_DSN"),
		WorkspaceTTL:   time.Duration(workspaceHours) * time.Hour,
		StatsTTL:       time.Duration(statsMinutes) * time.Minute,
		PostingsPerRSS: postingsPerRSS,
	}, nil
}

func LoadCLIConfig() (CLIConfig, error) {
	apiBaseURL := os.Getenv("JOBBOARD_API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:7000"
	}
	apiTimeout, err := intFromEnv("JOBBOARD_API_TIMEOUT_SECONDS", 10)
	if err != nil {
		return CLIConfig{}, err
	}
	sessionFile := os.Getenv("JOBBOARD_SESSION_FILE")
	if sessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return CLIConfig{}, errors.Wrap(err, "unable to locate user config dir, set JOBBOARD_SESSION_FILE")
		}
		sessionFile = filepath.Join(dir, "jobboard", "session.json")
	}
	return CLIConfig{
		APIBaseURL:  apiBaseURL,
		APITimeout:  time.Duration(apiTimeout) * time.Second,
		SessionFile: sessionFile,
	}, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return fallback, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("could not convert ascii to int for %s: %v", key, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return val, nil
}
