// stubapi serves the in-memory backend on a local port for trying the web
// front end and jobctl without the real API.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gvfbla/jobboard/internal/api/apitest"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/gvfbla/jobboard/internal/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var addr string
	var seed bool
	flagSet := pflag.NewFlagSet("stubapi", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", "localhost:7000", "listen address")
	flagSet.BoolVar(&seed, "seed", true, "start with a few sample postings")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	backend := apitest.New()
	if seed {
		for _, p := range samples {
			backend.AddPosting(p)
		}
	}
	logger.Info().Str("addr", addr).Msg("stub backend listening, log in as admin/admin")
	return http.ListenAndServe(addr, middleware.LoggingMiddleware(backend, logger))
}

var samples = []listing.Posting{
	{
		JobTitle:       "Software Developer Intern",
		CompanyName:    "Acme Labs",
		JobDescription: "Work with our platform team on **Go** services.",
		JobType:        "Internship",
		StartingSalary: "30000",
		Location:       "Remote",
		Skills:         "Go, SQL, Git",
		Category:       "technology",
		Status:         listing.StatusApproved,
	},
	{
		JobTitle:       "Marketing Assistant",
		CompanyName:    "Brandly",
		JobDescription: "Help run social media campaigns for local businesses.",
		JobType:        "Part-time",
		Location:       "Campus",
		Skills:         "Writing, Canva",
		Category:       "marketing",
		Status:         listing.StatusApproved,
	},
	{
		JobTitle:       "Junior Business Analyst",
		CompanyName:    "Numbers Inc",
		JobDescription: "Turn spreadsheets into decisions.",
		JobType:        "Full-time",
		StartingSalary: "52000",
		Location:       "Downtown",
		Skills:         "Excel, SQL",
		Category:       "business",
		Status:         listing.StatusPending,
	},
}
