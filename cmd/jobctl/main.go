// jobctl is a command line client for the job board. The session is kept in
// a JSON file between invocations, so "jobctl login" once and every later
// command acts as that account.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gvfbla/jobboard/internal/api"
	"github.com/gvfbla/jobboard/internal/config"
	"github.com/gvfbla/jobboard/internal/dispatch"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/gvfbla/jobboard/internal/session"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	out        io.Writer
	session    *session.Store
	listings   *listing.Cache
	dispatcher *dispatch.Dispatcher
}

type command struct {
	usage string
	// refresh loads listings before the command runs
	refresh bool
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":             {usage: "--username NAME --password PASS", run: loginCmd},
	"register-student":  {usage: "--username NAME --password PASS --email EMAIL --name \"FULL NAME\"", run: registerStudentCmd},
	"register-employer": {usage: "--username NAME --password PASS --email EMAIL --company COMPANY", run: registerEmployerCmd},
	"logout":            {run: logoutCmd},
	"whoami":            {run: whoamiCmd},
	"list":              {usage: "[--query Q] [--category C] [--type T]", refresh: true, run: listCmd},
	"pending":           {refresh: true, run: pendingCmd},
	"create":            {usage: "--title T --company C --location L --description D [--type T --salary S --skills S --category C]", refresh: true, run: createCmd},
	"apply":             {usage: "POSTING_ID --first F --last L --email E [--phone P --education E --experience E --references R]", refresh: true, run: applyCmd},
	"approve":           {usage: "POSTING_ID", refresh: true, run: approveCmd},
	"reject":            {usage: "POSTING_ID --reason R", refresh: true, run: rejectCmd},
}

func run(args []string, stdout, stderr io.Writer) error {
	var verbose bool
	flagSet := pflag.NewFlagSet("jobctl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "print every action transition")
	flagSet.SetInterspersed(false)
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(stderr)
			return nil
		}
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr)
		return fmt.Errorf("missing command")
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		printHelp(stderr)
		return fmt.Errorf("unknown command %q", rest[0])
	}

	cfg, err := config.LoadCLIConfig()
	if err != nil {
		return err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()

	store := session.NewStore(session.NewFileStorage(cfg.SessionFile), logger)
	store.Restore()
	cache := listing.NewCache()
	a := &app{
		out:        stdout,
		session:    store,
		listings:   cache,
		dispatcher: dispatch.New(api.NewClient(cfg.APIBaseURL, cfg.APITimeout), store, cache, logger),
	}

	if verbose {
		a.dispatcher.Observe(trace(stderr))
	}

	ctx := context.Background()
	if cmd.refresh {
		if err := a.outcome(a.dispatcher.Refresh(ctx)); err != nil {
			return err
		}
	}
	return cmd.run(ctx, a, rest[1:])
}

func printHelp(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "Usage: jobctl [-v] COMMAND [flags]\n\nCommands:\n")
	for _, name := range names {
		fmt.Fprintf(w, "  %-18s %s\n", name, commands[name].usage)
	}
	fmt.Fprintf(w, "\nEnvironment: JOBBOARD_API_BASE_URL, JOBBOARD_SESSION_FILE\n")
}

// outcome prints the message of a successful action and turns a failed one
// into an error.
func (a *app) outcome(o dispatch.Outcome) error {
	if o.State == dispatch.Failed {
		return fmt.Errorf("%s failed: %s", o.Kind, o.Message)
	}
	if o.Message != "" {
		fmt.Fprintln(a.out, o.Message)
	}
	return nil
}

// trace writes one line per transition, e.g. "login in-flight", with the
// message appended once the action is done.
func trace(w io.Writer) func(dispatch.Outcome) {
	return func(o dispatch.Outcome) {
		if !o.Terminal() {
			fmt.Fprintf(w, "%s %s\n", o.Kind, o.State)
			return
		}
		fmt.Fprintf(w, "%s %s: %s\n", o.Kind, o.State, o.Message)
	}
}

func flags(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

// positional parses fs and returns its single positional argument.
func positional(fs *pflag.FlagSet, args []string, what string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one %s", what)
	}
	return strings.TrimSpace(fs.Arg(0)), nil
}
