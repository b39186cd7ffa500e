// Command explorium is a command line client for the Explorium API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/explorium-cli/pkg/batch"
	"github.com/Sternrassler/explorium-cli/pkg/client"
	"github.com/Sternrassler/explorium-cli/pkg/input"
	"github.com/Sternrassler/explorium-cli/pkg/resolve"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks mistakes in the command line or input files.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one CLI invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	g := &globalOptions{}
	fs := flag.NewFlagSet("explorium", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr)
		return exitUsage
	}

	a := &app{
		global: g,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	defer a.close()

	var err error
	switch rest[0] {
	case "help", "-h", "--help":
		usage(stdout)
		return exitOK
	case "config":
		err = a.runConfig(ctx, rest[1:])
	case "businesses":
		err = a.runBusinesses(ctx, rest[1:])
	case "prospects":
		err = a.runProspects(ctx, rest[1:])
	case "webhooks":
		err = a.runWebhooks(ctx, rest[1:])
	default:
		err = usagef("unknown command: %s", rest[0])
	}

	return a.report(err)
}

// report prints err and maps it to an exit code.
func (a *app) report(err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if errors.Is(err, errParseFlags) {
		return exitUsage
	}

	fmt.Fprintf(a.stderr, "Error: %s\n", err)

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		fmt.Fprintf(a.stderr, "  status: %d\n", apiErr.StatusCode)
	}

	var lowErr *resolve.LowConfidenceError
	if errors.As(err, &lowErr) {
		printSuggestions(a.stderr, lowErr.Suggestions)
	}

	var abortErr *batch.AbortError
	if errors.As(err, &abortErr) && abortErr.Completed > 0 {
		fmt.Fprintf(a.stderr, "  %d records were collected before the failure\n", abortErr.Completed)
	}

	var uErr *usageError
	switch {
	case errors.As(err, &uErr),
		errors.Is(err, input.ErrInvalidInput),
		errors.Is(err, resolve.ErrMissingParams):
		return exitUsage
	default:
		return exitError
	}
}

func printSuggestions(w io.Writer, suggestions []map[string]any) {
	fmt.Fprintln(w, "\nSuggestions (try --min-confidence to lower threshold):")
	for i, s := range suggestions {
		if i == 5 {
			break
		}
		confidence, _ := s["match_confidence"].(float64)
		label, id := suggestionLabel(s)
		fmt.Fprintf(w, "  %d. %s (ID: %s, confidence: %.2f)\n", i+1, label, id, confidence)
	}
}

func suggestionLabel(s map[string]any) (label, id string) {
	str := func(k string) string {
		v, _ := s[k].(string)
		return v
	}
	if pid := str("prospect_id"); pid != "" {
		return fmt.Sprintf("%s %s", str("first_name"), str("last_name")), pid
	}
	id = str("business_id")
	if id == "" {
		id = "N/A"
	}
	return str("name"), id
}

func usage(w io.Writer) {
	_, _ = fmt.Fprint(w, `explorium: command line client for the Explorium API

Usage:
  explorium [global flags] <group> <command> [flags]

Groups:
  config      init | show | set <key> <value>
  businesses  match | search | enrich | bulk-enrich | lookalike | autocomplete | events <list|enroll|enrollments>
  prospects   match | search | enrich | bulk-enrich | enrich-file | autocomplete | statistics | events <list|enroll|enrollments>
  webhooks    create | get | update | delete

Global flags:
  --config PATH        Config file (default ~/.explorium/config.yaml)
  -o, --output FORMAT  json, table or csv
  --output-file PATH   Write clean output to a file
  --log-level LEVEL    debug, info, warn or error
  --log-format FORMAT  pretty or json
  --quiet              Only log warnings and errors

Environment:
  EXPLORIUM_API_KEY, EXPLORIUM_BASE_URL, EXPLORIUM_DEFAULT_OUTPUT,
  EXPLORIUM_PAGE_SIZE, EXPLORIUM_BATCH_SIZE, EXPLORIUM_CONCURRENCY,
  EXPLORIUM_REDIS_ADDR, EXPLORIUM_LOG_LEVEL, EXPLORIUM_METRICS_TEXTFILE

Examples:
  explorium config init --api-key YOUR_KEY
  explorium businesses match --name Acme --domain acme.com
  explorium prospects search --business-id b1,b2 --max-per-company 10 --summary
  explorium prospects enrich-file --file leads.csv --types all -o csv --output-file out.csv
`)
}
