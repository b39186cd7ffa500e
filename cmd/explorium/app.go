package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Sternrassler/explorium-cli/pkg/api"
	"github.com/Sternrassler/explorium-cli/pkg/batch"
	"github.com/Sternrassler/explorium-cli/pkg/cache"
	"github.com/Sternrassler/explorium-cli/pkg/client"
	"github.com/Sternrassler/explorium-cli/pkg/config"
	"github.com/Sternrassler/explorium-cli/pkg/input"
	"github.com/Sternrassler/explorium-cli/pkg/logging"
	"github.com/Sternrassler/explorium-cli/pkg/metrics"
	"github.com/Sternrassler/explorium-cli/pkg/output"
	"github.com/Sternrassler/explorium-cli/pkg/pagination"
	"github.com/Sternrassler/explorium-cli/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisPingTimeout bounds the cache availability check at startup.
const redisPingTimeout = 2 * time.Second

// errParseFlags is returned after the flag package already reported a
// parse failure.
var errParseFlags = errors.New("invalid flags")

// globalOptions are accepted before the command group and, for the output
// options, after the command as well.
type globalOptions struct {
	configPath string
	output     string
	outputFile string
	logLevel   string
	logFormat  string
	quiet      bool
}

func (g *globalOptions) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", g.configPath, "config file path")
	g.registerOutput(fs)
	fs.StringVar(&g.logLevel, "log-level", g.logLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&g.logFormat, "log-format", g.logFormat, "log format (pretty, json)")
	fs.BoolVar(&g.quiet, "quiet", g.quiet, "only log warnings and errors")
}

// registerOutput binds the output flags. The current values are passed as
// defaults so a command flag set does not reset what the global one parsed.
func (g *globalOptions) registerOutput(fs *flag.FlagSet) {
	fs.StringVar(&g.output, "output", g.output, "output format (json, table, csv)")
	fs.StringVar(&g.output, "o", g.output, "shorthand for --output")
	fs.StringVar(&g.outputFile, "output-file", g.outputFile, "write output to a file")
}

// app holds the services of one CLI invocation.
type app struct {
	global *globalOptions
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	logger zerolog.Logger
	runID  string

	client     *client.Client
	redis      *redis.Client
	businesses *api.Businesses
	prospects  *api.Prospects
	webhooks   *api.Webhooks
	executor   *batch.Executor
	fetcher    *pagination.Fetcher
}

// command is one subcommand of a group.
type command struct {
	summary string
	run     func(ctx context.Context, args []string) error
}

// loadConfig reads the configuration and sets up logging.
func (a *app) loadConfig() error {
	cfg, err := config.Load(a.global.configPath)
	if err != nil {
		return &usageError{msg: err.Error()}
	}
	if a.global.logLevel != "" {
		cfg.Logging.Level = a.global.logLevel
	}
	if a.global.quiet {
		cfg.Logging.Level = "warn"
	}
	if a.global.logFormat != "" {
		cfg.Logging.Format = a.global.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return &usageError{msg: fmt.Sprintf("invalid configuration: %v", err)}
	}

	pretty, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return &usageError{msg: err.Error()}
	}

	a.cfg = cfg
	a.runID = uuid.NewString()
	a.logger = logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: pretty,
		Output: a.stderr,
		RunID:  a.runID,
	})
	return nil
}

// connect builds the API client and the executors on top of it.
func (a *app) connect(ctx context.Context) error {
	if a.cfg.APIKey == "" {
		return usagef("API key not configured. Run 'explorium config init --api-key YOUR_KEY'")
	}

	var responseCache *cache.Manager
	if addr := a.cfg.Cache.RedisAddr; addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: a.cfg.Cache.RedisPassword,
			DB:       a.cfg.Cache.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			a.logger.Warn().Err(err).Str("addr", addr).Msg("Redis unavailable, continuing without response cache")
			_ = rdb.Close()
		} else {
			a.redis = rdb
			responseCache = cache.NewManager(rdb, a.cfg.Cache.TTL)
			a.logger.Debug().Str("addr", addr).Dur("ttl", responseCache.TTL()).Msg("Response cache enabled")
		}
	}

	rps := a.cfg.Transport.RateLimitRPS
	limiter := ratelimit.NewLimiter(rps, max(1, int(rps)), logging.NewLogger("ratelimit"))

	c, err := client.New(client.Config{
		APIKey:    a.cfg.APIKey,
		BaseURL:   a.cfg.BaseURL,
		UserAgent: client.DefaultUserAgent,
		Timeout:   a.cfg.Transport.Timeout,
		Retry:     a.cfg.TransportRetry(),
		Cache:     responseCache,
		Limiter:   limiter,
		RunID:     a.runID,
	})
	if err != nil {
		return err
	}

	exec, err := batch.NewExecutor(batch.Config{
		BatchSize: a.cfg.Batch.Size,
		Retry:     a.cfg.BatchRetry(),
	}, logging.NewLogger("batch"))
	if err != nil {
		return err
	}

	a.client = c
	a.businesses = api.NewBusinesses(c)
	a.prospects = api.NewProspects(c)
	a.webhooks = api.NewWebhooks(c)
	a.executor = exec
	a.fetcher = pagination.NewFetcher(logging.NewLogger("pagination"))
	return nil
}

// close releases connections and exports metrics.
func (a *app) close() {
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.cfg != nil && a.cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			a.logger.Warn().Err(err).Str("path", a.cfg.Metrics.Textfile).Msg("Failed to write metrics textfile")
		}
	}
}

// dispatch runs the named subcommand of a group after connecting to the API.
func (a *app) dispatch(ctx context.Context, group string, args []string, commands map[string]command) error {
	if len(args) == 0 || isHelp(args[0]) {
		printGroupUsage(a.stderr, group, commands)
		if len(args) == 0 {
			return errParseFlags
		}
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		printGroupUsage(a.stderr, group, commands)
		return usagef("unknown %s command: %s", group, args[0])
	}

	if err := a.loadConfig(); err != nil {
		return err
	}
	if _, err := a.format(); err != nil {
		return err
	}
	if err := a.connect(ctx); err != nil {
		return err
	}
	return cmd.run(ctx, args[1:])
}

func isHelp(arg string) bool {
	return arg == "help" || arg == "-h" || arg == "--help"
}

func printGroupUsage(w io.Writer, group string, commands map[string]command) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "Usage: explorium %s <command> [flags]\n\nCommands:\n", group)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}
}

// newFlagSet creates a command flag set that also accepts the output flags.
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	a.global.registerOutput(fs)
	return fs
}

// parse parses command flags and rejects stray positional arguments.
func (a *app) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return flag.ErrHelp
		}
		return errParseFlags
	}
	if fs.NArg() > 0 {
		return usagef("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

// format returns the selected output format, falling back to the
// configured default.
func (a *app) format() (output.Format, error) {
	name := a.global.output
	if name == "" && a.cfg != nil {
		name = a.cfg.DefaultOutput
	}
	if name == "" {
		name = string(output.FormatJSON)
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		return "", &usageError{msg: err.Error()}
	}
	return format, nil
}

// emit renders data to stdout or to --output-file.
func (a *app) emit(data any) error {
	format, err := a.format()
	if err != nil {
		return err
	}
	if path := a.global.outputFile; path != "" {
		if err := output.WriteFile(path, data, format); err != nil {
			return err
		}
		fmt.Fprintf(a.stderr, "Output written to: %s\n", path)
		return nil
	}
	return output.Write(a.stdout, data, format)
}

// listFlag collects comma separated values; the flag may repeat.
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(value string) error {
	*l = append(*l, splitList(value)...)
	return nil
}

// splitList splits a comma separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// valuesFilter wraps values the way the search filters expect them.
func valuesFilter(values []string) map[string]any {
	return map[string]any{"values": values}
}

// mergeInputColumns copies the input row of each record's ID into the
// record as input_<column>.
func mergeInputColumns(records []map[string]any, rows map[string]map[string]any, idKey string) {
	if len(rows) == 0 {
		return
	}
	for _, record := range records {
		id, _ := record[idKey].(string)
		row, ok := rows[id]
		if !ok {
			continue
		}
		for k, v := range row {
			record["input_"+k] = v
		}
	}
}

// readIDs loads IDs from --ids or from an ID file. rows maps IDs to their
// CSV input row when the file had a header.
func (a *app) readIDs(ids []string, file, column string) ([]string, map[string]map[string]any, error) {
	switch {
	case len(ids) > 0:
		return ids, nil, nil
	case file != "":
		src, err := input.Read(file, a.stdin)
		if err != nil {
			return nil, nil, err
		}
		return input.ParseIDFile(src, column)
	default:
		return nil, nil, nil
	}
}
