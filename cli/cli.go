// Package cli implements §6.1's CLI surface and the "CLI parser"
// collaborator of §6.4: it declares the core-relevant flags, resolves
// them against a loaded config.Config (precedence config < env < CLI,
// §6.5), and produces a fully-validated Settings object. Per §6.4 "the
// core never re-validates" — everything downstream (cmd/hl)
// trusts Settings as already checked.
//
// Grounded on ChristianF88-cidrx's cli.go: the same shared
// *cli.StringFlag/*cli.BoolFlag package-level variable table feeding a
// single urfave/cli/v2 App, generalized from that repo's static/live
// subcommands to hl's single flat flag set (§6.1 lists no subcommands).
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	cli "github.com/urfave/cli/v2"

	"github.com/tempestlab/hl/config"
	"github.com/tempestlab/hl/frame"
	"github.com/tempestlab/hl/parse"
	"github.com/tempestlab/hl/query"
	"github.com/tempestlab/hl/record"
	"github.com/tempestlab/hl/semantic"
	"github.com/tempestlab/hl/tstamp"
)

// Settings is the validated, fully-resolved settings object §6.4
// promises the core. Every field here is already parsed/compiled;
// nothing in cmd/hl re-parses a flag string.
type Settings struct {
	Inputs []string // empty means stdin

	InputFormat parse.Format
	AllowPrefix bool
	Delimiter   frame.Mode
	UnixUnit    tstamp.Unit

	MinLevel record.Level
	Query    query.Query

	Sort                 bool
	Follow               bool
	SyncIntervalMs       int
	TailBytes            int64
	Concurrency          int
	BufferSize           int
	MaxMessageSize       int
	InterruptIgnoreCount int

	Raw       bool
	DumpIndex bool

	CacheDir string
	Theme    string
	Pager    string
	Verbose  bool

	NameLists  semantic.NameLists
	LevelTable record.LevelTable
}

var (
	configFlag = &cli.StringFlag{Name: "config", Usage: "path to a TOML config file (§6.5 config < env < CLI)"}

	inputFormatFlag = &cli.StringFlag{Name: "input-format", Aliases: []string{"input"}, Value: "auto", Usage: "auto, json, or logfmt"}
	allowPrefixFlag = &cli.BoolFlag{Name: "allow-prefix", Usage: "accept a non-structured prefix before the first '{' (§4.C)"}
	delimiterFlag   = &cli.StringFlag{Name: "delimiter", Value: "auto", Usage: "auto, lf, cr, crlf, or nul"}
	unixUnitFlag    = &cli.StringFlag{Name: "unix-timestamp-unit", Value: "auto", Usage: "auto, s, ms, us, or ns"}

	levelFlag = &cli.StringFlag{Name: "level", Aliases: []string{"l"}, Usage: "minimum level to show (trace/debug/info/warn/error, or its first letter)"}
	filterFlag = &cli.StringSliceFlag{Name: "filter", Aliases: []string{"f"}, Usage: "field predicate, e.g. status=500 or msg~=timeout (repeatable)"}
	queryFlag  = &cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "boolean query expression"}
	sinceFlag  = &cli.StringFlag{Name: "since", Usage: "RFC3339, relative (-1h, -7d), or natural language (yesterday)"}
	untilFlag  = &cli.StringFlag{Name: "until", Usage: "same formats as --since"}

	sortFlag           = &cli.BoolFlag{Name: "sort", Aliases: []string{"s"}, Usage: "chronological merge across all inputs (§4.I-K)"}
	followFlag         = &cli.BoolFlag{Name: "follow", Aliases: []string{"F"}, Usage: "tail inputs live (§4.L)"}
	syncIntervalFlag   = &cli.IntFlag{Name: "sync-interval-ms", Value: 100, Usage: "follow mode's chronological sync window width"}
	tailFlag           = &cli.Int64Flag{Name: "tail", Value: 64 << 10, Usage: "bytes to preload from the end of each file in follow mode"}
	concurrencyFlag    = &cli.IntFlag{Name: "concurrency", Aliases: []string{"C"}, Usage: "worker count (default: available parallelism)"}
	bufferSizeFlag     = &cli.IntFlag{Name: "buffer-size", Value: 2 << 20, Usage: "segment size in bytes (§4.A)"}
	maxMessageSizeFlag = &cli.IntFlag{Name: "max-message-size", Value: 64 << 20, Usage: "oversize-record ceiling in bytes (§4.A)"}
	ignoreCountFlag    = &cli.IntFlag{Name: "interrupt-ignore-count", Usage: "number of leading Ctrl-C signals to swallow (§4.H)"}

	rawFlag       = &cli.BoolFlag{Name: "raw", Aliases: []string{"r"}, Usage: "bypass the formatter; emit the source line of passing records"}
	dumpIndexFlag = &cli.BoolFlag{Name: "dump-index", Usage: "print the §4.I/§4.J segment index and exit"}

	cacheDirFlag = &cli.StringFlag{Name: "cache-dir", Usage: "override the index cache directory (§4.J)"}
	themeFlag    = &cli.StringFlag{Name: "theme", Value: "default", Usage: "rendering theme name"}
	pagerFlag    = &cli.StringFlag{Name: "pager", Usage: "pager command to spawn when stdout is a TTY"}
	verboseFlag  = &cli.BoolFlag{Name: "verbose", Usage: "emit internal diagnostic logging to stderr (HL_VERBOSE)"}
)

// Runner is the single entry point cmd/hl provides; App
// wires it as the urfave/cli Action.
type Runner func(s Settings, stdout, stderr *os.File) error

// App builds the urfave/cli/v2 application described by §6.1. run is
// invoked once, after flags are parsed and Settings is built and
// validated.
func App(run Runner) *cli.App {
	return &cli.App{
		Name:      "hl",
		Usage:     "colorized, filterable rendering of structured logs",
		UsageText: "hl [options] [file ...]",
		Flags: []cli.Flag{
			configFlag,
			inputFormatFlag, allowPrefixFlag, delimiterFlag, unixUnitFlag,
			levelFlag, filterFlag, queryFlag, sinceFlag, untilFlag,
			sortFlag, followFlag, syncIntervalFlag, tailFlag,
			concurrencyFlag, bufferSizeFlag, maxMessageSizeFlag, ignoreCountFlag,
			rawFlag, dumpIndexFlag,
			cacheDirFlag, themeFlag, pagerFlag, verboseFlag,
		},
		Action: func(ctx *cli.Context) error {
			settings, err := build(ctx)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if err := run(settings, os.Stdout, os.Stderr); err != nil {
				return err
			}
			return nil
		},
	}
}

// build resolves flags on top of a loaded config.Config and validates
// the result into a Settings (§7.1 Configuration-kind errors are
// reported here, before the pipeline starts).
func build(ctx *cli.Context) (Settings, error) {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return Settings{}, err
	}
	cfg = cfg.ApplyEnv(config.OSEnv)

	if ctx.IsSet("input-format") {
		cfg.InputFormat = ctx.String("input-format")
	}
	if ctx.IsSet("allow-prefix") {
		cfg.AllowPrefix = ctx.Bool("allow-prefix")
	}
	if ctx.IsSet("delimiter") {
		cfg.Delimiter = ctx.String("delimiter")
	}
	if ctx.IsSet("unix-timestamp-unit") {
		cfg.UnixTimestampUnit = ctx.String("unix-timestamp-unit")
	}
	if ctx.IsSet("level") {
		cfg.Level = ctx.String("level")
	}
	if ctx.IsSet("sync-interval-ms") {
		cfg.SyncIntervalMs = ctx.Int("sync-interval-ms")
	}
	if ctx.IsSet("tail") {
		cfg.TailBytes = ctx.Int64("tail")
	}
	if ctx.IsSet("buffer-size") {
		cfg.BufferSize = ctx.Int("buffer-size")
	}
	if ctx.IsSet("max-message-size") {
		cfg.MaxMessageSize = ctx.Int("max-message-size")
	}
	if ctx.IsSet("interrupt-ignore-count") {
		cfg.InterruptIgnoreCount = ctx.Int("interrupt-ignore-count")
	}
	if ctx.IsSet("cache-dir") {
		cfg.CacheDir = ctx.String("cache-dir")
	}
	if ctx.IsSet("theme") {
		cfg.Theme = ctx.String("theme")
	}
	if ctx.IsSet("pager") {
		cfg.Pager = ctx.String("pager")
	}
	if ctx.IsSet("verbose") {
		cfg.Verbose = ctx.Bool("verbose")
	}

	var s Settings
	s.Inputs = ctx.Args().Slice()

	switch strings.ToLower(cfg.InputFormat) {
	case "", "auto":
		s.InputFormat = parse.FormatAuto
	case "json":
		s.InputFormat = parse.FormatJSON
	case "logfmt":
		s.InputFormat = parse.FormatLogfmt
	default:
		return Settings{}, fmt.Errorf("invalid --input-format %q", cfg.InputFormat)
	}
	s.AllowPrefix = cfg.AllowPrefix

	mode, err := frame.ParseMode(cfg.Delimiter)
	if err != nil {
		return Settings{}, err
	}
	s.Delimiter = mode

	unit, err := tstamp.ParseUnit(cfg.UnixTimestampUnit)
	if err != nil {
		return Settings{}, err
	}
	s.UnixUnit = unit

	minLevel, err := ParseLevel(cfg.Level)
	if err != nil {
		return Settings{}, err
	}
	s.MinLevel = minLevel

	q := query.Query{Level: &query.LevelFilter{Min: minLevel}}
	for _, raw := range ctx.StringSlice("filter") {
		ff, err := parseFieldFilter(raw)
		if err != nil {
			return Settings{}, err
		}
		q.Fields = append(q.Fields, ff)
	}
	if expr := ctx.String("query"); expr != "" {
		ast, err := query.Parse(expr)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid --query: %w", err)
		}
		q.AST = ast
	}

	now := time.Now()
	var since, until record.Timestamp
	var hasSince, hasUntil bool
	if raw := ctx.String("since"); raw != "" {
		t, err := ResolveTime(raw, now)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid --since: %w", err)
		}
		since, hasSince = record.Timestamp(t.UnixNano()), true
	}
	if raw := ctx.String("until"); raw != "" {
		t, err := ResolveTime(raw, now)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid --until: %w", err)
		}
		until, hasUntil = record.Timestamp(t.UnixNano()), true
	}
	q.Window = query.NewWindow(since, hasSince, until, hasUntil)
	s.Query = q

	s.Sort = ctx.Bool("sort")
	s.Follow = ctx.Bool("follow")
	s.SyncIntervalMs = cfg.SyncIntervalMs
	s.TailBytes = cfg.TailBytes
	s.Concurrency = cfg.Concurrency
	if ctx.IsSet("concurrency") {
		s.Concurrency = ctx.Int("concurrency")
	}
	if s.Concurrency <= 0 {
		s.Concurrency = runtime.GOMAXPROCS(0)
	}
	s.BufferSize = cfg.BufferSize
	s.MaxMessageSize = cfg.MaxMessageSize
	s.InterruptIgnoreCount = cfg.InterruptIgnoreCount

	s.Raw = ctx.Bool("raw")
	s.DumpIndex = ctx.Bool("dump-index")

	s.CacheDir = cfg.CacheDir
	s.Theme = cfg.Theme
	s.Pager = cfg.Pager
	s.Verbose = cfg.Verbose

	s.NameLists = cfg.NameLists()
	s.LevelTable = cfg.LevelTable()

	if s.Follow && s.Sort {
		return Settings{}, fmt.Errorf("--follow and --sort are mutually exclusive")
	}
	if s.BufferSize <= 0 {
		return Settings{}, fmt.Errorf("--buffer-size must be positive")
	}
	if s.MaxMessageSize <= 0 {
		return Settings{}, fmt.Errorf("--max-message-size must be positive")
	}

	return s, nil
}

// ParseLevel maps a --level value (full name or first letter, per S2 in
// spec.md's examples: "hl -l w") to a record.Level. An empty string
// means "no minimum", i.e. LevelTrace.
func ParseLevel(s string) (record.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "trace", "t":
		return record.LevelTrace, nil
	case "debug", "d":
		return record.LevelDebug, nil
	case "info", "i":
		return record.LevelInfo, nil
	case "warn", "warning", "w":
		return record.LevelWarn, nil
	case "error", "err", "e":
		return record.LevelError, nil
	default:
		return record.LevelAbsent, fmt.Errorf("invalid --level %q", s)
	}
}

// parseFieldFilter parses one -f flag value: "name op value[,value...]",
// with op being one of the token forms query.ParseOperator recognizes,
// and an optional leading "?" before the field name for the
// include-absent modifier (§4.G).
func parseFieldFilter(raw string) (query.FieldFilter, error) {
	s := raw
	includeAbsent := false
	if strings.HasPrefix(s, "?") {
		includeAbsent = true
		s = s[1:]
	}
	name, op, rest, err := splitOperator(s)
	if err != nil {
		return query.FieldFilter{}, fmt.Errorf("invalid -f %q: %w", raw, err)
	}
	values := strings.Split(strings.TrimSpace(rest), ",")
	return query.NewFieldFilter(name, op, values, includeAbsent)
}

// operator tokens, longest first so "!~~=" isn't matched as "!=" with a
// trailing "~~=" left in rest.
var operatorTokens = []string{"!~~=", "~~=", "!~=", "~=", "!=", "=", " not in ", " in "}

func splitOperator(s string) (name string, op query.Operator, rest string, err error) {
	for _, t := range operatorTokens {
		if idx := strings.Index(s, t); idx >= 0 {
			trimmed := strings.TrimSpace(t)
			op, err = query.ParseOperator(trimmed)
			if err != nil {
				return "", 0, "", err
			}
			return strings.TrimSpace(s[:idx]), op, s[idx+len(t):], nil
		}
	}
	return "", 0, "", fmt.Errorf("no recognized operator")
}
