// Package config implements the ambient configuration layer §6.4/§6.5
// describe as a collaborator of the core: field-name lists for the
// semantic extractor (§4.E), a level mapping table (§4.E "Level"), and
// the handful of pipeline defaults (buffer sizes, concurrency, follow
// timing) that the CLI flags in §6.1 can override. Precedence is
// config file < environment < CLI, per §6.5; this package implements the
// first two layers, the cli package layers CLI flags on top.
//
// Grounded on ChristianF88-cidrx's config.go: the same
// read-file-then-toml.Decode-into-a-struct shape, generalized from that
// repo's nested global/static/live/trie tables (CIDR-banning specific)
// to hl's flat settings plus two nested tables: [fields] for the name
// lists and [levels] for the level mapping.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tempestlab/hl/record"
	"github.com/tempestlab/hl/semantic"
)

// FieldNames is the TOML-serializable shape of semantic.NameLists
// (§4.E's "configured name list per semantic field").
type FieldNames struct {
	Timestamp []string `toml:"timestamp"`
	Level     []string `toml:"level"`
	Message   []string `toml:"message"`
	Logger    []string `toml:"logger"`
	Caller    []string `toml:"caller"`
}

// Config holds every core setting with an HL_* environment equivalent
// (§6.5). Zero values mean "use the component's own default"; Load
// always starts from Default() so every field is populated even when a
// config file sets only a few of them.
type Config struct {
	InputFormat          string            `toml:"input_format"`
	AllowPrefix          bool              `toml:"allow_prefix"`
	Delimiter            string            `toml:"delimiter"`
	UnixTimestampUnit    string            `toml:"unix_timestamp_unit"`
	Level                string            `toml:"level"`
	BufferSize           int               `toml:"buffer_size"`
	MaxMessageSize       int               `toml:"max_message_size"`
	Concurrency          int               `toml:"concurrency"`
	SyncIntervalMs       int               `toml:"sync_interval_ms"`
	TailBytes            int64             `toml:"tail_bytes"`
	InterruptIgnoreCount int               `toml:"interrupt_ignore_count"`
	CacheDir             string            `toml:"cache_dir"`
	Theme                string            `toml:"theme"`
	Pager                string            `toml:"pager"`
	Verbose              bool              `toml:"verbose"`
	Fields               FieldNames        `toml:"fields"`
	Levels               map[string]string `toml:"levels"`
}

// Default returns the configuration the core uses when no config file,
// environment variable, or CLI flag overrides a setting.
func Default() Config {
	names := semantic.DefaultNameLists()
	cacheDir := ".cache/hl"
	if home, err := os.UserCacheDir(); err == nil {
		cacheDir = home + "/hl"
	}
	return Config{
		InputFormat:          "auto",
		Delimiter:            "auto",
		UnixTimestampUnit:    "auto",
		Level:                "trace",
		BufferSize:           2 << 20,
		MaxMessageSize:       64 << 20,
		Concurrency:          0, // 0 means "available parallelism", resolved by the caller
		SyncIntervalMs:       100,
		TailBytes:            64 << 10,
		InterruptIgnoreCount: 0,
		CacheDir:             cacheDir,
		Theme:                "default",
		Fields: FieldNames{
			Timestamp: names.Timestamp,
			Level:     names.Level,
			Message:   names.Message,
			Logger:    names.Logger,
			Caller:    names.Caller,
		},
	}
}

// Load reads a TOML config file at path on top of Default(). A
// malformed file is a Configuration-kind error (§7.1).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays HL_* variables (§6.5) on top of c, only overwriting a
// field when its variable is set — getenv is injected so tests don't
// depend on the process environment.
func (c Config) ApplyEnv(getenv func(string) (string, bool)) Config {
	if v, ok := getenv("HL_INPUT_FORMAT"); ok {
		c.InputFormat = v
	}
	if v, ok := getenv("HL_ALLOW_PREFIX"); ok {
		c.AllowPrefix = truthy(v)
	}
	if v, ok := getenv("HL_DELIMITER"); ok {
		c.Delimiter = v
	}
	if v, ok := getenv("HL_UNIX_TIMESTAMP_UNIT"); ok {
		c.UnixTimestampUnit = v
	}
	if v, ok := getenv("HL_LEVEL"); ok {
		c.Level = v
	}
	if v, ok := getenv("HL_BUFFER_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.BufferSize = n
		}
	}
	if v, ok := getenv("HL_MAX_MESSAGE_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxMessageSize = n
		}
	}
	if v, ok := getenv("HL_CONCURRENCY"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}
	if v, ok := getenv("HL_SYNC_INTERVAL_MS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.SyncIntervalMs = n
		}
	}
	if v, ok := getenv("HL_TAIL"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.TailBytes = n
		}
	}
	if v, ok := getenv("HL_INTERRUPT_IGNORE_COUNT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.InterruptIgnoreCount = n
		}
	}
	if v, ok := getenv("HL_CACHE_DIR"); ok {
		c.CacheDir = v
	}
	if v, ok := getenv("HL_THEME"); ok {
		c.Theme = v
	}
	if v, ok := getenv("HL_PAGER"); ok {
		c.Pager = v
	}
	if v, ok := getenv("HL_VERBOSE"); ok {
		c.Verbose = truthy(v)
	}
	return c
}

// OSEnv adapts os.LookupEnv to ApplyEnv's getenv parameter.
func OSEnv(key string) (string, bool) { return os.LookupEnv(key) }

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// NameLists converts the configured Fields into semantic.NameLists,
// falling back to semantic.DefaultNameLists per predefined field when a
// config/env/CLI layer left that list empty.
func (c Config) NameLists() semantic.NameLists {
	def := semantic.DefaultNameLists()
	pick := func(configured, fallback []string) []string {
		if len(configured) > 0 {
			return configured
		}
		return fallback
	}
	return semantic.NameLists{
		Timestamp: pick(c.Fields.Timestamp, def.Timestamp),
		Level:     pick(c.Fields.Level, def.Level),
		Message:   pick(c.Fields.Message, def.Message),
		Logger:    pick(c.Fields.Logger, def.Logger),
		Caller:    pick(c.Fields.Caller, def.Caller),
	}
}

// LevelTable merges record.DefaultLevelTable with any [levels] overrides
// from the config file (§4.E "a source level string/number is mapped via
// a configured table").
func (c Config) LevelTable() record.LevelTable {
	table := record.DefaultLevelTable()
	out := make(record.LevelTable, len(table)+len(c.Levels))
	for k, v := range table {
		out[k] = v
	}
	for spelling, name := range c.Levels {
		if lvl, ok := parseLevelName(name); ok {
			out[spelling] = lvl
		}
	}
	return out
}

func parseLevelName(name string) (record.Level, bool) {
	switch strings.ToLower(name) {
	case "trace":
		return record.LevelTrace, true
	case "debug":
		return record.LevelDebug, true
	case "info":
		return record.LevelInfo, true
	case "warn", "warning":
		return record.LevelWarn, true
	case "error":
		return record.LevelError, true
	default:
		return record.LevelAbsent, false
	}
}
