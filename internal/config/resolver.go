// Package config resolves runtime settings from a YAML file, the
// environment (optionally seeded from a .env file) and CLI flags, in that
// order of increasing precedence. Every value records where it came from.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hurttlocker/nuggets/internal/reminder"
	"github.com/hurttlocker/nuggets/internal/store"
	"github.com/hurttlocker/nuggets/internal/tagger"
)

// ErrMissingSecret means a required secret is not configured.
var ErrMissingSecret = errors.New("missing required secret")

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// Log modes.
const (
	LogProd = "prod"
	LogDev  = "dev"
)

const DefaultRedisAddr = "localhost:6379"

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

type ResolveOptions struct {
	ConfigPath string
	// DotEnvPath is loaded into the environment before resolving; existing
	// variables win. Empty means ".env"; "-" skips it.
	DotEnvPath string
	// RequireSecrets fails with ErrMissingSecret when the bot token or the
	// classifier key is absent.
	RequireSecrets bool

	CLIStore string
	CLIDB    string
	CLILog   string
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	BotToken      ResolvedValue `json:"bot_token"`
	ClassifierKey ResolvedValue `json:"classifier_key"`
	ClassifierURL ResolvedValue `json:"classifier_url"`

	Store         ResolvedValue `json:"store"`
	DBPath        ResolvedValue `json:"db_path"`
	RedisAddr     ResolvedValue `json:"redis_addr"`
	RedisPassword ResolvedValue `json:"redis_password"`
	RedisDB       ResolvedValue `json:"redis_db"`
	RedisPrefix   ResolvedValue `json:"redis_prefix"`

	Log              ResolvedValue `json:"log"`
	ReminderInterval ResolvedValue `json:"reminder_interval"`
}

type fileConfig struct {
	BotToken   string `yaml:"bot_token"`
	Classifier struct {
		URL    string `yaml:"url"`
		APIKey string `yaml:"api_key"`
	} `yaml:"classifier"`
	Store struct {
		Backend string `yaml:"backend"`
		DBPath  string `yaml:"db_path"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"store"`
	Log       string `yaml:"log"`
	Reminders struct {
		Interval string `yaml:"interval"`
	} `yaml:"reminders"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".nuggets", "config.yaml")
}

func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	switch opts.DotEnvPath {
	case "-":
	case "":
		_ = godotenv.Load() // optional
	default:
		if err := godotenv.Load(opts.DotEnvPath); err != nil {
			return ResolvedConfig{}, fmt.Errorf("loading %s: %w", opts.DotEnvPath, err)
		}
	}

	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath:       path,
		ClassifierURL:    defaultValue(tagger.DefaultZeroShotURL),
		Store:            defaultValue(store.BackendSQLite),
		DBPath:           defaultValue(store.DefaultDBPath),
		RedisAddr:        defaultValue(DefaultRedisAddr),
		RedisDB:          defaultValue("0"),
		RedisPrefix:      defaultValue(store.DefaultRedisPrefix),
		Log:              defaultValue(LogProd),
		ReminderInterval: defaultValue(reminder.DefaultInterval.String()),
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.BotToken, cfg.BotToken, SourceConfig, path)
		apply(&out.ClassifierKey, cfg.Classifier.APIKey, SourceConfig, path)
		apply(&out.ClassifierURL, cfg.Classifier.URL, SourceConfig, path)
		apply(&out.Store, cfg.Store.Backend, SourceConfig, path)
		apply(&out.DBPath, cfg.Store.DBPath, SourceConfig, path)
		apply(&out.RedisAddr, cfg.Store.Redis.Addr, SourceConfig, path)
		apply(&out.RedisPassword, cfg.Store.Redis.Password, SourceConfig, path)
		if cfg.Store.Redis.DB != 0 {
			apply(&out.RedisDB, strconv.Itoa(cfg.Store.Redis.DB), SourceConfig, path)
		}
		apply(&out.RedisPrefix, cfg.Store.Redis.Prefix, SourceConfig, path)
		apply(&out.Log, cfg.Log, SourceConfig, path)
		apply(&out.ReminderInterval, cfg.Reminders.Interval, SourceConfig, path)
	}

	applyEnv(&out.BotToken, "BOT_TOKEN")
	applyEnv(&out.ClassifierKey, "HF_API_KEY")
	applyEnv(&out.ClassifierURL, "NUGGETS_CLASSIFIER_URL")
	applyEnv(&out.Store, "NUGGETS_STORE")
	applyEnv(&out.DBPath, "NUGGETS_DB")
	applyEnv(&out.RedisAddr, "REDIS_ADDR")
	applyEnv(&out.RedisPassword, "REDIS_PASSWORD")
	applyEnv(&out.RedisDB, "REDIS_DB")
	applyEnv(&out.Log, "NUGGETS_LOG")
	applyEnv(&out.ReminderInterval, "NUGGETS_REMINDER_INTERVAL")

	apply(&out.Store, opts.CLIStore, SourceCLI, "--store")
	apply(&out.DBPath, opts.CLIDB, SourceCLI, "--db")
	apply(&out.Log, opts.CLILog, SourceCLI, "--log")

	if out.DBPath.Value != "" && out.DBPath.Value != ":memory:" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}
	out.Store.Value = strings.ToLower(out.Store.Value)
	out.Log.Value = strings.ToLower(out.Log.Value)

	if err := out.validate(); err != nil {
		return out, err
	}
	if opts.RequireSecrets {
		if err := out.CheckSecrets(); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (r ResolvedConfig) validate() error {
	switch r.Store.Value {
	case store.BackendSQLite, store.BackendRedis, store.BackendMemory:
	default:
		return fmt.Errorf("store %q (from %s): must be sqlite, redis or memory", r.Store.Value, r.Store.From)
	}
	switch r.Log.Value {
	case LogProd, LogDev:
	default:
		return fmt.Errorf("log %q (from %s): must be prod or dev", r.Log.Value, r.Log.From)
	}
	if _, err := strconv.Atoi(r.RedisDB.Value); err != nil {
		return fmt.Errorf("redis db %q (from %s): not a number", r.RedisDB.Value, r.RedisDB.From)
	}
	d, err := time.ParseDuration(r.ReminderInterval.Value)
	if err != nil || d <= 0 {
		return fmt.Errorf("reminder interval %q (from %s): must be a positive duration", r.ReminderInterval.Value, r.ReminderInterval.From)
	}
	return nil
}

// CheckSecrets reports every required secret that is unset.
func (r ResolvedConfig) CheckSecrets() error {
	var missing []string
	if r.BotToken.Value == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if r.ClassifierKey.Value == "" {
		missing = append(missing, "HF_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSecret, strings.Join(missing, ", "))
	}
	return nil
}

// Interval is the reminder check period.
func (r ResolvedConfig) Interval() time.Duration {
	d, err := time.ParseDuration(r.ReminderInterval.Value)
	if err != nil || d <= 0 {
		return reminder.DefaultInterval
	}
	return d
}

// StoreConfig maps the resolved settings onto store.Open.
func (r ResolvedConfig) StoreConfig() store.Config {
	db, _ := strconv.Atoi(r.RedisDB.Value)
	return store.Config{
		Backend:     r.Store.Value,
		DBPath:      r.DBPath.Value,
		RedisAddr:   r.RedisAddr.Value,
		RedisDB:     db,
		RedisPass:   r.RedisPassword.Value,
		RedisPrefix: r.RedisPrefix.Value,
	}
}

// Entry is one printable setting.
type Entry struct {
	Name  string
	Value ResolvedValue
}

// Entries lists settings in display order with secrets masked.
func (r ResolvedConfig) Entries() []Entry {
	return []Entry{
		{"bot_token", masked(r.BotToken)},
		{"classifier_key", masked(r.ClassifierKey)},
		{"classifier_url", r.ClassifierURL},
		{"store", r.Store},
		{"db_path", r.DBPath},
		{"redis_addr", r.RedisAddr},
		{"redis_password", masked(r.RedisPassword)},
		{"redis_db", r.RedisDB},
		{"redis_prefix", r.RedisPrefix},
		{"log", r.Log},
		{"reminder_interval", r.ReminderInterval},
	}
}

func masked(v ResolvedValue) ResolvedValue {
	if v.Value == "" {
		return v
	}
	if len(v.Value) <= 8 {
		v.Value = "****"
		return v
	}
	v.Value = v.Value[:4] + "****" + v.Value[len(v.Value)-2:]
	return v
}

func defaultValue(v string) ResolvedValue {
	return ResolvedValue{Value: v, Source: SourceDefault, From: "built-in default"}
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
