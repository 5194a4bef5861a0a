// Package config loads the bot configuration once at startup. Values come
// from an optional TOML or YAML file and are then overridden by environment
// variables. The result is read-only for the life of the process.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"todobot/internal/instrumentation"
	"todobot/internal/logging"
)

const (
	// AppName is the application directory name.
	AppName = "todobot"

	// ConfigFile is the default config filename inside Dir.
	ConfigFile = "config.toml"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"
)

// Store backends.
const (
	StoreSheets = "sheets"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Lock backends.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

// Config is the complete bot configuration.
type Config struct {
	// Dir is the configuration directory holding the OAuth client and token.
	Dir string `toml:"-" yaml:"-"`

	// Debug and Quiet are set from CLI flags.
	Debug bool `toml:"-" yaml:"-"`
	Quiet bool `toml:"-" yaml:"-"`

	Server          ServerConfig          `toml:"server" yaml:"server"`
	Line            LineConfig            `toml:"line" yaml:"line"`
	Store           StoreConfig           `toml:"store" yaml:"store"`
	Sheets          SheetsConfig          `toml:"sheets" yaml:"sheets"`
	SQLite          SQLiteConfig          `toml:"sqlite" yaml:"sqlite"`
	Lock            LockConfig            `toml:"lock" yaml:"lock"`
	Bot             BotConfig             `toml:"bot" yaml:"bot"`
	Log             LogConfig             `toml:"log" yaml:"log"`
	Instrumentation InstrumentationConfig `toml:"instrumentation" yaml:"instrumentation"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Addr            string        `toml:"addr" yaml:"addr"`
	WebhookPath     string        `toml:"webhook_path" yaml:"webhook_path"`
	MetricsAddr     string        `toml:"metrics_addr" yaml:"metrics_addr"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LineConfig holds the Messaging API channel credentials.
type LineConfig struct {
	ChannelSecret      string `toml:"channel_secret" yaml:"channel_secret"`
	ChannelAccessToken string `toml:"channel_access_token" yaml:"channel_access_token"`
	// APIEndpoint overrides the Messaging API base URL.
	APIEndpoint string `toml:"api_endpoint" yaml:"api_endpoint"`
}

// StoreConfig selects the task store backend.
type StoreConfig struct {
	Backend string `toml:"backend" yaml:"backend"`
}

// SheetsConfig configures the spreadsheet backend.
type SheetsConfig struct {
	SpreadsheetID   string `toml:"spreadsheet_id" yaml:"spreadsheet_id"`
	SheetName       string `toml:"sheet_name" yaml:"sheet_name"`
	HeaderRows      int    `toml:"header_rows" yaml:"header_rows"`
	ClientEmail     string `toml:"client_email" yaml:"client_email"`
	PrivateKey      string `toml:"private_key" yaml:"private_key"`
	CredentialsFile string `toml:"credentials_file" yaml:"credentials_file"`
}

// SQLiteConfig configures the SQL backend.
type SQLiteConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// LockConfig selects where per-user locks live.
type LockConfig struct {
	Backend   string        `toml:"backend" yaml:"backend"`
	RedisAddr string        `toml:"redis_addr" yaml:"redis_addr"`
	KeyPrefix string        `toml:"key_prefix" yaml:"key_prefix"`
	TTL       time.Duration `toml:"ttl" yaml:"ttl"`
	Timeout   time.Duration `toml:"timeout" yaml:"timeout"`
}

// BotConfig holds chat behavior settings.
type BotConfig struct {
	// TimeZone decides which calendar date is "today".
	TimeZone string `toml:"time_zone" yaml:"time_zone"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// InstrumentationConfig mirrors instrumentation.Config.
type InstrumentationConfig struct {
	Enabled           bool    `toml:"enabled" yaml:"enabled"`
	MetricsExporter   string  `toml:"metrics_exporter" yaml:"metrics_exporter"`
	TracingExporter   string  `toml:"tracing_exporter" yaml:"tracing_exporter"`
	OTLPEndpoint      string  `toml:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPInsecure      bool    `toml:"otlp_insecure" yaml:"otlp_insecure"`
	TraceSamplingRate float64 `toml:"trace_sampling_rate" yaml:"trace_sampling_rate"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	inst := instrumentation.DefaultConfig()
	return &Config{
		Dir: DefaultConfigDir(),
		Server: ServerConfig{
			Addr:            ":3000",
			WebhookPath:     "/webhook",
			MetricsAddr:     ":9090",
			ShutdownTimeout: 30 * time.Second,
		},
		Store:  StoreConfig{Backend: StoreSheets},
		Sheets: SheetsConfig{SheetName: "Sheet1"},
		SQLite: SQLiteConfig{Path: "todobot.db"},
		Lock: LockConfig{
			Backend:   LockMemory,
			KeyPrefix: "todobot:lock:",
			TTL:       30 * time.Second,
			Timeout:   10 * time.Second,
		},
		Bot: BotConfig{TimeZone: "Asia/Tokyo"},
		Log: LogConfig{Level: "info", Format: logging.FormatText},
		Instrumentation: InstrumentationConfig{
			Enabled:           inst.Enabled,
			MetricsExporter:   inst.MetricsExporter,
			TracingExporter:   inst.TracingExporter,
			TraceSamplingRate: inst.TraceSamplingRate,
		},
	}
}

// Load reads the config file at path, applies environment overrides and
// validates the result. An empty path means Dir/config.toml, which may be
// absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an injectable environment.
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg, err := Read(path, getenv)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is LoadWithEnv without validation, for commands such as login that
// only need the config directory.
func Read(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if dir := getenv("TODOBOT_CONFIG_DIR"); dir != "" {
		cfg.Dir = dir
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.Dir, ConfigFile)
	} else {
		cfg.Dir = filepath.Dir(path)
	}

	if err := cfg.decodeFile(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			// No default file; environment only.
		} else {
			return nil, err
		}
	}

	cfg.applyEnv(getenv)
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}
	return nil
}

// applyEnv overrides file values with the deployment environment.
func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Line.ChannelSecret, "LINE_CHANNEL_SECRET")
	set(&c.Line.ChannelAccessToken, "LINE_CHANNEL_ACCESS_TOKEN")
	set(&c.Sheets.SpreadsheetID, "SPREADSHEET_ID")
	set(&c.Sheets.SheetName, "SHEET_NAME")
	set(&c.Sheets.ClientEmail, "GOOGLE_CLIENT_EMAIL")
	set(&c.Sheets.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	set(&c.Store.Backend, "STORE_BACKEND")
	set(&c.SQLite.Path, "SQLITE_PATH")
	set(&c.Bot.TimeZone, "BOT_TIME_ZONE")
	set(&c.Log.Level, "LOG_LEVEL")
	set(&c.Log.Format, "LOG_FORMAT")

	// Keys pasted into env vars usually carry literal "\n" sequences.
	if v := getenv("GOOGLE_PRIVATE_KEY"); v != "" {
		c.Sheets.PrivateKey = strings.ReplaceAll(v, `\n`, "\n")
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Lock.Backend = LockRedis
		c.Lock.RedisAddr = v
	}
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreSheets:
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("config: sheets.spreadsheet_id (SPREADSHEET_ID) is required for the sheets store")
		}
		if c.Sheets.HeaderRows < 0 {
			return errors.New("config: sheets.header_rows must not be negative")
		}
		if (c.Sheets.ClientEmail == "") != (c.Sheets.PrivateKey == "") {
			return errors.New("config: sheets.client_email and sheets.private_key must be set together")
		}
	case StoreSQLite:
		if c.SQLite.Path == "" {
			return errors.New("config: sqlite.path is required for the sqlite store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown store backend %q (use sheets, sqlite or memory)", c.Store.Backend)
	}

	switch c.Lock.Backend {
	case LockMemory:
	case LockRedis:
		if c.Lock.RedisAddr == "" {
			return errors.New("config: lock.redis_addr (REDIS_ADDR) is required for the redis lock")
		}
	default:
		return fmt.Errorf("config: unknown lock backend %q (use memory or redis)", c.Lock.Backend)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if f := c.Log.Format; f != logging.FormatText && f != logging.FormatJSON {
		return fmt.Errorf("config: unknown log format %q (use text or json)", f)
	}

	inst := c.InstrumentationConfig("")
	if err := inst.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ValidateServe checks the extra settings the webhook server needs.
func (c *Config) ValidateServe() error {
	if c.Line.ChannelSecret == "" {
		return errors.New("config: line.channel_secret (LINE_CHANNEL_SECRET) is required")
	}
	if c.Line.ChannelAccessToken == "" {
		return errors.New("config: line.channel_access_token (LINE_CHANNEL_ACCESS_TOKEN) is required")
	}
	return nil
}

// Location resolves Bot.TimeZone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Bot.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("config: bad bot.time_zone %q: %w", c.Bot.TimeZone, err)
	}
	return loc, nil
}

// InstrumentationConfig converts the instrumentation section.
func (c *Config) InstrumentationConfig(version string) instrumentation.Config {
	inst := instrumentation.DefaultConfig()
	inst.Enabled = c.Instrumentation.Enabled
	inst.MetricsExporter = c.Instrumentation.MetricsExporter
	inst.TracingExporter = c.Instrumentation.TracingExporter
	inst.OTLPEndpoint = c.Instrumentation.OTLPEndpoint
	inst.OTLPInsecure = c.Instrumentation.OTLPInsecure
	inst.TraceSamplingRate = c.Instrumentation.TraceSamplingRate
	if version != "" {
		inst.ServiceVersion = version
	}
	return inst
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory with mode 0700 if needed.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
