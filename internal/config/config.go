package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "CONTRIBUTION_SCORER_CONFIG"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	oracleAPIKeyEnv   = "OPENAI_API_KEY"
	oracleModelEnv    = "OPENAI_MODEL"
	oracleEndpointEnv = "ORACLE_ENDPOINT"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
	cutoffDateEnv     = "CUTOFF_DATE"
)

// Config holds every setting the pipeline needs. It is built once at process
// start and handed to each component explicitly.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Logging       LoggingConfig      `yaml:"logging"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Transcripts   TranscriptConfig   `yaml:"transcripts"`
	Oracle        OracleConfig       `yaml:"oracle"`
	Reconcile     ReconcileConfig    `yaml:"reconcile"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// DatabaseConfig selects the SQL driver backing the tabular store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "pgx"
	DSN    string `yaml:"dsn"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// SchedulerConfig defines when slices run in schedule mode.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	ReconcileCron  string         `yaml:"reconcileCron"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PipelineConfig bounds a single slice and tunes the entry filter.
type PipelineConfig struct {
	CutoffDate         string   `yaml:"cutoffDate"` // YYYYMMDD
	BatchSize          int      `yaml:"batchSize"`
	RunBudget          string   `yaml:"runBudget"`
	CheckpointEvery    int      `yaml:"checkpointEvery"`
	Platform           string   `yaml:"platform"`
	Project            string   `yaml:"project"`
	ReservedMarkers    []string `yaml:"reservedMarkers"`
	SystemSenderPrefix string   `yaml:"systemSenderPrefix"`
}

// Cutoff returns CutoffDate as an integer date key, or 0 when unset.
func (p PipelineConfig) Cutoff() int {
	n, err := strconv.Atoi(p.CutoffDate)
	if err != nil {
		return 0
	}
	return n
}

// Budget returns RunBudget as a duration; zero means unbounded.
func (p PipelineConfig) Budget() time.Duration {
	d, _ := time.ParseDuration(p.RunBudget)
	return d
}

// TranscriptConfig locates uploaded transcript files.
type TranscriptConfig struct {
	Dir      string `yaml:"dir"`
	Pattern  string `yaml:"pattern"`
	Format   string `yaml:"format"` // "text" or "html"
	Platform string `yaml:"platform"`
}

// OracleConfig defines how to reach the classification service.
type OracleConfig struct {
	Provider    string   `yaml:"provider"` // "openai" or "ml"
	Endpoint    string   `yaml:"endpoint"`
	Model       string   `yaml:"model"`
	APIKey      string   `yaml:"apiKey"`
	MaxAttempts int      `yaml:"maxAttempts"`
	BaseDelay   string   `yaml:"baseDelay"`
	Rubric      []string `yaml:"rubric"`

	// NonContribution is the rubric category that yields no ledger records.
	NonContribution string `yaml:"nonContribution"`
}

// Delay returns BaseDelay as a duration.
func (o OracleConfig) Delay() time.Duration {
	d, _ := time.ParseDuration(o.BaseDelay)
	return d
}

// ReconcileConfig tunes the unknown-identity sweep.
type ReconcileConfig struct {
	MaxAttempts int `yaml:"maxAttempts"`
	BatchSize   int `yaml:"batchSize"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg, err := Parse(raw)
			if err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(cutoffDateEnv); v != "" {
		c.Pipeline.CutoffDate = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(oracleAPIKeyEnv); v != "" {
		c.Oracle.APIKey = v
	}
	if v := os.Getenv(oracleModelEnv); v != "" {
		c.Oracle.Model = v
	}
	if v := os.Getenv(oracleEndpointEnv); v != "" {
		c.Oracle.Endpoint = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.ReconcileCron != "" {
		base.Scheduler.ReconcileCron = override.Scheduler.ReconcileCron
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	p := override.Pipeline
	if p.CutoffDate != "" {
		base.Pipeline.CutoffDate = p.CutoffDate
	}
	if p.BatchSize > 0 {
		base.Pipeline.BatchSize = p.BatchSize
	}
	if p.RunBudget != "" {
		base.Pipeline.RunBudget = p.RunBudget
	}
	if p.CheckpointEvery > 0 {
		base.Pipeline.CheckpointEvery = p.CheckpointEvery
	}
	if p.Platform != "" {
		base.Pipeline.Platform = p.Platform
	}
	if p.Project != "" {
		base.Pipeline.Project = p.Project
	}
	if len(p.ReservedMarkers) > 0 {
		base.Pipeline.ReservedMarkers = p.ReservedMarkers
	}
	if p.SystemSenderPrefix != "" {
		base.Pipeline.SystemSenderPrefix = p.SystemSenderPrefix
	}

	t := override.Transcripts
	if t.Dir != "" {
		base.Transcripts.Dir = t.Dir
	}
	if t.Pattern != "" {
		base.Transcripts.Pattern = t.Pattern
	}
	if t.Format != "" {
		base.Transcripts.Format = t.Format
	}
	if t.Platform != "" {
		base.Transcripts.Platform = t.Platform
	}

	o := override.Oracle
	if o.Provider != "" {
		base.Oracle.Provider = o.Provider
	}
	if o.Endpoint != "" {
		base.Oracle.Endpoint = o.Endpoint
	}
	if o.Model != "" {
		base.Oracle.Model = o.Model
	}
	if o.APIKey != "" {
		base.Oracle.APIKey = o.APIKey
	}
	if o.MaxAttempts > 0 {
		base.Oracle.MaxAttempts = o.MaxAttempts
	}
	if o.BaseDelay != "" {
		base.Oracle.BaseDelay = o.BaseDelay
	}
	if len(o.Rubric) > 0 {
		base.Oracle.Rubric = o.Rubric
	}
	if o.NonContribution != "" {
		base.Oracle.NonContribution = o.NonContribution
	}

	if override.Reconcile.MaxAttempts > 0 {
		base.Reconcile.MaxAttempts = override.Reconcile.MaxAttempts
	}
	if override.Reconcile.BatchSize > 0 {
		base.Reconcile.BatchSize = override.Reconcile.BatchSize
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:contributions.db?_pragma=busy_timeout(5000)"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{
			CronExpression: "*/10 * * * *",
			ReconcileCron:  "0 * * * *",
			Timezone:       defaultTimezone,
			location:       tz,
		},
		Pipeline: PipelineConfig{
			CutoffDate:      "20240101",
			BatchSize:       200,
			RunBudget:       "5m",
			CheckpointEvery: 25,
			Platform:        "Telegram",
			Project:         "telegram_chatlog",
			ReservedMarkers: []string{
				"[CONTRIBUTOR REGISTRATION EVENT]",
				"[DIGITAL SIGNATURE EVENT]",
				"[INVENTORY MOVEMENT]",
				"[SALES EVENT]",
				"[QR CODE EVENT]",
				"[TREE PLANTING EVENT]",
				"[CAPITAL INJECTION EVENT]",
			},
			SystemSenderPrefix: "System",
		},
		Transcripts: TranscriptConfig{
			Dir:      "transcripts",
			Pattern:  "*.txt",
			Format:   "text",
			Platform: "WhatsApp",
		},
		Oracle: OracleConfig{
			Provider:    "openai",
			Endpoint:    "",
			Model:       "gpt-4o-mini",
			MaxAttempts: 3,
			BaseDelay:   "500ms",
			Rubric: []string{
				"1 TDG For every 1 USD of liquidity injected",
				"100 TDG For every 1 hour of time spent",
				"1 TDG For every 1 USD of product sold",
				"Not a contribution",
			},
			NonContribution: "Not a contribution",
		},
		Reconcile: ReconcileConfig{MaxAttempts: 3, BatchSize: 500},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
	}
}
