package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/ronten/internal/judge"
	"github.com/pelletier/go-toml/v2"
)

// Source kinds accepted in CONTENT_SOURCES.
const (
	SourceLocal  = "local"
	SourceNotion = "notion"
	SourceDemo   = "demo"
)

type Config struct {
	Port string

	// Content
	DataDir              string
	ContentSources       []string
	LoadConcurrency      int
	PDFFallbackPdftotext bool

	// Remote document service
	NotionToken       string
	NotionPageID      string
	NotionBaseURL     string
	NotionVersion     string
	NotionMaxRequests int
	NotionMaxDepth    int
	NotionTimeout     time.Duration
	NotionRetries     int

	// Study-time ledger
	LedgerDriver string
	LedgerDSN    string
	IdleCutoff   time.Duration

	// Sessions and judging
	SessionTTL  time.Duration
	ScoreMethod string

	// HTTP
	APIKey      string
	CORSOrigins []string

	LogLevel string
}

// fileConfig is the TOML shape of the optional config file. Unset keys keep
// their defaults.
type fileConfig struct {
	Port                 string   `toml:"port"`
	DataDir              string   `toml:"data_dir"`
	ContentSources       []string `toml:"content_sources"`
	LoadConcurrency      int      `toml:"load_concurrency"`
	PDFFallbackPdftotext *bool    `toml:"pdf_fallback_pdftotext"`

	Notion struct {
		Token       string `toml:"token"`
		PageID      string `toml:"page_id"`
		BaseURL     string `toml:"base_url"`
		Version     string `toml:"version"`
		MaxRequests int    `toml:"max_requests"`
		MaxDepth    int    `toml:"max_depth"`
		Timeout     string `toml:"timeout"`
		Retries     *int   `toml:"retries"`
	} `toml:"notion"`

	Ledger struct {
		Driver     string `toml:"driver"`
		DSN        string `toml:"dsn"`
		IdleCutoff string `toml:"idle_cutoff"`
	} `toml:"ledger"`

	SessionTTL  string   `toml:"session_ttl"`
	ScoreMethod string   `toml:"score_method"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	LogLevel    string   `toml:"log_level"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                 "8090",
		DataDir:              "data",
		ContentSources:       []string{SourceLocal},
		LoadConcurrency:      4,
		PDFFallbackPdftotext: true,

		NotionBaseURL:     "https://api.notion.com",
		NotionVersion:     "2022-06-28",
		NotionMaxRequests: 200,
		NotionMaxDepth:    10,
		NotionTimeout:     30 * time.Second,
		NotionRetries:     3,

		LedgerDriver: "sqlite",
		IdleCutoff:   30 * time.Minute,

		SessionTTL:  12 * time.Hour,
		ScoreMethod: string(judge.MethodBlocks),

		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// RONTEN_CONFIG, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("RONTEN_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg = Config{
		Port: envOr("PORT", cfg.Port),

		DataDir:              envOr("DATA_DIR", cfg.DataDir),
		ContentSources:       envList("CONTENT_SOURCES", cfg.ContentSources),
		LoadConcurrency:      envInt("LOAD_CONCURRENCY", cfg.LoadConcurrency),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext),

		NotionToken:       envOr("NOTION_TOKEN", cfg.NotionToken),
		NotionPageID:      envOr("NOTION_PAGE_ID", cfg.NotionPageID),
		NotionBaseURL:     envOr("NOTION_BASE_URL", cfg.NotionBaseURL),
		NotionVersion:     envOr("NOTION_VERSION", cfg.NotionVersion),
		NotionMaxRequests: envInt("NOTION_MAX_REQUESTS", cfg.NotionMaxRequests),
		NotionMaxDepth:    envInt("NOTION_MAX_DEPTH", cfg.NotionMaxDepth),
		NotionTimeout:     envDuration("NOTION_TIMEOUT", cfg.NotionTimeout),
		NotionRetries:     envInt("NOTION_RETRIES", cfg.NotionRetries),

		LedgerDriver: envOr("LEDGER_DRIVER", cfg.LedgerDriver),
		LedgerDSN:    envOr("LEDGER_DSN", cfg.LedgerDSN),
		IdleCutoff:   envDuration("IDLE_CUTOFF", cfg.IdleCutoff),

		SessionTTL:  envDuration("SESSION_TTL", cfg.SessionTTL),
		ScoreMethod: envOr("SCORE_METHOD", cfg.ScoreMethod),

		APIKey:      envOr("API_KEY", cfg.APIKey),
		CORSOrigins: envList("CORS_ORIGINS", cfg.CORSOrigins),

		LogLevel: envOr("LOG_LEVEL", cfg.LogLevel),
	}

	def := Defaults()
	if cfg.LoadConcurrency <= 0 {
		cfg.LoadConcurrency = def.LoadConcurrency
	}
	if cfg.NotionMaxRequests <= 0 {
		cfg.NotionMaxRequests = def.NotionMaxRequests
	}
	if cfg.NotionMaxDepth <= 0 {
		cfg.NotionMaxDepth = def.NotionMaxDepth
	}
	if cfg.NotionTimeout <= 0 {
		cfg.NotionTimeout = def.NotionTimeout
	}
	if cfg.NotionRetries < 0 {
		cfg.NotionRetries = 0
	}
	if cfg.IdleCutoff <= 0 {
		cfg.IdleCutoff = def.IdleCutoff
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := toml.Unmarshal(content, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.Port, f.Port)
	setString(&c.DataDir, f.DataDir)
	if len(f.ContentSources) > 0 {
		c.ContentSources = f.ContentSources
	}
	if f.LoadConcurrency > 0 {
		c.LoadConcurrency = f.LoadConcurrency
	}
	if f.PDFFallbackPdftotext != nil {
		c.PDFFallbackPdftotext = *f.PDFFallbackPdftotext
	}

	setString(&c.NotionToken, f.Notion.Token)
	setString(&c.NotionPageID, f.Notion.PageID)
	setString(&c.NotionBaseURL, f.Notion.BaseURL)
	setString(&c.NotionVersion, f.Notion.Version)
	if f.Notion.MaxRequests > 0 {
		c.NotionMaxRequests = f.Notion.MaxRequests
	}
	if f.Notion.MaxDepth > 0 {
		c.NotionMaxDepth = f.Notion.MaxDepth
	}
	if f.Notion.Retries != nil {
		c.NotionRetries = *f.Notion.Retries
	}

	setString(&c.LedgerDriver, f.Ledger.Driver)
	setString(&c.LedgerDSN, f.Ledger.DSN)
	setString(&c.ScoreMethod, f.ScoreMethod)
	setString(&c.APIKey, f.APIKey)
	setString(&c.LogLevel, f.LogLevel)
	if len(f.CORSOrigins) > 0 {
		c.CORSOrigins = f.CORSOrigins
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"notion.timeout", f.Notion.Timeout, &c.NotionTimeout},
		{"ledger.idle_cutoff", f.Ledger.IdleCutoff, &c.IdleCutoff},
		{"session_ttl", f.SessionTTL, &c.SessionTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse config file %s: %s: %w", path, d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func (c Config) Validate() error {
	if len(c.ContentSources) == 0 {
		return fmt.Errorf("CONTENT_SOURCES must name at least one source")
	}
	for _, s := range c.ContentSources {
		switch s {
		case SourceLocal, SourceDemo:
		case SourceNotion:
			if c.NotionToken == "" {
				return fmt.Errorf("NOTION_TOKEN is required for the notion source")
			}
			if c.NotionPageID == "" {
				return fmt.Errorf("NOTION_PAGE_ID is required for the notion source")
			}
		default:
			return fmt.Errorf("unknown content source %q", s)
		}
	}
	if _, err := judge.ParseMethod(c.ScoreMethod); err != nil {
		return err
	}
	switch c.LedgerDriver {
	case "sqlite":
	case "postgres":
		if c.LedgerDSN == "" {
			return fmt.Errorf("LEDGER_DSN is required for the postgres ledger")
		}
	default:
		return fmt.Errorf("unsupported LEDGER_DRIVER %q", c.LedgerDriver)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// HasSource reports whether kind is among the configured content sources.
func (c Config) HasSource(kind string) bool {
	for _, s := range c.ContentSources {
		if s == kind {
			return true
		}
	}
	return false
}

// LedgerTarget returns the ledger DSN, defaulting the SQLite file into DataDir.
func (c Config) LedgerTarget() string {
	if c.LedgerDSN == "" && c.LedgerDriver == "sqlite" {
		return filepath.Join(c.DataDir, "ronten.db")
	}
	return c.LedgerDSN
}

// SlogLevel parses LOG_LEVEL.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return l, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
