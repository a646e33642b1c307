// Package config centralises configuration parsing for the stats loader.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// APIConfig holds the settings for the aggregate stats endpoint.
type APIConfig struct {
	// URL is a positional template; {0}, {1} and {2} expand to the
	// membership type, destiny ID and character ID respectively.
	URL     string `json:"url"`
	XAPIKey string `json:"xApiKey"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// SQLConfig carries the statements the pipeline executes. The statements
// belong to the database deployment, not to this job.
type SQLConfig struct {
	CharacterSelect      string `json:"characterSelect"`
	TruncateActivity     string `json:"truncateActivity"`
	AnalyzeActivityTable string `json:"analyzeActivityTable"`
	RefreshActivity      string `json:"refreshActivity"`
	AnalyzeActivityView  string `json:"analyzeActivityView"`
	StatInsert           string `json:"statInsert"`
}

// Config captures runtime configuration for a loader run.
type Config struct {
	API      APIConfig      `json:"API"`
	Database DatabaseConfig `json:"Database"`
	SQL      SQLConfig      `json:"SQL"`

	// Tunables below are not part of the config file; they come from the
	// environment, with defaults suitable for local runs.
	FetchConcurrency int           `json:"-"`
	LoadChunkSize    int           `json:"-"`
	RequestTimeout   time.Duration `json:"-"`
	MetricsAddress   string        `json:"-"`
	KafkaBrokers     []string      `json:"-"`
	RunSummaryTopic  string        `json:"-"`
}

// Load reads the JSON config file at path and applies environment overrides.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	cfg.FetchConcurrency = getIntEnv("FETCH_CONCURRENCY", 25)
	cfg.LoadChunkSize = getIntEnv("LOAD_CHUNK_SIZE", 10000)
	cfg.RequestTimeout = getDurationEnv("REQUEST_TIMEOUT", 30*time.Second)
	cfg.MetricsAddress = getEnv("METRICS_ADDRESS", "")
	cfg.RunSummaryTopic = getEnv("RUN_SUMMARY_TOPIC", "clanstats_runs")
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.API.URL == "":
		return fmt.Errorf("config: API.url is required")
	case c.API.XAPIKey == "":
		return fmt.Errorf("config: API.xApiKey is required")
	case c.Database.Host == "":
		return fmt.Errorf("config: Database.host is required")
	case c.Database.Database == "":
		return fmt.Errorf("config: Database.database is required")
	case c.SQL.CharacterSelect == "":
		return fmt.Errorf("config: SQL.characterSelect is required")
	case c.SQL.TruncateActivity == "":
		return fmt.Errorf("config: SQL.truncateActivity is required")
	}
	return nil
}

// PostgresURL assembles a pgx connection string from the Database group.
func (c Config) PostgresURL() string {
	port := c.Database.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Host:   fmt.Sprintf("%s:%d", c.Database.Host, port),
		Path:   c.Database.Database,
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
