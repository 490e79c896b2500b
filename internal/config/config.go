package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for a labsync run.
type Config struct {
	StorePath        string
	GmailCredentials string
	GmailQuery       string
	ProcessedLabel   string
	MaxThreadsPerRun int
	SubBatchSize     int
	SubBatchPause    time.Duration
	RunBudget        time.Duration
	LockTTL          time.Duration
	AnthropicModel   string
	LogFormat        string // "text" or "json"
	OTLPEndpoint     string
	ExportWebDir     string
}

// yamlConfig is the on-disk YAML structure. Durations are strings in
// time.ParseDuration syntax ("90s", "8m").
type yamlConfig struct {
	StorePath        string `yaml:"store_path"`
	GmailCredentials string `yaml:"gmail_credentials"`
	GmailQuery       string `yaml:"gmail_query"`
	ProcessedLabel   string `yaml:"processed_label"`
	MaxThreadsPerRun int    `yaml:"max_threads_per_run"`
	SubBatchSize     int    `yaml:"sub_batch_size"`
	SubBatchPause    string `yaml:"sub_batch_pause"`
	RunBudget        string `yaml:"run_budget"`
	LockTTL          string `yaml:"lock_ttl"`
	AnthropicModel   string `yaml:"anthropic_model"`
	LogFormat        string `yaml:"log_format"`
	OTLPEndpoint     string `yaml:"otlp_endpoint"`
	ExportWebDir     string `yaml:"export_web_dir"`
}

// Default returns the baseline configuration a config file or flags
// override.
func Default() Config {
	return Config{
		StorePath:        "labsync.db",
		GmailQuery:       "has:attachment newer_than:7d",
		ProcessedLabel:   "labsync-processed",
		MaxThreadsPerRun: 20,
		SubBatchSize:     3,
		SubBatchPause:    2 * time.Second,
		RunBudget:        8 * time.Minute,
		LockTTL:          10 * time.Minute,
		AnthropicModel:   "claude-sonnet-4-5",
		LogFormat:        "text",
	}
}

// LoadFromFile reads a YAML config file and merges its non-zero values
// into Config.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return c.merge(yc)
}

func (c *Config) merge(yc yamlConfig) error {
	if yc.StorePath != "" {
		c.StorePath = yc.StorePath
	}
	if yc.GmailCredentials != "" {
		c.GmailCredentials = yc.GmailCredentials
	}
	if yc.GmailQuery != "" {
		c.GmailQuery = yc.GmailQuery
	}
	if yc.ProcessedLabel != "" {
		c.ProcessedLabel = yc.ProcessedLabel
	}
	if yc.MaxThreadsPerRun != 0 {
		c.MaxThreadsPerRun = yc.MaxThreadsPerRun
	}
	if yc.SubBatchSize != 0 {
		c.SubBatchSize = yc.SubBatchSize
	}
	if err := mergeDuration(&c.SubBatchPause, yc.SubBatchPause, "sub_batch_pause"); err != nil {
		return err
	}
	if err := mergeDuration(&c.RunBudget, yc.RunBudget, "run_budget"); err != nil {
		return err
	}
	if err := mergeDuration(&c.LockTTL, yc.LockTTL, "lock_ttl"); err != nil {
		return err
	}
	if yc.AnthropicModel != "" {
		c.AnthropicModel = yc.AnthropicModel
	}
	if yc.LogFormat != "" {
		c.LogFormat = yc.LogFormat
	}
	if yc.OTLPEndpoint != "" {
		c.OTLPEndpoint = yc.OTLPEndpoint
	}
	if yc.ExportWebDir != "" {
		c.ExportWebDir = yc.ExportWebDir
	}
	return nil
}

func mergeDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", field, err)
	}
	*dst = d
	return nil
}

// Validate checks required fields and bounds.
func (c *Config) Validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("store_path is required")
	}
	if c.MaxThreadsPerRun <= 0 {
		return fmt.Errorf("max_threads_per_run must be positive, got %d", c.MaxThreadsPerRun)
	}
	if c.SubBatchSize <= 0 {
		return fmt.Errorf("sub_batch_size must be positive, got %d", c.SubBatchSize)
	}
	if c.RunBudget <= 0 {
		return fmt.Errorf("run_budget must be positive, got %s", c.RunBudget)
	}
	if c.LockTTL < c.RunBudget {
		return fmt.Errorf("lock_ttl (%s) must not be shorter than run_budget (%s)", c.LockTTL, c.RunBudget)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	return nil
}

// ValidateForRun additionally checks the fields only the ingestion run
// needs.
func (c *Config) ValidateForRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.GmailCredentials == "" {
		return fmt.Errorf("--credentials or gmail_credentials is required")
	}
	if _, err := os.Stat(c.GmailCredentials); err != nil {
		return fmt.Errorf("credentials file not accessible: %w", err)
	}
	return nil
}
