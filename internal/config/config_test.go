package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromFile_MergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("sub_batch_size: 5\nrun_budget: 3m\nlog_format: json\n"), 0644)

	c := Default()
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.SubBatchSize != 5 {
		t.Errorf("SubBatchSize = %d, want 5", c.SubBatchSize)
	}
	if c.RunBudget != 3*time.Minute {
		t.Errorf("RunBudget = %s, want 3m", c.RunBudget)
	}
	if c.LogFormat != "json" {
		t.Errorf("LogFormat = %q", c.LogFormat)
	}
	// Untouched fields keep their defaults.
	if c.ProcessedLabel != "labsync-processed" {
		t.Errorf("ProcessedLabel = %q", c.ProcessedLabel)
	}
}

func TestLoadFromFile_BadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("run_budget: soon\n"), 0644)

	c := Default()
	if err := c.LoadFromFile(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	c := Default()
	if err := c.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate_Defaults(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidate_LockShorterThanBudget(t *testing.T) {
	c := Default()
	c.LockTTL = c.RunBudget - time.Minute
	if err := c.Validate(); err == nil {
		t.Fatal("expected error when lock_ttl < run_budget")
	}
}

func TestValidate_BadLogFormat(t *testing.T) {
	c := Default()
	c.LogFormat = "xml"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestValidateForRun_RequiresCredentials(t *testing.T) {
	c := Default()
	if err := c.ValidateForRun(); err == nil {
		t.Fatal("expected error without credentials")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "creds.json")
	os.WriteFile(path, []byte("{}"), 0600)
	c.GmailCredentials = path
	if err := c.ValidateForRun(); err != nil {
		t.Fatalf("ValidateForRun: %v", err)
	}
}
