package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RepoBranch != "permit" {
		t.Errorf("Expected default branch to be 'permit', got '%s'", cfg.RepoBranch)
	}

	if cfg.RecordFile != "permit.json" {
		t.Errorf("Expected default record file to be 'permit.json', got '%s'", cfg.RecordFile)
	}

	if cfg.LedgerFile != "permit_history.json" {
		t.Errorf("Expected default ledger file to be 'permit_history.json', got '%s'", cfg.LedgerFile)
	}

	if cfg.DocumentWait != 30*time.Second {
		t.Errorf("Expected default document wait to be 30s, got %s", cfg.DocumentWait)
	}

	if cfg.ElementWait != 10*time.Second {
		t.Errorf("Expected default element wait to be 10s, got %s", cfg.ElementWait)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.DryRun || cfg.Headless || cfg.SkipPublish {
		t.Error("Expected workflow variant flags to default to false")
	}

	currentDir, _ := os.Getwd()
	if cfg.DownloadDir != currentDir {
		t.Errorf("Expected default download directory to be '%s', got '%s'", currentDir, cfg.DownloadDir)
	}
}

func validTestConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DownloadDir = filepath.Join(dir, "downloads")
	cfg.StateDir = filepath.Join(dir, "state")
	cfg.RepoPath = filepath.Join(dir, "repo")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "valid config - skip publish without repo",
			mutate:  func(c *Config) { c.SkipPublish = true; c.RepoPath = "" },
			wantErr: false,
		},
		{
			name:    "missing repo path",
			mutate:  func(c *Config) { c.RepoPath = "" },
			wantErr: true,
		},
		{
			name:    "empty branch",
			mutate:  func(c *Config) { c.RepoBranch = "" },
			wantErr: true,
		},
		{
			name:    "empty ledger filename",
			mutate:  func(c *Config) { c.LedgerFile = "" },
			wantErr: true,
		},
		{
			name:    "zero document wait",
			mutate:  func(c *Config) { c.DocumentWait = 0 },
			wantErr: true,
		},
		{
			name:    "negative max file size",
			mutate:  func(c *Config) { c.MaxFileSize = -1 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCreatesDirectories(t *testing.T) {
	cfg := validTestConfig(t)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	for _, dir := range []string{cfg.DownloadDir, cfg.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("Expected directory %s to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("Expected %s to be a directory", dir)
		}
	}
}

func TestToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TokenEnv = "PERMIT_TEST_TOKEN"

	t.Setenv("PERMIT_TEST_TOKEN", "secret-token")
	if got := cfg.Token(); got != "secret-token" {
		t.Errorf("Expected token from environment, got '%s'", got)
	}

	cfg.TokenEnv = ""
	if got := cfg.Token(); got != "" {
		t.Errorf("Expected empty token with no env var configured, got '%s'", got)
	}
}

func TestStringOmitsCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SMTPPass = "hunter2"

	if s := cfg.String(); s == "" || strings.Contains(s, "hunter2") {
		t.Errorf("Config.String() must not leak credentials: %s", s)
	}
}
