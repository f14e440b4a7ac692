package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultLogLevel     = "info"
	DefaultMaxFileSize  = 25 * 1024 * 1024 // 25MB; receipts are single-page PDFs
	DefaultDocumentWait = 30 * time.Second
	DefaultElementWait  = 10 * time.Second
	DefaultBranch       = "permit"
	DefaultRecordFile   = "permit.json"
	DefaultLedgerFile   = "permit_history.json"
	DefaultTokenEnv     = "GITHUB_TOKEN"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for a single permit acquisition run.
// Workflow variants (dry-run, headless, skip-publish) are flags here, not
// separate code paths.
type Config struct {
	// Acquisition
	DownloadDir    string        // where the browser drops the receipt PDF
	Headless       bool          // run the acquisition driver without a visible browser
	DryRun         bool          // complete forms but stop before payment submission
	NonInteractive bool          // never block on an operator, even with a terminal attached
	Refetch        bool          // prefer the direct-request strategy for an existing permit
	DriverCommand  string        // external browser-automation command (slow path)
	LookupURL      string        // direct permit lookup endpoint (fast path)
	DocumentWait   time.Duration // polling budget for the receipt to appear
	ElementWait    time.Duration // per-step driver wait budget

	// Input resolution
	ProfileDir string // directory holding info_cars.json etc.
	Plate      string // vehicle plate, selects from profiles without prompting
	CardName   string // payment card name, same

	// Publication
	SkipPublish bool
	RepoPath    string // local working copy of the display repository
	RepoBranch  string
	RecordFile  string // record filename inside the repo
	LedgerFile  string // ledger filename inside the repo
	TokenEnv    string // env var holding the push token

	// Notification
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string
	MailTo   string

	// Application
	StateDir    string // run logs and cold-storage archive
	Version     string
	LogLevel    string
	MaxFileSize int64
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		DownloadDir:  currentDir,
		ProfileDir:   currentDir,
		StateDir:     filepath.Join(currentDir, "state"),
		RepoBranch:   DefaultBranch,
		RecordFile:   DefaultRecordFile,
		LedgerFile:   DefaultLedgerFile,
		TokenEnv:     DefaultTokenEnv,
		DocumentWait: DefaultDocumentWait,
		ElementWait:  DefaultElementWait,
		SMTPPort:     587,
		Version:      "1.0.0",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	for _, dir := range []*string{&cfg.DownloadDir, &cfg.ProfileDir, &cfg.StateDir, &cfg.RepoPath} {
		if *dir == "" {
			continue
		}
		if expandedPath, err := filepath.Abs(*dir); err == nil {
			*dir = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("PERMIT")
	viper.AutomaticEnv()

	viper.SetDefault("downloaddir", cfg.DownloadDir)
	viper.SetDefault("profiledir", cfg.ProfileDir)
	viper.SetDefault("statedir", cfg.StateDir)
	viper.SetDefault("repopath", cfg.RepoPath)
	viper.SetDefault("branch", cfg.RepoBranch)
	viper.SetDefault("recordfile", cfg.RecordFile)
	viper.SetDefault("ledgerfile", cfg.LedgerFile)
	viper.SetDefault("tokenenv", cfg.TokenEnv)
	viper.SetDefault("documentwait", cfg.DocumentWait)
	viper.SetDefault("elementwait", cfg.ElementWait)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("smtphost", cfg.SMTPHost)
	viper.SetDefault("smtpport", cfg.SMTPPort)
	viper.SetDefault("smtpuser", cfg.SMTPUser)
	viper.SetDefault("smtppass", cfg.SMTPPass)
	viper.SetDefault("mailfrom", cfg.MailFrom)
	viper.SetDefault("mailto", cfg.MailTo)
	viper.SetDefault("drivercommand", cfg.DriverCommand)
	viper.SetDefault("lookupurl", cfg.LookupURL)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("downloaddir", cfg.DownloadDir, "Directory the receipt PDF is downloaded into")
	pflag.String("profiledir", cfg.ProfileDir, "Directory holding vehicle/card/address profile files")
	pflag.String("statedir", cfg.StateDir, "Directory for run logs and the receipt archive")
	pflag.String("repopath", cfg.RepoPath, "Local working copy of the display repository")
	pflag.String("branch", cfg.RepoBranch, "Target branch for published permits")
	pflag.String("recordfile", cfg.RecordFile, "Permit record filename inside the repository")
	pflag.String("ledgerfile", cfg.LedgerFile, "Permit history filename inside the repository")
	pflag.String("tokenenv", cfg.TokenEnv, "Environment variable holding the push token")
	pflag.Duration("documentwait", cfg.DocumentWait, "How long to poll for the receipt document")
	pflag.Duration("elementwait", cfg.ElementWait, "Per-step driver wait budget")
	pflag.String("plate", cfg.Plate, "Vehicle plate to acquire a permit for (skips the prompt)")
	pflag.String("card", cfg.CardName, "Payment card name to use (skips the prompt)")
	pflag.String("drivercommand", cfg.DriverCommand, "External browser-automation driver command")
	pflag.String("lookupurl", cfg.LookupURL, "Direct permit lookup endpoint for the fast path")
	pflag.Bool("headless", false, "Run the acquisition driver headless")
	pflag.Bool("dry-run", false, "Fill forms but stop before submitting payment")
	pflag.Bool("skip-publish", false, "Parse and archive the receipt without publishing")
	pflag.Bool("non-interactive", false, "Never block on operator input")
	pflag.Bool("refetch", false, "Re-fetch the receipt for an already-acquired permit")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum receipt PDF size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"downloaddir", "profiledir", "statedir", "repopath", "branch",
		"recordfile", "ledgerfile", "tokenenv", "documentwait", "elementwait",
		"plate", "card", "drivercommand", "lookupurl",
		"headless", "dry-run", "skip-publish", "non-interactive", "refetch",
		"loglevel", "maxfilesize",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.DownloadDir = viper.GetString("downloaddir")
	cfg.ProfileDir = viper.GetString("profiledir")
	cfg.StateDir = viper.GetString("statedir")
	cfg.RepoPath = viper.GetString("repopath")
	cfg.RepoBranch = viper.GetString("branch")
	cfg.RecordFile = viper.GetString("recordfile")
	cfg.LedgerFile = viper.GetString("ledgerfile")
	cfg.TokenEnv = viper.GetString("tokenenv")
	cfg.DocumentWait = viper.GetDuration("documentwait")
	cfg.ElementWait = viper.GetDuration("elementwait")
	cfg.Plate = viper.GetString("plate")
	cfg.CardName = viper.GetString("card")
	cfg.DriverCommand = viper.GetString("drivercommand")
	cfg.LookupURL = viper.GetString("lookupurl")
	cfg.Headless = viper.GetBool("headless")
	cfg.DryRun = viper.GetBool("dry-run")
	cfg.SkipPublish = viper.GetBool("skip-publish")
	cfg.NonInteractive = viper.GetBool("non-interactive")
	cfg.Refetch = viper.GetBool("refetch")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.SMTPHost = viper.GetString("smtphost")
	cfg.SMTPPort = viper.GetInt("smtpport")
	cfg.SMTPUser = viper.GetString("smtpuser")
	cfg.SMTPPass = viper.GetString("smtppass")
	cfg.MailFrom = viper.GetString("mailfrom")
	cfg.MailTo = viper.GetString("mailto")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DownloadDir == "" {
		return errors.New("download directory cannot be empty")
	}

	for _, dir := range []string{c.DownloadDir, c.StateDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access directory %s: %w", dir, err)
		}
	}

	if !c.SkipPublish {
		if c.RepoPath == "" {
			return errors.New("repository path is required unless --skip-publish is set")
		}
		if c.RepoBranch == "" {
			return errors.New("target branch cannot be empty")
		}
		if c.RecordFile == "" || c.LedgerFile == "" {
			return errors.New("record and ledger filenames cannot be empty")
		}
	}

	if c.DocumentWait <= 0 {
		return errors.New("document wait budget must be positive")
	}
	if c.ElementWait <= 0 {
		return errors.New("element wait budget must be positive")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Token returns the push token from the configured environment variable.
func (c *Config) Token() string {
	if c.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.TokenEnv)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// MailConfigured reports whether the SMTP notifier can be built.
func (c *Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.MailFrom != "" && c.MailTo != ""
}

// String returns a string representation of the configuration.
// Credentials are never included.
func (c *Config) String() string {
	return fmt.Sprintf("Config{DownloadDir: %s, RepoPath: %s, Branch: %s, DryRun: %t, Headless: %t, SkipPublish: %t, LogLevel: %s}",
		c.DownloadDir, c.RepoPath, c.RepoBranch, c.DryRun, c.Headless, c.SkipPublish, c.LogLevel)
}
