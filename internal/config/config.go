package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"DirectoryHarvester/internal/poll"
)

const (
	// DefaultURL is the member directory harvested when no URL is configured.
	DefaultURL = "https://myportal.cpaontario.ca/s/member-directory"

	configPathEnv    = "DIRECTORY_HARVESTER_CONFIG"
	urlEnv           = "DIRECTORY_HARVESTER_URL"
	outputDirEnv     = "DIRECTORY_HARVESTER_OUTPUT_DIR"
	maxPagesEnv      = "DIRECTORY_HARVESTER_MAX_PAGES"
	logLevelEnv      = "DIRECTORY_HARVESTER_LOG_LEVEL"
	remoteBrowserEnv = "DIRECTORY_HARVESTER_REMOTE_BROWSER"
	chromeBinEnv     = "DIRECTORY_HARVESTER_CHROME_BIN"

	journalFile = "harvest.db"
)

// Config holds every setting of a harvest run.
type Config struct {
	Harvest HarvestConfig `yaml:"harvest"`
	Browser BrowserConfig `yaml:"browser"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Journal JournalConfig `yaml:"journal"`
}

// HarvestConfig drives the pagination loop.
type HarvestConfig struct {
	URL             string        `yaml:"url"`
	MaxPages        int           `yaml:"maxPages"`
	CheckpointEvery int           `yaml:"checkpointEvery"`
	PageDelay       time.Duration `yaml:"pageDelay"`
	ExtractTimeout  time.Duration `yaml:"extractTimeout"`
	// OnRepeat is "warn" or "stop".
	OnRepeat string      `yaml:"onRepeat"`
	FastPoll poll.Policy `yaml:"fastPoll"`
	SlowPoll poll.Policy `yaml:"slowPoll"`
}

// BrowserConfig describes the Chrome session.
type BrowserConfig struct {
	Headless          *bool         `yaml:"headless"`
	RemoteURL         string        `yaml:"remoteUrl"`
	Bin               string        `yaml:"bin"`
	NoSandbox         bool          `yaml:"noSandbox"`
	UserAgent         string        `yaml:"userAgent"`
	NavigationTimeout time.Duration `yaml:"navigationTimeout"`
	ActionTimeout     time.Duration `yaml:"actionTimeout"`
	SettleDelay       time.Duration `yaml:"settleDelay"`
	Trace             bool          `yaml:"trace"`
}

// IsHeadless reports the effective headless flag; unset means headless.
func (b BrowserConfig) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// OutputConfig locates the CSV output.
type OutputConfig struct {
	Dir            string `yaml:"dir"`
	WriteEveryPage bool   `yaml:"writeEveryPage"`
}

// LoggingConfig configures the console and file log stream.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// JournalConfig locates the SQLite run journal.
type JournalConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// JournalPath returns the journal location, or "" when the journal is disabled.
func (c Config) JournalPath() string {
	if c.Journal.Disabled {
		return ""
	}
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.Output.Dir, journalFile)
}

// Load reads the YAML file at path (or the one named by the environment),
// merges it over the defaults and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the harvest cannot run with.
func (c Config) Validate() error {
	if c.Harvest.URL == "" {
		return fmt.Errorf("config: harvest url is empty")
	}
	if c.Harvest.MaxPages < 1 {
		return fmt.Errorf("config: max pages must be at least 1, got %d", c.Harvest.MaxPages)
	}
	if c.Harvest.CheckpointEvery < 0 {
		return fmt.Errorf("config: checkpoint frequency must not be negative, got %d", c.Harvest.CheckpointEvery)
	}
	switch c.Harvest.OnRepeat {
	case "warn", "stop":
	default:
		return fmt.Errorf("config: onRepeat must be warn or stop, got %q", c.Harvest.OnRepeat)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("config: output dir is empty")
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(urlEnv); v != "" {
		c.Harvest.URL = v
	}
	if v := os.Getenv(outputDirEnv); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv(maxPagesEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", maxPagesEnv, err)
		}
		c.Harvest.MaxPages = n
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(remoteBrowserEnv); v != "" {
		c.Browser.RemoteURL = v
	}
	if v := os.Getenv(chromeBinEnv); v != "" {
		c.Browser.Bin = v
	}
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Harvest.URL != "" {
		base.Harvest.URL = override.Harvest.URL
	}
	if override.Harvest.MaxPages != 0 {
		base.Harvest.MaxPages = override.Harvest.MaxPages
	}
	if override.Harvest.CheckpointEvery != 0 {
		base.Harvest.CheckpointEvery = override.Harvest.CheckpointEvery
	}
	if override.Harvest.PageDelay != 0 {
		base.Harvest.PageDelay = override.Harvest.PageDelay
	}
	if override.Harvest.ExtractTimeout != 0 {
		base.Harvest.ExtractTimeout = override.Harvest.ExtractTimeout
	}
	if override.Harvest.OnRepeat != "" {
		base.Harvest.OnRepeat = override.Harvest.OnRepeat
	}
	base.Harvest.FastPoll = mergePolicy(base.Harvest.FastPoll, override.Harvest.FastPoll)
	base.Harvest.SlowPoll = mergePolicy(base.Harvest.SlowPoll, override.Harvest.SlowPoll)

	if override.Browser.Headless != nil {
		base.Browser.Headless = override.Browser.Headless
	}
	if override.Browser.RemoteURL != "" {
		base.Browser.RemoteURL = override.Browser.RemoteURL
	}
	if override.Browser.Bin != "" {
		base.Browser.Bin = override.Browser.Bin
	}
	if override.Browser.NoSandbox {
		base.Browser.NoSandbox = true
	}
	if override.Browser.UserAgent != "" {
		base.Browser.UserAgent = override.Browser.UserAgent
	}
	if override.Browser.NavigationTimeout != 0 {
		base.Browser.NavigationTimeout = override.Browser.NavigationTimeout
	}
	if override.Browser.ActionTimeout != 0 {
		base.Browser.ActionTimeout = override.Browser.ActionTimeout
	}
	if override.Browser.SettleDelay != 0 {
		base.Browser.SettleDelay = override.Browser.SettleDelay
	}
	if override.Browser.Trace {
		base.Browser.Trace = true
	}

	if override.Output.Dir != "" {
		base.Output.Dir = override.Output.Dir
	}
	if override.Output.WriteEveryPage {
		base.Output.WriteEveryPage = true
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}

	if override.Journal.Path != "" {
		base.Journal.Path = override.Journal.Path
	}
	if override.Journal.Disabled {
		base.Journal.Disabled = true
	}

	return base
}

func mergePolicy(base, override poll.Policy) poll.Policy {
	if override.MaxAttempts != 0 {
		base.MaxAttempts = override.MaxAttempts
	}
	if override.Interval != 0 {
		base.Interval = override.Interval
	}
	if override.Multiplier != 0 {
		base.Multiplier = override.Multiplier
	}
	if override.MaxInterval != 0 {
		base.MaxInterval = override.MaxInterval
	}
	return base
}

// Default returns the built-in configuration.
func Default() Config {
	headless := true
	return Config{
		Harvest: HarvestConfig{
			URL:             DefaultURL,
			MaxPages:        80,
			CheckpointEvery: 10,
			PageDelay:       time.Second,
			ExtractTimeout:  60 * time.Second,
			OnRepeat:        "warn",
			FastPoll:        poll.Fixed(20, 250*time.Millisecond),
			SlowPoll:        poll.Escalating(5, 2*time.Second, 1.5),
		},
		Browser: BrowserConfig{
			Headless:          &headless,
			NavigationTimeout: 60 * time.Second,
			ActionTimeout:     10 * time.Second,
			SettleDelay:       5 * time.Second,
		},
		Output:  OutputConfig{Dir: "output"},
		Logging: LoggingConfig{Level: "info", File: "scraper.log"},
	}
}
