/*
PURPOSE:
  Defines the configuration structure and loading logic for Donut Runner.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Locate the DonutBuffer checkout and its program.
  - Bound every run with a timeout.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs to support Environment variables overrides (DONUT_...), and PORT
    as set by container platforms.
  - The checkout lives in different places on dev machines and in the
    container image; search a few known paths.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/service
  - Dependencies: gopkg.in/yaml.v3

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Returns error for malformed environment values; never ignores them.
  - Missing default config files fall back to defaults.

IMPLEMENTATION RULES:
  - Precedence: defaults < file < environment < flags.
  - Resolve derives paths; Validate checks bounds. Call both after flags.

USAGE:
  cfg, err := config.Load("")
  err = cfg.Finalize()

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct, DefaultConfig and
    applyEnv.

RELATED FILES:
  - internal/cli/root.go
  - internal/config/env.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the full configuration for Donut Runner.
type Config struct {
	ProgramPath string `yaml:"program_path"`
	WorkDir     string `yaml:"work_dir"`
	ReadmePath  string `yaml:"readme_path"`

	// BuildCommand is run through "sh -c" when the program is missing.
	// Empty disables building.
	BuildCommand string        `yaml:"build_command"`
	BuildTimeout time.Duration `yaml:"build_timeout"`
	BuildLock    string        `yaml:"build_lock"`

	RunTimeout     time.Duration `yaml:"run_timeout"`
	MaxRunTimeout  time.Duration `yaml:"max_run_timeout"`
	MaxOutputBytes int64         `yaml:"max_output_bytes"`

	ListenAddr        string        `yaml:"listen_addr"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxConcurrentRuns int           `yaml:"max_concurrent_runs"`
	APIKey            string        `yaml:"api_key"`
	CORSOrigins       []string      `yaml:"cors_origins"`
	// PublicURL is advertised as the server in /openapi.json.
	PublicURL string `yaml:"public_url"`

	// OutputDir receives runs.jsonl and runs.csv. Empty disables them.
	OutputDir string `yaml:"output_dir"`
	// HistoryDB is the SQLite run history. Empty disables it.
	HistoryDB string `yaml:"history_db"`

	LogFormat string `yaml:"log_format"`
	LogLevel  string `yaml:"log_level"`

	// Source is the file the config was loaded from, if any.
	Source string `yaml:"-"`
}

// SearchPaths are tried in order when WorkDir is empty.
var SearchPaths = []string{"./DonutBuffer", "../DonutBuffer", "/home/ubuntu/DonutBuffer"}

// DefaultFiles are tried in order when no config path is given.
var DefaultFiles = []string{"donut-runner.yaml", "runner.yaml"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BuildTimeout:      10 * time.Minute,
		RunTimeout:        30 * time.Second,
		MaxRunTimeout:     5 * time.Minute,
		MaxOutputBytes:    1 << 20,
		ListenAddr:        ":8000",
		ShutdownTimeout:   10 * time.Second,
		MaxConcurrentRuns: 2,
		CORSOrigins:       []string{"*"},
		LogFormat:         "text",
		LogLevel:          "info",
	}
}

// Load reads configuration from a file, then applies environment overrides.
// If path is empty, it searches DefaultFiles; if none exists the defaults
// are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		for _, name := range DefaultFiles {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				break
			}
		}
	}

	if path != "" && data != nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		cfg.Source = path
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	c.ProgramPath = envString("DONUT_PROGRAM_PATH", c.ProgramPath)
	c.WorkDir = envString("DONUT_WORK_DIR", c.WorkDir)
	c.ReadmePath = envString("DONUT_README_PATH", c.ReadmePath)
	c.BuildCommand = envString("DONUT_BUILD_COMMAND", c.BuildCommand)
	c.BuildLock = envString("DONUT_BUILD_LOCK", c.BuildLock)
	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		c.ListenAddr = ":" + port
	}
	c.ListenAddr = envString("DONUT_LISTEN_ADDR", c.ListenAddr)
	c.APIKey = envString("DONUT_API_KEY", c.APIKey)
	c.CORSOrigins = envList("DONUT_CORS_ORIGINS", c.CORSOrigins)
	c.PublicURL = envString("DONUT_PUBLIC_URL", c.PublicURL)
	c.OutputDir = envString("DONUT_OUTPUT_DIR", c.OutputDir)
	c.HistoryDB = envString("DONUT_HISTORY_DB", c.HistoryDB)
	c.LogFormat = envString("DONUT_LOG_FORMAT", c.LogFormat)
	c.LogLevel = envString("DONUT_LOG_LEVEL", c.LogLevel)

	if c.BuildTimeout, err = envDuration("DONUT_BUILD_TIMEOUT", c.BuildTimeout); err != nil {
		return err
	}
	if c.RunTimeout, err = envDuration("DONUT_RUN_TIMEOUT", c.RunTimeout); err != nil {
		return err
	}
	if c.MaxRunTimeout, err = envDuration("DONUT_MAX_RUN_TIMEOUT", c.MaxRunTimeout); err != nil {
		return err
	}
	if c.ShutdownTimeout, err = envDuration("DONUT_SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		return err
	}
	if c.MaxOutputBytes, err = envInt64("DONUT_MAX_OUTPUT_BYTES", c.MaxOutputBytes); err != nil {
		return err
	}
	if c.MaxConcurrentRuns, err = envInt("DONUT_MAX_CONCURRENT_RUNS", c.MaxConcurrentRuns); err != nil {
		return err
	}
	return nil
}

// Finalize resolves derived paths and validates the result.
func (c *Config) Finalize() error {
	c.Resolve()
	return c.Validate()
}

// Resolve discovers WorkDir when unset and derives ProgramPath and
// ReadmePath from it.
func (c *Config) Resolve() {
	if c.WorkDir == "" {
		c.WorkDir = DiscoverWorkDir(SearchPaths)
	}
	if c.WorkDir == "" {
		return
	}
	if abs, err := filepath.Abs(c.WorkDir); err == nil {
		c.WorkDir = abs
	}
	if c.ProgramPath == "" {
		c.ProgramPath = filepath.Join(c.WorkDir, "build", "DonutBufferApp")
	}
	if c.ReadmePath == "" {
		c.ReadmePath = filepath.Join(c.WorkDir, "README.md")
	}
}

// DiscoverWorkDir returns the first candidate that looks like a DonutBuffer
// checkout, or "".
func DiscoverWorkDir(candidates []string) string {
	for _, dir := range candidates {
		for _, marker := range []string{"README.md", "CMakeLists.txt"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
	}
	return ""
}

// Validate checks bounds that would otherwise surface as confusing runtime
// behavior.
func (c *Config) Validate() error {
	var errs []error
	if c.RunTimeout <= 0 {
		errs = append(errs, errors.New("run_timeout must be positive"))
	}
	if c.MaxRunTimeout < c.RunTimeout {
		errs = append(errs, fmt.Errorf("max_run_timeout %s is below run_timeout %s", c.MaxRunTimeout, c.RunTimeout))
	}
	if c.BuildTimeout <= 0 {
		errs = append(errs, errors.New("build_timeout must be positive"))
	}
	if c.MaxOutputBytes <= 0 {
		errs = append(errs, errors.New("max_output_bytes must be positive"))
	}
	if c.MaxConcurrentRuns < 1 {
		errs = append(errs, errors.New("max_concurrent_runs must be at least 1"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	return errors.Join(errs...)
}
