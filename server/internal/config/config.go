package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	StorageDisk   = "disk"
	StorageMemory = "memory"
)

const mib = 1 << 20

type Config struct {
	Addr          string `yaml:"addr"`
	Storage       string `yaml:"storage"`
	Dir           string `yaml:"dir"`
	PublicBaseURL string `yaml:"public_base_url"`

	// Upload limits
	MaxFiles    int   `yaml:"max_files"`
	MaxFileSize int64 `yaml:"max_file_size"`

	SampleSize int `yaml:"sample_size"`

	// Remote fetch
	FetchTimeout         time.Duration `yaml:"fetch_timeout"`
	FetchMaxBytes        int64         `yaml:"fetch_max_bytes"`
	FetchHint            string        `yaml:"fetch_hint"`
	AllowPrivateNetworks bool          `yaml:"allow_private_networks"`
	FetchRateLimit       float64       `yaml:"fetch_rate_limit"`
	FetchBurst           int           `yaml:"fetch_burst"`

	CORSOrigin  string `yaml:"cors_origin"`
	LogLevel    string `yaml:"log_level"`
	TraceStdout bool   `yaml:"trace_stdout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:           ":5000",
		Storage:        StorageDisk,
		Dir:            "./uploads",
		PublicBaseURL:  "http://localhost:5000",
		MaxFiles:       10,
		MaxFileSize:    10 * mib,
		SampleSize:     3,
		FetchTimeout:   10 * time.Second,
		FetchMaxBytes:  20 * mib,
		FetchHint:      "dog",
		FetchRateLimit: 1,
		FetchBurst:     5,
		CORSOrigin:     "*",
		LogLevel:       "info",
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults restores defaults for keys explicitly set to their zero value.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.Storage == "" {
		c.Storage = d.Storage
	}
	if c.Dir == "" {
		c.Dir = d.Dir
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = d.PublicBaseURL
	}
	if c.MaxFiles <= 0 {
		c.MaxFiles = d.MaxFiles
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = d.MaxFileSize
	}
	if c.SampleSize <= 0 {
		c.SampleSize = d.SampleSize
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.FetchMaxBytes <= 0 {
		c.FetchMaxBytes = d.FetchMaxBytes
	}
	if c.FetchHint == "" {
		c.FetchHint = d.FetchHint
	}
	if c.FetchBurst <= 0 {
		c.FetchBurst = d.FetchBurst
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

func (c *Config) Validate() error {
	if c.Storage != StorageDisk && c.Storage != StorageMemory {
		return fmt.Errorf("invalid storage %q: must be %q or %q", c.Storage, StorageDisk, StorageMemory)
	}
	if c.Storage == StorageDisk && c.Dir == "" {
		return errors.New("dir is required for disk storage")
	}
	u, err := url.Parse(c.PublicBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("public_base_url must be an absolute url: %q", c.PublicBaseURL)
	}
	if c.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive: %d", c.MaxFiles)
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample_size must be positive: %d", c.SampleSize)
	}
	if c.FetchRateLimit < 0 {
		return fmt.Errorf("fetch_rate_limit must not be negative: %v", c.FetchRateLimit)
	}
	_, err = logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}

	return nil
}
