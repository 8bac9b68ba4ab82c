package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config is the hnfcheck configuration file
// ($XDG_CONFIG_HOME/hnfcheck/config.yaml). Pointer fields distinguish "not
// set" from zero values. Flags given on the command line always win.
type Config struct {
	Strict          *bool  `yaml:"strict"`
	VerifyChecksums *bool  `yaml:"verify_checksums"`
	Jobs            *int   `yaml:"jobs"`
	MaxBytes        *int64 `yaml:"max_bytes"`

	OutputFormat string `yaml:"output_format"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`

	// Server
	ServerAddress  string `yaml:"server_address"`
	MaxUploadBytes *int64 `yaml:"max_upload_bytes"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "hnfcheck", "config.yaml")
}

// LoadConfig reads path, or the default location when path is empty. A
// missing default file yields a zero Config; a missing explicit file or a
// malformed one is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyCheckConfig applies config defaults for the validator modes.
func applyCheckConfig(c *cli.Command, cfg Config) {
	if cfg.Strict != nil && !c.IsSet("strict") {
		strict = *cfg.Strict
	}
	if cfg.VerifyChecksums != nil && !c.IsSet("verify-checksums") {
		verifyChecksums = *cfg.VerifyChecksums
	}
}

func applyMaxBytesConfig(c *cli.Command, cfg Config) {
	if cfg.MaxBytes != nil && !c.IsSet("max-bytes") {
		maxBytes = *cfg.MaxBytes
	}
}

func applyValidateConfig(c *cli.Command, cfg Config, jobs *int, format *string) {
	applyCheckConfig(c, cfg)
	applyMaxBytesConfig(c, cfg)
	if cfg.Jobs != nil && !c.IsSet("jobs") {
		*jobs = *cfg.Jobs
	}
	applyFormatConfig(c, cfg, format)
}

// applyFormatConfig covers the --format flag shared by validate and inspect.
func applyFormatConfig(c *cli.Command, cfg Config, format *string) {
	if cfg.OutputFormat != "" && !c.IsSet("format") {
		*format = cfg.OutputFormat
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string, maxUpload *int64) {
	applyCheckConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.MaxUploadBytes != nil && !c.IsSet("max-upload-bytes") {
		*maxUpload = *cfg.MaxUploadBytes
	}
}
