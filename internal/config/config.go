// Package config loads the optional rc file. A missing file means defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"gsh/internal/jobs"
)

// Name is the rc file looked up in the user's home directory.
const Name = ".gshrc.yaml"

type Config struct {
	// Prompt shown in interactive mode.
	Prompt string `yaml:"prompt" validate:"max=64"`
	// History is the path of the liner history file.
	History string `yaml:"history"`
	// MaxJobs is the background job table capacity.
	MaxJobs int `yaml:"max_jobs" validate:"gte=1,lte=4096"`
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		return name
	})
	return validate.Struct(c)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Prompt:  "gsh> ",
		MaxJobs: jobs.DefaultCapacity,
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		cfg.History = filepath.Join(home, ".gsh_history")
	}
	return cfg
}

// DefaultPath returns the rc file location in the user's home directory, or
// "" when no home directory is known.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, Name)
}

// Load reads and validates the rc file at path. Fields left unset keep their
// defaults. The caller decides what a missing file means.
func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}
