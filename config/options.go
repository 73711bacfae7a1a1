// Package config loads and applies process-wide colframe settings: the default
// sharing Mode and the global logger.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-sif/colframe"
	"github.com/go-sif/colframe/logging"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// ModeCopyOnWrite names colframe.ModeCopyOnWrite in configuration
	ModeCopyOnWrite = "copy_on_write"
	// ModeLegacy names colframe.ModeLegacy in configuration
	ModeLegacy = "legacy"
)

// Environment variables consulted by FromEnv
const (
	EnvCopyOnWrite = "COLFRAME_COPY_ON_WRITE"
	EnvLogLevel    = "COLFRAME_LOG_LEVEL"
	EnvLogEncoding = "COLFRAME_LOG_ENCODING"
)

// Options are the process-wide settings of colframe
type Options struct {
	Mode           string `yaml:"mode"`            // copy_on_write or legacy
	LogLevel       string `yaml:"log_level"`       // trace, debug, info, warn, error or fatal
	LogEncoding    string `yaml:"log_encoding"`    // json or console
	LogDevelopment bool   `yaml:"log_development"` // colored levels and stack traces on errors
}

// CreateOptionsWithDefaults fills in any unset field of opts with its default.
// A nil opts yields the defaults.
func CreateOptionsWithDefaults(opts *Options) *Options {
	if opts == nil {
		opts = &Options{}
	} else {
		opts = CloneOptions(opts)
	}
	defaults := logging.DefaultConfig()
	if len(opts.Mode) == 0 {
		opts.Mode = ModeCopyOnWrite
	}
	if len(opts.LogLevel) == 0 {
		opts.LogLevel = defaults.Level
	}
	if len(opts.LogEncoding) == 0 {
		opts.LogEncoding = defaults.Encoding
	}
	return opts
}

// CloneOptions makes a copy of an Options
func CloneOptions(opts *Options) *Options {
	return &Options{
		Mode:           opts.Mode,
		LogLevel:       opts.LogLevel,
		LogEncoding:    opts.LogEncoding,
		LogDevelopment: opts.LogDevelopment,
	}
}

// LoadOptions reads Options from a YAML file, replacing ${VAR} references with
// the values of environment variables. Unset fields take their defaults.
func LoadOptions(filePath string) (*Options, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	content := os.Expand(string(data), os.Getenv)
	opts := &Options{}
	if err := yaml.Unmarshal([]byte(content), opts); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	opts = CreateOptionsWithDefaults(opts)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// FromEnv returns a copy of opts overridden by any COLFRAME_* environment variables
func FromEnv(opts *Options) (*Options, error) {
	opts = CreateOptionsWithDefaults(opts)
	if v, ok := os.LookupEnv(EnvCopyOnWrite); ok {
		cow, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvCopyOnWrite, err)
		}
		opts.Mode = ModeLegacy
		if cow {
			opts.Mode = ModeCopyOnWrite
		}
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && len(v) > 0 {
		opts.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvLogEncoding); ok && len(v) > 0 {
		opts.LogEncoding = v
	}
	return opts, opts.Validate()
}

// ParseMode translates a configured mode name to a colframe.Mode
func ParseMode(name string) (colframe.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ModeCopyOnWrite, "cow", "":
		return colframe.ModeCopyOnWrite, nil
	case ModeLegacy:
		return colframe.ModeLegacy, nil
	}
	return colframe.ModeDefault, fmt.Errorf("unknown mode %q", name)
}

// Validate returns an error if any field of these Options holds an unknown value
func (o *Options) Validate() error {
	if _, err := ParseMode(o.Mode); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(o.LogLevel); err != nil {
		return err
	}
	switch o.LogEncoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown log encoding %q", o.LogEncoding)
	}
	return nil
}

// LoggingConfig returns the logging.Config described by these Options
func (o *Options) LoggingConfig() logging.Config {
	return logging.Config{
		Level:       o.LogLevel,
		Development: o.LogDevelopment,
		Encoding:    o.LogEncoding,
	}
}

// Apply sets the process-wide default Mode and reinitializes the global logger
func (o *Options) Apply() error {
	if err := o.Validate(); err != nil {
		return err
	}
	mode, _ := ParseMode(o.Mode)
	level, _ := logging.ParseLevel(o.LogLevel)
	if err := logging.Init(o.LoggingConfig()); err != nil {
		return err
	}
	previous := colframe.SetDefaultMode(mode)
	logging.Named("config").Info("applied configuration",
		zap.Stringer("mode", mode),
		zap.Stringer("previousMode", previous),
		zap.String("logLevel", logging.LogLevelToString(level)))
	return nil
}
