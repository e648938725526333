// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the r2pipe command line configuration from TOML or
// YAML.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/luxfi/r2pipe"
)

// EnvConfig names the config file when no path is given.
const EnvConfig = "R2PIPE_CONFIG"

//go:embed sample_config.toml
var sampleConfig string

type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Engine configures how engines are started.
type Engine struct {
	Exepath        string   `toml:"exepath" yaml:"exepath"`
	Args           []string `toml:"args" yaml:"args"`
	Env            []string `toml:"env" yaml:"env"`
	LibrarySuffix  string   `toml:"library_suffix" yaml:"library_suffix"`
	TimeoutSeconds int      `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// PoolTarget is one pool worker: a file and extra engine arguments.
type PoolTarget struct {
	Target string   `toml:"target" yaml:"target"`
	Args   []string `toml:"args" yaml:"args"`
}

// Gateway configures "r2pipe serve".
type Gateway struct {
	HTTPAddr  string `toml:"http_addr" yaml:"http_addr"`
	GRPCAddr  string `toml:"grpc_addr" yaml:"grpc_addr"`
	Default   string `toml:"default" yaml:"default"`
	AllowOpen bool   `toml:"allow_open" yaml:"allow_open"`
	Metrics   bool   `toml:"metrics" yaml:"metrics"`
}

// Config is the whole configuration file.
type Config struct {
	Log     Log          `toml:"log" yaml:"log"`
	Engine  Engine       `toml:"engine" yaml:"engine"`
	Pool    []PoolTarget `toml:"pool" yaml:"pool"`
	Gateway Gateway      `toml:"gateway" yaml:"gateway"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Log: Log{Level: "info", Format: "console"},
		Engine: Engine{
			Exepath: r2pipe.DefaultExepath(),
		},
		Gateway: Gateway{
			HTTPAddr:  "127.0.0.1:9091",
			GRPCAddr:  "127.0.0.1:9092",
			AllowOpen: true,
			Metrics:   true,
		},
	}
}

// DefaultConfigPath returns ~/.config/r2pipe/config.toml.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(dir, "r2pipe", "config.toml"), nil
}

// Load reads path, or $R2PIPE_CONFIG, or the default path. A missing file
// yields the defaults. Environment overrides are applied before
// validation. It returns the resolved path and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := cfg.decodeFile(resolved); err != nil {
			return nil, "", false, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if !explicit {
		p, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = p
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if explicit {
			return "", false, fmt.Errorf("config %s: %w", path, err)
		}
		return path, false, nil
	case err != nil:
		return "", false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return "", false, fmt.Errorf("config %s is a directory", path)
	}
	return path, true, nil
}

func (c *Config) decodeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(file)
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		dec := toml.NewDecoder(file)
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

// applyEnv applies R2PIPE_* overrides.
func (c *Config) applyEnv() {
	set := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set("R2PIPE_LOG_LEVEL", &c.Log.Level)
	set("R2PIPE_LOG_FORMAT", &c.Log.Format)
	set("R2PIPE_EXEPATH", &c.Engine.Exepath)
	set("R2PIPE_LIBRARY_SUFFIX", &c.Engine.LibrarySuffix)
	set("R2PIPE_HTTP_ADDR", &c.Gateway.HTTPAddr)
	set("R2PIPE_GRPC_ADDR", &c.Gateway.GRPCAddr)
	set("R2PIPE_DEFAULT", &c.Gateway.Default)
}

func (c *Config) normalize() {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Engine.Exepath = strings.TrimSpace(c.Engine.Exepath)
	if c.Engine.Exepath == "" {
		c.Engine.Exepath = r2pipe.DefaultExepath()
	}
	for i := range c.Pool {
		c.Pool[i].Target = strings.TrimSpace(c.Pool[i].Target)
	}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unsupported value %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format: unsupported value %q", c.Log.Format)
	}
	if c.Engine.TimeoutSeconds < 0 {
		return errors.New("engine.timeout_seconds must be >= 0")
	}
	for i, p := range c.Pool {
		if p.Target == "" {
			return fmt.Errorf("pool[%d].target must be set", i)
		}
	}
	if c.Gateway.HTTPAddr == "" && c.Gateway.GRPCAddr == "" {
		return errors.New("gateway needs http_addr or grpc_addr")
	}
	return nil
}

// SpawnOptions returns the engine settings as r2pipe spawn options.
func (c *Config) SpawnOptions() *r2pipe.SpawnOptions {
	return &r2pipe.SpawnOptions{
		Exepath: c.Engine.Exepath,
		Args:    append([]string(nil), c.Engine.Args...),
		Env:     append([]string(nil), c.Engine.Env...),
	}
}

// PoolSpawn returns parallel name and option lists for r2pipe.SpawnMany.
// Pool arguments follow the engine-wide ones.
func (c *Config) PoolSpawn() ([]string, []*r2pipe.SpawnOptions) {
	names := make([]string, len(c.Pool))
	opts := make([]*r2pipe.SpawnOptions, len(c.Pool))
	for i, p := range c.Pool {
		so := c.SpawnOptions()
		so.Args = append(so.Args, p.Args...)
		names[i] = p.Target
		opts[i] = so
	}
	return names, opts
}

// Options returns the r2pipe options every transport should get.
func (c *Config) Options(log *zap.Logger) []r2pipe.Option {
	return []r2pipe.Option{
		r2pipe.WithLogger(log),
		r2pipe.WithSpawnOptions(c.SpawnOptions()),
		r2pipe.WithLibrarySuffix(c.Engine.LibrarySuffix),
	}
}

// CommandTimeout returns the per-command timeout, zero for none.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}

// CreateSample writes a commented sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create sample config: %w", err)
	}
	if _, err := f.WriteString(sampleConfig); err != nil {
		f.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return f.Close()
}
