// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/r2pipe"
	"github.com/luxfi/r2pipe/internal/config"
	"github.com/luxfi/r2pipe/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     *zap.Logger
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

// ensureConfig loads the configuration and builds the logger once.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Log.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) log() *zap.Logger {
	if c.logger == nil {
		return logging.NewNop()
	}
	return c.logger
}

func (c *commandContext) sync() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// options returns the r2pipe options derived from the configuration.
func (c *commandContext) options() []r2pipe.Option {
	cfg, err := c.ensureConfig()
	if err != nil {
		return []r2pipe.Option{r2pipe.WithLogger(c.log())}
	}
	return cfg.Options(c.log())
}

// commandTimeout bounds one engine command by the configured timeout.
func (c *commandContext) commandTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	cfg, err := c.ensureConfig()
	if err != nil || cfg.CommandTimeout() == 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.CommandTimeout())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
