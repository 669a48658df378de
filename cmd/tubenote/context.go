package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tubenote/internal/config"
	"tubenote/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureConfig loads and validates the configuration once.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	return c.loadConfig(nil)
}

// loadConfig parses the configuration, applies adjust before validation, and
// creates the working directories. The first call wins; later adjust
// functions are ignored.
func (c *commandContext) loadConfig(adjust func(*config.Config)) (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Parse(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if adjust != nil {
			adjust(cfg)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the application logger from the loaded configuration.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// skipConfigLoadAnnotation marks commands that load (or ignore) the config
// themselves instead of in the root pre-run hook.
const skipConfigLoadAnnotation = "skipConfigLoad"

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigLoadAnnotation] == "true" {
			return true
		}
	}
	return false
}
