package main

import (
	"path/filepath"
	"strings"
	"sync"

	"tally/internal/config"
	"tally/internal/logging"
	"tally/internal/notifications"
	"tally/internal/store"
	"tally/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

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
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) withStore(fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// withEngine wires the full transition path: store, recipient resolver,
// webhook dispatcher, and the async fan-out loop. The loop is drained before
// the command returns so short-lived invocations still deliver.
func (c *commandContext) withEngine(fn func(*store.Store, *workflow.Engine) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	// Log to the file only; command output stays clean for table rendering.
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "tally.log")},
	})
	if err != nil {
		return err
	}
	return c.withStore(func(st *store.Store) error {
		resolver := notifications.NewResolver(st)
		dispatcher := notifications.NewDispatcher(cfg)
		async := notifications.NewAsyncDispatcher(resolver, dispatcher, logger, cfg.Notifications.QueueSize)
		defer async.Close()

		engine := workflow.NewEngine(st, async, logger)
		return fn(st, engine)
	})
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
