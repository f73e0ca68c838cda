package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vrsandeep/podcatch/internal/config"
	"github.com/vrsandeep/podcatch/internal/core"
	"github.com/vrsandeep/podcatch/internal/models"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	appOnce sync.Once
	app     *core.App
	appErr  error
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
		c.config, c.configErr = config.LoadFile(path)
	})
	return c.config, c.configErr
}

// ensureApp opens the database lazily; commands that only read feeds never
// touch it.
func (c *commandContext) ensureApp() (*core.App, error) {
	c.appOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.appErr = err
			return
		}
		c.app, c.appErr = core.NewWithConfig(cfg)
	})
	return c.app, c.appErr
}

func (c *commandContext) close() {
	if c.app != nil {
		c.app.Close()
	}
}

func (c *commandContext) lookupUser(ctx context.Context, app *core.App, username string) (*models.User, error) {
	user, err := app.Store().GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return user, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
