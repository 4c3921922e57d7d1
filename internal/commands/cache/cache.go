package cache

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/i18n"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/ui"
)

type Cleaner interface {
	Clean() error
	CleanExpired() (int, error)
}

type CleanerProvider func() (Cleaner, error)

type CacheCommand struct {
	provider CleanerProvider
}

func NewCacheCommand(provider CleanerProvider) *CacheCommand {
	return &CacheCommand{provider: provider}
}

func (c *CacheCommand) CreateCommand(t *i18n.Translations, _ *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: t.GetMessage("cache.usage", 0, nil),
		Commands: []*cli.Command{
			{
				Name:  "clean",
				Usage: t.GetMessage("cache.clean_usage", 0, nil),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "expired",
						Usage: t.GetMessage("cache.expired_flag_usage", 0, nil),
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cacheService, err := c.provider()
					if err != nil {
						return err
					}

					w := cmd.Root().Writer
					if cmd.Bool("expired") {
						removed, err := cacheService.CleanExpired()
						if err != nil {
							return err
						}
						logger.Debug(ctx, "expired cache entries removed", "count", removed)
						ui.PrintSuccess(w, t.GetMessage("cache.expired_cleaned", removed, map[string]interface{}{"Count": removed}))
						return nil
					}

					if err := cacheService.Clean(); err != nil {
						return err
					}
					ui.PrintSuccess(w, t.GetMessage("cache.cleaned", 0, nil))
					return nil
				},
			},
		},
	}
}
