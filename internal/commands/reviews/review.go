package reviews

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/fe-devtools/devflow/internal/commands/completion_helper"
	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/i18n"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/review"
	"github.com/fe-devtools/devflow/internal/ui"
)

type ReviewService interface {
	Submit(ctx context.Context, iid int) (*review.Review, error)
	Sync(ctx context.Context, iid int) (*review.SyncResult, error)
}

type ReviewServiceProvider func(ctx context.Context) (ReviewService, error)

type ReviewCommandFactory struct {
	provider ReviewServiceProvider
}

func NewReviewCommandFactory(provider ReviewServiceProvider) *ReviewCommandFactory {
	return &ReviewCommandFactory{provider: provider}
}

func (f *ReviewCommandFactory) CreateCommand(t *i18n.Translations, _ *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: t.GetMessage("review.usage", 0, nil),
		Commands: []*cli.Command{
			{
				Name:          "submit",
				Usage:         t.GetMessage("review.submit_usage", 0, nil),
				ShellComplete: completion_helper.DefaultFlagComplete,
				Flags:         []cli.Flag{mrFlag(t)},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					svc, err := f.provider(ctx)
					if err != nil {
						return err
					}
					ctx = logger.With(ctx, "command", "review submit", "iid", cmd.Int("mr"))
					rv, err := svc.Submit(ctx, int(cmd.Int("mr")))
					if err != nil {
						return err
					}
					ui.PrintSuccess(cmd.Root().Writer, t.GetMessage("review.submitted", 0, map[string]interface{}{
						"ID":     rv.ID,
						"Status": rv.Status,
					}))
					return nil
				},
			},
			{
				Name:          "sync",
				Usage:         t.GetMessage("review.sync_usage", 0, nil),
				ShellComplete: completion_helper.DefaultFlagComplete,
				Flags:         []cli.Flag{mrFlag(t)},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					svc, err := f.provider(ctx)
					if err != nil {
						return err
					}
					ctx = logger.With(ctx, "command", "review sync", "iid", cmd.Int("mr"))
					result, err := svc.Sync(ctx, int(cmd.Int("mr")))
					if err != nil {
						return err
					}
					w := cmd.Root().Writer
					ui.PrintKeyValue(w, t.GetMessage("review.review_id", 0, nil), result.ReviewID)
					ui.PrintSuccess(w, t.GetMessage("review.synced", 0, map[string]interface{}{
						"Created":   result.Created,
						"Forwarded": result.Forwarded,
						"Skipped":   result.Skipped,
					}))
					return nil
				},
			},
		},
	}
}

func mrFlag(t *i18n.Translations) cli.Flag {
	return &cli.IntFlag{
		Name:  "mr",
		Usage: t.GetMessage("review.mr_flag_usage", 0, nil),
	}
}
