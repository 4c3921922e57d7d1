package start

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/fe-devtools/devflow/internal/commands/completion_helper"
	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/i18n"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
	"github.com/fe-devtools/devflow/internal/ui"
)

type TaskService interface {
	Start(ctx context.Context, ticket, base string) (*models.StartTaskInfo, error)
}

// TaskServiceProvider builds the task service when the command runs.
type TaskServiceProvider func(ctx context.Context) (TaskService, error)

type StartCommandFactory struct {
	provider TaskServiceProvider
}

func NewStartCommandFactory(provider TaskServiceProvider) *StartCommandFactory {
	return &StartCommandFactory{provider: provider}
}

func (f *StartCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:          "start",
		Usage:         t.GetMessage("start.usage", 0, nil),
		ShellComplete: completion_helper.DefaultFlagComplete,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ticket",
				Aliases:  []string{"t"},
				Usage:    t.GetMessage("start.ticket_flag_usage", 0, nil),
				Required: true,
			},
			&cli.StringFlag{
				Name:    "base",
				Aliases: []string{"b"},
				Usage:   t.GetMessage("start.base_flag_usage", 0, nil),
				Value:   cfg.GitLab.DefaultTarget,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ticket := cmd.String("ticket")
			base := cmd.String("base")
			ctx = logger.With(ctx, "command", "start", "ticket", ticket)

			svc, err := f.provider(ctx)
			if err != nil {
				return err
			}

			spin := ui.NewSmartSpinner(t.GetMessage("start.creating", 0, map[string]interface{}{
				"Ticket": ticket,
				"Base":   base,
			}))
			spin.Start()
			info, err := svc.Start(ctx, ticket, base)
			spin.Stop()
			if err != nil {
				logger.Error(ctx, "start failed", err)
				return err
			}

			w := cmd.Root().Writer
			ui.PrintSuccess(w, t.GetMessage("start.created", 0, map[string]interface{}{
				"Branch": info.Branch,
				"Base":   info.BaseBranch,
			}))
			_, _ = fmt.Fprintf(w, "   %s [%s] %s\n", info.Ticket, info.IssueType, info.Summary)
			return nil
		},
	}
}
