package commits

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/fe-devtools/devflow/internal/commands/completion_helper"
	"github.com/fe-devtools/devflow/internal/commit"
	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/i18n"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/services"
	"github.com/fe-devtools/devflow/internal/ui"
)

type CommitService interface {
	Commit(ctx context.Context, opts services.CommitOptions) (*services.CommitResult, error)
}

type CommitCommandFactory struct {
	service CommitService
}

func NewCommitCommandFactory(service CommitService) *CommitCommandFactory {
	return &CommitCommandFactory{service: service}
}

func (f *CommitCommandFactory) CreateCommand(t *i18n.Translations, _ *config.Config) *cli.Command {
	return &cli.Command{
		Name:          "commit",
		Usage:         t.GetMessage("commit.usage", 0, nil),
		ShellComplete: completion_helper.DefaultFlagComplete,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "type",
				Usage:    t.GetMessage("commit.type_flag_usage", 0, map[string]interface{}{"Types": strings.Join(commit.Types, ", ")}),
				Required: true,
			},
			&cli.StringFlag{
				Name:     "message",
				Aliases:  []string{"m"},
				Usage:    t.GetMessage("commit.message_flag_usage", 0, nil),
				Required: true,
			},
			&cli.StringFlag{
				Name:  "ticket",
				Usage: t.GetMessage("commit.ticket_flag_usage", 0, nil),
			},
			&cli.BoolFlag{
				Name:  "skip-lint",
				Usage: t.GetMessage("commit.skip_lint_flag_usage", 0, nil),
			},
			&cli.BoolFlag{
				Name:  "auto-push",
				Usage: t.GetMessage("commit.auto_push_flag_usage", 0, nil),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx = logger.With(ctx, "command", "commit")
			result, err := f.service.Commit(ctx, services.CommitOptions{
				Type:     cmd.String("type"),
				Ticket:   cmd.String("ticket"),
				Message:  cmd.String("message"),
				SkipLint: cmd.Bool("skip-lint"),
				AutoPush: cmd.Bool("auto-push"),
			})
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			ui.PrintSuccess(w, t.GetMessage("commit.created", 0, map[string]interface{}{
				"Message": result.Message,
				"Branch":  result.Branch,
			}))
			if result.Pushed {
				ui.PrintSuccess(w, t.GetMessage("commit.pushed", 0, map[string]interface{}{"Branch": result.Branch}))
			}
			return nil
		},
	}
}
