package lint

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/i18n"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/ui"
)

type Linter interface {
	Run(ctx context.Context) error
}

type LintCommandFactory struct {
	linter Linter
}

func NewLintCommandFactory(linter Linter) *LintCommandFactory {
	return &LintCommandFactory{linter: linter}
}

func (f *LintCommandFactory) CreateCommand(t *i18n.Translations, _ *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "lint",
		Usage: t.GetMessage("lint.usage", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			start := time.Now()
			ctx = logger.With(ctx, "command", "lint")

			if err := f.linter.Run(ctx); err != nil {
				ui.PrintError(cmd.Root().Writer, t.GetMessage("lint.failed", 0, nil))
				return err
			}
			ui.PrintSuccess(cmd.Root().Writer, t.GetMessage("lint.passed", 0, nil))
			logger.Debug(ctx, "lint finished", "duration_ms", time.Since(start).Milliseconds())
			return nil
		},
	}
}
