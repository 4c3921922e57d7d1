package label_preview

import (
	"context"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/fe-devtools/devflow/internal/commands/completion_helper"
	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/i18n"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/services"
	"github.com/fe-devtools/devflow/internal/ui"
)

type LabelPreviewer interface {
	Preview(ctx context.Context, ticket, target string) (*services.LabelPreview, error)
}

type LabelPreviewerProvider func(ctx context.Context) (LabelPreviewer, error)

type LabelsCommandFactory struct {
	provider LabelPreviewerProvider
}

func NewLabelsCommandFactory(provider LabelPreviewerProvider) *LabelsCommandFactory {
	return &LabelsCommandFactory{provider: provider}
}

func (f *LabelsCommandFactory) CreateCommand(t *i18n.Translations, _ *config.Config) *cli.Command {
	return &cli.Command{
		Name:          "labels",
		Usage:         t.GetMessage("labels.usage", 0, nil),
		ShellComplete: completion_helper.DefaultFlagComplete,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Usage: t.GetMessage("labels.target_flag_usage", 0, nil),
			},
			&cli.StringFlag{
				Name:  "ticket",
				Usage: t.GetMessage("labels.ticket_flag_usage", 0, nil),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx = logger.With(ctx, "command", "labels")
			svc, err := f.provider(ctx)
			if err != nil {
				return err
			}

			preview, err := svc.Preview(ctx, cmd.String("ticket"), cmd.String("target"))
			if preview != nil {
				printPreview(cmd.Root().Writer, t, preview)
			}
			return err
		},
	}
}

func printPreview(w io.Writer, t *i18n.Translations, p *services.LabelPreview) {
	ui.ShowFilesTree(w, p.Files, t.GetMessage("labels.changed_files", len(p.Files), map[string]interface{}{
		"Count":  len(p.Files),
		"Target": p.Target,
	}))
	ui.PrintKeyValue(w, t.GetMessage("labels.ticket", 0, nil), p.Ticket)
	ui.PrintKeyValue(w, t.GetMessage("labels.target", 0, nil), p.Target)
	if p.Decision.FixVersion != "" {
		ui.PrintKeyValue(w, t.GetMessage("labels.fix_version", 0, nil), p.Decision.FixVersion)
	}
	if p.Decision.ReleaseBranch != "" {
		ui.PrintKeyValue(w, t.GetMessage("labels.release_branch", 0, nil), p.Decision.ReleaseBranch)
	}
	ui.PrintLabels(w, t.GetMessage("labels.labels", 0, nil), p.Decision.Labels)
	for _, warning := range p.Decision.Warnings {
		ui.PrintWarning(w, warning)
	}
}
