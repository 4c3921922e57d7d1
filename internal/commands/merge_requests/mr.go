package merge_requests

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/fe-devtools/devflow/internal/commands/completion_helper"
	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/i18n"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/services"
	"github.com/fe-devtools/devflow/internal/ui"
)

type MRService interface {
	Submit(ctx context.Context, opts services.MROptions) (*services.MRResult, error)
}

type MRServiceProvider func(ctx context.Context) (MRService, error)

type MRCommandFactory struct {
	provider MRServiceProvider
}

func NewMRCommandFactory(provider MRServiceProvider) *MRCommandFactory {
	return &MRCommandFactory{provider: provider}
}

func (f *MRCommandFactory) CreateCommand(t *i18n.Translations, _ *config.Config) *cli.Command {
	return &cli.Command{
		Name:          "mr",
		Usage:         t.GetMessage("mr.usage", 0, nil),
		ShellComplete: completion_helper.DefaultFlagComplete,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Usage: t.GetMessage("mr.target_flag_usage", 0, nil),
			},
			&cli.StringFlag{
				Name:  "reviewer",
				Usage: t.GetMessage("mr.reviewer_flag_usage", 0, nil),
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: t.GetMessage("mr.title_flag_usage", 0, nil),
			},
			&cli.BoolFlag{
				Name:  "no-draft",
				Usage: t.GetMessage("mr.no_draft_flag_usage", 0, nil),
			},
			&cli.StringSliceFlag{
				Name:  "labels",
				Usage: t.GetMessage("mr.labels_flag_usage", 0, nil),
			},
			&cli.BoolFlag{
				Name:  "no-review",
				Usage: t.GetMessage("mr.no_review_flag_usage", 0, nil),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			start := time.Now()
			ctx = logger.With(ctx, "command", "mr")

			svc, err := f.provider(ctx)
			if err != nil {
				return err
			}

			spin := ui.NewSmartSpinner(t.GetMessage("mr.submitting", 0, nil))
			spin.Start()
			result, err := svc.Submit(ctx, services.MROptions{
				Target:   cmd.String("target"),
				Reviewer: cmd.String("reviewer"),
				Title:    cmd.String("title"),
				Draft:    !cmd.Bool("no-draft"),
				Labels:   splitLabels(cmd.StringSlice("labels")),
				NoReview: cmd.Bool("no-review"),
				// git push streams to the terminal; the spinner would interleave with it.
				BeforePush: spin.Stop,
				AfterPush:  spin.Start,
			})
			spin.Stop()
			if err != nil {
				return err
			}

			printResult(cmd.Root().Writer, t, result)
			logger.Debug(ctx, "mr command finished", "duration_ms", time.Since(start).Milliseconds())
			return nil
		},
	}
}

func printResult(w io.Writer, t *i18n.Translations, result *services.MRResult) {
	mr := result.MergeRequest
	ui.PrintSectionBanner(w, t.GetMessage("mr.banner", 0, nil))
	ui.PrintKeyValue(w, t.GetMessage("mr.ticket", 0, nil), result.Ticket)
	ui.PrintKeyValue(w, t.GetMessage("mr.target", 0, nil), result.Target)
	if result.Decision.FixVersion != "" {
		ui.PrintKeyValue(w, t.GetMessage("mr.fix_version", 0, nil), result.Decision.FixVersion)
	}
	ui.PrintKeyValue(w, t.GetMessage("mr.title", 0, nil), mr.Title)
	if result.Rebased {
		ui.PrintKeyValue(w, t.GetMessage("mr.rebased", 0, nil), result.Target)
	}
	if result.ReviewID != "" {
		ui.PrintKeyValue(w, t.GetMessage("mr.review", 0, nil), result.ReviewID)
	}
	ui.PrintLabels(w, t.GetMessage("mr.labels", 0, nil), mr.Labels)

	for _, warning := range result.Warnings {
		ui.PrintWarning(w, warning)
	}

	msgID := "mr.updated"
	if result.Created {
		msgID = "mr.created"
	}
	ui.PrintSuccess(w, t.GetMessage(msgID, 0, map[string]interface{}{"IID": mr.IID}))
	_, _ = fmt.Fprintf(w, "   %s\n", mr.WebURL)
}

func splitLabels(values []string) []string {
	var out []string
	for _, v := range values {
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				out = append(out, l)
			}
		}
	}
	return out
}
