package reports

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/fe-devtools/devflow/internal/commands/completion_helper"
	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/i18n"
	"github.com/fe-devtools/devflow/internal/logger"
)

type ReportService interface {
	Render(ctx context.Context, ticket string) (string, error)
	Parse(markdown string) ([]byte, error)
}

type ReportCommandFactory struct {
	service ReportService
}

func NewReportCommandFactory(service ReportService) *ReportCommandFactory {
	return &ReportCommandFactory{service: service}
}

func (f *ReportCommandFactory) CreateCommand(t *i18n.Translations, _ *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: t.GetMessage("report.usage", 0, nil),
		Commands: []*cli.Command{
			f.newRenderCommand(t),
			f.newParseCommand(t),
		},
	}
}

func (f *ReportCommandFactory) newRenderCommand(t *i18n.Translations) *cli.Command {
	return &cli.Command{
		Name:          "render",
		Usage:         t.GetMessage("report.render_usage", 0, nil),
		ShellComplete: completion_helper.DefaultFlagComplete,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ticket",
				Aliases:  []string{"t"},
				Usage:    t.GetMessage("report.ticket_flag_usage", 0, nil),
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx = logger.With(ctx, "command", "report render", "ticket", cmd.String("ticket"))
			markdown, err := f.service.Render(ctx, cmd.String("ticket"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.Root().Writer, markdown)
			return err
		},
	}
}

func (f *ReportCommandFactory) newParseCommand(t *i18n.Translations) *cli.Command {
	return &cli.Command{
		Name:          "parse",
		Usage:         t.GetMessage("report.parse_usage", 0, nil),
		ShellComplete: completion_helper.DefaultFlagComplete,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    t.GetMessage("report.file_flag_usage", 0, nil),
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			markdown, err := readInput(cmd.String("file"), cmd.Root().Reader)
			if err != nil {
				return fmt.Errorf("%s: %w", t.GetMessage("report.error_reading", 0, map[string]interface{}{"File": cmd.String("file")}), err)
			}
			out, err := f.service.Parse(markdown)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, string(out))
			return err
		},
	}
}

// readInput reads path, or stdin when path is "-".
func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
