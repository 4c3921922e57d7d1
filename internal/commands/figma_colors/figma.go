package figma_colors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/fe-devtools/devflow/internal/commands/completion_helper"
	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/figma"
	"github.com/fe-devtools/devflow/internal/i18n"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/models"
)

const (
	formatJSON = "json"
	formatCSS  = "css"
)

type ColorSource interface {
	Colors(ctx context.Context, fileID string, nodeIDs []string) ([]models.ColorToken, error)
}

type ColorSourceProvider func(ctx context.Context) (ColorSource, error)

type FigmaCommandFactory struct {
	provider ColorSourceProvider
}

func NewFigmaCommandFactory(provider ColorSourceProvider) *FigmaCommandFactory {
	return &FigmaCommandFactory{provider: provider}
}

func (f *FigmaCommandFactory) CreateCommand(t *i18n.Translations, _ *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "figma",
		Usage: t.GetMessage("figma.usage", 0, nil),
		Commands: []*cli.Command{
			{
				Name:          "colors",
				Usage:         t.GetMessage("figma.colors_usage", 0, nil),
				ShellComplete: completion_helper.DefaultFlagComplete,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    t.GetMessage("figma.file_flag_usage", 0, nil),
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "node",
						Usage:    t.GetMessage("figma.node_flag_usage", 0, nil),
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: t.GetMessage("figma.format_flag_usage", 0, nil),
						Value: formatJSON,
						Validator: func(v string) error {
							if v != formatJSON && v != formatCSS {
								return fmt.Errorf("%s", t.GetMessage("figma.invalid_format", 0, map[string]interface{}{"Format": v}))
							}
							return nil
						},
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					ctx = logger.With(ctx, "command", "figma colors", "file", cmd.String("file"))
					src, err := f.provider(ctx)
					if err != nil {
						return err
					}

					tokens, err := src.Colors(ctx, cmd.String("file"), cmd.StringSlice("node"))
					if err != nil {
						return err
					}
					logger.Info(ctx, "figma colors extracted", "tokens", len(tokens))

					w := cmd.Root().Writer
					if cmd.String("format") == formatCSS {
						_, err = fmt.Fprint(w, figma.FormatCSS(tokens))
						return err
					}
					if tokens == nil {
						tokens = []models.ColorToken{}
					}
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					return enc.Encode(tokens)
				},
			},
		},
	}
}
