package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli/v3"

	cachecmd "github.com/fe-devtools/devflow/internal/commands/cache"
	"github.com/fe-devtools/devflow/internal/commands/commits"
	"github.com/fe-devtools/devflow/internal/commands/figma_colors"
	"github.com/fe-devtools/devflow/internal/commands/label_preview"
	"github.com/fe-devtools/devflow/internal/commands/lint"
	"github.com/fe-devtools/devflow/internal/commands/merge_requests"
	"github.com/fe-devtools/devflow/internal/commands/registry"
	"github.com/fe-devtools/devflow/internal/commands/reports"
	"github.com/fe-devtools/devflow/internal/commands/reviews"
	"github.com/fe-devtools/devflow/internal/commands/start"
	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/di"
	"github.com/fe-devtools/devflow/internal/git"
	"github.com/fe-devtools/devflow/internal/i18n"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/shell"
	"github.com/fe-devtools/devflow/internal/ui"
	"github.com/fe-devtools/devflow/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, t, err := initializeApp(ctx, os.Args)
	if err != nil {
		ui.HandleAppError(os.Stderr, err)
		os.Exit(1)
	}

	if err := app.Run(ctx, os.Args); err != nil {
		ui.StopActiveSpinner()
		ui.HandleAppError(os.Stderr, err, t)
		os.Exit(1)
	}
}

func initializeApp(ctx context.Context, args []string) (*cli.Command, *i18n.Translations, error) {
	runner := shell.NewExecRunner()

	root, err := config.ResolveRoot(ctx, git.NewGitService(runner, ""))
	if err != nil {
		return nil, nil, fmt.Errorf("could not resolve the working directory: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}

	lang := cfg.Language
	if flagLang := langFromArgs(args); flagLang != "" {
		lang = flagLang
	}
	translations, err := i18n.NewTranslations(lang)
	if err != nil {
		return nil, nil, err
	}

	container := di.NewContainer(cfg, runner)
	commands, err := registerCommands(container, cfg, translations)
	if err != nil {
		return nil, nil, err
	}

	commands = append(commands, &cli.Command{
		Name:    "help",
		Aliases: []string{"h"},
		Usage:   translations.GetMessage("app.help_usage", 0, nil),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd.Root())
		},
	})

	return &cli.Command{
		Name:                  "devflow",
		Usage:                 translations.GetMessage("app.usage", 0, nil),
		Version:               version.FullVersion(),
		Description:           translations.GetMessage("app.about", 0, nil),
		Commands:              commands,
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: translations.GetMessage("app.debug_flag_usage", 0, nil),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: translations.GetMessage("app.verbose_flag_usage", 0, nil),
			},
			&cli.StringFlag{
				Name:  "lang",
				Usage: translations.GetMessage("app.lang_flag_usage", 0, nil),
				Value: lang,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logger.Initialize(cmd.Bool("debug"), cmd.Bool("verbose"))
			logger.Debug(ctx, "configuration loaded",
				"root", cfg.Root,
				"language", translations.Language(),
				"transport", cfg.GitLab.Transport,
				"strategy", cfg.Labels.Strategy,
				"task_store", cfg.TaskStore.Kind)
			return ctx, nil
		},
	}, translations, nil
}

func registerCommands(container *di.Container, cfg *config.Config, t *i18n.Translations) ([]*cli.Command, error) {
	reg := registry.NewRegistry(cfg, t)

	factories := []struct {
		name    string
		factory registry.CommandFactory
	}{
		{"start", start.NewStartCommandFactory(func(context.Context) (start.TaskService, error) {
			return container.TaskService()
		})},
		{"lint", lint.NewLintCommandFactory(container.LintService())},
		{"commit", commits.NewCommitCommandFactory(container.CommitService())},
		{"mr", merge_requests.NewMRCommandFactory(func(ctx context.Context) (merge_requests.MRService, error) {
			return container.MRService(ctx)
		})},
		{"labels", label_preview.NewLabelsCommandFactory(func(ctx context.Context) (label_preview.LabelPreviewer, error) {
			return container.LabelService(ctx), nil
		})},
		{"report", reports.NewReportCommandFactory(container.ReportService())},
		{"review", reviews.NewReviewCommandFactory(func(context.Context) (reviews.ReviewService, error) {
			return container.ReviewService()
		})},
		{"figma", figma_colors.NewFigmaCommandFactory(func(context.Context) (figma_colors.ColorSource, error) {
			return container.Figma()
		})},
		{"cache", cachecmd.NewCacheCommand(func() (cachecmd.Cleaner, error) {
			return container.Cache()
		})},
	}

	for _, f := range factories {
		if err := reg.Register(f.name, f.factory); err != nil {
			return nil, err
		}
	}
	return reg.CreateCommands(), nil
}

// langFromArgs finds --lang ahead of parsing, since command usages are
// translated while the tree is built.
func langFromArgs(args []string) string {
	for i, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--lang="):
			return strings.TrimPrefix(arg, "--lang=")
		case arg == "--lang" && i+1 < len(args):
			return args[i+1]
		}
	}
	return ""
}
