package di

import (
	"context"
	"time"

	"github.com/fe-devtools/devflow/internal/cache"
	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/figma"
	"github.com/fe-devtools/devflow/internal/git"
	"github.com/fe-devtools/devflow/internal/httpclient"
	"github.com/fe-devtools/devflow/internal/impact"
	"github.com/fe-devtools/devflow/internal/jira"
	"github.com/fe-devtools/devflow/internal/labels"
	"github.com/fe-devtools/devflow/internal/llm"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/review"
	"github.com/fe-devtools/devflow/internal/services"
	"github.com/fe-devtools/devflow/internal/shell"
	"github.com/fe-devtools/devflow/internal/taskstore"
	"github.com/fe-devtools/devflow/internal/vcs"
	"github.com/fe-devtools/devflow/internal/vcs/gitlab"
	"github.com/fe-devtools/devflow/internal/vcs/glab"
)

const requestTimeout = 30 * time.Second

// Container builds the services of one run. Clients that need credentials are
// created on first use, so commands that do not talk to a service never fail
// on its missing configuration.
type Container struct {
	cfg    *config.Config
	runner shell.Runner
	git    *git.GitService
	files  *taskstore.FileStore
	http   httpclient.HTTPClient

	jira   *jira.JiraService
	gitlab vcs.Client
}

func NewContainer(cfg *config.Config, runner shell.Runner) *Container {
	return &Container{
		cfg:    cfg,
		runner: runner,
		git:    git.NewGitService(runner, cfg.Root),
		files:  taskstore.NewFileStore(cfg.TmpDir()),
		http:   httpclient.New(requestTimeout),
	}
}

func (c *Container) Config() *config.Config {
	return c.cfg
}

func (c *Container) Git() *git.GitService {
	return c.git
}

func (c *Container) Files() *taskstore.FileStore {
	return c.files
}

// StartStore is the configured home of start-task records.
func (c *Container) StartStore() taskstore.StartInfoStore {
	if c.cfg.TaskStore.Kind == config.StoreNotes {
		return taskstore.NewNotesStore(c.git)
	}
	return c.files
}

func (c *Container) Jira() (*jira.JiraService, error) {
	if c.jira != nil {
		return c.jira, nil
	}
	if err := c.cfg.RequireJira(); err != nil {
		return nil, err
	}
	c.jira = jira.NewJiraService(c.cfg.Jira.BaseURL, c.cfg.Jira.Email, c.cfg.Jira.APIToken, c.http)
	return c.jira, nil
}

// GitLab returns the client of the configured transport.
func (c *Container) GitLab() (vcs.Client, error) {
	if c.gitlab != nil {
		return c.gitlab, nil
	}
	if err := c.cfg.RequireGitLab(); err != nil {
		return nil, err
	}
	if c.cfg.GitLab.Transport == config.TransportGlab {
		c.gitlab = glab.NewGlabClient(c.runner, c.cfg.Root, c.cfg.GitLab.Project)
		return c.gitlab, nil
	}

	client, err := gitlab.NewGitLabClient(c.cfg.GitLab.Host, c.cfg.GitLab.Project, c.cfg.GitLab.Token, httpclient.New(requestTimeout))
	if err != nil {
		return nil, err
	}
	c.gitlab = client
	return c.gitlab, nil
}

// Decider wires the label rules. Jira and the LLM source are optional: without
// them the version rules are skipped and the impact heuristic is used.
func (c *Container) Decider(ctx context.Context) *labels.Decider {
	cfg := c.cfg.Labels
	analyzer := labels.OnRemote(impact.NewAnalyzer(c.git, nil), c.git.Remote())
	impactSource := labels.NewImpactSource(analyzer, cfg.V3Label, cfg.V4Label)

	opts := []labels.Option{
		labels.WithOrigin(taskstore.NewOriginChecker(c.StartStore(), c.files)),
	}
	if tickets, err := c.Jira(); err == nil {
		opts = append(opts, labels.WithTickets(tickets))
	} else {
		logger.Debug(ctx, "jira not configured", "error", err)
	}

	var source labels.Source = impactSource
	if cfg.Strategy == config.StrategyLLM {
		if llmSource, err := c.llmSource(ctx); err != nil {
			logger.Warn(ctx, "llm label strategy unavailable, using impact heuristic", "error", err)
		} else {
			source = llmSource
			opts = append(opts, labels.WithFallback(impactSource))
		}
	}
	return labels.NewDecider(cfg, source, opts...)
}

func (c *Container) llmSource(ctx context.Context) (*labels.LLMSource, error) {
	knowledge, err := labels.LoadKnowledge(c.cfg.KnowledgeFilePath())
	if err != nil {
		return nil, err
	}
	completer, err := llm.NewCompleter(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	return labels.NewLLMSource(completer, knowledge, c.cfg.LLM.Temperature), nil
}

func (c *Container) TaskService() (*services.TaskService, error) {
	tickets, err := c.Jira()
	if err != nil {
		return nil, err
	}
	return services.NewTaskService(c.git, tickets, c.StartStore(), c.cfg.GitLab.DefaultTarget), nil
}

func (c *Container) LintService() *services.LintService {
	return services.NewLintService(c.runner, c.cfg.Root, c.cfg.Lint.Command)
}

func (c *Container) CommitService() *services.CommitService {
	return services.NewCommitService(c.git, c.LintService())
}

func (c *Container) ReportService() *services.ReportService {
	if tickets, err := c.Jira(); err == nil {
		return services.NewReportService(c.files, tickets)
	}
	return services.NewReportService(c.files, nil)
}

func (c *Container) MRService(ctx context.Context) (*services.MRService, error) {
	client, err := c.GitLab()
	if err != nil {
		return nil, err
	}

	var opts []services.MROption
	if tickets, err := c.Jira(); err == nil {
		opts = append(opts, services.WithMRTickets(tickets))
	}
	if relay, err := c.Relay(); err == nil {
		opts = append(opts, services.WithReviews(relay))
	} else {
		logger.Debug(ctx, "ai review not configured", "error", err)
	}
	return services.NewMRService(c.git, client, c.Decider(ctx), c.ReportService(), c.cfg.GitLab, opts...), nil
}

func (c *Container) Relay() (*review.Relay, error) {
	if err := c.cfg.RequireReview(); err != nil {
		return nil, err
	}
	client, err := c.GitLab()
	if err != nil {
		return nil, err
	}
	compass := review.NewCompassClient(c.cfg.Review.BaseURL, c.cfg.Review.Token, c.http)
	return review.NewRelay(compass, client, c.files, c.cfg.GitLab.Project, c.cfg.Review.AgentName), nil
}

func (c *Container) Figma() (*figma.FigmaService, error) {
	if err := c.cfg.RequireFigma(); err != nil {
		return nil, err
	}
	return figma.NewFigmaService(c.cfg.Figma.BaseURL, c.cfg.Figma.Token, c.http), nil
}

// Cache opens the LLM response cache.
func (c *Container) Cache() (*cache.Cache, error) {
	return cache.NewCache(c.cfg.CacheDir(), time.Duration(c.cfg.LLM.CacheTTLHours)*time.Hour)
}

func (c *Container) LabelService(ctx context.Context) *services.LabelService {
	return services.NewLabelService(c.git, c.Decider(ctx), c.cfg.GitLab.DefaultTarget)
}

func (c *Container) ReviewService() (*services.ReviewService, error) {
	relay, err := c.Relay()
	if err != nil {
		return nil, err
	}
	client, err := c.GitLab()
	if err != nil {
		return nil, err
	}
	return services.NewReviewService(c.git, client, relay), nil
}
