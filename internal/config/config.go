package config

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/fe-devtools/devflow/internal/errors"
)

const (
	SettingsFile = ".devflow.toml"
	EnvFile      = ".env.local"
	ToolDirName  = ".devflow"

	defaultLang          = "en"
	defaultGitLabHost    = "https://gitlab.com"
	defaultTarget        = "develop"
	defaultTransport     = "api"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultFigmaBaseURL  = "https://api.figma.com"
	defaultAgentName     = "AI Reviewer"
	defaultStrategy      = "impact"
	defaultTaskStore     = "file"
	defaultCacheTTLHours = 24
)

// Strategy and store kinds accepted in the settings file.
const (
	StrategyImpact = "impact"
	StrategyLLM    = "llm"

	StoreFile  = "file"
	StoreNotes = "notes"

	TransportAPI  = "api"
	TransportGlab = "glab"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type (
	// Config is built once by Load and passed down by value or pointer. Nothing
	// reads the environment after Load returns.
	Config struct {
		Root     string `toml:"-"`
		Language string `toml:"language"`

		Jira      JiraConfig      `toml:"jira"`
		GitLab    GitLabConfig    `toml:"gitlab"`
		Review    ReviewConfig    `toml:"review"`
		Figma     FigmaConfig     `toml:"figma"`
		LLM       LLMConfig       `toml:"llm"`
		Labels    LabelsConfig    `toml:"labels"`
		Lint      LintConfig      `toml:"lint"`
		TaskStore TaskStoreConfig `toml:"task_store"`
	}

	JiraConfig struct {
		BaseURL  string `toml:"base_url"`
		Email    string `toml:"-"`
		APIToken string `toml:"-"`
	}

	GitLabConfig struct {
		Host               string `toml:"host"`
		Project            string `toml:"project"`
		Transport          string `toml:"transport"`
		DefaultTarget      string `toml:"default_target"`
		RemoveSourceBranch bool   `toml:"remove_source_branch"`
		Token              string `toml:"-"`
		Reviewer           string `toml:"-"`
	}

	ReviewConfig struct {
		BaseURL   string `toml:"base_url"`
		AgentName string `toml:"agent_name"`
		Token     string `toml:"-"`
	}

	FigmaConfig struct {
		BaseURL string `toml:"base_url"`
		Token   string `toml:"-"`
	}

	LLMConfig struct {
		Provider      string  `toml:"provider"`
		Model         string  `toml:"model"`
		BaseURL       string  `toml:"base_url"`
		Temperature   float64 `toml:"temperature"`
		CacheTTLHours int     `toml:"cache_ttl_hours"`
		APIKey        string  `toml:"-"`
		GeminiAPIKey  string  `toml:"-"`
	}

	LabelsConfig struct {
		Strategy      string            `toml:"strategy"`
		KnowledgeFile string            `toml:"knowledge_file"`
		OriginLabel   string            `toml:"origin_label"`
		HotfixLabel   string            `toml:"hotfix_label"`
		V3Label       string            `toml:"v3_label"`
		V4Label       string            `toml:"v4_label"`
		BoardPrefixes map[string]string `toml:"board_prefixes"`
	}

	LintConfig struct {
		Command []string `toml:"command"`
	}

	TaskStoreConfig struct {
		Kind string `toml:"kind"`
	}
)

// RootFinder resolves the repository root.
type RootFinder interface {
	RepoRoot(ctx context.Context) (string, error)
}

// ResolveRoot returns the repository top level, falling back to the working
// directory outside a repository.
func ResolveRoot(ctx context.Context, finder RootFinder) (string, error) {
	if root, err := finder.RepoRoot(ctx); err == nil && root != "" {
		return root, nil
	}
	return os.Getwd()
}

// Default returns the built-in settings for root.
func Default(root string) *Config {
	return &Config{
		Root:     root,
		Language: defaultLang,
		GitLab: GitLabConfig{
			Host:               defaultGitLabHost,
			Transport:          defaultTransport,
			DefaultTarget:      defaultTarget,
			RemoveSourceBranch: true,
		},
		Review: ReviewConfig{AgentName: defaultAgentName},
		Figma:  FigmaConfig{BaseURL: defaultFigmaBaseURL},
		LLM: LLMConfig{
			Provider:      ProviderOpenAI,
			BaseURL:       defaultOpenAIBaseURL,
			Temperature:   0.2,
			CacheTTLHours: defaultCacheTTLHours,
		},
		Labels: LabelsConfig{
			Strategy:      defaultStrategy,
			KnowledgeFile: filepath.Join(ToolDirName, "labels.yaml"),
			OriginLabel:   "AI",
			HotfixLabel:   "Hotfix",
			V3Label:       "3.0UI",
			V4Label:       "4.0UI",
			BoardPrefixes: map[string]string{"FE-": "FE Board"},
		},
		Lint:      LintConfig{Command: []string{"npm", "run", "lint"}},
		TaskStore: TaskStoreConfig{Kind: defaultTaskStore},
	}
}

// Load builds the configuration for root from defaults, the settings file,
// both env files and the process environment.
func Load(root string) (*Config, error) {
	return LoadWithEnv(root, os.Getenv)
}

// LoadWithEnv is Load with the process environment replaced by getenv.
func LoadWithEnv(root string, getenv func(string) string) (*Config, error) {
	cfg := Default(root)

	settingsPath := filepath.Join(root, SettingsFile)
	if _, err := toml.DecodeFile(settingsPath, cfg); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.ErrInvalidConfig.WithError(err).WithContext("file", settingsPath)
	}

	env, err := MergeEnv(root, getenv)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv(env)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeEnv merges <root>/.env.local, <root>/.devflow/.env.local and the process
// environment for the known keys. Later sources win only with non-empty values,
// except the root file which is the base layer.
func MergeEnv(root string, getenv func(string) string) (map[string]string, error) {
	env := make(map[string]string)

	rootEnv, err := readEnvFile(filepath.Join(root, EnvFile))
	if err != nil {
		return nil, err
	}
	for k, v := range rootEnv {
		env[k] = v
	}

	toolEnv, err := readEnvFile(filepath.Join(root, ToolDirName, EnvFile))
	if err != nil {
		return nil, err
	}
	for k, v := range toolEnv {
		if v != "" {
			env[k] = v
		}
	}

	for _, key := range knownKeys {
		if v := getenv(key); v != "" {
			env[key] = v
		}
	}
	return env, nil
}

func readEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, errors.ErrInvalidConfig.WithError(err).WithContext("file", path)
	}
	return values, nil
}

var knownKeys = []string{
	"JIRA_BASE_URL", "JIRA_EMAIL", "JIRA_API_TOKEN",
	"GITLAB_HOST", "GITLAB_PROJECT", "GITLAB_TOKEN", "GITLAB_PRIVATE_TOKEN", "GL_TOKEN",
	"COMPASS_BASE_URL", "COMPASS_API_TOKEN", "AGENT_DISPLAY_NAME",
	"FIGMA_TOKEN", "FIGMA_ACCESS_TOKEN",
	"MR_REVIEWER",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "GEMINI_API_KEY",
	"DEVFLOW_LANG", "DEVFLOW_LLM_CACHE_TTL_HOURS",
}

func (c *Config) applyEnv(env map[string]string) {
	set := func(dst *string, keys ...string) {
		if v := firstNonEmpty(env, keys...); v != "" {
			*dst = v
		}
	}

	set(&c.Jira.BaseURL, "JIRA_BASE_URL")
	set(&c.Jira.Email, "JIRA_EMAIL")
	set(&c.Jira.APIToken, "JIRA_API_TOKEN")

	set(&c.GitLab.Host, "GITLAB_HOST")
	set(&c.GitLab.Project, "GITLAB_PROJECT")
	set(&c.GitLab.Token, "GITLAB_TOKEN", "GITLAB_PRIVATE_TOKEN", "GL_TOKEN")
	set(&c.GitLab.Reviewer, "MR_REVIEWER")

	set(&c.Review.BaseURL, "COMPASS_BASE_URL")
	set(&c.Review.Token, "COMPASS_API_TOKEN")
	set(&c.Review.AgentName, "AGENT_DISPLAY_NAME")

	set(&c.Figma.Token, "FIGMA_TOKEN", "FIGMA_ACCESS_TOKEN")

	set(&c.LLM.APIKey, "OPENAI_API_KEY")
	set(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	set(&c.LLM.Model, "OPENAI_MODEL")
	set(&c.LLM.GeminiAPIKey, "GEMINI_API_KEY")

	set(&c.Language, "DEVFLOW_LANG")

	if v := env["DEVFLOW_LLM_CACHE_TTL_HOURS"]; v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			c.LLM.CacheTTLHours = hours
		}
	}

	if c.LLM.Model == "" {
		if c.LLM.Provider == ProviderGemini {
			c.LLM.Model = defaultGeminiModel
		} else {
			c.LLM.Model = defaultOpenAIModel
		}
	}

	c.Jira.BaseURL = strings.TrimRight(c.Jira.BaseURL, "/")
	c.GitLab.Host = strings.TrimRight(c.GitLab.Host, "/")
	c.Review.BaseURL = strings.TrimRight(c.Review.BaseURL, "/")
	c.LLM.BaseURL = strings.TrimRight(c.LLM.BaseURL, "/")
}

func firstNonEmpty(env map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(env[k]); v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) validate() error {
	switch c.Labels.Strategy {
	case StrategyImpact, StrategyLLM:
	default:
		return errors.ErrInvalidConfig.
			WithContext("labels.strategy", c.Labels.Strategy).
			WithSuggestion(fmt.Sprintf("Use %q or %q in %s", StrategyImpact, StrategyLLM, SettingsFile))
	}

	switch c.TaskStore.Kind {
	case StoreFile, StoreNotes:
	default:
		return errors.ErrInvalidConfig.
			WithContext("task_store.kind", c.TaskStore.Kind).
			WithSuggestion(fmt.Sprintf("Use %q or %q in %s", StoreFile, StoreNotes, SettingsFile))
	}

	switch c.GitLab.Transport {
	case TransportAPI, TransportGlab:
	default:
		return errors.ErrInvalidConfig.
			WithContext("gitlab.transport", c.GitLab.Transport).
			WithSuggestion(fmt.Sprintf("Use %q or %q in %s", TransportAPI, TransportGlab, SettingsFile))
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return errors.ErrInvalidConfig.
			WithContext("llm.provider", c.LLM.Provider).
			WithSuggestion(fmt.Sprintf("Use %q or %q in %s", ProviderOpenAI, ProviderGemini, SettingsFile))
	}
	return nil
}

func (c *Config) ToolDir() string {
	return filepath.Join(c.Root, ToolDirName)
}

func (c *Config) TmpDir() string {
	return filepath.Join(c.ToolDir(), "tmp")
}

func (c *Config) CacheDir() string {
	return filepath.Join(c.ToolDir(), "cache")
}

// KnowledgeFilePath resolves the label knowledge file against the root.
func (c *Config) KnowledgeFilePath() string {
	if filepath.IsAbs(c.Labels.KnowledgeFile) {
		return c.Labels.KnowledgeFile
	}
	return filepath.Join(c.Root, c.Labels.KnowledgeFile)
}

func (c *Config) RequireJira() error {
	if c.Jira.BaseURL == "" || c.Jira.Email == "" || c.Jira.APIToken == "" {
		return errors.ErrJiraConfigMissing
	}
	return nil
}

func (c *Config) RequireGitLab() error {
	if c.GitLab.Project == "" {
		return errors.ErrGitLabConfigMissing.WithContext("missing", "GITLAB_PROJECT")
	}
	if c.GitLab.Transport == TransportAPI && c.GitLab.Token == "" {
		return errors.ErrGitLabConfigMissing.WithContext("missing", "GITLAB_TOKEN")
	}
	return nil
}

func (c *Config) RequireReview() error {
	if c.Review.BaseURL == "" || c.Review.Token == "" {
		return errors.ErrReviewConfigMissing
	}
	return nil
}

func (c *Config) RequireFigma() error {
	if c.Figma.Token == "" {
		return errors.ErrFigmaConfigMissing
	}
	return nil
}

func (c *Config) RequireLLM() error {
	if c.LLM.Provider == ProviderGemini {
		if c.LLM.GeminiAPIKey == "" {
			return errors.ErrLLMConfigMissing.WithContext("missing", "GEMINI_API_KEY")
		}
		return nil
	}
	if c.LLM.APIKey == "" {
		return errors.ErrLLMConfigMissing.WithContext("missing", "OPENAI_API_KEY")
	}
	return nil
}
