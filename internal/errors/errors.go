package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	TypeValidation    ErrorType = "VALIDATION"
	TypeConflict      ErrorType = "CONFLICT"
	TypeAuth          ErrorType = "AUTH"
	TypeAPI           ErrorType = "API"
	TypeNotFound      ErrorType = "NOT_FOUND"
	TypeConfiguration ErrorType = "CONFIGURATION"
	TypeGit           ErrorType = "GIT"
	TypeProcess       ErrorType = "PROCESS"
	TypeInternal      ErrorType = "INTERNAL"
)

// AppError represents a domain-level error with a type and an underlying error
type AppError struct {
	Type       ErrorType
	Message    string
	Context    map[string]interface{}
	Err        error
	Suggestion string
}

func (e *AppError) Error() string {
	var msg string
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Type, e.Message)
	}

	if e.Context != nil {
		if stderr, ok := e.Context["stderr"].(string); ok && stderr != "" {
			msg += fmt.Sprintf(" - %s", stderr)
		}
	}

	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError of the same type and message, so a
// sentinel still matches after WithError/WithContext copied it.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithError creates a new AppError with an underlying error
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        err,
		Suggestion: e.Suggestion,
	}
}

// WithContext creates a new AppError with additional context
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	ctx := make(map[string]interface{})
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    ctx,
		Err:        e.Err,
		Suggestion: e.Suggestion,
	}
}

func (e *AppError) WithSuggestion(suggestion string) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        e.Err,
		Suggestion: suggestion,
	}
}

// NewAppError creates a new AppError
func NewAppError(t ErrorType, msg string, err error) *AppError {
	return &AppError{
		Type:    t,
		Message: msg,
		Err:     err,
	}
}

// KindOf returns the type of the first AppError in the chain, or TypeInternal
// when err carries none.
func KindOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return TypeInternal
}

// IsKind reports whether err carries an AppError of kind t.
func IsKind(err error, t ErrorType) bool {
	return err != nil && KindOf(err) == t
}

// Validation errors
var (
	ErrInvalidTicket = NewAppError(TypeValidation, "Ticket format is invalid", nil).
				WithSuggestion("Use the Jira key format PREFIX-NUMBER, e.g. FE-1234")

	ErrInvalidCommitMessage = NewAppError(TypeValidation, "Commit message is invalid", nil).
				WithSuggestion("Use a lowercase English message of at most 64 characters")

	ErrInvalidCommitType = NewAppError(TypeValidation, "Commit type is invalid", nil).
				WithSuggestion("Use one of: feat, fix, docs, style, refactor, perf, test, build, ci, chore, revert")

	ErrUncommittedChanges = NewAppError(TypeValidation, "Working tree has uncommitted changes", nil).
				WithSuggestion("Commit or stash your changes first:\n   git status\n   git stash")

	ErrNoStagedChanges = NewAppError(TypeValidation, "No staged changes detected", nil).
				WithSuggestion("Stage your changes first with: git add <files>")

	ErrNoRemoteBranch = NewAppError(TypeValidation, "Branch has no remote counterpart", nil).
				WithSuggestion("Push the branch first: git push -u origin <branch>")

	ErrRebaseInProgress = NewAppError(TypeValidation, "A rebase is in progress", nil).
				WithSuggestion("Finish it with: git rebase --continue\nor abort it with: git rebase --abort")

	ErrNotFeatureBranch = NewAppError(TypeValidation, "Current branch does not carry a ticket", nil).
				WithSuggestion("Start the task first: devflow start --ticket=FE-1234")

	ErrBranchExists = NewAppError(TypeValidation, "Branch already exists", nil).
			WithSuggestion("Switch to it with: git checkout <branch>")
)

// Conflict errors
var (
	ErrRebaseConflict = NewAppError(TypeConflict, "Rebase stopped on conflicts", nil).
		WithSuggestion("Resolve the conflicted files manually, then run:\n   git add <files>\n   git rebase --continue\nand run devflow mr again")
)

// Auth errors
var (
	ErrJiraAuth = NewAppError(TypeAuth, "Jira rejected the credentials", nil).
			WithSuggestion("Your JIRA_API_TOKEN is missing or expired.\nPlease contact the administrator to renew access, then update .env.local")

	ErrGitLabAuth = NewAppError(TypeAuth, "GitLab rejected the token", nil).
			WithSuggestion("Create a personal access token with the 'api' scope and set GITLAB_TOKEN")
)

// Not found errors
var (
	ErrTicketNotFound = NewAppError(TypeNotFound, "Ticket not found in Jira", nil).
				WithSuggestion("Check the ticket key and that your account can see it")

	ErrUserNotFound = NewAppError(TypeNotFound, "GitLab user not found", nil).
			WithSuggestion("Check the username passed with --reviewer or MR_REVIEWER")

	ErrReviewNotFound = NewAppError(TypeNotFound, "No AI review found for the merge request", nil).
				WithSuggestion("Submit one first: devflow review submit --mr=<iid>")

	ErrMergeRequestNotFound = NewAppError(TypeNotFound, "No open merge request for the current branch", nil).
				WithSuggestion("Open one with: devflow mr\nor pass --mr=<iid>")
)

// API errors
var (
	ErrJiraRequest   = NewAppError(TypeAPI, "Jira request failed", nil)
	ErrGitLabRequest = NewAppError(TypeAPI, "GitLab request failed", nil)
	ErrFigmaRequest  = NewAppError(TypeAPI, "Figma request failed", nil)
	ErrLLMRequest    = NewAppError(TypeAPI, "LLM request failed", nil)
	ErrReviewRequest = NewAppError(TypeAPI, "Review service request failed", nil)

	ErrInvalidLLMOutput = NewAppError(TypeAPI, "LLM output is not valid JSON", nil).
				WithSuggestion("This is likely a temporary issue, please try again")
)

// Git errors
var (
	ErrGetBranch = NewAppError(TypeGit, "Failed to get current branch", nil).
			WithSuggestion("Make sure you are in a git repository: git status")

	ErrNoBranch = NewAppError(TypeGit, "No branch detected", nil).
			WithSuggestion("Check out a branch first: git checkout -b <branch-name>")

	ErrGetRepoRoot = NewAppError(TypeGit, "Failed to get repository root", nil).
			WithSuggestion("Make sure you are inside a git repository")

	ErrGetStatus = NewAppError(TypeGit, "Failed to read working tree status", nil)

	ErrGetDiff = NewAppError(TypeGit, "Failed to get diff", nil).
			WithSuggestion("Make sure the target branch exists: git fetch origin")

	ErrCreateCommit = NewAppError(TypeGit, "Failed to create commit", nil).
			WithSuggestion("Ensure git user is configured:\n   git config --global user.name \"Your Name\"\n   git config --global user.email \"your@email.com\"")

	ErrPush = NewAppError(TypeGit, "Failed to push to remote", nil).
		WithSuggestion("Verify remote is configured: git remote -v")

	ErrFetch = NewAppError(TypeGit, "Failed to fetch from remote", nil).
			WithSuggestion("Check your network connection and remote access")

	ErrRebase = NewAppError(TypeGit, "Failed to rebase", nil)

	ErrCreateBranch = NewAppError(TypeGit, "Failed to create branch", nil)

	ErrNotes = NewAppError(TypeGit, "Failed to access git notes", nil)
)

// Process errors
var (
	ErrCommandFailed = NewAppError(TypeProcess, "Command failed", nil)

	ErrLintFailed = NewAppError(TypeProcess, "Lint reported problems", nil).
			WithSuggestion("Fix the reported problems or pass --skip-lint")
)

// Configuration errors
var (
	ErrJiraConfigMissing = NewAppError(TypeConfiguration, "Jira is not configured", nil).
				WithSuggestion("Set JIRA_BASE_URL, JIRA_EMAIL and JIRA_API_TOKEN in .env.local")

	ErrGitLabConfigMissing = NewAppError(TypeConfiguration, "GitLab is not configured", nil).
				WithSuggestion("Set GITLAB_HOST, GITLAB_PROJECT and GITLAB_TOKEN in .env.local")

	ErrReviewConfigMissing = NewAppError(TypeConfiguration, "Review service is not configured", nil).
				WithSuggestion("Set COMPASS_BASE_URL and COMPASS_API_TOKEN in .env.local")

	ErrFigmaConfigMissing = NewAppError(TypeConfiguration, "Figma token is missing", nil).
				WithSuggestion("Set FIGMA_TOKEN in .env.local")

	ErrLLMConfigMissing = NewAppError(TypeConfiguration, "LLM API key is missing", nil).
				WithSuggestion("Set OPENAI_API_KEY (or GEMINI_API_KEY with llm.provider = \"gemini\")")

	ErrInvalidConfig = NewAppError(TypeConfiguration, "Configuration is invalid", nil)

	ErrKnowledgeFile = NewAppError(TypeConfiguration, "Label knowledge file is unreadable", nil).
				WithSuggestion("Create .devflow/labels.yaml with a 'labels' list or set labels.strategy = \"impact\"")
)
