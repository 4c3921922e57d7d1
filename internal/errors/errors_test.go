package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_WithError(t *testing.T) {
	baseErr := errors.New("original error")
	appErr := ErrGetDiff.WithError(baseErr)

	if appErr.Err != baseErr {
		t.Errorf("Expected underlying error to be %v, got %v", baseErr, appErr.Err)
	}

	if appErr.Type != TypeGit {
		t.Errorf("Expected type %s, got %s", TypeGit, appErr.Type)
	}
}

func TestAppError_WithContext(t *testing.T) {
	appErr := ErrCommandFailed.WithContext("command", "npm run lint").WithContext("stderr", "eslint not found")

	if appErr.Context["command"] != "npm run lint" {
		t.Errorf("Expected command context 'npm run lint', got %v", appErr.Context["command"])
	}

	if appErr.Context["stderr"] != "eslint not found" {
		t.Errorf("Expected stderr context 'eslint not found', got %v", appErr.Context["stderr"])
	}

	if ErrCommandFailed.Context != nil {
		t.Error("WithContext must not mutate the sentinel")
	}
}

func TestAppError_Error_Format(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		contains []string
	}{
		{
			name: "Simple error without underlying error",
			err:  ErrNoStagedChanges,
			contains: []string{
				"VALIDATION",
				"No staged changes detected",
			},
		},
		{
			name: "Error with underlying error",
			err:  ErrGetBranch.WithError(errors.New("exit status 1")),
			contains: []string{
				"GIT",
				"Failed to get current branch",
				"exit status 1",
			},
		},
		{
			name: "Error with context including stderr",
			err: ErrPush.WithError(errors.New("exit status 1")).
				WithContext("stderr", "rejected: stale info"),
			contains: []string{
				"GIT",
				"Failed to push to remote",
				"exit status 1",
				"rejected: stale info",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want it to contain %q", msg, want)
				}
			}
		})
	}
}

func TestAppError_Is(t *testing.T) {
	t.Run("sentinel survives WithError", func(t *testing.T) {
		err := ErrJiraAuth.WithError(errors.New("401 Unauthorized"))
		if !errors.Is(err, ErrJiraAuth) {
			t.Error("expected errors.Is to match the sentinel")
		}
	})

	t.Run("sentinel survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("fetching ticket: %w", ErrTicketNotFound.WithContext("ticket", "FE-1"))
		if !errors.Is(err, ErrTicketNotFound) {
			t.Error("expected errors.Is to match through fmt.Errorf")
		}
	})

	t.Run("different message does not match", func(t *testing.T) {
		if errors.Is(ErrJiraAuth, ErrGitLabAuth) {
			t.Error("different auth sentinels must not match")
		}
	})
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"validation", ErrInvalidTicket, TypeValidation},
		{"conflict", ErrRebaseConflict.WithContext("files", []string{"a.ts"}), TypeConflict},
		{"auth wrapped", fmt.Errorf("labels: %w", ErrJiraAuth), TypeAuth},
		{"api", ErrGitLabRequest.WithError(errors.New("502")), TypeAPI},
		{"plain error", errors.New("boom"), TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}

	if IsKind(nil, TypeInternal) {
		t.Error("IsKind(nil) must be false")
	}
}
