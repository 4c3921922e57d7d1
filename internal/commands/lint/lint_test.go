package lint

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/i18n"
)

type mockLinter struct {
	mock.Mock
}

func (m *mockLinter) Run(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestLintCommand(t *testing.T) {
	translations, err := i18n.NewTranslations("en")
	require.NoError(t, err)

	tests := []struct {
		name    string
		runErr  error
		wantErr bool
		output  string
	}{
		{name: "lint passes", output: translations.GetMessage("lint.passed", 0, nil)},
		{name: "lint fails", runErr: errors.ErrLintFailed, wantErr: true, output: translations.GetMessage("lint.failed", 0, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			linter := new(mockLinter)
			linter.On("Run", mock.Anything).Return(tt.runErr)

			cmd := NewLintCommandFactory(linter).CreateCommand(translations, config.Default(t.TempDir()))
			var buf bytes.Buffer
			cmd.Writer = &buf

			err := cmd.Run(context.Background(), []string{"lint"})

			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrLintFailed)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, buf.String(), tt.output)
			linter.AssertExpectations(t)
		})
	}
}
