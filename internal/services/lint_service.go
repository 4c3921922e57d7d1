package services

import (
	"context"
	"strings"
	"time"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/logger"
	"github.com/fe-devtools/devflow/internal/shell"
)

// LintService runs the configured lint command in the repository root with
// its output streamed to the terminal.
type LintService struct {
	runner  shell.Runner
	dir     string
	command []string
}

func NewLintService(runner shell.Runner, dir string, command []string) *LintService {
	return &LintService{runner: runner, dir: dir, command: command}
}

func (s *LintService) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if len(s.command) == 0 {
		log.Warn("no lint command configured, skipping lint")
		return nil
	}

	start := time.Now()
	cmd := shell.Command{Name: s.command[0], Args: s.command[1:], Dir: s.dir, Stream: true}
	if _, err := s.runner.Run(ctx, cmd); err != nil {
		return errors.ErrLintFailed.WithError(err).
			WithContext("command", strings.Join(s.command, " ")).
			WithContext("exit_code", shell.ExitCode(err))
	}
	log.Info("lint passed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
