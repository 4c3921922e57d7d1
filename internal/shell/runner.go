package shell

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/logger"
)

// Command describes one process invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Stdin string
	// Stream forwards output to the terminal as it is produced. The output is
	// still captured in the Result.
	Stream bool
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs commands synchronously, one at a time.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	stdout io.Writer
	stderr io.Writer
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{stdout: os.Stdout, stderr: os.Stderr}
}

// Run executes cmd. A non-zero exit returns the Result together with an
// ErrCommandFailed carrying command, exit_code and stderr in its context.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	log := logger.FromContext(ctx)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	if cmd.Stream {
		c.Stdout = io.MultiWriter(&stdout, r.stdout)
		c.Stderr = io.MultiWriter(&stderr, r.stderr)
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	log.Debug("running command", "command", cmd.String(), "dir", cmd.Dir)

	err := c.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(err, &exitErr) {
			res.ExitCode = -1
		}
		log.Debug("command failed",
			"command", cmd.String(),
			"exit_code", res.ExitCode,
			"error", err)
		return res, errors.ErrCommandFailed.WithError(err).
			WithContext("command", cmd.String()).
			WithContext("exit_code", res.ExitCode).
			WithContext("stderr", strings.TrimSpace(res.Stderr))
	}

	return res, nil
}

// ExitCode extracts the exit code recorded by Run, or -1 when err did not come
// from a finished process.
func ExitCode(err error) int {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		if code, ok := appErr.Context["exit_code"].(int); ok {
			return code
		}
	}
	return -1
}

// Stderr extracts the captured stderr recorded by Run.
func Stderr(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		if s, ok := appErr.Context["stderr"].(string); ok {
			return s
		}
	}
	return ""
}
