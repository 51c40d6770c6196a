package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/semmidev/archivist/internal/domain"
)

// Result is what a finished external command left behind.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r *Result) String() string {
	return fmt.Sprintf("exit=%d stderr=%s", r.ExitCode, strings.TrimSpace(r.Stderr))
}

// Runner runs an external tool to completion. A non-zero exit is reported in Result,
// not as an error; the error is reserved for commands that could not be run at all.
type Runner interface {
	Run(ctx context.Context, name string, args []string, env []string) (*Result, error)
}

type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes name with args. env is appended to the current environment.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, env []string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("%s interrupted: %w", name, ctx.Err())
	}

	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("%s failed to start: %w", name, err)
	}

	return result, nil
}

// Require checks that every binary is resolvable on PATH.
func Require(binaries ...string) error {
	var missing []string
	for _, bin := range binaries {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrMissingDependency, strings.Join(missing, ", "))
	}
	return nil
}
