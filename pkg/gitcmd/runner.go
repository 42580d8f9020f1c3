// Package gitcmd runs git commands against a local working copy. The shared
// manifest store is a git repository; every interaction with it goes through
// a Runner so the coordination core can be tested against a substitute.
package gitcmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Result captures the outcome of a single command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CommandError is returned when a git command exits non-zero or cannot be
// started. Callers treat it as retryable: a failing push or rebase usually
// means a concurrent writer got there first.
type CommandError struct {
	Args   []string
	Dir    string
	Result Result
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s failed in %s", strings.Join(e.Args, " "), e.Dir)
	if e.Result.ExitCode != 0 {
		msg = fmt.Sprintf("%s (exit %d)", msg, e.Result.ExitCode)
	}
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, stderr)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Runner executes git commands in a working directory.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (Result, error)
}

// ExecRunner is the os/exec backed Runner used outside of tests.
type ExecRunner struct {
	logger zerolog.Logger

	// GitPath overrides the git binary, empty means "git" from PATH.
	GitPath string
}

// NewExecRunner creates a runner that shells out to git.
func NewExecRunner(logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{
		logger: logger.With().Str("component", "gitcmd").Logger(),
	}
}

// Run executes git with the given arguments in dir, capturing output.
// A non-zero exit or a failure to start returns a *CommandError.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (Result, error) {
	bin := r.GitPath
	if bin == "" {
		bin = "git"
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		}
		cmdErr := &CommandError{Args: args, Dir: dir, Result: res, Err: err}
		r.logger.Debug().
			Strs("args", args).
			Str("dir", dir).
			Int("exit_code", res.ExitCode).
			Msg("git command failed")
		return res, cmdErr
	}

	r.logger.Trace().
		Strs("args", args).
		Str("dir", dir).
		Dur("duration", res.Duration).
		Msg("git command completed")
	return res, nil
}
