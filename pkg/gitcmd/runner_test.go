package gitcmd

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestExecRunnerCapturesOutput(t *testing.T) {
	r := NewExecRunner(zerolog.Nop())
	r.GitPath = "/bin/echo"

	res, err := r.Run(context.Background(), t.TempDir(), "status", "--short")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := strings.TrimSpace(res.Stdout); got != "status --short" {
		t.Errorf("stdout = %q", got)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", res.ExitCode)
	}
}

func TestExecRunnerStartFailure(t *testing.T) {
	r := NewExecRunner(zerolog.Nop())
	r.GitPath = filepath.Join(t.TempDir(), "no-such-git")

	_, err := r.Run(context.Background(), t.TempDir(), "status")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %v, want *CommandError", err)
	}
	if len(cmdErr.Args) == 0 || cmdErr.Args[0] != "status" {
		t.Errorf("error args = %v", cmdErr.Args)
	}
}

func TestCommandErrorMessage(t *testing.T) {
	err := &CommandError{
		Args:   []string{"push", "origin", "HEAD:master"},
		Dir:    "/repo",
		Result: Result{ExitCode: 1, Stderr: "! [rejected] master -> master (fetch first)\n"},
		Err:    errors.New("exit status 1"),
	}

	msg := err.Error()
	for _, want := range []string{"git push origin HEAD:master", "/repo", "exit 1", "fetch first"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}
