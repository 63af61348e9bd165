package runner

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
)

// Script runs collaborators as Python subprocesses. Standard output is
// captured for the dispatcher; standard error is kept for the returned error
// when the collaborator fails.
type Script struct {
	scriptsDir  string
	interpreter string
}

// NewScript creates a subprocess runner. scriptsDir is prepended to the
// collaborator script name; leave it empty to resolve scripts through PATH.
func NewScript(scriptsDir string) *Script {
	return &Script{scriptsDir: scriptsDir, interpreter: "python3"}
}

// Run implements Runner.
func (s *Script) Run(ctx context.Context, inv Invocation) (Result, error) {
	script := inv.Script
	if s.scriptsDir != "" {
		script = filepath.Join(s.scriptsDir, script)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.interpreter, append([]string{script}, inv.Args...)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return Result{Output: stdout.String()},
				errors.Wrapf(err, "unable to run %s: %s", inv.Script, msg)
		}
		return Result{Output: stdout.String()},
			errors.Wrapf(err, "unable to run %s", inv.Script)
	}
	return Result{Output: stdout.String()}, nil
}

var _ Runner = (*Script)(nil)
