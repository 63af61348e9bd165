package runner

import (
	"context"

	"go.uber.org/zap"
)

// Dispatcher routes invocations to the native collaborators where one
// exists and to the Python subprocess runner otherwise.
type Dispatcher struct {
	probe    *Probe
	local    *Local
	fallback Runner
}

// NewDispatcher creates the default runner: native folder probe and
// filesystem collaborators, subprocesses for everything else.
func NewDispatcher(scriptsDir string, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		probe:    NewProbe(log),
		local:    NewLocal(),
		fallback: NewScript(scriptsDir),
	}
}

// Run implements Runner.
func (d *Dispatcher) Run(ctx context.Context, inv Invocation) (Result, error) {
	switch inv.Script {
	case "StructFolderCheck.py":
		return d.probe.Run(ctx, inv)
	case "no_reorganize.py", "copy_folder_contents.py", "delete_folder.py":
		return d.local.Run(ctx, inv)
	}
	return d.fallback.Run(ctx, inv)
}

var _ Runner = (*Dispatcher)(nil)
