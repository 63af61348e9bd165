// Package runner executes pipeline stage collaborators. The default runner
// shells out to the Python collaborator scripts; a few small collaborators
// (folder probe, no-reorganize, copy, delete) also have native in-process
// implementations that consume the exact same flag vector.
package runner

import "context"

// Invocation is one collaborator call: the stage label it belongs to, the
// collaborator script name and its complete argument vector.
type Invocation struct {
	Stage  string
	Script string
	Args   []string
}

// Result carries the captured standard output of a collaborator. The
// dispatcher inspects it for the folder-probe classification line.
type Result struct {
	Output string
}

// Runner executes one collaborator invocation. A returned error marks the
// stage as failed; the pipeline logs it and moves on to the next stage.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// Func adapts a function to the Runner interface.
type Func func(ctx context.Context, inv Invocation) (Result, error)

// Run implements Runner.
func (f Func) Run(ctx context.Context, inv Invocation) (Result, error) {
	return f(ctx, inv)
}

// argValue returns the value following flag in args, or "" when the flag is
// absent or has no value.
func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// hasArg reports whether the boolean flag is present in args.
func hasArg(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}
