package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMissingInputFolder = errors.New("no input folder specified")
	ErrMissingOutFolder   = errors.New("no output folder specified")
	ErrInputPathRequired  = errors.New("inputFolder is set to '.' but no input path was supplied on the command line")
	ErrInvalidStructure   = errors.New("current folder cannot be reorganized")
)

// ConfigError reports a fatal configuration or validation problem: malformed
// syntax, an unknown module, a missing required parameter or a contradictory
// parameter combination. A ConfigError aborts the whole run.
type ConfigError struct {
	Stage StageKind // empty for file-level parse errors
	Line  int       // 1-based line in the PIPELINE file, 0 when unknown
	Err   error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Stage != "" && e.Line > 0:
		return fmt.Sprintf("%s (line %d): %v", e.Stage, e.Line, e.Err)
	case e.Stage != "":
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(kind StageKind, format string, args ...any) *ConfigError {
	return &ConfigError{Stage: kind, Err: errors.Errorf(format, args...)}
}

// StageError reports a collaborator failure while executing a stage. Stage
// errors are logged and the pipeline continues with the next stage; they never
// change the process exit status.
type StageError struct {
	Stage StageKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("error running stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsFatal reports whether err must abort the pipeline. Only configuration
// errors are fatal; stage execution failures are not.
func IsFatal(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
