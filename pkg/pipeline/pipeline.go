package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/FlTixier/I2R/pkg/pipeline/runner"
)

// Classification lines printed by the folder probe. The dispatcher matches
// them in the captured output to record the cohort folder status.
const (
	probeReadyMarker      = "Folder is correctly structured for the image processing pipeline"
	probeReorganizeMarker = "Folder is correctly structured to be restructed with reorganize.py"
)

// Pipeline executes the stages of a parsed PIPELINE file in declaration
// order. Configuration errors abort the run; collaborator failures are logged
// and the run continues with the next stage.
type Pipeline struct {
	stages []*RawStage
	ctx    *Context

	runner    runner.Runner
	log       *zap.SugaredLogger
	plan      *plan
	verbose   bool
	failFast  bool
	stageErrs []error
}

// Option configures a Pipeline.
type Option func(p *Pipeline)

// WithRunner sets the collaborator runner.
func WithRunner(r runner.Runner) Option {
	return func(p *Pipeline) {
		p.runner = r
	}
}

// WithLogger sets the run logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithInput sets the command-line input folder substituted for the '.' token.
func WithInput(path string) Option {
	return func(p *Pipeline) {
		p.ctx.InputPath = path
	}
}

// WithPlan writes the execution plan as a DOT graph to dotFileName after the
// run, stages colored by kind and annotated with their elapsed time.
func WithPlan(dotFileName string) Option {
	return func(p *Pipeline) {
		p.plan = newPlan(dotFileName)
	}
}

// WithVerbose dumps the resolved parameters of every stage before dispatch.
func WithVerbose() Option {
	return func(p *Pipeline) {
		p.verbose = true
	}
}

// WithFailFast stops the run on the first collaborator failure instead of
// logging it and continuing.
func WithFailFast() Option {
	return func(p *Pipeline) {
		p.failFast = true
	}
}

// New creates a pipeline over the parsed stages.
func New(stages []*RawStage, opts ...Option) *Pipeline {
	pipe := &Pipeline{
		stages: stages,
		ctx:    NewContext(),
		log:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(pipe)
	}
	if pipe.runner == nil {
		pipe.runner = runner.NewScript("")
	}
	return pipe
}

// Context exposes the cross-stage run state.
func (p *Pipeline) Context() *Context { return p.ctx }

// StageErrors returns the collaborator failures collected during the run.
// They never change the process exit status.
func (p *Pipeline) StageErrors() []error { return p.stageErrs }

// Run executes every stage in order and waits for the run to finish. The
// returned error is nil unless a configuration error aborted the run (or
// FailFast promoted a collaborator failure).
func (p *Pipeline) Run(ctx context.Context) error {
	step := 0
	for _, raw := range p.stages {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "pipeline interrupted")
		default:
		}

		if raw.Kind == KindGlobalParameters {
			p.applyGlobals(raw)
			continue
		}
		step++
		if err := p.runStage(ctx, step, raw); err != nil {
			return err
		}
	}

	if p.plan != nil {
		if err := p.plan.write(); err != nil {
			return errors.Wrap(err, "unable to write execution plan")
		}
	}
	return nil
}

// applyGlobals folds a GLOBAL_PARAMETERS block into the shared context. Later
// blocks overwrite earlier values.
func (p *Pipeline) applyGlobals(raw *RawStage) {
	for _, key := range raw.Keys() {
		value, _ := raw.Get(key)
		p.ctx.Globals[key] = Coerce(value)
	}
}

func (p *Pipeline) runStage(ctx context.Context, step int, raw *RawStage) error {
	resolved, warnings, err := Resolve(raw, p.ctx)
	if err != nil {
		return err
	}
	for _, warning := range warnings {
		p.log.Warnf("%s: %s", raw.Kind, warning)
	}

	name := fmt.Sprintf("%d. %s", step, raw.Kind)
	if p.plan != nil {
		if err := p.plan.addStage(name, raw.Kind); err != nil {
			p.log.Warnf("unable to add %s to the execution plan: %v", name, err)
		}
	}

	p.log.Infof("running %s", raw.Kind)
	if p.verbose || resolved.Bool("verbose") {
		p.dumpParams(resolved)
	}

	script, args := collaboratorArgv(raw.Kind, resolved)
	skip := false
	if raw.Kind == KindReorganize {
		switch {
		case p.ctx.Structure == StructureInvalid:
			return &ConfigError{Stage: raw.Kind, Line: raw.Line, Err: ErrInvalidStructure}
		case p.ctx.Structure == StructureReady && resolved.Bool("inplace"):
			p.log.Infof("folder %s is already structured, nothing to reorganize",
				resolved.Str("inputFolder"))
			skip = true
		case p.ctx.Structure == StructureReady:
			script, args = noReorganizeArgv(resolved)
		}
	}

	if !skip {
		start := time.Now()
		res, runErr := p.runner.Run(ctx, runner.Invocation{
			Stage:  string(raw.Kind),
			Script: script,
			Args:   args,
		})
		elapsed := time.Since(start)
		if resolved.Bool("timer") {
			p.log.Infof("%s finished in %s", raw.Kind, round(elapsed))
		}
		if p.plan != nil {
			if err := p.plan.setElapsed(name, elapsed); err != nil {
				p.log.Warnf("unable to annotate %s in the execution plan: %v", name, err)
			}
		}

		if runErr != nil {
			stageErr := &StageError{Stage: raw.Kind, Err: runErr}
			p.stageErrs = append(p.stageErrs, stageErr)
			p.log.Errorf("%v", stageErr)
			if p.failFast {
				return stageErr
			}
		} else {
			p.observe(raw.Kind, res)
		}
	}

	// The data-flow chain advances even when the collaborator failed, so a
	// later stage still points at the folder this one was meant to produce.
	// A stage without an output folder at the head of the chain (typically
	// CHECK_FOLDER) seeds it with the folder it read from.
	if out := resolved.Str("outputFolder"); out != "" {
		p.ctx.PreviousOutput = out
	} else if p.ctx.PreviousOutput == "" {
		p.ctx.PreviousOutput = resolved.Str("inputFolder")
	}
	return nil
}

// observe records the side effects a finished stage has on the shared
// context.
func (p *Pipeline) observe(kind StageKind, res runner.Result) {
	switch kind {
	case KindCheckFolder:
		switch {
		case strings.Contains(res.Output, probeReadyMarker):
			p.ctx.Structure = StructureReady
		case strings.Contains(res.Output, probeReorganizeMarker):
			p.ctx.Structure = StructureReadyToReorganize
		default:
			p.ctx.Structure = StructureInvalid
			stageErr := &StageError{Stage: kind, Err: ErrInvalidStructure}
			p.stageErrs = append(p.stageErrs, stageErr)
			p.log.Errorf("%v", stageErr)
		}
		p.log.Infof("folder structure: %s", p.ctx.Structure)
	case KindSegmentation:
		// Segmentation masks now exist for the whole cohort.
		p.ctx.Globals["with-segmentation"] = true
	}
}

func (p *Pipeline) dumpParams(resolved Params) {
	keys := make([]string, 0, len(resolved))
	for k := range resolved {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.log.Infof("    %s: %s", k, resolved.Str(k))
	}
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Second:
		d = d.Round(time.Second)
	case d > time.Millisecond:
		d = d.Round(time.Millisecond)
	case d > time.Microsecond:
		d = d.Round(time.Microsecond)
	}
	return d
}
