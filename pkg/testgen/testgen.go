// Package testgen derives a testing PIPELINE file from the one used to train
// a radiomics model, so the same processing chain can be replayed on a
// testing set or a prospective cohort. Input folders are rebound according to
// a strategy, log files get a distinguishing suffix, DELETE stages are
// dropped and the feature stages are pointed at the artifacts of the trained
// model.
package testgen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/FlTixier/I2R/pkg/pipeline"
)

// Strategy selects how new input folders are chosen for the testing file.
type Strategy string

const (
	// StrategyManual prompts a path for every stage.
	StrategyManual Strategy = "manual"
	// StrategySuffix prompts the first input folder and chains the rest
	// through outputFolderSuffix.
	StrategySuffix Strategy = "suffix"
	// StrategyAuto uses '.' and PREVIOUS_BLOCK_OUTPUT_FOLDER throughout.
	StrategyAuto Strategy = "auto"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyManual || s == StrategySuffix || s == StrategyAuto
}

const fileHeader = "#TESTING PIPELINE FILE GENERATED WITH i2r gen-testing\n"

// Options configure a Generator.
type Options struct {
	// ReferenceFolder holds the training PIPELINE file and model artifacts.
	ReferenceFolder string
	// Strategy for rebinding input folders; falls back to manual.
	Strategy Strategy
	// AddPredict appends a PREDICT stage bound to the model file.
	AddPredict bool
	// LogSuffix is inserted into log file names (default "testing").
	LogSuffix string
}

// Generator rewrites a training pipeline file for a testing set.
type Generator struct {
	opts   Options
	prompt Prompter
	log    *zap.SugaredLogger
}

// New creates a generator.
func New(opts Options, prompt Prompter, log *zap.SugaredLogger) *Generator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.LogSuffix == "" {
		opts.LogSuffix = "testing"
	}
	if !opts.Strategy.Valid() {
		log.Warnf("unknown input-folder strategy %q, falling back to manual prompts", opts.Strategy)
		opts.Strategy = StrategyManual
	}
	return &Generator{opts: opts, prompt: prompt, log: log}
}

// Generate prompts for the training file and the new file name, rewrites the
// stages and writes the testing file next to the model. It returns the path
// of the created file.
func (g *Generator) Generate() (string, error) {
	ref := g.opts.ReferenceFolder
	if ref == "" {
		return "", errors.New("no reference folder specified")
	}
	if _, err := os.Stat(ref); err != nil {
		return "", errors.Wrapf(err, "unable to access reference folder %s", ref)
	}

	trainingFile, err := g.prompt.SelectFile(ref,
		"Select the PIPELINE file that was used to extract radiomics from the training set (Enter '0' to quit): ")
	if err != nil {
		return "", err
	}

	testingFile, err := g.promptNewFileName(ref)
	if err != nil {
		return "", err
	}

	stages, err := pipeline.ParseFile(filepath.Join(ref, trainingFile))
	if err != nil {
		return "", err
	}

	out, err := os.Create(filepath.Join(ref, testingFile))
	if err != nil {
		return "", errors.Wrapf(err, "unable to create %s", testingFile)
	}
	defer out.Close()

	if err := g.Rewrite(stages, out); err != nil {
		return "", err
	}
	g.log.Infof("new PIPELINE file has been successfully created (%s)", testingFile)
	return filepath.Join(ref, testingFile), nil
}

func (g *Generator) promptNewFileName(ref string) (string, error) {
	entries, err := os.ReadDir(ref)
	if err != nil {
		return "", errors.Wrapf(err, "unable to read %s", ref)
	}
	existing := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		existing[entry.Name()] = struct{}{}
	}
	for {
		name, err := g.prompt.Path("Name of the new pipeline file for testing set: ")
		if err != nil {
			return "", err
		}
		if _, taken := existing[name]; !taken {
			return name, nil
		}
		g.log.Warnf("file already exists in %s, please enter a different name", ref)
	}
}

// rewriteState chains the rebound folders from stage to stage.
type rewriteState struct {
	newInput     string
	resultFolder string
}

// Rewrite transforms the training stages and writes the testing file to w.
// Comment and blank lines of the training file are copied through verbatim.
func (g *Generator) Rewrite(stages []*pipeline.RawStage, w io.Writer) error {
	if _, err := io.WriteString(w, fileHeader); err != nil {
		return errors.Wrap(err, "unable to write testing pipeline file")
	}

	state := &rewriteState{}
	for _, raw := range stages {
		stage := raw.Clone()
		keep, err := g.rewriteStage(stage, state)
		if err != nil {
			return err
		}
		if !keep {
			// the block goes away but the commentary around it stays
			if err := writeLines(w, stage.Leading()); err != nil {
				return err
			}
			continue
		}
		if len(stage.Leading()) == 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return errors.Wrap(err, "unable to write testing pipeline file")
			}
		}
		if _, err := stage.WriteTo(w); err != nil {
			return errors.Wrap(err, "unable to write testing pipeline file")
		}
	}

	if g.opts.AddPredict {
		predict, err := g.predictStage(state)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return errors.Wrap(err, "unable to write testing pipeline file")
		}
		if _, err := predict.WriteTo(w); err != nil {
			return errors.Wrap(err, "unable to write testing pipeline file")
		}
	}
	return nil
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return errors.Wrap(err, "unable to write testing pipeline file")
		}
	}
	return nil
}

// rewriteStage mutates one stage for the testing set and reports whether the
// stage is kept in the generated file.
func (g *Generator) rewriteStage(stage *pipeline.RawStage, state *rewriteState) (bool, error) {
	g.suffixLog(stage)

	switch stage.Kind {
	case pipeline.KindGlobalParameters:
		return true, nil

	case pipeline.KindDelete:
		// The testing run keeps its intermediate folders.
		return false, nil

	case pipeline.KindCheckFolder:
		// Under auto the chain state stays untouched, so REORGANIZE still
		// starts from '.' instead of a previous output that does not exist.
		err := g.rebindInput(stage, state, rebind{
			label:           "CHECK_FOLDER",
			skipStateUpdate: g.opts.Strategy == StrategyAuto,
		})
		return true, err

	case pipeline.KindReorganize:
		err := g.rebindInput(stage, state, rebind{label: "REORGANIZE", suffix: "ready", promptOut: true})
		return true, err

	case pipeline.KindDCM2NII:
		err := g.rebindInput(stage, state, rebind{label: "DCM2NII", suffix: "nii", promptOut: true, dropSkip: true})
		return true, err

	case pipeline.KindSpatialResampling, pipeline.KindIntensityResample:
		err := g.rebindInput(stage, state, rebind{label: "RESAMPLING", suffix: "resampled", promptOut: true, dropSkip: true})
		return true, err

	case pipeline.KindMergeMasks, pipeline.KindMaskThresholding, pipeline.KindWindowing,
		pipeline.KindImageHarmonize, pipeline.KindN4BiasCorrection, pipeline.KindCopy:
		err := g.rebindInput(stage, state, rebind{label: string(stage.Kind), promptOut: true, dropSkip: true})
		return true, err

	case pipeline.KindSegmentation:
		err := g.rebindInput(stage, state, rebind{label: "SEGMENTATION", dropSkip: true})
		return true, err

	case pipeline.KindRadiomics:
		return true, g.rewriteRadiomics(stage, state)

	case pipeline.KindFeatureNormalize:
		return true, g.rewriteFeatureNormalize(stage, state)

	case pipeline.KindFeatureHarmonize:
		return true, g.rewriteFeatureHarmonize(stage, state)

	case pipeline.KindPredict:
		stage.Set("inputFolder", state.resultFolder)
		return true, nil
	}
	return true, nil
}

// rebind describes how one stage's folders are rebound.
type rebind struct {
	label           string
	suffix          string // outputFolderSuffix for the chaining strategies
	promptOut       bool   // manual strategy also asks for an output folder
	dropSkip        bool
	skipStateUpdate bool
}

func (g *Generator) rebindInput(stage *pipeline.RawStage, state *rewriteState, rb rebind) error {
	if _, ok := stage.Get("inputFolder"); !ok {
		return nil
	}
	stage.Delete("outputFolder")
	stage.Delete("outputFolderSuffix")
	if rb.dropSkip {
		stage.Delete("skip")
	}

	switch g.opts.Strategy {
	case StrategyManual:
		in, err := g.prompt.Path(fmt.Sprintf("Enter the input path to use for the testing set (module %s): ", rb.label))
		if err != nil {
			return err
		}
		stage.Set("inputFolder", in)
		state.newInput = in
		if rb.promptOut {
			out, err := g.prompt.Path(fmt.Sprintf("Enter the output path to use for the testing set (module %s): ", rb.label))
			if err != nil {
				return err
			}
			if out != "" {
				stage.Set("outputFolder", out)
				state.newInput = out
			}
		}

	case StrategySuffix:
		in := state.newInput
		if in == "" {
			prompted, err := g.prompt.Path(fmt.Sprintf("Enter the input path to use for the testing set (module %s): ", rb.label))
			if err != nil {
				return err
			}
			in = prompted
		}
		stage.Set("inputFolder", in)
		if rb.suffix != "" {
			stage.Set("outputFolderSuffix", rb.suffix)
			in = strings.TrimRight(in, "/") + "_" + rb.suffix
		}
		state.newInput = in

	case StrategyAuto:
		in := pipeline.TokenCLIInput
		if state.newInput != "" {
			in = pipeline.TokenPreviousOutput
		}
		stage.Set("inputFolder", in)
		if rb.suffix != "" {
			stage.Set("outputFolderSuffix", rb.suffix)
		}
		if !rb.skipStateUpdate {
			state.newInput = in
		}
	}
	return nil
}

func (g *Generator) rewriteRadiomics(stage *pipeline.RawStage, state *rewriteState) error {
	stage.Delete("outputFolderSuffix")
	stage.Delete("skip")
	stage.Set("inputFolder", state.newInput)

	result, err := g.prompt.Path("Enter the path to use for saving new results (module RADIOMICS): ")
	if err != nil {
		return err
	}
	stage.Set("outputFolder", result)
	state.resultFolder = result
	return nil
}

func (g *Generator) rewriteFeatureNormalize(stage *pipeline.RawStage, state *rewriteState) error {
	stage.Delete("outputFolder")
	stage.Delete("outputFolderSuffix")
	stage.Set("inputFolder", state.resultFolder)
	stage.Set("modelFolder", g.opts.ReferenceFolder)

	stats, err := g.prompt.SelectFile(g.opts.ReferenceFolder,
		"Select the Excel file that contains statistics on radiomics features used for the training set (0 to quit): ")
	if err != nil {
		return err
	}
	stage.Set("stats_filename", stats)
	stage.Set("mode", "External")
	return nil
}

func (g *Generator) rewriteFeatureHarmonize(stage *pipeline.RawStage, state *rewriteState) error {
	stage.Delete("outputFolder")
	stage.Delete("outputFolderSuffix")
	stage.Set("inputFolder", state.resultFolder)

	if _, ok := stage.Get("batch_filename"); ok {
		batch, err := g.prompt.Path("Enter excel file with batch information for the testing set: ")
		if err != nil {
			return err
		}
		stage.Set("batch_filename", batch)
	}

	stage.Set("modelFolder", g.opts.ReferenceFolder)
	radiomics, err := g.prompt.SelectFile(g.opts.ReferenceFolder,
		"Select the Excel file that contains radiomics features used for the training set (0 to quit): ")
	if err != nil {
		return err
	}
	stage.Set("radiomics_from_model_filename", radiomics)

	batch, err := g.prompt.SelectFile(g.opts.ReferenceFolder,
		"Select the Excel file that contains batch information for the patients in the training set (0 to quit): ")
	if err != nil {
		return err
	}
	stage.Set("batch_from_model_filename", batch)
	stage.Set("mode", "External")
	return nil
}

// predictStage builds the appended PREDICT block bound to the trained model.
func (g *Generator) predictStage(state *rewriteState) (*pipeline.RawStage, error) {
	model, err := g.prompt.SelectFile(g.opts.ReferenceFolder,
		"Select the pickle file (.pkl) that contains the radiomics model to apply to the testing set (0 to quit): ")
	if err != nil {
		return nil, err
	}

	stage := pipeline.NewRawStage(pipeline.KindPredict)
	stage.Set("inputFolder", state.resultFolder)
	stage.Set("modelFolder", g.opts.ReferenceFolder)
	stage.Set("model_filename", model)
	stage.Set("predict_filename", "model_prediction.xlsx")
	stage.Set("log", "log_model_prediction.out")
	return stage, nil
}

// suffixLog inserts the log suffix before the log file extension.
func (g *Generator) suffixLog(stage *pipeline.RawStage) {
	log, ok := stage.Get("log")
	if !ok || log == "" {
		return
	}
	dir, file := filepath.Split(log)
	ext := filepath.Ext(file)
	root := strings.TrimSuffix(file, ext)
	stage.Set("log", filepath.Join(dir, root+"_"+g.opts.LogSuffix+ext))
}
