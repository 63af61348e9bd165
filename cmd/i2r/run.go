package main

import (
	"github.com/spf13/cobra"

	"github.com/FlTixier/I2R/internal/logging"
	"github.com/FlTixier/I2R/pkg/pipeline"
	"github.com/FlTixier/I2R/pkg/pipeline/runner"
)

var (
	runConfigFile string
	runInput      string
	runLogFile    string
	runNewLog     bool
	runVerbose    bool
	runPlanFile   string
	runScriptsDir string
	runFailFast   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a PIPELINE configuration file",
	Long: `run parses the PIPELINE file, resolves each stage's parameters and executes
the stages in order. Configuration errors abort the run with a non-zero exit
status; collaborator failures are logged and the run continues.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigFile, "config", "c", "", "PIPELINE configuration file")
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "input folder substituted for the '.' token")
	runCmd.Flags().StringVar(&runLogFile, "log", "", "redirect output to a log file")
	runCmd.Flags().BoolVar(&runNewLog, "new-log", false, "overwrite the log file instead of appending")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "dump resolved parameters for every stage")
	runCmd.Flags().StringVar(&runPlanFile, "plan", "", "write the execution plan as a DOT file")
	runCmd.Flags().StringVar(&runScriptsDir, "scripts", "", "directory holding the collaborator scripts")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "stop at the first failed stage")
	_ = runCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	log, closeLog, err := logging.New(logging.Options{
		LogFile: runLogFile,
		NewLog:  runNewLog,
		Verbose: runVerbose,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	stages, err := pipeline.ParseFile(runConfigFile)
	if err != nil {
		log.Errorf("%v", err)
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithRunner(runner.NewDispatcher(runScriptsDir, log)),
	}
	if runInput != "" {
		opts = append(opts, pipeline.WithInput(runInput))
	}
	if runPlanFile != "" {
		opts = append(opts, pipeline.WithPlan(runPlanFile))
	}
	if runVerbose {
		opts = append(opts, pipeline.WithVerbose())
	}
	if runFailFast {
		opts = append(opts, pipeline.WithFailFast())
	}

	pipe := pipeline.New(stages, opts...)
	if err := pipe.Run(cmd.Context()); err != nil {
		log.Errorf("%v", err)
		return err
	}
	if failed := pipe.StageErrors(); len(failed) > 0 {
		log.Warnf("%d stage(s) failed, check the log for details", len(failed))
	}
	return nil
}
