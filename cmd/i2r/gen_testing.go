package main

import (
	"github.com/spf13/cobra"

	"github.com/FlTixier/I2R/internal/logging"
	"github.com/FlTixier/I2R/pkg/testgen"
)

var (
	genReference string
	genStrategy  string
	genPredict   bool
	genLogSuffix string
)

var genTestingCmd = &cobra.Command{
	Use:   "gen-testing",
	Short: "Generate a testing pipeline file from the training one",
	Long: `gen-testing rewrites the PIPELINE file used to train a radiomics model so
the same processing chain can run on a testing set: input folders are rebound
according to the chosen strategy, log files get a suffix, DELETE stages are
dropped and the feature stages are pointed at the trained model's artifacts.`,
	RunE: runGenTesting,
}

func init() {
	genTestingCmd.Flags().StringVarP(&genReference, "reference", "r", "", "folder with the training PIPELINE file and model artifacts")
	genTestingCmd.Flags().StringVarP(&genStrategy, "strategy", "s", "manual", "input folder strategy: manual, suffix or auto")
	genTestingCmd.Flags().BoolVarP(&genPredict, "predict", "p", false, "append a PREDICT stage bound to the model file")
	genTestingCmd.Flags().StringVar(&genLogSuffix, "suffix", "testing", "suffix inserted into log file names")
	_ = genTestingCmd.MarkFlagRequired("reference")
	rootCmd.AddCommand(genTestingCmd)
}

func runGenTesting(_ *cobra.Command, _ []string) error {
	log, closeLog, err := logging.New(logging.Options{})
	if err != nil {
		return err
	}
	defer closeLog()

	gen := testgen.New(testgen.Options{
		ReferenceFolder: genReference,
		Strategy:        testgen.Strategy(genStrategy),
		AddPredict:      genPredict,
		LogSuffix:       genLogSuffix,
	}, testgen.NewTerminal(nil, nil), log)

	if _, err := gen.Generate(); err != nil {
		log.Errorf("%v", err)
		return err
	}
	return nil
}
