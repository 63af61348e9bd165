// Command i2r runs a radiomics image-processing pipeline described by a
// PIPELINE configuration file, and generates testing pipeline files from the
// one used for training.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "i2r",
	Short: "img2radiomics pipeline runner",
	Long: `i2r executes a radiomics image-processing workflow described by a PIPELINE
configuration file: folder structure checks, reorganization, DICOM to NIfTI
conversion, image preprocessing, segmentation, radiomics extraction and
feature post-processing, each stage handled by its collaborator program.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
