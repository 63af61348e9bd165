// Package pipeline runs a radiomics image-processing workflow described by a
// PIPELINE configuration file.
//
// A PIPELINE file is a sequence of named stage blocks. The parser turns the
// file into ordered stage records, the resolver types each block's values and
// fills the stage kind's defaults, and the dispatcher executes the stages one
// after another by invoking their collaborator programs with a stable flag
// vocabulary.
//
// Stages communicate through a shared run context: the folder probe records
// the cohort structure status that drives the reorganize branch, and every
// stage that declares an output folder becomes the target of the next
// stage's PREVIOUS_BLOCK_OUTPUT_FOLDER token.
//
// Errors split into two tiers. Configuration problems (malformed file,
// unknown stage, missing required parameter) abort the run before or at the
// offending stage. Collaborator failures are logged and the run continues, so
// one broken subject batch does not waste the remainder of a long run.
package pipeline
