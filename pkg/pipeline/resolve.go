package pipeline

import (
	"math"
	"strings"
)

// Reserved inputFolder tokens. They defer path resolution to run time and are
// substituted during stage parameter resolution, never earlier.
const (
	TokenCLIInput       = "."
	TokenPreviousOutput = "PREVIOUS_BLOCK_OUTPUT_FOLDER"
)

const dblMin = 2.2250738585072014e-308

// Resolve builds the final typed parameter set for one stage: a copy of the
// global parameters, overlaid with the stage's own values, then filled with
// the stage kind's defaults and validated against its required parameters.
// The returned warnings are diagnostics that do not stop the run.
func Resolve(raw *RawStage, ctx *Context) (Params, []string, error) {
	p := ctx.Globals.Clone()
	for _, key := range raw.Keys() {
		value, _ := raw.Get(key)
		p[key] = Coerce(value)
	}
	p["function"] = string(raw.Kind)

	var warnings []string
	var err error
	switch raw.Kind {
	case KindCheckFolder:
		err = resolveCheckFolder(p, ctx)
	case KindReorganize:
		err = resolveReorganize(p, ctx)
	case KindDCM2NII:
		err = resolveDCM2NII(p, ctx)
	case KindSpatialResampling:
		err = resolveSpatialResampling(p, ctx)
	case KindIntensityResample:
		err = resolveIntensityResampling(p, ctx)
	case KindMergeMasks:
		err = resolveMergeMasks(p, ctx)
	case KindMaskThresholding:
		err = resolveMaskThresholding(p, ctx)
	case KindWindowing:
		err = resolveWindowing(p, ctx)
	case KindImageHarmonize:
		err = resolveImageHarmonize(p, ctx)
	case KindN4BiasCorrection:
		err = resolveN4(p, ctx)
	case KindRadiomics:
		warnings, err = resolveRadiomics(p, ctx)
	case KindDelete:
		err = resolveDelete(p, ctx)
	case KindSegmentation:
		err = resolveSegmentation(p, ctx)
	case KindFeatureNormalize:
		err = resolveFeatureNormalize(p, ctx)
	case KindFeatureHarmonize:
		err = resolveFeatureHarmonize(p, ctx)
	case KindPredict:
		err = resolvePredict(p, ctx)
	case KindCopy:
		err = resolveCopy(p, ctx)
	default:
		err = configErrorf(raw.Kind, "the module %q does not exist", raw.Kind)
	}
	if err != nil {
		if cfgErr, ok := err.(*ConfigError); ok && cfgErr.Line == 0 {
			cfgErr.Line = raw.Line
		}
		return nil, nil, err
	}
	return p, warnings, nil
}

// fillRunDefaults covers the bookkeeping parameters every stage understands.
func fillRunDefaults(p Params) {
	p.setDefault("timer", false)
	p.setDefault("verbose", false)
	p.setDefault("new_log_file", false)
	p.setDefault("log", "")
}

// fillBatchDefaults covers the per-subject batching parameters shared by the
// multiprocessing collaborators.
func fillBatchDefaults(p Params) {
	p.setDefault("skip", "")
	p.setDefault("include", "")
	p.setDefault("multiprocessing", 1)
}

// resolveInputFolder enforces the inputFolder requirement and substitutes the
// run-time tokens: '.' becomes the command-line input path,
// PREVIOUS_BLOCK_OUTPUT_FOLDER becomes the last recorded output folder.
func resolveInputFolder(p Params, ctx *Context, kind StageKind, allowPrevious bool) error {
	if !p.Has("inputFolder") {
		return &ConfigError{Stage: kind, Err: ErrMissingInputFolder}
	}
	switch p.Str("inputFolder") {
	case TokenCLIInput:
		if ctx.InputPath == "" {
			return &ConfigError{Stage: kind, Err: ErrInputPathRequired}
		}
		p["inputFolder"] = ctx.InputPath
	case TokenPreviousOutput:
		if allowPrevious {
			p["inputFolder"] = ctx.PreviousOutput
		}
	}
	return nil
}

// deriveOutputFolder fills a missing outputFolder from outputFolderSuffix
// (inputFolder with its trailing slash stripped, '_', suffix). When no suffix
// is configured either, the stage gets fallback, or an error when the kind
// cannot run without an output folder.
func deriveOutputFolder(p Params, kind StageKind, required bool, fallback string) error {
	if p.Has("outputFolder") {
		return nil
	}
	if p.Has("outputFolderSuffix") {
		in := strings.TrimRight(p.Str("inputFolder"), "/")
		p["outputFolder"] = in + "_" + p.Str("outputFolderSuffix")
		return nil
	}
	if required {
		return &ConfigError{Stage: kind, Err: ErrMissingOutFolder}
	}
	p["outputFolder"] = fallback
	return nil
}

func resolveCheckFolder(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("with-segmentation", true)
	// The probe is always the first look at the cohort, so the previous-output
	// token is not substituted here.
	return resolveInputFolder(p, ctx, KindCheckFolder, false)
}

func resolveReorganize(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("with-segmentation", true)
	p.setDefault("all-data-with-segmentation", true)
	p.setDefault("inplace", false)
	p.setDefault("mv", false)
	fillBatchDefaults(p)
	if err := resolveInputFolder(p, ctx, KindReorganize, true); err != nil {
		return err
	}
	return deriveOutputFolder(p, KindReorganize, false, "")
}

func resolveDCM2NII(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("with-segmentation", true)
	p.setDefault("all-data-with-segmentation", true)
	p.setDefault("mask_regMatch", ".*")
	fillBatchDefaults(p)
	if err := resolveInputFolder(p, ctx, KindDCM2NII, true); err != nil {
		return err
	}
	return deriveOutputFolder(p, KindDCM2NII, true, "")
}

func resolveSpatialResampling(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("with-segmentation", true)
	p.setDefault("all-data-with-segmentation", true)
	p.setDefault("use_c3d", false)
	p.setDefault("voxel_size", 1)
	p.setDefault("image_interpolation", "Linear")
	p.setDefault("mask_interpolation", "NearestNeighbor")
	p.setDefault("suffix_name", "111")
	fillBatchDefaults(p)
	if err := resolveInputFolder(p, ctx, KindSpatialResampling, true); err != nil {
		return err
	}
	return deriveOutputFolder(p, KindSpatialResampling, true, "")
}

func resolveIntensityResampling(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("image_filename", "img.nii.gz")
	p.setDefault("mask_filename", "")
	p.setDefault("resampled_image_filename", "img_r.nii.gz")
	p.setDefault("suffix_name", "")
	p.setDefault("method", "binning_number")
	p.setDefault("n_bins", 256)
	p.setDefault("bin_width", 25)
	p.setDefault("min_scaling", 0)
	p.setDefault("max_scaling", 1)
	p.setDefault("lower_bound", 2)
	p.setDefault("upper_bound", 98)
	fillBatchDefaults(p)
	if err := resolveInputFolder(p, ctx, KindIntensityResample, true); err != nil {
		return err
	}
	return deriveOutputFolder(p, KindIntensityResample, false, "")
}

func resolveMergeMasks(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("image_filename", "img.nii.gz")
	p.setDefault("resampled_image_filename", "r_img.nii.gz")
	p.setDefault("mask_filename", "")
	fillBatchDefaults(p)
	// Exactly one way to select the masks: a regular expression, or an
	// add/sub pair. 'add' without 'sub' is tolerated and defaults 'sub' to
	// an empty selection.
	if p.Has("reg") == p.Has("add") {
		return configErrorf(KindMergeMasks,
			"to determine the masks to add and subtract, use the options add and sub OR reg")
	}
	if p.Has("add") {
		p.setDefault("sub", "")
	}
	if err := resolveInputFolder(p, ctx, KindMergeMasks, true); err != nil {
		return err
	}
	return deriveOutputFolder(p, KindMergeMasks, false, "")
}

func resolveMaskThresholding(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("image_filename", "img.nii.gz")
	p.setDefault("mask_filename", "msk.nii.gz")
	p.setDefault("suffix_name", "mask_thresholding")
	p.setDefault("min_threshold", dblMin)
	p.setDefault("max_threshold", math.MaxFloat64)
	fillBatchDefaults(p)
	if err := resolveInputFolder(p, ctx, KindMaskThresholding, true); err != nil {
		return err
	}
	return deriveOutputFolder(p, KindMaskThresholding, false, "")
}

func resolveWindowing(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("image_filename", "img.nii.gz")
	p.setDefault("windowed_image_filename", "img_w.nii.gz")
	p.setDefault("window_name", "")
	p.setDefault("suffix_name", "")
	p.setDefault("window_level", -5000)
	p.setDefault("window_width", -5000)
	fillBatchDefaults(p)
	if err := resolveInputFolder(p, ctx, KindWindowing, true); err != nil {
		return err
	}
	return deriveOutputFolder(p, KindWindowing, false, "")
}

func resolveImageHarmonize(p Params, ctx *Context) error {
	fillRunDefaults(p)
	if !p.Has("reference_image") {
		return configErrorf(KindImageHarmonize,
			"I-HARMONIZE requires a reference image to perform harmonization")
	}
	p.setDefault("image_filename", "img.nii.gz")
	p.setDefault("mask_filename", "")
	p.setDefault("reference_mask", "")
	p.setDefault("harmonized_image_filename", "h_img.nii.gz")
	p.setDefault("method", "histogram_matching")
	p.setDefault("n_bins", 256)
	p.setDefault("n_matchPoints", 10)
	p.setDefault("suffix_name", "")
	fillBatchDefaults(p)
	if err := resolveInputFolder(p, ctx, KindImageHarmonize, true); err != nil {
		return err
	}
	return deriveOutputFolder(p, KindImageHarmonize, false, "")
}

func resolveN4(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("image_filename", "img.nii.gz")
	p.setDefault("mask_filename", "")
	p.setDefault("corrected_image_filename", "img_n4biasCorr.nii.gz")
	p.setDefault("bias_field_image_filename", "")
	p.setDefault("suffix_name", "")
	fillBatchDefaults(p)
	if err := resolveInputFolder(p, ctx, KindN4BiasCorrection, true); err != nil {
		return err
	}
	return deriveOutputFolder(p, KindN4BiasCorrection, false, "")
}

func resolveRadiomics(p Params, ctx *Context) ([]string, error) {
	fillRunDefaults(p)
	p.setDefault("save_at_the_end", false)
	p.setDefault("stats_filename", "")
	if !p.Has("configs") && !p.Has("pyradiomics_config") {
		return nil, configErrorf(KindRadiomics,
			`neither "configs" nor "pyradiomics_config" is specified`)
	}
	p.setDefault("configs", "")
	p.setDefault("pyradiomics_config", "")
	p.setDefault("image_filename", "img.nii.gz")
	p.setDefault("mask_filename", "msk.nii.gz")
	p.setDefault("radiomics_filename", "radiomics.xlsx")
	fillBatchDefaults(p)
	if err := resolveInputFolder(p, ctx, KindRadiomics, true); err != nil {
		return nil, err
	}
	if err := deriveOutputFolder(p, KindRadiomics, false, "~/"); err != nil {
		return nil, err
	}
	var warnings []string
	if p.Bool("save_at_the_end") && p.Int("multiprocessing") > 1 {
		// Parallel workers stream partial results; a single end-of-run save
		// would lose them.
		p["save_at_the_end"] = false
		warnings = append(warnings,
			"with multiprocessing, radiomics results cannot be saved at the end; save_at_the_end was set to False")
	}
	return warnings, nil
}

func resolveDelete(p Params, ctx *Context) error {
	p.setDefault("timer", false)
	p.setDefault("verbose", false)
	p.setDefault("log", "")
	if !p.Has("folder") {
		return configErrorf(KindDelete, "no folder to delete")
	}
	if p.Str("folder") == TokenPreviousOutput {
		p["folder"] = ctx.PreviousOutput
	}
	return nil
}

func resolveSegmentation(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("skip-segmented-data", false)
	p.setDefault("method", "TotalSegmentator")
	p.setDefault("segmentation-list", "")
	p.setDefault("image_type", "nifti")
	p.setDefault("job_scheduler", "SGE")
	fillBatchDefaults(p)
	if !p.Has("image_filename") {
		if t := p.Str("image_type"); strings.EqualFold(t, "nifti") {
			p["image_filename"] = ""
		} else {
			p["image_filename"] = "DCM"
		}
	}
	return resolveInputFolder(p, ctx, KindSegmentation, true)
}

func resolveFeatureNormalize(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("outputFolder", "")
	p.setDefault("modelFolder", "")
	p.setDefault("radiomics_filename", "radiomics.xlsx")
	p.setDefault("normalized_radiomics_filename", "normalized_radiomics.xlsx")
	p.setDefault("stats_filename", "")
	p.setDefault("stratified", true)
	p.setDefault("method", "MinMax")
	p.setDefault("mode", "Internal")
	return resolveInputFolder(p, ctx, KindFeatureNormalize, true)
}

func resolveFeatureHarmonize(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("outputFolder", "")
	p.setDefault("modelFolder", "")
	p.setDefault("radiomics_filename", "radiomics.xlsx")
	p.setDefault("batch_filename", "radiomics.xlsx")
	p.setDefault("harmonized_radiomics_filename", "harmonized_radiomics.xlsx")
	p.setDefault("radiomics_from_model_filename", "")
	p.setDefault("batch_from_model_filename", "")
	p.setDefault("estimates_filename", "")
	p.setDefault("ref_batch", "None")
	p.setDefault("mode", "internal")
	p.setDefault("covars", "")
	return resolveInputFolder(p, ctx, KindFeatureHarmonize, true)
}

func resolvePredict(p Params, ctx *Context) error {
	fillRunDefaults(p)
	p.setDefault("outputFolder", "")
	p.setDefault("modelFolder", "")
	p.setDefault("radiomics_filename", "radiomics.xlsx")
	p.setDefault("predict_filename", "predict.xlsx")
	p.setDefault("model_filename", "model.pkl")
	return resolveInputFolder(p, ctx, KindPredict, true)
}

func resolveCopy(p Params, ctx *Context) error {
	p.setDefault("timer", false)
	p.setDefault("verbose", false)
	p.setDefault("log", "")
	p.setDefault("targetFolder", "")
	return resolveInputFolder(p, ctx, KindCopy, true)
}
