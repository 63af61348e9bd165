package pipeline

// Collaborator scripts, one per stage kind. The no-reorganize script is the
// rename-only stand-in dispatched when the cohort folder is already Ready.
const (
	ScriptCheckFolder       = "StructFolderCheck.py"
	ScriptReorganize        = "reorganize_multiprocessing.py"
	ScriptNoReorganize      = "no_reorganize.py"
	ScriptDCM2NII           = "dcm2nii_multiprocessing.py"
	ScriptSpatialResampling = "NiftiSpatialResampling_multiprocessing.py"
	ScriptIntensityResample = "NiftiIntensityResampling_multiprocessing.py"
	ScriptMergeMasks        = "NiftiMergeVolumes_multiprocessing.py"
	ScriptMaskThresholding  = "NiftiMaskThresholding_multiprocessing.py"
	ScriptWindowing         = "NiftiWindowing_multiprocessing.py"
	ScriptImageHarmonize    = "NiftiImageHarmonization_multiprocessing.py"
	ScriptN4BiasCorrection  = "NiftiN4BiasFieldCorrection_multiprocessing.py"
	ScriptRadiomics         = "radiomics_multiprocessing.py"
	ScriptDelete            = "delete_folder.py"
	ScriptSegmentation      = "segmentation_multiprocessing.py"
	ScriptFeatureNormalize  = "feature_normalization.py"
	ScriptFeatureHarmonize  = "feature_harmonization.py"
	ScriptPredict           = "predict.py"
	ScriptCopy              = "copy_folder_contents.py"
)

// argvBuilder assembles a collaborator flag vector. The flag vocabulary is
// part of the external interface and must stay stable for existing
// collaborator scripts.
type argvBuilder struct {
	p    Params
	list []string
}

func (b *argvBuilder) opt(flag, key string) {
	b.list = append(b.list, flag, b.p.Str(key))
}

func (b *argvBuilder) optIfSet(flag, key string) {
	if b.p.Str(key) != "" {
		b.list = append(b.list, flag, b.p.Str(key))
	}
}

func (b *argvBuilder) boolFlag(flag, key string) {
	if b.p.Bool(key) {
		b.list = append(b.list, flag)
	}
}

func (b *argvBuilder) segmentationFlags() {
	if !b.p.Bool("with-segmentation") {
		b.list = append(b.list, "--no-segmentation")
	}
	if b.p.Bool("all-data-with-segmentation") && b.p.Bool("with-segmentation") {
		b.list = append(b.list, "--all-segmentation")
	}
}

func (b *argvBuilder) batchFlags() {
	b.optIfSet("-S", "skip")
	b.optIfSet("--include", "include")
}

func (b *argvBuilder) verboseFlags() {
	b.boolFlag("-v", "verbose")
	b.boolFlag("--new_log", "new_log_file")
}

// collaboratorArgv maps a resolved stage onto the collaborator script name
// and its deterministic flag vector.
func collaboratorArgv(kind StageKind, p Params) (string, []string) {
	b := &argvBuilder{p: p}
	switch kind {
	case KindCheckFolder:
		b.opt("-i", "inputFolder")
		b.opt("--log", "log")
		b.boolFlag("-v", "verbose")
		b.boolFlag("--new_log", "new_log_file")
		if !p.Bool("with-segmentation") {
			b.list = append(b.list, "--no-segmentation")
		}
		return ScriptCheckFolder, b.list

	case KindReorganize:
		b.opt("-i", "inputFolder")
		b.opt("-o", "outputFolder")
		b.opt("--log", "log")
		b.verboseFlags()
		b.segmentationFlags()
		b.boolFlag("--inplace", "inplace")
		b.batchFlags()
		b.opt("-j", "multiprocessing")
		return ScriptReorganize, b.list

	case KindDCM2NII:
		b.opt("-i", "inputFolder")
		b.opt("-o", "outputFolder")
		b.opt("--log", "log")
		b.opt("-j", "multiprocessing")
		b.opt("-m", "mask_regMatch")
		b.verboseFlags()
		b.segmentationFlags()
		b.batchFlags()
		return ScriptDCM2NII, b.list

	case KindSpatialResampling:
		b.opt("-i", "inputFolder")
		b.opt("-o", "outputFolder")
		b.opt("--log", "log")
		b.opt("-j", "multiprocessing")
		b.opt("-I", "image_interpolation")
		b.opt("-M", "mask_interpolation")
		b.opt("-s", "voxel_size")
		b.opt("-e", "suffix_name")
		b.verboseFlags()
		b.boolFlag("--use_c3d", "use_c3d")
		b.segmentationFlags()
		b.batchFlags()
		return ScriptSpatialResampling, b.list

	case KindIntensityResample:
		b.opt("-i", "inputFolder")
		b.opt("-o", "outputFolder")
		b.opt("--log", "log")
		b.opt("-j", "multiprocessing")
		b.opt("--img_name", "image_filename")
		b.opt("--msk_name", "mask_filename")
		b.opt("--resampled_img_name", "resampled_image_filename")
		b.opt("-e", "suffix_name")
		b.opt("--method", "method")
		b.opt("--n_bins", "n_bins")
		b.opt("--bin_width", "bin_width")
		b.opt("--scale_min", "min_scaling")
		b.opt("--scale_max", "max_scaling")
		b.opt("--lower_bound", "lower_bound")
		b.opt("--upper_bound", "upper_bound")
		b.verboseFlags()
		b.batchFlags()
		return ScriptIntensityResample, b.list

	case KindMergeMasks:
		b.opt("-i", "inputFolder")
		b.opt("-o", "outputFolder")
		b.opt("--log", "log")
		b.opt("-j", "multiprocessing")
		b.opt("-m", "mask_filename")
		if p.Has("add") {
			b.opt("--add", "add")
			b.opt("--sub", "sub")
		}
		if p.Has("reg") {
			b.opt("--reg", "reg")
		}
		b.verboseFlags()
		b.batchFlags()
		return ScriptMergeMasks, b.list

	case KindMaskThresholding:
		b.opt("-i", "inputFolder")
		b.opt("-o", "outputFolder")
		b.opt("--log", "log")
		b.opt("-j", "multiprocessing")
		b.opt("-M", "mask_filename")
		b.opt("-I", "image_filename")
		b.opt("--min_thr", "min_threshold")
		b.opt("--max_thr", "max_threshold")
		b.opt("-e", "suffix_name")
		b.verboseFlags()
		b.batchFlags()
		return ScriptMaskThresholding, b.list

	case KindWindowing:
		b.opt("-i", "inputFolder")
		b.opt("-o", "outputFolder")
		b.opt("--log", "log")
		b.opt("-j", "multiprocessing")
		b.opt("--img_name", "image_filename")
		b.opt("--windowed_img_name", "windowed_image_filename")
		b.opt("--WL", "window_level")
		b.opt("--WW", "window_width")
		b.opt("--preset", "window_name")
		b.opt("-e", "suffix_name")
		b.verboseFlags()
		b.batchFlags()
		return ScriptWindowing, b.list

	case KindImageHarmonize:
		b.opt("-i", "inputFolder")
		b.opt("-o", "outputFolder")
		b.opt("--log", "log")
		b.opt("-j", "multiprocessing")
		b.opt("--img_name", "image_filename")
		b.opt("--msk_name", "mask_filename")
		b.opt("--ref_img", "reference_image")
		b.opt("--ref_msk", "reference_mask")
		b.opt("--harmonized_img_name", "harmonized_image_filename")
		b.opt("--method", "method")
		b.opt("--n_bins", "n_bins")
		b.opt("--n_matchPoints", "n_matchPoints")
		b.opt("-e", "suffix_name")
		b.verboseFlags()
		b.batchFlags()
		return ScriptImageHarmonize, b.list

	case KindN4BiasCorrection:
		b.opt("-i", "inputFolder")
		b.opt("-o", "outputFolder")
		b.opt("--log", "log")
		b.opt("-j", "multiprocessing")
		b.opt("--img_name", "image_filename")
		b.opt("--msk_name", "mask_filename")
		b.opt("--corrected_img_name", "corrected_image_filename")
		b.opt("--bias_field_name", "bias_field_image_filename")
		b.opt("-e", "suffix_name")
		b.verboseFlags()
		b.batchFlags()
		return ScriptN4BiasCorrection, b.list

	case KindRadiomics:
		b.opt("-i", "inputFolder")
		b.opt("-o", "outputFolder")
		b.opt("--log", "log")
		b.opt("-j", "multiprocessing")
		b.opt("-I", "image_filename")
		b.opt("-M", "mask_filename")
		b.opt("-R", "radiomics_filename")
		b.opt("-c", "configs")
		b.opt("-p", "pyradiomics_config")
		b.opt("--stats_filename", "stats_filename")
		b.verboseFlags()
		b.boolFlag("-x", "save_at_the_end")
		b.batchFlags()
		return ScriptRadiomics, b.list

	case KindDelete:
		b.opt("-f", "folder")
		b.opt("--log", "log")
		b.boolFlag("-v", "verbose")
		return ScriptDelete, b.list

	case KindSegmentation:
		b.opt("-i", "inputFolder")
		b.opt("--log", "log")
		b.opt("-j", "multiprocessing")
		b.verboseFlags()
		b.boolFlag("--skip-segmented-data", "skip-segmented-data")
		b.batchFlags()
		b.opt("-m", "method")
		b.opt("-f", "segmentation-list")
		b.opt("-I", "image_filename")
		b.opt("-t", "image_type")
		b.opt("--job_scheduler", "job_scheduler")
		return ScriptSegmentation, b.list

	case KindFeatureNormalize:
		b.opt("-i", "inputFolder")
		b.opt("--log", "log")
		b.opt("-o", "outputFolder")
		b.opt("-m", "modelFolder")
		b.opt("-R", "radiomics_filename")
		b.opt("-N", "normalized_radiomics_filename")
		b.opt("-S", "stats_filename")
		b.opt("-M", "method")
		b.opt("--stratified", "stratified")
		b.opt("--norm_dataset", "mode")
		b.verboseFlags()
		return ScriptFeatureNormalize, b.list

	case KindFeatureHarmonize:
		b.opt("-i", "inputFolder")
		b.opt("--log", "log")
		b.opt("-o", "outputFolder")
		b.opt("-m", "modelFolder")
		b.opt("-r", "radiomics_filename")
		b.opt("-b", "batch_filename")
		b.opt("-R", "harmonized_radiomics_filename")
		b.opt("-E", "estimates_filename")
		b.opt("--radiomics_from_model", "radiomics_from_model_filename")
		b.opt("--batch_from_model", "batch_from_model_filename")
		b.opt("--ref_batch", "ref_batch")
		b.opt("-M", "mode")
		b.opt("--covars", "covars")
		b.verboseFlags()
		return ScriptFeatureHarmonize, b.list

	case KindPredict:
		b.opt("-i", "inputFolder")
		b.opt("--log", "log")
		b.opt("-o", "outputFolder")
		b.opt("-m", "modelFolder")
		b.opt("-r", "radiomics_filename")
		b.opt("-p", "predict_filename")
		b.opt("-M", "model_filename")
		b.verboseFlags()
		return ScriptPredict, b.list

	case KindCopy:
		b.opt("-i", "inputFolder")
		b.opt("--log", "log")
		b.opt("-o", "targetFolder")
		b.boolFlag("-v", "verbose")
		return ScriptCopy, b.list
	}
	return "", nil
}

// noReorganizeArgv is the flag vector for the rename-only collaborator used
// when REORGANIZE finds the folder already Ready.
func noReorganizeArgv(p Params) (string, []string) {
	b := &argvBuilder{p: p}
	b.opt("-i", "inputFolder")
	b.opt("-o", "outputFolder")
	b.opt("--log", "log")
	b.boolFlag("--mv", "mv")
	b.verboseFlags()
	return ScriptNoReorganize, b.list
}
