package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStage(kind StageKind, pairs ...string) *RawStage {
	stage := NewRawStage(kind)
	for i := 0; i+1 < len(pairs); i += 2 {
		stage.Set(pairs[i], pairs[i+1])
	}
	return stage
}

func TestResolveFillsDefaults(t *testing.T) {
	t.Parallel()
	ctx := NewContext()
	p, _, err := Resolve(newStage(KindCheckFolder, "inputFolder", "/data/study"), ctx)
	require.NoError(t, err)

	assert.Equal(t, true, p["with-segmentation"])
	assert.Equal(t, false, p["verbose"])
	assert.Equal(t, false, p["timer"])
	assert.Equal(t, "", p["log"])
	assert.Equal(t, "CHECK_FOLDER", p["function"])
}

func TestResolveDefaultsDoNotOverride(t *testing.T) {
	t.Parallel()
	ctx := NewContext()
	p, _, err := Resolve(newStage(KindCheckFolder,
		"inputFolder", "/data/study",
		"with-segmentation", "False",
	), ctx)
	require.NoError(t, err)
	assert.Equal(t, false, p["with-segmentation"])
}

func TestResolveGlobalsOverlay(t *testing.T) {
	t.Parallel()
	ctx := NewContext()
	ctx.Globals["verbose"] = true
	ctx.Globals["multiprocessing"] = 8

	p, _, err := Resolve(newStage(KindDCM2NII,
		"inputFolder", "/data/study",
		"outputFolderSuffix", "nii",
		"multiprocessing", "2",
	), ctx)
	require.NoError(t, err)

	assert.Equal(t, true, p["verbose"], "global flows into the stage")
	assert.Equal(t, 2, p["multiprocessing"], "stage value wins over the global")
}

func TestResolveMissingInputFolder(t *testing.T) {
	t.Parallel()
	_, _, err := Resolve(newStage(KindDCM2NII), NewContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingInputFolder)
	assert.True(t, IsFatal(err))
}

func TestResolveCLIToken(t *testing.T) {
	t.Parallel()
	ctx := NewContext()
	ctx.InputPath = "/data/cli"
	p, _, err := Resolve(newStage(KindCheckFolder, "inputFolder", "."), ctx)
	require.NoError(t, err)
	assert.Equal(t, "/data/cli", p["inputFolder"])
}

func TestResolveCLITokenWithoutInputPath(t *testing.T) {
	t.Parallel()
	_, _, err := Resolve(newStage(KindCheckFolder, "inputFolder", "."), NewContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInputPathRequired)
	assert.True(t, IsFatal(err))
}

func TestResolvePreviousTokenThenSuffix(t *testing.T) {
	t.Parallel()
	ctx := NewContext()
	ctx.PreviousOutput = "/data/run1/"

	p, _, err := Resolve(newStage(KindDCM2NII,
		"inputFolder", "PREVIOUS_BLOCK_OUTPUT_FOLDER",
		"outputFolderSuffix", "nii",
	), ctx)
	require.NoError(t, err)

	// the token is substituted first, the suffix derives from the result
	assert.Equal(t, "/data/run1/", p["inputFolder"])
	assert.Equal(t, "/data/run1_nii", p["outputFolder"])
}

func TestResolvePreviousTokenNotSubstitutedForCheckFolder(t *testing.T) {
	t.Parallel()
	ctx := NewContext()
	ctx.PreviousOutput = "/data/run1"

	p, _, err := Resolve(newStage(KindCheckFolder, "inputFolder", "PREVIOUS_BLOCK_OUTPUT_FOLDER"), ctx)
	require.NoError(t, err)
	assert.Equal(t, "PREVIOUS_BLOCK_OUTPUT_FOLDER", p["inputFolder"])
}

func TestResolveOutputFolderRequired(t *testing.T) {
	t.Parallel()
	for _, kind := range []StageKind{KindDCM2NII, KindSpatialResampling} {
		_, _, err := Resolve(newStage(kind, "inputFolder", "/data/study"), NewContext())
		require.Error(t, err, kind)
		assert.ErrorIs(t, err, ErrMissingOutFolder)
	}
}

func TestResolveMergeMasksSelection(t *testing.T) {
	t.Parallel()

	_, _, err := Resolve(newStage(KindMergeMasks, "inputFolder", "/d"), NewContext())
	require.Error(t, err, "neither reg nor add")
	assert.True(t, IsFatal(err))

	_, _, err = Resolve(newStage(KindMergeMasks,
		"inputFolder", "/d", "reg", "GTV.*", "add", "[gtv1,gtv2]",
	), NewContext())
	require.Error(t, err, "both reg and add")

	p, _, err := Resolve(newStage(KindMergeMasks,
		"inputFolder", "/d", "add", "[gtv1,gtv2]",
	), NewContext())
	require.NoError(t, err)
	assert.Equal(t, "", p["sub"], "sub defaults to empty when only add is given")
}

func TestResolveMaskThresholdingBounds(t *testing.T) {
	t.Parallel()
	p, _, err := Resolve(newStage(KindMaskThresholding, "inputFolder", "/d"), NewContext())
	require.NoError(t, err)
	assert.Equal(t, dblMin, p["min_threshold"])
	assert.Equal(t, math.MaxFloat64, p["max_threshold"])
	assert.Equal(t, "mask_thresholding", p["suffix_name"])
}

func TestResolveWindowingDefaults(t *testing.T) {
	t.Parallel()
	p, _, err := Resolve(newStage(KindWindowing, "inputFolder", "/d"), NewContext())
	require.NoError(t, err)
	assert.Equal(t, -5000, p["window_level"])
	assert.Equal(t, -5000, p["window_width"])
}

func TestResolveImageHarmonizeRequiresReference(t *testing.T) {
	t.Parallel()
	_, _, err := Resolve(newStage(KindImageHarmonize, "inputFolder", "/d"), NewContext())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "reference image")
}

func TestResolveRadiomicsRequiresConfig(t *testing.T) {
	t.Parallel()
	_, _, err := Resolve(newStage(KindRadiomics, "inputFolder", "/d"), NewContext())
	require.Error(t, err)
	assert.True(t, IsFatal(err))

	p, _, err := Resolve(newStage(KindRadiomics,
		"inputFolder", "/d", "configs", "all.csv",
	), NewContext())
	require.NoError(t, err)
	assert.Equal(t, "", p["pyradiomics_config"], "the other config defaults to empty")
	assert.Equal(t, "~/", p["outputFolder"], "results land in the home folder by default")
}

func TestResolveRadiomicsSaveAtTheEndDemotion(t *testing.T) {
	t.Parallel()
	p, warnings, err := Resolve(newStage(KindRadiomics,
		"inputFolder", "/d",
		"configs", "all.csv",
		"save_at_the_end", "True",
		"multiprocessing", "4",
	), NewContext())
	require.NoError(t, err)
	assert.Equal(t, false, p["save_at_the_end"])
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "save_at_the_end")

	// a single worker keeps the requested behaviour
	p, warnings, err = Resolve(newStage(KindRadiomics,
		"inputFolder", "/d",
		"configs", "all.csv",
		"save_at_the_end", "True",
	), NewContext())
	require.NoError(t, err)
	assert.Equal(t, true, p["save_at_the_end"])
	assert.Empty(t, warnings)
}

func TestResolveDeletePreviousToken(t *testing.T) {
	t.Parallel()
	ctx := NewContext()
	ctx.PreviousOutput = "/data/run1_nii"

	p, _, err := Resolve(newStage(KindDelete, "folder", "PREVIOUS_BLOCK_OUTPUT_FOLDER"), ctx)
	require.NoError(t, err)
	assert.Equal(t, "/data/run1_nii", p["folder"])

	_, _, err = Resolve(newStage(KindDelete), ctx)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestResolveSegmentationImageFilename(t *testing.T) {
	t.Parallel()
	p, _, err := Resolve(newStage(KindSegmentation, "inputFolder", "/d"), NewContext())
	require.NoError(t, err)
	assert.Equal(t, "nifti", p["image_type"])
	assert.Equal(t, "", p["image_filename"])

	p, _, err = Resolve(newStage(KindSegmentation,
		"inputFolder", "/d", "image_type", "dicom",
	), NewContext())
	require.NoError(t, err)
	assert.Equal(t, "DCM", p["image_filename"])
}

func TestResolveUnknownKind(t *testing.T) {
	t.Parallel()
	_, _, err := Resolve(newStage(StageKind("MYSTERY")), NewContext())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestResolveConfigErrorCarriesLine(t *testing.T) {
	t.Parallel()
	stage := newStage(KindDCM2NII)
	stage.Line = 12
	_, _, err := Resolve(stage, NewContext())
	require.Error(t, err)

	cfgErr := &ConfigError{}
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 12, cfgErr.Line)
	assert.Equal(t, KindDCM2NII, cfgErr.Stage)
}
