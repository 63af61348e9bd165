package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
#img2radiomics training pipeline

GLOBAL_PARAMETERS:
{
    verbose: True
    multiprocessing: 4
}

CHECK_FOLDER: #verify cohort layout
{
    inputFolder: /data/study
    with-segmentation: False
    log: /logs/check.log #appended
}

DCM2NII:
{
    inputFolder: /data/study
    outputFolderSuffix: nii
}
`

func TestParse(t *testing.T) {
	t.Parallel()
	stages, err := Parse(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	require.Len(t, stages, 3)

	assert.Equal(t, KindGlobalParameters, stages[0].Kind)
	assert.Equal(t, KindCheckFolder, stages[1].Kind)
	assert.Equal(t, KindDCM2NII, stages[2].Kind)

	assert.Equal(t, 4, stages[0].Line)
	assert.Equal(t, 10, stages[1].Line)

	assert.Equal(t, []string{"verbose", "multiprocessing"}, stages[0].Keys())

	v, ok := stages[1].Get("inputFolder")
	require.True(t, ok)
	assert.Equal(t, "/data/study", v)

	// trailing comments are stripped from values
	v, ok = stages[1].Get("log")
	require.True(t, ok)
	assert.Equal(t, "/logs/check.log", v)
}

func TestParseValueWithColon(t *testing.T) {
	t.Parallel()
	stages, err := Parse(strings.NewReader("DELETE:\n{\n    folder: C:/tmp/run\n}\n"))
	require.NoError(t, err)
	require.Len(t, stages, 1)

	v, ok := stages[0].Get("folder")
	require.True(t, ok)
	assert.Equal(t, "C:/tmp/run", v)
}

func TestParseUnknownModule(t *testing.T) {
	t.Parallel()
	_, err := Parse(strings.NewReader("GLOBAL_PARAMETERS:\n{\n}\nFROBNICATE:\n{\n}\n"))
	require.Error(t, err)

	cfgErr := &ConfigError{}
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 4, cfgErr.Line)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	tcs := map[string]struct {
		input string
	}{
		"missing brace":    {input: "CHECK_FOLDER:\ninputFolder: /data\n"},
		"missing colon":    {input: "CHECK_FOLDER:\n{\ninputFolder /data\n}\n"},
		"empty key":        {input: "CHECK_FOLDER:\n{\n: /data\n}\n"},
		"duplicate key":    {input: "CHECK_FOLDER:\n{\nlog: a\nlog: b\n}\n"},
		"unterminated":     {input: "CHECK_FOLDER:\n{\ninputFolder: /data\n"},
		"header after eof": {input: "CHECK_FOLDER:\n"},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.True(t, IsFatal(err))
		})
	}
}

func TestRawStageRoundTrip(t *testing.T) {
	t.Parallel()
	stages, err := Parse(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	var buf bytes.Buffer
	for _, stage := range stages {
		_, err := stage.WriteTo(&buf)
		require.NoError(t, err)
	}

	again, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, again, len(stages))
	for i, stage := range stages {
		assert.Equal(t, stage.Kind, again[i].Kind)
		assert.Equal(t, stage.Keys(), again[i].Keys())
		for _, key := range stage.Keys() {
			want, _ := stage.Get(key)
			got, _ := again[i].Get(key)
			assert.Equal(t, want, got)
		}
	}
}

func TestRawStageRoundTripKeepsComments(t *testing.T) {
	t.Parallel()
	config := `# training pipeline for the lung cohort

CHECK_FOLDER:
{
    # structural probe
    inputFolder: /data/in
}

# conversion
DCM2NII:
{
    inputFolder: /data/in
    outputFolderSuffix: nii
}
# end of file
`
	stages, err := Parse(strings.NewReader(config))
	require.NoError(t, err)
	require.Len(t, stages, 2)

	var buf bytes.Buffer
	for _, stage := range stages {
		_, err := stage.WriteTo(&buf)
		require.NoError(t, err)
	}
	out := buf.String()

	assert.Contains(t, out, "# training pipeline for the lung cohort")
	assert.Contains(t, out, "    # structural probe\n    inputFolder: /data/in")
	assert.Contains(t, out, "# conversion")
	assert.Contains(t, out, "# end of file")

	again, err := Parse(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, []string{"inputFolder", "outputFolderSuffix"}, again[1].Keys())
}

func TestRawStageSetDelete(t *testing.T) {
	t.Parallel()
	stage := NewRawStage(KindRadiomics)
	stage.Set("inputFolder", "/a")
	stage.Set("configs", "all.csv")
	stage.Set("inputFolder", "/b")
	assert.Equal(t, []string{"inputFolder", "configs"}, stage.Keys())

	v, _ := stage.Get("inputFolder")
	assert.Equal(t, "/b", v)

	stage.Delete("inputFolder")
	assert.Equal(t, []string{"configs"}, stage.Keys())
	_, ok := stage.Get("inputFolder")
	assert.False(t, ok)
}

func TestParseFile(t *testing.T) {
	t.Parallel()
	stages, err := ParseFile("testdata/training.pipeline")
	require.NoError(t, err)
	require.NotEmpty(t, stages)
	assert.Equal(t, KindGlobalParameters, stages[0].Kind)
}
