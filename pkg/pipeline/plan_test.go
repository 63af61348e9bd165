package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanWrite(t *testing.T) {
	t.Parallel()
	dotFile := filepath.Join(t.TempDir(), "plan.dot")

	pl := newPlan(dotFile)
	require.NoError(t, pl.addStage("1. CHECK_FOLDER", KindCheckFolder))
	require.NoError(t, pl.addStage("2. DCM2NII", KindDCM2NII))
	require.NoError(t, pl.setElapsed("2. DCM2NII", 1500*time.Millisecond))
	require.NoError(t, pl.write())

	content, err := os.ReadFile(dotFile)
	require.NoError(t, err)
	got := string(content)

	assert.Contains(t, got, "strict digraph")
	assert.Contains(t, got, `"1. CHECK_FOLDER"`)
	assert.Contains(t, got, `"1. CHECK_FOLDER" -> "2. DCM2NII"`)
	assert.Contains(t, got, "2s", "elapsed time is rounded into the label")
}

func TestKindColor(t *testing.T) {
	t.Parallel()
	seen := make(map[string]struct{})
	for _, kind := range []StageKind{
		KindCheckFolder, KindDCM2NII, KindSpatialResampling,
		KindSegmentation, KindRadiomics, KindDelete,
	} {
		hex, err := kindColor(kind)
		require.NoError(t, err)
		assert.Regexp(t, `^#[0-9a-fA-F]{6}$`, hex)
		seen[hex] = struct{}{}
	}
	assert.Len(t, seen, 6, "each kind family gets its own color")
}

func TestRound(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 2*time.Second, round(1500*time.Millisecond))
	assert.Equal(t, 12*time.Millisecond, round(12100*time.Microsecond))
	assert.Equal(t, 500*time.Nanosecond, round(500*time.Nanosecond))
}
