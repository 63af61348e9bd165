package pipeline

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestConfigErrorMessage(t *testing.T) {
	t.Parallel()
	tcs := map[string]struct {
		err  *ConfigError
		want string
	}{
		"stage and line": {
			err:  &ConfigError{Stage: KindDCM2NII, Line: 12, Err: ErrMissingOutFolder},
			want: "DCM2NII (line 12): no output folder specified",
		},
		"stage only": {
			err:  &ConfigError{Stage: KindRadiomics, Err: errors.New("boom")},
			want: "RADIOMICS: boom",
		},
		"line only": {
			err:  &ConfigError{Line: 3, Err: errors.New("boom")},
			want: "line 3: boom",
		},
		"bare": {
			err:  &ConfigError{Err: errors.New("boom")},
			want: "boom",
		},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()
	cfgErr := &ConfigError{Stage: KindDCM2NII, Err: ErrMissingOutFolder}
	assert.True(t, IsFatal(cfgErr))
	assert.True(t, IsFatal(errors.Wrap(cfgErr, "unable to resolve stage")))

	stageErr := &StageError{Stage: KindDCM2NII, Err: errors.New("exit status 1")}
	assert.False(t, IsFatal(stageErr))
	assert.False(t, IsFatal(errors.New("plain")))
}

func TestStageErrorUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("exit status 1")
	stageErr := &StageError{Stage: KindRadiomics, Err: cause}
	assert.ErrorIs(t, stageErr, cause)
	assert.Contains(t, stageErr.Error(), "RADIOMICS")
}
