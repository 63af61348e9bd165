package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchKind(t *testing.T) {
	t.Parallel()
	tcs := map[string]struct {
		line string
		want StageKind
		ok   bool
	}{
		"plain header":      {line: "RADIOMICS:", want: KindRadiomics, ok: true},
		"no colon":          {line: "CHECK_FOLDER", want: KindCheckFolder, ok: true},
		"padded":            {line: "  DCM2NII:  ", want: KindDCM2NII, ok: true},
		"windowing":         {line: "I-WINDOWING:", want: KindWindowing, ok: true},
		"image harmonize":   {line: "I-HARMONIZE:", want: KindImageHarmonize, ok: true},
		"feature harmonize": {line: "F-HARMONIZE:", want: KindFeatureHarmonize, ok: true},
		"n4":                {line: "N4-BIAS-FIELD-CORRECTION:", want: KindN4BiasCorrection, ok: true},
		"unknown":           {line: "FROBNICATE:", ok: false},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, ok := matchKind(tc.line)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestParamsStr(t *testing.T) {
	t.Parallel()
	p := Params{
		"bool true":  true,
		"bool false": false,
		"int":        4,
		"float":      2.5,
		"list":       []any{1, "a", true},
		"string":     "/data",
	}
	assert.Equal(t, "True", p.Str("bool true"))
	assert.Equal(t, "False", p.Str("bool false"))
	assert.Equal(t, "4", p.Str("int"))
	assert.Equal(t, "2.5", p.Str("float"))
	assert.Equal(t, "[1,a,True]", p.Str("list"))
	assert.Equal(t, "/data", p.Str("string"))
	assert.Equal(t, "", p.Str("missing"))
}

func TestParamsBool(t *testing.T) {
	t.Parallel()
	p := Params{
		"true":         true,
		"false":        false,
		"zero":         0,
		"one":          1,
		"empty string": "",
		"string":       "anything",
		"empty list":   []any{},
		"list":         []any{1},
	}
	assert.True(t, p.Bool("true"))
	assert.False(t, p.Bool("false"))
	assert.False(t, p.Bool("zero"))
	assert.True(t, p.Bool("one"))
	assert.False(t, p.Bool("empty string"))
	assert.True(t, p.Bool("string"), "any non-empty string counts as set")
	assert.False(t, p.Bool("empty list"))
	assert.True(t, p.Bool("list"))
	assert.False(t, p.Bool("missing"))
}

func TestParamsCloneIsShallowCopy(t *testing.T) {
	t.Parallel()
	p := Params{"a": 1}
	q := p.Clone()
	q["a"] = 2
	q["b"] = 3
	assert.Equal(t, 1, p["a"])
	assert.False(t, p.Has("b"))
}
