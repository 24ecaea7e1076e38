package ver

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    Version
		wantErr bool
	}{
		{input: "1.0", want: Version{Major: 1}},
		{input: "2.1+a1b2", want: Version{Major: 2, Minor: 1, Meta: "a1b2"}},
		{input: "3.0-dev.7012+d8c3f32", want: Version{Major: 3, Pre: PreDev, PreN: 7012, Meta: "d8c3f32"}},
		{input: "2.0-rc.1", want: Version{Major: 2, Pre: PreRC, PreN: 1}},
		{input: "2", wantErr: true},
		{input: "01.0", wantErr: true},
		{input: "2.0-nightly.1", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var perr *ParseError
				assert.True(t, errors.As(err, &perr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParse_Precedence(t *testing.T) {
	tests := []struct {
		input string
		want  Spec
	}{
		// Accepted by Filter and Specific: Filter wins.
		{"1.0", Filter{Major: 1, Minor: ptr(0)}},
		{"2.0-beta.1", Filter{Major: 2, Minor: ptr(0), Pre: PreBeta, PreN: 1}},
		{"2", Filter{Major: 2}},
		// Dev builds are only expressible as Specific.
		{"3.0-dev.7012", Specific{Major: 3, Pre: PreDev, PreN: 7012}},
		// Build metadata is only accepted by Build.
		{"3.0-dev.7012+d8c3f32", Build{Version: Version{Major: 3, Pre: PreDev, PreN: 7012, Meta: "d8c3f32"}}},
		{"1.1+abc", Build{Version: Version{Major: 1, Minor: 1, Meta: "abc"}}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParse_NoGrammarMatches(t *testing.T) {
	for _, input := range []string{"latest", "v1.0", "1.0.0", "1.0+", "nightly"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, input, perr.Input)
			assert.Equal(t, []string{"filter", "specific", "build"}, perr.Grammars)
		})
	}
}

func TestSpecMatches(t *testing.T) {
	v10 := MustParseVersion("1.0+aaa")
	v11 := MustParseVersion("1.1+bbb")
	v20rc := MustParseVersion("2.0-rc.1+ccc")
	nightly := MustParseVersion("2.0-dev.7000+ddd")

	tests := []struct {
		spec    string
		matches []Version
		rejects []Version
	}{
		{"1", []Version{v10, v11}, []Version{v20rc, nightly}},
		{"1.0", []Version{v10}, []Version{v11}},
		{"2", []Version{v20rc}, []Version{nightly, v10}},
		{"2.0-rc.1", []Version{v20rc}, []Version{nightly}},
		{"2.0-dev.7000", []Version{nightly}, []Version{v20rc}},
		{"1.0+aaa", []Version{v10}, []Version{MustParseVersion("1.0+zzz")}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			spec, err := Parse(tt.spec)
			require.NoError(t, err)
			for _, v := range tt.matches {
				assert.True(t, spec.Matches(v), "%s should match %s", tt.spec, v)
			}
			for _, v := range tt.rejects {
				assert.False(t, spec.Matches(v), "%s should not match %s", tt.spec, v)
			}
		})
	}
}

func TestCompareAndSort(t *testing.T) {
	vs := []Version{
		MustParseVersion("2.0"),
		MustParseVersion("1.10"),
		MustParseVersion("2.0-rc.1"),
		MustParseVersion("1.2"),
		MustParseVersion("2.0-beta.3"),
		MustParseVersion("2.0-dev.7000"),
		MustParseVersion("2.0-alpha.1"),
		MustParseVersion("2.0-dev.6999"),
	}
	slices.SortFunc(vs, Compare)

	var got []string
	for _, v := range vs {
		got = append(got, v.String())
	}
	assert.Equal(t, []string{"1.2", "1.10", "2.0-dev.6999", "2.0-dev.7000", "2.0-alpha.1", "2.0-beta.3", "2.0-rc.1", "2.0"}, got)
	assert.Negative(t, Compare(MustParseVersion("2.0-dev.7000"), MustParseVersion("2.0-alpha.1")))
	assert.Negative(t, Compare(MustParseVersion("2.0-rc.9"), MustParseVersion("2.0")))
	assert.Positive(t, Compare(MustParseVersion("2.0-beta.10"), MustParseVersion("2.0-beta.9")))
	assert.Equal(t, 0, Compare(MustParseVersion("1.0+a"), MustParseVersion("1.0+a")))
	assert.Negative(t, Compare(MustParseVersion("1.0+a"), MustParseVersion("1.0+b")))
}

func ptr(v uint64) *uint64 {
	return &v
}
