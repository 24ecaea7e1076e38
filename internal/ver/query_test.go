package ver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		input string
		want  Query
		str   string
	}{
		{"", Query{}, "stable"},
		{"*", Query{}, "stable"},
		{"stable", Query{Channel: ChannelStable}, "stable"},
		{"Nightly", Query{Channel: ChannelNightly}, "nightly"},
		{"testing", Query{Channel: ChannelTesting}, "testing"},
		{"2", Query{Filter: &Filter{Major: 2}}, "2"},
		{"2.1", Query{Filter: &Filter{Major: 2, Minor: ptr(1)}}, "2.1"},
		{"3.0-beta.2", Query{Channel: ChannelTesting, Filter: &Filter{Major: 3, Minor: ptr(0), Pre: PreBeta, PreN: 2}}, "3.0-beta.2"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseQuery(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())
		})
	}

	_, err := ParseQuery("3.0-dev.1")
	assert.Error(t, err)
}

func TestQueryMatches(t *testing.T) {
	stable := MustParseVersion("2.1+aaa")
	rc := MustParseVersion("3.0-rc.1+bbb")
	nightly := MustParseVersion("3.0-dev.7012+ccc")

	// The zero Query is the implicit stable default.
	var implicit Query
	assert.True(t, implicit.Matches(stable))
	assert.False(t, implicit.Matches(rc))
	assert.False(t, implicit.Matches(nightly))

	nightlyQ := QueryFromChannel(ChannelNightly)
	assert.True(t, nightlyQ.Matches(nightly))
	assert.False(t, nightlyQ.Matches(stable))
	assert.True(t, nightlyQ.IsNightly())

	testing3 := Query{Channel: ChannelTesting, Filter: &Filter{Major: 3}}
	assert.True(t, testing3.Matches(rc))
	assert.False(t, testing3.Matches(nightly))
	assert.False(t, testing3.Matches(stable))

	nightly2 := Query{Channel: ChannelNightly, Filter: &Filter{Major: 2}}
	assert.False(t, nightly2.Matches(nightly))
}

func TestParseChannel(t *testing.T) {
	_, err := ParseChannel("beta")
	assert.Error(t, err)

	c, err := ParseChannel("STABLE")
	require.NoError(t, err)
	assert.Equal(t, ChannelStable, c)
}
