package processor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitlesTrimDedupeKeepOrder(t *testing.T) {
	in := []string{"  Alpha news  ", "", "Beta news", "Alpha news", "   ", "Gamma news", "Beta news"}

	out := Titles(in, 0)
	assert.Equal(t, []string{"Alpha news", "Beta news", "Gamma news"}, out)
}

func TestTitlesCap(t *testing.T) {
	in := make([]string, 0, 80)
	for i := 0; i < 80; i++ {
		in = append(in, fmt.Sprintf("headline number %d", i))
	}

	out := Titles(in, 0)
	assert.Len(t, out, MaxTitles)
	assert.Equal(t, "headline number 0", out[0])
	assert.Equal(t, "headline number 49", out[MaxTitles-1])

	assert.Len(t, Titles(in, 5), 5)
}

func TestTitlesEmptyInputIsNonNil(t *testing.T) {
	out := Titles(nil, 0)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestCollapseSpace(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Governo\n   annuncia\tmisure", "Governo annuncia misure"},
		{"  già  pulito ", "già pulito"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CollapseSpace(tc.in))
	}
}
