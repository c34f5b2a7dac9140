package booking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"asha":       "asha",
		"100%":       `100\%`,
		"a_b":        `a\_b`,
		`back\slash`: `back\\slash`,
		`%_\`:        `\%\_\\`,
	}
	for in, want := range cases {
		require.Equal(t, want, escapeLike(in), "escaping %q", in)
	}
}
