package templates

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEveryPageParses(t *testing.T) {
	for _, page := range []string{"error.html", "summary.html", "activity.html", "products.html", "visitors.html", "tests.html", "runs.html"} {
		tmpl, err := ParseTemplates("base.html", page)
		require.NoError(t, err, page)
		require.NotNil(t, tmpl.Lookup("base"), page)
		require.NotNil(t, tmpl.Lookup("content"), page)
	}
}

func TestThousands(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1 000",
		22457:    "22 457",
		1407580:  "1 407 580",
		-2756101: "-2 756 101",
	}
	for in, want := range cases {
		require.Equal(t, want, Thousands(in))
	}
}
