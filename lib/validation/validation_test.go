package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateDateRange(t *testing.T) {
	start, end, err := ValidateDateRange("2015-05-03", "2015-09-18")
	require.NoError(t, err)
	require.Equal(t, time.Date(2015, 5, 3, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2015, 9, 18, 0, 0, 0, 0, time.UTC), end)

	start, end, err = ValidateDateRange("", "")
	require.NoError(t, err)
	require.True(t, start.IsZero())
	require.True(t, end.IsZero())

	_, _, err = ValidateDateRange("2015-09-18", "2015-05-03")
	require.Error(t, err)

	_, _, err = ValidateDateRange("03/05/2015", "")
	require.Error(t, err)

	_, _, err = ValidateDateRange("", "2015-02-30")
	require.Error(t, err)
}

func TestParseTopN(t *testing.T) {
	n, err := ParseTopN("")
	require.NoError(t, err)
	require.Equal(t, DefaultTopN, n)

	n, err = ParseTopN("20")
	require.NoError(t, err)
	require.Equal(t, 20, n)

	for _, raw := range []string{"4", "21", "ten", "-5"} {
		_, err := ParseTopN(raw)
		require.Error(t, err, raw)
	}
}

func TestValidateAndParsePipelineConfig(t *testing.T) {
	doc, err := ValidateAndParsePipelineConfig([]byte(`{"marker": " notebooks ", "jobs": [{"path": "a.ipynb"}, {"path": "   "}]}`))
	require.NoError(t, err)
	require.Equal(t, "notebooks", doc.Marker)
	require.Len(t, doc.Jobs, 1)

	_, err = ValidateAndParsePipelineConfig([]byte(`{"jobs": [{"path": "   "}]}`))
	require.Error(t, err)

	_, err = ValidateAndParsePipelineConfig([]byte(`{"jobs": "a.ipynb"}`))
	require.Error(t, err)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("bad top"), http.StatusBadRequest)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error": "bad top"}`, rec.Body.String())
}
