package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ignite "github.com/kemurphy3/ignite-fitness-sub001"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCSV(t *testing.T) {
	records, err := parseCSV([]byte("date, squat ,bench\n2024-01-01,100,80\n2024-01-08,105,\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-01-01", records[0]["date"])
	assert.Equal(t, "100", records[0]["squat"])
	assert.Equal(t, "80", records[0]["bench"])
	_, ok := records[1]["bench"]
	assert.False(t, ok, "empty cells are omitted")

	_, err = parseCSV(nil)
	assert.Error(t, err)
}

func TestParseJSON(t *testing.T) {
	records, err := parseJSON([]byte(`[{"timestamp": 1704067200000, "value": 100.5}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, json.Number("1704067200000"), records[0]["timestamp"])

	_, err = parseJSON([]byte(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestAnalyzeCommandCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "squat.csv")
	csv := "date,value\n2024-01-01,100\n2024-01-08,105\n2024-01-15,110\n2024-01-22,115\n2024-01-29,120\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	out, err := runCmd(t, "", "analyze", "--input", path, "--steps", "2", "--log-level", "error")
	require.NoError(t, err)

	var body struct {
		Report struct {
			Metric string `json:"metric"`
			Points int    `json:"points"`
			Trend  struct {
				Direction string `json:"direction"`
			} `json:"trend"`
			Projection struct {
				Baseline []json.RawMessage `json:"baseline"`
			} `json:"projection"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body), out)
	assert.Equal(t, "squat", body.Report.Metric)
	assert.Equal(t, 5, body.Report.Points)
	assert.Equal(t, "increasing", body.Report.Trend.Direction)
	assert.Len(t, body.Report.Projection.Baseline, 2)
}

func TestAnalyzeCommandStdinWithFeatures(t *testing.T) {
	input := `[
		{"timestamp": 1704067200000, "load": 50},
		{"timestamp": 1704153600000, "load": 52},
		{"timestamp": 1704240000000, "load": 51}
	]`
	out, err := runCmd(t, input, "analyze", "-i", "-", "--value-key", "load", "--features", "--log-level", "error")
	require.NoError(t, err)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &body), out)
	assert.Contains(t, body, "features")

	var features []map[string]any
	require.NoError(t, json.Unmarshal(body["features"], &features))
	require.Len(t, features, 3)
	assert.Contains(t, features[2], "load")
}

func TestAnalyzeCommandMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,bench\n2024-01-01,80\n"), 0o644))

	_, err := runCmd(t, "", "analyze", "--input", path, "--log-level", "error")
	assert.Error(t, err)
}

func TestPredictGoalCommand(t *testing.T) {
	out, err := runCmd(t, "", "predict", "goal", "--current", "100", "--target", "150", "--weekly-rate", "10")
	require.NoError(t, err)
	assert.JSONEq(t, `{"weeks":5,"days":35}`, out)

	out, err = runCmd(t, "", "predict", "goal", "--current", "100", "--target", "150", "--weekly-rate", "0")
	require.NoError(t, err)
	assert.JSONEq(t, `{"weeks":"Infinity","days":"Infinity"}`, out)

	_, err = runCmd(t, "", "predict", "goal", "--current", "100")
	assert.Error(t, err)
}

func TestPredictWeightCommand(t *testing.T) {
	out, err := runCmd(t, "", "predict", "weight", "--current-weight", "80", "--weekly-change", "-0.5", "--weeks", "4")
	require.NoError(t, err)
	assert.JSONEq(t, `{"prediction":78}`, out)
}

func TestConfigCommand(t *testing.T) {
	out, err := runCmd(t, "", "config", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "format: json")
	assert.Contains(t, out, "smoothing_alpha: 0.3")
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger(ignite.LogConfig{Level: "debug", Format: "json"}, &bytes.Buffer{})
	assert.NoError(t, err)
	_, err = newLogger(ignite.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = newLogger(ignite.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestAnalyzeCommandGroupBy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	csv := "date,exercise,value\n" +
		"2024-01-01,squat,100\n2024-01-08,squat,105\n2024-01-15,squat,110\n2024-01-22,squat,115\n2024-01-29,squat,120\n" +
		"2024-01-01,bench,80\n2024-01-08,bench,83\n2024-01-15,bench,86\n2024-01-22,bench,89\n2024-01-29,bench,92\n" +
		"2024-01-01,deadlift,150\n2024-01-08,deadlift,151\n2024-01-15,deadlift,149\n2024-01-22,deadlift,150\n2024-01-29,deadlift,150\n" +
		"2024-01-01,row,heavy\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	out, err := runCmd(t, "", "analyze", "--input", path, "--group-by", "exercise", "--clusters", "2", "--log-level", "error")
	require.NoError(t, err)

	var body struct {
		Reports map[string]struct {
			Metric string `json:"metric"`
			Points int    `json:"points"`
		} `json:"reports"`
		Errors   map[string]string `json:"errors"`
		Clusters map[string]int    `json:"clusters"`
		Model    struct {
			Centroids []map[string]float64 `json:"centroids"`
		} `json:"model"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body), out)

	require.Len(t, body.Reports, 3)
	for _, m := range []string{"squat", "bench", "deadlift"} {
		assert.Equal(t, m, body.Reports[m].Metric)
		assert.Equal(t, 5, body.Reports[m].Points)
		require.Contains(t, body.Clusters, m)
		assert.True(t, body.Clusters[m] == 0 || body.Clusters[m] == 1, "cluster %d", body.Clusters[m])
	}
	assert.Contains(t, body.Errors, "row")
	assert.NotContains(t, body.Clusters, "row")
	assert.Len(t, body.Model.Centroids, 2)
}

func TestAnalyzeCommandGroupByMissingColumn(t *testing.T) {
	input := `[{"timestamp": 1704067200000, "value": 100}]`
	_, err := runCmd(t, input, "analyze", "-i", "-", "--group-by", "exercise", "--log-level", "error")
	assert.Error(t, err)
}

func TestGroupRecords(t *testing.T) {
	groups, err := groupRecords([]ignite.Record{
		{"exercise": "squat", "value": "100"},
		{"exercise": "bench", "value": "80"},
		{"exercise": "squat", "value": "105"},
	}, "exercise")
	require.NoError(t, err)
	assert.Len(t, groups["squat"], 2)
	assert.Len(t, groups["bench"], 1)

	_, err = groupRecords([]ignite.Record{{"exercise": ""}}, "exercise")
	assert.Error(t, err)
}
