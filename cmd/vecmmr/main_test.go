package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/vecmmr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docsRows = `{"rowid":1,"embedding":[1,0,0],"lang":"en"}
{"rowid":2,"embedding":[0.99,0.1,0],"lang":"en"}
{"rowid":3,"embedding":"[0.98,0.2,0]","lang":"en"}

{"rowid":4,"embedding":[0,1,0],"lang":"de"}
{"rowid":5,"embedding":[0,0,1],"lang":"en"}
`

func writeRows(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("VECMMR_LOG_LEVEL", "error")

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func rowIDs(t *testing.T, out string) []int {
	t.Helper()
	var ids []int
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var r resultLine
		require.NoError(t, gojson.Unmarshal([]byte(line), &r))
		ids = append(ids, int(r.RowID))
	}
	return ids
}

func TestRootCommand_Help(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "search")
	assert.Contains(t, out, "import")
	assert.Contains(t, out, "snapshot")
	assert.Contains(t, out, "--data-dir")
	assert.Contains(t, out, "--store")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vecmmr dev")
}

func TestSearchCommand(t *testing.T) {
	rows := writeRows(t, docsRows)
	base := []string{"search", "--store", "memory", "--rows", rows, "--dim", "3", "--metric", "cosine", "--partition-column", "lang", "--query", "[1,0,0]", "--k", "3"}

	tests := []struct {
		name  string
		extra []string
		want  []int
	}{
		{"KNN", nil, []int{1, 2, 3}},
		{"MMR", []string{"--mmr-lambda", "0.5"}, []int{1, 2, 5}},
		{"LambdaOne", []string{"--mmr-lambda", "1"}, []int{1, 2, 3}},
		{"DistanceFilter", []string{"--mmr-lambda", "0.5", "--distance-gt", "0.001"}, []int{2, 5, 3}},
		{"Partition", []string{"--partition", "de"}, []int{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append(base, tt.extra...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rowIDs(t, out))
		})
	}
}

func TestSearchCommand_Errors(t *testing.T) {
	rows := writeRows(t, docsRows)
	base := []string{"search", "--store", "memory", "--rows", rows, "--dim", "3", "--metric", "cosine"}

	tests := []struct {
		name  string
		extra []string
	}{
		{"LambdaRange", []string{"--query", "[1,0,0]", "--mmr-lambda", "1.5"}},
		{"NegativeK", []string{"--query", "[1,0,0]", "--k", "-1"}},
		{"Dimension", []string{"--query", "[1,0]"}},
		{"BadVector", []string{"--query", "one"}},
		{"NoPartitionColumn", []string{"--query", "[1,0,0]", "--partition", "en"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append(base, tt.extra...)...)
			assert.ErrorIs(t, err, vecmmr.ErrInvalidArgument)
		})
	}
}

func TestSearchCommand_LambdaColumnRejected(t *testing.T) {
	rows := writeRows(t, `{"rowid":1,"embedding":[1,0],"mmr_lambda":0.5}`)

	_, err := run(t, "search", "--store", "memory", "--rows", rows, "--dim", "2", "--query", "[1,0]")
	assert.ErrorIs(t, err, vecmmr.ErrConstraintViolation)
}

func TestImportAndSearch(t *testing.T) {
	rows := writeRows(t, docsRows)
	dataDir := t.TempDir()

	out, err := run(t, "import", "--data-dir", dataDir, "--table", "docs", "--rows", rows, "--dim", "3", "--metric", "cosine", "--partition-column", "lang")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 5 rows into docs")

	_, err = run(t, "import", "--data-dir", dataDir, "--table", "docs", "--rows", rows, "--dim", "3", "--metric", "cosine", "--partition-column", "lang")
	require.NoError(t, err)

	out, err = run(t, "snapshot", "list", "docs", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", out)

	out, err = run(t, "search", "--data-dir", dataDir, "--table", "docs", "--query", "[1,0,0]", "--k", "3", "--mmr-lambda", "0.5")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 5}, rowIDs(t, out))

	_, err = run(t, "search", "--data-dir", dataDir, "--table", "missing", "--query", "[1,0,0]")
	assert.ErrorIs(t, err, vecmmr.ErrNotFound)

	out, err = run(t, "snapshot", "drop", "docs", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Equal(t, "dropped snapshots of docs\n", out)

	out, err = run(t, "snapshot", "list", "docs", "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestConfigPrecedence(t *testing.T) {
	rows := writeRows(t, docsRows)
	cfgFile := filepath.Join(t.TempDir(), "vecmmr.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("store: ftp\n"), 0o600))

	// the file selects an unknown store
	_, err := run(t, "search", "--config", cfgFile, "--rows", rows, "--dim", "3", "--query", "[1,0,0]")
	require.Error(t, err)

	// the flag wins over the file
	out, err := run(t, "search", "--config", cfgFile, "--store", "memory", "--rows", rows, "--dim", "3", "--query", "[1,0,0]", "--k", "1")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, rowIDs(t, out))

	_, err = run(t, "search", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--query", "[1,0,0]")
	assert.Error(t, err)
}
