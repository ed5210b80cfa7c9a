package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/lignin/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with an isolated config file and returns
// what it wrote to stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), config.FileName)
	return runWithConfig(t, cfgPath, args...)
}

func runWithConfig(t *testing.T, cfgPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", cfgPath, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := run(t, args...)
	require.NoError(t, err, "stderr: %s", stderr)
	return out
}

func newDoc(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	mustRun(t, "new", path)
	return path
}

func TestNewCreatesEmptyDocument(t *testing.T) {
	path := newDoc(t, "empty.json")

	out := mustRun(t, "parts", path)
	assert.Equal(t, "No parts.\n", out)

	_, _, err := run(t, "new", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	mustRun(t, "new", "--force", path)
}

func TestNewPicksFormatFromExtension(t *testing.T) {
	dir := t.TempDir()
	compact := filepath.Join(dir, "doc.lgn")
	out := mustRun(t, "new", compact)
	assert.Contains(t, out, "(compact)")

	data, err := os.ReadFile(compact)
	require.NoError(t, err)
	assert.NotEqual(t, byte('{'), bytes.TrimSpace(data)[0])

	verbose := filepath.Join(dir, "doc.txt")
	out = mustRun(t, "new", "--format", "verbose", verbose)
	assert.Contains(t, out, "(verbose)")
}

func TestEditSequence(t *testing.T) {
	path := newDoc(t, "doc.json")

	assert.Equal(t, "Added part-1 (Cube 1)\n", mustRun(t, "add", path, "cube"))
	assert.Equal(t, "Added part-2 (Cylinder 2)\n", mustRun(t, "add", path, "cylinder"))
	assert.Equal(t, "Created part-3 (Difference 3)\n", mustRun(t, "boolean", path, "difference", "part-1", "part-2"))

	out := mustRun(t, "--json", "parts", path)
	var rows []partRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "part-3", string(rows[0].ID))
	assert.Equal(t, "difference", rows[0].Kind)
	assert.Equal(t, "default", rows[0].Material)

	out = mustRun(t, "--json", "parts", "--all", path)
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.True(t, rows[1].Consumed)
	assert.True(t, rows[2].Consumed)

	out = mustRun(t, "parts", "--all", path)
	assert.Contains(t, out, "Cube 1 (consumed)")
	assert.Contains(t, out, "MATERIAL")

	assert.Equal(t, "Duplicated part-4 (Difference 4)\n", mustRun(t, "duplicate", path, "part-3"))
	assert.Equal(t, "Removed part-3\n", mustRun(t, "remove", path, "part-3"))

	out = mustRun(t, "--json", "parts", path)
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "part-4", string(rows[0].ID))

	assert.Equal(t, "ok\n", mustRun(t, "validate", path))
}

func TestEditErrors(t *testing.T) {
	path := newDoc(t, "doc.json")
	mustRun(t, "add", path, "sphere")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown shape", []string{"add", path, "torus"}, "unknown shape"},
		{"unknown boolean", []string{"boolean", path, "xor", "part-1", "part-1"}, "unknown boolean"},
		{"self boolean", []string{"boolean", path, "union", "part-1", "part-1"}, "cannot combine"},
		{"stale duplicate", []string{"duplicate", path, "part-9"}, "no parts duplicated"},
		{"stale remove", []string{"remove", path, "part-9"}, "cannot remove"},
		{"missing file", []string{"parts", filepath.Join(t.TempDir(), "nope.json")}, "no such file"},
		{"bad log level", []string{"--log-level", "loud", "parts", path}, "invalid --log-level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMalformedDocumentIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"document": {"nodes": [`), 0o644))

	_, _, err := run(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestConvertRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := newDoc(t, "doc.json")
	mustRun(t, "add", src, "cube")
	mustRun(t, "add", src, "cone")

	compact := filepath.Join(dir, "doc.lgn")
	out := mustRun(t, "convert", src, compact)
	assert.Contains(t, out, "(verbose)")
	assert.Contains(t, out, "(compact)")

	// The compact form drops the part index; it is derived again on load.
	out = mustRun(t, "--json", "parts", compact)
	var rows []partRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Cube 1", rows[0].Name)
	assert.Equal(t, "cone", rows[1].Kind)

	back := filepath.Join(dir, "back.out")
	mustRun(t, "convert", "--format", "verbose", compact, back)
	data, err := os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), bytes.TrimSpace(data)[0])
}

func TestMesh(t *testing.T) {
	path := newDoc(t, "doc.json")
	mustRun(t, "add", path, "cube")

	meshes := filepath.Join(t.TempDir(), "meshes.json")
	out := mustRun(t, "mesh", "--cells", "16", "--out", meshes, path)
	assert.Contains(t, out, "Cube 1")
	assert.Contains(t, out, "20.0 x 20.0 x 20.0")

	data, err := os.ReadFile(meshes)
	require.NoError(t, err)
	var got []struct {
		Name     string    `json:"name"`
		Vertices []float32 `json:"vertices"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Cube 1", got[0].Name)
	assert.NotEmpty(t, got[0].Vertices)
}

func TestMeshUsesConfiguredCells(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, config.FileName)
	cfg := config.Default()
	cfg.Kernel.MeshCells = 12
	require.NoError(t, config.Save(cfgPath, cfg))

	path := filepath.Join(dir, "doc.json")
	_, _, err := runWithConfig(t, cfgPath, "new", path)
	require.NoError(t, err)
	_, _, err = runWithConfig(t, cfgPath, "add", path, "sphere")
	require.NoError(t, err)

	out, _, err := runWithConfig(t, cfgPath, "--json", "mesh", path)
	require.NoError(t, err)
	var rows []struct {
		Name      string `json:"name"`
		Triangles int    `json:"triangles"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Sphere 1", rows[0].Name)
	assert.Positive(t, rows[0].Triangles)
}

func TestBadConfigIsReported(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte("[history]\nmax_depth = 0\n"), 0o644))

	_, _, err := runWithConfig(t, cfgPath, "new", filepath.Join(t.TempDir(), "doc.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_depth")
}

func TestMetricsFlag(t *testing.T) {
	path := newDoc(t, "doc.json")
	_, stderr, err := run(t, "--metrics", "add", path, "cube")
	require.NoError(t, err)
	assert.Contains(t, stderr, `lignin_store_mutations_total{action="add_primitive"} 1`)
	assert.Contains(t, stderr, `lignin_persist_loads_total`)
}

func TestValidateReportsOrphans(t *testing.T) {
	path := newDoc(t, "doc.json")
	mustRun(t, "add", path, "cube")
	mustRun(t, "add", path, "cylinder")
	mustRun(t, "boolean", path, "difference", "part-1", "part-2")
	mustRun(t, "remove", path, "part-3")

	out := mustRun(t, "validate", path)
	assert.Contains(t, out, "SEVERITY")
	assert.Contains(t, out, "warning")
	assert.Contains(t, out, "orphan")

	out = mustRun(t, "--json", "validate", path)
	var findings []struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &findings))
	require.NotEmpty(t, findings)
	for _, f := range findings {
		assert.Equal(t, "warning", f.Severity)
	}
}

func TestJSONEditOutput(t *testing.T) {
	path := newDoc(t, "doc.json")

	tests := []struct {
		args     []string
		wantID   string
		wantName string
	}{
		{[]string{"add", path, "cube"}, "part-1", "Cube 1"},
		{[]string{"add", path, "sphere"}, "part-2", "Sphere 2"},
		{[]string{"boolean", path, "union", "part-1", "part-2"}, "part-3", "Union 3"},
		{[]string{"duplicate", path, "part-3"}, "part-4", "Union 4"},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			out := mustRun(t, append([]string{"--json"}, tt.args...)...)
			var rows []partRow
			require.NoError(t, json.Unmarshal([]byte(out), &rows), "output: %s", out)
			require.Len(t, rows, 1)
			assert.Equal(t, tt.wantID, string(rows[0].ID))
			assert.Equal(t, tt.wantName, rows[0].Name)
		})
	}
}

func TestValidateReportsBrokenDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dangling.json")
	doc := `{"nodes":[{"id":1,"op":{"type":"translate","child":9,"offset":{"x":0,"y":0,"z":0}}}],"roots":[{"root":1,"material":"default"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out, _, err := run(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "errors")
	assert.Contains(t, out, "error")
	assert.Contains(t, out, "does not exist")

	_, _, err = run(t, "parts", path)
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"document": {"nodes": [`), 0o644))
	_, _, err = run(t, "validate", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}
