package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/folio/content"
)

// writeConfig creates a config file pointing at a database in dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "folio.toml")
	body := fmt.Sprintf("database = %q\nlog_level = \"error\"\n", filepath.Join(dir, "folio.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "folio version dev")
}

func TestExportImportAcrossStores(t *testing.T) {
	src := writeConfig(t, t.TempDir())
	g := &globals{configPath: src}
	c, closeFn, err := g.openStore()
	require.NoError(t, err)
	p, err := c.SaveProject(context.Background(), content.Project{Name: "Harbour"})
	require.NoError(t, err)
	_, err = c.AddSection(context.Background(), p.ID, content.Section{Content: "Built in 2024"})
	require.NoError(t, err)
	closeFn()

	exportPath := filepath.Join(t.TempDir(), "export.json")
	out, err := run(t, "--config", src, "export", "-o", exportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported")

	dst := writeConfig(t, t.TempDir())
	out, err = run(t, "--config", dst, "import", exportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported")

	g = &globals{configPath: dst}
	c, closeFn, err = g.openStore()
	require.NoError(t, err)
	defer closeFn()
	got, err := c.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Harbour", got.Name)
	sections, err := c.GetSectionsForProject(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Built in 2024", sections[0].Content)
}

func TestExportToStdout(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())
	out, err := run(t, "--config", cfg, "export", "-o", "-")
	require.NoError(t, err)
	ds, err := content.ParseDataset([]byte(out))
	require.NoError(t, err)
	assert.Empty(t, ds.Projects)
	assert.NotEmpty(t, ds.ExportDate)
}

func TestMigrateWithoutBackend(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())
	_, err := run(t, "--config", cfg, "migrate")
	assert.ErrorIs(t, err, content.ErrRemoteNotConfigured)
}

func TestImportRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err := run(t, "--config", cfg, "import", bad)
	assert.ErrorIs(t, err, content.ErrInvalid)
}

func TestImportReplaceClearsLocalContent(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	g := &globals{configPath: cfg}
	c, closeFn, err := g.openStore()
	require.NoError(t, err)
	old, err := c.SaveProject(context.Background(), content.Project{Name: "Old"})
	require.NoError(t, err)
	closeFn()

	file := filepath.Join(dir, "new.json")
	doc := `{"projects":[{"id":"p-new","name":"New","order":0}],"sections":[],"images":[],"videos":[]}`
	require.NoError(t, os.WriteFile(file, []byte(doc), 0o644))

	out, err := run(t, "--config", cfg, "import", "--replace", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 local records")

	c, closeFn, err = g.openStore()
	require.NoError(t, err)
	defer closeFn()
	projects, err := c.GetProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "p-new", projects[0].ID)
	assert.NotEqual(t, old.ID, projects[0].ID)
}
