package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/portico/internal/ver"
)

func writeProject(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFile), []byte(content), 0o644))
}

func TestFromProjectOrConfig_ExplicitDir(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "[server]\nversion = \"nightly\"\n")

	ctx, err := FromProjectOrConfig(Options{SchemaDir: "custom/schema"}, dir)
	require.NoError(t, err)
	assert.Equal(t, "custom/schema", ctx.SchemaDir)
	assert.Nil(t, ctx.ServerVersion)
}

func TestFromProjectOrConfig_Project(t *testing.T) {
	root := t.TempDir()
	writeProject(t, root, "[project]\nschema-dir = \"db/schema\"\n\n[server]\nversion = \"2\"\n")
	nested := filepath.Join(root, "app", "src")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	ctx, err := FromProjectOrConfig(Options{}, nested)
	require.NoError(t, err)

	wantRoot, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wantRoot, "db", "schema"), ctx.SchemaDir)
	require.NotNil(t, ctx.ServerVersion)
	assert.Equal(t, "2", ctx.ServerVersion.String())
	assert.True(t, ctx.ServerVersion.Matches(ver.MustParseVersion("2.1")))
}

func TestFromProjectOrConfig_ProjectDefaults(t *testing.T) {
	root := t.TempDir()
	writeProject(t, root, "[project]\n")

	ctx, err := FromProjectOrConfig(Options{}, root)
	require.NoError(t, err)
	assert.Equal(t, "dbschema", filepath.Base(ctx.SchemaDir))
	require.NotNil(t, ctx.ServerVersion)
	assert.Equal(t, ver.Query{}, *ctx.ServerVersion, "missing entry means stable")
}

func TestFromProjectOrConfig_NoProject(t *testing.T) {
	ctx, err := FromProjectOrConfig(Options{}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultSchemaDir, ctx.SchemaDir)
	assert.Nil(t, ctx.ServerVersion)
}

func TestReadProject_InvalidVersion(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "[server]\nversion = \"latest-and-greatest\"\n")

	_, err := ReadProject(dir)
	assert.Error(t, err)
}
