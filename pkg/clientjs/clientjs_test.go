package clientjs

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/njreid/redstone/pkg/redstone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"js/objspy.js", "js/redstone.js"}, Names())
}

func TestEmbeddedScriptsAreLoadedByDefault(t *testing.T) {
	for _, name := range Names() {
		assert.Contains(t, redstone.DefaultLibraries, name)
	}
}

func TestRuntimeExportsBootstrapHooks(t *testing.T) {
	data, err := fs.ReadFile(FS(), "js/redstone.js")
	require.NoError(t, err)
	for _, hook := range []string{"CRUMBS", "VARTOCRUMBID", "EXPOSEDVALUES", "METHODS", "UPDATECLIENTVAR", "STRICT", "SERVER",
		"REDSTONE.init", "REDSTONE.updateVariable", "REDSTONE.createCallback", "REDSTONE.rpc"} {
		assert.Contains(t, string(data), hook)
	}
}

func TestRuntimeSettleAndPushGuards(t *testing.T) {
	data, err := fs.ReadFile(FS(), "js/redstone.js")
	require.NoError(t, err)
	src := string(data)

	// Settling stops on the dirty flag, never on value equality, so NaN
	// cannot keep the loop spinning.
	assert.Contains(t, src, "if (!record.dirty) {")
	assert.NotContains(t, src, "record.value === record.finalValue")
	// Exposed-push suppression nests.
	assert.Contains(t, src, "pushing[name] = (pushing[name] || 0) + 1;")
	assert.Contains(t, src, "if (pushing[name] > 0) {")
}

func TestWriteTo(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteTo(dir))
	for _, name := range Names() {
		want, err := fs.ReadFile(FS(), name)
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
