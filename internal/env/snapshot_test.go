package env

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSnapshotWithHTMLFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte(`<div data-reactroot></div>`), 0o600))

	snapPath := filepath.Join(dir, "snapshot.yml")
	body := []byte("url: https://example.test\nhtmlFile: page.html\nglobals:\n  React:\n    version: 18.2.0\nelementProperties:\n  div:\n    - _reactRootContainer\n")
	require.NoError(t, os.WriteFile(snapPath, body, 0o600))

	snap, err := LoadSnapshot(snapPath)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", snap.URL)
	assert.Contains(t, snap.HTML, "data-reactroot")

	page, err := snap.Page(context.Background(), PageOptions{})
	require.NoError(t, err)

	v, err := page.Global("React.version")
	require.NoError(t, err)
	assert.Equal(t, "18.2.0", v.Text)

	ok, err := page.Query("[data-reactroot]")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParseSnapshotJSON(t *testing.T) {
	snap, err := ParseSnapshot([]byte(`{"html": "<p></p>", "globals": {"jQuery": {"fn": {"jquery": "3.6.0"}}}}`), "")
	require.NoError(t, err)
	assert.False(t, snap.Empty())
	assert.Contains(t, snap.Globals, "jQuery")
}

func TestParseSnapshotRejectsBothSources(t *testing.T) {
	_, err := ParseSnapshot([]byte("html: <p></p>\nhtmlFile: page.html\n"), "")
	assert.Error(t, err)
}

func TestLoadGlobals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "globals.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Ember": {}, "Vue": {"version": "3.4.1"}}`), 0o600))

	globals, err := LoadGlobals(path)
	require.NoError(t, err)
	assert.Len(t, globals, 2)
}

func TestSnapshotPageMergesOverlay(t *testing.T) {
	snap := Snapshot{HTML: "<p></p>", Globals: map[string]any{"Vue": map[string]any{}}}

	page, err := snap.Page(context.Background(), PageOptions{Globals: map[string]any{"Ember": true}})
	require.NoError(t, err)

	for _, name := range []string{"Vue", "Ember"} {
		v, err := page.Global(name)
		require.NoError(t, err)
		assert.True(t, v.Truthy, name)
	}
}
