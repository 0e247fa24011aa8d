package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	set := Defaults()

	assert.Equal(t, []string{"-T4", "-F"}, set["Quick Scan"])
	assert.Equal(t, []string{"-T4", "-A", "-v"}, set["Intense Scan"])
	assert.Equal(t, []string{"-T4", "--script", "vuln"}, set["Vuln Scan"])
}

func TestSetFlags(t *testing.T) {
	set := Defaults()

	t.Run("known template", func(t *testing.T) {
		flags, err := set.Flags("Quick Scan")
		require.NoError(t, err)
		assert.Equal(t, []string{"-T4", "-F"}, flags)
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := set.Flags("No Such Template")
		assert.Error(t, err)
	})
}

func TestSetNames(t *testing.T) {
	set := Set{"b": nil, "a": nil, "c": nil}
	assert.Equal(t, []string{"a", "b", "c"}, set.Names())
}

func TestStore(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "missing.json"))

		set, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, Defaults(), set)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "templates.json")
		store := NewStore(path)

		set := Defaults()
		set["UDP Sweep"] = []string{"-sU", "--top-ports", "100"}
		require.NoError(t, store.Save(set))

		loaded, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, set, loaded)
	})

	t.Run("corrupt file is an error not a reset", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "templates.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, err := NewStore(path).Load()
		assert.Error(t, err)
	})

	t.Run("save creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "templates.json")
		require.NoError(t, NewStore(path).Save(Defaults()))

		_, err := os.Stat(path)
		assert.NoError(t, err)
	})
}
