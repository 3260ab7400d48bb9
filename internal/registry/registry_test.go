package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cities_rel.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid registry", func(t *testing.T) {
		path := writeRegistry(t, `[
			{"name": "OUAGADOUGOU", "x_rel": 0.52, "y_rel": 0.41, "latitude": 12.37, "longitude": -1.52},
			{"name": "DORI", "x_rel": 0.68, "y_rel": 0.12}
		]`)

		entries, err := Load(path)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, "OUAGADOUGOU", entries[0].Name)
		assert.Equal(t, 0.52, entries[0].XRel)
		require.NotNil(t, entries[0].Latitude)
		assert.Equal(t, 12.37, *entries[0].Latitude)

		assert.Equal(t, "DORI", entries[1].Name)
		assert.Nil(t, entries[1].Latitude)
		assert.Nil(t, entries[1].Longitude)
	})

	t.Run("preserves file order", func(t *testing.T) {
		path := writeRegistry(t, `[
			{"name": "ZORGO", "x_rel": 0.6, "y_rel": 0.4},
			{"name": "BANFORA", "x_rel": 0.2, "y_rel": 0.8}
		]`)

		entries, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "ZORGO", entries[0].Name)
		assert.Equal(t, "BANFORA", entries[1].Name)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read city registry")
	})

	t.Run("malformed JSON", func(t *testing.T) {
		path := writeRegistry(t, `{not json`)
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("empty registry", func(t *testing.T) {
		path := writeRegistry(t, `[]`)
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("coordinate out of range", func(t *testing.T) {
		path := writeRegistry(t, `[{"name": "DORI", "x_rel": 1.2, "y_rel": 0.5}]`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DORI")
	})

	t.Run("missing name", func(t *testing.T) {
		path := writeRegistry(t, `[{"name": "", "x_rel": 0.5, "y_rel": 0.5}]`)
		_, err := Load(path)
		require.Error(t, err)
	})
}
