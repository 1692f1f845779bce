package config

import (
	"os"
	"path/filepath"
	"testing"

	"sketchpad/internal/solver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, solver.DefaultOptions(), c.DriverOptions())
	assert.Equal(t, solver.DefaultEqualLengthOptions(), c.EqualLengthOptions())
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("driver:\n  tolerance: 0.25\nequal_length:\n  target: global\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, c.Driver.Tolerance)
	assert.Equal(t, solver.DefaultMaxIterations, c.Driver.MaxIterations)
	assert.Equal(t, solver.TargetGlobal, c.EqualLengthOptions().Target)
	assert.Equal(t, 5.0, c.Snap.MergeThreshold)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"iterations.yaml": "driver:\n  max_iterations: 0\n",
		"target.yaml":     "equal_length:\n  target: median\n",
		"snap.yaml":       "snap:\n  hit_tolerance: -1\n",
		"syntax.yaml":     "driver: [\n",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := Default()
	c.EqualLength.MaxIterations = 12
	c.Snap.PointTolerance = 2.5
	require.NoError(t, c.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "sketchpad", "config.yaml"), DefaultPath())
}
