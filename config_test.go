package debpool

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.yaml")
	conf := &Config{
		Root:       filepath.Join(dir, "pool"),
		Temp:       filepath.Join(dir, "tmp"),
		Components: order,
		FileMode:   "0664",
	}
	require.NoError(t, conf.Save(path))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, conf, got)

	pool, err := got.Open()
	require.NoError(t, err)
	assert.Equal(t, order, pool.Components())

	_, err = pool.AddFile("main", "foo", "1.0", mkfile("foo_1.0.dsc", "X"))
	require.NoError(t, err)
	info, err := os.Stat(pool.PathFor("main", "foo", "foo_1.0.dsc"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0664), info.Mode().Perm())
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.yaml")
	yml := `root: /srv/archive/pool
temp: /srv/archive/tmp
components: [main, restricted, universe, multiverse]
`
	require.NoError(t, ioutil.WriteFile(path, []byte(yml), 0644))

	conf, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/archive/pool", conf.Root)
	assert.Equal(t, "/srv/archive/tmp", conf.Temp)
	assert.Equal(t, order, conf.Components)
	mode, err := conf.mode()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FileMode), mode)
}

func TestConfigInvalid(t *testing.T) {
	for name, conf := range map[string]*Config{
		"no root":       {Temp: "t", Components: order},
		"no temp":       {Root: "r", Components: order},
		"no components": {Root: "r", Temp: "t"},
		"bad mode":      {Root: "r", Temp: "t", Components: order, FileMode: "rw-r--r--"},
	} {
		assert.Error(t, conf.Validate(), name)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "pool.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("root: [unclosed"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	assert.Error(t, (&Config{}).Save(path))
}
