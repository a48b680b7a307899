package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 15, cfg.VarLenMaxHops)
	assert.Equal(t, 20, cfg.PageRankMaxIter)
	assert.False(t, cfg.AnalyzeOnInit)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	os.Setenv("CYGRAPH_DATA_DIR", "/tmp/cygraph")
	os.Setenv("CYGRAPH_VARLEN_MAX_HOPS", "5")
	os.Setenv("CYGRAPH_ANALYZE_ON_INIT", "true")
	defer func() {
		os.Unsetenv("CYGRAPH_DATA_DIR")
		os.Unsetenv("CYGRAPH_VARLEN_MAX_HOPS")
		os.Unsetenv("CYGRAPH_ANALYZE_ON_INIT")
	}()

	cfg := LoadFromEnv()
	assert.Equal(t, "/tmp/cygraph", cfg.DataDir)
	assert.Equal(t, 5, cfg.VarLenMaxHops)
	assert.True(t, cfg.AnalyzeOnInit)
}

func TestLoadFromFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/cygraph.yaml"
	err := os.WriteFile(path, []byte("pagerank_max_iter: 50\n"), 0o644)
	assert.NoError(t, err)

	base := LoadFromEnv()
	cfg, err := LoadFromFile(path, base)
	assert.NoError(t, err)
	assert.Equal(t, 50, cfg.PageRankMaxIter)
	assert.Equal(t, base.DataDir, cfg.DataDir)
}
