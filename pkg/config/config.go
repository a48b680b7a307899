// Package config handles cygraph configuration via environment variables,
// with an optional YAML overlay file for deployments that prefer a
// checked-in file over per-process env vars. Adapted from the teacher's
// pkg/config/config.go: same env-first, defaults-everywhere shape,
// generalized from Neo4j-compatible connector/auth/compliance settings
// (out of scope for this engine) down to the fields of Config. Only DataDir
// is consumed outside this package (by cmd/cygraphd); the other fields are
// loaded but not read by the engine.
//
// Example:
//
//	cfg := config.LoadFromEnv()
//	if path := os.Getenv("CYGRAPH_CONFIG_FILE"); path != "" {
//		cfg, _ = config.LoadFromFile(path, cfg)
//	}
package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every engine-tunable parameter spec.md leaves to deployment
// configuration rather than hard-coding.
type Config struct {
	// DataDir is the directory BadgerDB stores its files under.
	DataDir string `yaml:"data_dir"`
	// VarLenMaxHops is the loaded variable-length expansion bound (e.g.
	// "-[:KNOWS*1..N]->"). internal/executor does not read it: a pattern
	// without an explicit upper bound is capped by its own 15-hop constant.
	VarLenMaxHops int `yaml:"varlen_max_hops"`
	// PageRankMaxIter is the loaded PageRank iteration cap. internal/algo
	// does not read it: DefaultPageRankOptions sets its own cap of 20.
	PageRankMaxIter int `yaml:"pagerank_max_iter"`
	// AnalyzeOnInit is the loaded analyze-on-startup flag. cygraph.Open does
	// not read it and runs no CSR load when it opens a store.
	AnalyzeOnInit bool `yaml:"analyze_on_init"`
}

// LoadFromEnv loads configuration from environment variables, falling back
// to sensible defaults when a variable is unset.
func LoadFromEnv() *Config {
	return &Config{
		DataDir:         getEnv("CYGRAPH_DATA_DIR", "./data"),
		VarLenMaxHops:   getEnvInt("CYGRAPH_VARLEN_MAX_HOPS", 15),
		PageRankMaxIter: getEnvInt("CYGRAPH_PAGERANK_MAX_ITER", 20),
		AnalyzeOnInit:   getEnvBool("CYGRAPH_ANALYZE_ON_INIT", false),
	}
}

// LoadFromFile overlays a YAML file's settings on top of base, so a
// deployment can check in defaults while env vars still win: a field whose
// CYGRAPH_* variable is set keeps base's value.
func LoadFromFile(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, err
	}
	if os.Getenv("CYGRAPH_DATA_DIR") != "" {
		cfg.DataDir = base.DataDir
	}
	if os.Getenv("CYGRAPH_VARLEN_MAX_HOPS") != "" {
		cfg.VarLenMaxHops = base.VarLenMaxHops
	}
	if os.Getenv("CYGRAPH_PAGERANK_MAX_ITER") != "" {
		cfg.PageRankMaxIter = base.PageRankMaxIter
	}
	if os.Getenv("CYGRAPH_ANALYZE_ON_INIT") != "" {
		cfg.AnalyzeOnInit = base.AnalyzeOnInit
	}
	return &cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
