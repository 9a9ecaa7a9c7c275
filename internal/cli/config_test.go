package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "bomgraph.db", cfg.DB)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "unit_weight", cfg.Weight.UnitWeightKey)
	assert.Equal(t, 10, cfg.Weight.TopN)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
db: /var/lib/bom/prod.db
format: json
weight:
  unit_weight_key: mass_kg
  default_maturity_factor: 1.2
  top_n: 25
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/bom/prod.db", cfg.DB)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "mass_kg", cfg.Weight.UnitWeightKey)
	assert.Equal(t, 1.2, cfg.Weight.DefaultMaturityFactor)
	assert.Equal(t, 25, cfg.Weight.TopN)

	// Unset weight fields backfill from defaults.
	assert.Equal(t, "maturity_factor", cfg.Weight.MaturityFactorKey)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := writeTempConfig(t, "format: json\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "bomgraph.db", cfg.DB)
	assert.Equal(t, 1.0, cfg.Weight.DefaultMaturityFactor)
}

func TestLoadConfig_MissingExplicitPath(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "db: [unclosed\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}
