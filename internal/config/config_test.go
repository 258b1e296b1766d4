package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := NewDefault()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.Optimizer.SizeThreshold)
	assert.Equal(t, []float64{1, 2, 3}, cfg.Mitigation.Extrapolation.ScaleFactors)
	assert.Equal(t, 10, cfg.Simulation.MaxQubits)
}

func TestLoadMergesFilesInOrder(t *testing.T) {
	base := writeFile(t, "base.toml", `
[optimizer]
size_threshold = 20

[mitigation.extrapolation]
method = "richardson"
scale_factors = [1.0, 1.5, 2.0]
`)
	override := writeFile(t, "override.toml", `
[optimizer]
size_threshold = 30
`)
	cfg, err := Load(base, "", override)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Optimizer.SizeThreshold)
	assert.Equal(t, "richardson", cfg.Mitigation.Extrapolation.Method)
	assert.Equal(t, []float64{1, 1.5, 2}, cfg.Mitigation.Extrapolation.ScaleFactors)
	assert.Equal(t, 100, cfg.Mitigation.QuasiProbability.Samples, "untouched keys keep defaults")
}

func TestEnvironmentOverridesFiles(t *testing.T) {
	path := writeFile(t, "c.toml", "[optimizer]\nsize_threshold = 20\n")
	t.Setenv("DEQCORE_SIZE_THRESHOLD", "5")
	t.Setenv("DEQCORE_LOG_LEVEL", "DEBUG")
	t.Setenv("DEQCORE_STORAGE_PATH", "/tmp/deq")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Optimizer.SizeThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/deq", cfg.Storage.Path)

	t.Setenv("DEQCORE_MAX_QUBITS", "many")
	_, err = Load()
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"method":    "[mitigation.extrapolation]\nmethod = \"cubic\"\n",
		"factors":   "[mitigation.extrapolation]\nscale_factors = [1.0]\n",
		"samples":   "[mitigation.quasi_probability]\nsamples = 0\n",
		"fraction":  "[mitigation.regression]\nreplace_fraction = 1.5\n",
		"threshold": "[optimizer]\nsize_threshold = -1\n",
		"level":     "[logging]\nlevel = \"loud\"\n",
		"qubits":    "[simulation]\nmax_qubits = 16\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLoadReportsMissingAndBrokenFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "[optimizer\n"))
	assert.Error(t, err)
}

func TestMarshalRoundTrips(t *testing.T) {
	data, err := NewDefault().Marshal()
	require.NoError(t, err)
	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, NewDefault(), cfg)
}
