package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capacityChart = `
name: "capacity"
variable: "TotalCapacityAnnual"
x: [YEAR]
`

// fixture writes a chart directory and a config file whose body is
// body formatted with the chart directory.
func fixture(t *testing.T, chartFiles map[string]string, body string) string {
	t.Helper()
	root := t.TempDir()
	chartsDir := filepath.Join(root, "charts")
	require.NoError(t, os.MkdirAll(chartsDir, 0o755))
	for name, doc := range chartFiles {
		require.NoError(t, os.WriteFile(filepath.Join(chartsDir, name), []byte(doc), 0o644))
	}

	cfgPath := filepath.Join(root, "explorer.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(body, chartsDir)), 0o644))
	return cfgPath
}

func TestLoad_ValidConfigAndCharts(t *testing.T) {
	cfgPath := fixture(t, map[string]string{"capacity.yaml": capacityChart}, `
server:
  port: 9090
  host: "127.0.0.1"
  mode: "debug"
results:
  path: "./results/run_a.zip"
  include: [TotalCapacityAnnual]
  reload_interval: "30s"
  run_aliases:
    S1: Reference
charts:
  config_dir: "%s"
scale:
  periods:
    "2015": 6
    "2021": 2
`)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, []string{"TotalCapacityAnnual"}, cfg.Results.Include)
	assert.Equal(t, 30*time.Second, cfg.Results.ReloadInterval)
	assert.Equal(t, map[string]string{"S1": "Reference"}, cfg.Results.RunAliases)
	assert.Equal(t, "sum", cfg.Results.MergeOperator)
	assert.Equal(t, map[string]float64{"2015": 6, "2021": 2}, cfg.Scale.EffectivePeriods())
	assert.Equal(t, 256, cfg.Cache.Capacity)
	assert.InDelta(t, 0.05, cfg.NetZero.Threshold, 1e-12)

	require.NotNil(t, cfg.ChartLoading.Repository)
	assert.Equal(t, 1, cfg.ChartLoading.Repository.Len())
}

func TestLoad_DefaultPeriods(t *testing.T) {
	cfgPath := fixture(t, map[string]string{"capacity.yaml": capacityChart}, `
charts:
  config_dir: "%s"
`)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	periods := cfg.Scale.EffectivePeriods()
	assert.InDelta(t, 6, periods["2015"], 1e-12)
	assert.InDelta(t, 1, periods["2060"], 1e-12)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	cfgPath := fixture(t, map[string]string{"capacity.yaml": capacityChart}, `
server:
  port: 9090
charts:
  config_dir: "%s"
`)
	t.Setenv("EXPLORER_SERVER__PORT", "7070")
	t.Setenv("EXPLORER_RESULTS__MERGE_OPERATOR", "max")
	t.Setenv("EXPLORER_CACHE__CAPACITY", "0")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "max", cfg.Results.MergeOperator)
	assert.Zero(t, cfg.Cache.Capacity)
}

func TestLoad_FailsStartup(t *testing.T) {
	tests := []struct {
		name    string
		charts  map[string]string
		body    string
		wantErr string
	}{
		{
			name:    "invalid server port",
			charts:  map[string]string{"capacity.yaml": capacityChart},
			body:    "server:\n  port: -1\ncharts:\n  config_dir: \"%s\"\n",
			wantErr: "invalid server.port",
		},
		{
			name:    "unknown merge operator",
			charts:  map[string]string{"capacity.yaml": capacityChart},
			body:    "results:\n  merge_operator: average\ncharts:\n  config_dir: \"%s\"\n",
			wantErr: "unsupported results.merge_operator",
		},
		{
			name:    "postgres export without dsn",
			charts:  map[string]string{"capacity.yaml": capacityChart},
			body:    "export:\n  postgres: true\ncharts:\n  config_dir: \"%s\"\n",
			wantErr: "export.postgres requires database.dsn",
		},
		{
			name:    "palette file without palette",
			charts:  map[string]string{"capacity.yaml": capacityChart},
			body:    "style:\n  palette_file: palette.csv\ncharts:\n  config_dir: \"%s\"\n",
			wantErr: "style.palette is required",
		},
		{
			name:    "non-positive period",
			charts:  map[string]string{"capacity.yaml": capacityChart},
			body:    "scale:\n  periods:\n    \"2015\": 0\ncharts:\n  config_dir: \"%s\"\n",
			wantErr: "scale.periods.2015",
		},
		{
			name:    "threshold out of range",
			charts:  map[string]string{"capacity.yaml": capacityChart},
			body:    "netzero:\n  threshold: 2\ncharts:\n  config_dir: \"%s\"\n",
			wantErr: "netzero.threshold",
		},
		{
			name:    "required charts missing",
			charts:  nil,
			body:    "charts:\n  config_dir: \"%s\"\n  require_charts: true\n",
			wantErr: "no chart definitions found",
		},
		{
			name:    "invalid chart file",
			charts:  map[string]string{"bad.yaml": "name: bad\nx: [YEAR]\n"},
			body:    "charts:\n  config_dir: \"%s\"\n",
			wantErr: "failed to load chart definitions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(fixture(t, tt.charts, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_OptionalCharts(t *testing.T) {
	cfg, err := Load(fixture(t, nil, "charts:\n  config_dir: \"%s\"\n  require_charts: false\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.ChartLoading.Repository.Len())
}
