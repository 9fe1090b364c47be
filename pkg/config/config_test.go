package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: test
series:
  path: data/es.csv
output:
  csv: out/results.csv
server:
  cors: false
sweep:
  interval_max: 30
  holidays: ["2021-12-24"]
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, "batch", c.Mode)
	assert.Equal(t, 8080, c.Server.Port)
	assert.False(t, c.Server.CORS)
	assert.Equal(t, 10*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, uint64(2), c.Sweep.IntervalMin)
	assert.Equal(t, uint64(30), c.Sweep.IntervalMax)
	assert.Equal(t, "17:00:00", c.Sweep.SessionEnd)
	assert.Equal(t, 252.0, c.Sweep.AnnualizationDays)
	assert.Equal(t, "mask", c.Events.Mode)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, 24*time.Hour, c.Cache.TTL)
	assert.Equal(t, "sweep.results", c.Kafka.ResultTopic)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"missing series path": `
output: {csv: out.csv}`,
		"bad mode": `
mode: daemon
series: {path: a.csv}
output: {csv: out.csv}`,
		"batch without output": `
series: {path: a.csv}`,
		"kafka without brokers": `
series: {path: a.csv}
output: {kafka: true}`,
		"events without path": `
series: {path: a.csv}
output: {csv: out.csv}
events: {enabled: true}`,
		"bad holiday": `
series: {path: a.csv}
output: {csv: out.csv}
sweep: {holidays: [xmas]}`,
		"clickhouse without symbol": `
series: {source: clickhouse}
clickhouse: {host: ch}
output: {csv: out.csv}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(writeConfig(t, "mode: serve\nseries: {path: a.csv}\n"))
	assert.NoError(t, err, "serve mode needs no batch output")
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	env := map[string]string{
		"MODE":                  "serve",
		"SWEEP_SINGLE_THREADED": "true",
		"SWEEP_THREADS":         "8",
		"SERIES_PATH":           "/data/series.csv",
		"OUTPUT_CSV":            "/data/out.csv",
		"KAFKA_BROKERS":         "k1:9092, k2:9092",
		"CLICKHOUSE_HOST":       "ch",
		"REDIS_ADDR":            "redis:6379",
		"LOG_LEVEL":             "debug",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "serve", c.Mode)
	assert.True(t, c.Sweep.SingleThreaded)
	assert.Equal(t, 8, c.Sweep.Threads)
	assert.Equal(t, "/data/series.csv", c.Series.Path)
	assert.Equal(t, "/data/out.csv", c.Output.CSV)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "ch", c.ClickHouse.Host)
	assert.Equal(t, "redis:6379", c.Cache.Redis.Addr)
	assert.Equal(t, "debug", c.Log.Level)
	require.NoError(t, c.Validate())
}

func TestLoadWithEnvOverridesFile(t *testing.T) {
	t.Setenv("OUTPUT_CSV", "env.csv")
	c, err := LoadWithEnv(writeConfig(t, "series: {path: a.csv}\noutput: {csv: file.csv}\n"))
	require.NoError(t, err)
	assert.Equal(t, "env.csv", c.Output.CSV)
}
