package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/quickpulse/internal/config"
	"github.com/wesleyorama2/quickpulse/internal/perfcounter"
	"github.com/wesleyorama2/quickpulse/internal/platform"
)

func testPlatform(debug *bytes.Buffer, environ ...string) *platform.Platform {
	if environ == nil {
		environ = []string{}
	}
	return platform.NewWithOptions(platform.Options{
		Environ:     environ,
		Hostname:    func() (string, error) { return "web-01", nil },
		DebugWriter: debug,
		NoColor:     true,
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quickpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunCollector_EmitsSamples(t *testing.T) {
	path := writeConfig(t, `
interval: 20ms
streamId: test-stream
counters:
  static:
    PerfCpuUtilization: 12.5
debug:
  noColor: true
`)

	var out, debug bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	err := runCollector(ctx, testPlatform(&debug), path, &out)
	require.NoError(t, err)

	scanner := bufio.NewScanner(&out)
	lines := 0
	for scanner.Scan() {
		var record map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))

		assert.Equal(t, "test-stream", record["streamId"])
		assert.Equal(t, "web-01", record["machineName"])
		assert.Equal(t, 12.5, record["perfCpuUtilization"])
		assert.Contains(t, record, "requestsPerSecond")
		lines++
	}
	assert.GreaterOrEqual(t, lines, 2)

	assert.Contains(t, debug.String(), "collecting stream test-stream every 20ms")
	assert.Contains(t, debug.String(), "windows (0 failed)")
}

func TestRunCollector_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "historySize: -4\n")

	var out, debug bytes.Buffer
	err := runCollector(context.Background(), testPlatform(&debug), path, &out)

	var verrs *config.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "historySize", verrs.Errors[0].Field)
	assert.Empty(t, out.String())
}

func TestRunCollector_RejectsNonFiniteStaticCounter(t *testing.T) {
	path := writeConfig(t, `
interval: 20ms
counters:
  static:
    PerfCpuUtilization: .nan
`)

	var out, debug bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	err := runCollector(ctx, testPlatform(&debug), path, &out)

	var verrs *config.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "counters.static.PerfCpuUtilization", verrs.Errors[0].Field)
	assert.Empty(t, out.String())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRunCollector_WriteFailuresCounted(t *testing.T) {
	path := writeConfig(t, "interval: 20ms\n")

	var debug bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	require.NoError(t, runCollector(ctx, testPlatform(&debug), path, failingWriter{}))

	assert.Contains(t, debug.String(), "failed to submit sample: disk full")
	assert.NotContains(t, debug.String(), "(0 failed)")
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := loadConfig(testPlatform(&bytes.Buffer{}), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "error loading config")
}

func TestLoadConfig_DefaultsAndEnvironment(t *testing.T) {
	p := testPlatform(&bytes.Buffer{}, "QUICKPULSE_STREAM_ID=env-stream", "QUICKPULSE_INTERVAL=3s")

	cfg, err := loadConfig(p, "")
	require.NoError(t, err)

	assert.Equal(t, "env-stream", cfg.StreamID)
	assert.Equal(t, 3*time.Second, time.Duration(cfg.Interval))
	assert.Equal(t, config.DefaultHistorySize, cfg.HistorySize)
}

func TestLoadConfig_BadEnvironment(t *testing.T) {
	p := testPlatform(&bytes.Buffer{}, "QUICKPULSE_INTERVAL=whenever")
	_, err := loadConfig(p, "")
	assert.ErrorContains(t, err, "QUICKPULSE_INTERVAL")
}

func TestBuildSource(t *testing.T) {
	assert.Nil(t, buildSource(&config.Config{}))

	src := buildSource(&config.Config{Counters: config.CountersConfig{File: "counters.json", Root: "perf"}})
	jsonSrc, ok := src.(*perfcounter.JSONSource)
	require.True(t, ok)
	assert.Equal(t, "counters.json", jsonSrc.Path)
	assert.Equal(t, "perf", jsonSrc.Root)

	src = buildSource(&config.Config{Counters: config.CountersConfig{
		Static: map[string]float64{"PerfIisQueueSize": 3},
	}})
	readings, err := src.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.0, perfcounter.First(readings, perfcounter.IISQueueSize))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"version"})
	defer RootCmd.SetArgs(nil)

	require.NoError(t, RootCmd.Execute())
	assert.Equal(t, "quickpulse "+version, strings.TrimSpace(out.String()))
}
