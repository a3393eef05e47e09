package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/fxsignal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { cfgFile = "" })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fxsignal version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fxsignal.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")
	assert.FileExists(t, path)

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "$15000")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  source: yahoo\n"), 0o600))

	_, err := execute(t, "config", "validate", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed.source")
}

// writeFixture lays out a config with a CSV feed of falling EURUSD closes.
func writeFixture(t *testing.T) (cfgPath, sinkPath string) {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.Mkdir(dataDir, 0o755))

	var b strings.Builder
	b.WriteString("time,instrument,granularity,complete,volume,o,h,l,c\n")
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		c := 1.1 - float64(i)*0.001
		fmt.Fprintf(&b, "%s,EUR_USD,H1,true,10,%.5f,%.5f,%.5f,%.5f\n",
			start.Add(time.Duration(i)*time.Hour).Format(time.RFC3339), c, c, c, c)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "EUR_USD_H1.csv"), []byte(b.String()), 0o644))

	cfg := config.Default()
	cfg.Feed.Source = "csv"
	cfg.Feed.CSVDir = dataDir
	cfg.Sink.Path = filepath.Join(dir, "signals.txt")
	cfgPath = filepath.Join(dir, "fxsignal.yaml")
	require.NoError(t, cfg.SaveToFile(cfgPath))
	return cfgPath, cfg.Sink.Path
}

func TestSignalWritesSinkAndDashboardReadsIt(t *testing.T) {
	cfgPath, sinkPath := writeFixture(t)

	out, err := execute(t, "signal", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "BUY EURUSD")
	assert.Contains(t, out, "0.50 lots")

	data, err := os.ReadFile(sinkPath)
	require.NoError(t, err)
	assert.Equal(t, "BUY", string(data))

	out, err = execute(t, "dashboard", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "= BUY")
}

func TestSignalUnknownSymbol(t *testing.T) {
	cfgPath, sinkPath := writeFixture(t)

	_, err := execute(t, "signal", "XYZABC", "-c", cfgPath)
	require.Error(t, err)
	assert.NoFileExists(t, sinkPath)
}

func TestFetchRequiresToken(t *testing.T) {
	t.Setenv("OANDA_TOKEN", "")

	_, err := execute(t, "fetch", "EURUSD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OANDA_TOKEN")
}
