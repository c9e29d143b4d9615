package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familia/internal/config"
	"familia/internal/service"
)

func testConfig(t *testing.T) func() *config.Config {
	dbPath := filepath.Join(t.TempDir(), "ctl.db")
	return func() *config.Config {
		return &config.Config{DatabaseType: "sqlite", DatabasePath: dbPath}
	}
}

func execute(t *testing.T, loadConfig func() *config.Config, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(loadConfig)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateAndReconcile(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, cfg, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrations applied (sqlite)")

	out, err = execute(t, cfg, "", "reconcile")
	require.NoError(t, err)
	var report service.ReconcileReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 0, report.Total())
}

func TestBackupExportImport(t *testing.T) {
	cfg := testConfig(t)
	file := filepath.Join(t.TempDir(), "out", "backup.json")

	_, err := execute(t, cfg, "", "backup", "export", "--output", file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "`+service.BackupVersion+`"`)

	out, err := execute(t, cfg, "no\n", "backup", "import", "--input", file, "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Import cancelled")

	out, err = execute(t, cfg, "", "backup", "import", "--input", file, "--clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Import complete")

	_, err = execute(t, cfg, "", "backup", "import")
	assert.Error(t, err)
}

func TestQRCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "family.png")
	out, err := execute(t, nil, "", "qr", "fam-1", "--output", file, "--size", "128")
	require.NoError(t, err)
	assert.Contains(t, out, "familia://join/fam-1")

	png, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
