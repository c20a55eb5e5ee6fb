package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalist/signalist/internal/database"
)

func TestPingDatabase(t *testing.T) {
	connector := database.NewSQLiteConnector(database.Config{
		Path: filepath.Join(t.TempDir(), "signalist.db"),
		Name: "signalist",
	}, zerolog.Nop())
	defer connector.Close()

	report := pingDatabase(context.Background(), connector)
	assert.True(t, report.OK)
	assert.Equal(t, "signalist", report.Database)
	assert.Equal(t, "connected", report.State)
	assert.Empty(t, report.Error)
}

func TestPingDatabase_Unreachable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	connector := database.NewSQLiteConnector(database.Config{
		Path: filepath.Join(blocker, "nested", "signalist.db"),
		Name: "signalist",
	}, zerolog.Nop())
	defer connector.Close()

	report := pingDatabase(context.Background(), connector)
	assert.False(t, report.OK)
	assert.NotEmpty(t, report.Error)
	assert.Equal(t, "disconnected", report.State)
}

func TestDBPingCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "ping.db"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"db-ping", "--log-level", "error"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var report PingReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.True(t, report.OK)
	assert.Equal(t, "sqlite://"+filepath.Join(dir, "ping.db"), report.URI)
}
