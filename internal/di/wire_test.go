package di

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalist/signalist/internal/clients/mailer"
	"github.com/signalist/signalist/internal/config"
	"github.com/signalist/signalist/internal/database"
)

func testConfig(t *testing.T) *config.Config {
	tmpDir := t.TempDir()
	return &config.Config{
		DataDir:          tmpDir,
		DatabasePath:     filepath.Join(tmpDir, "signalist.db"),
		BaseURL:          "http://localhost:3000",
		FinnhubBaseURL:   "http://127.0.0.1:1",
		FinnhubAPIKey:    "test-key",
		EmailUnsubSecret: "unsub-secret",
		SessionSecret:    "session-secret",
		DigestCron:       "0 0 12 * * *",
		Backup:           &config.BackupConfig{},
	}
}

func jobNames(c *Container) []string {
	var names []string
	for _, e := range c.Scheduler.Entries() {
		names = append(names, e.Job)
	}
	sort.Strings(names)
	return names
}

func TestWire(t *testing.T) {
	container, err := Wire(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		container.Functions.Stop()
		_ = container.Close()
	})

	// The database is not opened until first use
	assert.Equal(t, database.StateUninitialized, container.DB.State())

	assert.NotNil(t, container.UserRepo)
	assert.NotNil(t, container.AuthMiddleware)
	assert.NotNil(t, container.MarketGateway)
	assert.NotNil(t, container.DigestJob)
	assert.Nil(t, container.AI)
	assert.Nil(t, container.Backup)
	assert.IsType(t, &mailer.LogSender{}, container.Mailer)
	require.NotNil(t, container.FunctionSigner)
	assert.False(t, container.FunctionSigner.Enabled())

	ids := []string{}
	for _, fn := range container.Functions.Registry().All() {
		ids = append(ids, fn.ID)
	}
	assert.Equal(t, []string{"daily-news-summary", "sign-up-email"}, ids)

	assert.Equal(t, []string{"client_data_cleanup", "daily-news-summary", "daily_maintenance", "watchlist_metrics_refresh"}, jobNames(container))
}

func TestWire_SMTPConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.SMTP = config.SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "news@example.com", Password: "pw"}

	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.IsType(t, &mailer.SMTPSender{}, container.Mailer)
}

func TestWire_BackupEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup = &config.BackupConfig{
		Bucket:          "signalist-backups",
		Endpoint:        "http://127.0.0.1:9000",
		Region:          "auto",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Schedule:        "0 30 3 * * *",
		Keep:            7,
	}

	container, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	require.NotNil(t, container.Backup)
	assert.Contains(t, jobNames(container), "database_backup")
}

func TestWire_InvalidDigestCron(t *testing.T) {
	cfg := testConfig(t)
	cfg.DigestCron = "not a schedule"

	_, err := Wire(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestInitializeServices_RequiresRepositories(t *testing.T) {
	cfg := testConfig(t)
	container := InitializeDatabase(cfg, zerolog.Nop())
	t.Cleanup(func() { _ = container.Close() })

	assert.Error(t, InitializeServices(context.Background(), container, cfg, zerolog.Nop()))
}
