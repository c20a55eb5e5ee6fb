package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/signalist/signalist/internal/database"
)

const (
	// DefaultRunRetention is how long function run history is kept
	DefaultRunRetention = 30 * 24 * time.Hour

	criticalFreeGB = 0.5
	lowFreeGB      = 5.0
)

// DatabaseSource hands out the shared database
type DatabaseSource interface {
	Get(ctx context.Context) (*database.DB, error)
}

// SessionPurger removes expired sign-in sessions
type SessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// RunPruner removes function run records older than a cutoff
type RunPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// DailyMaintenanceJob checks integrity, checkpoints the WAL, purges stale rows and watches disk space
type DailyMaintenanceJob struct {
	db           DatabaseSource
	sessions     SessionPurger
	runs         RunPruner
	dataDir      string
	runRetention time.Duration
	diskUsage    func(path string) (*disk.UsageStat, error)
	now          func() time.Time
	log          zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(
	db DatabaseSource,
	sessions SessionPurger,
	runs RunPruner,
	dataDir string,
	log zerolog.Logger,
) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		db:           db,
		sessions:     sessions,
		runs:         runs,
		dataDir:      dataDir,
		runRetention: DefaultRunRetention,
		diskUsage:    disk.Usage,
		now:          time.Now,
		log:          log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	ctx := context.Background()
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	db, err := j.db.Get(ctx)
	if err != nil {
		return fmt.Errorf("maintenance: %w", err)
	}

	if err := db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("CRITICAL: Database integrity check failed")
		return err
	}

	// Not critical; the next run retries
	if _, err := db.Conn().ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	if j.sessions != nil {
		n, err := j.sessions.DeleteExpired(ctx)
		if err != nil {
			j.log.Warn().Err(err).Msg("Failed to purge expired sessions")
		} else if n > 0 {
			j.log.Info().Int64("deleted", n).Msg("Purged expired sessions")
		}
	}

	if j.runs != nil {
		n, err := j.runs.Prune(ctx, j.now().Add(-j.runRetention))
		if err != nil {
			j.log.Warn().Err(err).Msg("Failed to prune function runs")
		} else if n > 0 {
			j.log.Info().Int64("deleted", n).Msg("Pruned function runs")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")

	return nil
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

func (j *DailyMaintenanceJob) checkDiskSpace() error {
	usage, err := j.diskUsage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return nil
	}

	availableGB := float64(usage.Free) / 1e9
	j.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")

	switch {
	case availableGB < criticalFreeGB:
		j.log.Error().Float64("available_gb", availableGB).Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("only %.2f GB free in %s", availableGB, j.dataDir)
	case availableGB < lowFreeGB:
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}
	return nil
}

// BackupJob runs one snapshot upload and rotation
type BackupJob struct {
	service *BackupService
	timeout time.Duration
}

// NewBackupJob wraps service for the scheduler
func NewBackupJob(service *BackupService) *BackupJob {
	return &BackupJob{service: service, timeout: 10 * time.Minute}
}

// Run executes the backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.service.Run(ctx)
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "database_backup"
}
