// Package reliability keeps the database healthy: off-site snapshots and daily maintenance.
package reliability

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	backupPrefix     = "signalist-backup-"
	backupSuffix     = ".db.gz"
	backupTimeLayout = "2006-01-02-150405"

	// MinBackupsToKeep is the floor applied to any retention setting
	MinBackupsToKeep = 1
)

// Snapshotter writes a consistent copy of the database to a file
type Snapshotter interface {
	SnapshotTo(ctx context.Context, destPath string) error
}

// BackupInfo describes a backup stored in the bucket
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupService snapshots the database and keeps the newest copies in object storage
type BackupService struct {
	store   ObjectStore
	db      Snapshotter
	dataDir string
	keep    int
	now     func() time.Time
	log     zerolog.Logger
}

// NewBackupService creates a backup service staging snapshots under dataDir
func NewBackupService(store ObjectStore, db Snapshotter, dataDir string, keep int, log zerolog.Logger) *BackupService {
	if keep < MinBackupsToKeep {
		keep = MinBackupsToKeep
	}
	return &BackupService{
		store:   store,
		db:      db,
		dataDir: dataDir,
		keep:    keep,
		now:     time.Now,
		log:     log.With().Str("service", "backup").Logger(),
	}
}

// BackupKey returns the object key for a snapshot taken at t
func BackupKey(t time.Time) string {
	return backupPrefix + t.UTC().Format(backupTimeLayout) + backupSuffix
}

// ParseBackupKey extracts the snapshot time from a key; ok is false for foreign objects
func ParseBackupKey(key string) (time.Time, bool) {
	if !strings.HasPrefix(key, backupPrefix) || !strings.HasSuffix(key, backupSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(key, backupPrefix), backupSuffix)
	t, err := time.Parse(backupTimeLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CreateAndUpload snapshots the database with VACUUM INTO, gzips it and uploads it.
// The staging files are removed afterwards.
func (s *BackupService) CreateAndUpload(ctx context.Context) (string, error) {
	startTime := s.now()
	key := BackupKey(startTime)

	stagingDir, err := os.MkdirTemp(s.dataDir, "backup-staging-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	snapshotPath := filepath.Join(stagingDir, "signalist.db")
	if err := s.db.SnapshotTo(ctx, snapshotPath); err != nil {
		return "", err
	}

	archivePath := snapshotPath + ".gz"
	if err := compressFile(snapshotPath, archivePath); err != nil {
		return "", fmt.Errorf("failed to compress snapshot: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer archive.Close()

	if err := s.store.Upload(ctx, key, archive); err != nil {
		return "", err
	}

	s.log.Info().
		Str("key", key).
		Dur("duration", time.Since(startTime)).
		Msg("Backup uploaded")

	return key, nil
}

// ListBackups returns recognised backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, backupPrefix)
	if err != nil {
		return nil, err
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		timestamp, ok := ParseBackupKey(obj.Key)
		if !ok {
			s.log.Debug().Str("key", obj.Key).Msg("Skipping unrecognised object")
			continue
		}
		backups = append(backups, BackupInfo{
			Filename:  obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// Rotate deletes everything beyond the newest keep backups. A failed delete is logged and skipped.
func (s *BackupService) Rotate(ctx context.Context) (int, error) {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) <= s.keep {
		return 0, nil
	}

	deleted := 0
	for _, b := range backups[s.keep:] {
		if err := s.store.Delete(ctx, b.Filename); err != nil {
			s.log.Error().Err(err).Str("filename", b.Filename).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")

	return deleted, nil
}

// Run performs one backup and rotation
func (s *BackupService) Run(ctx context.Context) error {
	if _, err := s.CreateAndUpload(ctx); err != nil {
		return err
	}
	_, err := s.Rotate(ctx)
	return err
}

func compressFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(src)
	if _, err := io.Copy(gz, in); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}
