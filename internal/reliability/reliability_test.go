package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalist/signalist/internal/database"
	testingutil "github.com/signalist/signalist/internal/testing"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleteErr map[string]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte), deleteErr: make(map[string]error)}
}

func (m *memoryStore) Upload(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(ctx context.Context, prefix string) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Object
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Object{Key: k, SizeBytes: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[key]; err != nil {
		return err
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestBackupKeyRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 10, 14, 5, 9, 0, time.UTC)
	key := BackupKey(ts)
	assert.Equal(t, "signalist-backup-2024-03-10-140509.db.gz", key)

	parsed, ok := ParseBackupKey(key)
	require.True(t, ok)
	assert.True(t, parsed.Equal(ts))
}

func TestParseBackupKey_Foreign(t *testing.T) {
	for _, key := range []string{"notes.txt", "signalist-backup-yesterday.db.gz", "signalist-backup-2024-03-10-140509.tar.gz"} {
		_, ok := ParseBackupKey(key)
		assert.False(t, ok, key)
	}
}

func TestCreateAndUpload(t *testing.T) {
	db, cleanup := testingutil.NewTestDB(t, "signalist")
	defer cleanup()

	store := newMemoryStore()
	svc := NewBackupService(store, db, t.TempDir(), 3, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 10, 3, 30, 0, 0, time.UTC) }

	key, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "signalist-backup-2024-03-10-033000.db.gz", key)

	gz, err := gzip.NewReader(bytes.NewReader(store.objects[key]))
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("SQLite format 3")))
}

type failingSnapshot struct{}

func (failingSnapshot) SnapshotTo(ctx context.Context, destPath string) error {
	return errors.New("disk full")
}

func TestCreateAndUpload_SnapshotFailure(t *testing.T) {
	store := newMemoryStore()
	svc := NewBackupService(store, failingSnapshot{}, t.TempDir(), 3, zerolog.Nop())

	_, err := svc.CreateAndUpload(context.Background())
	require.Error(t, err)
	assert.Empty(t, store.keys())
}

func seedBackups(store *memoryStore, base time.Time, n int) []string {
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = BackupKey(base.Add(time.Duration(i) * 24 * time.Hour))
		store.objects[keys[i]] = []byte("x")
	}
	return keys
}

func TestListBackups_NewestFirst(t *testing.T) {
	store := newMemoryStore()
	base := time.Date(2024, 3, 1, 3, 30, 0, 0, time.UTC)
	seedBackups(store, base, 3)
	store.objects["signalist-backup-junk"] = []byte("x")

	svc := NewBackupService(store, failingSnapshot{}, t.TempDir(), 3, zerolog.Nop())
	svc.now = func() time.Time { return base.Add(72 * time.Hour) }

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, int64(24), backups[0].AgeHours)
	assert.Equal(t, int64(72), backups[2].AgeHours)
}

func TestRotate_KeepsNewest(t *testing.T) {
	store := newMemoryStore()
	keys := seedBackups(store, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 5)
	store.objects["unrelated.txt"] = []byte("x")

	svc := NewBackupService(store, failingSnapshot{}, t.TempDir(), 2, zerolog.Nop())
	deleted, err := svc.Rotate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.Equal(t, []string{keys[3], keys[4], "unrelated.txt"}, store.keys())
}

func TestRotate_DeleteFailureIsSkipped(t *testing.T) {
	store := newMemoryStore()
	keys := seedBackups(store, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 3)
	store.deleteErr[keys[0]] = errors.New("denied")

	svc := NewBackupService(store, failingSnapshot{}, t.TempDir(), 1, zerolog.Nop())
	deleted, err := svc.Rotate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Contains(t, store.keys(), keys[0])
}

func TestNewBackupService_KeepFloor(t *testing.T) {
	svc := NewBackupService(newMemoryStore(), failingSnapshot{}, "", 0, zerolog.Nop())
	assert.Equal(t, MinBackupsToKeep, svc.keep)
}

type staticSource struct{ db *database.DB }

func (s staticSource) Get(ctx context.Context) (*database.DB, error) { return s.db, nil }

type countingPurger struct{ calls int }

func (c *countingPurger) DeleteExpired(ctx context.Context) (int64, error) {
	c.calls++
	return 2, nil
}

type recordingPruner struct{ cutoff time.Time }

func (r *recordingPruner) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	r.cutoff = cutoff
	return 0, nil
}

func TestDailyMaintenanceJob_Run(t *testing.T) {
	db, cleanup := testingutil.NewTestDB(t, "signalist")
	defer cleanup()

	purger := &countingPurger{}
	pruner := &recordingPruner{}
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	job := NewDailyMaintenanceJob(staticSource{db}, purger, pruner, t.TempDir(), zerolog.Nop())
	job.now = func() time.Time { return now }
	job.diskUsage = func(string) (*disk.UsageStat, error) { return &disk.UsageStat{Free: 50e9}, nil }

	require.NoError(t, job.Run())
	assert.Equal(t, "daily_maintenance", job.Name())
	assert.Equal(t, 1, purger.calls)
	assert.Equal(t, now.Add(-DefaultRunRetention), pruner.cutoff)
}

func TestDailyMaintenanceJob_CriticalDisk(t *testing.T) {
	db, cleanup := testingutil.NewTestDB(t, "signalist")
	defer cleanup()

	job := NewDailyMaintenanceJob(staticSource{db}, nil, nil, t.TempDir(), zerolog.Nop())
	job.diskUsage = func(string) (*disk.UsageStat, error) { return &disk.UsageStat{Free: 1e8}, nil }

	assert.Error(t, job.Run())
}

func TestDailyMaintenanceJob_DiskReadFailureIsIgnored(t *testing.T) {
	db, cleanup := testingutil.NewTestDB(t, "signalist")
	defer cleanup()

	job := NewDailyMaintenanceJob(staticSource{db}, nil, nil, t.TempDir(), zerolog.Nop())
	job.diskUsage = func(string) (*disk.UsageStat, error) { return nil, errors.New("unsupported") }

	assert.NoError(t, job.Run())
}
