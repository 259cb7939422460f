package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holistic-planner/internal/database"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	modified  map[string]time.Time
	uploadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, modified: map[string]time.Time{}}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(data)), LastModified: m.modified[key]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) keys() []string {
	objects, _ := m.List(context.Background(), "")
	keys := make([]string, len(objects))
	for i, o := range objects {
		keys[i] = o.Key
	}
	return keys
}

func plannerDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "planner.db"),
		Name: "planner",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	_, err = db.Conn().Exec(`INSERT INTO best_result (portfolio_hash, best_sequence_hash, best_score, updated_at) VALUES ('p1', 's1', 0.7, 1)`)
	require.NoError(t, err)
	return db
}

func TestCreateAndUpload(t *testing.T) {
	db := plannerDB(t)
	store := newMemoryStore()
	service := NewBackupService(db, store, t.TempDir(), zerolog.Nop())
	service.now = func() time.Time { return time.Date(2026, 3, 1, 14, 30, 22, 0, time.UTC) }

	key, err := service.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "planner-backup-2026-03-01-143022.db.gz", key)

	gz, err := gzip.NewReader(bytes.NewReader(store.objects[key]))
	require.NoError(t, err)
	restored, err := io.ReadAll(gz)
	require.NoError(t, err)

	restoredPath := filepath.Join(t.TempDir(), "restored.db")
	require.NoError(t, writeFile(restoredPath, restored))
	conn, err := sql.Open(database.DriverModernc, restoredPath)
	require.NoError(t, err)
	defer conn.Close()

	var score float64
	require.NoError(t, conn.QueryRow(`SELECT best_score FROM best_result WHERE portfolio_hash = 'p1'`).Scan(&score))
	assert.Equal(t, 0.7, score)
}

func TestCreateAndUpload_UploadError(t *testing.T) {
	store := newMemoryStore()
	store.uploadErr = errors.New("bucket unavailable")
	dataDir := t.TempDir()
	service := NewBackupService(plannerDB(t), store, dataDir, zerolog.Nop())

	_, err := service.CreateAndUpload(context.Background())
	assert.ErrorContains(t, err, "bucket unavailable")

	staging, err := filepath.Glob(filepath.Join(dataDir, "backup-staging-*"))
	require.NoError(t, err)
	assert.Empty(t, staging, "staging files are removed on failure")
}

func TestListAndRotateBackups(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	for days := 0; days < 6; days++ {
		stamp := now.AddDate(0, 0, -days*3).Format(backupTimeLayout)
		store.objects[fmt.Sprintf("planner-backup-%s.db.gz", stamp)] = []byte("x")
	}
	store.objects["planner-backup-garbage.db.gz"] = []byte("x")

	service := NewBackupService(nil, store, t.TempDir(), zerolog.Nop())
	service.now = func() time.Time { return now }

	backups, err := service.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 6)
	assert.True(t, backups[0].Timestamp.Equal(now))
	assert.Equal(t, int64(72), backups[1].AgeHours)

	tests := []struct {
		name      string
		retention int
		deleted   int
	}{
		{"zero retention keeps all", 0, 0},
		{"seven days", 7, 3},
		{"nothing older", 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deleted, err := service.RotateOldBackups(context.Background(), tt.retention)
			require.NoError(t, err)
			assert.Equal(t, tt.deleted, deleted)
		})
	}

	assert.Len(t, store.keys(), 4, "three newest plus the unparsable key remain")
}

func TestMaintenanceJob(t *testing.T) {
	tests := []struct {
		name    string
		freeGB  float64
		wantErr bool
	}{
		{"plenty", 50, false},
		{"low", 2, false},
		{"critical", 0.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewMaintenanceJob(plannerDB(t), t.TempDir(), zerolog.Nop())
			job.usage = func(string) (*disk.UsageStat, error) {
				return &disk.UsageStat{Free: uint64(tt.freeGB * 1e9), UsedPercent: 50}, nil
			}

			err := job.Run()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBackupJob(t *testing.T) {
	store := newMemoryStore()
	job := NewBackupJob(NewBackupService(plannerDB(t), store, t.TempDir(), zerolog.Nop()), 30, 0, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, "backup", job.Name())
	assert.Len(t, store.keys(), 1)
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
