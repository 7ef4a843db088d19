package data

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), DataFileName)
	require.NoError(t, Init(path))

	db, err := GetDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), DataFileName)

	assert.Error(t, Init(""))
	assert.NoError(t, Init(path))

	// second call is a no-op on an existing file
	assert.NoError(t, Init(path))

	db, err := GetDB(path)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
	assert.False(t, Contains([]int{}, 1))
}

func TestSyncRunLifecycle(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, StartSyncRun(db, "s1", "census"))
	require.NoError(t, FinishSyncRun(db, "s1", SyncStatusDone, 42, ""))

	require.NoError(t, StartSyncRun(db, "s2", "crash"))
	require.NoError(t, FinishSyncRun(db, "s2", SyncStatusFailed, 0, "boom"))

	runs, err := GetSyncRuns(db, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byID := map[string]*SyncRun{}
	for _, r := range runs {
		byID[r.RunID] = r
	}
	assert.Equal(t, SyncStatusDone, byID["s1"].Status)
	assert.Equal(t, 42, byID["s1"].RowsProcessed)
	assert.Equal(t, SyncStatusFailed, byID["s2"].Status)
	assert.Equal(t, "boom", byID["s2"].ErrorMessage)
}
