package data

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// Sync run statuses.
const (
	SyncStatusRunning = "running"
	SyncStatusDone    = "done"
	SyncStatusFailed  = "failed"
)

const (
	insertSyncRunSQL = `INSERT INTO sync_run (run_id, dataset, status, rows_processed, error_message, created_at, updated_at)
		VALUES (?, ?, ?, 0, '', ?, ?)
	`

	updateSyncRunSQL = `UPDATE sync_run SET
			status = ?,
			rows_processed = ?,
			error_message = ?,
			updated_at = ?
		WHERE run_id = ?
	`

	selectSyncRunsSQL = `SELECT run_id, dataset, status, rows_processed, error_message, created_at, updated_at
		FROM sync_run
		ORDER BY created_at DESC, run_id
		LIMIT ?
	`
)

// SyncRun records one ingestion pass against an upstream dataset.
type SyncRun struct {
	RunID         string `json:"run_id" yaml:"runId"`
	Dataset       string `json:"dataset" yaml:"dataset"`
	Status        string `json:"status" yaml:"status"`
	RowsProcessed int    `json:"rows_processed" yaml:"rowsProcessed"`
	ErrorMessage  string `json:"error_message,omitempty" yaml:"errorMessage,omitempty"`
	CreatedAt     string `json:"created_at" yaml:"createdAt"`
	UpdatedAt     string `json:"updated_at" yaml:"updatedAt"`
}

// StartSyncRun inserts a running sync record.
func StartSyncRun(db *sql.DB, runID, dataset string) error {
	if db == nil {
		return errDBNotInitialized
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := db.Exec(insertSyncRunSQL, runID, dataset, SyncStatusRunning, now, now); err != nil {
		return errors.Wrapf(err, "failed to start sync run %s", runID)
	}
	return nil
}

// FinishSyncRun marks a sync record done or failed.
func FinishSyncRun(db *sql.DB, runID, status string, rows int, errMsg string) error {
	if db == nil {
		return errDBNotInitialized
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := db.Exec(updateSyncRunSQL, status, rows, errMsg, now, runID); err != nil {
		return errors.Wrapf(err, "failed to finish sync run %s", runID)
	}
	return nil
}

// GetSyncRuns returns the most recent sync records.
func GetSyncRuns(db *sql.DB, limit int) ([]*SyncRun, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectSyncRunsSQL, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query sync runs")
	}
	defer rows.Close()

	list := make([]*SyncRun, 0)
	for rows.Next() {
		s := &SyncRun{}
		if err := rows.Scan(&s.RunID, &s.Dataset, &s.Status, &s.RowsProcessed, &s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan sync run row")
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
