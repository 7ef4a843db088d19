package data

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/fleetsight/fleetsight/pkg/engine"
)

const (
	upsertRunSQL = `INSERT INTO detection_run (
			run_id, rows_processed, rows_skipped, status, threshold, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			rows_processed = excluded.rows_processed,
			rows_skipped = excluded.rows_skipped,
			status = excluded.status,
			threshold = excluded.threshold
	`

	selectLatestRunSQL = `SELECT run_id FROM detection_run ORDER BY created_at DESC, run_id LIMIT 1`
	selectRunSQL       = `SELECT run_id, rows_processed, rows_skipped, status FROM detection_run WHERE run_id = ?`

	deleteLinksSQL   = `DELETE FROM link WHERE run_id = ?`
	insertLinkSQL    = `INSERT INTO link (run_id, carrier_a, carrier_b, score, reasons_json) VALUES (?, ?, ?, ?, ?)`
	selectLinksSQL   = `SELECT carrier_a, carrier_b, score, reasons_json FROM link WHERE run_id = ? ORDER BY score DESC, carrier_a, carrier_b LIMIT ?`
	deleteClusterSQL = `DELETE FROM cluster WHERE run_id = ?`
	deleteMembersSQL = `DELETE FROM cluster_member WHERE run_id = ?`
	insertClusterSQL = `INSERT INTO cluster (run_id, cluster_id, size, edge_count, avg_link_score, max_link_score) VALUES (?, ?, ?, ?, ?, ?)`
	insertMemberSQL  = `INSERT INTO cluster_member (run_id, cluster_id, carrier_id) VALUES (?, ?, ?)`
	selectClusterSQL = `SELECT cluster_id, size, edge_count, avg_link_score, max_link_score FROM cluster WHERE run_id = ? ORDER BY max_link_score DESC, size DESC, cluster_id LIMIT ?`
	selectMembersSQL = `SELECT carrier_id FROM cluster_member WHERE run_id = ? AND cluster_id = ? ORDER BY carrier_id`
	deleteRisksSQL   = `DELETE FROM risk_score WHERE run_id = ?`
	insertRiskSQL    = `INSERT INTO risk_score (run_id, carrier_id, chameleon, safety, composite, signals_json, cluster_size) VALUES (?, ?, ?, ?, ?, ?, ?)`
	selectRisksSQL   = `SELECT carrier_id, chameleon, safety, composite, signals_json, cluster_size FROM risk_score WHERE run_id = ? ORDER BY composite DESC, carrier_id LIMIT ?`
)

// SaveResult persists a finished run: descriptor, links, clusters with
// members, and risk scores. Re-saving the same run id replaces its rows.
func SaveResult(db *sql.DB, res *engine.Result, threshold float64) error {
	if db == nil {
		return errDBNotInitialized
	}
	if res == nil {
		return errors.New("result required")
	}

	run := res.Run()

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	rollback := func(cause error) error {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrap(rbErr, "failed to rollback transaction")
		}
		return cause
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err = tx.Exec(upsertRunSQL, run.RunID, run.RowsProcessed, run.RowsSkipped, run.Status, threshold, now); err != nil {
		return rollback(errors.Wrap(err, "failed to save run"))
	}

	for _, q := range []string{deleteLinksSQL, deleteClusterSQL, deleteMembersSQL, deleteRisksSQL} {
		if _, err = tx.Exec(q, run.RunID); err != nil {
			return rollback(errors.Wrap(err, "failed to clear previous run rows"))
		}
	}

	for _, l := range res.Links() {
		reasons, err := json.Marshal(l.Reasons)
		if err != nil {
			return rollback(errors.Wrap(err, "failed to marshal link reasons"))
		}
		if _, err = tx.Exec(insertLinkSQL, run.RunID, l.CarrierA, l.CarrierB, l.Score, string(reasons)); err != nil {
			return rollback(errors.Wrapf(err, "failed to insert link %s-%s", l.CarrierA, l.CarrierB))
		}
	}

	for _, c := range res.Clusters() {
		if _, err = tx.Exec(insertClusterSQL, run.RunID, c.ClusterID, c.Size, c.EdgeCount, c.AvgLinkScore, c.MaxLinkScore); err != nil {
			return rollback(errors.Wrapf(err, "failed to insert cluster %s", c.ClusterID))
		}
		for _, m := range c.Members {
			if _, err = tx.Exec(insertMemberSQL, run.RunID, c.ClusterID, m); err != nil {
				return rollback(errors.Wrapf(err, "failed to insert cluster member %s", m))
			}
		}
	}

	for _, rs := range res.RiskScores() {
		signals, err := json.Marshal(rs.Signals)
		if err != nil {
			return rollback(errors.Wrap(err, "failed to marshal risk signals"))
		}
		if _, err = tx.Exec(insertRiskSQL, run.RunID, rs.CarrierID, rs.ChameleonScore, rs.SafetyScore, rs.CompositeScore, string(signals), rs.ClusterSize); err != nil {
			return rollback(errors.Wrapf(err, "failed to insert risk score for %s", rs.CarrierID))
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	slog.Debug("run saved",
		"run", run.RunID,
		"links", len(res.Links()),
		"clusters", len(res.Clusters()),
		"risk_scores", len(res.RiskScores()))
	return nil
}

// GetLatestRunID returns the most recently saved run id, empty when no
// run exists.
func GetLatestRunID(db *sql.DB) (string, error) {
	if db == nil {
		return "", errDBNotInitialized
	}
	var id string
	err := db.QueryRow(selectLatestRunSQL).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to query latest run")
	}
	return id, nil
}

// GetRun returns a stored run descriptor.
func GetRun(db *sql.DB, runID string) (engine.Run, error) {
	var run engine.Run
	if db == nil {
		return run, errDBNotInitialized
	}
	err := db.QueryRow(selectRunSQL, runID).Scan(&run.RunID, &run.RowsProcessed, &run.RowsSkipped, &run.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return run, errors.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return run, errors.Wrap(err, "failed to query run")
	}
	return run, nil
}

// GetResult rehydrates a stored run with its links, clusters, and risk
// scores.
func GetResult(db *sql.DB, runID string, limit int) (*engine.Result, error) {
	run, err := GetRun(db, runID)
	if err != nil {
		return nil, err
	}
	links, err := GetLinks(db, runID, limit)
	if err != nil {
		return nil, err
	}
	clusters, err := GetClusters(db, runID, limit)
	if err != nil {
		return nil, err
	}
	risks, err := GetRiskScores(db, runID, limit)
	if err != nil {
		return nil, err
	}
	return engine.RestoreResult(run, links, clusters, risks), nil
}

// GetLinks returns a run's links in assembler order: score descending,
// (carrierA, carrierB) ascending.
func GetLinks(db *sql.DB, runID string, limit int) ([]engine.PairwiseLink, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectLinksSQL, runID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query links")
	}
	defer rows.Close()

	list := make([]engine.PairwiseLink, 0)
	for rows.Next() {
		var l engine.PairwiseLink
		var reasons string
		if err := rows.Scan(&l.CarrierA, &l.CarrierB, &l.Score, &reasons); err != nil {
			return nil, errors.Wrap(err, "failed to scan link row")
		}
		if err := json.Unmarshal([]byte(reasons), &l.Reasons); err != nil {
			return nil, errors.Wrap(err, "failed to decode link reasons")
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// GetClusters returns a run's clusters with members in assembler order.
func GetClusters(db *sql.DB, runID string, limit int) ([]engine.Cluster, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectClusterSQL, runID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query clusters")
	}
	defer rows.Close()

	list := make([]engine.Cluster, 0)
	for rows.Next() {
		var c engine.Cluster
		if err := rows.Scan(&c.ClusterID, &c.Size, &c.EdgeCount, &c.AvgLinkScore, &c.MaxLinkScore); err != nil {
			return nil, errors.Wrap(err, "failed to scan cluster row")
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range list {
		mrows, err := db.Query(selectMembersSQL, runID, list[i].ClusterID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to query cluster members")
		}
		for mrows.Next() {
			var m string
			if err := mrows.Scan(&m); err != nil {
				mrows.Close()
				return nil, errors.Wrap(err, "failed to scan member row")
			}
			list[i].Members = append(list[i].Members, m)
		}
		if err := mrows.Err(); err != nil {
			mrows.Close()
			return nil, err
		}
		mrows.Close()
	}
	return list, nil
}

// GetRiskScores returns a run's risk scores in assembler order:
// composite descending, carrier id ascending.
func GetRiskScores(db *sql.DB, runID string, limit int) ([]engine.RiskScore, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectRisksSQL, runID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query risk scores")
	}
	defer rows.Close()

	list := make([]engine.RiskScore, 0)
	for rows.Next() {
		var rs engine.RiskScore
		var signals string
		if err := rows.Scan(&rs.CarrierID, &rs.ChameleonScore, &rs.SafetyScore, &rs.CompositeScore, &signals, &rs.ClusterSize); err != nil {
			return nil, errors.Wrap(err, "failed to scan risk row")
		}
		if err := json.Unmarshal([]byte(signals), &rs.Signals); err != nil {
			return nil, errors.Wrap(err, "failed to decode risk signals")
		}
		list = append(list, rs)
	}
	return list, rows.Err()
}
