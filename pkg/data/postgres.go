package data

import (
	"database/sql"
	"encoding/json"
	"log/slog"

	// registers the postgres driver
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/fleetsight/fleetsight/pkg/engine"
)

// Downstream dashboards read finished runs from Postgres. The local
// sqlite file stays the system of record, this is a one way export.
const pgSchemaSQL = `
	CREATE TABLE IF NOT EXISTS carrier_link (
		run_id TEXT NOT NULL,
		carrier_a TEXT NOT NULL,
		carrier_b TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		reasons_json TEXT NOT NULL,
		PRIMARY KEY (run_id, carrier_a, carrier_b)
	);
	CREATE TABLE IF NOT EXISTS carrier_cluster (
		run_id TEXT NOT NULL,
		cluster_id TEXT NOT NULL,
		size INTEGER NOT NULL,
		edge_count INTEGER NOT NULL,
		avg_link_score DOUBLE PRECISION NOT NULL,
		max_link_score DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, cluster_id)
	);
	CREATE TABLE IF NOT EXISTS cluster_member (
		run_id TEXT NOT NULL,
		cluster_id TEXT NOT NULL,
		carrier_id TEXT NOT NULL,
		PRIMARY KEY (run_id, cluster_id, carrier_id)
	);
	CREATE TABLE IF NOT EXISTS carrier_risk_score (
		run_id TEXT NOT NULL,
		carrier_id TEXT NOT NULL,
		chameleon DOUBLE PRECISION NOT NULL,
		safety DOUBLE PRECISION NOT NULL,
		composite DOUBLE PRECISION NOT NULL,
		signals_json TEXT NOT NULL,
		cluster_size INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, carrier_id)
	)
`

const (
	pgInsertLinkSQL    = `INSERT INTO carrier_link (run_id, carrier_a, carrier_b, score, reasons_json) VALUES ($1, $2, $3, $4, $5)`
	pgInsertClusterSQL = `INSERT INTO carrier_cluster (run_id, cluster_id, size, edge_count, avg_link_score, max_link_score) VALUES ($1, $2, $3, $4, $5, $6)`
	pgInsertMemberSQL  = `INSERT INTO cluster_member (run_id, cluster_id, carrier_id) VALUES ($1, $2, $3)`
	pgInsertRiskSQL    = `INSERT INTO carrier_risk_score (run_id, carrier_id, chameleon, safety, composite, signals_json, cluster_size) VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// OpenPostgres connects to the export target and ensures its schema.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping postgres")
	}
	if _, err := db.Exec(pgSchemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ensure export schema")
	}
	return db, nil
}

// ExportResult writes a run's links, clusters, and risk scores to the
// Postgres export target. Re-exporting a run replaces its rows.
func ExportResult(db *sql.DB, res *engine.Result) error {
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

	for _, table := range []string{"carrier_link", "carrier_cluster", "cluster_member", "carrier_risk_score"} {
		if _, err = tx.Exec(`DELETE FROM `+table+` WHERE run_id = $1`, run.RunID); err != nil {
			return rollback(errors.Wrapf(err, "failed to clear %s", table))
		}
	}

	for _, l := range res.Links() {
		reasons, err := json.Marshal(l.Reasons)
		if err != nil {
			return rollback(errors.Wrap(err, "failed to marshal link reasons"))
		}
		if _, err = tx.Exec(pgInsertLinkSQL, run.RunID, l.CarrierA, l.CarrierB, l.Score, string(reasons)); err != nil {
			return rollback(errors.Wrapf(err, "failed to export link %s-%s", l.CarrierA, l.CarrierB))
		}
	}

	for _, c := range res.Clusters() {
		if _, err = tx.Exec(pgInsertClusterSQL, run.RunID, c.ClusterID, c.Size, c.EdgeCount, c.AvgLinkScore, c.MaxLinkScore); err != nil {
			return rollback(errors.Wrapf(err, "failed to export cluster %s", c.ClusterID))
		}
		for _, m := range c.Members {
			if _, err = tx.Exec(pgInsertMemberSQL, run.RunID, c.ClusterID, m); err != nil {
				return rollback(errors.Wrapf(err, "failed to export cluster member %s", m))
			}
		}
	}

	for _, rs := range res.RiskScores() {
		signals, err := json.Marshal(rs.Signals)
		if err != nil {
			return rollback(errors.Wrap(err, "failed to marshal risk signals"))
		}
		if _, err = tx.Exec(pgInsertRiskSQL, run.RunID, rs.CarrierID, rs.ChameleonScore, rs.SafetyScore, rs.CompositeScore, string(signals), rs.ClusterSize); err != nil {
			return rollback(errors.Wrapf(err, "failed to export risk score for %s", rs.CarrierID))
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	slog.Info("run exported to postgres",
		"run", run.RunID,
		"links", len(res.Links()),
		"clusters", len(res.Clusters()),
		"risk_scores", len(res.RiskScores()))
	return nil
}
