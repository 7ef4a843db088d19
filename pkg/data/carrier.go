package data

import (
	"database/sql"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/fleetsight/fleetsight/pkg/engine"
)

const (
	upsertCarrierSQL = `INSERT INTO carrier (
			carrier_id,
			legal_name,
			dot,
			mc,
			phone,
			email,
			address,
			ip,
			timestamp,
			status_code,
			prior_revoke_flag,
			prior_revoke_dot,
			power_units,
			add_date
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (carrier_id) DO UPDATE SET
			legal_name = excluded.legal_name,
			dot = excluded.dot,
			mc = excluded.mc,
			phone = excluded.phone,
			email = excluded.email,
			address = excluded.address,
			ip = excluded.ip,
			timestamp = excluded.timestamp,
			status_code = excluded.status_code,
			prior_revoke_flag = excluded.prior_revoke_flag,
			prior_revoke_dot = excluded.prior_revoke_dot,
			power_units = excluded.power_units,
			add_date = excluded.add_date
	`

	selectCarriersSQL = `SELECT
			carrier_id,
			legal_name,
			dot,
			mc,
			phone,
			email,
			address,
			ip,
			timestamp,
			status_code,
			prior_revoke_flag,
			prior_revoke_dot,
			power_units,
			add_date
		FROM carrier
		ORDER BY carrier_id
	`

	countCarriersSQL = `SELECT COUNT(*) FROM carrier`
)

// Carrier is one stored carrier row: the record fields the engine scores
// plus the FMCSA registration attributes used for safety scoring.
type Carrier struct {
	CarrierID       string `json:"carrier_id" yaml:"carrierId"`
	LegalName       string `json:"legal_name,omitempty" yaml:"legalName,omitempty"`
	DOT             string `json:"dot,omitempty" yaml:"dot,omitempty"`
	MC              string `json:"mc,omitempty" yaml:"mc,omitempty"`
	Phone           string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email           string `json:"email,omitempty" yaml:"email,omitempty"`
	Address         string `json:"address,omitempty" yaml:"address,omitempty"`
	IP              string `json:"ip,omitempty" yaml:"ip,omitempty"`
	Timestamp       string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	StatusCode      string `json:"status_code,omitempty" yaml:"statusCode,omitempty"`
	PriorRevokeFlag bool   `json:"prior_revoke_flag,omitempty" yaml:"priorRevokeFlag,omitempty"`
	PriorRevokeDOT  string `json:"prior_revoke_dot,omitempty" yaml:"priorRevokeDot,omitempty"`
	PowerUnits      int    `json:"power_units,omitempty" yaml:"powerUnits,omitempty"`
	AddDate         string `json:"add_date,omitempty" yaml:"addDate,omitempty"`
}

// Record maps the stored row to the engine's input shape.
func (c *Carrier) Record() engine.CarrierRecord {
	return engine.CarrierRecord{
		CarrierID: c.CarrierID,
		LegalName: c.LegalName,
		DOT:       c.DOT,
		MC:        c.MC,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		IP:        c.IP,
		Timestamp: c.Timestamp,
	}
}

// SaveCarriers upserts the carriers in one transaction.
func SaveCarriers(db *sql.DB, carriers []*Carrier) error {
	if db == nil {
		return errDBNotInitialized
	}
	if len(carriers) == 0 {
		return nil
	}

	stmt, err := db.Prepare(upsertCarrierSQL)
	if err != nil {
		return errors.Wrap(err, "failed to prepare carrier upsert statement")
	}
	defer stmt.Close()

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	for _, c := range carriers {
		if c.CarrierID == "" {
			continue
		}
		_, err = tx.Stmt(stmt).Exec(
			c.CarrierID, c.LegalName, c.DOT, c.MC,
			c.Phone, c.Email, c.Address, c.IP, c.Timestamp,
			c.StatusCode, c.PriorRevokeFlag, c.PriorRevokeDOT,
			c.PowerUnits, c.AddDate,
		)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return errors.Wrap(rbErr, "failed to rollback transaction")
			}
			return errors.Wrapf(err, "failed to upsert carrier: %s", c.CarrierID)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	slog.Debug("carriers saved", "count", len(carriers))
	return nil
}

// GetCarriers returns every stored carrier ordered by carrier id.
func GetCarriers(db *sql.DB) ([]*Carrier, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectCarriersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query carriers")
	}
	defer rows.Close()

	list := make([]*Carrier, 0)
	for rows.Next() {
		c := &Carrier{}
		if err := rows.Scan(
			&c.CarrierID, &c.LegalName, &c.DOT, &c.MC,
			&c.Phone, &c.Email, &c.Address, &c.IP, &c.Timestamp,
			&c.StatusCode, &c.PriorRevokeFlag, &c.PriorRevokeDOT,
			&c.PowerUnits, &c.AddDate,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan carrier row")
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// CountCarriers returns the stored carrier count.
func CountCarriers(db *sql.DB) (int, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	var n int
	if err := db.QueryRow(countCarriersSQL).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count carriers")
	}
	return n, nil
}

// Records converts stored carriers to engine input rows.
func Records(carriers []*Carrier) []engine.CarrierRecord {
	out := make([]engine.CarrierRecord, 0, len(carriers))
	for _, c := range carriers {
		out = append(out, c.Record())
	}
	return out
}
