package data

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/fleetsight/fleetsight/pkg/engine"
)

const (
	insertCrashSQL = `INSERT INTO crash (
			carrier_id, report_date, report_number, state, fatalities, injuries, tow_away
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`

	insertInspectionSQL = `INSERT INTO inspection (
			carrier_id, inspection_date, vin, state, vehicle_oos, driver_oos
		)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`

	// Per-carrier safety aggregates. Carriers without crash or inspection
	// rows simply produce no row here; callers treat that as zero signal.
	selectSafetyAggregatesSQL = `SELECT
			c.carrier_id,
			c.prior_revoke_flag,
			c.power_units,
			COALESCE(cr.crashes, 0),
			COALESCE(cr.fatalities, 0),
			COALESCE(cr.injuries, 0),
			COALESCE(ins.inspections, 0),
			COALESCE(ins.oos, 0)
		FROM carrier c
		LEFT JOIN (
			SELECT carrier_id, COUNT(*) AS crashes,
				SUM(fatalities) AS fatalities, SUM(injuries) AS injuries
			FROM crash GROUP BY carrier_id
		) cr ON cr.carrier_id = c.carrier_id
		LEFT JOIN (
			SELECT carrier_id, COUNT(*) AS inspections,
				SUM(CASE WHEN vehicle_oos + driver_oos > 0 THEN 1 ELSE 0 END) AS oos
			FROM inspection GROUP BY carrier_id
		) ins ON ins.carrier_id = c.carrier_id
		ORDER BY c.carrier_id
	`
)

// Crash is one stored crash report row.
type Crash struct {
	CarrierID    string `json:"carrier_id" yaml:"carrierId"`
	ReportDate   string `json:"report_date,omitempty" yaml:"reportDate,omitempty"`
	ReportNumber string `json:"report_number,omitempty" yaml:"reportNumber,omitempty"`
	State        string `json:"state,omitempty" yaml:"state,omitempty"`
	Fatalities   int    `json:"fatalities,omitempty" yaml:"fatalities,omitempty"`
	Injuries     int    `json:"injuries,omitempty" yaml:"injuries,omitempty"`
	TowAway      bool   `json:"tow_away,omitempty" yaml:"towAway,omitempty"`
}

// Inspection is one stored roadside inspection row.
type Inspection struct {
	CarrierID      string `json:"carrier_id" yaml:"carrierId"`
	InspectionDate string `json:"inspection_date,omitempty" yaml:"inspectionDate,omitempty"`
	VIN            string `json:"vin,omitempty" yaml:"vin,omitempty"`
	State          string `json:"state,omitempty" yaml:"state,omitempty"`
	VehicleOOS     int    `json:"vehicle_oos,omitempty" yaml:"vehicleOos,omitempty"`
	DriverOOS      int    `json:"driver_oos,omitempty" yaml:"driverOos,omitempty"`
}

// SaveCrashes inserts crash rows, ignoring duplicates.
func SaveCrashes(db *sql.DB, crashes []*Crash) error {
	if db == nil {
		return errDBNotInitialized
	}
	if len(crashes) == 0 {
		return nil
	}

	stmt, err := db.Prepare(insertCrashSQL)
	if err != nil {
		return errors.Wrap(err, "failed to prepare crash insert statement")
	}
	defer stmt.Close()

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	for _, c := range crashes {
		if c.CarrierID == "" {
			continue
		}
		if _, err = tx.Stmt(stmt).Exec(
			c.CarrierID, c.ReportDate, c.ReportNumber, c.State,
			c.Fatalities, c.Injuries, c.TowAway,
		); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return errors.Wrap(rbErr, "failed to rollback transaction")
			}
			return errors.Wrapf(err, "failed to insert crash for: %s", c.CarrierID)
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// SaveInspections inserts inspection rows, ignoring duplicates.
func SaveInspections(db *sql.DB, inspections []*Inspection) error {
	if db == nil {
		return errDBNotInitialized
	}
	if len(inspections) == 0 {
		return nil
	}

	stmt, err := db.Prepare(insertInspectionSQL)
	if err != nil {
		return errors.Wrap(err, "failed to prepare inspection insert statement")
	}
	defer stmt.Close()

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	for _, i := range inspections {
		if i.CarrierID == "" {
			continue
		}
		if _, err = tx.Stmt(stmt).Exec(
			i.CarrierID, i.InspectionDate, i.VIN, i.State,
			i.VehicleOOS, i.DriverOOS,
		); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return errors.Wrap(rbErr, "failed to rollback transaction")
			}
			return errors.Wrapf(err, "failed to insert inspection for: %s", i.CarrierID)
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// GetSafetyAggregates builds the per-carrier safety inputs consumed by
// the risk scorer. Carriers without any safety history map to the zero
// value.
func GetSafetyAggregates(db *sql.DB) (engine.SafetyMap, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := db.Query(selectSafetyAggregatesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query safety aggregates")
	}
	defer rows.Close()

	out := make(engine.SafetyMap)
	for rows.Next() {
		var id string
		var s engine.SafetyInputs
		if err := rows.Scan(
			&id, &s.PriorRevoke, &s.PowerUnits,
			&s.Crashes, &s.Fatalities, &s.Injuries,
			&s.Inspections, &s.OutOfService,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan safety row")
		}
		out[id] = s
	}
	return out, rows.Err()
}
