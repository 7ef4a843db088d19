package fmcsa

import (
	"strconv"
	"strings"
	"time"

	"github.com/fleetsight/fleetsight/pkg/data"
)

// censusSelect trims census responses to the columns the pipeline
// stores.
const censusSelect = "dot_number,legal_name,dba_name,phy_street,phy_city,phy_state,phy_zip," +
	"phone,status_code,prior_revoke_flag,prior_revoke_dot_number,add_date,power_units"

// CensusRow is one carrier registration row from the census dataset.
// Socrata returns every column as a string.
type CensusRow struct {
	DOTNumber      string `json:"dot_number"`
	LegalName      string `json:"legal_name"`
	DBAName        string `json:"dba_name"`
	Street         string `json:"phy_street"`
	City           string `json:"phy_city"`
	State          string `json:"phy_state"`
	Zip            string `json:"phy_zip"`
	Phone          string `json:"phone"`
	StatusCode     string `json:"status_code"`
	PriorRevoke    string `json:"prior_revoke_flag"`
	PriorRevokeDOT string `json:"prior_revoke_dot_number"`
	AddDate        string `json:"add_date"`
	PowerUnits     string `json:"power_units"`
}

// CrashRow is one crash report row.
type CrashRow struct {
	DOTNumber    string `json:"dot_number"`
	ReportDate   string `json:"report_date"`
	ReportNumber string `json:"report_number"`
	ReportState  string `json:"report_state"`
	Fatalities   string `json:"fatalities"`
	Injuries     string `json:"injuries"`
	TowAway      string `json:"tow_away"`
}

// InspectionRow is one roadside inspection row.
type InspectionRow struct {
	DOTNumber      string `json:"dot_number"`
	InspectionDate string `json:"insp_date"`
	VIN            string `json:"vin"`
	State          string `json:"insp_state"`
	VehicleOOS     string `json:"vehicle_oos_total"`
	DriverOOS      string `json:"driver_oos_total"`
}

// safeInt parses Socrata numeric strings, which sometimes carry a
// decimal point. Unparseable values become 0.
func safeInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// safeDate reduces a Socrata timestamp to a date string, returning the
// input unchanged when no known layout matches.
func safeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02T15:04:05.000", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

func yesNo(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "YES", "TRUE", "1":
		return true
	}
	return false
}

func joinAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Carrier maps a census row to a stored carrier. The DOT number doubles
// as the carrier id.
func (r CensusRow) Carrier() *data.Carrier {
	return &data.Carrier{
		CarrierID:       strings.TrimSpace(r.DOTNumber),
		LegalName:       strings.TrimSpace(r.LegalName),
		DOT:             strings.TrimSpace(r.DOTNumber),
		Phone:           strings.TrimSpace(r.Phone),
		Address:         joinAddress(r.Street, r.City, r.State, r.Zip),
		Timestamp:       safeDate(r.AddDate),
		StatusCode:      strings.TrimSpace(r.StatusCode),
		PriorRevokeFlag: yesNo(r.PriorRevoke),
		PriorRevokeDOT:  strings.TrimSpace(r.PriorRevokeDOT),
		PowerUnits:      safeInt(r.PowerUnits),
		AddDate:         safeDate(r.AddDate),
	}
}

// Crash maps a crash row to its stored shape.
func (r CrashRow) Crash() *data.Crash {
	return &data.Crash{
		CarrierID:    strings.TrimSpace(r.DOTNumber),
		ReportDate:   safeDate(r.ReportDate),
		ReportNumber: strings.TrimSpace(r.ReportNumber),
		State:        strings.TrimSpace(r.ReportState),
		Fatalities:   safeInt(r.Fatalities),
		Injuries:     safeInt(r.Injuries),
		TowAway:      yesNo(r.TowAway),
	}
}

// Inspection maps an inspection row to its stored shape.
func (r InspectionRow) Inspection() *data.Inspection {
	return &data.Inspection{
		CarrierID:      strings.TrimSpace(r.DOTNumber),
		InspectionDate: safeDate(r.InspectionDate),
		VIN:            strings.TrimSpace(r.VIN),
		State:          strings.TrimSpace(r.State),
		VehicleOOS:     safeInt(r.VehicleOOS),
		DriverOOS:      safeInt(r.DriverOOS),
	}
}
