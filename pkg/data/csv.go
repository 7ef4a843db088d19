package data

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/fleetsight/fleetsight/pkg/engine"
)

// requiredColumns is the header contract for carrier CSV files. Column
// order in the file does not matter, extra columns are ignored.
var requiredColumns = []string{
	"carrier_id",
	"legal_name",
	"dot",
	"mc",
	"phone",
	"email",
	"address",
	"ip",
	"timestamp",
}

// LoadCarriersCSV reads carrier records from a headered CSV file. Rows
// without a carrier_id are skipped with a warning. The returned slice
// is ordered by carrier id.
func LoadCarriersCSV(path string) ([]engine.CarrierRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.Errorf("file %s has no header row", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read header from %s", path)
	}

	names := make([]string, len(header))
	col := make(map[string]int, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
		col[names[i]] = i
	}
	for _, c := range requiredColumns {
		if !Contains(names, c) {
			return nil, errors.Errorf("file %s is missing required column: %s", path, c)
		}
	}

	field := func(row []string, name string) string {
		i := col[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	list := make([]engine.CarrierRecord, 0)
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read row %d from %s", line, path)
		}
		id := field(row, "carrier_id")
		if id == "" {
			slog.Warn("skipping row without carrier_id", "file", path, "line", line)
			continue
		}
		list = append(list, engine.CarrierRecord{
			CarrierID: id,
			LegalName: field(row, "legal_name"),
			DOT:       field(row, "dot"),
			MC:        field(row, "mc"),
			Phone:     field(row, "phone"),
			Email:     field(row, "email"),
			Address:   field(row, "address"),
			IP:        field(row, "ip"),
			Timestamp: field(row, "timestamp"),
		})
	}

	sortRecords(list)
	slog.Debug("carriers loaded from csv", "file", path, "count", len(list))
	return list, nil
}

func sortRecords(list []engine.CarrierRecord) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CarrierID < list[j].CarrierID
	})
}

// WriteCarriersCSV writes records to a headered CSV file at path.
func WriteCarriersCSV(path string, list []engine.CarrierRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(requiredColumns); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for _, r := range list {
		row := []string{r.CarrierID, r.LegalName, r.DOT, r.MC, r.Phone, r.Email, r.Address, r.IP, r.Timestamp}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write row for %s", r.CarrierID)
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "failed to flush csv")
}
