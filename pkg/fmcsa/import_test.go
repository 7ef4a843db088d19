package fmcsa

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsight/fleetsight/pkg/data"
)

// fakeSoda serves a tiny census with one prior-revoke seed, its revoked
// ancestor, and a neighbor sharing the seed's phone number.
func fakeSoda(t *testing.T) *httptest.Server {
	t.Helper()

	seed := CensusRow{
		DOTNumber: "100001", LegalName: "North Route Logistics LLC",
		Street: "100 Main Street", City: "Dallas", State: "TX",
		Phone: "5551000001", PriorRevoke: "Y", PriorRevokeDOT: "99001",
	}
	ancestor := CensusRow{
		DOTNumber: "99001", LegalName: "Old North Route Inc",
		Street: "100 Main Street", City: "Dallas", State: "TX",
	}
	neighbor := CensusRow{
		DOTNumber: "100002", LegalName: "NR Transport Services",
		Street: "7 Elm Street", City: "Austin", State: "TX",
		Phone: "5551000001",
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("$offset")
		where := r.URL.Query().Get("$where")

		var out any = []CensusRow{}
		if offset == "0" {
			switch {
			case strings.HasSuffix(r.URL.Path, CensusResource+".json"):
				switch {
				case where == "prior_revoke_flag='Y'":
					out = []CensusRow{seed}
				case strings.HasPrefix(where, "dot_number in("):
					out = []CensusRow{ancestor}
				case strings.Contains(where, "phone='5551000001'"):
					out = []CensusRow{seed, neighbor}
				}
			case strings.HasSuffix(r.URL.Path, CrashResource+".json"):
				out = []CrashRow{{DOTNumber: "99001", ReportDate: "2024-05-01", ReportNumber: "R1", Fatalities: "1"}}
			case strings.HasSuffix(r.URL.Path, InspectionResource+".json"):
				out = []InspectionRow{{DOTNumber: "100001", InspectionDate: "2024-06-01", VIN: "V1", VehicleOOS: "1"}}
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(out))
	}))
}

func setupImportDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), data.DataFileName)
	require.NoError(t, data.Init(path))
	db, err := data.GetDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestImporterRun(t *testing.T) {
	srv := fakeSoda(t)
	defer srv.Close()

	db := setupImportDB(t)
	im := NewImporter(NewClient("", WithBaseURL(srv.URL)), db)

	count, err := im.Run(context.Background(), ImportOptions{MaxSeeds: 10, ExpandHops: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	carriers, err := data.GetCarriers(db)
	require.NoError(t, err)
	require.Len(t, carriers, 3)
	assert.Equal(t, "100001", carriers[0].CarrierID)
	assert.True(t, carriers[0].PriorRevokeFlag)
	assert.Equal(t, "100002", carriers[1].CarrierID)
	assert.Equal(t, "99001", carriers[2].CarrierID)

	agg, err := data.GetSafetyAggregates(db)
	require.NoError(t, err)
	ancestor, ok := agg.Safety("99001")
	require.True(t, ok)
	assert.Equal(t, 1, ancestor.Crashes)
	assert.Equal(t, 1, ancestor.Fatalities)
	seedAgg, ok := agg.Safety("100001")
	require.True(t, ok)
	assert.Equal(t, 1, seedAgg.Inspections)
	assert.Equal(t, 1, seedAgg.OutOfService)

	runs, err := data.GetSyncRuns(db, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 4)
	for _, r := range runs {
		assert.Equal(t, data.SyncStatusDone, r.Status)
	}
}

func TestImporterRunNoExpand(t *testing.T) {
	srv := fakeSoda(t)
	defer srv.Close()

	db := setupImportDB(t)
	im := NewImporter(NewClient("", WithBaseURL(srv.URL)), db)

	count, err := im.Run(context.Background(), ImportOptions{
		MaxSeeds:        10,
		SkipCrashes:     true,
		SkipInspections: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count) // seed plus its revoked ancestor

	runs, err := data.GetSyncRuns(db, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestCapList(t *testing.T) {
	list := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"a", "b"}, capList(list, 2))
	assert.Equal(t, list, capList(list, 4))
	assert.Equal(t, list, capList(list, 0))
	assert.Empty(t, capList(nil, 3))
}

func TestImporterNotInitialized(t *testing.T) {
	im := &Importer{}
	_, err := im.Run(context.Background(), ImportOptions{})
	require.Error(t, err)
}
