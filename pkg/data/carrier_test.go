package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveGetCarriers(t *testing.T) {
	db := setupTestDB(t)

	list := []*Carrier{
		{
			CarrierID:  "C002",
			LegalName:  "NR Transport Services",
			DOT:        "100002",
			Phone:      "5551000001",
			Email:      "dispatch@northroute.com",
			PowerUnits: 4,
		},
		{
			CarrierID:       "C001",
			LegalName:       "North Route Logistics LLC",
			DOT:             "100001",
			Phone:           "(555) 100-0001",
			Email:           "ops@northroute.com",
			PriorRevokeFlag: true,
			PriorRevokeDOT:  "99001",
		},
	}
	require.NoError(t, SaveCarriers(db, list))

	got, err := GetCarriers(db)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "C001", got[0].CarrierID)
	assert.True(t, got[0].PriorRevokeFlag)
	assert.Equal(t, "C002", got[1].CarrierID)
	assert.Equal(t, 4, got[1].PowerUnits)

	count, err := CountCarriers(db)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSaveCarriersUpsert(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, SaveCarriers(db, []*Carrier{
		{CarrierID: "C001", LegalName: "Old Name", Phone: "5550001111"},
	}))
	require.NoError(t, SaveCarriers(db, []*Carrier{
		{CarrierID: "C001", LegalName: "New Name", Phone: "5550002222"},
	}))

	got, err := GetCarriers(db)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "New Name", got[0].LegalName)
	assert.Equal(t, "5550002222", got[0].Phone)
}

func TestRecords(t *testing.T) {
	c := &Carrier{
		CarrierID: "C001",
		LegalName: "North Route Logistics LLC",
		DOT:       "100001",
		MC:        "200001",
		Phone:     "(555) 100-0001",
		Email:     "ops@northroute.com",
		Address:   "100 Main Street, Dallas, TX",
		IP:        "10.0.1.1",
		Timestamp: "2026-01-01T10:00:00Z",
	}

	recs := Records([]*Carrier{c})
	require.Len(t, recs, 1)
	assert.Equal(t, c.CarrierID, recs[0].CarrierID)
	assert.Equal(t, c.Phone, recs[0].Phone)
	assert.Equal(t, c.Timestamp, recs[0].Timestamp)
}

func TestSaveCarriersEmpty(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, SaveCarriers(db, nil))
	assert.Error(t, SaveCarriers(nil, []*Carrier{{CarrierID: "C001"}}))
}
