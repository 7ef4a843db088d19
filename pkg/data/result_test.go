package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsight/fleetsight/pkg/engine"
)

func runSampleDetection(t *testing.T) *engine.Result {
	t.Helper()

	cfg := engine.DefaultConfig()
	eng, err := engine.New(cfg)
	require.NoError(t, err)

	res, err := eng.Run(context.Background(), SampleCarriers(), nil)
	require.NoError(t, err)
	return res
}

func TestSaveResultRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	res := runSampleDetection(t)
	run := res.Run()

	require.NoError(t, SaveResult(db, res, 30))

	latest, err := GetLatestRunID(db)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, latest)

	links, err := GetLinks(db, run.RunID, 100)
	require.NoError(t, err)
	require.Equal(t, len(res.Links()), len(links))
	for i, l := range res.Links() {
		assert.Equal(t, l.CarrierA, links[i].CarrierA)
		assert.Equal(t, l.CarrierB, links[i].CarrierB)
		assert.InDelta(t, l.Score, links[i].Score, 0.0001)
		assert.Equal(t, l.Reasons, links[i].Reasons)
	}

	clusters, err := GetClusters(db, run.RunID, 100)
	require.NoError(t, err)
	require.Equal(t, len(res.Clusters()), len(clusters))
	for i, c := range res.Clusters() {
		assert.Equal(t, c.ClusterID, clusters[i].ClusterID)
		assert.Equal(t, c.Members, clusters[i].Members)
		assert.Equal(t, c.EdgeCount, clusters[i].EdgeCount)
	}

	risks, err := GetRiskScores(db, run.RunID, 100)
	require.NoError(t, err)
	require.Equal(t, len(res.RiskScores()), len(risks))
	for i, rs := range res.RiskScores() {
		assert.Equal(t, rs.CarrierID, risks[i].CarrierID)
		assert.InDelta(t, rs.CompositeScore, risks[i].CompositeScore, 0.0001)
		assert.Equal(t, rs.Signals, risks[i].Signals)
	}
}

func TestGetResult(t *testing.T) {
	db := setupTestDB(t)
	res := runSampleDetection(t)
	require.NoError(t, SaveResult(db, res, 30))

	got, err := GetResult(db, res.Run().RunID, 10000)
	require.NoError(t, err)
	assert.Equal(t, res.Run().RunID, got.Run().RunID)
	assert.Equal(t, res.Run().RowsProcessed, got.Run().RowsProcessed)
	assert.Equal(t, res.Links(), got.Links())
	assert.Equal(t, len(res.Clusters()), len(got.Clusters()))
	assert.Equal(t, len(res.RiskScores()), len(got.RiskScores()))

	_, err = GetRun(db, "no-such-run")
	require.Error(t, err)
}

func TestSaveResultReplacesRun(t *testing.T) {
	db := setupTestDB(t)
	res := runSampleDetection(t)

	require.NoError(t, SaveResult(db, res, 30))
	require.NoError(t, SaveResult(db, res, 30))

	links, err := GetLinks(db, res.Run().RunID, 1000)
	require.NoError(t, err)
	assert.Equal(t, len(res.Links()), len(links))
}

func TestGetLatestRunIDEmpty(t *testing.T) {
	db := setupTestDB(t)

	id, err := GetLatestRunID(db)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestGetLinksLimit(t *testing.T) {
	db := setupTestDB(t)
	res := runSampleDetection(t)
	require.NoError(t, SaveResult(db, res, 30))
	require.Greater(t, len(res.Links()), 1)

	links, err := GetLinks(db, res.Run().RunID, 1)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, res.Links()[0].CarrierA, links[0].CarrierA)
	assert.Equal(t, res.Links()[0].CarrierB, links[0].CarrierB)
}
