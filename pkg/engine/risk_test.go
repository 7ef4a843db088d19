package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreRisk_NoSignals(t *testing.T) {
	rs := scoreRisk("A", nil, nil, SafetyInputs{}, DefaultConfig())

	assert.Equal(t, 0.0, rs.ChameleonScore)
	assert.Equal(t, 0.0, rs.SafetyScore)
	assert.Equal(t, 0.0, rs.CompositeScore)
	assert.Empty(t, rs.Signals)
	assert.Equal(t, 0, rs.ClusterSize)
}

func TestScoreRisk_ClusterMembership(t *testing.T) {
	cluster := &Cluster{Size: 2, Members: []string{"A", "B"}}
	rs := scoreRisk("A", cluster, []float64{40}, SafetyInputs{}, DefaultConfig())

	assert.Equal(t, 2, rs.ClusterSize)
	assert.Contains(t, rs.Signals, SignalLinkedCarrier)
	assert.NotContains(t, rs.Signals, SignalLargeCluster)
	assert.Greater(t, rs.ChameleonScore, 0.0)
	assert.Equal(t, 0.0, rs.SafetyScore)
}

func TestScoreRisk_LargeClusterAndStrongLink(t *testing.T) {
	cluster := &Cluster{Size: 4, Members: []string{"A", "B", "C", "D"}}
	rs := scoreRisk("A", cluster, []float64{80, 75}, SafetyInputs{}, DefaultConfig())

	assert.Contains(t, rs.Signals, SignalLargeCluster)
	assert.Contains(t, rs.Signals, SignalStrongLink)
}

func TestScoreRisk_PriorRevokeOnLinkedCarrier(t *testing.T) {
	cluster := &Cluster{Size: 2, Members: []string{"A", "B"}}
	safety := SafetyInputs{PriorRevoke: true}
	rs := scoreRisk("A", cluster, []float64{60}, safety, DefaultConfig())

	assert.Contains(t, rs.Signals, SignalPriorRevokeLink)
	assert.Contains(t, rs.Signals, SignalPriorRevoke)
}

func TestScoreRisk_PriorRevokeUnlinked(t *testing.T) {
	rs := scoreRisk("A", nil, nil, SafetyInputs{PriorRevoke: true}, DefaultConfig())

	// no affiliation evidence, so the revocation only counts as safety
	assert.NotContains(t, rs.Signals, SignalPriorRevokeLink)
	assert.Contains(t, rs.Signals, SignalPriorRevoke)
	assert.Equal(t, 0.0, rs.ChameleonScore)
	assert.Equal(t, 30.0, rs.SafetyScore)
}

func TestScoreRisk_SafetyHistory(t *testing.T) {
	safety := SafetyInputs{
		Crashes:      3,
		Fatalities:   1,
		Injuries:     2,
		Inspections:  10,
		OutOfService: 5,
		PowerUnits:   4,
	}
	rs := scoreRisk("A", nil, nil, safety, DefaultConfig())

	assert.Contains(t, rs.Signals, SignalCrashHistory)
	assert.Contains(t, rs.Signals, SignalFatalCrash)
	assert.Contains(t, rs.Signals, SignalInjuryCrash)
	assert.Contains(t, rs.Signals, SignalHighOOSRate)
	assert.Contains(t, rs.Signals, SignalHighCrashRate)
	assert.Greater(t, rs.SafetyScore, 0.0)
	assert.LessOrEqual(t, rs.SafetyScore, 100.0)
}

func TestScoreRisk_CompositeWeights(t *testing.T) {
	cfg := DefaultConfig()
	safety := SafetyInputs{PriorRevoke: true}
	rs := scoreRisk("A", nil, nil, safety, cfg)

	assert.Equal(t, round4(cfg.SafetyWeight*30), rs.CompositeScore)
}

func TestScoreRisk_MonotonicInCrashes(t *testing.T) {
	prev := -1.0
	for crashes := 0; crashes < 12; crashes++ {
		rs := scoreRisk("A", nil, nil, SafetyInputs{Crashes: crashes}, DefaultConfig())
		assert.GreaterOrEqual(t, rs.SafetyScore, prev)
		prev = rs.SafetyScore
	}
}

func TestScoreAllRisks_OrderingAndCoverage(t *testing.T) {
	clusters := []Cluster{
		{ClusterID: "C0001", Size: 2, Members: []string{"A", "B"}, EdgeCount: 1, AvgLinkScore: 60, MaxLinkScore: 60},
	}
	links := []PairwiseLink{{CarrierA: "A", CarrierB: "B", Score: 60}}
	provider := SafetyMap{"C": {Crashes: 5, Fatalities: 2}}

	risks := scoreAllRisks([]string{"A", "B", "C", "D"}, clusters, links, provider, DefaultConfig())

	require.Len(t, risks, 4)
	for i := 1; i < len(risks); i++ {
		if risks[i-1].CompositeScore == risks[i].CompositeScore {
			assert.Less(t, risks[i-1].CarrierID, risks[i].CarrierID)
		} else {
			assert.Greater(t, risks[i-1].CompositeScore, risks[i].CompositeScore)
		}
	}

	byID := make(map[string]RiskScore)
	for _, r := range risks {
		byID[r.CarrierID] = r
	}
	assert.Equal(t, 2, byID["A"].ClusterSize)
	assert.Equal(t, 0, byID["C"].ClusterSize)
	assert.Greater(t, byID["C"].SafetyScore, 0.0)
	assert.Equal(t, 0.0, byID["D"].CompositeScore)
}

func TestScoreAllRisks_NilProvider(t *testing.T) {
	risks := scoreAllRisks([]string{"A"}, nil, nil, nil, DefaultConfig())
	require.Len(t, risks, 1)
	assert.Equal(t, 0.0, risks[0].CompositeScore)
}
