package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRarityFactor(t *testing.T) {
	assert.Equal(t, 0.0, rarityFactor(0, 2))
	assert.Equal(t, 0.0, rarityFactor(1, 2))
	assert.Equal(t, 1.0, rarityFactor(2, 2))
	assert.Equal(t, 0.5, rarityFactor(4, 2))

	// monotonically decreasing
	prev := rarityFactor(2, 2)
	for n := 3; n < 100; n++ {
		cur := rarityFactor(n, 2)
		assert.Less(t, cur, prev)
		prev = cur
	}
}

func TestCompress(t *testing.T) {
	assert.Equal(t, 0.0, compress(0, 90))
	assert.Equal(t, 0.0, compress(-5, 90))

	// monotonic and saturating below 100
	prev := 0.0
	for raw := 1.0; raw < 1000; raw += 7 {
		c := compress(raw, 90)
		assert.Greater(t, c, prev)
		assert.Less(t, c, 100.0)
		prev = c
	}
}

func scorePairHelper(t *testing.T, features map[string]FeatureSet) (PairwiseLink, bool) {
	t.Helper()
	idx := BuildIndex(features)
	rt := BuildRarityTable(idx)
	pairs := idx.CandidatePairs()
	require.Len(t, pairs, 1)
	return scorePair(pairs[0], features, rt, DefaultConfig())
}

func TestScorePair_ReasonsOnlyListMatches(t *testing.T) {
	features := map[string]FeatureSet{
		"A": {FeaturePhone: "5550100", FeatureAddress: "1 main st"},
		"B": {FeaturePhone: "5550100", FeatureAddress: "2 oak ave"},
	}
	link, ok := scorePairHelper(t, features)
	require.True(t, ok)
	require.Len(t, link.Reasons, 1)
	assert.Equal(t, FeaturePhone, link.Reasons[0].Feature)
	assert.Equal(t, "5550100", link.Reasons[0].Value)
	assert.Equal(t, 2, link.Reasons[0].Frequency)
}

func TestScorePair_EmailDomainSuppressedOnFullMatch(t *testing.T) {
	features := map[string]FeatureSet{
		"A": {FeatureEmail: "a@x.com", FeatureEmailDomain: "x.com"},
		"B": {FeatureEmail: "a@x.com", FeatureEmailDomain: "x.com"},
	}
	link, ok := scorePairHelper(t, features)
	require.True(t, ok)
	require.Len(t, link.Reasons, 1)
	assert.Equal(t, FeatureEmail, link.Reasons[0].Feature)
}

func TestScorePair_EmailDomainCountsWhenMailboxesDiffer(t *testing.T) {
	features := map[string]FeatureSet{
		"A": {FeatureEmail: "ops@alpha.com", FeatureEmailDomain: "alpha.com"},
		"B": {FeatureEmail: "dispatch@alpha.com", FeatureEmailDomain: "alpha.com"},
	}
	link, ok := scorePairHelper(t, features)
	require.True(t, ok)
	require.Len(t, link.Reasons, 1)
	assert.Equal(t, FeatureEmailDomain, link.Reasons[0].Feature)
}

func TestScorePair_ReasonsOrderedByContribution(t *testing.T) {
	features := map[string]FeatureSet{
		"A": {FeaturePhone: "5550100", FeatureAddress: "1 main st", FeatureIP: "1.2.3.4"},
		"B": {FeaturePhone: "5550100", FeatureAddress: "1 main st", FeatureIP: "1.2.3.4"},
	}
	link, ok := scorePairHelper(t, features)
	require.True(t, ok)
	require.Len(t, link.Reasons, 3)
	for i := 1; i < len(link.Reasons); i++ {
		assert.GreaterOrEqual(t, link.Reasons[i-1].Contribution, link.Reasons[i].Contribution)
	}
	assert.Equal(t, FeaturePhone, link.Reasons[0].Feature)
}

func TestScorePair_RarityMonotonicity(t *testing.T) {
	// pair sharing a rare address scores >= pair sharing a common one
	rare := map[string]FeatureSet{
		"A": {FeatureAddress: "7 quiet ln"},
		"B": {FeatureAddress: "7 quiet ln"},
	}
	common := map[string]FeatureSet{
		"A": {FeatureAddress: "1 office park"},
		"B": {FeatureAddress: "1 office park"},
	}
	for i := 0; i < 50; i++ {
		common[fmt.Sprintf("X%02d", i)] = FeatureSet{FeatureAddress: "1 office park"}
	}

	rareLink, ok := scorePairHelper(t, rare)
	require.True(t, ok)

	idx := BuildIndex(common)
	rt := BuildRarityTable(idx)
	commonLink, ok := scorePair(Pair{A: "A", B: "B"}, common, rt, DefaultConfig())
	require.True(t, ok)

	assert.Greater(t, rareLink.Score, commonLink.Score)
	assert.Greater(t, rareLink.Reasons[0].Contribution, commonLink.Reasons[0].Contribution)
}

// Scenario from the risk review: exact duplicate contact info in a
// 1000-row corpus must outrank a pair that only shares an address seen in
// 50 other rows, and its reasons must list exactly phone and email.
func TestScorePair_DuplicateContactScenario(t *testing.T) {
	records := []CarrierRecord{
		{CarrierID: "C1", Phone: "555-0100", Email: "a@x.com"},
		{CarrierID: "C2", Phone: "5550100", Email: "A@X.com"},
		{CarrierID: "D1", Address: "1 Office Park, Dallas, TX"},
		{CarrierID: "D2", Address: "1 Office Park Dallas TX"},
	}
	for i := 0; i < 50; i++ {
		records = append(records, CarrierRecord{
			CarrierID: fmt.Sprintf("F%03d", i),
			Address:   "1 Office Park, Dallas, TX",
		})
	}
	for i := len(records); i < 1000; i++ {
		records = append(records, CarrierRecord{
			CarrierID: fmt.Sprintf("U%04d", i),
			Phone:     fmt.Sprintf("555%07d", i),
		})
	}

	cfg := DefaultConfig()
	cfg.ReportFloor = 0 // keep the weak address link visible for comparison
	eng, err := New(cfg)
	require.NoError(t, err)
	res, err := eng.Run(context.Background(), records, nil)
	require.NoError(t, err)

	var dup, addr *PairwiseLink
	for i := range res.Links() {
		l := &res.Links()[i]
		if l.CarrierA == "C1" && l.CarrierB == "C2" {
			dup = l
		}
		if l.CarrierA == "D1" && l.CarrierB == "D2" {
			addr = l
		}
	}
	require.NotNil(t, dup)
	assert.Greater(t, dup.Score, 0.0)
	require.Len(t, dup.Reasons, 2)
	assert.Equal(t, FeaturePhone, dup.Reasons[0].Feature)
	assert.Equal(t, FeatureEmail, dup.Reasons[1].Feature)

	require.NotNil(t, addr)
	assert.Greater(t, dup.Score, addr.Score)
}
