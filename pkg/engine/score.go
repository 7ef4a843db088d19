package engine

import "math"

// Reason records one feature's contribution to a pairwise link.
type Reason struct {
	Feature      FeatureKind `json:"feature" yaml:"feature"`
	Value        string      `json:"value" yaml:"value"`
	Frequency    int         `json:"frequency" yaml:"frequency"`
	Contribution float64     `json:"contribution" yaml:"contribution"`
}

// PairwiseLink is the scored affiliation between one canonical carrier
// pair (CarrierA < CarrierB). Reasons is ordered by contribution
// descending, feature name ascending on ties, and lists only features
// that matched identically on both sides.
type PairwiseLink struct {
	CarrierA string   `json:"carrier_a" yaml:"carrierA"`
	CarrierB string   `json:"carrier_b" yaml:"carrierB"`
	Score    float64  `json:"score" yaml:"score"`
	Reasons  []Reason `json:"reasons" yaml:"reasons"`
}

// rarityFactor down-weights a shared value by its corpus-wide occurrence
// count: RarityScale/n for n >= 2, zero otherwise. Monotonically
// decreasing in n, so a value shared by only two carriers contributes its
// full feature weight while thousands-strong office-park values fade out.
func rarityFactor(count int, scale float64) float64 {
	if count < 2 {
		return 0
	}
	return scale / float64(count)
}

// compress maps the unbounded raw contribution sum onto [0, 100) with
// diminishing returns, so a pair matching every feature type cannot
// unboundedly dominate ordering. Monotonic and deterministic.
func compress(raw, scale float64) float64 {
	if raw <= 0 {
		return 0
	}
	return 100 * (1 - math.Exp(-raw/scale))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// scorePair scores one canonical pair against the immutable feature sets
// and rarity snapshot. Returns false when no feature matched, meaning the
// pair produces no link at all.
//
// The emailDomain kind is suppressed when the full email already matched
// for the pair; the domain is only independent evidence when the mailbox
// differs.
func scorePair(p Pair, features map[string]FeatureSet, rarity RarityTable, cfg Config) (PairwiseLink, bool) {
	fa, fb := features[p.A], features[p.B]

	link := PairwiseLink{CarrierA: p.A, CarrierB: p.B}
	emailMatched := false
	raw := 0.0

	for _, kind := range FeatureKinds {
		va, oka := fa.Get(kind)
		vb, okb := fb.Get(kind)
		if !oka || !okb || va != vb {
			continue
		}
		if kind == FeatureEmail {
			emailMatched = true
		}
		if kind == FeatureEmailDomain && emailMatched {
			continue
		}

		freq := rarity.Count(kind, va)
		contribution := cfg.FeatureWeights[kind] * rarityFactor(freq, cfg.RarityScale)
		if contribution <= 0 {
			continue
		}
		raw += contribution
		link.Reasons = append(link.Reasons, Reason{
			Feature:      kind,
			Value:        va,
			Frequency:    freq,
			Contribution: round4(contribution),
		})
	}

	if len(link.Reasons) == 0 {
		return PairwiseLink{}, false
	}

	sortReasons(link.Reasons)
	link.Score = round4(compress(raw, cfg.CompressionScale))
	return link, true
}

// sortReasons orders by contribution descending, then feature name
// ascending. Insertion sort; reason lists are tiny (at most one entry per
// feature kind).
func sortReasons(rs []Reason) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && reasonLess(rs[j], rs[j-1]); j-- {
			rs[j], rs[j-1] = rs[j-1], rs[j]
		}
	}
}

func reasonLess(a, b Reason) bool {
	if a.Contribution != b.Contribution {
		return a.Contribution > b.Contribution
	}
	return a.Feature < b.Feature
}
