package engine

import "sort"

// indexKey addresses one bucket in the blocking index.
type indexKey struct {
	Kind  FeatureKind
	Value string
}

// BlockingIndex groups carrier ids by shared normalized identifier value.
// Absent feature values are never indexed: a missing identifier must not
// become a "shared" one.
type BlockingIndex map[indexKey][]string

// Pair is an unordered carrier pair in canonical form, A < B.
type Pair struct {
	A string
	B string
}

func canonicalPair(a, b string) Pair {
	if a < b {
		return Pair{A: a, B: b}
	}
	return Pair{A: b, B: a}
}

// BuildIndex builds the blocking index in a single pass over the feature
// sets. Bucket member lists are sorted so downstream iteration is
// independent of map insertion order.
func BuildIndex(features map[string]FeatureSet) BlockingIndex {
	idx := make(BlockingIndex)
	for id, fs := range features {
		for _, kind := range FeatureKinds {
			v, ok := fs.Get(kind)
			if !ok {
				continue
			}
			key := indexKey{Kind: kind, Value: v}
			idx[key] = append(idx[key], id)
		}
	}
	for key := range idx {
		sort.Strings(idx[key])
	}
	return idx
}

// CandidatePairs emits every unordered pair co-blocked by at least one
// bucket with two or more members, deduplicated across buckets and sorted
// by (A, B). A pair sharing several features appears exactly once.
func (idx BlockingIndex) CandidatePairs() []Pair {
	seen := make(map[Pair]struct{})
	for _, members := range idx {
		if len(members) < 2 {
			continue
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				seen[canonicalPair(members[i], members[j])] = struct{}{}
			}
		}
	}
	pairs := make([]Pair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

// RarityTable maps each indexed (kind, value) to its occurrence count
// across the whole corpus. Built once per run before scoring; read-only
// during scoring.
type RarityTable map[indexKey]int

// BuildRarityTable snapshots bucket sizes from the blocking index.
func BuildRarityTable(idx BlockingIndex) RarityTable {
	rt := make(RarityTable, len(idx))
	for key, members := range idx {
		rt[key] = len(members)
	}
	return rt
}

// Count returns the corpus-wide occurrence count for a value, zero when
// the value was never indexed.
func (rt RarityTable) Count(kind FeatureKind, value string) int {
	return rt[indexKey{Kind: kind, Value: value}]
}
