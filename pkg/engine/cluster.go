package engine

import (
	"fmt"
	"sort"
)

// Cluster is one connected component over the subgraph of links with
// score >= the clustering threshold. Members is sorted; Size is always
// >= 2 (singletons are not clusters).
type Cluster struct {
	ClusterID    string   `json:"cluster_id" yaml:"clusterId"`
	Size         int      `json:"size" yaml:"size"`
	Members      []string `json:"members" yaml:"members"`
	EdgeCount    int      `json:"edge_count" yaml:"edgeCount"`
	AvgLinkScore float64  `json:"avg_link_score" yaml:"avgLinkScore"`
	MaxLinkScore float64  `json:"max_link_score" yaml:"maxLinkScore"`
}

// unionFind is a classic path-halving union-by-rank structure over
// carrier ids.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

func (u *unionFind) add(x string) {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		u.rank[x] = 0
	}
}

func (u *unionFind) find(x string) string {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// BuildClusters keeps links with score >= threshold as undirected edges
// and returns the connected components of size >= 2, with per-cluster
// stats computed from exactly the edges inside each component.
//
// Clustering is deliberately separated from scoring: it can be re-run
// from the same link set with a different threshold without re-scoring
// the corpus.
func BuildClusters(links []PairwiseLink, threshold float64) []Cluster {
	uf := newUnionFind()
	var qualifying []PairwiseLink
	for _, l := range links {
		if l.Score < threshold {
			continue
		}
		qualifying = append(qualifying, l)
		uf.add(l.CarrierA)
		uf.add(l.CarrierB)
		uf.union(l.CarrierA, l.CarrierB)
	}

	members := make(map[string][]string)
	for id := range uf.parent {
		root := uf.find(id)
		members[root] = append(members[root], id)
	}

	stats := make(map[string]*Cluster)
	for root, ids := range members {
		sort.Strings(ids)
		stats[root] = &Cluster{Size: len(ids), Members: ids}
	}
	for _, l := range qualifying {
		c := stats[uf.find(l.CarrierA)]
		c.EdgeCount++
		c.AvgLinkScore += l.Score
		if l.Score > c.MaxLinkScore {
			c.MaxLinkScore = l.Score
		}
	}

	clusters := make([]Cluster, 0, len(stats))
	for _, c := range stats {
		if c.Size < 2 {
			continue
		}
		c.AvgLinkScore = round4(c.AvgLinkScore / float64(c.EdgeCount))
		clusters = append(clusters, *c)
	}

	sort.Slice(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.MaxLinkScore != b.MaxLinkScore {
			return a.MaxLinkScore > b.MaxLinkScore
		}
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		return lessMembers(a.Members, b.Members)
	})
	for i := range clusters {
		clusters[i].ClusterID = fmt.Sprintf("C%04d", i+1)
	}
	return clusters
}

func lessMembers(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
