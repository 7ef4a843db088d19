package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Run statuses.
const (
	RunStatusDone   = "done"
	RunStatusFailed = "failed"
)

// Run describes one engine execution. RunID is derived from the input
// content, not wall-clock, so identical corpora reproduce identical run
// identifiers.
type Run struct {
	RunID         string   `json:"run_id" yaml:"runId"`
	RowsProcessed int      `json:"rows_processed" yaml:"rowsProcessed"`
	RowsSkipped   int      `json:"rows_skipped" yaml:"rowsSkipped"`
	Status        string   `json:"status" yaml:"status"`
	Warnings      []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// runID hashes the canonicalized (id-sorted) input rows.
func runID(records []CarrierRecord) string {
	h := sha256.New()
	for _, r := range records {
		fmt.Fprintf(h, "%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1e",
			r.CarrierID, r.LegalName, r.DOT, r.MC, r.Phone, r.Email, r.Address, r.IP, r.Timestamp)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Result owns the final link/cluster/risk collections for one run and
// exposes read-only, deterministically ordered views. Callers must not
// mutate returned slices.
type Result struct {
	run      Run
	links    []PairwiseLink
	clusters []Cluster
	risks    []RiskScore
}

func newResult(run Run, links []PairwiseLink, clusters []Cluster, risks []RiskScore) *Result {
	sort.Slice(links, func(i, j int) bool {
		if links[i].Score != links[j].Score {
			return links[i].Score > links[j].Score
		}
		if links[i].CarrierA != links[j].CarrierA {
			return links[i].CarrierA < links[j].CarrierA
		}
		return links[i].CarrierB < links[j].CarrierB
	})
	// clusters and risks arrive ordered from their builders
	return &Result{run: run, links: links, clusters: clusters, risks: risks}
}

// RestoreResult rebuilds a Result from persisted components, re-sorting
// links into assembler order. Clusters and risks are expected in the
// order their builders produced.
func RestoreResult(run Run, links []PairwiseLink, clusters []Cluster, risks []RiskScore) *Result {
	return newResult(run, links, clusters, risks)
}

// Run returns the run descriptor.
func (r *Result) Run() Run { return r.run }

// Links returns every reported link, score descending, (A, B) ascending
// on ties.
func (r *Result) Links() []PairwiseLink { return r.links }

// TopLinks returns at most n links in assembler order.
func (r *Result) TopLinks(n int) []PairwiseLink {
	return r.links[:min(n, len(r.links))]
}

// Clusters returns every cluster, maxLinkScore descending, size
// descending, then member ids ascending.
func (r *Result) Clusters() []Cluster { return r.clusters }

// TopClusters returns at most n clusters in assembler order.
func (r *Result) TopClusters(n int) []Cluster {
	return r.clusters[:min(n, len(r.clusters))]
}

// RiskScores returns every carrier's risk score, composite descending,
// carrier id ascending on ties.
func (r *Result) RiskScores() []RiskScore { return r.risks }

// TopRiskScores returns at most n risk scores in assembler order.
func (r *Result) TopRiskScores(n int) []RiskScore {
	return r.risks[:min(n, len(r.risks))]
}

// Summary renders a one-line run digest for logs.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d rows, %d links, %d clusters, %d scored",
		r.run.RunID, r.run.RowsProcessed, len(r.links), len(r.clusters), len(r.risks))
	return b.String()
}
