// Package report renders a finished detection run as JSON, CSV, and
// Markdown files in a per-run directory.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/fleetsight/fleetsight/pkg/engine"
)

// Paths lists the files one report run produced.
type Paths struct {
	Dir         string `json:"dir" yaml:"dir"`
	LinksJSON   string `json:"links_json" yaml:"linksJson"`
	LinksCSV    string `json:"links_csv" yaml:"linksCsv"`
	ClusterJSON string `json:"clusters_json" yaml:"clustersJson"`
	ClusterCSV  string `json:"clusters_csv" yaml:"clustersCsv"`
	RiskJSON    string `json:"risk_json" yaml:"riskJson"`
	RiskCSV     string `json:"risk_csv" yaml:"riskCsv"`
	SummaryMD   string `json:"summary_md" yaml:"summaryMd"`
}

// Write renders res under dir/<run-id>. names maps carrier ids to legal
// names for the CSV reports and may be nil.
func Write(dir string, res *engine.Result, names map[string]string, top int) (*Paths, error) {
	if res == nil {
		return nil, errors.New("result required")
	}
	if top < 1 {
		top = 1
	}

	outdir := filepath.Join(dir, res.Run().RunID)
	if err := os.MkdirAll(outdir, 0750); err != nil {
		return nil, errors.Wrapf(err, "failed to create report dir: %s", outdir)
	}

	p := &Paths{
		Dir:         outdir,
		LinksJSON:   filepath.Join(outdir, "links.json"),
		LinksCSV:    filepath.Join(outdir, "links.csv"),
		ClusterJSON: filepath.Join(outdir, "clusters.json"),
		ClusterCSV:  filepath.Join(outdir, "clusters.csv"),
		RiskJSON:    filepath.Join(outdir, "risk.json"),
		RiskCSV:     filepath.Join(outdir, "risk.csv"),
		SummaryMD:   filepath.Join(outdir, "summary.md"),
	}

	if err := writeJSON(p.LinksJSON, res.Links()); err != nil {
		return nil, err
	}
	if err := writeLinksCSV(p.LinksCSV, res.Links(), names); err != nil {
		return nil, err
	}
	if err := writeJSON(p.ClusterJSON, res.Clusters()); err != nil {
		return nil, err
	}
	if err := writeClustersCSV(p.ClusterCSV, res.Clusters()); err != nil {
		return nil, err
	}
	if err := writeJSON(p.RiskJSON, res.RiskScores()); err != nil {
		return nil, err
	}
	if err := writeRiskCSV(p.RiskCSV, res.RiskScores(), names); err != nil {
		return nil, err
	}
	if err := os.WriteFile(p.SummaryMD, []byte(Summarize(res, p, top)+"\n"), 0600); err != nil {
		return nil, errors.Wrap(err, "failed to write summary")
	}
	return p, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return errors.Wrapf(enc.Encode(v), "failed to encode %s", path)
}

func writeLinksCSV(path string, links []engine.PairwiseLink, names map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"carrier_a", "carrier_b", "carrier_a_name", "carrier_b_name", "score", "reason_count", "reasons"}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for _, l := range links {
		parts := make([]string, 0, len(l.Reasons))
		for _, r := range l.Reasons {
			parts = append(parts, fmt.Sprintf("%s=%s (%.2f, freq=%d)", r.Feature, r.Value, r.Contribution, r.Frequency))
		}
		row := []string{
			l.CarrierA, l.CarrierB,
			names[l.CarrierA], names[l.CarrierB],
			fmt.Sprintf("%.4f", l.Score),
			fmt.Sprintf("%d", len(l.Reasons)),
			strings.Join(parts, "; "),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "failed to write link row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "failed to flush links csv")
}

func writeClustersCSV(path string, clusters []engine.Cluster) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"cluster_id", "size", "edge_count", "avg_link_score", "max_link_score", "members"}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for _, c := range clusters {
		row := []string{
			c.ClusterID,
			fmt.Sprintf("%d", c.Size),
			fmt.Sprintf("%d", c.EdgeCount),
			fmt.Sprintf("%.4f", c.AvgLinkScore),
			fmt.Sprintf("%.4f", c.MaxLinkScore),
			strings.Join(c.Members, "|"),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "failed to write cluster row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "failed to flush clusters csv")
}

func writeRiskCSV(path string, risks []engine.RiskScore, names map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"carrier_id", "carrier_name", "chameleon_score", "safety_score", "composite_score", "cluster_size", "signals"}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for _, r := range risks {
		row := []string{
			r.CarrierID,
			names[r.CarrierID],
			fmt.Sprintf("%.4f", r.ChameleonScore),
			fmt.Sprintf("%.4f", r.SafetyScore),
			fmt.Sprintf("%.4f", r.CompositeScore),
			fmt.Sprintf("%d", r.ClusterSize),
			strings.Join(r.Signals, "|"),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "failed to write risk row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "failed to flush risk csv")
}

// Summarize renders the run as short Markdown: top links, top clusters,
// top risk carriers, and the report file locations.
func Summarize(res *engine.Result, p *Paths, top int) string {
	lines := []string{"# FleetSight Analysis", "", "## Top Links", ""}

	topLinks := res.TopLinks(min(top, 10))
	if len(topLinks) == 0 {
		lines = append(lines, "- No links found.")
	}
	for i, l := range topLinks {
		bits := make([]string, 0, 3)
		for _, r := range l.Reasons[:min(len(l.Reasons), 3)] {
			bits = append(bits, fmt.Sprintf("%s (%.1f)", r.Feature, r.Contribution))
		}
		lines = append(lines, fmt.Sprintf("%d. `%s` <-> `%s` score=%.2f | reasons: %s",
			i+1, l.CarrierA, l.CarrierB, l.Score, strings.Join(bits, ", ")))
	}

	lines = append(lines, "", "## Top Clusters", "")
	topClusters := res.TopClusters(3)
	if len(topClusters) == 0 {
		lines = append(lines, "- No clusters above threshold.")
	}
	for i, c := range topClusters {
		preview := strings.Join(c.Members[:min(len(c.Members), 6)], ", ")
		if c.Size > 6 {
			preview += ", ..."
		}
		lines = append(lines, fmt.Sprintf("%d. `%s` size=%d max_link=%.2f members: %s",
			i+1, c.ClusterID, c.Size, c.MaxLinkScore, preview))
	}

	lines = append(lines, "", "## Top Risk", "")
	topRisks := res.TopRiskScores(min(top, 10))
	if len(topRisks) == 0 {
		lines = append(lines, "- No carriers scored.")
	}
	for i, r := range topRisks {
		lines = append(lines, fmt.Sprintf("%d. `%s` composite=%.2f (chameleon=%.2f, safety=%.2f) signals: %s",
			i+1, r.CarrierID, r.CompositeScore, r.ChameleonScore, r.SafetyScore, strings.Join(r.Signals, ", ")))
	}

	if p != nil {
		lines = append(lines, "", "## Reports", "",
			fmt.Sprintf("- Links JSON: `%s`", p.LinksJSON),
			fmt.Sprintf("- Links CSV: `%s`", p.LinksCSV),
			fmt.Sprintf("- Clusters JSON: `%s`", p.ClusterJSON),
			fmt.Sprintf("- Clusters CSV: `%s`", p.ClusterCSV),
			fmt.Sprintf("- Risk JSON: `%s`", p.RiskJSON),
			fmt.Sprintf("- Risk CSV: `%s`", p.RiskCSV),
			fmt.Sprintf("- Summary MD: `%s`", p.SummaryMD))
	}
	return strings.Join(lines, "\n")
}
