// Package engine implements the carrier affiliation detection core: feature
// normalization, blocking, rarity-weighted pairwise scoring, cluster
// building, and composite risk scoring. A Run is a synchronous batch over
// one immutable input snapshot; the engine performs no I/O and retains no
// state between runs.
package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Engine executes detection runs under one validated configuration.
type Engine struct {
	cfg Config
}

// New validates cfg and returns an Engine. Configuration errors fail here,
// before any scoring can begin.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Run processes one input snapshot to completion. Rows without a carrier
// id are skipped with a warning; duplicate ids keep the first occurrence.
// safety may be nil, in which case every carrier has zero safety signal.
//
// Output content and ordering are independent of input row order and of
// the worker count.
func (e *Engine) Run(ctx context.Context, records []CarrierRecord, safety SafetyProvider) (*Result, error) {
	run := Run{Status: RunStatusDone}

	rows := make([]CarrierRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		if r.CarrierID == "" {
			run.RowsSkipped++
			run.Warnings = append(run.Warnings, fmt.Sprintf("row %d: missing carrier_id, skipped", i+1))
			continue
		}
		if _, dup := seen[r.CarrierID]; dup {
			run.RowsSkipped++
			run.Warnings = append(run.Warnings, fmt.Sprintf("row %d: duplicate carrier_id %q, skipped", i+1, r.CarrierID))
			continue
		}
		seen[r.CarrierID] = struct{}{}
		rows = append(rows, r)
	}

	// Canonical order: input row order must not leak into anything.
	sort.Slice(rows, func(i, j int) bool { return rows[i].CarrierID < rows[j].CarrierID })
	run.RowsProcessed = len(rows)
	run.RunID = runID(rows)

	features := make(map[string]FeatureSet, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		features[r.CarrierID] = Normalize(r)
		ids = append(ids, r.CarrierID)
	}

	idx := BuildIndex(features)
	rarity := BuildRarityTable(idx)
	pairs := idx.CandidatePairs()

	links, err := e.scorePairs(ctx, pairs, features, rarity)
	if err != nil {
		return nil, err
	}

	var reported, qualifying []PairwiseLink
	for _, l := range links {
		if l.Score >= e.cfg.ReportFloor {
			reported = append(reported, l)
		}
		if l.Score >= e.cfg.LinkThreshold {
			qualifying = append(qualifying, l)
		}
	}

	clusters := BuildClusters(links, e.cfg.LinkThreshold)
	risks := scoreAllRisks(ids, clusters, qualifying, safety, e.cfg)

	return newResult(run, reported, clusters, risks), nil
}

// scorePairs fans candidate pairs out over a deterministic worker pool.
// Each canonical pair is owned by exactly one worker, chosen by hashing
// the pair key, never by arrival order, so parallelism cannot change
// output content.
func (e *Engine) scorePairs(ctx context.Context, pairs []Pair, features map[string]FeatureSet, rarity RarityTable) ([]PairwiseLink, error) {
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(pairs) {
		workers = len(pairs)
	}
	if workers <= 1 {
		return scorePairsSeq(ctx, pairs, features, rarity, e.cfg)
	}

	results := make([][]PairwiseLink, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			var out []PairwiseLink
			for _, p := range pairs {
				if pairOwner(p, workers) != w {
					continue
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				if link, ok := scorePair(p, features, rarity, e.cfg); ok {
					out = append(out, link)
				}
			}
			results[w] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var links []PairwiseLink
	dedupe := make(map[Pair]struct{}, len(pairs))
	for _, part := range results {
		for _, l := range part {
			key := Pair{A: l.CarrierA, B: l.CarrierB}
			if _, dup := dedupe[key]; dup {
				// Programming defect, not an input condition: a canonical
				// pair must be scored exactly once.
				return nil, fmt.Errorf("internal: pair (%s,%s) scored twice", l.CarrierA, l.CarrierB)
			}
			dedupe[key] = struct{}{}
			links = append(links, l)
		}
	}
	// Worker-index concatenation must not leak into downstream float
	// accumulation: restore canonical pair order before returning, so the
	// parallel path yields the same slice as the sequential one.
	sort.Slice(links, func(i, j int) bool {
		if links[i].CarrierA != links[j].CarrierA {
			return links[i].CarrierA < links[j].CarrierA
		}
		return links[i].CarrierB < links[j].CarrierB
	})
	return links, nil
}

func scorePairsSeq(ctx context.Context, pairs []Pair, features map[string]FeatureSet, rarity RarityTable, cfg Config) ([]PairwiseLink, error) {
	var links []PairwiseLink
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if link, ok := scorePair(p, features, rarity, cfg); ok {
			links = append(links, link)
		}
	}
	return links, nil
}

// pairOwner assigns a canonical pair to a worker from its key alone.
func pairOwner(p Pair, workers int) int {
	h := fnv.New32a()
	h.Write([]byte(p.A))
	h.Write([]byte{0})
	h.Write([]byte(p.B))
	return int(h.Sum32() % uint32(workers))
}
