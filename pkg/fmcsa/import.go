package fmcsa

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fleetsight/fleetsight/pkg/data"
)

const (
	dotChunkSize   = 100
	phoneChunkSize = 20
	addrChunkSize  = 10

	// caps keep the expansion queries within SoQL limits
	maxExpandPhones    = 200
	maxExpandAddresses = 100
)

// ImportOptions bound an ingestion run.
type ImportOptions struct {
	// MaxSeeds limits the prior-revoke seed carriers, 0 means all.
	MaxSeeds int
	// ExpandHops enables the 1-hop neighbor expansion when >= 1.
	ExpandHops int
	// SkipCrashes and SkipInspections drop the safety-history stages.
	SkipCrashes     bool
	SkipInspections bool
}

// Importer runs the staged FMCSA ingestion: prior-revoke seeds, 1-hop
// expansion by shared phone or address, then crash and inspection
// history for every carrier in scope.
type Importer struct {
	client *Client
	db     *sql.DB
}

// NewImporter creates an importer writing through db.
func NewImporter(client *Client, db *sql.DB) *Importer {
	return &Importer{client: client, db: db}
}

// Run executes the import stages and returns the number of carriers in
// scope.
func (im *Importer) Run(ctx context.Context, opts ImportOptions) (int, error) {
	if im.client == nil || im.db == nil {
		return 0, errors.New("importer not initialized")
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	slog.Info("starting ingestion", "run", runID)

	seeds, err := im.syncSeeds(ctx, runID, opts.MaxSeeds)
	if err != nil {
		return 0, err
	}
	slog.Info("seed stage done", "carriers", len(seeds))

	scope := seeds
	if opts.ExpandHops >= 1 && len(seeds) > 0 {
		if scope, err = im.syncExpand(ctx, runID, seeds); err != nil {
			return 0, err
		}
		slog.Info("expand stage done", "carriers", len(scope))
	}

	if !opts.SkipCrashes && len(scope) > 0 {
		if err := im.syncCrashes(ctx, runID, scope); err != nil {
			return 0, err
		}
	}
	if !opts.SkipInspections && len(scope) > 0 {
		if err := im.syncInspections(ctx, runID, scope); err != nil {
			return 0, err
		}
	}

	slog.Info("ingestion done", "run", runID, "carriers", len(scope))
	return len(scope), nil
}

// syncSeeds pulls carriers flagged with a prior revocation plus the
// revoked ancestors they point at.
func (im *Importer) syncSeeds(ctx context.Context, runID string, maxSeeds int) ([]string, error) {
	syncID := runID + "_census_seeds"
	if err := data.StartSyncRun(im.db, syncID, "census_seeds"); err != nil {
		return nil, err
	}

	rows, err := im.client.Census(ctx, Query{Where: "prior_revoke_flag='Y'"}, maxSeeds)
	if err != nil {
		return nil, im.fail(syncID, err)
	}

	carriers := make([]*data.Carrier, 0, len(rows))
	dots := make(map[string]bool, len(rows))
	ancestors := make(map[string]bool)
	for _, r := range rows {
		c := r.Carrier()
		if c.CarrierID == "" {
			continue
		}
		carriers = append(carriers, c)
		dots[c.CarrierID] = true
		if c.PriorRevokeDOT != "" {
			ancestors[c.PriorRevokeDOT] = true
		}
	}
	if err := data.SaveCarriers(im.db, carriers); err != nil {
		return nil, im.fail(syncID, err)
	}

	// pull ancestor carriers the seeds referenced but the seed query missed
	missing := make([]string, 0, len(ancestors))
	for d := range ancestors {
		if !dots[d] {
			missing = append(missing, d)
		}
	}
	sort.Strings(missing)
	for _, chunk := range chunkList(missing, dotChunkSize) {
		rows, err := im.client.Census(ctx, Query{Where: dotNumberIn(chunk)}, 0)
		if err != nil {
			return nil, im.fail(syncID, err)
		}
		more := make([]*data.Carrier, 0, len(rows))
		for _, r := range rows {
			if c := r.Carrier(); c.CarrierID != "" {
				more = append(more, c)
				dots[c.CarrierID] = true
			}
		}
		if err := data.SaveCarriers(im.db, more); err != nil {
			return nil, im.fail(syncID, err)
		}
	}

	if err := data.FinishSyncRun(im.db, syncID, data.SyncStatusDone, len(carriers), ""); err != nil {
		return nil, err
	}
	return sortedKeys(dots), nil
}

// syncExpand finds carriers sharing a phone number or physical address
// with any seed.
func (im *Importer) syncExpand(ctx context.Context, runID string, seeds []string) ([]string, error) {
	syncID := runID + "_census_expand"
	if err := data.StartSyncRun(im.db, syncID, "census_expand"); err != nil {
		return nil, err
	}

	stored, err := data.GetCarriers(im.db)
	if err != nil {
		return nil, im.fail(syncID, err)
	}
	inSeeds := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		inSeeds[s] = true
	}

	phones := make(map[string]bool)
	addresses := make(map[string]bool)
	for _, c := range stored {
		if !inSeeds[c.CarrierID] {
			continue
		}
		if p := strings.TrimSpace(c.Phone); len(p) >= 7 {
			phones[p] = true
		}
		if a := strings.ToUpper(strings.TrimSpace(c.Address)); a != "" {
			addresses[a] = true
		}
	}

	scope := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		scope[s] = true
	}
	total := 0

	phoneList := capList(sortedKeys(phones), maxExpandPhones)
	for _, chunk := range chunkList(phoneList, phoneChunkSize) {
		conds := make([]string, 0, len(chunk))
		for _, p := range chunk {
			conds = append(conds, fmt.Sprintf("phone='%s'", escapeSoda(p)))
		}
		n, err := im.expandBy(ctx, strings.Join(conds, " OR "), scope)
		if err != nil {
			return nil, im.fail(syncID, err)
		}
		total += n
	}

	addrList := capList(sortedKeys(addresses), maxExpandAddresses)
	for _, chunk := range chunkList(addrList, addrChunkSize) {
		conds := make([]string, 0, len(chunk))
		for _, a := range chunk {
			conds = append(conds, fmt.Sprintf("upper(phy_street)='%s'", escapeSoda(a)))
		}
		n, err := im.expandBy(ctx, strings.Join(conds, " OR "), scope)
		if err != nil {
			return nil, im.fail(syncID, err)
		}
		total += n
	}

	if err := data.FinishSyncRun(im.db, syncID, data.SyncStatusDone, total, ""); err != nil {
		return nil, err
	}
	return sortedKeys(scope), nil
}

func (im *Importer) expandBy(ctx context.Context, where string, scope map[string]bool) (int, error) {
	rows, err := im.client.Census(ctx, Query{Where: "(" + where + ")"}, 0)
	if err != nil {
		return 0, err
	}
	carriers := make([]*data.Carrier, 0, len(rows))
	for _, r := range rows {
		if c := r.Carrier(); c.CarrierID != "" {
			carriers = append(carriers, c)
			scope[c.CarrierID] = true
		}
	}
	if err := data.SaveCarriers(im.db, carriers); err != nil {
		return 0, err
	}
	return len(carriers), nil
}

func (im *Importer) syncCrashes(ctx context.Context, runID string, dots []string) error {
	syncID := runID + "_crashes"
	if err := data.StartSyncRun(im.db, syncID, "crashes"); err != nil {
		return err
	}

	total := 0
	for _, chunk := range chunkList(dots, dotChunkSize) {
		rows, err := im.client.Crashes(ctx, Query{Where: dotNumberIn(chunk)}, 0)
		if err != nil {
			return im.fail(syncID, err)
		}
		crashes := make([]*data.Crash, 0, len(rows))
		for _, r := range rows {
			if c := r.Crash(); c.CarrierID != "" {
				crashes = append(crashes, c)
			}
		}
		if err := data.SaveCrashes(im.db, crashes); err != nil {
			return im.fail(syncID, err)
		}
		total += len(crashes)
	}

	slog.Info("crash stage done", "rows", total)
	return data.FinishSyncRun(im.db, syncID, data.SyncStatusDone, total, "")
}

func (im *Importer) syncInspections(ctx context.Context, runID string, dots []string) error {
	syncID := runID + "_inspections"
	if err := data.StartSyncRun(im.db, syncID, "inspections"); err != nil {
		return err
	}

	total := 0
	for _, chunk := range chunkList(dots, dotChunkSize) {
		rows, err := im.client.Inspections(ctx, Query{Where: dotNumberIn(chunk)}, 0)
		if err != nil {
			return im.fail(syncID, err)
		}
		inspections := make([]*data.Inspection, 0, len(rows))
		for _, r := range rows {
			if i := r.Inspection(); i.CarrierID != "" {
				inspections = append(inspections, i)
			}
		}
		if err := data.SaveInspections(im.db, inspections); err != nil {
			return im.fail(syncID, err)
		}
		total += len(inspections)
	}

	slog.Info("inspection stage done", "rows", total)
	return data.FinishSyncRun(im.db, syncID, data.SyncStatusDone, total, "")
}

// fail marks the sync run failed and returns the cause.
func (im *Importer) fail(syncID string, cause error) error {
	if err := data.FinishSyncRun(im.db, syncID, data.SyncStatusFailed, 0, cause.Error()); err != nil {
		slog.Warn("failed to record sync failure", "sync", syncID, "error", err)
	}
	return cause
}

// escapeSoda doubles single quotes for SoQL string literals.
func escapeSoda(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

func dotNumberIn(dots []string) string {
	return fmt.Sprintf("dot_number in(%s)", strings.Join(dots, ","))
}

// capList truncates the list to max entries, keeping the leading
// (sorted) values so the expansion stays bounded and reproducible.
func capList(list []string, max int) []string {
	if max > 0 && len(list) > max {
		return list[:max]
	}
	return list
}

func chunkList(list []string, size int) [][]string {
	if size <= 0 || len(list) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(list)+size-1)/size)
	for i := 0; i < len(list); i += size {
		end := i + size
		if end > len(list) {
			end = len(list)
		}
		chunks = append(chunks, list[i:end])
	}
	return chunks
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
