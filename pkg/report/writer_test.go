package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsight/fleetsight/pkg/data"
	"github.com/fleetsight/fleetsight/pkg/engine"
)

func sampleResult(t *testing.T) (*engine.Result, map[string]string) {
	t.Helper()

	eng, err := engine.New(engine.DefaultConfig())
	require.NoError(t, err)

	records := data.SampleCarriers()
	res, err := eng.Run(context.Background(), records, nil)
	require.NoError(t, err)

	names := make(map[string]string, len(records))
	for _, r := range records {
		names[r.CarrierID] = r.LegalName
	}
	return res, names
}

func TestWrite(t *testing.T) {
	res, names := sampleResult(t)

	p, err := Write(t.TempDir(), res, names, 50)
	require.NoError(t, err)
	assert.Contains(t, p.Dir, res.Run().RunID)

	for _, path := range []string{p.LinksJSON, p.LinksCSV, p.ClusterJSON, p.ClusterCSV, p.RiskJSON, p.RiskCSV, p.SummaryMD} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Greater(t, info.Size(), int64(0), path)
	}

	// links.json round-trips to the assembler's link list
	b, err := os.ReadFile(p.LinksJSON)
	require.NoError(t, err)
	var links []engine.PairwiseLink
	require.NoError(t, json.Unmarshal(b, &links))
	assert.Equal(t, res.Links(), links)

	// links.csv carries names and one row per link
	f, err := os.Open(p.LinksCSV)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(res.Links())+1)
	assert.Equal(t, "carrier_a", rows[0][0])
	first := res.Links()[0]
	assert.Equal(t, first.CarrierA, rows[1][0])
	assert.Equal(t, names[first.CarrierA], rows[1][2])
}

func TestSummarize(t *testing.T) {
	res, _ := sampleResult(t)

	md := Summarize(res, nil, 50)
	assert.True(t, strings.HasPrefix(md, "# FleetSight Analysis"))
	assert.Contains(t, md, "## Top Links")
	assert.Contains(t, md, "## Top Clusters")
	assert.Contains(t, md, "## Top Risk")
	assert.NotContains(t, md, "## Reports")

	first := res.Links()[0]
	assert.Contains(t, md, "`"+first.CarrierA+"` <-> `"+first.CarrierB+"`")
}

func TestSummarizeEmpty(t *testing.T) {
	eng, err := engine.New(engine.DefaultConfig())
	require.NoError(t, err)
	res, err := eng.Run(context.Background(), nil, nil)
	require.NoError(t, err)

	md := Summarize(res, nil, 10)
	assert.Contains(t, md, "- No links found.")
	assert.Contains(t, md, "- No clusters above threshold.")
	assert.Contains(t, md, "- No carriers scored.")
}
