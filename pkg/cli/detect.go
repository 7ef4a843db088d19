package cli

import (
	"fmt"
	"os"
	"path/filepath"

	urfave "github.com/urfave/cli/v2"

	"github.com/fleetsight/fleetsight/pkg/config"
	"github.com/fleetsight/fleetsight/pkg/data"
	"github.com/fleetsight/fleetsight/pkg/engine"
	"github.com/fleetsight/fleetsight/pkg/report"
)

var (
	detectFileFlag = &urfave.StringFlag{
		Name:  "file",
		Usage: "Analyze a carriers CSV directly instead of the database",
	}

	thresholdFlag = &urfave.Float64Flag{
		Name:  "threshold",
		Usage: "Link score threshold for cluster edges (overrides config)",
		Value: -1,
	}

	topFlag = &urfave.IntFlag{
		Name:  "top",
		Usage: "Top N rows in reports (overrides config)",
	}

	configFileFlag = &urfave.StringFlag{
		Name:  "config",
		Usage: "Path to a detection config file (default: app home config.yaml)",
	}

	reportDirFlag = &urfave.StringFlag{
		Name:  "report-dir",
		Usage: "Report output directory (default: app home reports/)",
	}

	detectCmd = &urfave.Command{
		Name:            "detect",
		Aliases:         []string{"d"},
		HideHelpCommand: true,
		Usage:           "Run affiliation detection and risk scoring",
		Action:          cmdDetect,
		Flags: []urfave.Flag{
			detectFileFlag,
			thresholdFlag,
			topFlag,
			configFileFlag,
			reportDirFlag,
		},
	}
)

type detectResult struct {
	Run      engine.Run    `json:"run" yaml:"run"`
	Links    int           `json:"links" yaml:"links"`
	Clusters int           `json:"clusters" yaml:"clusters"`
	Scored   int           `json:"scored" yaml:"scored"`
	Reports  *report.Paths `json:"reports" yaml:"reports"`
}

func detectionConfig(c *urfave.Context) (engine.Config, error) {
	var conf *config.Config
	var err error
	if path := c.String(configFileFlag.Name); path != "" {
		conf, err = config.Load(path)
	} else {
		conf, err = config.ReadOrCreate(getHomeDir())
	}
	if err != nil {
		return engine.Config{}, fmt.Errorf("loading detection config: %w", err)
	}

	dc := conf.Detection
	if t := c.Float64(thresholdFlag.Name); t >= 0 {
		dc.LinkThreshold = t
	}
	if n := c.Int(topFlag.Name); n > 0 {
		dc.TopN = n
	}
	return dc, nil
}

func cmdDetect(c *urfave.Context) error {
	cfg := getConfig(c)

	dc, err := detectionConfig(c)
	if err != nil {
		return err
	}
	eng, err := engine.New(dc)
	if err != nil {
		return err
	}

	var records []engine.CarrierRecord
	var safety engine.SafetyProvider
	fromFile := c.String(detectFileFlag.Name)
	if fromFile != "" {
		if records, err = data.LoadCarriersCSV(fromFile); err != nil {
			return fmt.Errorf("loading carriers: %w", err)
		}
	} else {
		carriers, err := data.GetCarriers(cfg.DB)
		if err != nil {
			return fmt.Errorf("reading carriers: %w", err)
		}
		records = data.Records(carriers)
		if safety, err = data.GetSafetyAggregates(cfg.DB); err != nil {
			return fmt.Errorf("reading safety aggregates: %w", err)
		}
	}
	if len(records) == 0 {
		return fmt.Errorf("no carriers to analyze, run import, load, or pass --file")
	}

	res, err := eng.Run(c.Context, records, safety)
	if err != nil {
		return fmt.Errorf("running detection: %w", err)
	}

	if err := data.SaveResult(cfg.DB, res, dc.LinkThreshold); err != nil {
		return fmt.Errorf("saving result: %w", err)
	}

	dir := c.String(reportDirFlag.Name)
	if dir == "" {
		dir = filepath.Join(getHomeDir(), "reports")
	}
	names := make(map[string]string, len(records))
	for _, r := range records {
		names[r.CarrierID] = r.LegalName
	}
	paths, err := report.Write(dir, res, names, dc.TopN)
	if err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}

	fmt.Fprintln(os.Stderr, report.Summarize(res, paths, dc.TopN))

	return encode(&detectResult{
		Run:      res.Run(),
		Links:    len(res.Links()),
		Clusters: len(res.Clusters()),
		Scored:   len(res.RiskScores()),
		Reports:  paths,
	})
}
