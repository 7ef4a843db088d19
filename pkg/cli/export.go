package cli

import (
	"fmt"
	"math"
	"os"

	urfave "github.com/urfave/cli/v2"

	"github.com/fleetsight/fleetsight/pkg/data"
	"github.com/fleetsight/fleetsight/pkg/report"
)

const databaseURLEnvVar = "DATABASE_URL"

var (
	exportDSNFlag = &urfave.StringFlag{
		Name:        "dsn",
		Usage:       "Postgres connection string to export into",
		EnvVars:     []string{databaseURLEnvVar},
		DefaultText: "variable",
	}

	exportDirFlag = &urfave.StringFlag{
		Name:  "dir",
		Usage: "Directory to write report files into",
	}

	exportTopFlag = &urfave.IntFlag{
		Name:  "top",
		Usage: "Top N rows in the report summary",
		Value: queryResultLimitDefault,
	}

	exportCmd = &urfave.Command{
		Name:            "export",
		Aliases:         []string{"e"},
		HideHelpCommand: true,
		Usage:           "Export a stored run to Postgres or to report files",
		Action:          cmdExport,
		Flags: []urfave.Flag{
			runIDFlag,
			exportDSNFlag,
			exportDirFlag,
			exportTopFlag,
		},
	}
)

type exportResult struct {
	Run      string        `json:"run" yaml:"run"`
	Postgres bool          `json:"postgres,omitempty" yaml:"postgres,omitempty"`
	Reports  *report.Paths `json:"reports,omitempty" yaml:"reports,omitempty"`
}

func cmdExport(c *urfave.Context) error {
	dsn := c.String(exportDSNFlag.Name)
	dir := c.String(exportDirFlag.Name)
	if dsn == "" && dir == "" {
		return urfave.ShowSubcommandHelp(c)
	}

	runID, err := resolveRunID(c)
	if err != nil {
		return err
	}

	cfg := getConfig(c)
	res, err := data.GetResult(cfg.DB, runID, math.MaxInt32)
	if err != nil {
		return fmt.Errorf("reading run %s: %w", runID, err)
	}

	out := &exportResult{Run: runID}

	if dsn != "" {
		pg, err := data.OpenPostgres(dsn)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pg.Close()

		if err := data.ExportResult(pg, res); err != nil {
			return fmt.Errorf("exporting run %s: %w", runID, err)
		}
		out.Postgres = true
	}

	if dir != "" {
		carriers, err := data.GetCarriers(cfg.DB)
		if err != nil {
			return fmt.Errorf("reading carriers: %w", err)
		}
		names := make(map[string]string, len(carriers))
		for _, carrier := range carriers {
			names[carrier.CarrierID] = carrier.LegalName
		}

		top := c.Int(exportTopFlag.Name)
		paths, err := report.Write(dir, res, names, top)
		if err != nil {
			return fmt.Errorf("writing reports: %w", err)
		}
		fmt.Fprintln(os.Stderr, report.Summarize(res, paths, top))
		out.Reports = paths
	}

	return encode(out)
}
