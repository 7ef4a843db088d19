package cli

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"

	"github.com/fleetsight/fleetsight/pkg/data"
)

const queryResultLimitDefault = 50

var (
	runIDFlag = &urfave.StringFlag{
		Name:  "run",
		Usage: "Run id (default: latest run)",
	}

	queryTopFlag = &urfave.IntFlag{
		Name:  "top",
		Usage: "Limits number of results returned",
		Value: queryResultLimitDefault,
	}

	queryCmd = &urfave.Command{
		Name:            "query",
		Aliases:         []string{"q"},
		HideHelpCommand: true,
		Usage:           "Query stored detection results",
		Subcommands: []*urfave.Command{
			{
				Name:    "links",
				Aliases: []string{"l"},
				Usage:   "List pairwise links, score descending",
				Action:  cmdQueryLinks,
				Flags:   []urfave.Flag{runIDFlag, queryTopFlag},
			},
			{
				Name:    "clusters",
				Aliases: []string{"c"},
				Usage:   "List affiliation clusters",
				Action:  cmdQueryClusters,
				Flags:   []urfave.Flag{runIDFlag, queryTopFlag},
			},
			{
				Name:    "risk",
				Aliases: []string{"r"},
				Usage:   "List carrier risk scores, composite descending",
				Action:  cmdQueryRisk,
				Flags:   []urfave.Flag{runIDFlag, queryTopFlag},
			},
			{
				Name:    "runs",
				Usage:   "List ingestion sync runs",
				Action:  cmdQuerySyncRuns,
				Flags:   []urfave.Flag{queryTopFlag},
			},
		},
	}
)

// resolveRunID falls back to the most recent run when --run is not set.
func resolveRunID(c *urfave.Context) (string, error) {
	if id := c.String(runIDFlag.Name); id != "" {
		return id, nil
	}
	cfg := getConfig(c)
	id, err := data.GetLatestRunID(cfg.DB)
	if err != nil {
		return "", fmt.Errorf("resolving latest run: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("no detection runs stored yet, run detect first")
	}
	return id, nil
}

func cmdQueryLinks(c *urfave.Context) error {
	runID, err := resolveRunID(c)
	if err != nil {
		return err
	}
	list, err := data.GetLinks(getConfig(c).DB, runID, c.Int(queryTopFlag.Name))
	if err != nil {
		return fmt.Errorf("querying links: %w", err)
	}
	return encode(list)
}

func cmdQueryClusters(c *urfave.Context) error {
	runID, err := resolveRunID(c)
	if err != nil {
		return err
	}
	list, err := data.GetClusters(getConfig(c).DB, runID, c.Int(queryTopFlag.Name))
	if err != nil {
		return fmt.Errorf("querying clusters: %w", err)
	}
	return encode(list)
}

func cmdQueryRisk(c *urfave.Context) error {
	runID, err := resolveRunID(c)
	if err != nil {
		return err
	}
	list, err := data.GetRiskScores(getConfig(c).DB, runID, c.Int(queryTopFlag.Name))
	if err != nil {
		return fmt.Errorf("querying risk scores: %w", err)
	}
	return encode(list)
}

func cmdQuerySyncRuns(c *urfave.Context) error {
	list, err := data.GetSyncRuns(getConfig(c).DB, c.Int(queryTopFlag.Name))
	if err != nil {
		return fmt.Errorf("querying sync runs: %w", err)
	}
	return encode(list)
}
