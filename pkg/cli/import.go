package cli

import (
	"fmt"
	"time"

	urfave "github.com/urfave/cli/v2"

	"github.com/fleetsight/fleetsight/pkg/fmcsa"
)

var (
	maxSeedsFlag = &urfave.IntFlag{
		Name:  "max-seeds",
		Usage: "Limit prior-revoke seed carriers (0 = all)",
	}

	expandHopsFlag = &urfave.IntFlag{
		Name:  "expand-hops",
		Usage: "Neighbor expansion hops [0, 1]",
		Value: 1,
	}

	skipCrashesFlag = &urfave.BoolFlag{
		Name:  "skip-crashes",
		Usage: "Skip the crash history stage",
	}

	skipInspectionsFlag = &urfave.BoolFlag{
		Name:  "skip-inspections",
		Usage: "Skip the inspection history stage",
	}

	importCmd = &urfave.Command{
		Name:            "import",
		Aliases:         []string{"i"},
		HideHelpCommand: true,
		Usage:           "Import FMCSA census, crash, and inspection data",
		Action:          cmdImport,
		Flags: []urfave.Flag{
			maxSeedsFlag,
			expandHopsFlag,
			skipCrashesFlag,
			skipInspectionsFlag,
		},
	}
)

type importResult struct {
	Carriers int    `json:"carriers" yaml:"carriers"`
	Duration string `json:"duration" yaml:"duration"`
}

func cmdImport(c *urfave.Context) error {
	start := time.Now()
	cfg := getConfig(c)

	client := fmcsa.NewClient(getAppToken())
	im := fmcsa.NewImporter(client, cfg.DB)

	count, err := im.Run(c.Context, fmcsa.ImportOptions{
		MaxSeeds:        c.Int(maxSeedsFlag.Name),
		ExpandHops:      c.Int(expandHopsFlag.Name),
		SkipCrashes:     c.Bool(skipCrashesFlag.Name),
		SkipInspections: c.Bool(skipInspectionsFlag.Name),
	})
	if err != nil {
		return fmt.Errorf("importing FMCSA data: %w", err)
	}

	return encode(&importResult{
		Carriers: count,
		Duration: time.Since(start).Round(time.Second).String(),
	})
}
