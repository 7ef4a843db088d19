package cli

import (
	"fmt"
	"sort"
	"strings"

	urfave "github.com/urfave/cli/v2"

	"github.com/fleetsight/fleetsight/pkg/engine"
)

var explainCmd = &urfave.Command{
	Name:            "explain",
	HideHelpCommand: true,
	Usage:           "Explain how link and risk scores are computed",
	Action:          cmdExplain,
	Flags: []urfave.Flag{
		configFileFlag,
		thresholdFlag,
	},
}

func cmdExplain(c *urfave.Context) error {
	dc, err := detectionConfig(c)
	if err != nil {
		return err
	}
	fmt.Println(explainScoring(dc))
	return nil
}

func explainScoring(dc engine.Config) string {
	kinds := make([]string, 0, len(dc.FeatureWeights))
	for k := range dc.FeatureWeights {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	lines := []string{"# FleetSight Scoring", "", "Feature weights:"}
	for _, k := range kinds {
		lines = append(lines, fmt.Sprintf("- %s: %g", k, dc.FeatureWeights[engine.FeatureKind(k)]))
	}

	lines = append(lines, "",
		"Normalization:",
		"- phone: digits only, drop a leading country code 1",
		"- email: lowercase mailbox, domain scored separately when mailboxes differ",
		"- address: lowercase, strip punctuation, collapse spaces, street->st, avenue->ave, road->rd",
		"- ip: canonical textual form, exact match",
		"",
		"Rarity down-weighting:",
		fmt.Sprintf("- rarity(n) = %g / n for values shared by n >= 2 carriers, 0 otherwise", dc.RarityScale),
		"- contribution = feature_weight * rarity(n)",
		fmt.Sprintf("- raw sums are compressed into [0, 100) with scale %g", dc.CompressionScale),
		"",
		"Clustering and risk:",
		fmt.Sprintf("- cluster edges require link score >= %g", dc.LinkThreshold),
		fmt.Sprintf("- composite risk = %g * chameleon + %g * safety", dc.ChameleonWeight, dc.SafetyWeight))

	return strings.Join(lines, "\n")
}
