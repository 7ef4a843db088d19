package engine

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config carries every tunable of a detection run. All values are plain
// inputs to a Run; nothing here is mutated between runs.
type Config struct {
	// LinkThreshold is the minimum link score for cluster edges.
	LinkThreshold float64 `json:"link_threshold" yaml:"linkThreshold" validate:"gte=0,lte=100"`

	// ReportFloor is the minimum score for a link to be retained in the
	// result set. Links below it are still computed but never reported.
	ReportFloor float64 `json:"report_floor" yaml:"reportFloor" validate:"gte=0,lte=100"`

	// TopN bounds truncated exports.
	TopN int `json:"top_n" yaml:"topN" validate:"gte=1"`

	// Workers is the scoring worker count; zero means one per CPU.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty" validate:"gte=0"`

	// FeatureWeights holds the per-kind base weights.
	FeatureWeights map[FeatureKind]float64 `json:"feature_weights" yaml:"featureWeights" validate:"required,dive,gte=0"`

	// RarityScale shapes the rarity curve: a value shared by n carriers
	// contributes weight * RarityScale/n for n >= 2, nothing otherwise.
	RarityScale float64 `json:"rarity_scale" yaml:"rarityScale" validate:"gt=0"`

	// CompressionScale shapes the saturating transform that maps the raw
	// contribution sum into [0, 100).
	CompressionScale float64 `json:"compression_scale" yaml:"compressionScale" validate:"gt=0"`

	// ChameleonWeight and SafetyWeight combine the two risk components.
	ChameleonWeight float64 `json:"chameleon_weight" yaml:"chameleonWeight" validate:"gte=0,lte=1"`
	SafetyWeight    float64 `json:"safety_weight" yaml:"safetyWeight" validate:"gte=0,lte=1"`

	// LargeClusterSize is the membership count at which a cluster is
	// flagged as large for risk scoring.
	LargeClusterSize int `json:"large_cluster_size" yaml:"largeClusterSize" validate:"gte=2"`

	// StrongLinkFloor is the incident link score treated as a strong
	// affiliation signal.
	StrongLinkFloor float64 `json:"strong_link_floor" yaml:"strongLinkFloor" validate:"gte=0,lte=100"`
}

// DefaultConfig returns the standard detection configuration. The weights
// mirror the production tuning: phone 40, email 35, emailDomain 15,
// address 25, ip 20, rarity 2/n, composite 0.7 chameleon / 0.3 safety.
func DefaultConfig() Config {
	return Config{
		LinkThreshold: 30,
		ReportFloor:   5,
		TopN:          50,
		FeatureWeights: map[FeatureKind]float64{
			FeaturePhone:       40,
			FeatureEmail:       35,
			FeatureEmailDomain: 15,
			FeatureAddress:     25,
			FeatureIP:          20,
		},
		RarityScale:      2,
		CompressionScale: 90,
		ChameleonWeight:  0.7,
		SafetyWeight:     0.3,
		LargeClusterSize: 3,
		StrongLinkFloor:  50,
	}
}

var validate = validator.New()

// Validate fails fast on an invalid configuration, before any scoring
// begins. A partially applied invalid configuration would silently break
// run determinism.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid detection config: %w", err)
	}
	for _, kind := range FeatureKinds {
		if _, ok := c.FeatureWeights[kind]; !ok {
			return fmt.Errorf("invalid detection config: missing weight for feature %q", kind)
		}
	}
	for kind := range c.FeatureWeights {
		if !knownFeatureKind(kind) {
			return fmt.Errorf("invalid detection config: unknown feature %q", kind)
		}
	}
	if c.ChameleonWeight+c.SafetyWeight <= 0 {
		return fmt.Errorf("invalid detection config: composite weights sum to zero")
	}
	return nil
}

func knownFeatureKind(k FeatureKind) bool {
	for _, kind := range FeatureKinds {
		if kind == k {
			return true
		}
	}
	return false
}
