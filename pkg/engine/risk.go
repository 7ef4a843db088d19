package engine

import "sort"

// Signal tags attached to risk scores. Every non-zero-contribution rule
// appends its tag so a score is explainable without re-deriving it.
const (
	SignalLinkedCarrier   = "LINKED_CARRIER"
	SignalLargeCluster    = "LARGE_CLUSTER"
	SignalStrongLink      = "STRONG_LINK"
	SignalPriorRevokeLink = "PRIOR_REVOKE_LINK"
	SignalPriorRevoke     = "PRIOR_REVOKE"
	SignalCrashHistory    = "CRASH_HISTORY"
	SignalFatalCrash      = "FATAL_CRASH"
	SignalInjuryCrash     = "INJURY_CRASH"
	SignalHighOOSRate     = "HIGH_OOS_RATE"
	SignalHighCrashRate   = "HIGH_CRASH_RATE"
)

// SafetyInputs are the externally supplied safety-history aggregates for
// one carrier. The zero value is valid and means no safety signal.
type SafetyInputs struct {
	Crashes      int  `json:"crashes,omitempty" yaml:"crashes,omitempty"`
	Fatalities   int  `json:"fatalities,omitempty" yaml:"fatalities,omitempty"`
	Injuries     int  `json:"injuries,omitempty" yaml:"injuries,omitempty"`
	Inspections  int  `json:"inspections,omitempty" yaml:"inspections,omitempty"`
	OutOfService int  `json:"out_of_service,omitempty" yaml:"outOfService,omitempty"`
	PowerUnits   int  `json:"power_units,omitempty" yaml:"powerUnits,omitempty"`
	PriorRevoke  bool `json:"prior_revoke,omitempty" yaml:"priorRevoke,omitempty"`
}

// SafetyProvider supplies safety aggregates per carrier id. A missing
// carrier means zero safety signal, never an error.
type SafetyProvider interface {
	Safety(carrierID string) (SafetyInputs, bool)
}

// SafetyMap is a SafetyProvider backed by a map.
type SafetyMap map[string]SafetyInputs

func (m SafetyMap) Safety(carrierID string) (SafetyInputs, bool) {
	s, ok := m[carrierID]
	return s, ok
}

// RiskScore is the composite, explainable risk assessment for one
// carrier.
type RiskScore struct {
	CarrierID      string   `json:"carrier_id" yaml:"carrierId"`
	ChameleonScore float64  `json:"chameleon_score" yaml:"chameleonScore"`
	SafetyScore    float64  `json:"safety_score" yaml:"safetyScore"`
	CompositeScore float64  `json:"composite_score" yaml:"compositeScore"`
	Signals        []string `json:"signals" yaml:"signals"`
	ClusterSize    int      `json:"cluster_size" yaml:"clusterSize"`
}

// oosRateFloor is the vehicle out-of-service rate above which a carrier
// draws the HIGH_OOS_RATE signal (roughly 1.5x the national average).
const oosRateFloor = 0.34

// scoreRisk combines affiliation-network signal with safety history.
// cluster may be nil (carrier not in any cluster); incident holds the
// carrier's qualifying link scores within its cluster. Each rule is
// additive with a non-negative increment and the components are capped at
// 100, so the function is total and monotonic in every input.
func scoreRisk(carrierID string, cluster *Cluster, incident []float64, safety SafetyInputs, cfg Config) RiskScore {
	rs := RiskScore{CarrierID: carrierID, Signals: []string{}}

	var chameleon float64
	if cluster != nil {
		rs.ClusterSize = cluster.Size
		chameleon += 20
		rs.Signals = append(rs.Signals, SignalLinkedCarrier)

		if cluster.Size >= cfg.LargeClusterSize {
			chameleon += 20
			rs.Signals = append(rs.Signals, SignalLargeCluster)
		}

		// A carrier tied to many others at high score ranks above one
		// weakly linked to a big but loose cluster.
		maxIncident := 0.0
		sumIncident := 0.0
		for _, s := range incident {
			sumIncident += s
			if s > maxIncident {
				maxIncident = s
			}
		}
		if len(incident) > 0 {
			avg := sumIncident / float64(len(incident))
			chameleon += 0.3 * avg
		}
		if maxIncident >= cfg.StrongLinkFloor {
			chameleon += 20
			rs.Signals = append(rs.Signals, SignalStrongLink)
		}
		if safety.PriorRevoke {
			chameleon += 20
			rs.Signals = append(rs.Signals, SignalPriorRevokeLink)
		}
	}
	if chameleon > 100 {
		chameleon = 100
	}

	var safetyScore float64
	if safety.PriorRevoke {
		safetyScore += 30
		rs.Signals = append(rs.Signals, SignalPriorRevoke)
	}
	if safety.Crashes > 0 {
		bump := 15 + 5*float64(safety.Crashes)
		if bump > 40 {
			bump = 40
		}
		safetyScore += bump
		rs.Signals = append(rs.Signals, SignalCrashHistory)
	}
	if safety.Fatalities > 0 {
		safetyScore += 30
		rs.Signals = append(rs.Signals, SignalFatalCrash)
	}
	if safety.Injuries > 0 {
		safetyScore += 10
		rs.Signals = append(rs.Signals, SignalInjuryCrash)
	}
	if safety.Inspections > 0 {
		rate := float64(safety.OutOfService) / float64(safety.Inspections)
		if rate > oosRateFloor {
			safetyScore += 20
			rs.Signals = append(rs.Signals, SignalHighOOSRate)
		}
	}
	if safety.PowerUnits > 0 && safety.Crashes > 0 {
		if float64(safety.Crashes)/float64(safety.PowerUnits) > 0.5 {
			safetyScore += 20
			rs.Signals = append(rs.Signals, SignalHighCrashRate)
		}
	}
	if safetyScore > 100 {
		safetyScore = 100
	}

	rs.ChameleonScore = round4(chameleon)
	rs.SafetyScore = round4(safetyScore)
	rs.CompositeScore = round4(cfg.ChameleonWeight*chameleon + cfg.SafetyWeight*safetyScore)
	return rs
}

// scoreAllRisks produces one RiskScore per carrier, ordered by composite
// score descending then carrier id ascending.
func scoreAllRisks(carrierIDs []string, clusters []Cluster, qualifying []PairwiseLink, provider SafetyProvider, cfg Config) []RiskScore {
	byMember := make(map[string]*Cluster)
	for i := range clusters {
		for _, id := range clusters[i].Members {
			byMember[id] = &clusters[i]
		}
	}

	incident := make(map[string][]float64)
	for _, l := range qualifying {
		incident[l.CarrierA] = append(incident[l.CarrierA], l.Score)
		incident[l.CarrierB] = append(incident[l.CarrierB], l.Score)
	}

	out := make([]RiskScore, 0, len(carrierIDs))
	for _, id := range carrierIDs {
		var safety SafetyInputs
		if provider != nil {
			safety, _ = provider.Safety(id)
		}
		out = append(out, scoreRisk(id, byMember[id], incident[id], safety, cfg))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CompositeScore != out[j].CompositeScore {
			return out[i].CompositeScore > out[j].CompositeScore
		}
		return out[i].CarrierID < out[j].CarrierID
	})
	return out
}
