package engine

// FeatureKind identifies one normalized carrier identifier type.
type FeatureKind string

const (
	FeaturePhone       FeatureKind = "phone"
	FeatureEmail       FeatureKind = "email"
	FeatureEmailDomain FeatureKind = "emailDomain"
	FeatureAddress     FeatureKind = "address"
	FeatureIP          FeatureKind = "ip"
)

// FeatureKinds lists every scored feature kind in evaluation order.
// Scoring iterates this slice, never a map, so contribution summation
// order is fixed regardless of input order.
var FeatureKinds = []FeatureKind{
	FeaturePhone,
	FeatureEmail,
	FeatureEmailDomain,
	FeatureAddress,
	FeatureIP,
}

// CarrierRecord is one immutable input row. CarrierID is opaque and unique
// within a run; every other field is optional and may be empty.
type CarrierRecord struct {
	CarrierID string `json:"carrier_id" yaml:"carrierId"`
	LegalName string `json:"legal_name,omitempty" yaml:"legalName,omitempty"`
	DOT       string `json:"dot,omitempty" yaml:"dot,omitempty"`
	MC        string `json:"mc,omitempty" yaml:"mc,omitempty"`
	Phone     string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	Address   string `json:"address,omitempty" yaml:"address,omitempty"`
	IP        string `json:"ip,omitempty" yaml:"ip,omitempty"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// FeatureSet maps feature kinds to normalized identifier values.
// Absent features have no entry; a record can normalize to an empty set,
// in which case it participates in no pairwise comparisons.
type FeatureSet map[FeatureKind]string

// Get returns the normalized value for a kind and whether it is present.
func (fs FeatureSet) Get(kind FeatureKind) (string, bool) {
	v, ok := fs[kind]
	return v, ok
}
