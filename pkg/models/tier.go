package models

// ExecutionTier is where an interaction is served.
type ExecutionTier string

const (
	TierLocalRule       ExecutionTier = "local_rule"
	TierLocalSmallModel ExecutionTier = "local_small_model"
	TierCloudA          ExecutionTier = "cloud_tier_a"
	TierCloudB          ExecutionTier = "cloud_tier_b"
	TierCloudC          ExecutionTier = "cloud_tier_c"
)

// AllTiers lists every execution tier from cheapest to most capable.
var AllTiers = []ExecutionTier{
	TierLocalRule, TierLocalSmallModel, TierCloudA, TierCloudB, TierCloudC,
}

// Valid reports whether t is a known tier.
func (t ExecutionTier) Valid() bool {
	return t.Rank() >= 0
}

// IsFree reports whether the tier runs on-device and costs nothing.
func (t ExecutionTier) IsFree() bool {
	return t == TierLocalRule || t == TierLocalSmallModel
}

// IsCloud reports whether the tier is a paid remote model.
func (t ExecutionTier) IsCloud() bool {
	return t == TierCloudA || t == TierCloudB || t == TierCloudC
}

// Rank orders tiers by capability. Unknown tiers rank -1.
func (t ExecutionTier) Rank() int {
	switch t {
	case TierLocalRule:
		return 0
	case TierLocalSmallModel:
		return 1
	case TierCloudA:
		return 2
	case TierCloudB:
		return 3
	case TierCloudC:
		return 4
	default:
		return -1
	}
}

// Next returns the next more capable cloud tier, staying at the top tier.
func (t ExecutionTier) Next() ExecutionTier {
	switch t {
	case TierCloudA:
		return TierCloudB
	case TierCloudB, TierCloudC:
		return TierCloudC
	default:
		return t
	}
}
