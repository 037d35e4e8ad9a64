package models

// PlanTier identifies a subscription plan.
type PlanTier string

const (
	PlanFree         PlanTier = "free"
	PlanTrial        PlanTier = "trial"
	PlanMonthly      PlanTier = "monthly"
	PlanAnnual       PlanTier = "annual"
	PlanLifetime     PlanTier = "lifetime"
	PlanStudent      PlanTier = "student"
	PlanFamilyOwner  PlanTier = "family_owner"
	PlanFamilyMember PlanTier = "family_member"
)

// AllPlans lists every known plan in display order.
var AllPlans = []PlanTier{
	PlanFree, PlanTrial, PlanMonthly, PlanAnnual,
	PlanLifetime, PlanStudent, PlanFamilyOwner, PlanFamilyMember,
}

// Valid reports whether p is a known plan.
func (p PlanTier) Valid() bool {
	switch p {
	case PlanFree, PlanTrial, PlanMonthly, PlanAnnual,
		PlanLifetime, PlanStudent, PlanFamilyOwner, PlanFamilyMember:
		return true
	default:
		return false
	}
}

// Paid reports whether the plan is a paying subscription.
func (p PlanTier) Paid() bool {
	return p.Valid() && p != PlanFree && p != PlanTrial
}
