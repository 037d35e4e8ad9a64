package policy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dailywell/aigov/pkg/models"
)

// ErrInvalidPolicy is wrapped by every validation failure.
var ErrInvalidPolicy = errors.New("invalid policy")

// Load reads a YAML rule table and overlays it on Default. Map entries in the
// file replace the built-in entry for the same key.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML rule table overlaid on Default and validates it.
func Parse(data []byte) (*Policy, error) {
	p := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the table for values that would break accounting.
func (p *Policy) Validate() error {
	if p.InternalMultiplier <= 0 {
		return fmt.Errorf("%w: internal_multiplier must be positive, got %v", ErrInvalidPolicy, p.InternalMultiplier)
	}
	for plan, l := range p.Plans {
		if !plan.Valid() {
			return fmt.Errorf("%w: unknown plan %q", ErrInvalidPolicy, plan)
		}
		if err := l.validate(string(plan)); err != nil {
			return err
		}
	}
	if err := p.DefaultPlan.validate("default_plan"); err != nil {
		return err
	}
	for plan := range p.Quotas {
		if !plan.Valid() {
			return fmt.Errorf("%w: quotas for unknown plan %q", ErrInvalidPolicy, plan)
		}
	}
	for _, tier := range models.AllTiers {
		price, ok := p.Pricing[tier]
		if !ok {
			return fmt.Errorf("%w: missing pricing for tier %q", ErrInvalidPolicy, tier)
		}
		if price.InputPerMTok < 0 || price.OutputPerMTok < 0 {
			return fmt.Errorf("%w: negative price for tier %q", ErrInvalidPolicy, tier)
		}
		if tier.IsFree() && (price.InputPerMTok != 0 || price.OutputPerMTok != 0) {
			return fmt.Errorf("%w: local tier %q must be free", ErrInvalidPolicy, tier)
		}
	}
	for tier := range p.Pricing {
		if !tier.Valid() {
			return fmt.Errorf("%w: pricing for unknown tier %q", ErrInvalidPolicy, tier)
		}
	}
	if p.RateLimit.MinSecondsBetweenCalls < 0 || p.RateLimit.MaxCallsPerMinute < 0 {
		return fmt.Errorf("%w: rate limit values must not be negative", ErrInvalidPolicy)
	}
	return nil
}

func (l PlanLimits) validate(name string) error {
	if l.HardCapUSD <= 0 {
		return fmt.Errorf("%w: %s: hard_cap_usd must be positive", ErrInvalidPolicy, name)
	}
	if l.SoftCapUSD < 0 || l.SoftCapUSD > l.HardCapUSD {
		return fmt.Errorf("%w: %s: soft_cap_usd must be between 0 and hard_cap_usd", ErrInvalidPolicy, name)
	}
	if l.MonthlyTokenLimit <= 0 || l.MaxMessagesPerDay <= 0 || l.MaxTokensPerDay < 0 {
		return fmt.Errorf("%w: %s: token and message limits must be positive", ErrInvalidPolicy, name)
	}
	return nil
}
