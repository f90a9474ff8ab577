// Package flags evaluates feature flags into a per-request Snapshot.
//
// A flag is a Definition: a name, an optional variant, and one Gate.  The
// set of gate kinds is closed (boolean, targeted, environment); the
// unexported method on Gate keeps other packages from adding new ones.
package flags

import "slices"

// Subject is what a gate is evaluated against.
type Subject struct {
	PrincipalID string
	Role        string
	Anonymous   bool
	TenantID    string
	Environment string
}

// Decision reasons.
const (
	ReasonOn          = "on"
	ReasonOff         = "off"
	ReasonAllowlist   = "allowlist"
	ReasonSegmentMiss = "segment_miss"
	ReasonRuleError   = "rule_error"
	ReasonRolloutIn   = "rollout_in"
	ReasonRolloutOut  = "rollout_out"
	ReasonAnonymous   = "anonymous"
	ReasonEnvironment = "environment"
	ReasonUnknown     = "unknown"
	ReasonDegraded    = "degraded"
)

// Gate decides whether a flag is on for a subject.
type Gate interface {
	Kind() string
	evaluate(flag string, s Subject) (bool, string)
}

// BooleanGate is a global switch.
type BooleanGate struct {
	On bool
}

func (BooleanGate) Kind() string { return KindBoolean }

func (g BooleanGate) evaluate(string, Subject) (bool, string) {
	if g.On {
		return true, ReasonOn
	}
	return false, ReasonOff
}

// TargetedGate rolls a flag out to a segment.
//
// Principals listed explicitly are always on.  Everyone else must match
// every segment filter that is set (Roles, Tenants, Rule) and then fall
// inside Percentage by stable bucket.  Anonymous callers have no stable
// id, so they are only included at 100%.
type TargetedGate struct {
	Percentage float64 // 0..100
	Principals []string
	Roles      []string
	Tenants    []string
	Rule       *Rule
}

func (TargetedGate) Kind() string { return KindTargeted }

func (g TargetedGate) evaluate(flag string, s Subject) (bool, string) {
	if !s.Anonymous && s.PrincipalID != "" && slices.Contains(g.Principals, s.PrincipalID) {
		return true, ReasonAllowlist
	}
	if len(g.Roles) > 0 && !slices.Contains(g.Roles, s.Role) {
		return false, ReasonSegmentMiss
	}
	if len(g.Tenants) > 0 && !slices.Contains(g.Tenants, s.TenantID) {
		return false, ReasonSegmentMiss
	}
	if g.Rule != nil {
		ok, err := g.Rule.Match(s)
		if err != nil {
			return false, ReasonRuleError
		}
		if !ok {
			return false, ReasonSegmentMiss
		}
	}

	switch {
	case g.Percentage >= 100:
		return true, ReasonRolloutIn
	case s.Anonymous || s.PrincipalID == "":
		return false, ReasonAnonymous
	case InRollout(g.Percentage, Bucket(flag, s.PrincipalID)):
		return true, ReasonRolloutIn
	default:
		return false, ReasonRolloutOut
	}
}

// EnvironmentGate is on in the listed deployment environments.
type EnvironmentGate struct {
	Environments []string
}

func (EnvironmentGate) Kind() string { return KindEnvironment }

func (g EnvironmentGate) evaluate(_ string, s Subject) (bool, string) {
	if slices.Contains(g.Environments, s.Environment) {
		return true, ReasonEnvironment
	}
	return false, ReasonOff
}
