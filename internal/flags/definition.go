package flags

import (
	"errors"
	"fmt"
	"strings"
)

// Gate kinds as written in YAML and the feature_flag table.
const (
	KindBoolean     = "boolean"
	KindTargeted    = "targeted"
	KindEnvironment = "environment"
)

// ErrUnknownKind is returned for a definition whose kind is not one of the
// supported gate kinds.
var ErrUnknownKind = errors.New("unknown gate kind")

// Definition is one compiled flag.
type Definition struct {
	Name    string
	Gate    Gate
	Variant string
}

// Evaluate decides the flag for s.
func (d Definition) Evaluate(s Subject) Decision {
	on, reason := d.Gate.evaluate(d.Name, s)
	dec := Decision{Enabled: on, Reason: reason}
	if on {
		dec.Variant = d.Variant
	}
	return dec
}

// RawDefinition is the serialised form shared by the YAML file and the
// feature_flag table.
type RawDefinition struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	On           bool     `yaml:"on"`
	Percentage   float64  `yaml:"percentage"`
	Principals   []string `yaml:"principals"`
	Roles        []string `yaml:"roles"`
	Tenants      []string `yaml:"tenants"`
	Environments []string `yaml:"environments"`
	Rule         string   `yaml:"rule"`
	Variant      string   `yaml:"variant"`
}

// Build validates raw and compiles its gate.
func (raw RawDefinition) Build() (Definition, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return Definition{}, errors.New("flag name is required")
	}

	var g Gate
	switch strings.ToLower(raw.Kind) {
	case KindBoolean:
		g = BooleanGate{On: raw.On}

	case KindTargeted:
		if raw.Percentage < 0 || raw.Percentage > 100 {
			return Definition{}, fmt.Errorf("flag %s: percentage %v out of range", name, raw.Percentage)
		}
		tg := TargetedGate{
			Percentage: raw.Percentage,
			Principals: raw.Principals,
			Roles:      lower(raw.Roles),
			Tenants:    lower(raw.Tenants),
		}
		if strings.TrimSpace(raw.Rule) != "" {
			r, err := CompileRule(raw.Rule)
			if err != nil {
				return Definition{}, fmt.Errorf("flag %s: %w", name, err)
			}
			tg.Rule = r
		}
		g = tg

	case KindEnvironment:
		if len(raw.Environments) == 0 {
			return Definition{}, fmt.Errorf("flag %s: environment gate lists no environments", name)
		}
		g = EnvironmentGate{Environments: lower(raw.Environments)}

	default:
		return Definition{}, fmt.Errorf("flag %s: %w %q", name, ErrUnknownKind, raw.Kind)
	}

	return Definition{Name: name, Gate: g, Variant: raw.Variant}, nil
}

// BuildAll compiles a list, failing on the first bad entry.
func BuildAll(raws []RawDefinition) ([]Definition, error) {
	out := make([]Definition, 0, len(raws))
	for _, raw := range raws {
		d, err := raw.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func lower(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
