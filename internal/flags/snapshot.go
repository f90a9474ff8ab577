package flags

import (
	"encoding/json"
	"sort"
)

// Decision is the evaluated state of one flag.
type Decision struct {
	Enabled bool   `json:"enabled"`
	Variant string `json:"variant,omitempty"`
	Reason  string `json:"reason"`
}

// Snapshot holds every decision for one request.  It is built once by the
// Evaluator and never changes, so repeated reads agree.
type Snapshot struct {
	decisions map[string]Decision
	degraded  bool
}

// Enabled reports whether name is on.  Unknown flags are off.
func (s Snapshot) Enabled(name string) bool {
	return s.decisions[name].Enabled
}

// Decision returns the full decision for name.  Unknown flags return a
// disabled decision with reason "unknown", or "degraded" when the flag
// store was unavailable.
func (s Snapshot) Decision(name string) Decision {
	if d, ok := s.decisions[name]; ok {
		return d
	}
	if s.degraded {
		return Decision{Reason: ReasonDegraded}
	}
	return Decision{Reason: ReasonUnknown}
}

// Degraded is true when the snapshot fell back to all-off.
func (s Snapshot) Degraded() bool { return s.degraded }

// Names lists the evaluated flags in lexical order.
func (s Snapshot) Names() []string {
	out := make([]string, 0, len(s.decisions))
	for n := range s.decisions {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON renders the decisions for debug endpoints.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Degraded  bool                `json:"degraded"`
		Decisions map[string]Decision `json:"decisions"`
	}{s.degraded, s.decisions})
}
