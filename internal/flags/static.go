// internal/flags/static.go
//
// Process-wide base definitions.
//
// Context
// -------
// Static holds the flags shipped with the deployment, normally read from
// `conf/flags.yaml` at startup:
//
//	flags:
//	  - name: betaCheckout
//	    kind: targeted
//	    percentage: 10
//	overrides:
//	  acme:
//	    - name: betaCheckout
//	      kind: boolean
//	      on: true
//
// Init runs once; later calls are ignored, so the set is immutable for
// the life of the process.
//
// Notes
// -----
// • Any bad entry fails the whole file; startup should not continue with
//   half a flag set.
// • Oxford commas, two spaces after periods.
package flags

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Static is an init-once Source.
type Static struct {
	once    sync.Once
	global  []Definition
	tenants map[string][]Definition
}

var _ Source = (*Static)(nil)

// Init sets the definitions.  Only the first call has any effect.
func (s *Static) Init(global []Definition, tenants map[string][]Definition) {
	s.once.Do(func() {
		s.global = global
		s.tenants = make(map[string][]Definition, len(tenants))
		for id, defs := range tenants {
			s.tenants[strings.ToLower(id)] = defs
		}
	})
}

// Load implements Source.
func (s *Static) Load(_ context.Context, tenantID string) ([]Definition, error) {
	if tenantID == "" {
		return s.global, nil
	}
	return s.tenants[strings.ToLower(tenantID)], nil
}

// Tenants lists the tenant ids that carry overrides, sorted.
func (s *Static) Tenants() []string {
	out := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// fileDoc is the YAML layout of a flags file.
type fileDoc struct {
	Flags     []RawDefinition            `yaml:"flags"`
	Overrides map[string][]RawDefinition `yaml:"overrides"`
}

// ParseFile decodes and compiles a flags document.
func ParseFile(data []byte) (*Static, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode flags: %w", err)
	}
	global, err := BuildAll(doc.Flags)
	if err != nil {
		return nil, err
	}
	tenants := make(map[string][]Definition, len(doc.Overrides))
	for id, raws := range doc.Overrides {
		defs, err := BuildAll(raws)
		if err != nil {
			return nil, fmt.Errorf("overrides for %s: %w", id, err)
		}
		tenants[id] = defs
	}
	s := &Static{}
	s.Init(global, tenants)
	return s, nil
}

// LoadFile reads path and returns its definitions.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flags file: %w", err)
	}
	return ParseFile(data)
}
