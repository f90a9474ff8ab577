package flags

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/tenant"
)

const flagsYAML = `
flags:
  - name: betaCheckout
    kind: targeted
    percentage: 10
  - name: newNav
    kind: boolean
    on: true
  - name: debugToolbar
    kind: environment
    environments: [development, staging]
  - name: adminReports
    kind: targeted
    percentage: 100
    roles: [admin]
overrides:
  acme:
    - name: betaCheckout
      kind: boolean
      on: true
      variant: v2
`

type failingStore struct{}

func (failingStore) Definitions(context.Context, string) (map[string]Definition, error) {
	return nil, errors.New("connection refused")
}

func newStatic(t *testing.T) *Static {
	t.Helper()
	s, err := ParseFile([]byte(flagsYAML))
	require.NoError(t, err)
	return s
}

func TestEvaluator_Snapshot(t *testing.T) {
	ev := NewEvaluator(Layered{Layers: []Source{newStatic(t)}}, "staging", nil)
	admin := identity.Principal{ID: "a-1", Role: identity.RoleAdmin, Method: identity.MethodToken}

	snap := ev.Snapshot(context.Background(), admin, &tenant.Tenant{ID: "globex"})
	assert.False(t, snap.Degraded())
	assert.True(t, snap.Enabled("newNav"))
	assert.True(t, snap.Enabled("debugToolbar"))
	assert.True(t, snap.Enabled("adminReports"))
	assert.Equal(t, []string{"adminReports", "betaCheckout", "debugToolbar", "newNav"}, snap.Names())
}

func TestEvaluator_TenantOverride(t *testing.T) {
	ev := NewEvaluator(Layered{Layers: []Source{newStatic(t)}}, "production", nil)
	p := identity.Principal{ID: "u-1", Role: identity.RoleCustomer, Method: identity.MethodSession}

	snap := ev.Snapshot(context.Background(), p, &tenant.Tenant{ID: "acme"})
	assert.Equal(t, Decision{Enabled: true, Variant: "v2", Reason: ReasonOn}, snap.Decision("betaCheckout"))
	assert.False(t, snap.Enabled("debugToolbar"))
}

func TestEvaluator_UnknownFlagIsOff(t *testing.T) {
	ev := NewEvaluator(Layered{Layers: []Source{newStatic(t)}}, "production", nil)

	snap := ev.Snapshot(context.Background(), identity.Anonymous(), nil)
	assert.False(t, snap.Enabled("doesNotExist"))
	assert.Equal(t, Decision{Reason: ReasonUnknown}, snap.Decision("doesNotExist"))
}

func TestEvaluator_ReadsAreStable(t *testing.T) {
	ev := NewEvaluator(Layered{Layers: []Source{newStatic(t)}}, "production", nil)
	p := identity.Principal{ID: "u-77", Role: identity.RoleCustomer, Method: identity.MethodToken}

	snap := ev.Snapshot(context.Background(), p, &tenant.Tenant{ID: "globex"})
	first := snap.Decision("betaCheckout")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, snap.Decision("betaCheckout"))
	}
}

func TestEvaluator_StoreFailureDegrades(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ev := NewEvaluator(failingStore{}, "production", zap.New(core))

	snap := ev.Snapshot(context.Background(), identity.Anonymous(), nil)
	assert.True(t, snap.Degraded())
	assert.False(t, snap.Enabled("newNav"))
	assert.Equal(t, ReasonDegraded, snap.Decision("newNav").Reason)
	assert.Equal(t, 1, logs.FilterMessage("FlagEvaluationFailed").Len())
}

func TestSnapshot_MarshalJSON(t *testing.T) {
	ev := NewEvaluator(Layered{Layers: []Source{newStatic(t)}}, "production", nil)
	snap := ev.Snapshot(context.Background(), identity.Anonymous(), nil)

	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	var out struct {
		Degraded  bool                `json:"degraded"`
		Decisions map[string]Decision `json:"decisions"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.Decisions["newNav"].Enabled)
	assert.Equal(t, ReasonAnonymous, out.Decisions["betaCheckout"].Reason)
}

func TestLayered_TenantBeatsGlobal(t *testing.T) {
	base := &Static{}
	base.Init([]Definition{{Name: "f", Gate: BooleanGate{On: false}}}, nil)
	over := &Static{}
	over.Init(
		[]Definition{{Name: "g", Gate: BooleanGate{On: true}}},
		map[string][]Definition{"ACME": {{Name: "f", Gate: BooleanGate{On: true}}}},
	)

	defs, err := Layered{Layers: []Source{base, over}}.Definitions(context.Background(), "acme")
	require.NoError(t, err)
	assert.Len(t, defs, 2)
	on, _ := defs["f"].Gate.evaluate("f", Subject{})
	assert.True(t, on)
}

func TestStatic_InitOnce(t *testing.T) {
	s := &Static{}
	s.Init([]Definition{{Name: "a", Gate: BooleanGate{}}}, nil)
	s.Init([]Definition{{Name: "b", Gate: BooleanGate{}}}, nil)

	defs, err := s.Load(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "a", defs[0].Name)
}

func TestParseFile_RejectsUnknownKind(t *testing.T) {
	_, err := ParseFile([]byte("flags:\n  - name: x\n    kind: lottery\n"))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = ParseFile([]byte("overrides:\n  acme:\n    - name: x\n      kind: lottery\n"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.yaml")
	require.NoError(t, os.WriteFile(path, []byte(flagsYAML), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	defs, err := s.Load(context.Background(), "acme")
	require.NoError(t, err)
	assert.Len(t, defs, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
