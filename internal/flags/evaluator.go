// internal/flags/evaluator.go
//
// Snapshot evaluation.
//
// Context
// -------
// The evaluator asks the Store for the tenant's effective definitions and
// decides every flag for the principal in one pass.  It never returns an
// error: when the store fails the request proceeds with a degraded
// snapshot in which every flag is off.
package flags

import (
	"context"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/identity"
	"github.com/yanizio/storefront/internal/logger"
	"github.com/yanizio/storefront/internal/metrics"
	"github.com/yanizio/storefront/internal/tenant"
)

// Evaluator is safe for concurrent use.
type Evaluator struct {
	store       Store
	environment string
	log         *zap.Logger
}

// NewEvaluator returns an evaluator for the given deployment environment.
func NewEvaluator(store Store, environment string, log *zap.Logger) *Evaluator {
	return &Evaluator{store: store, environment: environment, log: logger.Or(log)}
}

// SubjectFor builds the gate input for a principal and optional tenant.
func SubjectFor(p identity.Principal, t *tenant.Tenant, environment string) Subject {
	s := Subject{
		PrincipalID: p.ID,
		Role:        string(p.Role),
		Anonymous:   p.IsAnonymous(),
		Environment: environment,
	}
	if t != nil {
		s.TenantID = t.ID
	}
	return s
}

// Snapshot evaluates every flag for p within t.  t may be nil.
func (e *Evaluator) Snapshot(ctx context.Context, p identity.Principal, t *tenant.Tenant) Snapshot {
	subj := SubjectFor(p, t, e.environment)

	defs, err := e.store.Definitions(ctx, subj.TenantID)
	if err != nil {
		metrics.FlagStoreFailuresTotal.Inc()
		e.log.Warn("FlagEvaluationFailed",
			zap.String("tenant", subj.TenantID),
			zap.Error(err))
		return Snapshot{decisions: map[string]Decision{}, degraded: true}
	}

	out := make(map[string]Decision, len(defs))
	for name, d := range defs {
		out[name] = d.Evaluate(subj)
	}
	return Snapshot{decisions: out}
}
