// internal/flags/rule.go
//
// CEL segment rules.
//
// Context
// -------
// A targeted gate may carry a CEL expression that must evaluate to a bool.
// The expression sees:
//
//	principal.id    principal.role    principal.anonymous
//	tenant.id       environment
//
// Compiled programs are cached by expression text, so periodic reloads of
// tenant overrides do not recompile unchanged rules.
//
// Notes
// -----
// • Evaluation is bounded by a CEL cost limit.
// • Oxford commas, two spaces after periods.
package flags

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/yanizio/storefront/internal/cache"
)

const (
	ruleCacheSize = 512
	ruleCostLimit = 10_000
)

var (
	celOnce sync.Once
	celEnv  *cel.Env
	celErr  error

	programs = cache.New[string, cel.Program](ruleCacheSize)
)

func ruleEnv() (*cel.Env, error) {
	celOnce.Do(func() {
		celEnv, celErr = cel.NewEnv(
			cel.Variable("principal", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("tenant", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("environment", cel.StringType),
		)
	})
	return celEnv, celErr
}

// Rule is a compiled segment expression.
type Rule struct {
	expr string
	prg  cel.Program
}

// CompileRule parses and type-checks expr.  The result type must be bool.
func CompileRule(expr string) (*Rule, error) {
	if prg, ok := programs.Get(expr); ok {
		return &Rule{expr: expr, prg: prg}, nil
	}

	env, err := ruleEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile rule %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("rule %q must return bool, got %s", expr, ast.OutputType())
	}
	prg, err := env.Program(ast, cel.CostLimit(ruleCostLimit))
	if err != nil {
		return nil, fmt.Errorf("program rule %q: %w", expr, err)
	}
	programs.Add(expr, prg)
	return &Rule{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (r *Rule) String() string { return r.expr }

// Match evaluates the rule for s.
func (r *Rule) Match(s Subject) (bool, error) {
	out, _, err := r.prg.Eval(map[string]any{
		"principal": map[string]any{
			"id":        s.PrincipalID,
			"role":      s.Role,
			"anonymous": s.Anonymous,
		},
		"tenant":      map[string]any{"id": s.TenantID},
		"environment": s.Environment,
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q returned %T", r.expr, out.Value())
	}
	return b, nil
}
