// internal/flags/sqlsource.go
//
// feature_flag table source.
//
// Context
// -------
// Operators toggle flags per tenant without a deploy by writing rows to
// the control-plane **feature_flag** table.  Rows with an empty tenant_id
// are global; all others override the named tenant.
//
// Schema reference (2026-03-02)
//
//	CREATE TABLE feature_flag (
//	    name          VARCHAR(128)  NOT NULL,
//	    tenant_id     VARCHAR(64)   NOT NULL DEFAULT '',
//	    kind          VARCHAR(16)   NOT NULL,
//	    enabled       TINYINT(1)    NOT NULL DEFAULT 0,
//	    percentage    DECIMAL(5,2)  NOT NULL DEFAULT 0,
//	    principals    TEXT          NOT NULL,
//	    roles         VARCHAR(256)  NOT NULL DEFAULT '',
//	    tenants       VARCHAR(1024) NOT NULL DEFAULT '',
//	    environments  VARCHAR(256)  NOT NULL DEFAULT '',
//	    rule          TEXT          NOT NULL,
//	    variant       VARCHAR(64)   NOT NULL DEFAULT '',
//	    archived_at   TIMESTAMP NULL,
//	    PRIMARY KEY (name, tenant_id)
//	);
//
// Notes
// -----
// • List columns are comma-separated.
// • A row that fails to compile is skipped and logged; one bad override
//   must not take every flag down with it.
// • A missing table (not yet migrated) reads as "no rows".
package flags

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/logger"
)

// mysqlNoSuchTable is ER_NO_SUCH_TABLE.
const mysqlNoSuchTable = 1146

type flagRow struct {
	Name         string  `db:"name"`
	Kind         string  `db:"kind"`
	Enabled      bool    `db:"enabled"`
	Percentage   float64 `db:"percentage"`
	Principals   string  `db:"principals"`
	Roles        string  `db:"roles"`
	Tenants      string  `db:"tenants"`
	Environments string  `db:"environments"`
	Rule         string  `db:"rule"`
	Variant      string  `db:"variant"`
}

func (r flagRow) raw() RawDefinition {
	return RawDefinition{
		Name:         r.Name,
		Kind:         r.Kind,
		On:           r.Enabled,
		Percentage:   r.Percentage,
		Principals:   splitList(r.Principals),
		Roles:        splitList(r.Roles),
		Tenants:      splitList(r.Tenants),
		Environments: splitList(r.Environments),
		Rule:         r.Rule,
		Variant:      r.Variant,
	}
}

// SQLSource reads definitions from the feature_flag table.
type SQLSource struct {
	db  *sqlx.DB
	log *zap.Logger
}

var _ Source = (*SQLSource)(nil)

// NewSQLSource returns a source over the control-plane pool.
func NewSQLSource(db *sqlx.DB, log *zap.Logger) *SQLSource {
	return &SQLSource{db: db, log: logger.Or(log)}
}

// Load implements Source.
func (s *SQLSource) Load(ctx context.Context, tenantID string) ([]Definition, error) {
	const q = `
        SELECT name, kind, enabled, percentage, principals, roles, tenants,
               environments, rule, variant
        FROM   feature_flag
        WHERE  tenant_id = ?
          AND  archived_at IS NULL
        ORDER  BY name`

	var rows []flagRow
	if err := s.db.SelectContext(ctx, &rows, q, strings.ToLower(tenantID)); err != nil {
		if isUnknownTable(err) {
			return nil, nil
		}
		return nil, err
	}

	defs := make([]Definition, 0, len(rows))
	for _, row := range rows {
		d, err := row.raw().Build()
		if err != nil {
			s.log.Warn("skipping invalid feature_flag row",
				zap.String("flag", row.Name),
				zap.String("tenant", tenantID),
				zap.Error(err))
			continue
		}
		defs = append(defs, d)
	}
	return defs, nil
}

func isUnknownTable(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlNoSuchTable
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
