// internal/acl/store.go
//
// Small query helpers for Role-Based Access Control.
//
// Context
// -------
// Roles are carried by the principal (identity.Role), so the ACL only
// has to answer one question: may role R perform component/action on
// tenant T?  Rules live in the control-plane database:
//
//	role_acl (site_id, role, component, action, permitted)
//
// A row with site_id 0 is the default for every tenant.  A row for the
// tenant's own site_id overrides it.  No row at all means "denied".
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
// • Max line length 100 columns.
package acl

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Store answers permission checks.
type Store interface {
	Allowed(ctx context.Context, siteID uint64, role, component, action string) (bool, error)
}

// SQLStore reads role_acl.
type SQLStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore returns a store over the control-plane pool.
func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

// Allowed reports whether role may perform component/action on siteID.
// The tenant-specific row wins over the global default.
func (s *SQLStore) Allowed(ctx context.Context, siteID uint64, role, component, action string) (bool, error) {
	const q = `SELECT permitted
                 FROM role_acl
                WHERE role = ? AND component = ? AND action = ?
                  AND site_id IN (0, ?)
             ORDER BY site_id DESC
                LIMIT 1`

	var permitted bool
	err := s.db.GetContext(ctx, &permitted, q, role, component, action, siteID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return permitted, nil
}
