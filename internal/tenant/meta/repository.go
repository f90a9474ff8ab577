// internal/tenant/meta/repository.go
//
// Site-table query helpers.
//
// Context
// -------
// Read-only access to the **site** table:
//
//   - `AllActive` – tenant directory bootstrap and admin tooling.
//   - `BySlug`    – single-row lookups for CLI and ops scripts.
//
// Both helpers exclude suspended or deleted rows at SQL level to keep
// callers simple.
//
// Notes
// -----
//   - Column list matches the fields in `Record`; update both together.
//   - Errors are returned verbatim so the caller can wrap or log them.
//   - Oxford commas, two spaces after periods, no m-dash.
package meta

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const columns = `id, slug, host, title, locale, suspended_at, deleted_at,
               created_at, updated_at`

// AllActive returns every site that is neither suspended nor deleted,
// ordered by id so directory builds are deterministic.
func AllActive(ctx context.Context, db *sqlx.DB) ([]Record, error) {
	const q = `
        SELECT ` + columns + `
        FROM   site
        WHERE  suspended_at IS NULL
          AND  deleted_at   IS NULL
        ORDER  BY id`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// BySlug fetches a single active site row.
func BySlug(ctx context.Context, db *sqlx.DB, slug string) (*Record, error) {
	const q = `
        SELECT ` + columns + `
        FROM   site
        WHERE  slug = ?
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, slug); err != nil {
		return nil, err
	}
	return &rec, nil
}
