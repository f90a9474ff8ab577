// internal/tenant/meta/model.go
//
// `site` table row model.
//
// Context
// -------
// The `Record` struct mirrors one row in the control-plane **site** table.
// Each row is one storefront tenant.  The tenant directory loads every
// active row once at startup and indexes it by slug and by host.
//
// Schema reference (2026-03-02)
//
//	CREATE TABLE site (
//	    id            INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    slug          VARCHAR(64)   NOT NULL UNIQUE,
//	    host          VARCHAR(256)  NOT NULL UNIQUE,
//	    title         VARCHAR(256)  NOT NULL DEFAULT '',
//	    locale        VARCHAR(16)   NOT NULL DEFAULT 'en_US',
//	    suspended_at  TIMESTAMP NULL,
//	    deleted_at    TIMESTAMP NULL,
//	    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
// Notes
// -----
// • `Slug` is the public tenant id carried by headers and tokens.
// • Nullable timestamps are `*time.Time`; callers must nil-check before use.
// • This struct contains no behaviour, pure data model for sqlx scans.
package meta

import "time"

// Record mirrors one row in the `site` table.
type Record struct {
	ID          uint64     `db:"id"`
	Slug        string     `db:"slug"`
	Host        string     `db:"host"`
	Title       string     `db:"title"`
	Locale      string     `db:"locale"`
	SuspendedAt *time.Time `db:"suspended_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}
