package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on every start; each statement is idempotent.
// Roles are not stored: an account row carries its role name and the
// permission table lives in code.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS families (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		name       VARCHAR(120) NOT NULL,
		code       VARCHAR(16)  NOT NULL,
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_families_code (code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id                 CHAR(36)     NOT NULL PRIMARY KEY,
		name               VARCHAR(120) NOT NULL,
		email              VARCHAR(254) NOT NULL,
		family_id          CHAR(36)     NULL,
		role               VARCHAR(16)  NOT NULL,
		is_premium         BOOLEAN      NOT NULL DEFAULT FALSE,
		is_active          BOOLEAN      NOT NULL DEFAULT TRUE,
		email_verified     BOOLEAN      NOT NULL DEFAULT FALSE,
		refresh_token_hash CHAR(64)     NULL,
		created_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_accounts_email (email),
		KEY idx_accounts_family (family_id),
		KEY idx_accounts_refresh (refresh_token_hash)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS family_members (
		family_id  CHAR(36) NOT NULL,
		account_id CHAR(36) NOT NULL,
		joined_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (family_id, account_id),
		CONSTRAINT fk_members_family FOREIGN KEY (family_id) REFERENCES families (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS pending_verifications (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		email      VARCHAR(254) NOT NULL,
		name       VARCHAR(120) NOT NULL,
		code_hash  VARCHAR(72)  NOT NULL,
		expires_at DATETIME     NOT NULL,
		purpose    VARCHAR(16)  NOT NULL,
		family_id  CHAR(36)     NULL,
		role       VARCHAR(16)  NULL,
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_verifications_email (email),
		KEY idx_verifications_expiry (expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
