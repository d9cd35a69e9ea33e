package postgres

import (
	"context"
	"fmt"

	"github.com/exemee/Laba8-server/internal/logger"
)

// migrations are applied in order at startup. Statements must stay
// idempotent so a restart against an existing schema is a no-op.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		login         TEXT PRIMARY KEY,
		password_hash BYTEA NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS study_groups (
		id                BIGSERIAL PRIMARY KEY,
		name              TEXT NOT NULL,
		coord_x           DOUBLE PRECISION NOT NULL,
		coord_y           BIGINT NOT NULL,
		creation_date     TIMESTAMPTZ NOT NULL,
		students_count    BIGINT NOT NULL,
		form_of_education TEXT NOT NULL,
		semester          TEXT NOT NULL,
		admin_name        TEXT NOT NULL,
		admin_weight      DOUBLE PRECISION NOT NULL,
		admin_eye_color   TEXT NOT NULL,
		admin_hair_color  TEXT NOT NULL,
		admin_nationality TEXT NOT NULL,
		owner_login       TEXT NOT NULL REFERENCES users(login)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_study_groups_owner ON study_groups (owner_login)`,
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	logger.Debug("Applied %d schema migrations", len(migrations))
	return nil
}
