package audit

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const insertEvent = `
INSERT INTO audit_events (id, type, actor_user_id, actor_role, wallet_id, message, metadata, created_at)
VALUES (:id, :type, :actor_user_id, :actor_role, CAST(NULLIF(:wallet_id, '') AS uuid), :message, CAST(NULLIF(:metadata, '') AS jsonb), :created_at)`

// PostgresRepo appends to audit_events. The table grants INSERT only.
// Casts use CAST(...) since sqlx reads "::" as an escaped colon.
type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	if _, err := r.db.NamedExecContext(ctx, insertEvent, e); err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	return nil
}
