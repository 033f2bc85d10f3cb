package audit

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
  id            UUID PRIMARY KEY,
  type          TEXT        NOT NULL,
  actor_user_id TEXT        NOT NULL,
  actor_role    TEXT        NOT NULL DEFAULT '',
  ip_address    TEXT        NOT NULL DEFAULT '',
  event_id      TEXT        NOT NULL DEFAULT '',
  management_id TEXT        NOT NULL DEFAULT '',
  message       TEXT        NOT NULL DEFAULT '',
  metadata      TEXT        NOT NULL DEFAULT '',
  created_at    TIMESTAMPTZ NOT NULL
);
`

// PostgresRepo appends to audit_events. INSERT only.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// EnsureSchema creates the audit table if it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("audit schema: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, actor_user_id, actor_role, ip_address, event_id, management_id, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Type),
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.EventID,
		e.ManagementID,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
