package alerts

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied idempotently at startup.
//
// - management_records.event_id is UNIQUE: at most one disposition per event.
// - the foreign key makes a disposition for an unknown event fail cleanly.
// - observed_at is a local wall-clock TIMESTAMP in the ingest time zone.
const schema = `
CREATE TABLE IF NOT EXISTS event_records (
  event_id            TEXT PRIMARY KEY,
  source              INTEGER     NOT NULL DEFAULT 0,
  object              INTEGER     NOT NULL DEFAULT 0,
  object_id           TEXT        NOT NULL DEFAULT '',
  clock               BIGINT      NOT NULL DEFAULT 0,
  sequence            BIGINT      NOT NULL DEFAULT 0,
  resolution_event_id TEXT        NOT NULL DEFAULT '',
  resolution_clock    BIGINT      NOT NULL DEFAULT 0,
  resolution_sequence BIGINT      NOT NULL DEFAULT 0,
  correlation_id      TEXT        NOT NULL DEFAULT '',
  raised_by_user_id   TEXT        NOT NULL DEFAULT '',
  name                TEXT        NOT NULL DEFAULT '',
  acknowledged        BOOLEAN     NOT NULL DEFAULT FALSE,
  severity            SMALLINT    NOT NULL DEFAULT 0,
  cause_event_id      TEXT        NOT NULL DEFAULT '',
  operational_data    TEXT        NOT NULL DEFAULT '',
  suppressed          BOOLEAN     NOT NULL DEFAULT FALSE,
  origin              TEXT        NOT NULL DEFAULT '',
  observed_at         TIMESTAMP   NOT NULL,
  ingested_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS event_records_observed_at_idx ON event_records (observed_at);

CREATE TABLE IF NOT EXISTS management_records (
  id                UUID PRIMARY KEY,
  event_id          TEXT        NOT NULL UNIQUE REFERENCES event_records (event_id),
  comment           TEXT        NOT NULL DEFAULT '',
  responsible_party TEXT        NOT NULL DEFAULT '',
  impacted_client   TEXT        NOT NULL DEFAULT '',
  impacted_system   TEXT        NOT NULL DEFAULT '',
  acting_user_id    TEXT        NOT NULL,
  created_at        TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the alert tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("alerts schema: %w", err)
	}
	return nil
}
