package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"alert-integrator/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository is the persistence contract for event and management records.
//
// Both tables share one store. Every mutation is individually atomic:
// Upsert is one transaction, InsertManagement is one INSERT.
type Repository interface {
	Upsert(ctx context.Context, records []EventRecord) (ReconcileOutcome, error)
	ListUnmanaged(ctx context.Context) ([]EventRecord, error)
	InsertManagement(ctx context.Context, m ManagementRecord) (ManagementRecord, error)
	// CountByHour groups the events observed on day (YYYY-MM-DD) by origin and hour.
	CountByHour(ctx context.Context, day string) ([]HourlyCount, error)
}

// HourlyCount is one (origin, hour) bucket as returned by storage.
// Empty buckets are not returned; the service zero-fills.
type HourlyCount struct {
	Origin string
	Hour   int
	Count  int
}

// maxRowsPerStatement keeps each multi-row INSERT well under the
// 65535 bind-parameter limit (20 columns per row).
const maxRowsPerStatement = 1000

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var eventColumns = []string{
	"event_id", "source", "object", "object_id", "clock", "sequence",
	"resolution_event_id", "resolution_clock", "resolution_sequence",
	"correlation_id", "raised_by_user_id", "name", "acknowledged", "severity",
	"cause_event_id", "operational_data", "suppressed", "origin",
	"observed_at", "ingested_at",
}

// PostgresRepo implements Repository on Postgres through database/sql (pgx stdlib).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Upsert(ctx context.Context, records []EventRecord) (ReconcileOutcome, error) {
	batch, skipped := dedupeByEventID(records)
	if len(batch) == 0 {
		return ReconcileOutcome{Skipped: skipped}, nil
	}

	var out ReconcileOutcome
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		pre, err := lockExisting(ctx, tx, batch)
		if err != nil {
			return err
		}
		out = classify(pre, batch)
		out.Skipped = skipped

		for start := 0; start < len(batch); start += maxRowsPerStatement {
			end := min(start+maxRowsPerStatement, len(batch))
			q, args := buildUpsert(batch[start:end])
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ReconcileOutcome{}, unavailable(err)
	}
	return out, nil
}

// lockExisting reads the pre-image of every batch row that already exists
// and locks it until the transaction ends.
func lockExisting(ctx context.Context, tx *sql.Tx, batch []EventRecord) (map[string]EventRecord, error) {
	const q = `
SELECT event_id, acknowledged, severity, operational_data, suppressed
FROM event_records
WHERE event_id = ANY($1)
FOR UPDATE
`
	ids := make([]string, len(batch))
	for i, e := range batch {
		ids[i] = e.EventID
	}

	rows, err := tx.QueryContext(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pre := make(map[string]EventRecord, len(batch))
	for rows.Next() {
		var e EventRecord
		if err := rows.Scan(&e.EventID, &e.Acknowledged, &e.Severity, &e.OperationalData, &e.Suppressed); err != nil {
			return nil, err
		}
		pre[e.EventID] = e
	}
	return pre, rows.Err()
}

// buildUpsert renders one multi-row INSERT ... ON CONFLICT for page.
// observed_at is left out of the update list so it keeps its first value.
func buildUpsert(page []EventRecord) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO event_records (")
	b.WriteString(strings.Join(eventColumns, ", "))
	b.WriteString(")\nVALUES ")

	args := make([]any, 0, len(page)*len(eventColumns))
	for i, e := range page {
		if i > 0 {
			b.WriteString(",\n       ")
		}
		b.WriteString("(")
		for j := range eventColumns {
			if j > 0 {
				b.WriteString(",")
			}
			n := len(args) + j + 1
			if eventColumns[j] == "observed_at" {
				fmt.Fprintf(&b, "$%d::text::timestamp", n)
				continue
			}
			fmt.Fprintf(&b, "$%d", n)
		}
		b.WriteString(")")
		args = append(args,
			e.EventID, e.Source, e.Object, e.ObjectID, e.Clock, e.Sequence,
			e.ResolutionEventID, e.ResolutionClock, e.ResolutionSequence,
			e.CorrelationID, e.RaisedByUserID, e.Name, e.Acknowledged, e.Severity,
			e.CauseEventID, e.OperationalData, e.Suppressed, e.Origin,
			e.ObservedAt, e.IngestedAt,
		)
	}
	b.WriteString(`
ON CONFLICT (event_id) DO UPDATE SET
  acknowledged     = EXCLUDED.acknowledged,
  severity         = EXCLUDED.severity,
  operational_data = EXCLUDED.operational_data,
  suppressed       = EXCLUDED.suppressed,
  ingested_at      = EXCLUDED.ingested_at`)
	return b.String(), args
}

func (r *PostgresRepo) ListUnmanaged(ctx context.Context) ([]EventRecord, error) {
	const q = `
SELECT e.event_id, e.source, e.object, e.object_id, e.clock, e.sequence,
       e.resolution_event_id, e.resolution_clock, e.resolution_sequence,
       e.correlation_id, e.raised_by_user_id, e.name, e.acknowledged, e.severity,
       e.cause_event_id, e.operational_data, e.suppressed, e.origin,
       to_char(e.observed_at, 'YYYY-MM-DD HH24:MI:SS'), e.ingested_at
FROM event_records e
LEFT JOIN management_records m ON m.event_id = e.event_id
WHERE m.event_id IS NULL
ORDER BY e.clock DESC, e.event_id
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	out := make([]EventRecord, 0)
	for rows.Next() {
		var e EventRecord
		if err := rows.Scan(
			&e.EventID,
			&e.Source,
			&e.Object,
			&e.ObjectID,
			&e.Clock,
			&e.Sequence,
			&e.ResolutionEventID,
			&e.ResolutionClock,
			&e.ResolutionSequence,
			&e.CorrelationID,
			&e.RaisedByUserID,
			&e.Name,
			&e.Acknowledged,
			&e.Severity,
			&e.CauseEventID,
			&e.OperationalData,
			&e.Suppressed,
			&e.Origin,
			&e.ObservedAt,
			&e.IngestedAt,
		); err != nil {
			return nil, unavailable(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func (r *PostgresRepo) InsertManagement(ctx context.Context, m ManagementRecord) (ManagementRecord, error) {
	// A single INSERT: the UNIQUE(event_id) constraint decides races between
	// concurrent writers, the foreign key rejects unknown events.
	const q = `
INSERT INTO management_records (
  id, event_id, comment, responsible_party, impacted_client, impacted_system, acting_user_id, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
)
RETURNING created_at
`
	if err := r.db.QueryRowContext(ctx, q,
		m.ID,
		m.EventID,
		m.Comment,
		m.ResponsibleParty,
		m.ImpactedClient,
		m.ImpactedSystem,
		m.ActingUserID,
		m.CreatedAt,
	).Scan(&m.CreatedAt); err != nil {
		return ManagementRecord{}, classifyInsertErr(err)
	}
	return m, nil
}

func classifyInsertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicateManagement
		case pgForeignKeyViolation:
			return ErrEventNotFound
		}
	}
	return unavailable(err)
}

func (r *PostgresRepo) CountByHour(ctx context.Context, day string) ([]HourlyCount, error) {
	const q = `
SELECT origin, EXTRACT(HOUR FROM observed_at)::int AS hour, COUNT(*)
FROM event_records
WHERE observed_at >= $1::text::date
  AND observed_at <  $1::text::date + 1
GROUP BY origin, hour
ORDER BY origin, hour
`
	rows, err := r.db.QueryContext(ctx, q, day)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	out := make([]HourlyCount, 0)
	for rows.Next() {
		var c HourlyCount
		if err := rows.Scan(&c.Origin, &c.Hour, &c.Count); err != nil {
			return nil, unavailable(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

// dedupeByEventID keeps the last occurrence of each event id, in first-seen
// order. Postgres refuses to touch the same row twice in one statement.
// Records without an event id cannot be keyed; they are counted as skipped.
func dedupeByEventID(records []EventRecord) ([]EventRecord, int) {
	idx := make(map[string]int, len(records))
	out := make([]EventRecord, 0, len(records))
	skipped := 0
	for _, e := range records {
		if e.EventID == "" {
			skipped++
			continue
		}
		if i, ok := idx[e.EventID]; ok {
			out[i] = e
			continue
		}
		idx[e.EventID] = len(out)
		out = append(out, e)
	}
	return out, skipped
}

// classify splits a deduplicated batch into inserted, updated and unchanged
// rows against the pre-image read inside the same transaction.
func classify(pre map[string]EventRecord, batch []EventRecord) ReconcileOutcome {
	var out ReconcileOutcome
	for _, e := range batch {
		old, ok := pre[e.EventID]
		switch {
		case !ok:
			out.Inserted++
		case old.sameMutable(e):
			out.Unchanged++
		default:
			out.Updated++
		}
	}
	return out
}
