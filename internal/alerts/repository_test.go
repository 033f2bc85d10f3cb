package alerts

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestBuildUpsert_PreservesObservedAt(t *testing.T) {
	q, args := buildUpsert([]EventRecord{event("1", 1, "2025-07-26 01:00:00"), event("2", 2, "2025-07-26 02:00:00")})

	if len(args) != 2*len(eventColumns) {
		t.Fatalf("expected %d args, got %d", 2*len(eventColumns), len(args))
	}
	if !strings.Contains(q, "$40)") || strings.Contains(q, "$41") {
		t.Fatalf("unexpected placeholders:\n%s", q)
	}
	if !strings.Contains(q, "$19::text::timestamp") || !strings.Contains(q, "$39::text::timestamp") {
		t.Fatalf("expected observed_at casts:\n%s", q)
	}

	_, update, ok := strings.Cut(q, "DO UPDATE SET")
	if !ok {
		t.Fatalf("expected ON CONFLICT update clause:\n%s", q)
	}
	for _, col := range []string{"acknowledged", "severity", "operational_data", "suppressed", "ingested_at"} {
		if !strings.Contains(update, col+" ") {
			t.Fatalf("expected %s in update list", col)
		}
	}
	for _, col := range []string{"observed_at", "name", "clock", "origin"} {
		if strings.Contains(update, col) {
			t.Fatalf("%s must not be updated on conflict", col)
		}
	}
}

func TestDedupeByEventID(t *testing.T) {
	in := []EventRecord{
		{EventID: "a", Severity: 1},
		{EventID: "b", Severity: 1},
		{EventID: "a", Severity: 3},
		{EventID: ""},
	}
	out, skipped := dedupeByEventID(in)
	if skipped != 1 {
		t.Fatalf("expected 1 skipped, got %d", skipped)
	}
	if len(out) != 2 || out[0].EventID != "a" || out[0].Severity != 3 || out[1].EventID != "b" {
		t.Fatalf("unexpected dedupe result: %+v", out)
	}
}

func TestClassify_UsesPreImage(t *testing.T) {
	pre := map[string]EventRecord{
		"1": {EventID: "1", Severity: 2},
		"2": {EventID: "2", Severity: 2, Acknowledged: false},
	}
	batch := []EventRecord{
		{EventID: "1", Severity: 2, Name: "renamed upstream"},
		{EventID: "2", Severity: 2, Acknowledged: true},
		{EventID: "3"},
	}
	out := classify(pre, batch)
	if out.Inserted != 1 || out.Updated != 1 || out.Unchanged != 1 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestClassifyInsertErr(t *testing.T) {
	if err := classifyInsertErr(&pgconn.PgError{Code: pgUniqueViolation}); !errors.Is(err, ErrDuplicateManagement) {
		t.Fatalf("expected ErrDuplicateManagement, got %v", err)
	}
	if err := classifyInsertErr(&pgconn.PgError{Code: pgForeignKeyViolation}); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	err := classifyInsertErr(errors.New("conn reset"))
	if !errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrDuplicateManagement) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
