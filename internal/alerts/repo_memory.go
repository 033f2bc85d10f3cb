package alerts

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests.
// It honors the same contract as PostgresRepo, including observed_at
// preservation, the unique disposition rule and all-or-nothing upserts.
//
// NOTE: This is not intended for production; use PostgresRepo.
type MemoryRepo struct {
	mu         sync.Mutex
	events     map[string]EventRecord
	management map[string]ManagementRecord

	// Err, when set, fails every call with ErrStoreUnavailable wrapping it.
	Err error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		events:     map[string]EventRecord{},
		management: map[string]ManagementRecord{},
	}
}

func (r *MemoryRepo) Upsert(ctx context.Context, records []EventRecord) (ReconcileOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return ReconcileOutcome{}, unavailable(r.Err)
	}

	batch, skipped := dedupeByEventID(records)
	out := classify(r.events, batch)
	out.Skipped = skipped

	for _, e := range batch {
		if old, ok := r.events[e.EventID]; ok {
			old.Acknowledged = e.Acknowledged
			old.Severity = e.Severity
			old.OperationalData = e.OperationalData
			old.Suppressed = e.Suppressed
			old.IngestedAt = e.IngestedAt
			r.events[e.EventID] = old
			continue
		}
		r.events[e.EventID] = e
	}
	return out, nil
}

func (r *MemoryRepo) ListUnmanaged(ctx context.Context) ([]EventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, unavailable(r.Err)
	}

	out := make([]EventRecord, 0, len(r.events))
	for id, e := range r.events {
		if _, ok := r.management[id]; ok {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Clock != out[j].Clock {
			return out[i].Clock > out[j].Clock
		}
		return out[i].EventID < out[j].EventID
	})
	return out, nil
}

func (r *MemoryRepo) InsertManagement(ctx context.Context, m ManagementRecord) (ManagementRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return ManagementRecord{}, unavailable(r.Err)
	}

	if _, ok := r.events[m.EventID]; !ok {
		return ManagementRecord{}, ErrEventNotFound
	}
	if _, ok := r.management[m.EventID]; ok {
		return ManagementRecord{}, ErrDuplicateManagement
	}
	r.management[m.EventID] = m
	return m, nil
}

func (r *MemoryRepo) CountByHour(ctx context.Context, day string) ([]HourlyCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, unavailable(r.Err)
	}

	type key struct {
		origin string
		hour   int
	}
	counts := map[key]int{}
	for _, e := range r.events {
		// ObservedAt is "YYYY-MM-DD HH:MM:SS".
		if len(e.ObservedAt) < 13 || !strings.HasPrefix(e.ObservedAt, day+" ") {
			continue
		}
		h := int(e.ObservedAt[11]-'0')*10 + int(e.ObservedAt[12]-'0')
		if h < 0 || h > 23 {
			continue
		}
		counts[key{e.Origin, h}]++
	}

	out := make([]HourlyCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, HourlyCount{Origin: k.origin, Hour: k.hour, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Origin != out[j].Origin {
			return out[i].Origin < out[j].Origin
		}
		return out[i].Hour < out[j].Hour
	})
	return out, nil
}

// Event returns the stored record for id.
func (r *MemoryRepo) Event(id string) (EventRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	return e, ok
}

// Len returns the number of stored event records.
func (r *MemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// SetErr switches failure injection on (non-nil) or off.
func (r *MemoryRepo) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Err = err
}
