package alerts

import "time"

// ObservedAtLayout is the wire and storage format of EventRecord.ObservedAt.
const ObservedAtLayout = "2006-01-02 15:04:05"

// EventRecord is one upstream alert, keyed by EventID.
//
// Invariants:
// - EventID is immutable and unique; re-ingestion updates the row in place.
// - ObservedAt is set on first insert only.
// - IngestedAt moves on every reconciliation touch.
type EventRecord struct {
	EventID string `json:"event_id" db:"event_id"`

	Source             int    `json:"source" db:"source"`
	Object             int    `json:"object" db:"object"`
	ObjectID           string `json:"object_id" db:"object_id"`
	Clock              int64  `json:"clock" db:"clock"`
	Sequence           int64  `json:"sequence" db:"sequence"`
	ResolutionEventID  string `json:"resolution_event_id" db:"resolution_event_id"`
	ResolutionClock    int64  `json:"resolution_clock" db:"resolution_clock"`
	ResolutionSequence int64  `json:"resolution_sequence" db:"resolution_sequence"`
	CorrelationID      string `json:"correlation_id" db:"correlation_id"`
	RaisedByUserID     string `json:"raised_by_user_id" db:"raised_by_user_id"`
	Name               string `json:"name" db:"name"`
	Acknowledged       bool   `json:"acknowledged" db:"acknowledged"`
	Severity           int    `json:"severity" db:"severity"`
	CauseEventID       string `json:"cause_event_id" db:"cause_event_id"`
	OperationalData    string `json:"operational_data" db:"operational_data"`
	Suppressed         bool   `json:"suppressed" db:"suppressed"`

	// Origin names the monitoring system the record came from (e.g. "Zabbix").
	Origin string `json:"origin" db:"origin"`

	// ObservedAt is Clock rendered in the ingest time zone, ObservedAtLayout.
	ObservedAt string    `json:"observed_at" db:"observed_at"`
	IngestedAt time.Time `json:"ingested_at" db:"ingested_at"`
}

// sameMutable reports whether the upstream-mutable fields match.
// These are the only fields an upsert rewrites besides IngestedAt.
func (e EventRecord) sameMutable(o EventRecord) bool {
	return e.Acknowledged == o.Acknowledged &&
		e.Severity == o.Severity &&
		e.OperationalData == o.OperationalData &&
		e.Suppressed == o.Suppressed
}

// ManagementRecord is the single human disposition of one event.
// It is created once and never updated or deleted.
type ManagementRecord struct {
	ID               string    `json:"id" db:"id"`
	EventID          string    `json:"event_id" db:"event_id"`
	Comment          string    `json:"comment" db:"comment"`
	ResponsibleParty string    `json:"responsible_party" db:"responsible_party"`
	ImpactedClient   string    `json:"impacted_client" db:"impacted_client"`
	ImpactedSystem   string    `json:"impacted_system" db:"impacted_system"`
	ActingUserID     string    `json:"acting_user_id" db:"acting_user_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// ManageRequest carries the disposition fields for Service.Manage.
type ManageRequest struct {
	EventID          string
	Comment          string
	ResponsibleParty string
	ImpactedClient   string
	ImpactedSystem   string
	ActingUserID     string
}

// ReconcileOutcome summarizes one Upsert batch.
// Classification compares each row's pre-image with the incoming values.
type ReconcileOutcome struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`

	// Skipped counts incoming records that had no event id.
	Skipped int `json:"skipped"`
}

// Touched is the number of rows the batch wrote.
func (o ReconcileOutcome) Touched() int { return o.Inserted + o.Updated + o.Unchanged }

// HourlySeries is a fixed 24-entry count series, index = hour of day.
type HourlySeries [24]int
