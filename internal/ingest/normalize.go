package ingest

import (
	"strconv"
	"strings"
	"time"

	"alert-integrator/internal/alerts"
	"alert-integrator/internal/zabbix"
)

// Normalizer turns raw Zabbix problems into event records. It performs no I/O.
//
// Absent or unparseable upstream values become the zero value of the target
// field; an entry is never dropped here.
type Normalizer struct {
	loc    *time.Location
	origin string
	now    func() time.Time
}

func NewNormalizer(loc *time.Location, origin string) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc, origin: origin, now: time.Now}
}

func (n *Normalizer) Normalize(p zabbix.Problem) alerts.EventRecord {
	clock := parseInt64(p.Clock)
	return alerts.EventRecord{
		EventID:            strings.TrimSpace(p.EventID),
		Source:             int(parseInt64(p.Source)),
		Object:             int(parseInt64(p.Object)),
		ObjectID:           p.ObjectID,
		Clock:              clock,
		Sequence:           parseInt64(p.NS),
		ResolutionEventID:  zeroIDToEmpty(p.REventID),
		ResolutionClock:    parseInt64(p.RClock),
		ResolutionSequence: parseInt64(p.RNS),
		CorrelationID:      zeroIDToEmpty(p.CorrelationID),
		RaisedByUserID:     zeroIDToEmpty(p.UserID),
		Name:               p.Name,
		Acknowledged:       parseFlag(p.Acknowledged),
		Severity:           int(parseInt64(p.Severity)),
		CauseEventID:       zeroIDToEmpty(p.CauseEventID),
		OperationalData:    p.OpData,
		Suppressed:         parseFlag(p.Suppressed),
		Origin:             n.origin,
		ObservedAt:         time.Unix(clock, 0).In(n.loc).Format(alerts.ObservedAtLayout),
		IngestedAt:         n.now().UTC(),
	}
}

// NormalizeAll keeps upstream order.
func (n *Normalizer) NormalizeAll(problems []zabbix.Problem) []alerts.EventRecord {
	out := make([]alerts.EventRecord, 0, len(problems))
	for _, p := range problems {
		out = append(out, n.Normalize(p))
	}
	return out
}

func parseInt64(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseFlag(v string) bool {
	return parseInt64(v) != 0
}

// zeroIDToEmpty maps Zabbix's "0" placeholder for "no reference" to empty.
func zeroIDToEmpty(v string) string {
	v = strings.TrimSpace(v)
	if v == "0" {
		return ""
	}
	return v
}
