package alerts

import (
	"context"
	"errors"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrInvalidDate
	}
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		return "", ErrInvalidDate
	}
	return d.Format(dateLayout), nil
}

// HourlyCounts buckets the events observed on date by origin and hour of day.
// Every returned series has 24 entries; empty hours are 0.
func (s *Service) HourlyCounts(ctx context.Context, date string) (map[string]HourlySeries, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if s.repo == nil {
		return nil, unavailable(errors.New("repository not configured"))
	}

	rows, err := s.repo.CountByHour(ctx, day)
	if err != nil {
		return nil, err
	}
	return fillSeries(rows, s.origins), nil
}

func fillSeries(rows []HourlyCount, origins []string) map[string]HourlySeries {
	out := make(map[string]HourlySeries, len(origins))
	for _, o := range origins {
		out[o] = HourlySeries{}
	}
	for _, r := range rows {
		if r.Hour < 0 || r.Hour > 23 || r.Count <= 0 {
			continue
		}
		series := out[r.Origin]
		series[r.Hour] += r.Count
		out[r.Origin] = series
	}
	return out
}
