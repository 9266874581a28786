package models

import "time"

// Wall-clock layouts used in scan rows. Timestamps are recorded as local
// ISO strings at the station that produced them, not normalized to UTC.
const (
	TimeLayout = "2006-01-02T15:04:05"
	DateLayout = "2006-01-02"
)

// LocalISO formats t as a local wall-clock ISO string.
func LocalISO(t time.Time) string {
	return t.Format(TimeLayout)
}

// LocalDate formats t as a local calendar day.
func LocalDate(t time.Time) string {
	return t.Format(DateLayout)
}
