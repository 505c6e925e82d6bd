package domain

import "time"

// Reminder sources.
const (
	SourceUser     = "user"
	SourceImported = "imported"
)

// Reminder is a schedulable delivery instruction. IntervalMinutes nil means
// one-time; > 0 means recurring with that period. Rows are soft-deactivated,
// never deleted.
type Reminder struct {
	ID              string
	ChatID          string
	Name            string
	Content         string
	Active          bool
	IntervalMinutes *int64
	NextTriggerAt   *time.Time // UTC; nil when nothing further is scheduled
	LastTriggeredAt *time.Time
	Source          string // "user" or "imported"
	NotionPageID    string // external origin page id, import dedup
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Due reports whether the reminder should fire at or before now.
func (r *Reminder) Due(now time.Time) bool {
	return r.Active && r.NextTriggerAt != nil && !r.NextTriggerAt.After(now)
}

// Advance applies post-delivery scheduling to r, given the delivery instant.
// One-time reminders are consumed; recurring ones get their next trigger.
// Returns true when the stored interval was non-positive, which should be
// unreachable from the creation path but can appear if the row was edited
// out-of-band; such rows are deactivated.
func Advance(r *Reminder, now time.Time) (anomaly bool) {
	now = now.UTC()
	r.LastTriggeredAt = &now

	switch {
	case r.IntervalMinutes == nil:
		r.Active = false
		r.NextTriggerAt = nil
	case *r.IntervalMinutes > 0:
		next := now.Add(time.Duration(*r.IntervalMinutes) * time.Minute)
		r.NextTriggerAt = &next
	default:
		r.Active = false
		r.NextTriggerAt = nil
		anomaly = true
	}
	return anomaly
}
