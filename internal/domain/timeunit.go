package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidAmount is returned by ComputeSchedule for non-positive inputs.
var ErrInvalidAmount = errors.New("amount must be positive")

// Minutes per canonical unit.
const (
	MinutesPerMinute int64 = 1
	MinutesPerHour   int64 = 60
	MinutesPerDay    int64 = 60 * 24
)

// ParseUnit converts a user-supplied time unit into a minutes multiplier and
// a canonical unit name. Matching is case-insensitive over a fixed synonym
// table; anything else yields ok=false.
func ParseUnit(text string) (perUnit int64, canonical string, ok bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "m", "min", "mins", "minute", "minutes":
		return MinutesPerMinute, "minutes", true
	case "h", "hr", "hrs", "hour", "hours":
		return MinutesPerHour, "hours", true
	case "d", "day", "days":
		return MinutesPerDay, "days", true
	}
	return 0, "", false
}

// ComputeSchedule turns (amount, minutes-per-unit, recurring) into the
// stored schedule: interval minutes (nil for one-time) and the absolute next
// trigger instant. All arithmetic is in UTC; user timezones are for display
// only, so recurrence math never crosses a DST discontinuity.
func ComputeSchedule(amount, perUnit int64, recurring bool) (interval *int64, next time.Time, err error) {
	if amount <= 0 || perUnit <= 0 {
		return nil, time.Time{}, ErrInvalidAmount
	}
	total := amount * perUnit
	next = time.Now().UTC().Add(time.Duration(total) * time.Minute)
	if recurring {
		interval = &total
	}
	return interval, next, nil
}
