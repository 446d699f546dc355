package service

import (
	"time"

	"todo-tracker/internal/model"
)

// NextReset returns the instant at which a completed recurring todo
// becomes completable again. A nil lastCompletedAt yields the zero
// time, i.e. immediately eligible. All boundaries are midnights in loc.
func NextReset(lastCompletedAt *time.Time, recurrenceType string, loc *time.Location) time.Time {
	if lastCompletedAt == nil {
		return time.Time{}
	}
	last := lastCompletedAt.In(loc)
	midnight := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)

	switch recurrenceType {
	case model.RecurrenceDaily:
		return midnight.AddDate(0, 0, 1)
	case model.RecurrenceWeekly:
		// Next Monday strictly after the completion day. A Monday
		// completion resets a full week later, never same-day.
		days := (int(time.Monday) - int(last.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return midnight.AddDate(0, 0, days)
	case model.RecurrenceMonthly:
		return time.Date(last.Year(), last.Month()+1, 1, 0, 0, 0, 0, loc)
	default:
		return time.Time{}
	}
}
