package model

import "time"

// Recurrence cadences a todo can carry.
const (
	RecurrenceNone    = "none"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// Todo represents a single trackable item, possibly recurring.
type Todo struct {
	ID              string     `gorm:"primaryKey" json:"id"`
	UserID          string     `gorm:"index" json:"userId"`
	Text            string     `json:"text"`
	Completed       bool       `gorm:"default:false" json:"completed"`
	RecurrenceType  string     `gorm:"default:none" json:"recurrenceType"`
	LastCompletedAt *time.Time `json:"lastCompletedAt,omitempty"`
	CompletionCount int        `gorm:"default:0" json:"completionCount"`
	InteractionType string     `json:"interactionType,omitempty"`
	DurationGoal    int        `json:"durationGoal,omitempty"`
	Version         int64      `gorm:"default:0" json:"-"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// IsRecurring reports whether the todo resets on a cadence.
func (t *Todo) IsRecurring() bool {
	return t.RecurrenceType != "" && t.RecurrenceType != RecurrenceNone
}

// ValidRecurrence reports whether s names a known recurrence type.
func ValidRecurrence(s string) bool {
	switch s {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}
