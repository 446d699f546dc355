package model

import "time"

// TodoHistory records one completion of a recurring todo. Entries are
// created on completion, removed on undo, and cascade-deleted with the
// owning todo. TallySnapshot is the completion count right after the
// completion it records, so an undo can restore the prior value.
type TodoHistory struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	TodoID        string    `gorm:"index" json:"todoId"`
	UserID        string    `gorm:"index" json:"userId"`
	CompletedAt   time.Time `gorm:"index" json:"completedAt"`
	TallySnapshot int       `json:"tallySnapshot"`
}
