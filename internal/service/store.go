package service

import (
	"context"

	"todo-tracker/internal/model"
)

// HistoryMutation describes the history-ledger side effects of one
// lifecycle transition. At most one of Append/RemoveID is set by the
// engine; PurgeAll is used when a todo stops being recurring.
type HistoryMutation struct {
	Append   *model.TodoHistory
	RemoveID string
	PurgeAll bool
}

// TodoStore is the persistence port for todos and their completion
// history. CommitTransition and DeleteWithHistory must be atomic:
// either the todo and its history mutations commit as a unit or
// nothing does. CommitTransition is a compare-and-swap on the todo's
// version column and returns ErrConflict when the stored version no
// longer matches, letting the caller retry the read-modify-write.
type TodoStore interface {
	Create(ctx context.Context, todo *model.Todo) error
	FindByID(ctx context.Context, id string) (*model.Todo, error)
	ListByUser(ctx context.Context, userID string) ([]model.Todo, error)
	ListRecurring(ctx context.Context) ([]model.Todo, error)
	LatestHistory(ctx context.Context, todoID string) (*model.TodoHistory, error)
	ListHistory(ctx context.Context, todoID string) ([]model.TodoHistory, error)
	CommitTransition(ctx context.Context, todo *model.Todo, hist HistoryMutation) error
	DeleteWithHistory(ctx context.Context, todo *model.Todo) error
}
