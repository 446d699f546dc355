package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"todo-tracker/internal/model"
	"todo-tracker/internal/service"
)

// TodoRepository is the GORM-backed implementation of the todo store.
type TodoRepository struct {
	db *gorm.DB
}

var _ service.TodoStore = (*TodoRepository)(nil)

func NewTodoRepository(db *gorm.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

func (r *TodoRepository) Create(ctx context.Context, todo *model.Todo) error {
	if todo.ID == "" {
		todo.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(todo).Error; err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

func (r *TodoRepository) FindByID(ctx context.Context, id string) (*model.Todo, error) {
	var todo model.Todo
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&todo).Error
	switch {
	case err == nil:
		return &todo, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, service.ErrNotFound
	default:
		return nil, fmt.Errorf("find todo: %w", err)
	}
}

func (r *TodoRepository) ListByUser(ctx context.Context, userID string) ([]model.Todo, error) {
	var todos []model.Todo
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

func (r *TodoRepository) ListRecurring(ctx context.Context) ([]model.Todo, error) {
	var todos []model.Todo
	if err := r.db.WithContext(ctx).
		Where("recurrence_type <> ?", model.RecurrenceNone).
		Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("list recurring todos: %w", err)
	}
	return todos, nil
}

// LatestHistory returns the newest entry for a todo, or nil when the
// ledger is empty.
func (r *TodoRepository) LatestHistory(ctx context.Context, todoID string) (*model.TodoHistory, error) {
	var entry model.TodoHistory
	err := r.db.WithContext(ctx).Where("todo_id = ?", todoID).
		Order("completed_at DESC").
		First(&entry).Error
	switch {
	case err == nil:
		return &entry, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("latest history: %w", err)
	}
}

func (r *TodoRepository) ListHistory(ctx context.Context, todoID string) ([]model.TodoHistory, error) {
	var entries []model.TodoHistory
	if err := r.db.WithContext(ctx).Where("todo_id = ?", todoID).
		Order("completed_at DESC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// CommitTransition writes the todo and its history mutations in one
// transaction. The todo row update is guarded by a version
// compare-and-swap; a stale version commits nothing and reports
// service.ErrConflict.
func (r *TodoRepository) CommitTransition(ctx context.Context, todo *model.Todo, hist service.HistoryMutation) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Todo{}).
			Where("id = ? AND version = ?", todo.ID, todo.Version).
			Updates(map[string]any{
				"text":              todo.Text,
				"completed":         todo.Completed,
				"recurrence_type":   todo.RecurrenceType,
				"last_completed_at": todo.LastCompletedAt,
				"completion_count":  todo.CompletionCount,
				"interaction_type":  todo.InteractionType,
				"duration_goal":     todo.DurationGoal,
				"version":           todo.Version + 1,
			})
		if res.Error != nil {
			return fmt.Errorf("update todo: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return service.ErrConflict
		}

		if hist.PurgeAll {
			if err := tx.Where("todo_id = ?", todo.ID).Delete(&model.TodoHistory{}).Error; err != nil {
				return fmt.Errorf("purge history: %w", err)
			}
		}
		if hist.RemoveID != "" {
			if err := tx.Where("id = ?", hist.RemoveID).Delete(&model.TodoHistory{}).Error; err != nil {
				return fmt.Errorf("remove history entry: %w", err)
			}
		}
		if hist.Append != nil {
			if hist.Append.ID == "" {
				hist.Append.ID = uuid.NewString()
			}
			if err := tx.Create(hist.Append).Error; err != nil {
				return fmt.Errorf("append history entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	todo.Version++
	todo.UpdatedAt = time.Now()
	return nil
}

// DeleteWithHistory removes a todo and every history entry it owns in
// one transaction.
func (r *TodoRepository) DeleteWithHistory(ctx context.Context, todo *model.Todo) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("todo_id = ?", todo.ID).Delete(&model.TodoHistory{}).Error; err != nil {
			return fmt.Errorf("delete history: %w", err)
		}
		res := tx.Where("id = ?", todo.ID).Delete(&model.Todo{})
		if res.Error != nil {
			return fmt.Errorf("delete todo: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return service.ErrNotFound
		}
		return nil
	})
}
