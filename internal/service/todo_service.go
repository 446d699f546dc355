package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todo-tracker/internal/model"
)

// CreateInput represents data required to create a todo.
type CreateInput struct {
	Text            string
	RecurrenceType  string
	InteractionType string
	DurationGoal    int
}

// StatusIntent tags how an update request wants the completion state
// handled. It is resolved once at the HTTP boundary: an empty request
// body means toggle, an explicit completed field means set, a body with
// only content fields means no status change at all.
type StatusIntent int

const (
	StatusNone StatusIntent = iota
	StatusToggle
	StatusSet
)

// UpdateRequest carries one parsed update. Content fields are applied
// before any status logic runs; nil pointers mean "not present".
type UpdateRequest struct {
	Status          StatusIntent
	Completed       bool
	Text            *string
	RecurrenceType  *string
	InteractionType *string
	DurationGoal    *int
}

// TodoService wraps the todo lifecycle rules around a TodoStore.
type TodoService struct {
	store TodoStore
	loc   *time.Location
}

func NewTodoService(store TodoStore, loc *time.Location) *TodoService {
	if loc == nil {
		loc = time.UTC
	}
	return &TodoService{store: store, loc: loc}
}

func (s *TodoService) Create(ctx context.Context, userID string, input CreateInput) (*model.Todo, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if input.Text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if input.RecurrenceType == "" {
		input.RecurrenceType = model.RecurrenceNone
	}
	if !model.ValidRecurrence(input.RecurrenceType) {
		return nil, fmt.Errorf("%w: unknown recurrence type %q", ErrInvalidInput, input.RecurrenceType)
	}

	todo := model.Todo{
		UserID:          userID,
		Text:            input.Text,
		RecurrenceType:  input.RecurrenceType,
		InteractionType: input.InteractionType,
		DurationGoal:    input.DurationGoal,
	}
	if err := s.store.Create(ctx, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (s *TodoService) List(ctx context.Context, userID string) ([]model.Todo, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	return s.store.ListByUser(ctx, userID)
}

// History returns the completion ledger for one of the caller's todos,
// newest first.
func (s *TodoService) History(ctx context.Context, userID, todoID string) ([]model.TodoHistory, error) {
	todo, err := s.authorized(ctx, userID, todoID)
	if err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, todo.ID)
}

const maxUpdateRetries = 3

// Update applies one status transition and/or content edit to a todo.
// The whole read-modify-write is retried on a version conflict so a
// pair of racing requests cannot lose a tally increment.
func (s *TodoService) Update(ctx context.Context, userID, todoID string, req UpdateRequest, now time.Time) (*model.Todo, error) {
	for attempt := 1; ; attempt++ {
		todo, err := s.authorized(ctx, userID, todoID)
		if err != nil {
			return nil, err
		}
		hist, err := s.applyTransition(ctx, todo, req, now)
		if err != nil {
			return nil, err
		}
		err = s.store.CommitTransition(ctx, todo, hist)
		if err == nil {
			return todo, nil
		}
		if !errors.Is(err, ErrConflict) || attempt == maxUpdateRetries {
			return nil, err
		}
	}
}

// Delete removes a todo and, atomically, every history entry it owns.
func (s *TodoService) Delete(ctx context.Context, userID, todoID string) (*model.Todo, error) {
	todo, err := s.authorized(ctx, userID, todoID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteWithHistory(ctx, todo); err != nil {
		return nil, err
	}
	return todo, nil
}

// authorized loads a todo and checks it belongs to the caller.
func (s *TodoService) authorized(ctx context.Context, userID, todoID string) (*model.Todo, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	todo, err := s.store.FindByID(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if todo.UserID != userID {
		return nil, ErrForbidden
	}
	return todo, nil
}

// applyTransition mutates todo in place according to the request and
// returns the history side effects to commit alongside it.
func (s *TodoService) applyTransition(ctx context.Context, todo *model.Todo, req UpdateRequest, now time.Time) (HistoryMutation, error) {
	var hist HistoryMutation

	wasRecurring := todo.IsRecurring()
	if req.Text != nil {
		if *req.Text == "" {
			return hist, fmt.Errorf("%w: text cannot be empty", ErrInvalidInput)
		}
		todo.Text = *req.Text
	}
	if req.RecurrenceType != nil {
		if !model.ValidRecurrence(*req.RecurrenceType) {
			return hist, fmt.Errorf("%w: unknown recurrence type %q", ErrInvalidInput, *req.RecurrenceType)
		}
		todo.RecurrenceType = *req.RecurrenceType
	}
	if req.InteractionType != nil {
		todo.InteractionType = *req.InteractionType
	}
	if req.DurationGoal != nil {
		todo.DurationGoal = *req.DurationGoal
	}

	// A todo that stops recurring sheds its ledger so the tally and
	// history stay in step.
	if wasRecurring && !todo.IsRecurring() {
		hist.PurgeAll = true
		todo.CompletionCount = 0
	}

	var target bool
	switch req.Status {
	case StatusNone:
		return hist, nil
	case StatusToggle:
		target = !todo.Completed
	case StatusSet:
		target = req.Completed
	}

	// A completed recurring todo whose reset instant has passed starts
	// a new cycle instead of undoing the old one.
	if todo.Completed && todo.IsRecurring() {
		if reset := NextReset(todo.LastCompletedAt, todo.RecurrenceType, s.loc); !now.Before(reset) {
			target = true
		}
	}

	if target {
		todo.Completed = true
		if todo.IsRecurring() {
			todo.CompletionCount++
			hist.Append = &model.TodoHistory{
				TodoID:        todo.ID,
				UserID:        todo.UserID,
				CompletedAt:   now,
				TallySnapshot: todo.CompletionCount,
			}
		}
		completedAt := now
		todo.LastCompletedAt = &completedAt
		return hist, nil
	}

	todo.Completed = false
	if todo.IsRecurring() {
		latest, err := s.store.LatestHistory(ctx, todo.ID)
		if err != nil {
			return hist, err
		}
		if latest != nil {
			hist.RemoveID = latest.ID
			if todo.CompletionCount > 0 {
				todo.CompletionCount--
			}
		}
	}
	if todo.CompletionCount == 0 || !todo.IsRecurring() {
		todo.LastCompletedAt = nil
	}
	return hist, nil
}

// SweepExpiredCycles flips completed recurring todos back to open once
// their reset instant has passed. The tally and history are untouched;
// the lazy override in applyTransition remains authoritative, this just
// keeps listings honest between requests. Conflicts are skipped.
func (s *TodoService) SweepExpiredCycles(ctx context.Context, now time.Time) (int, error) {
	todos, err := s.store.ListRecurring(ctx)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range todos {
		todo := &todos[i]
		if !todo.Completed {
			continue
		}
		if now.Before(NextReset(todo.LastCompletedAt, todo.RecurrenceType, s.loc)) {
			continue
		}
		todo.Completed = false
		if err := s.store.CommitTransition(ctx, todo, HistoryMutation{}); err != nil {
			if errors.Is(err, ErrConflict) {
				continue
			}
			return swept, err
		}
		swept++
	}
	return swept, nil
}
