package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"todo-tracker/internal/model"
	"todo-tracker/internal/service"
)

// PgStore is a PostgreSQL-backed todo store.
type PgStore struct {
	pool *pgxpool.Pool
}

var _ service.TodoStore = (*PgStore)(nil)

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureSchema creates the todo tables if they don't exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS todos (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			text              TEXT NOT NULL,
			completed         BOOLEAN NOT NULL DEFAULT FALSE,
			recurrence_type   TEXT NOT NULL DEFAULT 'none',
			last_completed_at TIMESTAMPTZ,
			completion_count  INTEGER NOT NULL DEFAULT 0,
			interaction_type  TEXT NOT NULL DEFAULT '',
			duration_goal     INTEGER NOT NULL DEFAULT 0,
			version           BIGINT NOT NULL DEFAULT 0,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_todos_user ON todos(user_id)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS todo_histories (
			id             TEXT PRIMARY KEY,
			todo_id        TEXT NOT NULL,
			user_id        TEXT NOT NULL,
			completed_at   TIMESTAMPTZ NOT NULL,
			tally_snapshot INTEGER NOT NULL DEFAULT 0
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_todo_histories_todo ON todo_histories(todo_id, completed_at)`)
	return err
}

const todoColumns = `id, user_id, text, completed, recurrence_type, last_completed_at, completion_count, interaction_type, duration_goal, version, created_at, updated_at`

func scanTodo(row pgx.Row) (*model.Todo, error) {
	var t model.Todo
	err := row.Scan(&t.ID, &t.UserID, &t.Text, &t.Completed, &t.RecurrenceType,
		&t.LastCompletedAt, &t.CompletionCount, &t.InteractionType, &t.DurationGoal,
		&t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PgStore) Create(ctx context.Context, todo *model.Todo) error {
	if todo.ID == "" {
		todo.ID = uuid.NewString()
	}
	now := time.Now().Truncate(time.Microsecond)
	todo.CreatedAt = now
	todo.UpdatedAt = now
	_, err := s.pool.Exec(ctx, `
		INSERT INTO todos (`+todoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		todo.ID, todo.UserID, todo.Text, todo.Completed, todo.RecurrenceType,
		todo.LastCompletedAt, todo.CompletionCount, todo.InteractionType,
		todo.DurationGoal, todo.Version, todo.CreatedAt, todo.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

func (s *PgStore) FindByID(ctx context.Context, id string) (*model.Todo, error) {
	todo, err := scanTodo(s.pool.QueryRow(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find todo %s: %w", id, err)
	}
	return todo, nil
}

func (s *PgStore) ListByUser(ctx context.Context, userID string) ([]model.Todo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+todoColumns+` FROM todos
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return collectTodos(rows)
}

func (s *PgStore) ListRecurring(ctx context.Context) ([]model.Todo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+todoColumns+` FROM todos WHERE recurrence_type <> 'none'`)
	if err != nil {
		return nil, fmt.Errorf("list recurring todos: %w", err)
	}
	return collectTodos(rows)
}

func collectTodos(rows pgx.Rows) ([]model.Todo, error) {
	defer rows.Close()
	var todos []model.Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, *todo)
	}
	return todos, rows.Err()
}

func (s *PgStore) LatestHistory(ctx context.Context, todoID string) (*model.TodoHistory, error) {
	var e model.TodoHistory
	err := s.pool.QueryRow(ctx, `
		SELECT id, todo_id, user_id, completed_at, tally_snapshot
		FROM todo_histories WHERE todo_id = $1
		ORDER BY completed_at DESC LIMIT 1`, todoID).
		Scan(&e.ID, &e.TodoID, &e.UserID, &e.CompletedAt, &e.TallySnapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest history: %w", err)
	}
	return &e, nil
}

func (s *PgStore) ListHistory(ctx context.Context, todoID string) ([]model.TodoHistory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, todo_id, user_id, completed_at, tally_snapshot
		FROM todo_histories WHERE todo_id = $1
		ORDER BY completed_at DESC`, todoID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()
	var entries []model.TodoHistory
	for rows.Next() {
		var e model.TodoHistory
		if err := rows.Scan(&e.ID, &e.TodoID, &e.UserID, &e.CompletedAt, &e.TallySnapshot); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PgStore) CommitTransition(ctx context.Context, todo *model.Todo, hist service.HistoryMutation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().Truncate(time.Microsecond)
	ct, err := tx.Exec(ctx, `
		UPDATE todos SET text = $1, completed = $2, recurrence_type = $3,
			last_completed_at = $4, completion_count = $5, interaction_type = $6,
			duration_goal = $7, version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10`,
		todo.Text, todo.Completed, todo.RecurrenceType, todo.LastCompletedAt,
		todo.CompletionCount, todo.InteractionType, todo.DurationGoal, now,
		todo.ID, todo.Version)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return service.ErrConflict
	}

	if hist.PurgeAll {
		if _, err := tx.Exec(ctx, `DELETE FROM todo_histories WHERE todo_id = $1`, todo.ID); err != nil {
			return fmt.Errorf("purge history: %w", err)
		}
	}
	if hist.RemoveID != "" {
		if _, err := tx.Exec(ctx, `DELETE FROM todo_histories WHERE id = $1`, hist.RemoveID); err != nil {
			return fmt.Errorf("remove history entry: %w", err)
		}
	}
	if hist.Append != nil {
		if hist.Append.ID == "" {
			hist.Append.ID = uuid.NewString()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO todo_histories (id, todo_id, user_id, completed_at, tally_snapshot)
			VALUES ($1, $2, $3, $4, $5)`,
			hist.Append.ID, hist.Append.TodoID, hist.Append.UserID,
			hist.Append.CompletedAt, hist.Append.TallySnapshot); err != nil {
			return fmt.Errorf("append history entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	todo.Version++
	todo.UpdatedAt = now
	return nil
}

func (s *PgStore) DeleteWithHistory(ctx context.Context, todo *model.Todo) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM todo_histories WHERE todo_id = $1`, todo.ID); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	ct, err := tx.Exec(ctx, `DELETE FROM todos WHERE id = $1`, todo.ID)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return tx.Commit(ctx)
}
