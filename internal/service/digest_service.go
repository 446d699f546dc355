package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"todo-tracker/internal/model"
)

// DigestService builds the operator summary sent by the daily digest
// job: how many recurring todos exist, how many are open for their
// current cycle, and how many sit completed past their reset instant
// (which means the sweeper is lagging).
type DigestService struct {
	store TodoStore
	loc   *time.Location
}

func NewDigestService(store TodoStore, loc *time.Location) *DigestService {
	if loc == nil {
		loc = time.UTC
	}
	return &DigestService{store: store, loc: loc}
}

func (s *DigestService) Build(ctx context.Context, now time.Time) (string, error) {
	todos, err := s.store.ListRecurring(ctx)
	if err != nil {
		return "", err
	}

	var open, inCycle, overdue int
	perType := make(map[string]int)
	for _, todo := range todos {
		perType[todo.RecurrenceType]++
		switch {
		case !todo.Completed:
			open++
		case now.Before(NextReset(todo.LastCompletedAt, todo.RecurrenceType, s.loc)):
			inCycle++
		default:
			overdue++
		}
	}

	var b strings.Builder
	b.WriteString("Todo tracker digest\n")
	b.WriteString(fmt.Sprintf("%s\n\n", now.In(s.loc).Format("02.01.2006")))
	b.WriteString(fmt.Sprintf("Recurring todos: %d\n", len(todos)))
	for _, typ := range []string{model.RecurrenceDaily, model.RecurrenceWeekly, model.RecurrenceMonthly} {
		if n := perType[typ]; n > 0 {
			b.WriteString(fmt.Sprintf("  %s: %d\n", typ, n))
		}
	}
	b.WriteString(fmt.Sprintf("Open this cycle: %d\n", open))
	b.WriteString(fmt.Sprintf("Completed this cycle: %d\n", inCycle))
	if overdue > 0 {
		b.WriteString(fmt.Sprintf("Awaiting cycle reset: %d\n", overdue))
	}
	return b.String(), nil
}
