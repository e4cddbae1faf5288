package projections

import (
	"context"
	"fmt"
	"log/slog"

	"feeminton/internal/domain/calendar"
	"feeminton/internal/domain/schedule"
)

// NotFoundError is returned when neither the direct fetch nor the month list
// yields the schedule.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Schedule #%d not found after refresh.", e.ID)
}

// ResolveSource names the strategy that produced a schedule.
type ResolveSource string

// Resolver strategies.
const (
	SourceDirect    ResolveSource = "direct"
	SourceMonthList ResolveSource = "month_list"
)

// ResolveScheduleQuery carries query parameters.
type ResolveScheduleQuery struct {
	ID      int
	Month   calendar.YearMonth // month searched by the fallback
	GroupID int
}

// ResolveScheduleResult carries the query result.
type ResolveScheduleResult struct {
	Schedule schedule.Schedule
	Source   ResolveSource
}

// ResolveScheduleDeps holds dependencies for QueryResolveSchedule.
type ResolveScheduleDeps struct {
	Schedules  ScheduleSource
	OnFallback func(directErr error) // optional
}

// FetchScheduleDirect is the primary strategy: GET schedules/{id}.
// PRE: id > 0
// POST: Returns the schedule or the fetch error
func FetchScheduleDirect(ctx context.Context, id int, source ScheduleGetter) (schedule.Schedule, error) {
	return source.GetScheduleByID(ctx, id)
}

// FindScheduleInMonth is the fallback strategy: list the month and pick the
// matching ID.
// PRE: id > 0, ym is valid
// POST: Returns *NotFoundError when the list has no such schedule
func FindScheduleInMonth(ctx context.Context, id int, ym calendar.YearMonth, groupID int, source MonthLister) (schedule.Schedule, error) {
	res, err := QueryMonthSchedules(ctx, MonthSchedulesQuery{Month: ym, GroupID: groupID}, MonthSchedulesDeps{Schedules: source})
	if err != nil {
		return schedule.Schedule{}, err
	}
	for _, s := range res.Schedules {
		if s.ID == id {
			return s, nil
		}
	}
	return schedule.Schedule{}, &NotFoundError{ID: id}
}

// QueryResolveSchedule tries the direct fetch and, on any failure, falls back
// to the month list. The direct error is logged and otherwise dropped.
// PRE: query.ID > 0
// POST: Returns the schedule with its source, the fallback's error, or
// *NotFoundError
func QueryResolveSchedule(ctx context.Context, query ResolveScheduleQuery, deps ResolveScheduleDeps) (ResolveScheduleResult, error) {
	s, err := FetchScheduleDirect(ctx, query.ID, deps.Schedules)
	if err == nil {
		return ResolveScheduleResult{Schedule: s, Source: SourceDirect}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ResolveScheduleResult{}, ctxErr
	}

	slog.Info("schedule_event", "event", "direct_fetch_fallback", "schedule_id", query.ID, "error", err)
	if deps.OnFallback != nil {
		deps.OnFallback(err)
	}

	s, err = FindScheduleInMonth(ctx, query.ID, query.Month, query.GroupID, deps.Schedules)
	if err != nil {
		return ResolveScheduleResult{}, err
	}
	return ResolveScheduleResult{Schedule: s, Source: SourceMonthList}, nil
}
