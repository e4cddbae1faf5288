package projections

import (
	"context"
	"log/slog"

	"feeminton/internal/domain/calendar"
	"feeminton/internal/domain/schedule"
)

// MonthSchedulesQuery carries query parameters.
type MonthSchedulesQuery struct {
	Month   calendar.YearMonth
	GroupID int // 0 means every group
}

// MonthSchedulesResult carries the query result.
type MonthSchedulesResult struct {
	Month     calendar.YearMonth
	Schedules []schedule.Schedule
}

// MonthSchedulesDeps holds dependencies for QueryMonthSchedules.
type MonthSchedulesDeps struct {
	Schedules MonthLister
}

// QueryMonthSchedules lists a month's schedules. The server may not honour
// the month filter, so entries outside the month are dropped here.
// PRE: query.Month is a valid month
// POST: Every schedule lies in query.Month; sorted ascending by date then ID
func QueryMonthSchedules(ctx context.Context, query MonthSchedulesQuery, deps MonthSchedulesDeps) (MonthSchedulesResult, error) {
	list, err := deps.Schedules.GetSchedulesForMonth(ctx, query.Month, query.GroupID)
	if err != nil {
		return MonthSchedulesResult{}, err
	}

	kept := schedule.FilterMonth(list, query.Month)
	if dropped := len(list) - len(kept); dropped > 0 {
		slog.Debug("schedules_outside_month_dropped", "month", query.Month.Key(), "dropped", dropped)
	}
	schedule.SortByDate(kept)

	return MonthSchedulesResult{Month: query.Month, Schedules: kept}, nil
}
